package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) documents(ctx context.Context, kind models.DocumentType) (*services.DocumentsClient, error) {
	api, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewDocumentsClient(api, kind), nil
}

// DocumentsList prints every version of kind.
func (r *Runner) DocumentsList(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}

		docs, err := client.List(ctx)
		if err != nil {
			return err
		}
		r.logger.Debug("listed documents", "kind", kind, "count", len(docs))

		data, err := formatter.Documents(docs, format)
		if err != nil {
			return err
		}
		return r.emit(cmd, data)
	}
}

// DocumentShow prints one version with its sanitized content. Without an ID the active version is shown.
func (r *Runner) DocumentShow(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}

		var doc models.LegalDocument
		if id := cmd.StringArg("id"); id != "" {
			if doc, err = client.Get(ctx, id); err != nil {
				return err
			}
		} else {
			docs, err := client.List(ctx)
			if err != nil {
				return err
			}
			active, ok := models.ActiveDocument(docs)
			if !ok {
				return fmt.Errorf("%w: no active %s document", shared.ErrDocumentNotFound, kind)
			}
			doc = active
		}

		data, err := formatter.Document(doc, format)
		if err != nil {
			return err
		}
		return r.emit(cmd, data)
	}
}

// DocumentCreate adds a new inactive version. Version and effective date default to the next suggested version
// and today.
func (r *Runner) DocumentCreate(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}

		doc := models.NewLegalDocument(kind, time.Now())
		if err := applyDocumentFlags(cmd, doc); err != nil {
			return err
		}
		if doc.Version == "" {
			if doc.Version, err = client.NextVersion(ctx); err != nil {
				return err
			}
		}

		if err := client.Create(ctx, *doc); err != nil {
			return err
		}

		r.logger.Info("document created", "kind", kind, "version", doc.Version)
		r.writePlain("✓ Created %s v%s (inactive; publish it to make it live)\n", doc.SafeTitle(), doc.Version)
		return nil
	}
}

// DocumentUpdate edits an inactive version; only the given fields change.
func (r *Runner) DocumentUpdate(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}

		doc, err := client.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := doc.CanEdit(); err != nil {
			return err
		}
		if err := applyDocumentFlags(cmd, &doc); err != nil {
			return err
		}

		if err := client.Update(ctx, doc); err != nil {
			return err
		}

		r.logger.Info("document updated", "kind", kind, "id", id)
		r.writePlain("✓ Updated %s v%s\n", doc.SafeTitle(), doc.Version)
		return nil
	}
}

// DocumentPublish makes a version the active one.
func (r *Runner) DocumentPublish(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}
		if err := client.Publish(ctx, id); err != nil {
			return err
		}

		r.logger.Info("document published", "kind", kind, "id", id)
		r.writePlain("✓ Published %s\n", id)
		return nil
	}
}

// DocumentUnpublish deactivates a version.
func (r *Runner) DocumentUnpublish(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}
		if err := client.Unpublish(ctx, id); err != nil {
			return err
		}

		r.logger.Info("document unpublished", "kind", kind, "id", id)
		r.writePlain("✓ Unpublished %s\n", id)
		return nil
	}
}

// DocumentDelete removes a version after confirmation.
func (r *Runner) DocumentDelete(kind models.DocumentType) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		id, err := requireID(cmd)
		if err != nil {
			return err
		}

		if !cmd.Bool("yes") && !r.confirm(fmt.Sprintf("Delete %s document %s?", kind, id)) {
			r.writePlain("Canceled\n")
			return nil
		}

		client, err := r.documents(ctx, kind)
		if err != nil {
			return err
		}
		if err := client.Delete(ctx, id); err != nil {
			return err
		}

		r.logger.Info("document deleted", "kind", kind, "id", id)
		r.writePlain("✓ Deleted %s\n", id)
		return nil
	}
}

// applyDocumentFlags copies the flags that were set onto doc.
func applyDocumentFlags(cmd *cli.Command, doc *models.LegalDocument) error {
	if cmd.IsSet("content") && cmd.IsSet("content-file") {
		return fmt.Errorf("%w: cannot specify both --content and --content-file", shared.ErrInvalidArgument)
	}

	if cmd.IsSet("title") {
		doc.Title = cmd.String("title")
	}
	if cmd.IsSet("content") {
		doc.Content = cmd.String("content")
	}
	if path := cmd.String("content-file"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		doc.Content = string(content)
	}
	if cmd.IsSet("version") {
		doc.Version = cmd.String("version")
	}
	if cmd.IsSet("effective") {
		doc.EffectiveDate = cmd.String("effective")
	}
	return nil
}

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: id is required", shared.ErrMissingArgument)
	}
	return id, nil
}
