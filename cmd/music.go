package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/notify"
	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) music(ctx context.Context) (*services.MusicClient, error) {
	api, err := r.client(ctx)
	if err != nil {
		return nil, err
	}
	return services.NewMusicClient(api), nil
}

// MusicCategories prints the categories a track can be filed under.
func (r *Runner) MusicCategories(ctx context.Context, cmd *cli.Command) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	client, err := r.music(ctx)
	if err != nil {
		return err
	}

	categories, err := client.Categories(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Categories(categories, format)
	if err != nil {
		return err
	}
	return r.emit(cmd, data)
}

// MusicCreate adds one track with its audio file and thumbnail. Category and type default to the first listed,
// the release date to today. Every missing field is reported at once.
func (r *Runner) MusicCreate(ctx context.Context, cmd *cli.Command) error {
	track := models.NewTrack(cmd.String("title"), cmd.String("artist"), time.Now())
	if cmd.IsSet("release-date") {
		track.ReleaseDate = cmd.String("release-date")
	}
	track.Duration = cmd.Int("duration")

	audio, err := optionalFile(cmd.StringArg("file"))
	if err != nil {
		return err
	}
	thumbnail, err := optionalFile(cmd.String("thumbnail"))
	if err != nil {
		return err
	}

	client, err := r.music(ctx)
	if err != nil {
		return err
	}

	categories, err := client.Categories(ctx)
	if err != nil {
		return err
	}

	if err := resolveCategory(track, categories, cmd.String("category"), cmd.String("type")); err != nil {
		return err
	}
	if err := models.TrackError(services.TrackProblems(*track, audio, thumbnail)); err != nil {
		return err
	}

	if size := audio.Size(); size > notify.LargeFileBytes {
		r.writePlain("⚠️ Large file detected (%s). Upload may take several minutes. Please be patient.\n", shared.FormatBytes(size))
	}
	r.writePlain("Uploading %s (%s)...\n", audio.Name(), shared.FormatBytes(audio.Size()+thumbnail.Size()))

	started := time.Now()
	last := -1
	created, err := client.Create(ctx, *track, audio, thumbnail, func(percent int) {
		if step := percent / 25; step > last {
			last = step
			r.logger.Debug("upload progress", "file", audio.Name(), "percent", percent)
		}
	})
	if err != nil {
		r.writePlain("❌ %s\n", tasks.FailureMessage(err))
		return err
	}

	r.logger.Info("track created", "id", created.ID, "elapsed", time.Since(started).Round(time.Millisecond))
	r.writePlain("✓ Music added successfully: %s by %s", sanitize.Text(created.Title), sanitize.Text(created.Artist))
	if d := created.DisplayDuration(); d != "" {
		r.writePlain(" [%s]", d)
	}
	if created.ID != "" {
		r.writePlain(" (%s)", created.ID)
	}
	r.writePlain("\n")
	return nil
}

// resolveCategory fills the category and type IDs on track from the operator's keys. With no categories to pick
// from, the category stays empty and is reported with the other missing fields.
func resolveCategory(track *models.Track, categories []models.Category, categoryKey, typeKey string) error {
	if categoryKey == "" && len(categories) == 0 {
		return nil
	}

	category, ok := models.FindCategory(categories, categoryKey)
	if !ok {
		return fmt.Errorf("%w: unknown category %q", shared.ErrInvalidArgument, categoryKey)
	}
	track.Category = category.ID

	if len(category.Types) == 0 {
		return fmt.Errorf("%w: selected category has no types available", shared.ErrInvalidInput)
	}
	categoryType, ok := category.Type(typeKey)
	if !ok {
		return fmt.Errorf("%w: unknown category type %q for %s", shared.ErrInvalidArgument, typeKey, category.DisplayName())
	}
	track.CategoryType = categoryType.ID
	return nil
}

// optionalFile stats path when one is given. A nil result means no file was named.
func optionalFile(path string) (tasks.FileRef, error) {
	if path == "" {
		return nil, nil
	}
	file, err := tasks.NewLocalFile(path)
	if err != nil {
		return nil, err
	}
	return file, nil
}
