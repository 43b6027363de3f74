package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

const documentsPath = "/terms/admin"

// DocumentsClient manages versioned legal documents of one [models.DocumentType].
type DocumentsClient struct {
	api  *APIService
	kind models.DocumentType
}

// NewDocumentsClient creates a client for terms or disclaimers.
func NewDocumentsClient(api *APIService, kind models.DocumentType) *DocumentsClient {
	if kind == "" {
		kind = models.DocumentTerms
	}
	return &DocumentsClient{api: api, kind: kind}
}

// Kind returns the document type this client manages.
func (c *DocumentsClient) Kind() models.DocumentType { return c.kind }

type documentPayload struct {
	Title         string              `json:"title"`
	Content       string              `json:"content"`
	Version       string              `json:"version"`
	EffectiveDate string              `json:"effectiveDate"`
	DocumentType  models.DocumentType `json:"documentType,omitempty"`
}

// List returns every version, including inactive drafts.
func (c *DocumentsClient) List(ctx context.Context) ([]models.LegalDocument, error) {
	path := documentsPath
	if c.kind == models.DocumentDisclaimer {
		path += "/disclaimer"
	}

	var docs []models.LegalDocument
	if err := c.api.call(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", c.kind, err)
	}
	return docs, nil
}

// Get finds one version by ID.
func (c *DocumentsClient) Get(ctx context.Context, id string) (models.LegalDocument, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return models.LegalDocument{}, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return models.LegalDocument{}, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, id)
}

// NextVersion suggests the version number for a new document.
func (c *DocumentsClient) NextVersion(ctx context.Context) (string, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	return models.NextVersion(docs), nil
}

// Create adds a new inactive version.
func (c *DocumentsClient) Create(ctx context.Context, doc models.LegalDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	return c.api.call(ctx, http.MethodPost, documentsPath, c.payload(doc), nil)
}

// Update replaces an inactive version. The active version cannot be edited.
func (c *DocumentsClient) Update(ctx context.Context, doc models.LegalDocument) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	current, err := c.Get(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := current.CanEdit(); err != nil {
		return err
	}

	return c.api.call(ctx, http.MethodPut, documentPath(doc.ID, ""), c.payload(doc), nil)
}

// Publish makes id the active version, replacing the current one.
func (c *DocumentsClient) Publish(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodPut, documentPath(id, "publish"), nil, nil)
}

// Unpublish deactivates id.
func (c *DocumentsClient) Unpublish(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodPut, documentPath(id, "unpublish"), nil, nil)
}

// Delete removes id permanently.
func (c *DocumentsClient) Delete(ctx context.Context, id string) error {
	return c.api.call(ctx, http.MethodDelete, documentPath(id, ""), nil, nil)
}

func (c *DocumentsClient) payload(doc models.LegalDocument) documentPayload {
	p := documentPayload{
		Title:         doc.Title,
		Content:       doc.Content,
		Version:       doc.Version,
		EffectiveDate: doc.EffectiveDate,
	}
	if c.kind == models.DocumentDisclaimer {
		p.DocumentType = models.DocumentDisclaimer
	}
	return p
}

func documentPath(id, action string) string {
	path := documentsPath + "/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path
}
