package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// DocumentType distinguishes terms and conditions from disclaimers. Both live under the same admin endpoint.
type DocumentType string

const (
	DocumentTerms      DocumentType = "terms"
	DocumentDisclaimer DocumentType = "disclaimer"
)

// ExcerptLength is the number of characters shown in document listings.
const ExcerptLength = 200

// LegalDocument is a versioned terms or disclaimer document. Content is operator-authored HTML and is only ever
// rendered through [LegalDocument.SafeContent] or [LegalDocument.Excerpt].
type LegalDocument struct {
	ID            string       `json:"_id,omitempty"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Version       string       `json:"version"`
	EffectiveDate string       `json:"effectiveDate"`
	DocumentType  DocumentType `json:"documentType,omitempty"`
	IsActive      bool         `json:"isActive"`
	CreatedAt     *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time   `json:"updatedAt,omitempty"`
}

// NewLegalDocument returns a document with the form defaults: disclaimers are titled "Disclaimer", and the effective
// date is today.
func NewLegalDocument(kind DocumentType, now time.Time) *LegalDocument {
	doc := &LegalDocument{
		EffectiveDate: now.Format(time.DateOnly),
		DocumentType:  kind,
	}
	if kind == DocumentDisclaimer {
		doc.Title = "Disclaimer"
	}
	return doc
}

// SafeContent returns the content reduced to the sanitization allow-list.
func (d LegalDocument) SafeContent() string { return sanitize.HTML(d.Content) }

// Excerpt returns a plain-text preview of the content.
func (d LegalDocument) Excerpt() string { return sanitize.Excerpt(d.Content, ExcerptLength) }

// SafeTitle returns the title as plain text.
func (d LegalDocument) SafeTitle() string { return sanitize.Text(d.Title) }

// Effective parses EffectiveDate, accepting a bare date or an RFC 3339 timestamp.
func (d LegalDocument) Effective() (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, d.EffectiveDate); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: effective date %q", shared.ErrInvalidInput, d.EffectiveDate)
}

// CanEdit rejects edits to the active version; a new version must be created instead.
func (d LegalDocument) CanEdit() error {
	if d.IsActive {
		return fmt.Errorf("%w: %s v%s", shared.ErrActiveDocument, d.Title, d.Version)
	}
	return nil
}

// Validate checks the fields the admin API requires.
func (d LegalDocument) Validate() error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	case strings.TrimSpace(d.Content) == "":
		return fmt.Errorf("%w: content is required", shared.ErrInvalidInput)
	case strings.TrimSpace(d.Version) == "":
		return fmt.Errorf("%w: version is required", shared.ErrInvalidInput)
	}
	if _, err := d.Effective(); err != nil {
		return err
	}
	return nil
}

// NextVersion suggests the version for a new document: "1.0" when there are none, otherwise the highest numeric
// version plus 0.1, to one decimal place. Non-numeric versions are ignored.
func NextVersion(docs []LegalDocument) string {
	best, found := 0.0, false
	for _, d := range docs {
		v, err := strconv.ParseFloat(strings.TrimSpace(d.Version), 64)
		if err != nil {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	if !found {
		return "1.0"
	}
	return strconv.FormatFloat(best+0.1, 'f', 1, 64)
}

// ActiveDocument returns the active document, if any.
func ActiveDocument(docs []LegalDocument) (LegalDocument, bool) {
	for _, d := range docs {
		if d.IsActive {
			return d, true
		}
	}
	return LegalDocument{}, false
}
