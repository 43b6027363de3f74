package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// TrackExtensions are the audio formats a single track can be created from.
var TrackExtensions = []string{".mp3", ".wav"}

// CategoryType is one subdivision of a [Category].
type CategoryType struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Category groups catalog tracks. A track needs both a category and one of its types.
type Category struct {
	ID    string         `json:"_id"`
	Name  string         `json:"name"`
	Types []CategoryType `json:"types"`
}

// DisplayName returns the name as plain text.
func (c Category) DisplayName() string { return sanitize.Text(c.Name) }

// Type finds a type by ID or case-insensitive name. An empty key selects the first type, as the admin screen does.
func (c Category) Type(key string) (CategoryType, bool) {
	if len(c.Types) == 0 {
		return CategoryType{}, false
	}
	if key == "" {
		return c.Types[0], true
	}
	for _, t := range c.Types {
		if t.ID == key || strings.EqualFold(t.Name, key) {
			return t, true
		}
	}
	return CategoryType{}, false
}

// FindCategory finds a category by ID or case-insensitive name. An empty key selects the first category.
func FindCategory(categories []Category, key string) (Category, bool) {
	if len(categories) == 0 {
		return Category{}, false
	}
	if key == "" {
		return categories[0], true
	}
	for _, c := range categories {
		if c.ID == key || strings.EqualFold(c.Name, key) {
			return c, true
		}
	}
	return Category{}, false
}

// Track is a single catalog entry created with its audio file and thumbnail. Category fields hold IDs.
type Track struct {
	ID           string `json:"_id,omitempty"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Category     string `json:"category"`
	CategoryType string `json:"categoryType"`
	Duration     int    `json:"duration"`
	ReleaseDate  string `json:"releaseDate"`
}

// NewTrack returns a track released today.
func NewTrack(title, artist string, now time.Time) *Track {
	return &Track{Title: title, Artist: artist, ReleaseDate: now.Format(time.DateOnly)}
}

// DisplayDuration formats Duration as m:ss, or "" when unknown.
func (t Track) DisplayDuration() string {
	if t.Duration <= 0 {
		return ""
	}
	return fmt.Sprintf("%d:%02d", t.Duration/60, t.Duration%60)
}

// Problems lists every missing or malformed field, in form order.
func (t Track) Problems() []string {
	var problems []string
	if strings.TrimSpace(t.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(t.Artist) == "" {
		problems = append(problems, "artist is required")
	}
	if t.Category == "" {
		problems = append(problems, "category is required")
	}
	if t.CategoryType == "" {
		problems = append(problems, "category type is required")
	}
	if t.Duration < 0 {
		problems = append(problems, "duration cannot be negative")
	}
	if t.ReleaseDate == "" {
		problems = append(problems, "release date is required")
	} else if _, err := time.Parse(time.DateOnly, t.ReleaseDate); err != nil {
		problems = append(problems, "release date must be YYYY-MM-DD")
	}
	return problems
}

// Validate checks a track before it is sent to the admin API.
func (t Track) Validate() error {
	return TrackError(t.Problems())
}

// TrackError joins problems found across a track and its files into one [shared.ErrInvalidInput].
func TrackError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(problems, "; "))
}
