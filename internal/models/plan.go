package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// SubscriptionPlan is a plan offered to listeners. Description is operator-authored HTML.
type SubscriptionPlan struct {
	ID                   string   `json:"_id,omitempty"`
	Title                string   `json:"title"`
	MonthlyCost          float64  `json:"monthlyCost"`
	AnnualCost           float64  `json:"annualCost"`
	AdSupported          string   `json:"adSupported"`
	AudioFileType        string   `json:"audioFileType"`
	OfflineDownloads     string   `json:"offlineDownloads"`
	BinauralTracks       string   `json:"binauralTracks"`
	SoundscapeTracks     string   `json:"soundscapeTracks"`
	DynamicAudioFeatures string   `json:"dynamicAudioFeatures"`
	CustomTrackRequests  string   `json:"customTrackRequests"`
	Description          string   `json:"description"`
	Features             []string `json:"features"`
	IsDefault            bool     `json:"isDefault"`
	IsActive             bool     `json:"isActive"`
	StripeMonthlyPriceID string   `json:"stripeMonthlyPriceId,omitempty"`
	StripeYearlyPriceID  string   `json:"stripeYearlyPriceId,omitempty"`
}

// NewSubscriptionPlan returns a plan with the form defaults used by the admin screen.
func NewSubscriptionPlan(title string) *SubscriptionPlan {
	return &SubscriptionPlan{
		Title:                title,
		AdSupported:          "No",
		DynamicAudioFeatures: "No",
		CustomTrackRequests:  "No",
		IsActive:             true,
	}
}

// SafeDescription returns the description reduced to the sanitization allow-list.
func (p SubscriptionPlan) SafeDescription() string { return sanitize.HTML(p.Description) }

// SafeFeatures returns the feature list as plain text, dropping entries that sanitize to nothing.
func (p SubscriptionPlan) SafeFeatures() []string {
	out := make([]string, 0, len(p.Features))
	for _, f := range p.Features {
		if s := sanitize.Text(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks a plan before it is sent to the admin API.
func (p SubscriptionPlan) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", shared.ErrInvalidInput)
	}
	if p.MonthlyCost < 0 || p.AnnualCost < 0 {
		return fmt.Errorf("%w: costs cannot be negative", shared.ErrInvalidInput)
	}
	return nil
}

// ParseFeatures splits text entered one feature per line, dropping blank lines.
func ParseFeatures(text string) []string {
	var features []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			features = append(features, line)
		}
	}
	return features
}

// DefaultPlan returns the plan flagged as default, if any.
func DefaultPlan(plans []SubscriptionPlan) (SubscriptionPlan, bool) {
	for _, p := range plans {
		if p.IsDefault {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}
