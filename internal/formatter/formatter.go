// package formatter renders admin records and upload history as plain text, Markdown, CSV or JSON.
//
// Every operator-authored field passes through the sanitization gate before it is written.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/sanitize"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// Format selects an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every accepted [Format], for flag help.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat accepts a format name ("md" is an alias for markdown). An empty name is text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
}

const timeLayout = "2006-01-02 15:04"

// Documents renders a document listing with excerpts instead of full content.
func Documents(docs []models.LegalDocument, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(safeDocuments(docs), true)
	case FormatCSV:
		rows := make([][]string, len(docs))
		for i, d := range docs {
			rows[i] = []string{d.ID, d.SafeTitle(), d.Version, d.EffectiveDate, strconv.FormatBool(d.IsActive), d.Excerpt()}
		}
		return toCSV([]string{"ID", "Title", "Version", "Effective", "Active", "Excerpt"}, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		buf.WriteString("| Title | Version | Effective | Status |\n|---|---|---|---|\n")
		for _, d := range docs {
			fmt.Fprintf(&buf, "| %s | v%s | %s | %s |\n", cell(inline(d.Title)), cell(inline(d.Version)), cell(inline(d.EffectiveDate)), activeLabel(d.IsActive))
		}
		return buf.Bytes(), nil
	default:
		if len(docs) == 0 {
			return []byte("No documents found\n"), nil
		}
		var buf bytes.Buffer
		for _, d := range docs {
			fmt.Fprintf(&buf, "%s  v%s  effective %s  [%s]  %s\n", d.ID, d.Version, d.EffectiveDate, activeLabel(d.IsActive), d.SafeTitle())
			if excerpt := d.Excerpt(); excerpt != "" {
				fmt.Fprintf(&buf, "    %s\n", excerpt)
			}
		}
		return buf.Bytes(), nil
	}
}

// Document renders one document in full. Markdown keeps the sanitized markup; text strips it.
func Document(d models.LegalDocument, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(safeDocuments([]models.LegalDocument{d})[0], true)
	case FormatCSV:
		return Documents([]models.LegalDocument{d}, f)
	case FormatMarkdown:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "# %s\n\n", inline(d.Title))
		fmt.Fprintf(&buf, "**Version**: %s\n", inline(d.Version))
		fmt.Fprintf(&buf, "**Effective**: %s\n", inline(d.EffectiveDate))
		fmt.Fprintf(&buf, "**Status**: %s\n\n", activeLabel(d.IsActive))
		buf.WriteString(d.SafeContent())
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s (v%s, %s)\n", d.SafeTitle(), d.Version, activeLabel(d.IsActive))
		fmt.Fprintf(&buf, "Effective: %s\n", d.EffectiveDate)
		if d.UpdatedAt != nil {
			fmt.Fprintf(&buf, "Updated: %s\n", d.UpdatedAt.Local().Format(timeLayout))
		}
		fmt.Fprintf(&buf, "\n%s\n", sanitize.Text(d.Content))
		return buf.Bytes(), nil
	}
}

// Plans renders a plan listing.
func Plans(plans []models.SubscriptionPlan, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(safePlans(plans), true)
	case FormatCSV:
		rows := make([][]string, len(plans))
		for i, p := range plans {
			rows[i] = []string{p.ID, sanitize.Text(p.Title), money(p.MonthlyCost), money(p.AnnualCost),
				strconv.FormatBool(p.IsDefault), strconv.FormatBool(p.IsActive)}
		}
		return toCSV([]string{"ID", "Title", "Monthly", "Annual", "Default", "Active"}, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		buf.WriteString("| Plan | Monthly | Annual | Status |\n|---|---|---|---|\n")
		for _, p := range plans {
			fmt.Fprintf(&buf, "| %s | $%s | $%s | %s |\n", cell(inline(p.Title)), money(p.MonthlyCost), money(p.AnnualCost), planLabel(p))
		}
		return buf.Bytes(), nil
	default:
		if len(plans) == 0 {
			return []byte("No plans found\n"), nil
		}
		var buf bytes.Buffer
		for _, p := range plans {
			fmt.Fprintf(&buf, "%s  %-24s $%s/mo  $%s/yr  [%s]\n", p.ID, sanitize.Text(p.Title), money(p.MonthlyCost), money(p.AnnualCost), planLabel(p))
		}
		return buf.Bytes(), nil
	}
}

// Plan renders one plan with its features.
func Plan(p models.SubscriptionPlan, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(safePlans([]models.SubscriptionPlan{p})[0], true)
	case FormatCSV:
		return Plans([]models.SubscriptionPlan{p}, f)
	}

	heading, bullet := "%s (%s)\n", "  - %s\n"
	escape := func(s string) string { return s }
	if f == FormatMarkdown {
		heading, bullet = "# %s\n\n**Status**: %s\n\n", "- %s\n"
		escape = html.EscapeString
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, heading, escape(sanitize.Text(p.Title)), planLabel(p))
	fmt.Fprintf(&buf, "Monthly: $%s\nAnnual: $%s\n", money(p.MonthlyCost), money(p.AnnualCost))
	for _, field := range [][2]string{
		{"Ads", p.AdSupported},
		{"Audio", p.AudioFileType},
		{"Offline downloads", p.OfflineDownloads},
		{"Binaural tracks", p.BinauralTracks},
		{"Soundscape tracks", p.SoundscapeTracks},
		{"Dynamic audio", p.DynamicAudioFeatures},
		{"Custom requests", p.CustomTrackRequests},
	} {
		if v := sanitize.Text(field[1]); v != "" {
			fmt.Fprintf(&buf, "%s: %s\n", field[0], escape(v))
		}
	}
	if desc := sanitize.Text(p.Description); desc != "" {
		fmt.Fprintf(&buf, "\n%s\n", escape(desc))
	}
	if features := p.SafeFeatures(); len(features) > 0 {
		buf.WriteString("\nFeatures:\n")
		for _, feature := range features {
			fmt.Fprintf(&buf, bullet, escape(feature))
		}
	}
	return buf.Bytes(), nil
}

// Users renders a user listing followed by status counts.
func Users(users []models.User, f Format) ([]byte, error) {
	stats := models.CountUsers(users)

	switch f {
	case FormatJSON:
		return shared.MarshalJSON(struct {
			Users []models.User    `json:"users"`
			Stats models.UserStats `json:"stats"`
		}{safeUsers(users), stats}, true)
	case FormatCSV:
		rows := make([][]string, len(users))
		for i, u := range users {
			rows[i] = []string{u.ID, u.DisplayName(), sanitize.Text(u.Email), sanitize.Text(u.Role),
				u.SubscriptionStatus, strconv.Itoa(u.DaysRemaining), created(u.CreatedAt)}
		}
		return toCSV([]string{"ID", "Name", "Email", "Role", "Status", "Days Remaining", "Joined"}, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		buf.WriteString("| Name | Email | Role | Subscription | Days |\n|---|---|---|---|---|\n")
		for _, u := range users {
			fmt.Fprintf(&buf, "| %s | %s | %s | %s | %d |\n",
				cell(html.EscapeString(u.DisplayName())), cell(inline(u.Email)), cell(inline(u.Role)), cell(inline(u.SubscriptionStatus)), u.DaysRemaining)
		}
		fmt.Fprintf(&buf, "\n%s\n", statsLine(stats))
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		for _, u := range users {
			status := u.SubscriptionStatus
			if u.ExpiringSoon() {
				status += fmt.Sprintf(" (%d days left)", u.DaysRemaining)
			}
			fmt.Fprintf(&buf, "%s  %-24s %-32s %-8s %s\n", u.ID, u.DisplayName(), sanitize.Text(u.Email), sanitize.Text(u.Role), status)
		}
		if len(users) > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%s\n", statsLine(stats))
		return buf.Bytes(), nil
	}
}

// Categories renders the music categories with their types.
func Categories(categories []models.Category, f Format) ([]byte, error) {
	typeNames := func(c models.Category, escape func(string) string) string {
		names := make([]string, len(c.Types))
		for i, t := range c.Types {
			names[i] = escape(sanitize.Text(t.Name))
		}
		return strings.Join(names, ", ")
	}
	plain := func(s string) string { return s }

	switch f {
	case FormatJSON:
		out := make([]models.Category, len(categories))
		for i, c := range categories {
			c.Name = c.DisplayName()
			c.Types = slices.Clone(c.Types)
			for j := range c.Types {
				c.Types[j].Name = sanitize.Text(c.Types[j].Name)
			}
			out[i] = c
		}
		return shared.MarshalJSON(out, true)
	case FormatCSV:
		rows := make([][]string, len(categories))
		for i, c := range categories {
			rows[i] = []string{c.ID, c.DisplayName(), typeNames(c, plain)}
		}
		return toCSV([]string{"ID", "Name", "Types"}, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		buf.WriteString("| Category | ID | Types |\n|---|---|---|\n")
		for _, c := range categories {
			fmt.Fprintf(&buf, "| %s | %s | %s |\n", cell(inline(c.Name)), cell(inline(c.ID)), cell(typeNames(c, html.EscapeString)))
		}
		return buf.Bytes(), nil
	default:
		if len(categories) == 0 {
			return []byte("No categories found\n"), nil
		}
		var buf bytes.Buffer
		for _, c := range categories {
			fmt.Fprintf(&buf, "%s  %s\n", c.ID, c.DisplayName())
			if len(c.Types) == 0 {
				buf.WriteString("    (no types)\n")
			}
			for _, t := range c.Types {
				fmt.Fprintf(&buf, "    %s  %s\n", t.ID, sanitize.Text(t.Name))
			}
		}
		return buf.Bytes(), nil
	}
}

// History renders journaled batches, newest first as given.
func History(records []*models.BatchRecord, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		out := make([]batchJSON, len(records))
		for i, r := range records {
			out[i] = newBatchJSON(r)
		}
		return shared.MarshalJSON(out, true)
	case FormatCSV:
		rows := make([][]string, len(records))
		for i, r := range records {
			rows[i] = []string{strconv.Itoa(r.Sequence()), r.ID(), r.Transport(), strconv.Itoa(r.Total()),
				strconv.Itoa(r.Succeeded()), strconv.Itoa(r.Failed()), strconv.FormatBool(r.Canceled()),
				r.StartedAt().UTC().Format(time.RFC3339), finished(r.FinishedAt())}
		}
		return toCSV([]string{"Sequence", "ID", "Transport", "Total", "Succeeded", "Failed", "Canceled", "Started", "Finished"}, rows)
	case FormatMarkdown:
		var buf bytes.Buffer
		buf.WriteString("| # | Batch | Transport | Uploaded | Failed | Started | Status |\n|---|---|---|---|---|---|---|\n")
		for _, r := range records {
			fmt.Fprintf(&buf, "| %d | %s | %s | %d/%d | %d | %s | %s |\n",
				r.Sequence(), r.ID(), r.Transport(), r.Succeeded(), r.Total(), r.Failed(), r.StartedAt().Local().Format(timeLayout), batchStatus(r))
		}
		return buf.Bytes(), nil
	default:
		if len(records) == 0 {
			return []byte("No uploads recorded\n"), nil
		}
		var buf bytes.Buffer
		for _, r := range records {
			fmt.Fprintf(&buf, "#%-4d %s  %-8s %d/%d uploaded, %d failed  %s  %s\n",
				r.Sequence(), r.ID(), r.Transport(), r.Succeeded(), r.Total(), r.Failed(), r.StartedAt().Local().Format(timeLayout), batchStatus(r))
		}
		return buf.Bytes(), nil
	}
}

// BatchDetail renders one journaled batch with its items.
func BatchDetail(r *models.BatchRecord, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return shared.MarshalJSON(newBatchJSON(r), true)
	case FormatCSV:
		rows := make([][]string, len(r.Items()))
		for i, item := range r.Items() {
			rows[i] = []string{strconv.Itoa(item.Position + 1), sanitize.Text(item.Name), item.Kind,
				strconv.FormatInt(item.SizeBytes, 10), item.State, item.ResultRef, item.ErrorMessage}
		}
		return toCSV([]string{"Position", "Name", "Kind", "Size", "State", "Result", "Error"}, rows)
	}

	escape := func(s string) string { return s }
	var buf bytes.Buffer
	if f == FormatMarkdown {
		escape = html.EscapeString
		fmt.Fprintf(&buf, "# Batch #%d\n\n", r.Sequence())
	} else {
		fmt.Fprintf(&buf, "Batch #%d\n", r.Sequence())
	}
	fmt.Fprintf(&buf, "ID: %s\nTransport: %s\nStarted: %s\nStatus: %s\n\n",
		r.ID(), r.Transport(), r.StartedAt().Local().Format(timeLayout), batchStatus(r))
	for _, item := range r.Items() {
		line := fmt.Sprintf("%d. %s (%s, %s) %s", item.Position+1, escape(sanitize.Text(item.Name)), item.Kind, shared.FormatBytes(item.SizeBytes), item.State)
		switch {
		case item.ErrorMessage != "":
			line += ": " + escape(item.ErrorMessage)
		case item.ResultRef != "":
			line += " → " + escape(item.ResultRef)
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes(), nil
}

// BatchResult renders a batch that just finished.
func BatchResult(b *tasks.Batch, f Format) ([]byte, error) {
	items := make([]tasks.ItemSnapshot, len(b.Items))
	for i, item := range b.Items {
		items[i] = item.Snapshot()
	}

	switch f {
	case FormatJSON:
		return shared.MarshalJSON(struct {
			ID        string               `json:"id"`
			Transport string               `json:"transport"`
			Summary   tasks.BatchSummary   `json:"summary"`
			Elapsed   string               `json:"elapsed"`
			Items     []tasks.ItemSnapshot `json:"items"`
		}{b.ID, b.Transport, b.Summary, b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond).String(), items}, true)
	case FormatCSV:
		rows := make([][]string, len(items))
		for i, s := range items {
			rows[i] = []string{s.ID, sanitize.Text(s.Name), s.Kind, strconv.FormatInt(s.SizeBytes, 10), s.State, s.ResultRef, s.ErrorMessage}
		}
		return toCSV([]string{"ID", "Name", "Kind", "Size", "State", "Result", "Error"}, rows)
	}

	escape := func(s string) string { return s }
	var buf bytes.Buffer
	if f == FormatMarkdown {
		escape = html.EscapeString
		fmt.Fprintf(&buf, "## Batch %s\n\n", b.ID)
	}
	fmt.Fprintf(&buf, "%d of %d files uploaded", b.Summary.Succeeded, b.Summary.Total)
	if b.Summary.Failed > 0 {
		fmt.Fprintf(&buf, ", %d failed", b.Summary.Failed)
	}
	if b.Canceled {
		buf.WriteString(" (canceled)")
	}
	buf.WriteString("\n")
	for _, item := range b.Failures() {
		fmt.Fprintf(&buf, "  - %s: %s\n", escape(sanitize.Text(item.Name())), escape(item.ErrorMessage()))
	}
	return buf.Bytes(), nil
}

// WriteExport writes rendered output to path. An empty path is a no-op.
func WriteExport(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

type batchJSON struct {
	Sequence   int                 `json:"sequence"`
	ID         string              `json:"id"`
	Transport  string              `json:"transport"`
	Total      int                 `json:"total"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Canceled   bool                `json:"canceled"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Items      []models.ItemRecord `json:"items,omitempty"`
}

func newBatchJSON(r *models.BatchRecord) batchJSON {
	return batchJSON{
		Sequence:   r.Sequence(),
		ID:         r.ID(),
		Transport:  r.Transport(),
		Total:      r.Total(),
		Succeeded:  r.Succeeded(),
		Failed:     r.Failed(),
		Canceled:   r.Canceled(),
		StartedAt:  r.StartedAt(),
		FinishedAt: r.FinishedAt(),
		Items:      r.Items(),
	}
}

func safeDocuments(docs []models.LegalDocument) []models.LegalDocument {
	out := make([]models.LegalDocument, len(docs))
	for i, d := range docs {
		d.Title = d.SafeTitle()
		d.Content = d.SafeContent()
		out[i] = d
	}
	return out
}

func safePlans(plans []models.SubscriptionPlan) []models.SubscriptionPlan {
	out := make([]models.SubscriptionPlan, len(plans))
	for i, p := range plans {
		p.Title = sanitize.Text(p.Title)
		p.Description = p.SafeDescription()
		p.Features = p.SafeFeatures()
		out[i] = p
	}
	return out
}

func safeUsers(users []models.User) []models.User {
	out := make([]models.User, len(users))
	for i, u := range users {
		u.Name = sanitize.Text(u.Name)
		u.Email = sanitize.Text(u.Email)
		u.Role = sanitize.Text(u.Role)
		out[i] = u
	}
	return out
}

func toCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return buf.Bytes(), nil
}

// inline renders untrusted text for Markdown output, where surviving markup would be live.
func inline(s string) string { return sanitize.PlainHTML(s) }

// cell escapes pipes so a value cannot break a Markdown table row.
func cell(s string) string { return strings.ReplaceAll(s, "|", `\|`) }

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func planLabel(p models.SubscriptionPlan) string {
	label := activeLabel(p.IsActive)
	if p.IsDefault {
		label += ", default"
	}
	return label
}

func statsLine(s models.UserStats) string {
	return fmt.Sprintf("Total: %d • Active: %d • Expired: %d • Expiring soon: %d • No subscription: %d",
		s.Total, s.Active, s.Expired, s.ExpiringSoon, s.NoSubscription)
}

func batchStatus(r *models.BatchRecord) string {
	switch {
	case !r.Finished():
		return "in progress"
	case r.Canceled():
		return "canceled"
	case r.Failed() > 0:
		return "finished with failures"
	default:
		return "finished"
	}
}

func created(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}

func finished(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
