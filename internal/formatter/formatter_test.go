package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	th "github.com/desertthunder/mediadesk/internal/testing"
)

const hostile = `<p>Welcome</p><script>alert("x")</script><img src=x onerror="steal()">`

func sampleDocuments() []models.LegalDocument {
	return []models.LegalDocument{
		{ID: "d1", Title: "Terms <b>v1</b>", Content: hostile, Version: "1.0", EffectiveDate: "2024-01-01"},
		{ID: "d2", Title: "Terms | v2", Content: "<p>Second <strong>version</strong></p>", Version: "1.1", EffectiveDate: "2024-06-01", IsActive: true},
	}
}

func assertSafe(t *testing.T, out []byte) {
	t.Helper()
	for _, bad := range []string{"<script", "onerror", "alert(", "<img"} {
		if strings.Contains(string(out), bad) {
			t.Errorf("output contains %q:\n%s", bad, out)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "TEXT", want: FormatText},
		{in: "md", want: FormatMarkdown},
		{in: "markdown", want: FormatMarkdown},
		{in: "csv", want: FormatCSV},
		{in: " json ", want: FormatJSON},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestDocuments(t *testing.T) {
	docs := sampleDocuments()

	for _, f := range Formats {
		t.Run(string(f)+" is sanitized", func(t *testing.T) {
			out, err := Documents(docs, f)
			if err != nil {
				t.Fatalf("Documents() error = %v", err)
			}
			assertSafe(t, out)
		})
	}

	t.Run("text", func(t *testing.T) {
		out, _ := Documents(docs, FormatText)
		for _, want := range []string{"d1  v1.0", "[inactive]", "[active]", "Terms v1", "Welcome"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("markdown escapes pipes", func(t *testing.T) {
		out, _ := Documents(docs, FormatMarkdown)
		if !strings.Contains(string(out), `Terms \| v2`) {
			t.Errorf("expected escaped pipe, got:\n%s", out)
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, _ := Documents(docs, FormatCSV)
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) != 3 || lines[0] != "ID,Title,Version,Effective,Active,Excerpt" {
			t.Errorf("unexpected CSV:\n%s", out)
		}
	})

	t.Run("json keeps sanitized markup", func(t *testing.T) {
		out, _ := Documents(docs, FormatJSON)
		var decoded []models.LegalDocument
		if err := json.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded[0].Content != "<p>Welcome</p>" {
			t.Errorf("expected sanitized content, got %q", decoded[0].Content)
		}
		if docs[0].Content != hostile {
			t.Error("input documents must not be modified")
		}
	})

	t.Run("empty", func(t *testing.T) {
		out, _ := Documents(nil, FormatText)
		if string(out) != "No documents found\n" {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestDocument(t *testing.T) {
	doc := sampleDocuments()[0]

	t.Run("markdown keeps allowed markup", func(t *testing.T) {
		out, _ := Document(doc, FormatMarkdown)
		assertSafe(t, out)
		if !strings.Contains(string(out), "<p>Welcome</p>") || !strings.HasPrefix(string(out), "# Terms v1") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
	})

	t.Run("text strips markup", func(t *testing.T) {
		out, _ := Document(doc, FormatText)
		assertSafe(t, out)
		if strings.Contains(string(out), "<p>") {
			t.Errorf("expected plain text, got:\n%s", out)
		}
	})
}

func TestPlans(t *testing.T) {
	plan := *models.NewSubscriptionPlan("Premium <i>Plus</i>")
	plan.ID = "p1"
	plan.MonthlyCost = 9.99
	plan.AnnualCost = 99
	plan.IsDefault = true
	plan.Description = hostile
	plan.Features = []string{"Offline <script>x()</script>listening", "<b></b>", "HD audio"}

	t.Run("listing", func(t *testing.T) {
		out, _ := Plans([]models.SubscriptionPlan{plan}, FormatText)
		for _, want := range []string{"Premium Plus", "$9.99/mo", "$99.00/yr", "active, default"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("detail", func(t *testing.T) {
		for _, f := range Formats {
			out, err := Plan(plan, f)
			if err != nil {
				t.Fatalf("Plan(%s) error = %v", f, err)
			}
			assertSafe(t, out)
		}

		out, _ := Plan(plan, FormatMarkdown)
		if !strings.Contains(string(out), "- HD audio") || strings.Count(string(out), "\n- ") != 2 {
			t.Errorf("expected two features, got:\n%s", out)
		}
	})
}

func TestUsers(t *testing.T) {
	joined := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	users := []models.User{
		{ID: "u1", Name: "<b>Ana</b>", Email: "ana@example.com", Role: "user", SubscriptionStatus: models.StatusActive, DaysRemaining: 3, CreatedAt: &joined},
		{ID: "u2", Email: "bo@example.com", Role: "admin", SubscriptionStatus: models.StatusNoSubscription},
	}

	t.Run("text", func(t *testing.T) {
		out, _ := Users(users, FormatText)
		for _, want := range []string{"Ana", "N/A", "(3 days left)", "Total: 2 • Active: 1", "Expiring soon: 1"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, _ := Users(users, FormatCSV)
		if !strings.Contains(string(out), "u1,Ana,ana@example.com,user,Active,3,2024-03-01") {
			t.Errorf("unexpected CSV:\n%s", out)
		}
	})

	t.Run("json includes stats", func(t *testing.T) {
		out, _ := Users(users, FormatJSON)
		var decoded struct {
			Users []models.User    `json:"users"`
			Stats models.UserStats `json:"stats"`
		}
		if err := json.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Stats.Total != 2 || decoded.Users[0].Name != "Ana" {
			t.Errorf("unexpected JSON %+v", decoded)
		}
	})
}

func sampleRecord() *models.BatchRecord {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := models.NewBatchRecord("b1", "api", 2, started)
	r.SetSequence(7)
	r.SetCounts(1, 1)
	r.Finish(started.Add(time.Minute), false)
	r.SetItems([]models.ItemRecord{
		{BatchID: "b1", ItemID: "a.mp3#0", Position: 0, Name: "a.mp3", Kind: "audio", SizeBytes: 2048, State: "success", ResultRef: "/uploads/a.mp3"},
		{BatchID: "b1", ItemID: "b.mp3#1", Position: 1, Name: "b.mp3", Kind: "audio", SizeBytes: 10, State: "error", ErrorMessage: "Invalid audio file"},
	})
	return r
}

func TestHistory(t *testing.T) {
	records := []*models.BatchRecord{sampleRecord(), models.NewBatchRecord("b2", "storage", 3, time.Now())}

	t.Run("text", func(t *testing.T) {
		out, _ := History(records, FormatText)
		for _, want := range []string{"#7", "1/2 uploaded, 1 failed", "finished with failures", "in progress"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, _ := History(records, FormatCSV)
		if !strings.Contains(string(out), "7,b1,api,2,1,1,false,2024-05-01T10:00:00Z,2024-05-01T10:01:00Z") {
			t.Errorf("unexpected CSV:\n%s", out)
		}
	})

	t.Run("detail", func(t *testing.T) {
		out, _ := BatchDetail(sampleRecord(), FormatText)
		for _, want := range []string{"Batch #7", "1. a.mp3 (audio, 2 KB) success → /uploads/a.mp3", "2. b.mp3 (audio, 10 Bytes) error: Invalid audio file"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		out, _ := History(nil, FormatText)
		if string(out) != "No uploads recorded\n" {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestBatchResult(t *testing.T) {
	transport := &th.ScriptedTransport{Script: map[string]th.Step{
		"b.mp3": {Err: &shared.APIError{StatusCode: 400, Message: "Invalid audio file"}},
	}}
	uploader := tasks.NewUploader(transport, nil, shared.NewLogger(io.Discard), tasks.UploadOpts{TokenSource: th.StaticToken("t")})
	batch, err := uploader.Run(context.Background(), th.MemFiles("a.mp3", "b.mp3"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out, _ := BatchResult(batch, FormatText)
	if !strings.Contains(string(out), "1 of 2 files uploaded, 1 failed") || !strings.Contains(string(out), "- b.mp3: Invalid audio file") {
		t.Errorf("unexpected result:\n%s", out)
	}

	out, _ = BatchResult(batch, FormatJSON)
	var decoded struct {
		Summary tasks.BatchSummary   `json:"summary"`
		Items   []tasks.ItemSnapshot `json:"items"`
	}
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Summary.Succeeded != 1 || len(decoded.Items) != 2 || decoded.Items[1].State != "error" {
		t.Errorf("unexpected JSON %+v", decoded)
	}
}

func TestCategories(t *testing.T) {
	categories := []models.Category{
		{ID: "c1", Name: "Sleep <b>deep</b>", Types: []models.CategoryType{{ID: "t1", Name: "Binaural"}, {ID: "t2", Name: "Soundscape"}}},
		{ID: "c2", Name: "&lt;img src=x onerror=alert(1)&gt;"},
	}

	t.Run("text", func(t *testing.T) {
		out, _ := Categories(categories, FormatText)
		for _, want := range []string{"c1  Sleep deep", "    t2  Soundscape", "(no types)"} {
			if !strings.Contains(string(out), want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("markdown", func(t *testing.T) {
		out, _ := Categories(categories, FormatMarkdown)
		if !strings.Contains(string(out), "| Sleep deep | c1 | Binaural, Soundscape |") {
			t.Errorf("unexpected markdown:\n%s", out)
		}
		if strings.Contains(string(out), "<img") {
			t.Errorf("markdown contains live markup:\n%s", out)
		}
	})

	t.Run("csv", func(t *testing.T) {
		out, _ := Categories(categories, FormatCSV)
		if !strings.Contains(string(out), `c1,Sleep deep,"Binaural, Soundscape"`) {
			t.Errorf("unexpected CSV:\n%s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		out, _ := Categories(categories, FormatJSON)
		var decoded []models.Category
		if err := json.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded[0].Name != "Sleep deep" || len(decoded[0].Types) != 2 {
			t.Errorf("unexpected JSON %+v", decoded)
		}
		if categories[0].Name != "Sleep <b>deep</b>" {
			t.Error("input categories must not be modified")
		}
	})

	t.Run("empty", func(t *testing.T) {
		out, _ := Categories(nil, FormatText)
		if string(out) != "No categories found\n" {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestMarkdownEncodedMarkup(t *testing.T) {
	const img, script = "&lt;img src=x onerror=alert(1)&gt;", "&lt;script&gt;alert(1)&lt;/script&gt;"

	assertInert := func(t *testing.T, out []byte, want string) {
		t.Helper()
		for _, bad := range []string{"<img", "<script"} {
			if strings.Contains(string(out), bad) {
				t.Errorf("markdown contains live %q:\n%s", bad, out)
			}
		}
		if !strings.Contains(string(out), want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	t.Run("document", func(t *testing.T) {
		doc := models.LegalDocument{ID: "d1", Title: img, Version: script, Content: "<p>ok</p>"}

		out, _ := Document(doc, FormatMarkdown)
		assertInert(t, out, "# "+img)
		if !strings.Contains(string(out), "<p>ok</p>") {
			t.Errorf("expected sanitized content kept:\n%s", out)
		}

		out, _ = Documents([]models.LegalDocument{doc}, FormatMarkdown)
		assertInert(t, out, "| "+img+" |")
	})

	t.Run("plan", func(t *testing.T) {
		plan := models.SubscriptionPlan{ID: "p1", Title: img, Description: script, Features: []string{script}}

		out, _ := Plan(plan, FormatMarkdown)
		assertInert(t, out, "- "+script)
		if !strings.HasPrefix(string(out), "# "+img) {
			t.Errorf("expected escaped heading:\n%s", out)
		}

		out, _ = Plans([]models.SubscriptionPlan{plan}, FormatMarkdown)
		assertInert(t, out, "| "+img+" |")
	})

	t.Run("users", func(t *testing.T) {
		out, _ := Users([]models.User{{ID: "u1", Name: img, Email: "a@example.com", Role: script}}, FormatMarkdown)
		assertInert(t, out, "| "+img+" |")
	})

	t.Run("text keeps decoded characters", func(t *testing.T) {
		out, _ := Plan(models.SubscriptionPlan{Title: "Tom &amp; Jerry", Features: []string{"a &lt; b"}}, FormatText)
		if !strings.Contains(string(out), "Tom & Jerry") || !strings.Contains(string(out), "  - a < b") {
			t.Errorf("unexpected text:\n%s", out)
		}
	})
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")

	if err := WriteExport(path, []byte("ID\n")); err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}
	th.AssertFileExists(t, path)
	if got := th.MustReadFile(t, path); got != "ID\n" {
		t.Errorf("unexpected file content %q", got)
	}

	if err := WriteExport("", []byte("ignored")); err != nil {
		t.Errorf("expected no-op for empty path, got %v", err)
	}
	if err := WriteExport(filepath.Join(t.TempDir(), "missing", "out.csv"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}
