package tasks_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	tu "github.com/desertthunder/mediadesk/internal/testing"
	"golang.org/x/oauth2"
)

// eventLog collects events in emission order.
type eventLog struct {
	mu     sync.Mutex
	events []tasks.ProgressUpdate
}

func (l *eventLog) add(u tasks.ProgressUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, u)
}

func (l *eventLog) all() []tasks.ProgressUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]tasks.ProgressUpdate(nil), l.events...)
}

func quietLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}

type harness struct {
	transport *tu.ScriptedTransport
	notifier  *tu.RecordingNotifier
	events    *eventLog
	refreshes int
	uploader  *tasks.Uploader
}

func newHarness(script map[string]tu.Step, opts tasks.UploadOpts) *harness {
	h := &harness{
		transport: &tu.ScriptedTransport{Script: script},
		notifier:  &tu.RecordingNotifier{},
		events:    &eventLog{},
	}
	opts.OnEvent = h.events.add
	opts.Refresh = func() { h.refreshes++ }
	if opts.TokenSource == nil {
		opts.TokenSource = tu.StaticToken("admin-token")
	}
	h.uploader = tasks.NewUploader(h.transport, h.notifier, quietLogger(), opts)
	return h
}

func TestUploaderRun(t *testing.T) {
	t.Run("isolation of a failing item", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{
			"b.mp3": {Progress: []int{30}, Err: &shared.APIError{StatusCode: 400, Message: "Invalid audio file"}},
		}, tasks.UploadOpts{})

		batch, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3", "c.mp3"))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		want := tasks.BatchSummary{BatchID: batch.ID, Total: 3, Succeeded: 2, Failed: 1}
		if batch.Summary != want {
			t.Errorf("summary = %+v, want %+v", batch.Summary, want)
		}
		for _, i := range []int{0, 2} {
			item := batch.Items[i]
			if item.State() != tasks.Succeeded {
				t.Errorf("item %d: expected Succeeded, got %v", i, item.State())
			}
			if want := "/uploads/" + item.Name(); item.ResultRef() != want {
				t.Errorf("item %d: result ref %q, want %q", i, item.ResultRef(), want)
			}
		}
		failed := batch.Items[1]
		if failed.State() != tasks.Failed || failed.ErrorMessage() != "Invalid audio file" {
			t.Errorf("unexpected failed item %+v", failed.Snapshot())
		}
		if len(batch.Failures()) != 1 {
			t.Errorf("expected 1 failure, got %d", len(batch.Failures()))
		}
	})

	t.Run("exactly one terminal field and conservation", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{
			"2.wav": {Err: errors.New("connection reset")},
			"4.wav": {Err: &shared.APIError{StatusCode: 413}},
			"5.wav": {Panic: "boom"},
		}, tasks.UploadOpts{})

		batch, err := h.uploader.Run(context.Background(), tu.MemFiles("1.wav", "2.wav", "3.wav", "4.wav", "5.wav"))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got := batch.Summary.Succeeded + batch.Summary.Failed; got != batch.Summary.Total {
			t.Errorf("succeeded+failed = %d, want %d", got, batch.Summary.Total)
		}
		for _, item := range batch.Items {
			switch item.State() {
			case tasks.Succeeded:
				if item.ResultRef() == "" || item.ErrorMessage() != "" {
					t.Errorf("%s: succeeded item must have only a result ref", item.ID)
				}
			case tasks.Failed:
				if item.ResultRef() != "" || item.ErrorMessage() == "" {
					t.Errorf("%s: failed item must have only an error message", item.ID)
				}
			default:
				t.Errorf("%s: not terminal: %v", item.ID, item.State())
			}
		}
		if msg := batch.Items[3].ErrorMessage(); !strings.Contains(msg, "too large") {
			t.Errorf("413 should map to a size message, got %q", msg)
		}
		if msg := batch.Items[4].ErrorMessage(); !strings.Contains(msg, "boom") {
			t.Errorf("panic should be recorded on the item, got %q", msg)
		}
	})

	t.Run("monotonic progress events and ordering", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{
			"a.mp3": {Progress: []int{10, 50, 30, 100, 99}, Ref: "ref-a"},
			"b.mp3": {Progress: []int{20, 20, 80}, Ref: "ref-b"},
		}, tasks.UploadOpts{})

		if _, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		last := map[string]int{}
		var order []string
		for _, ev := range h.events.all() {
			if ev.Event == tasks.ItemProgress {
				if ev.Percent < last[ev.ItemID] {
					t.Errorf("%s progress regressed from %d to %d", ev.ItemID, last[ev.ItemID], ev.Percent)
				}
				if ev.Percent > 99 {
					t.Errorf("%s reported %d%% before success", ev.ItemID, ev.Percent)
				}
				last[ev.ItemID] = ev.Percent
			}
			order = append(order, fmt.Sprintf("%s:%s:%s", ev.Event, ev.ItemID, ev.State))
		}

		want := []string{
			"item_state_changed:a.mp3#1:uploading",
			"item_progress:a.mp3#1:uploading",
			"item_progress:a.mp3#1:uploading",
			"item_progress:a.mp3#1:uploading",
			"item_state_changed:a.mp3#1:success",
			"item_state_changed:b.mp3#2:uploading",
			"item_progress:b.mp3#2:uploading",
			"item_progress:b.mp3#2:uploading",
			"item_state_changed:b.mp3#2:success",
			"batch_completed::pending",
		}
		if strings.Join(order, "\n") != strings.Join(want, "\n") {
			t.Errorf("event order:\n%s\nwant:\n%s", strings.Join(order, "\n"), strings.Join(want, "\n"))
		}
	})

	t.Run("notifications per item then summary", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{"x.png": {Err: errors.New("nope")}}, tasks.UploadOpts{})

		if _, err := h.uploader.Run(context.Background(), tu.MemFiles("x.png", "y.png")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(h.notifier.Starts) != 1 || len(h.notifier.Starts[0].Items) != 2 {
			t.Fatalf("expected one start notification listing 2 items, got %+v", h.notifier.Starts)
		}
		if st := h.notifier.Starts[0].Items[0].State; st != "pending" {
			t.Errorf("items should be pending at start, got %s", st)
		}
		if len(h.notifier.Items) != 2 {
			t.Fatalf("expected 2 item notifications, got %d", len(h.notifier.Items))
		}
		if h.notifier.Items[0].Succeeded() || !h.notifier.Items[1].Succeeded() {
			t.Errorf("unexpected outcomes %+v", h.notifier.Items)
		}
		if h.notifier.Items[1].Kind != tasks.KindImage {
			t.Errorf("expected image kind, got %v", h.notifier.Items[1].Kind)
		}
		if len(h.notifier.Summaries) != 1 {
			t.Fatalf("expected 1 summary, got %d", len(h.notifier.Summaries))
		}
		if s := h.notifier.Summaries[0]; s.Total != 2 || s.Succeeded != 1 || s.Failed != 1 {
			t.Errorf("unexpected summary %+v", s)
		}
	})

	t.Run("metadata carries token and field", func(t *testing.T) {
		h := newHarness(nil, tasks.UploadOpts{Field: "track"})

		batch, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3"))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		meta := h.transport.Calls[0]
		if meta.Token != "admin-token" || meta.Field != "track" || meta.BatchID != batch.ID || meta.ItemID != "a.mp3#1" {
			t.Errorf("unexpected metadata %+v", meta)
		}
		if meta.Kind != tasks.KindAudio {
			t.Errorf("expected audio kind, got %v", meta.Kind)
		}
	})

	t.Run("panicking notifier does not stop the batch", func(t *testing.T) {
		transport := &tu.ScriptedTransport{}
		u := tasks.NewUploader(transport, tu.PanickingNotifier{}, quietLogger(), tasks.UploadOpts{TokenSource: tu.StaticToken("t")})

		batch, err := u.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3"))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if batch.Summary.Succeeded != 2 {
			t.Errorf("expected 2 successes, got %+v", batch.Summary)
		}
	})
}

func TestUploaderPreconditions(t *testing.T) {
	t.Run("empty selection", func(t *testing.T) {
		h := newHarness(nil, tasks.UploadOpts{})

		batch, err := h.uploader.Run(context.Background(), nil)
		if !errors.Is(err, shared.ErrEmptySelection) {
			t.Errorf("expected ErrEmptySelection, got %v", err)
		}
		if batch != nil {
			t.Error("expected no batch")
		}
		if h.transport.CallCount() != 0 {
			t.Error("transport must not be invoked")
		}
		if len(h.notifier.Summaries) != 0 || len(h.events.all()) != 0 {
			t.Error("no summary or events expected")
		}
		if h.refreshes != 0 {
			t.Error("refresh must not be called")
		}
	})

	tc := []struct {
		name   string
		source oauth2.TokenSource
	}{
		{name: "empty token", source: tu.StaticToken("")},
		{name: "expired token", source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(nil, tasks.UploadOpts{TokenSource: tt.source})

			_, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3"))
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
			if h.transport.CallCount() != 0 || len(h.events.all()) != 0 {
				t.Error("batch must not start")
			}
		})
	}

	t.Run("no token source", func(t *testing.T) {
		u := tasks.NewUploader(&tu.ScriptedTransport{}, nil, quietLogger(), tasks.UploadOpts{})
		if _, err := u.Run(context.Background(), tu.MemFiles("a.mp3")); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestUploaderRefresh(t *testing.T) {
	t.Run("all failing never refreshes", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{
			"a.mp3": {Err: errors.New("x")},
			"b.mp3": {Err: errors.New("y")},
		}, tasks.UploadOpts{})

		if _, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if h.refreshes != 0 {
			t.Errorf("expected no refresh, got %d", h.refreshes)
		}
	})

	t.Run("one success refreshes exactly once", func(t *testing.T) {
		h := newHarness(map[string]tu.Step{"a.mp3": {Err: errors.New("x")}}, tasks.UploadOpts{})

		if _, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3", "c.mp3")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if h.refreshes != 1 {
			t.Errorf("expected exactly one refresh, got %d", h.refreshes)
		}
	})

	t.Run("refresh runs after the summary", func(t *testing.T) {
		var order []string
		notifier := &summaryHook{onSummary: func() { order = append(order, "summary") }}
		u := tasks.NewUploader(&tu.ScriptedTransport{}, notifier, quietLogger(), tasks.UploadOpts{
			TokenSource: tu.StaticToken("t"),
			Refresh:     func() { order = append(order, "refresh") },
		})

		if _, err := u.Run(context.Background(), tu.MemFiles("a.mp3")); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if strings.Join(order, ",") != "summary,refresh" {
			t.Errorf("unexpected order %v", order)
		}
	})
}

type summaryHook struct{ onSummary func() }

func (s *summaryHook) NotifyItem(tasks.ItemOutcome) {}
func (s *summaryHook) NotifySummary(tasks.BatchSummary) { s.onSummary() }

func TestUploaderConcurrency(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("track-%02d.flac", i)
	}
	script := map[string]tu.Step{
		"track-03.flac": {Err: errors.New("bad")},
		"track-07.flac": {Err: errors.New("bad")},
	}
	h := newHarness(script, tasks.UploadOpts{Concurrency: 4})

	batch, err := h.uploader.Run(context.Background(), tu.MemFiles(names...))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if batch.Summary.Succeeded != 10 || batch.Summary.Failed != 2 {
		t.Errorf("unexpected summary %+v", batch.Summary)
	}
	for i, item := range batch.Items {
		if item.Name() != names[i] {
			t.Errorf("item %d out of input order: %s", i, item.Name())
		}
	}
	if h.transport.CallCount() != len(names) {
		t.Errorf("expected %d transport calls, got %d", len(names), h.transport.CallCount())
	}
	if h.refreshes != 1 {
		t.Errorf("expected one refresh, got %d", h.refreshes)
	}
}

func TestUploaderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := &tu.ScriptedTransport{Script: map[string]tu.Step{"b.mp3": {Block: true}}}
	events := &eventLog{}
	u := tasks.NewUploader(transport, nil, quietLogger(), tasks.UploadOpts{
		TokenSource: tu.StaticToken("t"),
		OnEvent: func(ev tasks.ProgressUpdate) {
			events.add(ev)
			if ev.Event == tasks.ItemStateChanged && ev.ItemID == "b.mp3#2" && ev.State == tasks.Uploading {
				cancel()
			}
		},
	})

	batch, err := u.Run(ctx, tu.MemFiles("a.mp3", "b.mp3", "c.mp3"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !batch.Canceled {
		t.Error("expected batch to be marked canceled")
	}
	if batch.Items[0].State() != tasks.Succeeded {
		t.Errorf("resolved item must be untouched, got %v", batch.Items[0].State())
	}
	for _, item := range batch.Items[1:] {
		if item.State() != tasks.Failed || item.ErrorMessage() != "upload canceled" {
			t.Errorf("%s: expected canceled failure, got %+v", item.ID, item.Snapshot())
		}
	}
	if batch.Summary.Succeeded+batch.Summary.Failed != 3 {
		t.Errorf("summary must still account for every item: %+v", batch.Summary)
	}
	if transport.CallCount() != 2 {
		t.Errorf("c.mp3 must not reach the transport, got %d calls", transport.CallCount())
	}
	all := events.all()
	if last := all[len(all)-1]; last.Event != tasks.BatchCompleted || !last.Canceled {
		t.Errorf("expected canceled completion event last, got %+v", last)
	}
}

func TestUploaderRateLimit(t *testing.T) {
	h := newHarness(nil, tasks.UploadOpts{RateLimit: 50})

	start := time.Now()
	if _, err := h.uploader.Run(context.Background(), tu.MemFiles("a.mp3", "b.mp3", "c.mp3")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected pacing between item starts, finished in %v", elapsed)
	}
}

func TestFailureMessage(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want string
	}{
		{name: "server message wins", err: &shared.APIError{StatusCode: 413, Message: "Max 50MB"}, want: "Max 50MB"},
		{name: "payload too large", err: &shared.APIError{StatusCode: 413}, want: "File is too large. Please try a smaller file."},
		{name: "unauthorized", err: &shared.APIError{StatusCode: 401}, want: "Session expired. Please log in again."},
		{name: "timeout", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: "Upload timeout. The file may be too large or the connection too slow."},
		{name: "canceled", err: context.Canceled, want: "upload canceled"},
		{name: "network", err: fmt.Errorf("%w: dial tcp", shared.ErrServiceUnavailable), want: "Network error. Please check your connection and try again."},
		{name: "other", err: errors.New("disk on fire"), want: "disk on fire"},
		{name: "nil", err: nil, want: ""},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tasks.FailureMessage(tt.err); got != tt.want {
				t.Errorf("FailureMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
