package watcher

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	tu "github.com/desertthunder/mediadesk/internal/testing"
	"github.com/fsnotify/fsnotify"
)

// batchRecorder collects the file names of each batch. Files named in failing end in the failed state.
type batchRecorder struct {
	mu      sync.Mutex
	batches [][]string
	signal  chan struct{}
	err     error
	failing map[string]bool
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{signal: make(chan struct{}, 16)}
}

func (b *batchRecorder) record(ctx context.Context, files []tasks.FileRef) (*tasks.Batch, error) {
	names := make([]string, len(files))
	batch := &tasks.Batch{ID: "watched"}
	for i, f := range files {
		names[i] = f.Name()
		item := tasks.NewUploadItem(f, i)
		item.Start()
		if b.failing[f.Name()] {
			item.Fail("server rejected file")
		} else {
			item.Succeed("/uploads/" + f.Name())
		}
		batch.Items = append(batch.Items, item)
	}
	b.mu.Lock()
	b.batches = append(b.batches, names)
	b.mu.Unlock()
	b.signal <- struct{}{}
	if b.err != nil {
		return nil, b.err
	}
	return batch, nil
}

func (b *batchRecorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-b.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.batches[len(b.batches)-1]
}

func (b *batchRecorder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
	// let the watcher register the directory before files appear
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher(t *testing.T) {
	extensions := shared.DefaultConfig().Upload.Extensions

	t.Run("debounces files into one batch", func(t *testing.T) {
		dir := t.TempDir()
		rec := newBatchRecorder()
		start(t, New(dir, rec.record, shared.NewLogger(io.Discard), Options{Extensions: extensions, Quiet: 200 * time.Millisecond}))

		tu.MustWriteFile(t, filepath.Join(dir, "b.mp3"), "bbb")
		tu.MustWriteFile(t, filepath.Join(dir, "a.wav"), "aaa")
		tu.MustWriteFile(t, filepath.Join(dir, "notes.txt"), "ignored")

		got := rec.wait(t)
		if !slices.Equal(got, []string{"a.wav", "b.mp3"}) {
			t.Errorf("unexpected batch %v", got)
		}
	})

	t.Run("changed files are sent again", func(t *testing.T) {
		dir := t.TempDir()
		rec := newBatchRecorder()
		start(t, New(dir, rec.record, shared.NewLogger(io.Discard), Options{Extensions: extensions, Quiet: 100 * time.Millisecond}))

		path := filepath.Join(dir, "a.mp3")
		tu.MustWriteFile(t, path, "first")
		rec.wait(t)

		tu.MustWriteFile(t, path, "second version")
		if got := rec.wait(t); !slices.Equal(got, []string{"a.mp3"}) {
			t.Errorf("expected changed file to be re-sent, got %v", got)
		}
	})

	t.Run("existing files", func(t *testing.T) {
		dir := t.TempDir()
		tu.MustWriteFile(t, filepath.Join(dir, "old.flac"), "data")
		tu.MustWriteFile(t, filepath.Join(dir, "empty.mp3"), "")

		rec := newBatchRecorder()
		start(t, New(dir, rec.record, shared.NewLogger(io.Discard), Options{Extensions: extensions, Quiet: 50 * time.Millisecond, IncludeExisting: true}))

		if got := rec.wait(t); !slices.Equal(got, []string{"old.flac"}) {
			t.Errorf("unexpected batch %v", got)
		}
	})

	t.Run("batch errors keep the watcher running", func(t *testing.T) {
		dir := t.TempDir()
		rec := newBatchRecorder()
		rec.err = errors.New("upstream down")
		start(t, New(dir, rec.record, shared.NewLogger(io.Discard), Options{Quiet: 50 * time.Millisecond}))

		tu.MustWriteFile(t, filepath.Join(dir, "one.mp3"), "1")
		rec.wait(t)
		tu.MustWriteFile(t, filepath.Join(dir, "two.mp3"), "2")
		rec.wait(t)

		if rec.count() != 2 {
			t.Errorf("expected 2 batches, got %d", rec.count())
		}
	})

	t.Run("unchanged files are skipped", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "a.mp3")
		tu.MustWriteFile(t, path, "data")

		rec := newBatchRecorder()
		w := New(dir, rec.record, shared.NewLogger(io.Discard), Options{})
		for range 2 {
			w.pending[path] = struct{}{}
			w.flush(context.Background())
		}

		if rec.count() != 1 {
			t.Errorf("expected 1 batch, got %d", rec.count())
		}
	})

	t.Run("failed files rejoin the next batch", func(t *testing.T) {
		dir := t.TempDir()
		bad, good := filepath.Join(dir, "bad.mp3"), filepath.Join(dir, "good.mp3")
		tu.MustWriteFile(t, bad, "data")
		tu.MustWriteFile(t, good, "data")

		rec := newBatchRecorder()
		rec.failing = map[string]bool{"bad.mp3": true}
		w := New(dir, rec.record, shared.NewLogger(io.Discard), Options{})

		w.pending[bad] = struct{}{}
		w.pending[good] = struct{}{}
		w.flush(context.Background())

		if _, ok := w.seen[bad]; ok {
			t.Error("expected failed file not to be marked as seen")
		}
		if _, ok := w.pending[bad]; !ok {
			t.Error("expected failed file to be queued again")
		}

		rec.failing = nil
		w.pending[good] = struct{}{}
		w.flush(context.Background())

		if got := rec.wait(t); !slices.Equal(got, []string{"bad.mp3"}) {
			t.Errorf("expected only the failed file to be retried, got %v", got)
		}
		if rec.count() != 2 || len(w.pending) != 0 {
			t.Errorf("expected 2 batches and nothing pending, got %d and %v", rec.count(), w.pending)
		}
	})

	t.Run("removed files are dropped", func(t *testing.T) {
		w := New(t.TempDir(), newBatchRecorder().record, shared.NewLogger(io.Discard), Options{})

		if !w.handle(fsnotify.Event{Name: "x.mp3", Op: fsnotify.Create}) {
			t.Error("expected create to restart the debounce window")
		}
		w.handle(fsnotify.Event{Name: "x.mp3", Op: fsnotify.Remove})
		if len(w.pending) != 0 {
			t.Errorf("expected no pending files, got %v", w.pending)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		w := New(filepath.Join(t.TempDir(), "nope"), newBatchRecorder().record, shared.NewLogger(io.Discard), Options{})
		if err := w.Run(context.Background()); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
