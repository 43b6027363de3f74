// Package watcher turns files dropped into a directory into upload batches.
//
// Filesystem events are debounced: a batch is cut only after the directory has been quiet for [Options.Quiet], so a
// file still being copied is not picked up half-written. Batches run one at a time on the watcher goroutine; events
// that arrive meanwhile queue up and form the next batch. A file is uploaded again only if its size or modification
// time changed since it last uploaded successfully; files whose upload failed rejoin the next batch.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/fsnotify/fsnotify"
)

const defaultQuiet = 2 * time.Second

// BatchFunc receives each debounced selection and returns the finished batch. Errors are logged; the watcher keeps
// running.
type BatchFunc func(ctx context.Context, files []tasks.FileRef) (*tasks.Batch, error)

// Options tune a [Watcher].
type Options struct {
	Extensions      []string      // Accepted extensions; empty accepts everything
	Quiet           time.Duration // Debounce window (default: 2s)
	IncludeExisting bool          // Treat files already in the directory as the first batch
}

// Watcher watches one directory (not recursively).
type Watcher struct {
	dir     string
	onBatch BatchFunc
	logger  *log.Logger
	opts    Options

	pending map[string]struct{}
	seen    map[string]fileStamp
}

// fileStamp identifies one version of a file.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func New(dir string, onBatch BatchFunc, logger *log.Logger, opts Options) *Watcher {
	if opts.Quiet <= 0 {
		opts.Quiet = defaultQuiet
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		dir:     dir,
		onBatch: onBatch,
		logger:  logger,
		opts:    opts,
		pending: make(map[string]struct{}),
		seen:    make(map[string]fileStamp),
	}
}

// Run watches until ctx is canceled. It returns an error only if the directory cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", w.dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for uploads", "dir", w.dir, "quiet", w.opts.Quiet, "extensions", w.opts.Extensions)

	timer := time.NewTimer(w.opts.Quiet)
	timer.Stop()
	defer timer.Stop()
	var quiet <-chan time.Time

	if w.opts.IncludeExisting {
		if err := w.queueExisting(); err != nil {
			return err
		}
		if len(w.pending) > 0 {
			timer.Reset(w.opts.Quiet)
			quiet = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped", "dir", w.dir, "unsent", len(w.pending))
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.opts.Quiet)
				quiet = timer.C
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "dir", w.dir, "error", err)

		case <-quiet:
			quiet = nil
			w.flush(ctx)
		}
	}
}

// handle records event and reports whether the debounce window should restart.
func (w *Watcher) handle(event fsnotify.Event) bool {
	w.logger.Debug("event", "op", event.Op.String(), "path", event.Name)

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if !tasks.Accepts(event.Name, w.opts.Extensions) {
			return false
		}
		w.pending[event.Name] = struct{}{}
		return true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
		delete(w.seen, event.Name)
	}
	return false
}

func (w *Watcher) queueExisting() error {
	files, err := tasks.CollectFiles([]string{w.dir}, w.opts.Extensions)
	if err != nil {
		return err
	}
	for _, f := range files {
		w.pending[f.(*tasks.LocalFile).Path] = struct{}{}
	}
	return nil
}

// flush hands every pending, non-empty, changed file to onBatch in name order.
func (w *Watcher) flush(ctx context.Context) {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	slices.Sort(paths)

	var files []tasks.FileRef
	stamps := make(map[string]fileStamp, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() == 0 {
			w.logger.Warn("skipping empty file", "path", p)
			continue
		}
		stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
		if prev, ok := w.seen[p]; ok && prev == stamp {
			continue
		}

		f, err := tasks.NewLocalFile(p)
		if err != nil {
			w.logger.Warn("skipping file", "path", p, "error", err)
			continue
		}
		stamps[p] = stamp
		files = append(files, f)
	}
	if len(files) == 0 {
		return
	}

	w.logger.Info("directory quiet, starting batch", "dir", w.dir, "files", len(files), "first", filepath.Base(paths[0]))
	batch, err := w.onBatch(ctx, files)
	if err != nil {
		w.logger.Error("watched batch failed", "dir", w.dir, "error", err)
	}
	w.settle(files, batch, stamps)
}

// settle marks succeeded files as seen and queues every other file for the next batch.
func (w *Watcher) settle(files []tasks.FileRef, batch *tasks.Batch, stamps map[string]fileStamp) {
	succeeded := make(map[tasks.FileRef]bool, len(files))
	if batch != nil {
		for _, item := range batch.Items {
			succeeded[item.Source] = item.State() == tasks.Succeeded
		}
	}

	for _, f := range files {
		p := f.(*tasks.LocalFile).Path
		if succeeded[f] {
			w.seen[p] = stamps[p]
			continue
		}
		w.pending[p] = struct{}{}
	}
	if n := len(w.pending); n > 0 {
		w.logger.Warn("files will be retried with the next batch", "dir", w.dir, "files", n)
	}
}
