package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/metrics"
	"github.com/desertthunder/mediadesk/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const maxConcurrency = 8

// UploadOpts contains configuration for bulk uploads.
type UploadOpts struct {
	Transport   string             // Transport label for metrics and the journal (default: "api")
	Field       string             // Form field name sent in [Metadata] (default: "audio")
	Concurrency int                // Concurrent uploads (default: 1, max: 8)
	RateLimit   float64            // Item starts per second; 0 disables pacing
	TokenSource oauth2.TokenSource // Credential checked before the batch starts; required
	OnEvent     func(ProgressUpdate)
	Refresh     RefreshFunc
}

// Uploader runs batches of files through a [Transport].
type Uploader struct {
	transport Transport
	notifier  Notifier
	logger    *log.Logger
	opts      UploadOpts
}

// NewUploader creates an [Uploader]. A nil notifier discards outcomes.
func NewUploader(t Transport, n Notifier, logger *log.Logger, opts UploadOpts) *Uploader {
	if opts.Transport == "" {
		opts.Transport = "api"
	}
	if opts.Field == "" {
		opts.Field = "audio"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Concurrency > maxConcurrency {
		opts.Concurrency = maxConcurrency
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Uploader{transport: t, notifier: n, logger: logger, opts: opts}
}

// batchRun holds the state shared by the workers of one [Uploader.Run] call.
type batchRun struct {
	*Uploader
	batch *Batch
	token string

	mu sync.Mutex // serializes events, notifications and summary counters
}

// Run uploads files and returns the resolved batch.
//
// It fails only on precondition violations (empty selection, missing credential), before any item is created or
// any event emitted. Every per-item failure is recorded on the item and processing continues. When ctx ends,
// items that have not finished are failed as canceled and [Batch.Canceled] is set; the batch is still returned
// with a complete summary.
func (u *Uploader) Run(ctx context.Context, files []FileRef) (*Batch, error) {
	if len(files) == 0 {
		return nil, shared.ErrEmptySelection
	}
	if u.transport == nil {
		return nil, fmt.Errorf("%w: upload transport not configured", shared.ErrServiceUnavailable)
	}
	token, err := u.credential()
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:        shared.GenerateID(),
		Transport: u.opts.Transport,
		Items:     make([]*UploadItem, len(files)),
		Summary:   BatchSummary{Total: len(files)},
		StartedAt: time.Now(),
	}
	batch.Summary.BatchID = batch.ID
	for i, f := range files {
		batch.Items[i] = NewUploadItem(f, i)
	}

	r := &batchRun{Uploader: u, batch: batch, token: token}
	logger := shared.WithLogger(u.logger, "batch", batch.ID)
	logger.Info("starting upload batch", "files", len(files), "concurrency", u.opts.Concurrency, "transport", u.opts.Transport)
	metrics.BatchesStarted.WithLabelValues(u.opts.Transport).Inc()

	r.notifyStart()

	var limiter *rate.Limiter
	if u.opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(u.opts.RateLimit), 1)
	}

	jobs := make(chan *UploadItem, len(batch.Items))
	for _, item := range batch.Items {
		jobs <- item
	}
	close(jobs)

	var wg sync.WaitGroup
	for range min(u.opts.Concurrency, len(batch.Items)) {
		wg.Add(1)
		go r.worker(ctx, &wg, jobs, limiter)
	}
	wg.Wait()

	batch.FinishedAt = time.Now()
	batch.Canceled = ctx.Err() != nil
	batch.Summary.Canceled = batch.Canceled

	logger.Info("upload batch finished",
		"succeeded", batch.Summary.Succeeded,
		"failed", batch.Summary.Failed,
		"canceled", batch.Canceled,
		"elapsed", batch.FinishedAt.Sub(batch.StartedAt).Round(time.Millisecond),
	)

	r.emit(batchCompletedUpdate(batch))
	r.notifySummary(batch.Summary)

	if batch.Summary.Succeeded > 0 && u.opts.Refresh != nil {
		r.refresh()
	}
	return batch, nil
}

// credential resolves the bearer token once for the whole batch.
func (u *Uploader) credential() (string, error) {
	if u.opts.TokenSource == nil {
		return "", shared.ErrMissingCredentials
	}
	tok, err := u.opts.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrMissingCredentials, err)
	}
	if tok == nil || tok.AccessToken == "" || !tok.Valid() {
		return "", shared.ErrMissingCredentials
	}
	return tok.AccessToken, nil
}

// worker pulls items from the shared queue until it is drained.
func (r *batchRun) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan *UploadItem, limiter *rate.Limiter) {
	defer wg.Done()

	for item := range jobs {
		if ctx.Err() != nil {
			r.cancel(item)
			continue
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				r.cancel(item)
				continue
			}
		}
		r.upload(ctx, item)
	}
}

// upload runs one item from Pending to a terminal state.
func (r *batchRun) upload(ctx context.Context, item *UploadItem) {
	total := len(r.batch.Items)
	r.mu.Lock()
	if err := item.Start(); err != nil {
		r.mu.Unlock()
		r.logger.Error("could not start item", "item", item.ID, "error", err)
		return
	}
	r.emitLocked(itemStateUpdate(r.batch.ID, item, total))
	r.mu.Unlock()

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()
	started := time.Now()

	// Progress and terminal transitions share r.mu, so a late progress report can never follow the terminal event.
	onProgress := func(percent int) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if p, changed, err := item.Report(percent); err == nil && changed {
			r.emitLocked(itemProgressUpdate(r.batch.ID, item, total, p))
		}
	}

	meta := Metadata{
		BatchID: r.batch.ID,
		ItemID:  item.ID,
		Kind:    item.Kind,
		Field:   r.opts.Field,
		Token:   r.token,
	}
	ref, err := r.call(ctx, item, meta, onProgress)

	r.finish(item, time.Since(started), func() error {
		if err != nil {
			return item.Fail(FailureMessage(err))
		}
		if serr := item.Succeed(ref); serr != nil {
			return item.Fail("upload finished without a file reference")
		}
		return nil
	})
}

// call invokes the transport, converting a panic into an ordinary item failure.
func (r *batchRun) call(ctx context.Context, item *UploadItem, meta Metadata, onProgress func(int)) (ref string, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("transport panicked", "item", item.ID, "panic", p)
			ref, err = "", fmt.Errorf("transport error: %v", p)
		}
	}()
	return r.transport.Upload(ctx, item.Source, meta, onProgress)
}

// cancel fails an item that never started because the batch context ended.
func (r *batchRun) cancel(item *UploadItem) {
	r.finish(item, 0, item.Cancel)
}

// finish applies a terminal transition and records it: counters, metrics, the state event and the per-item
// notification.
func (r *batchRun) finish(item *UploadItem, elapsed time.Duration, transition func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := transition(); err != nil {
		r.logger.Error("could not resolve item", "item", item.ID, "error", err)
		return
	}

	snap := item.Snapshot()
	state := item.State()

	metrics.ItemsCompleted.WithLabelValues(r.opts.Transport, snap.Kind, snap.State).Inc()
	if elapsed > 0 {
		metrics.ItemDuration.WithLabelValues(r.opts.Transport, snap.State).Observe(elapsed.Seconds())
	}

	if state == Succeeded {
		r.batch.Summary.Succeeded++
		metrics.BytesUploaded.WithLabelValues(r.opts.Transport, snap.Kind).Add(float64(snap.SizeBytes))
		r.logger.Info("item uploaded", "batch", r.batch.ID, "item", snap.ID, "ref", snap.ResultRef)
	} else {
		r.batch.Summary.Failed++
		r.logger.Warn("item failed", "batch", r.batch.ID, "item", snap.ID, "error", snap.ErrorMessage)
	}

	r.emitLocked(itemStateUpdate(r.batch.ID, item, len(r.batch.Items)))
	r.notifyItemLocked(ItemOutcome{
		BatchID:      r.batch.ID,
		ItemID:       snap.ID,
		Name:         snap.Name,
		Position:     snap.Position,
		SizeBytes:    snap.SizeBytes,
		Kind:         item.Kind,
		State:        state,
		ResultRef:    snap.ResultRef,
		ErrorMessage: snap.ErrorMessage,
		Duration:     elapsed,
	})
}

func (r *batchRun) emit(u ProgressUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitLocked(u)
}

func (r *batchRun) emitLocked(u ProgressUpdate) {
	if r.opts.OnEvent == nil {
		return
	}
	defer r.recoverCallback("event handler")
	r.opts.OnEvent(u)
}

func (r *batchRun) notifyItemLocked(o ItemOutcome) {
	if r.notifier == nil {
		return
	}
	defer r.recoverCallback("item notifier")
	r.notifier.NotifyItem(o)
}

func (r *batchRun) notifyStart() {
	starter, ok := r.notifier.(StartNotifier)
	if !ok {
		return
	}
	info := BatchInfo{
		BatchID:   r.batch.ID,
		Transport: r.batch.Transport,
		StartedAt: r.batch.StartedAt,
		Items:     make([]ItemSnapshot, len(r.batch.Items)),
	}
	for i, item := range r.batch.Items {
		info.Items[i] = item.Snapshot()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverCallback("start notifier")
	starter.NotifyStart(info)
}

func (r *batchRun) notifySummary(s BatchSummary) {
	if r.notifier == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.recoverCallback("summary notifier")
	r.notifier.NotifySummary(s)
}

func (r *batchRun) refresh() {
	defer r.recoverCallback("refresh callback")
	r.opts.Refresh()
}

func (r *batchRun) recoverCallback(name string) {
	if p := recover(); p != nil {
		r.logger.Error("recovered panic", "callback", name, "batch", r.batch.ID, "panic", p)
	}
}

// FailureMessage turns a transport error into the message recorded on a failed item.
//
// A server-supplied message wins. Otherwise well-known statuses, timeouts and cancellation get an operator-facing
// explanation, and anything else falls back to the error text.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := shared.AsAPIError(err); ok {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		switch apiErr.StatusCode {
		case 413:
			return "File is too large. Please try a smaller file."
		case 401:
			return "Session expired. Please log in again."
		}
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, shared.ErrUploadCanceled):
		return canceledFailure
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return "Upload timeout. The file may be too large or the connection too slow."
	case errors.Is(err, shared.ErrServiceUnavailable):
		return "Network error. Please check your connection and try again."
	}
	return err.Error()
}
