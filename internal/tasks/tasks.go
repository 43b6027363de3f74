package tasks

import (
	"context"
	"io"
	"time"
)

// FileRef is an opaque handle to a file's bytes. The orchestrator never copies its contents into the model.
type FileRef interface {
	Name() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// Metadata is passed explicitly to the [Transport] for every item.
type Metadata struct {
	BatchID string
	ItemID  string
	Kind    Kind
	Field   string // multipart form field the backend expects ("audio")
	Token   string // bearer token resolved once per batch
}

// Transport performs one upload attempt. It reports progress in percent via onProgress, which may be called
// from any goroutine, and returns a server-assigned reference on success.
type Transport interface {
	Upload(ctx context.Context, file FileRef, meta Metadata, onProgress func(percent int)) (resultRef string, err error)
}

// Notifier surfaces outcomes to an operator. Calls are fire-and-forget: implementations must not block for long
// and a panic is recovered by the caller.
type Notifier interface {
	NotifyItem(ItemOutcome)
	NotifySummary(BatchSummary)
}

// StartNotifier is implemented by notifiers that also want to know when a batch begins, before any item runs.
type StartNotifier interface {
	NotifyStart(BatchInfo)
}

// BatchInfo describes a batch that is about to start.
type BatchInfo struct {
	BatchID   string
	Transport string
	StartedAt time.Time
	Items     []ItemSnapshot
}

// RefreshFunc is called at most once per batch, after the summary, when at least one item succeeded.
type RefreshFunc func()

// ItemOutcome describes one item that reached a terminal state.
type ItemOutcome struct {
	BatchID      string
	ItemID       string
	Name         string
	Position     int
	SizeBytes    int64
	Kind         Kind
	State        State
	ResultRef    string
	ErrorMessage string
	Duration     time.Duration
}

// Succeeded reports whether the item uploaded.
func (o ItemOutcome) Succeeded() bool { return o.State == Succeeded }

// BatchSummary aggregates item outcomes. Succeeded+Failed never exceeds Total and equals it once the batch
// completes.
type BatchSummary struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Canceled  bool   `json:"canceled,omitempty"`
}

// Pending is the number of items that have not yet resolved.
func (s BatchSummary) Pending() int { return s.Total - s.Succeeded - s.Failed }

// Batch is one operator submission. Membership is fixed once [Uploader.Run] starts.
type Batch struct {
	ID         string
	Transport  string
	Items      []*UploadItem
	Summary    BatchSummary
	StartedAt  time.Time
	FinishedAt time.Time
	Canceled   bool
}

// Failures returns the items that ended in [Failed], in input order.
func (b *Batch) Failures() []*UploadItem {
	var out []*UploadItem
	for _, item := range b.Items {
		if item.State() == Failed {
			out = append(out, item)
		}
	}
	return out
}
