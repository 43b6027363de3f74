package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/mediadesk/internal/shared"
)

// BatchRecord is the journal entry for one upload batch.
type BatchRecord struct {
	id         string
	sequence   int
	transport  string
	total      int
	succeeded  int
	failed     int
	canceled   bool
	startedAt  time.Time
	finishedAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
	items      []ItemRecord
}

// NewBatchRecord creates a record for a batch that started at startedAt. The ID is normally the batch's own ID.
func NewBatchRecord(id, transport string, total int, startedAt time.Time) *BatchRecord {
	now := time.Now()
	return &BatchRecord{
		id:        id,
		transport: transport,
		total:     total,
		startedAt: startedAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (b *BatchRecord) ID() string { return b.id }
func (b *BatchRecord) Sequence() int { return b.sequence }
func (b *BatchRecord) Transport() string { return b.transport }
func (b *BatchRecord) Total() int { return b.total }
func (b *BatchRecord) Succeeded() int { return b.succeeded }
func (b *BatchRecord) Failed() int { return b.failed }
func (b *BatchRecord) Canceled() bool { return b.canceled }
func (b *BatchRecord) StartedAt() time.Time { return b.startedAt }
func (b *BatchRecord) FinishedAt() *time.Time { return b.finishedAt }
func (b *BatchRecord) CreatedAt() time.Time { return b.createdAt }
func (b *BatchRecord) UpdatedAt() time.Time { return b.updatedAt }
func (b *BatchRecord) DeletedAt() *time.Time { return b.deletedAt }
func (b *BatchRecord) Items() []ItemRecord { return b.items }
func (b *BatchRecord) Finished() bool { return b.finishedAt != nil }
func (b *BatchRecord) SetID(id string) { b.id = id }
func (b *BatchRecord) SetSequence(n int) { b.sequence = n }
func (b *BatchRecord) SetUpdatedAt(t time.Time) { b.updatedAt = t }
func (b *BatchRecord) SetCreatedAt(t time.Time) { b.createdAt = t }
func (b *BatchRecord) SetDeletedAt(t *time.Time) { b.deletedAt = t }
func (b *BatchRecord) SetItems(items []ItemRecord) { b.items = items }

// SetCounts records the summary counters.
func (b *BatchRecord) SetCounts(succeeded, failed int) {
	b.succeeded = succeeded
	b.failed = failed
}

// Finish marks the batch complete.
func (b *BatchRecord) Finish(at time.Time, canceled bool) {
	b.finishedAt = &at
	b.canceled = canceled
}

// Validate enforces the summary invariant: resolved items never exceed the total, and a finished batch accounts
// for every item.
func (b *BatchRecord) Validate() error {
	if b.id == "" {
		return fmt.Errorf("%w: batch id is required", shared.ErrInvalidInput)
	}
	if b.transport == "" {
		return fmt.Errorf("%w: batch transport is required", shared.ErrInvalidInput)
	}
	if b.total <= 0 {
		return fmt.Errorf("%w: batch must contain at least one item", shared.ErrInvalidInput)
	}
	if b.succeeded < 0 || b.failed < 0 || b.succeeded+b.failed > b.total {
		return fmt.Errorf("%w: %d succeeded + %d failed exceeds %d items", shared.ErrInvalidInput, b.succeeded, b.failed, b.total)
	}
	if b.finishedAt != nil && b.succeeded+b.failed != b.total {
		return fmt.Errorf("%w: finished batch resolved %d of %d items", shared.ErrInvalidInput, b.succeeded+b.failed, b.total)
	}
	return nil
}

// ItemRecord is the journal entry for one item of a batch.
type ItemRecord struct {
	BatchID      string    `json:"batch_id"`
	ItemID       string    `json:"item_id"`
	Position     int       `json:"position"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	SizeBytes    int64     `json:"size_bytes"`
	State        string    `json:"state"`
	ErrorMessage string    `json:"error,omitempty"`
	ResultRef    string    `json:"result,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}
