// Package repositories implements SQLite persistence for the upload journal.
//
// [UploadRepository] implements models.Repository[*models.BatchRecord] with atomic sequence generation for
// human-readable ordering. Batches support soft deletes via deleted_at timestamps, and deleted records are excluded
// from queries by default. Item rows are keyed by (batch_id, item_id) and upserted as their state changes.
//
// [Journal] adapts the repository to the uploader's notifier hooks: the batch row and its pending items are written
// when a batch starts, each item row is updated when it reaches a terminal state, and the summary counters are
// stored when the batch completes. The journal never fails an upload; write errors are logged.
//
// Sequence numbers provide stable ordering (e.g., batch #42) independent of UUIDs and creation timestamps.
// [NextSequence] increments a per-table counter row inside the transaction that inserts the numbered row.
package repositories
