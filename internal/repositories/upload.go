package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// UploadRepository implements [models.Repository] for [models.BatchRecord] persistence.
//
// Handles batch CRUD with soft delete support, plus the per-item rows of each batch.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new [UploadRepository] with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

const batchColumns = `
	id, sequence, transport, total, succeeded, failed, canceled,
	started_at, finished_at, created_at, updated_at, deleted_at`

// Create inserts a new batch with the next sequence number. An empty ID is generated.
func (r *UploadRepository) Create(batch *models.BatchRecord) error {
	if batch.ID() == "" {
		batch.SetID(shared.GenerateID())
	}
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var sequence int
	err := inTx(r.db, func(tx *sql.Tx) error {
		var err error
		if sequence, err = NextSequence(tx, "upload_batches"); err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		query := `
			INSERT INTO upload_batches (` + batchColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		`
		_, err = tx.Exec(query,
			batch.ID(),
			sequence,
			batch.Transport(),
			batch.Total(),
			batch.Succeeded(),
			batch.Failed(),
			batch.Canceled(),
			batch.StartedAt(),
			nullTime(batch.FinishedAt()),
			batch.CreatedAt(),
			batch.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert upload batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	batch.SetSequence(sequence)
	return nil
}

// Get retrieves a batch and its items by ID, excluding soft-deleted batches
func (r *UploadRepository) Get(id string) (*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM upload_batches WHERE id = ? AND deleted_at IS NULL`

	batch, err := scanBatch(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := r.Items(id)
	if err != nil {
		return nil, err
	}
	batch.SetItems(items)
	return batch, nil
}

// Update writes the summary counters and completion state of a batch
func (r *UploadRepository) Update(batch *models.BatchRecord) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	batch.SetUpdatedAt(now)

	query := `
		UPDATE upload_batches
		SET succeeded = ?, failed = ?, canceled = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		batch.Succeeded(),
		batch.Failed(),
		batch.Canceled(),
		nullTime(batch.FinishedAt()),
		now,
		batch.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload batch: %w", err)
	}
	return expectOneRow(result, batch.ID())
}

// Delete soft-deletes a batch by ID
func (r *UploadRepository) Delete(id string) error {
	query := `
		UPDATE upload_batches
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload batch: %w", err)
	}
	return expectOneRow(result, id)
}

// List retrieves batches newest first, excluding soft-deleted ones.
//
// Supported criteria: "transport" (string), "finished" (bool), "limit" (int).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.BatchRecord, error) {
	query := `SELECT ` + batchColumns + ` FROM upload_batches WHERE deleted_at IS NULL`
	args := []any{}

	if transport, ok := criteria["transport"].(string); ok && transport != "" {
		query += " AND transport = ?"
		args = append(args, transport)
	}

	if finished, ok := criteria["finished"].(bool); ok {
		if finished {
			query += " AND finished_at IS NOT NULL"
		} else {
			query += " AND finished_at IS NULL"
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.BatchRecord
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return batches, nil
}

// SaveItem inserts or replaces the row for one item of a batch.
func (r *UploadRepository) SaveItem(item models.ItemRecord) error {
	query := `
		INSERT INTO upload_items (
			batch_id, item_id, position, name, kind, size_bytes,
			state, error_message, result_ref, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (batch_id, item_id) DO UPDATE SET
			state = excluded.state,
			error_message = excluded.error_message,
			result_ref = excluded.result_ref,
			updated_at = excluded.updated_at
	`
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now()
	}
	_, err := r.db.Exec(query,
		item.BatchID,
		item.ItemID,
		item.Position,
		item.Name,
		item.Kind,
		item.SizeBytes,
		item.State,
		nullString(item.ErrorMessage),
		nullString(item.ResultRef),
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save upload item %s: %w", item.ItemID, err)
	}
	return nil
}

// Items returns the items of a batch in selection order.
func (r *UploadRepository) Items(batchID string) ([]models.ItemRecord, error) {
	query := `
		SELECT batch_id, item_id, position, name, kind, size_bytes, state, error_message, result_ref, updated_at
		FROM upload_items
		WHERE batch_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.Query(query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload items: %w", err)
	}
	defer rows.Close()

	var items []models.ItemRecord
	for rows.Next() {
		var (
			item      models.ItemRecord
			errorMsg  sql.NullString
			resultRef sql.NullString
		)
		err := rows.Scan(
			&item.BatchID, &item.ItemID, &item.Position, &item.Name, &item.Kind,
			&item.SizeBytes, &item.State, &errorMsg, &resultRef, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upload item: %w", err)
		}
		item.ErrorMessage = errorMsg.String
		item.ResultRef = resultRef.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// scanBatch scans one upload_batches row into a [models.BatchRecord]
func scanBatch(s scanner) (*models.BatchRecord, error) {
	var (
		id         string
		sequence   int
		transport  string
		total      int
		succeeded  int
		failed     int
		canceled   bool
		startedAt  time.Time
		finishedAt sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &transport, &total, &succeeded, &failed, &canceled,
		&startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload batch: %w", err)
	}

	batch := models.NewBatchRecord(id, transport, total, startedAt)
	batch.SetSequence(sequence)
	batch.SetCounts(succeeded, failed)
	batch.SetCreatedAt(createdAt)
	batch.SetUpdatedAt(updatedAt)
	if finishedAt.Valid {
		batch.Finish(finishedAt.Time, canceled)
	}
	if deletedAt.Valid {
		batch.SetDeletedAt(&deletedAt.Time)
	}

	return batch, nil
}

func expectOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrBatchNotFound, id)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
