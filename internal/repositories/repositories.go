package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/mediadesk/internal/models"
)

var _ models.Repository[*models.BatchRecord] = (*UploadRepository)(nil)

// rowQuerier is satisfied by both [sql.DB] and [sql.Tx].
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// NextSequence increments and returns the counter kept in "<table>_sequence".
//
// Call it with the transaction that inserts the numbered row so a failed insert does not leave a gap in the
// batch numbers shown in upload history.
func NextSequence(q rowQuerier, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := q.QueryRow(query).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to increment %s sequence: %w", table, err)
	}
	return sequence, nil
}

// inTx runs fn in a transaction and commits only when fn succeeds.
func inTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
