package repositories

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// Journal records batch progress in the upload tables.
//
// It implements [tasks.Notifier] and [tasks.StartNotifier]. Write failures are logged and never reach the uploader.
type Journal struct {
	repo   *UploadRepository
	logger *log.Logger
}

// NewJournal creates a [Journal] writing through repo.
func NewJournal(repo *UploadRepository, logger *log.Logger) *Journal {
	if logger == nil {
		logger = log.Default()
	}
	return &Journal{repo: repo, logger: logger}
}

// NotifyStart creates the batch row and a pending row per item.
func (j *Journal) NotifyStart(info tasks.BatchInfo) {
	batch := models.NewBatchRecord(info.BatchID, info.Transport, len(info.Items), info.StartedAt)
	if err := j.repo.Create(batch); err != nil {
		j.logger.Error("failed to journal batch", "batch", info.BatchID, "error", err)
		return
	}

	for _, item := range info.Items {
		record := models.ItemRecord{
			BatchID:   info.BatchID,
			ItemID:    item.ID,
			Position:  item.Position,
			Name:      item.Name,
			Kind:      item.Kind,
			SizeBytes: item.SizeBytes,
			State:     item.State,
		}
		if err := j.repo.SaveItem(record); err != nil {
			j.logger.Error("failed to journal item", "batch", info.BatchID, "item", item.ID, "error", err)
		}
	}
	j.logger.Debug("journaled batch start", "batch", info.BatchID, "items", len(info.Items))
}

// NotifyItem stores the terminal state of one item.
func (j *Journal) NotifyItem(outcome tasks.ItemOutcome) {
	record := models.ItemRecord{
		BatchID:      outcome.BatchID,
		ItemID:       outcome.ItemID,
		Position:     outcome.Position,
		Name:         outcome.Name,
		Kind:         outcome.Kind.String(),
		SizeBytes:    outcome.SizeBytes,
		State:        outcome.State.String(),
		ErrorMessage: outcome.ErrorMessage,
		ResultRef:    outcome.ResultRef,
		UpdatedAt:    time.Now(),
	}
	if err := j.repo.SaveItem(record); err != nil {
		j.logger.Error("failed to journal item", "batch", outcome.BatchID, "item", outcome.ItemID, "error", err)
	}
}

// NotifySummary stores the final counters and marks the batch finished.
func (j *Journal) NotifySummary(summary tasks.BatchSummary) {
	batch, err := j.repo.Get(summary.BatchID)
	if err != nil {
		j.logger.Error("failed to load journaled batch", "batch", summary.BatchID, "error", err)
		return
	}

	batch.SetCounts(summary.Succeeded, summary.Failed)
	batch.Finish(time.Now(), summary.Canceled)
	if err := j.repo.Update(batch); err != nil {
		j.logger.Error("failed to journal summary", "batch", summary.BatchID, "error", err)
	}
}
