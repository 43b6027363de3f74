package tasks

import (
	"fmt"
)

// ProgressUpdate is one event in the ordered stream an [Uploader] emits while a batch runs.
//
// Used to drive the CLI, TUI or any other adapter; the orchestrator itself renders nothing.
type ProgressUpdate struct {
	Event    Event         // What happened
	BatchID  string        // Batch the event belongs to
	ItemID   string        // Empty for batch-level events
	Name     string        // Source file name
	Step     int           // 1-based item position
	Total    int           // Items in the batch
	State    State         // Item state after the event
	Percent  int           // Item progress after the event
	Message  string        // Human-readable message for display
	Summary  *BatchSummary // Set on [BatchCompleted]
	Canceled bool          // Set on [BatchCompleted] when the context ended the batch
}

// Event enumerates progress event types.
type Event int

const (
	ItemStateChanged Event = iota
	ItemProgress
	BatchCompleted
)

func (e Event) String() string {
	switch e {
	case ItemStateChanged:
		return "item_state_changed"
	case ItemProgress:
		return "item_progress"
	case BatchCompleted:
		return "batch_completed"
	default:
		return ""
	}
}

func itemStateUpdate(batchID string, item *UploadItem, total int) ProgressUpdate {
	snap := item.Snapshot()
	u := ProgressUpdate{
		Event:   ItemStateChanged,
		BatchID: batchID,
		ItemID:  snap.ID,
		Name:    snap.Name,
		Step:    snap.Position + 1,
		Total:   total,
		State:   item.State(),
		Percent: snap.Progress,
	}
	switch u.State {
	case Uploading:
		u.Message = fmt.Sprintf("[%d/%d] Uploading %s...", u.Step, total, snap.Name)
	case Succeeded:
		u.Message = fmt.Sprintf("[%d/%d] ✓ %s", u.Step, total, snap.Name)
	case Failed:
		u.Message = fmt.Sprintf("[%d/%d] ✗ %s: %s", u.Step, total, snap.Name, snap.ErrorMessage)
	default:
		u.Message = fmt.Sprintf("[%d/%d] %s", u.Step, total, snap.Name)
	}
	return u
}

func itemProgressUpdate(batchID string, item *UploadItem, total, percent int) ProgressUpdate {
	return ProgressUpdate{
		Event:   ItemProgress,
		BatchID: batchID,
		ItemID:  item.ID,
		Name:    item.Name(),
		Step:    item.Position + 1,
		Total:   total,
		State:   Uploading,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] %s %d%%", item.Position+1, total, item.Name(), percent),
	}
}

func batchCompletedUpdate(b *Batch) ProgressUpdate {
	summary := b.Summary
	msg := fmt.Sprintf("%d of %d files uploaded", summary.Succeeded, summary.Total)
	if summary.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", summary.Failed)
	}
	if b.Canceled {
		msg += " (canceled)"
	}
	return ProgressUpdate{
		Event:    BatchCompleted,
		BatchID:  b.ID,
		Step:     summary.Total,
		Total:    summary.Total,
		Message:  msg,
		Summary:  &summary,
		Canceled: b.Canceled,
	}
}
