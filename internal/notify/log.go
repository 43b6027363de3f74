package notify

import (
	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// LogNotifier records batch activity as structured log lines.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) NotifyStart(info tasks.BatchInfo) {
	var bytes int64
	for _, item := range info.Items {
		bytes += item.SizeBytes
	}
	l.logger.Info("batch started", "batch", info.BatchID, "transport", info.Transport, "files", len(info.Items), "bytes", bytes)
}

func (l *LogNotifier) NotifyItem(o tasks.ItemOutcome) {
	if o.Succeeded() {
		l.logger.Info("file uploaded", "batch", o.BatchID, "item", o.ItemID, "ref", o.ResultRef, "duration", o.Duration)
		return
	}
	l.logger.Warn("file failed", "batch", o.BatchID, "item", o.ItemID, "error", o.ErrorMessage)
}

func (l *LogNotifier) NotifySummary(s tasks.BatchSummary) {
	logf := l.logger.Info
	if s.Failed > 0 || s.Canceled {
		logf = l.logger.Warn
	}
	logf("batch finished", "batch", s.BatchID, "total", s.Total, "succeeded", s.Succeeded, "failed", s.Failed, "canceled", s.Canceled)
}
