// Package notify implements [tasks.Notifier] sinks for upload batches.
//
// Sinks are fire-and-forget: they log their own failures and never affect the batch. The uploader calls them
// serially, so a sink needs no locking of its own.
//
//   - [ConsoleNotifier] : styled one-line toasts per item and per batch
//   - [LogNotifier] : structured log lines
//   - [RedisNotifier] : JSON events on a Redis pub/sub channel, plus the last summary under a key
//   - [Multi] : fans every call out to several sinks
package notify

import (
	"github.com/desertthunder/mediadesk/internal/tasks"
)

var (
	_ tasks.StartNotifier = Multi{}
	_ tasks.StartNotifier = (*ConsoleNotifier)(nil)
	_ tasks.StartNotifier = (*LogNotifier)(nil)
	_ tasks.StartNotifier = (*RedisNotifier)(nil)
)

// Multi forwards each call to every sink in order. Batch starts reach only the sinks that implement
// [tasks.StartNotifier].
type Multi []tasks.Notifier

func (m Multi) NotifyStart(info tasks.BatchInfo) {
	for _, n := range m {
		if s, ok := n.(tasks.StartNotifier); ok {
			s.NotifyStart(info)
		}
	}
}

func (m Multi) NotifyItem(o tasks.ItemOutcome) {
	for _, n := range m {
		n.NotifyItem(o)
	}
}

func (m Multi) NotifySummary(s tasks.BatchSummary) {
	for _, n := range m {
		n.NotifySummary(s)
	}
}
