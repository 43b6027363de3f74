package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/redis/go-redis/v9"
)

const (
	publishTimeout = 2 * time.Second
	summaryTTL     = 24 * time.Hour
)

// Event types published by [RedisNotifier].
const (
	EventBatchStarted  = "batch.started"
	EventItemFinished  = "item.finished"
	EventBatchFinished = "batch.finished"
)

// RedisClient is the subset of [redis.Client] the notifier uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Event is the JSON message published for each notification.
type Event struct {
	Type      string               `json:"type"`
	BatchID   string               `json:"batch_id"`
	At        time.Time            `json:"at"`
	Transport string               `json:"transport,omitempty"`
	Items     []tasks.ItemSnapshot `json:"items,omitempty"`
	Item      *ItemEvent           `json:"item,omitempty"`
	Summary   *tasks.BatchSummary  `json:"summary,omitempty"`
}

// ItemEvent is the outcome of one item as published.
type ItemEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	State      string `json:"state"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RedisNotifier publishes batch events to a channel and keeps each batch's summary under
// "<channel>:batch:<id>" for a day.
type RedisNotifier struct {
	client  RedisClient
	channel string
	logger  *log.Logger
}

// NewRedisClient connects to Redis using cfg.
func NewRedisClient(cfg shared.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisNotifier(client RedisClient, channel string, logger *log.Logger) *RedisNotifier {
	if channel == "" {
		channel = "mediadesk:uploads"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (r *RedisNotifier) NotifyStart(info tasks.BatchInfo) {
	r.publish(Event{
		Type:      EventBatchStarted,
		BatchID:   info.BatchID,
		At:        info.StartedAt,
		Transport: info.Transport,
		Items:     info.Items,
	})
}

func (r *RedisNotifier) NotifyItem(o tasks.ItemOutcome) {
	r.publish(Event{
		Type:    EventItemFinished,
		BatchID: o.BatchID,
		At:      time.Now(),
		Item: &ItemEvent{
			ID:         o.ItemID,
			Name:       o.Name,
			Kind:       o.Kind.String(),
			State:      o.State.String(),
			Result:     o.ResultRef,
			Error:      o.ErrorMessage,
			DurationMS: o.Duration.Milliseconds(),
		},
	})
}

func (r *RedisNotifier) NotifySummary(s tasks.BatchSummary) {
	r.publish(Event{Type: EventBatchFinished, BatchID: s.BatchID, At: time.Now(), Summary: &s})

	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("failed to encode summary", "batch", s.BatchID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Set(ctx, r.SummaryKey(s.BatchID), data, summaryTTL).Err(); err != nil {
		r.logger.Warn("failed to store summary", "batch", s.BatchID, "error", err)
	}
}

// SummaryKey is where the final summary of batchID is stored.
func (r *RedisNotifier) SummaryKey(batchID string) string {
	return r.channel + ":batch:" + batchID
}

func (r *RedisNotifier) publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("failed to encode event", "type", e.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		r.logger.Warn("failed to publish event", "type", e.Type, "batch", e.BatchID, "error", err)
	}
}
