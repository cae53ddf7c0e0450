package service

import (
	"context"
	"time"

	"capsule-service/src/config"
	"capsule-service/src/models"
	"capsule-service/src/rabbitmq"
)

// UnlockEvent is the message published when a capsule is unlocked.
type UnlockEvent struct {
	Event                  string    `json:"event"`
	UserID                 string    `json:"user_id"`
	SessionID              string    `json:"session_id"`
	TotalAttempts          int       `json:"total_attempts"`
	SessionDurationSeconds float64   `json:"session_duration_seconds"`
	CompletedAt            time.Time `json:"completed_at"`
}

// AttemptEvent is the best-effort progress message published when a flipped
// episode ends.
type AttemptEvent struct {
	Event      string `json:"event"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
	DurationMs int64  `json:"duration_ms"`
	Succeeded  bool   `json:"succeeded"`
}

// EventNotifier publishes challenge events to RabbitMQ fanout exchanges.
// Delivery is best effort; the engine logs failures and never lets them
// affect session state.
type EventNotifier struct {
	publisher rabbitmq.Publisher
}

// NewEventNotifier creates a notifier over the given publisher.
func NewEventNotifier(publisher rabbitmq.Publisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

// NotifyUnlocked publishes the single "capsule unlocked" event for a
// completed session.
func (n *EventNotifier) NotifyUnlocked(_ context.Context, record *models.UnlockRecord) error {
	return n.publisher.PublishJSON(config.UnlockExchange, UnlockEvent{
		Event:                  "capsule.unlocked",
		UserID:                 record.UserID,
		SessionID:              record.SessionID,
		TotalAttempts:          record.TotalAttempts,
		SessionDurationSeconds: record.SessionDurationSeconds,
		CompletedAt:            record.CompletedAt,
	})
}

// NotifyAttempt publishes a progress event for a finished flipped episode.
func (n *EventNotifier) NotifyAttempt(_ context.Context, record *models.AttemptRecord) error {
	return n.publisher.PublishJSON(config.AttemptExchange, AttemptEvent{
		Event:      "flip.attempt",
		UserID:     record.UserID,
		SessionID:  record.SessionID,
		DurationMs: record.DurationMs,
		Succeeded:  record.Succeeded,
	})
}
