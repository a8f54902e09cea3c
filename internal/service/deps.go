package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/search"
)

// EventPublisher is satisfied by *mykafka.Producer and mykafka.Nop.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// ProductIndex is satisfied by *search.Index.
type ProductIndex interface {
	IndexProduct(ctx context.Context, doc search.ProductDoc) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type Event struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// publish is best-effort: failures are logged and swallowed.
func publish(ctx context.Context, p EventPublisher, topic, typ string, id uuid.UUID, data map[string]any) {
	if p == nil {
		return
	}
	ev := Event{Type: typ, AggregateID: id.String(), OccurredAt: time.Now().UTC(), Data: data}
	if err := p.PublishEvent(ctx, topic, ev.AggregateID, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", topic, "type", typ, "error", err)
	}
}

func sendNotification(ctx context.Context, s notify.Sender, m notify.Message) bool {
	if s == nil {
		return false
	}
	if err := s.Send(ctx, m); err != nil {
		logging.FromContext(ctx).Warn("send_notification_error", "kind", m.Kind, "error", err)
		return false
	}
	return true
}

func logger(ctx context.Context, op string) *slog.Logger {
	return logging.FromContext(ctx).With("svc", op)
}

func nowUTC() time.Time { return time.Now().UTC() }
