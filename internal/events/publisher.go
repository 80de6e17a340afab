// Package events carries domain events from services to a pluggable sink.
// Emission is best-effort: a sink failure is logged, never surfaced to the
// caller, so event delivery can lag but a mutation is never rolled back for
// a broadcast problem.
package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	id "wastetrack/pkg/domain"
	"wastetrack/pkg/requestcontext"
)

// Sink receives published events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher stamps and forwards events to a sink.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
}

func NewPublisher(sink Sink, logger *slog.Logger) *Publisher {
	return &Publisher{sink: sink, logger: logger}
}

// Emit stamps the event with an id, actor, and time from the request context
// and hands it to the sink. Never returns an error to the caller.
func (p *Publisher) Emit(ctx context.Context, eventType Type, customerID id.CustomerID, subject string, payload map[string]any) {
	if p == nil || p.sink == nil {
		return
	}
	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		CustomerID: customerID,
		Subject:    subject,
		Actor:      requestcontext.Actor(ctx),
		Payload:    payload,
		OccurredAt: requestcontext.Now(ctx),
	}
	if err := p.sink.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to publish event",
			"event_type", eventType, "subject", subject, "error", err)
	}
}
