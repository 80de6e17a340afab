package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"wastetrack/pkg/platform/tx"
)

// PostgresSink appends events to an append-only table. Rows are never
// updated or deleted; the table doubles as an outbox for batch export.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresSink) q(ctx context.Context) execer {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresSink) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = s.q(ctx).ExecContext(ctx, `
		INSERT INTO events (id, type, customer_id, subject, actor, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, string(event.Type), int64(event.CustomerID), event.Subject, event.Actor, payload, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}
