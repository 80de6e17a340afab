package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/tx"
)

// Postgres persists the registration ledger.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, registration *models.Registration) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO registrations (customer_id, point_id, date, amount, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		int64(registration.CustomerID), int64(registration.PointID), registration.Date,
		registration.Amount, registration.Cost, registration.CreatedAt,
	).Scan(&registration.ID)
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *Postgres) FindByIDs(ctx context.Context, ids []id.RegistrationID) ([]*models.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, registrationID := range ids {
		raw[i] = int64(registrationID)
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT id, customer_id, point_id, date, amount, cost, created_at
		FROM registrations
		WHERE id = ANY($1)
		ORDER BY id`,
		pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func (s *Postgres) FindInScope(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID, from time.Time, until *time.Time) ([]*models.Registration, error) {
	query := `
		SELECT id, customer_id, point_id, date, amount, cost, created_at
		FROM registrations
		WHERE customer_id = $1 AND date >= $2`
	args := []any{int64(customerID), models.Day(from)}
	if len(pointIDs) > 0 {
		raw := make([]int64, len(pointIDs))
		for i, pointID := range pointIDs {
			raw[i] = int64(pointID)
		}
		args = append(args, pq.Array(raw))
		query += fmt.Sprintf(" AND point_id = ANY($%d)", len(args))
	}
	if until != nil {
		args = append(args, *until)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find registrations in scope: %w", err)
	}
	defer rows.Close()
	return collectRegistrations(rows)
}

func collectRegistrations(rows *sql.Rows) ([]*models.Registration, error) {
	var registrations []*models.Registration
	for rows.Next() {
		var registration models.Registration
		err := rows.Scan(
			&registration.ID, &registration.CustomerID, &registration.PointID,
			&registration.Date, &registration.Amount, &registration.Cost, &registration.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		registrations = append(registrations, &registration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return registrations, nil
}
