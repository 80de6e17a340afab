package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/tx"
)

// Postgres persists project-registration links. The unique (project_id,
// registration_id) constraint plus ON CONFLICT DO NOTHING keeps the
// incremental path idempotent against a racing rescope.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) q(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *Postgres) ReplaceForProject(ctx context.Context, projectID id.ProjectID, registrationIDs []id.RegistrationID) error {
	if _, err := s.q(ctx).ExecContext(ctx,
		`DELETE FROM project_registrations WHERE project_id = $1`, int64(projectID)); err != nil {
		return fmt.Errorf("clear project links: %w", err)
	}
	if len(registrationIDs) == 0 {
		return nil
	}
	raw := make([]int64, len(registrationIDs))
	for i, registrationID := range registrationIDs {
		raw[i] = int64(registrationID)
	}
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO project_registrations (project_id, registration_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`,
		int64(projectID), pq.Array(raw))
	if err != nil {
		return fmt.Errorf("insert project links: %w", err)
	}
	return nil
}

func (s *Postgres) Insert(ctx context.Context, projectID id.ProjectID, registrationID id.RegistrationID) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO project_registrations (project_id, registration_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		int64(projectID), int64(registrationID))
	if err != nil {
		return fmt.Errorf("insert project link: %w", err)
	}
	return nil
}

func (s *Postgres) ListByProject(ctx context.Context, projectID id.ProjectID) ([]id.RegistrationID, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT registration_id FROM project_registrations
		WHERE project_id = $1
		ORDER BY registration_id`,
		int64(projectID))
	if err != nil {
		return nil, fmt.Errorf("list project links: %w", err)
	}
	defer rows.Close()

	var linked []id.RegistrationID
	for rows.Next() {
		var registrationID int64
		if err := rows.Scan(&registrationID); err != nil {
			return nil, fmt.Errorf("scan project link: %w", err)
		}
		linked = append(linked, id.RegistrationID(registrationID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project links: %w", err)
	}
	return linked, nil
}
