package postgres

import (
	"database/sql"
	"fmt"
)

// Migrate applies the schema. Every statement is idempotent, so the full list
// re-runs safely on startup.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS registration_points (
		id          BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		parent_id   BIGINT REFERENCES registration_points(id),
		path        TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		label       TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		amount      DOUBLE PRECISION NOT NULL DEFAULT 0,
		cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
		deleted_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_points_customer ON registration_points(customer_id)`,
	// text_pattern_ops so the subtree LIKE 'prefix.%' queries use the index
	`CREATE INDEX IF NOT EXISTS idx_points_path
		ON registration_points(customer_id, path text_pattern_ops)`,

	`CREATE TABLE IF NOT EXISTS projects (
		id                BIGSERIAL PRIMARY KEY,
		customer_id       BIGINT NOT NULL,
		parent_project_id BIGINT REFERENCES projects(id),
		name              TEXT NOT NULL,
		status            TEXT NOT NULL
		                  CHECK (status IN ('PENDING_START','RUNNING','PENDING_INPUT',
		                                    'PENDING_FOLLOWUP','RUNNING_FOLLOWUP','ON_HOLD','FINISHED')),
		duration_type     TEXT NOT NULL CHECK (duration_type IN ('CALENDAR','REGISTRATIONS')),
		duration_start    TIMESTAMPTZ NOT NULL,
		duration_end      TIMESTAMPTZ,
		duration_days     INTEGER,
		percentage        INTEGER NOT NULL DEFAULT 0,
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_projects_customer_status ON projects(customer_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_parent ON projects(parent_project_id)`,

	`CREATE TABLE IF NOT EXISTS project_points (
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		point_id   BIGINT NOT NULL,
		PRIMARY KEY (project_id, point_id)
	)`,

	`CREATE TABLE IF NOT EXISTS actions (
		id          BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		name        TEXT NOT NULL
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_actions_customer_name
		ON actions(customer_id, lower(name))`,

	`CREATE TABLE IF NOT EXISTS project_actions (
		project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		action_id  BIGINT NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, action_id)
	)`,

	`CREATE TABLE IF NOT EXISTS registrations (
		id          BIGSERIAL PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		point_id    BIGINT NOT NULL REFERENCES registration_points(id),
		date        TIMESTAMPTZ NOT NULL,
		amount      DOUBLE PRECISION NOT NULL,
		cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_registrations_customer_date ON registrations(customer_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_point ON registrations(point_id)`,

	`CREATE TABLE IF NOT EXISTS project_registrations (
		project_id      BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		registration_id BIGINT NOT NULL REFERENCES registrations(id) ON DELETE CASCADE,
		PRIMARY KEY (project_id, registration_id)
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id          UUID PRIMARY KEY,
		type        TEXT NOT NULL,
		customer_id BIGINT NOT NULL,
		subject     TEXT NOT NULL,
		actor       TEXT NOT NULL DEFAULT '',
		payload     JSONB NOT NULL DEFAULT '{}',
		occurred_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_customer_type ON events(customer_id, type)`,
}
