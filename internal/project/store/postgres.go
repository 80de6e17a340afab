package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/platform/tx"
)

// Postgres persists projects, their point scope, and their actions. Scope and
// action sets are replaced wholesale on update; both live in join tables.
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

const projectColumns = `id, customer_id, parent_project_id, name, status,
	duration_type, duration_start, duration_end, duration_days,
	percentage, active, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, project *models.Project) error {
	q := s.q(ctx)
	err := q.QueryRowContext(ctx, `
		INSERT INTO projects
			(customer_id, parent_project_id, name, status, duration_type,
			 duration_start, duration_end, duration_days, percentage, active,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		int64(project.CustomerID), nullProjectID(project.ParentProjectID), project.Name,
		string(project.Status), string(project.Duration.Type), project.Duration.Start,
		nullTime(project.Duration), nullDays(project.Duration), project.Percentage,
		project.Active, project.CreatedAt, project.UpdatedAt,
	).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if err := s.replaceScope(ctx, q, project); err != nil {
		return err
	}
	return s.replaceActions(ctx, q, project)
}

func (s *Postgres) Update(ctx context.Context, project *models.Project) error {
	q := s.q(ctx)
	result, err := q.ExecContext(ctx, `
		UPDATE projects
		SET name = $1, status = $2, duration_type = $3, duration_start = $4,
		    duration_end = $5, duration_days = $6, percentage = $7, active = $8,
		    updated_at = $9
		WHERE customer_id = $10 AND id = $11`,
		project.Name, string(project.Status), string(project.Duration.Type),
		project.Duration.Start, nullTime(project.Duration), nullDays(project.Duration),
		project.Percentage, project.Active, project.UpdatedAt,
		int64(project.CustomerID), int64(project.ID))
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	if err := s.replaceScope(ctx, q, project); err != nil {
		return err
	}
	return s.replaceActions(ctx, q, project)
}

func (s *Postgres) FindByID(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE customer_id = $1 AND id = $2`,
		int64(customerID), int64(projectID))
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	if err := s.loadAssociations(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Postgres) ListFollowUps(ctx context.Context, customerID id.CustomerID, parentID id.ProjectID) ([]*models.Project, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE customer_id = $1 AND parent_project_id = $2
		ORDER BY id`,
		int64(customerID), int64(parentID))
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()
	return s.collectWithAssociations(ctx, rows)
}

func (s *Postgres) ListOngoingByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Project, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE customer_id = $1 AND active AND status <> $2
		ORDER BY id`,
		int64(customerID), string(models.StatusFinished))
	if err != nil {
		return nil, fmt.Errorf("list ongoing projects: %w", err)
	}
	defer rows.Close()
	return s.collectWithAssociations(ctx, rows)
}

func (s *Postgres) ListOngoingReferencing(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) ([]*models.Project, error) {
	if len(pointIDs) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(pointIDs))
	for i, pointID := range pointIDs {
		raw[i] = int64(pointID)
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT DISTINCT `+prefixColumns("p")+`
		FROM projects p
		JOIN project_points pp ON pp.project_id = p.id
		WHERE p.customer_id = $1 AND p.active AND p.status <> $2
		  AND pp.point_id = ANY($3)
		ORDER BY p.id`,
		int64(customerID), string(models.StatusFinished), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("list referencing projects: %w", err)
	}
	defer rows.Close()
	return s.collectWithAssociations(ctx, rows)
}

func (s *Postgres) FindOrCreateActionByName(ctx context.Context, customerID id.CustomerID, name string) (*models.Action, error) {
	q := s.q(ctx)
	action := &models.Action{Name: name}
	err := q.QueryRowContext(ctx, `
		INSERT INTO actions (customer_id, name)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, lower(name)) DO UPDATE SET name = actions.name
		RETURNING id, name`,
		int64(customerID), name,
	).Scan(&action.ID, &action.Name)
	if err != nil {
		return nil, fmt.Errorf("find or create action: %w", err)
	}
	return action, nil
}

func (s *Postgres) replaceScope(ctx context.Context, q querier, project *models.Project) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM project_points WHERE project_id = $1`, int64(project.ID)); err != nil {
		return fmt.Errorf("clear project scope: %w", err)
	}
	if len(project.RegistrationPoints) == 0 {
		return nil
	}
	raw := make([]int64, len(project.RegistrationPoints))
	for i, pointID := range project.RegistrationPoints {
		raw[i] = int64(pointID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO project_points (project_id, point_id)
		SELECT $1, unnest($2::bigint[])`,
		int64(project.ID), pq.Array(raw))
	if err != nil {
		return fmt.Errorf("insert project scope: %w", err)
	}
	return nil
}

func (s *Postgres) replaceActions(ctx context.Context, q querier, project *models.Project) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM project_actions WHERE project_id = $1`, int64(project.ID)); err != nil {
		return fmt.Errorf("clear project actions: %w", err)
	}
	if len(project.Actions) == 0 {
		return nil
	}
	raw := make([]int64, len(project.Actions))
	for i, action := range project.Actions {
		raw[i] = int64(action.ID)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO project_actions (project_id, action_id)
		SELECT $1, unnest($2::bigint[])`,
		int64(project.ID), pq.Array(raw))
	if err != nil {
		return fmt.Errorf("insert project actions: %w", err)
	}
	return nil
}

func (s *Postgres) loadAssociations(ctx context.Context, project *models.Project) error {
	q := s.q(ctx)
	scopeRows, err := q.QueryContext(ctx,
		`SELECT point_id FROM project_points WHERE project_id = $1 ORDER BY point_id`,
		int64(project.ID))
	if err != nil {
		return fmt.Errorf("load project scope: %w", err)
	}
	defer scopeRows.Close()
	project.RegistrationPoints = []id.PointID{}
	for scopeRows.Next() {
		var pointID int64
		if err := scopeRows.Scan(&pointID); err != nil {
			return fmt.Errorf("scan project scope: %w", err)
		}
		project.RegistrationPoints = append(project.RegistrationPoints, id.PointID(pointID))
	}
	if err := scopeRows.Err(); err != nil {
		return fmt.Errorf("iterate project scope: %w", err)
	}

	actionRows, err := q.QueryContext(ctx, `
		SELECT a.id, a.name
		FROM actions a
		JOIN project_actions pa ON pa.action_id = a.id
		WHERE pa.project_id = $1
		ORDER BY a.id`,
		int64(project.ID))
	if err != nil {
		return fmt.Errorf("load project actions: %w", err)
	}
	defer actionRows.Close()
	project.Actions = []models.Action{}
	for actionRows.Next() {
		var action models.Action
		if err := actionRows.Scan(&action.ID, &action.Name); err != nil {
			return fmt.Errorf("scan project action: %w", err)
		}
		project.Actions = append(project.Actions, action)
	}
	if err := actionRows.Err(); err != nil {
		return fmt.Errorf("iterate project actions: %w", err)
	}
	return nil
}

func (s *Postgres) collectWithAssociations(ctx context.Context, rows *sql.Rows) ([]*models.Project, error) {
	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	for _, project := range projects {
		if err := s.loadAssociations(ctx, project); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var project models.Project
	var parentID sql.NullInt64
	var durationEnd sql.NullTime
	var durationDays sql.NullInt64
	err := row.Scan(
		&project.ID, &project.CustomerID, &parentID, &project.Name, &project.Status,
		&project.Duration.Type, &project.Duration.Start, &durationEnd, &durationDays,
		&project.Percentage, &project.Active, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		parent := id.ProjectID(parentID.Int64)
		project.ParentProjectID = &parent
	}
	if durationEnd.Valid {
		project.Duration.End = durationEnd.Time
	}
	if durationDays.Valid {
		project.Duration.Days = int(durationDays.Int64)
	}
	return &project, nil
}

func prefixColumns(alias string) string {
	return alias + `.id, ` + alias + `.customer_id, ` + alias + `.parent_project_id, ` +
		alias + `.name, ` + alias + `.status, ` + alias + `.duration_type, ` +
		alias + `.duration_start, ` + alias + `.duration_end, ` + alias + `.duration_days, ` +
		alias + `.percentage, ` + alias + `.active, ` + alias + `.created_at, ` + alias + `.updated_at`
}

func nullProjectID(projectID *id.ProjectID) sql.NullInt64 {
	if projectID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*projectID), Valid: true}
}

func nullTime(duration models.Duration) sql.NullTime {
	if duration.Type != models.DurationCalendar {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: duration.End, Valid: true}
}

func nullDays(duration models.Duration) sql.NullInt64 {
	if duration.Type != models.DurationRegistrations {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(duration.Days), Valid: true}
}
