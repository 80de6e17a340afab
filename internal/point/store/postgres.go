package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/platform/tx"
)

// Postgres persists registration points. Subtree queries are plain LIKE
// prefix matches over the materialized path column, so cascades stay single
// statements inside the caller's transaction.
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

const pointColumns = `id, customer_id, parent_id, path, name, label, active, amount, cost, deleted_at, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, point *models.Point) error {
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO registration_points
			(customer_id, parent_id, path, name, label, active, amount, cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		int64(point.CustomerID), nullPointID(point.ParentID), point.Path, point.Name,
		point.Label, point.Active, point.Amount, point.Cost, point.CreatedAt, point.UpdatedAt,
	).Scan(&point.ID)
	if err != nil {
		return fmt.Errorf("create registration point: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, customerID id.CustomerID, pointID id.PointID) (*models.Point, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT `+pointColumns+`
		FROM registration_points
		WHERE customer_id = $1 AND id = $2 AND deleted_at IS NULL`,
		int64(customerID), int64(pointID))
	point, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration point: %w", err)
	}
	return point, nil
}

func (s *Postgres) FindByIDs(ctx context.Context, customerID id.CustomerID, ids []id.PointID) ([]*models.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, pointID := range ids {
		raw[i] = int64(pointID)
	}
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+pointColumns+`
		FROM registration_points
		WHERE customer_id = $1 AND id = ANY($2) AND deleted_at IS NULL
		ORDER BY id`,
		int64(customerID), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find registration points: %w", err)
	}
	defer rows.Close()
	return collectPoints(rows)
}

func (s *Postgres) ListSubtree(ctx context.Context, customerID id.CustomerID, prefix string) ([]*models.Point, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT `+pointColumns+`
		FROM registration_points
		WHERE customer_id = $1 AND deleted_at IS NULL
		  AND (path = $2 OR path LIKE $2 || '.%')
		ORDER BY id`,
		int64(customerID), prefix)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	defer rows.Close()
	return collectPoints(rows)
}

func (s *Postgres) Update(ctx context.Context, point *models.Point) error {
	result, err := s.q(ctx).ExecContext(ctx, `
		UPDATE registration_points
		SET parent_id = $1, path = $2, name = $3, label = $4, active = $5,
		    amount = $6, cost = $7, updated_at = $8
		WHERE customer_id = $9 AND id = $10`,
		nullPointID(point.ParentID), point.Path, point.Name, point.Label, point.Active,
		point.Amount, point.Cost, point.UpdatedAt, int64(point.CustomerID), int64(point.ID))
	if err != nil {
		return fmt.Errorf("update registration point: %w", err)
	}
	return requireRow(result)
}

func (s *Postgres) UpdatePaths(ctx context.Context, points []*models.Point) error {
	for _, point := range points {
		result, err := s.q(ctx).ExecContext(ctx, `
			UPDATE registration_points
			SET path = $1, updated_at = $2
			WHERE id = $3`,
			point.Path, point.UpdatedAt, int64(point.ID))
		if err != nil {
			return fmt.Errorf("rebase path for point %d: %w", point.ID, err)
		}
		if err := requireRow(result); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) CascadeActive(ctx context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, active bool, now time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE registration_points
		SET active = $1, updated_at = $2
		WHERE customer_id = $3 AND deleted_at IS NULL
		  AND (id = $4 OR path = $5 OR path LIKE $5 || '.%')`,
		active, now, int64(customerID), int64(rootID), prefix)
	if err != nil {
		return fmt.Errorf("cascade active: %w", err)
	}
	return nil
}

func (s *Postgres) CascadeDelete(ctx context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, now time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		UPDATE registration_points
		SET deleted_at = $1, updated_at = $1
		WHERE customer_id = $2 AND deleted_at IS NULL
		  AND (id = $3 OR path = $4 OR path LIKE $4 || '.%')`,
		now, int64(customerID), int64(rootID), prefix)
	if err != nil {
		return fmt.Errorf("cascade delete: %w", err)
	}
	return nil
}

// LockSubtree takes a row lock on the subtree root so overlapping cascade
// operations on the same subtree serialize instead of interleaving.
func (s *Postgres) LockSubtree(ctx context.Context, customerID id.CustomerID, rootID id.PointID) error {
	var locked int64
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT id FROM registration_points
		WHERE customer_id = $1 AND id = $2
		FOR UPDATE`,
		int64(customerID), int64(rootID)).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock subtree root: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPoint(row rowScanner) (*models.Point, error) {
	var point models.Point
	var parentID sql.NullInt64
	var deletedAt sql.NullTime
	err := row.Scan(
		&point.ID, &point.CustomerID, &parentID, &point.Path, &point.Name, &point.Label,
		&point.Active, &point.Amount, &point.Cost, &deletedAt, &point.CreatedAt, &point.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		parent := id.PointID(parentID.Int64)
		point.ParentID = &parent
	}
	if deletedAt.Valid {
		point.DeletedAt = &deletedAt.Time
	}
	return &point, nil
}

func collectPoints(rows *sql.Rows) ([]*models.Point, error) {
	var points []*models.Point
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration point: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registration points: %w", err)
	}
	return points, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullPointID(pointID *id.PointID) sql.NullInt64 {
	if pointID == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*pointID), Valid: true}
}
