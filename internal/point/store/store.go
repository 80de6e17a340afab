package store

import (
	"context"
	"time"

	"wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
)

// Store is the full point store surface. Memory and postgres implementations
// are interchangeable behind it.
type Store interface {
	Create(ctx context.Context, point *models.Point) error
	FindByID(ctx context.Context, customerID id.CustomerID, pointID id.PointID) (*models.Point, error)
	FindByIDs(ctx context.Context, customerID id.CustomerID, ids []id.PointID) ([]*models.Point, error)
	ListSubtree(ctx context.Context, customerID id.CustomerID, prefix string) ([]*models.Point, error)
	Update(ctx context.Context, point *models.Point) error
	UpdatePaths(ctx context.Context, points []*models.Point) error
	CascadeActive(ctx context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, active bool, now time.Time) error
	CascadeDelete(ctx context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, now time.Time) error
	LockSubtree(ctx context.Context, customerID id.CustomerID, rootID id.PointID) error
}
