package store

import (
	"context"
	"time"

	"wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
)

// Store is the full ledger surface. Memory and postgres implementations are
// interchangeable behind it.
type Store interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByIDs(ctx context.Context, ids []id.RegistrationID) ([]*models.Registration, error)
	FindInScope(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID, from time.Time, until *time.Time) ([]*models.Registration, error)
}
