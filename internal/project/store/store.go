package store

import (
	"context"

	"wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
)

// Store is the full project store surface. Memory and postgres
// implementations are interchangeable behind it.
type Store interface {
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error)
	ListFollowUps(ctx context.Context, customerID id.CustomerID, parentID id.ProjectID) ([]*models.Project, error)
	ListOngoingByCustomer(ctx context.Context, customerID id.CustomerID) ([]*models.Project, error)
	ListOngoingReferencing(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) ([]*models.Project, error)
	FindOrCreateActionByName(ctx context.Context, customerID id.CustomerID, name string) (*models.Action, error)
}
