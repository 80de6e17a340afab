package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wastetrack/internal/events"
	"wastetrack/internal/point/metrics"
	"wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/platform/tx"
	"wastetrack/pkg/requestcontext"
)

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

// Guard runs the cross-entity checks a hierarchy mutation must pass.
type Guard interface {
	AssertAncestorsActive(ctx context.Context, point *models.Point) error
	AssertNoOngoingProject(ctx context.Context, point *models.Point) error
}

type EventPublisher interface {
	Emit(ctx context.Context, eventType events.Type, customerID id.CustomerID, subject string, payload map[string]any)
}

// Service orchestrates the registration point hierarchy: creation, reparent
// with subtree rebase, activation cascades, and guarded soft deletion.
type Service struct {
	store   Store
	guard   Guard
	runner  tx.Runner
	logger  *slog.Logger
	events  EventPublisher
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(store Store, guard Guard, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a point, as a root when parentID is nil or as a child
// otherwise. A child below an inactive parent starts inactive so activation
// reachability holds from birth.
func (s *Service) Create(ctx context.Context, customerID id.CustomerID, parentID *id.PointID, name, label string, amount, cost float64) (*models.Point, error) {
	name = strings.TrimSpace(name)
	now := requestcontext.Now(ctx)

	var created *models.Point
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		var parent *models.Point
		if parentID != nil {
			var err error
			parent, err = s.store.FindByID(txCtx, customerID, *parentID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "parent point not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent point")
			}
		}

		point, err := models.NewPoint(customerID, parent, name, label, amount, cost, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if parent != nil && !parent.Active {
			point.Active = false
		}

		if err := s.store.Create(txCtx, point); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create point")
		}
		created = point
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.incrementPointsCreated()
	s.logInfo(ctx, "point created", "point_id", created.ID, "depth", created.Depth())
	return created, nil
}

// Get returns a live point by id.
func (s *Service) Get(ctx context.Context, customerID id.CustomerID, pointID id.PointID) (*models.Point, error) {
	point, err := s.store.FindByID(ctx, customerID, pointID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "point not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load point")
	}
	return point, nil
}

// Subtree returns the point and all of its live descendants, root first.
func (s *Service) Subtree(ctx context.Context, customerID id.CustomerID, pointID id.PointID) ([]*models.Point, error) {
	point, err := s.Get(ctx, customerID, pointID)
	if err != nil {
		return nil, err
	}
	descendants, err := s.store.ListSubtree(ctx, customerID, point.SubtreePrefix())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subtree")
	}
	return append([]*models.Point{point}, descendants...), nil
}

// Reparent moves a point, and with it its whole subtree, under a new parent
// (nil for root). Every descendant's materialized path is rebased by prefix
// substitution in the same transaction, so no read ever sees a half-moved
// subtree.
func (s *Service) Reparent(ctx context.Context, customerID id.CustomerID, pointID id.PointID, newParentID *id.PointID) (*models.Point, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	var moved *models.Point
	var subtreeSize int
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.LockSubtree(txCtx, customerID, pointID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock subtree")
		}

		point, err := s.store.FindByID(txCtx, customerID, pointID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load point")
		}

		var newParent *models.Point
		if newParentID != nil {
			if *newParentID == point.ID {
				return dErrors.New(dErrors.CodeConflict, "point cannot become its own parent")
			}
			newParent, err = s.store.FindByID(txCtx, customerID, *newParentID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "new parent point not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load new parent")
			}
			if newParent.IsDescendantOf(point) {
				return dErrors.Newf(dErrors.CodeConflict,
					"point %s cannot move under its own descendant %s", point.ID, newParent.ID)
			}
			if point.Active && !newParent.Active {
				return dErrors.New(dErrors.CodeConflict, "cannot move an active point under an inactive parent")
			}
		}

		oldPrefix := point.SubtreePrefix()
		point.ApplyParent(newParent, now)
		newPrefix := point.SubtreePrefix()

		descendants, err := s.store.ListSubtree(txCtx, customerID, oldPrefix)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subtree")
		}
		for _, descendant := range descendants {
			descendant.Rebase(oldPrefix, newPrefix)
			descendant.UpdatedAt = now
		}

		if err := s.store.Update(txCtx, point); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update point")
		}
		if err := s.store.UpdatePaths(txCtx, descendants); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to rebase subtree")
		}
		moved = point
		subtreeSize = len(descendants)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observeReparent(start, subtreeSize)
	s.emit(ctx, events.TypePointReparented, customerID, moved.ID.String(), map[string]any{
		"new_parent_id": newParentID,
		"subtree_size":  subtreeSize,
	})
	s.logInfo(ctx, "point reparented", "point_id", moved.ID, "subtree_size", subtreeSize)
	return moved, nil
}

// SetActive toggles activation. Activation requires every ancestor to be
// active; both directions cascade the new state to the whole subtree.
func (s *Service) SetActive(ctx context.Context, customerID id.CustomerID, pointID id.PointID, active bool) (*models.Point, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	var toggled *models.Point
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.LockSubtree(txCtx, customerID, pointID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock subtree")
		}

		point, err := s.store.FindByID(txCtx, customerID, pointID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load point")
		}
		if point.Active == active {
			toggled = point
			return nil
		}
		if active {
			if err := s.guard.AssertAncestorsActive(txCtx, point); err != nil {
				return err
			}
		}

		if err := s.store.CascadeActive(txCtx, customerID, point.ID, point.SubtreePrefix(), active, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cascade activation")
		}
		point.ApplyActive(active, now)
		toggled = point
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observeCascade(start)
	eventType := events.TypePointDeactivated
	if active {
		eventType = events.TypePointActivated
	}
	s.emit(ctx, eventType, customerID, toggled.ID.String(), nil)
	return toggled, nil
}

// Remove soft-deletes a point and its whole subtree. Refused while the point
// or any descendant is referenced by an ongoing project.
func (s *Service) Remove(ctx context.Context, customerID id.CustomerID, pointID id.PointID) error {
	start := time.Now()
	now := requestcontext.Now(ctx)

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.LockSubtree(txCtx, customerID, pointID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock subtree")
		}

		point, err := s.store.FindByID(txCtx, customerID, pointID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "point not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load point")
		}
		if err := s.guard.AssertNoOngoingProject(txCtx, point); err != nil {
			return err
		}

		if err := s.store.CascadeDelete(txCtx, customerID, point.ID, point.SubtreePrefix(), now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cascade deletion")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.observeCascade(start)
	s.incrementPointsRemoved()
	s.emit(ctx, events.TypePointRemoved, customerID, pointID.String(), nil)
	s.logInfo(ctx, "point removed", "point_id", pointID)
	return nil
}

func (s *Service) emit(ctx context.Context, eventType events.Type, customerID id.CustomerID, subject string, payload map[string]any) {
	if s.events != nil {
		s.events.Emit(ctx, eventType, customerID, subject, payload)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) incrementPointsCreated() {
	if s.metrics != nil {
		s.metrics.IncrementPointsCreated()
	}
}

func (s *Service) incrementPointsRemoved() {
	if s.metrics != nil {
		s.metrics.IncrementPointsRemoved()
	}
}

func (s *Service) observeReparent(start time.Time, subtreeSize int) {
	if s.metrics != nil {
		s.metrics.ObserveReparent(start, subtreeSize)
	}
}

func (s *Service) observeCascade(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCascade(start)
	}
}
