package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wastetrack/internal/association"
	"wastetrack/internal/events"
	projectmodels "wastetrack/internal/project/models"
	"wastetrack/internal/registration/metrics"
	"wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/platform/tx"
	"wastetrack/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, registration *models.Registration) error
	FindByIDs(ctx context.Context, ids []id.RegistrationID) ([]*models.Registration, error)
}

type ProjectStore interface {
	ListOngoingByCustomer(ctx context.Context, customerID id.CustomerID) ([]*projectmodels.Project, error)
	Update(ctx context.Context, project *projectmodels.Project) error
}

// Guard validates the registration point before a ledger append.
type Guard interface {
	AssertDependenciesExist(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) error
}

type EventPublisher interface {
	Emit(ctx context.Context, eventType events.Type, customerID id.CustomerID, subject string, payload map[string]any)
}

// Service is the ledger boundary: it appends registrations and fans the new
// row out to ongoing projects through the association engine. The append and
// the fan-out run in one transaction, so a committed registration is already
// linked everywhere it matches.
type Service struct {
	store    Store
	projects ProjectStore
	engine   *association.Engine
	guard    Guard
	runner   tx.Runner
	logger   *slog.Logger
	events   EventPublisher
	metrics  *metrics.Metrics
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
func New(store Store, projects ProjectStore, engine *association.Engine, guard Guard, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, projects: projects, engine: engine, guard: guard, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a registration and inserts links into every ongoing project
// whose scope and window admit it. Projects measuring registration days get
// their derived state refreshed in the same transaction.
func (s *Service) Record(ctx context.Context, customerID id.CustomerID, pointID id.PointID, date time.Time, amount, cost float64) (*models.Registration, error) {
	start := time.Now()
	now := requestcontext.Now(ctx)

	registration, err := models.NewRegistration(customerID, pointID, date, amount, cost, now)
	if err != nil {
		return nil, err
	}

	var linkedProjects []id.ProjectID
	err = s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.AssertDependenciesExist(txCtx, customerID, []id.PointID{pointID}); err != nil {
			return err
		}
		if err := s.store.Create(txCtx, registration); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append registration")
		}

		ongoing, err := s.projects.ListOngoingByCustomer(txCtx, customerID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ongoing projects")
		}
		for _, project := range ongoing {
			linked, err := s.engine.LinkRegistration(txCtx, project, registration)
			if err != nil {
				return err
			}
			if !linked {
				continue
			}
			linkedProjects = append(linkedProjects, project.ID)
			if err := s.refreshProject(txCtx, project, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observeRecord(start, len(linkedProjects))
	s.emit(ctx, events.TypeRegistrationRecorded, customerID, registration.ID.String(), map[string]any{
		"registration_point_id": pointID,
		"date":                  registration.DateKey(),
		"linked_projects":       len(linkedProjects),
	})
	for _, projectID := range linkedProjects {
		s.emit(ctx, events.TypeRegistrationLinked, customerID, projectID.String(), map[string]any{
			"registration_id": registration.ID,
		})
	}
	s.logInfo(ctx, "registration recorded",
		"registration_id", registration.ID, "point_id", pointID, "linked_projects", len(linkedProjects))
	return registration, nil
}

// Find returns ledger rows by id.
func (s *Service) Find(ctx context.Context, customerID id.CustomerID, ids []id.RegistrationID) ([]*models.Registration, error) {
	found, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrations")
	}
	scoped := make([]*models.Registration, 0, len(found))
	for _, registration := range found {
		if registration.CustomerID == customerID {
			scoped = append(scoped, registration)
		}
	}
	return scoped, nil
}

// refreshProject re-derives a project after a new link landed. Only derived
// statuses move; a duplicate date leaves the distinct-day count, and so the
// derived state, unchanged.
func (s *Service) refreshProject(ctx context.Context, project *projectmodels.Project, now time.Time) error {
	distinctDays := 0
	if project.Duration.Type == projectmodels.DurationRegistrations {
		var err error
		distinctDays, err = s.engine.DistinctDays(ctx, project)
		if err != nil {
			return err
		}
	}
	before := project.Status
	project.Refresh(now, distinctDays)
	project.UpdatedAt = now
	if err := s.projects.Update(ctx, project); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update project state")
	}
	if before != project.Status {
		s.logInfo(ctx, "project status derived",
			"project_id", project.ID, "from", before, "to", project.Status)
	}
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

func (s *Service) observeRecord(start time.Time, linksInserted int) {
	if s.metrics != nil {
		s.metrics.IncrementRecorded()
		s.metrics.AddLinksInserted(linksInserted)
		s.metrics.ObserveRecord(start)
	}
}
