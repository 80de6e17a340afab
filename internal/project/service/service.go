package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"wastetrack/internal/association"
	"wastetrack/internal/events"
	"wastetrack/internal/project/metrics"
	"wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/sentinel"
	"wastetrack/pkg/platform/tx"
	"wastetrack/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error)
	ListFollowUps(ctx context.Context, customerID id.CustomerID, parentID id.ProjectID) ([]*models.Project, error)
	FindOrCreateActionByName(ctx context.Context, customerID id.CustomerID, name string) (*models.Action, error)
}

// Guard validates scope points before a project mutation.
type Guard interface {
	AssertDependenciesExist(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) error
}

// Cache is an optional read accelerator for derived snapshots.
type Cache interface {
	Get(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error)
	Set(ctx context.Context, project *models.Project) error
	Invalidate(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) error
}

type EventPublisher interface {
	Emit(ctx context.Context, eventType events.Type, customerID id.CustomerID, subject string, payload map[string]any)
}

// Service orchestrates the project lifecycle: creation with follow-up
// chaining, partial updates with link recomputation, explicit status
// transitions, and live derivation at read time.
type Service struct {
	store   Store
	guard   Guard
	engine  *association.Engine
	runner  tx.Runner
	cache   Cache
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

func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a Service.
func New(store Store, guard Guard, engine *association.Engine, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, engine: engine, runner: runner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates attributes, applies the follow-up chaining rules when a
// parent is named, resolves actions, and computes the initial links and
// derived state, all in one transaction.
//
// Follow-up rules: the parent must currently be awaiting a follow-up; a
// sibling follow-up still in PENDING_FOLLOWUP is finished automatically;
// any other unfinished sibling blocks creation.
func (s *Service) Create(ctx context.Context, customerID id.CustomerID, req *models.CreateProjectRequest) (*models.Project, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var created *models.Project
	var autoFinished []id.ProjectID
	var linkCount int
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.guard.AssertDependenciesExist(txCtx, customerID, req.RegistrationPoints); err != nil {
			return err
		}

		project, err := models.NewProject(customerID, req.Name, req.Duration, req.RegistrationPoints, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}

		var parent *models.Project
		if req.ParentProjectID != nil {
			parent, err = s.store.FindByID(txCtx, customerID, *req.ParentProjectID)
			if err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "parent project not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent project")
			}
			if parent.Status != models.StatusPendingFollowUp {
				return dErrors.Newf(dErrors.CodeConflict,
					"project %s is not awaiting a follow-up", parent.ID)
			}
			siblings, err := s.store.ListFollowUps(txCtx, customerID, parent.ID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-ups")
			}
			for _, sibling := range siblings {
				switch sibling.Status {
				case models.StatusFinished:
				case models.StatusPendingFollowUp:
					sibling.ApplyFinish(now)
					if err := s.store.Update(txCtx, sibling); err != nil {
						return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finish superseded follow-up")
					}
					autoFinished = append(autoFinished, sibling.ID)
				default:
					return dErrors.Newf(dErrors.CodeConflict,
						"project %s already has an ongoing follow-up %s", parent.ID, sibling.ID)
				}
			}
			parentID := parent.ID
			project.ParentProjectID = &parentID
		}

		project.Actions, err = s.resolveActions(txCtx, customerID, req.ActionNames)
		if err != nil {
			return err
		}

		if err := s.store.Create(txCtx, project); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create project")
		}
		linkCount, err = s.relink(txCtx, project, now)
		if err != nil {
			return err
		}
		if err := s.store.Update(txCtx, project); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist derived state")
		}
		if parent != nil {
			if err := s.reaggregateParent(txCtx, customerID, parent.ID, now); err != nil {
				return err
			}
		}
		created = project
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, customerID, autoFinished...)
	if req.ParentProjectID != nil {
		s.invalidate(ctx, customerID, *req.ParentProjectID)
	}
	s.incrementCreated()
	for _, supersededID := range autoFinished {
		s.incrementAutoFinished()
		s.emit(ctx, events.TypeProjectAutoFinished, customerID, supersededID.String(), map[string]any{
			"superseded_by": created.ID,
		})
	}
	s.emit(ctx, events.TypeProjectCreated, customerID, created.ID.String(), map[string]any{
		"links": linkCount,
	})
	s.logInfo(ctx, "project created",
		"project_id", created.ID, "status", created.Status, "links", linkCount)
	return created, nil
}

// Patch applies a partial update. Scope or window changes trigger a full
// link recomputation; an explicit FINISHED transition cascades to every
// follow-up; any follow-up status change re-aggregates the parent.
func (s *Service) Patch(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID, req *models.PatchProjectRequest) (*models.Project, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var updated *models.Project
	var cascaded []id.ProjectID
	var statusChanged, finished bool
	linkCount := -1
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		project, err := s.store.FindByID(txCtx, customerID, projectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "project not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
		}
		if project.Status == models.StatusFinished {
			return dErrors.New(dErrors.CodeConflict, "finished project cannot be modified")
		}

		if req.Name != nil {
			project.Name = *req.Name
		}
		if req.Duration != nil {
			project.Duration = *req.Duration
		}
		if req.RegistrationPoints != nil {
			if err := s.guard.AssertDependenciesExist(txCtx, customerID, *req.RegistrationPoints); err != nil {
				return err
			}
			project.RegistrationPoints = *req.RegistrationPoints
		}
		if req.ActionNames != nil {
			project.Actions, err = s.resolveActions(txCtx, customerID, *req.ActionNames)
			if err != nil {
				return err
			}
		}

		if req.Status != nil {
			if err := project.CanSetStatus(*req.Status); err != nil {
				return err
			}
			statusChanged = project.Status != *req.Status
			if *req.Status == models.StatusFinished {
				finished = true
				project.ApplyFinish(now)
				followUps, err := s.store.ListFollowUps(txCtx, customerID, project.ID)
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-ups")
				}
				for _, followUp := range followUps {
					if followUp.Status == models.StatusFinished {
						continue
					}
					followUp.ApplyFinish(now)
					if err := s.store.Update(txCtx, followUp); err != nil {
						return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finish follow-up")
					}
					cascaded = append(cascaded, followUp.ID)
				}
			} else {
				project.ApplyStatus(*req.Status, now)
			}
		}

		if req.RescopesLinks() && !finished {
			linkCount, err = s.relink(txCtx, project, now)
			if err != nil {
				return err
			}
		}

		project.UpdatedAt = now
		if err := s.store.Update(txCtx, project); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update project")
		}
		if project.IsFollowUp() && statusChanged {
			if err := s.reaggregateParent(txCtx, customerID, *project.ParentProjectID, now); err != nil {
				return err
			}
		}
		updated = project
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, customerID, projectID)
	s.invalidate(ctx, customerID, cascaded...)
	if updated.ParentProjectID != nil {
		s.invalidate(ctx, customerID, *updated.ParentProjectID)
	}
	if finished {
		s.incrementFinished(1 + len(cascaded))
		s.emit(ctx, events.TypeProjectFinished, customerID, projectID.String(), map[string]any{
			"cascaded_follow_ups": len(cascaded),
		})
	}
	if linkCount >= 0 {
		s.emit(ctx, events.TypeProjectRelinked, customerID, projectID.String(), map[string]any{
			"links": linkCount,
		})
	}
	s.logInfo(ctx, "project updated",
		"project_id", projectID, "status", updated.Status, "relinked", linkCount >= 0)
	return updated, nil
}

// Get returns the project with its percentage and derived status computed at
// read time. The optional cache only short-circuits the derivation; a cache
// error degrades to a live read.
func (s *Service) Get(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, customerID, projectID)
		if err != nil {
			s.logWarn(ctx, "project cache read failed", "project_id", projectID, "error", err)
		} else if cached != nil {
			s.cacheHit()
			return cached, nil
		}
		s.cacheMiss()
	}

	project, err := s.store.FindByID(ctx, customerID, projectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}

	distinctDays := 0
	if project.Duration.Type == models.DurationRegistrations {
		distinctDays, err = s.engine.DistinctDays(ctx, project)
		if err != nil {
			return nil, err
		}
	}
	project.Refresh(requestcontext.Now(ctx), distinctDays)

	if s.cache != nil {
		if err := s.cache.Set(ctx, project); err != nil {
			s.logWarn(ctx, "project cache write failed", "project_id", projectID, "error", err)
		}
	}
	return project, nil
}

// FollowUps lists the follow-up chain of a project.
func (s *Service) FollowUps(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) ([]*models.Project, error) {
	if _, err := s.store.FindByID(ctx, customerID, projectID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "project not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}
	followUps, err := s.store.ListFollowUps(ctx, customerID, projectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-ups")
	}
	return followUps, nil
}

// relink recomputes the project's links and refreshes its derived state in
// place. Callers persist the project afterwards.
func (s *Service) relink(ctx context.Context, project *models.Project, now time.Time) (int, error) {
	start := time.Now()
	linked, err := s.engine.RecomputeLinks(ctx, project)
	if err != nil {
		return 0, err
	}
	distinctDays := 0
	if project.Duration.Type == models.DurationRegistrations {
		distinctDays, err = s.engine.DistinctDays(ctx, project)
		if err != nil {
			return 0, err
		}
	}
	project.Refresh(now, distinctDays)
	s.observeRelink(start, len(linked))
	return len(linked), nil
}

// reaggregateParent re-derives a parent's aggregated status from its live
// follow-ups. Mixed or empty follow-up states leave the parent untouched.
func (s *Service) reaggregateParent(ctx context.Context, customerID id.CustomerID, parentID id.ProjectID, now time.Time) error {
	parent, err := s.store.FindByID(ctx, customerID, parentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent project")
	}
	if parent.Status == models.StatusFinished {
		return nil
	}
	followUps, err := s.store.ListFollowUps(ctx, customerID, parentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list follow-ups")
	}
	status, ok := models.AggregateFollowUps(followUps)
	if !ok || parent.Status == status {
		return nil
	}
	parent.Status = status
	parent.UpdatedAt = now
	if err := s.store.Update(ctx, parent); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update parent project")
	}
	s.logInfo(ctx, "parent status aggregated", "project_id", parent.ID, "status", status)
	return nil
}

func (s *Service) resolveActions(ctx context.Context, customerID id.CustomerID, names []string) ([]models.Action, error) {
	actions := make([]models.Action, 0, len(names))
	for _, name := range names {
		action, err := s.store.FindOrCreateActionByName(ctx, customerID, name)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve action")
		}
		actions = append(actions, *action)
	}
	return actions, nil
}

func (s *Service) invalidate(ctx context.Context, customerID id.CustomerID, projectIDs ...id.ProjectID) {
	if s.cache == nil {
		return
	}
	for _, projectID := range projectIDs {
		if err := s.cache.Invalidate(ctx, customerID, projectID); err != nil {
			s.logWarn(ctx, "project cache invalidation failed", "project_id", projectID, "error", err)
		}
	}
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

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Service) incrementCreated() {
	if s.metrics != nil {
		s.metrics.IncrementProjectsCreated()
	}
}

func (s *Service) incrementFinished(n int) {
	if s.metrics != nil {
		for range n {
			s.metrics.IncrementProjectsFinished()
		}
	}
}

func (s *Service) incrementAutoFinished() {
	if s.metrics != nil {
		s.metrics.IncrementAutoFinished()
	}
}

func (s *Service) observeRelink(start time.Time, links int) {
	if s.metrics != nil {
		s.metrics.ObserveRelink(start, links)
	}
}

func (s *Service) cacheHit() {
	if s.metrics != nil {
		s.metrics.IncrementCacheHit()
	}
}

func (s *Service) cacheMiss() {
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}
}
