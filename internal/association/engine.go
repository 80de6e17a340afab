// Package association owns the derived many-to-many linkage between projects
// and registrations. Links are never client-mutable: the full rescope
// (delete-then-reinsert) and the incremental insert hook share one
// window/scope predicate so the two paths cannot diverge.
package association

import (
	"context"
	"log/slog"
	"time"

	projectmodels "wastetrack/internal/project/models"
	registrationmodels "wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

// RegistrationReader is the ledger read surface the engine needs.
type RegistrationReader interface {
	FindInScope(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID, from time.Time, until *time.Time) ([]*registrationmodels.Registration, error)
	FindByIDs(ctx context.Context, ids []id.RegistrationID) ([]*registrationmodels.Registration, error)
}

// LinkStore owns the project_registrations rows.
type LinkStore interface {
	ReplaceForProject(ctx context.Context, projectID id.ProjectID, registrationIDs []id.RegistrationID) error
	Insert(ctx context.Context, projectID id.ProjectID, registrationID id.RegistrationID) error
	ListByProject(ctx context.Context, projectID id.ProjectID) ([]id.RegistrationID, error)
}

// Engine recomputes project-registration links.
type Engine struct {
	registrations RegistrationReader
	links         LinkStore
	logger        *slog.Logger
}

func NewEngine(registrations RegistrationReader, links LinkStore, logger *slog.Logger) *Engine {
	return &Engine{registrations: registrations, links: links, logger: logger}
}

// Matches is the single scope/window predicate shared by the rescope and
// incremental paths.
func Matches(project *projectmodels.Project, registration *registrationmodels.Registration) bool {
	if registration.CustomerID != project.CustomerID {
		return false
	}
	if !project.InScope(registration.PointID) {
		return false
	}
	start, until := project.Duration.Window()
	if registration.Date.Before(registrationmodels.Day(start)) {
		return false
	}
	if until != nil && registration.Date.After(*until) {
		return false
	}
	return true
}

// RecomputeLinks replaces every link row for the project with the currently
// matching registration set. Replacement is idempotent; running it twice
// with no intervening ledger change yields the same rows. Callers run it
// inside the same transaction as the project mutation that triggered it.
func (e *Engine) RecomputeLinks(ctx context.Context, project *projectmodels.Project) ([]id.RegistrationID, error) {
	start, until := project.Duration.Window()
	matching, err := e.registrations.FindInScope(ctx, project.CustomerID, project.RegistrationPoints, start, until)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to scan registrations for project scope")
	}
	registrationIDs := make([]id.RegistrationID, 0, len(matching))
	for _, registration := range matching {
		registrationIDs = append(registrationIDs, registration.ID)
	}
	if err := e.links.ReplaceForProject(ctx, project.ID, registrationIDs); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace project links")
	}
	if e.logger != nil {
		e.logger.DebugContext(ctx, "recomputed project links",
			"project_id", project.ID, "links", len(registrationIDs))
	}
	return registrationIDs, nil
}

// LinkRegistration applies the incremental path for one new ledger row:
// insert the link when the predicate admits it. The insert is idempotent, so
// a registration racing a concurrent rescope is recorded exactly once.
func (e *Engine) LinkRegistration(ctx context.Context, project *projectmodels.Project, registration *registrationmodels.Registration) (bool, error) {
	if !Matches(project, registration) {
		return false, nil
	}
	if err := e.links.Insert(ctx, project.ID, registration.ID); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to insert project link")
	}
	return true, nil
}

// DistinctDays counts the distinct civil dates, on or after the project's
// start, among the registrations currently linked to it. This is the input
// to REGISTRATIONS-type percentage derivation.
func (e *Engine) DistinctDays(ctx context.Context, project *projectmodels.Project) (int, error) {
	linked, err := e.links.ListByProject(ctx, project.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list project links")
	}
	if len(linked) == 0 {
		return 0, nil
	}
	registrations, err := e.registrations.FindByIDs(ctx, linked)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load linked registrations")
	}
	start := registrationmodels.Day(project.Duration.Start)
	days := make(map[string]bool)
	for _, registration := range registrations {
		if registration.Date.Before(start) {
			continue
		}
		days[registration.DateKey()] = true
	}
	return len(days), nil
}

// LinkCount returns the current number of links for a project.
func (e *Engine) LinkCount(ctx context.Context, project *projectmodels.Project) (int, error) {
	linked, err := e.links.ListByProject(ctx, project.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list project links")
	}
	return len(linked), nil
}
