package models

import (
	"time"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

// Action is a free-form initiative attached to a project. Actions referenced
// by name without an id are created on the fly.
type Action struct {
	ID   id.ActionID `json:"id"`
	Name string      `json:"name"`
}

// Project groups registrations over a duration to measure a waste-reduction
// initiative.
//
// Invariants:
//   - Duration is well-formed for its type
//   - RegistrationPoints empty means "all points of the customer"
//   - At most one non-FINISHED follow-up exists per parent at a time
//   - Percentage is derived, never accepted from clients
type Project struct {
	ID                 id.ProjectID  `json:"id"`
	CustomerID         id.CustomerID `json:"customerId"`
	ParentProjectID    *id.ProjectID `json:"parentProjectId,omitempty"`
	Name               string        `json:"name"`
	Status             Status        `json:"status"`
	Duration           Duration      `json:"duration"`
	RegistrationPoints []id.PointID  `json:"registrationPoints"`
	Actions            []Action      `json:"actions"`
	Percentage         int           `json:"percentage"`
	Active             bool          `json:"active"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// NewProject validates attributes and constructs a project in its initial
// derived state.
func NewProject(customerID id.CustomerID, name string, duration Duration, points []id.PointID, now time.Time) (*Project, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "project name cannot be empty")
	}
	if err := duration.Validate(); err != nil {
		return nil, err
	}
	p := &Project{
		CustomerID:         customerID,
		Name:               name,
		Duration:           duration,
		RegistrationPoints: points,
		Actions:            []Action{},
		Active:             true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	p.Status, p.Percentage = p.Derive(now, 0)
	return p, nil
}

// IsFollowUp reports whether the project is chained to a parent.
func (p *Project) IsFollowUp() bool {
	return p.ParentProjectID != nil
}

// IsOngoing reports whether the project still constrains its registration
// points: active and not yet finished.
func (p *Project) IsOngoing() bool {
	return p.Active && p.Status != StatusFinished
}

// TracksAllPoints reports whether the scope is customer-wide.
func (p *Project) TracksAllPoints() bool {
	return len(p.RegistrationPoints) == 0
}

// InScope reports whether a registration point falls inside the project's
// scope.
func (p *Project) InScope(pointID id.PointID) bool {
	if p.TracksAllPoints() {
		return true
	}
	for _, scoped := range p.RegistrationPoints {
		if scoped == pointID {
			return true
		}
	}
	return false
}

// Derive computes the derived status band and percentage for the project.
// distinctDays is the count of distinct registration dates in scope on or
// after start; it only matters for REGISTRATIONS durations.
//
// The result is the derived band only: explicit (ON_HOLD, FINISHED) and
// aggregated (PENDING_FOLLOWUP, RUNNING_FOLLOWUP) states take precedence and
// are handled by the caller.
func (p *Project) Derive(now time.Time, distinctDays int) (Status, int) {
	var pct int
	switch p.Duration.Type {
	case DurationCalendar:
		pct = p.Duration.CalendarPercentage(now)
	case DurationRegistrations:
		pct = p.Duration.RegistrationsPercentage(distinctDays)
	}
	if p.Duration.Type == DurationCalendar && now.Before(p.Duration.Start) {
		return StatusPendingStart, 0
	}
	if pct < 100 {
		return StatusRunning, pct
	}
	return StatusPendingInput, pct
}

// Refresh applies derivation to the project in place. Non-derived persisted
// statuses are preserved; the percentage always updates.
func (p *Project) Refresh(now time.Time, distinctDays int) {
	status, pct := p.Derive(now, distinctDays)
	p.Percentage = pct
	if p.Status.IsDerived() || p.Status == "" {
		p.Status = status
	}
}

// CanSetStatus checks an explicit client-requested status transition.
func (p *Project) CanSetStatus(next Status) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown project status")
	}
	if !next.CanExplicitlySet() {
		return dErrors.Newf(dErrors.CodeBadRequest, "status %s cannot be set directly", next)
	}
	if p.Status == StatusFinished && next != StatusFinished {
		return dErrors.New(dErrors.CodeConflict, "finished project cannot change status")
	}
	if next == StatusPendingFollowUp && p.Status != StatusPendingInput && p.Status != StatusPendingFollowUp {
		return dErrors.New(dErrors.CodeConflict, "project must be pending input before awaiting follow-up")
	}
	return nil
}

// ApplyStatus records an explicit status transition.
func (p *Project) ApplyStatus(next Status, now time.Time) {
	p.Status = next
	p.UpdatedAt = now
}

// ApplyFinish marks the project finished. Callers cascade the same transition
// to every follow-up.
func (p *Project) ApplyFinish(now time.Time) {
	p.Status = StatusFinished
	p.UpdatedAt = now
}

// AggregateFollowUps derives a parent's status from the statuses of all its
// live follow-ups (FINISHED ones no longer drive the parent). Returns the
// aggregated status and true when every live follow-up agrees on one of the
// recognized aggregate states; mixed or empty sets leave the parent untouched.
func AggregateFollowUps(followUps []*Project) (Status, bool) {
	live := make([]*Project, 0, len(followUps))
	for _, followUp := range followUps {
		if followUp.Status != StatusFinished {
			live = append(live, followUp)
		}
	}
	if len(live) == 0 {
		return "", false
	}
	first := live[0].Status
	for _, followUp := range live[1:] {
		if followUp.Status != first {
			return "", false
		}
	}
	switch first {
	case StatusOnHold:
		return StatusOnHold, true
	case StatusPendingStart:
		return StatusPendingFollowUp, true
	case StatusRunning:
		return StatusRunningFollowUp, true
	}
	return "", false
}
