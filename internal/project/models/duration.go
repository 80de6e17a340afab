package models

import (
	"math"
	"time"

	dErrors "wastetrack/pkg/domain-errors"
)

// DurationType discriminates the duration tagged union.
type DurationType string

const (
	// DurationCalendar bounds the project by wall-clock start and end.
	DurationCalendar DurationType = "CALENDAR"
	// DurationRegistrations bounds the project by a quota of distinct
	// registration days on or after start.
	DurationRegistrations DurationType = "REGISTRATIONS"
)

// Duration is the tagged union describing how a project measures progress.
// CALENDAR uses Start/End; REGISTRATIONS uses Start/Days.
type Duration struct {
	Type  DurationType `json:"type"`
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end,omitzero"`
	Days  int          `json:"days,omitempty"`
}

// Validate checks the union is well-formed for its type.
func (d Duration) Validate() error {
	switch d.Type {
	case DurationCalendar:
		if d.Start.IsZero() || d.End.IsZero() {
			return dErrors.New(dErrors.CodeBadRequest, "calendar duration requires start and end")
		}
		if !d.End.After(d.Start) {
			return dErrors.New(dErrors.CodeBadRequest, "calendar duration end must be after start")
		}
	case DurationRegistrations:
		if d.Start.IsZero() {
			return dErrors.New(dErrors.CodeBadRequest, "registrations duration requires start")
		}
		if d.Days <= 0 {
			return dErrors.New(dErrors.CodeBadRequest, "registrations duration requires days > 0")
		}
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unknown duration type")
	}
	return nil
}

// Window returns the registration matching window. CALENDAR windows are
// closed; REGISTRATIONS windows stay open-ended until the distinct-day quota
// is consumed, so the end is nil.
func (d Duration) Window() (time.Time, *time.Time) {
	if d.Type == DurationCalendar {
		end := d.End
		return d.Start, &end
	}
	return d.Start, nil
}

// CalendarPercentage computes elapsed progress for a CALENDAR duration,
// rounded and clamped to [0, 100].
func (d Duration) CalendarPercentage(now time.Time) int {
	total := d.End.Sub(d.Start)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(d.Start)
	return clampPercentage(float64(elapsed) / float64(total) * 100)
}

// RegistrationsPercentage computes progress from the count of distinct
// registration days in scope, rounded and clamped to [0, 100].
func (d Duration) RegistrationsPercentage(distinctDays int) int {
	if d.Days <= 0 {
		return 100
	}
	return clampPercentage(float64(distinctDays) / float64(d.Days) * 100)
}

func clampPercentage(value float64) int {
	pct := int(math.Round(value))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
