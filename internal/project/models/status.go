package models

// Status is the project lifecycle state.
//
// PENDING_START, RUNNING, and PENDING_INPUT form the derived band: they are
// recomputed from the duration and registration facts on every read and after
// any mutation that could move them. The remaining states are set explicitly
// (ON_HOLD, FINISHED) or by follow-up aggregation (PENDING_FOLLOWUP,
// RUNNING_FOLLOWUP) and are never overwritten by derivation.
type Status string

const (
	StatusPendingStart    Status = "PENDING_START"
	StatusRunning         Status = "RUNNING"
	StatusPendingInput    Status = "PENDING_INPUT"
	StatusPendingFollowUp Status = "PENDING_FOLLOWUP"
	StatusRunningFollowUp Status = "RUNNING_FOLLOWUP"
	StatusOnHold          Status = "ON_HOLD"
	StatusFinished        Status = "FINISHED"
)

var validStatuses = map[Status]bool{
	StatusPendingStart:    true,
	StatusRunning:         true,
	StatusPendingInput:    true,
	StatusPendingFollowUp: true,
	StatusRunningFollowUp: true,
	StatusOnHold:          true,
	StatusFinished:        true,
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsDerived reports whether the status belongs to the derived band.
func (s Status) IsDerived() bool {
	switch s {
	case StatusPendingStart, StatusRunning, StatusPendingInput:
		return true
	}
	return false
}

// explicitTransitions lists the status values a client may request directly.
// Everything else is derived or aggregated.
var explicitTransitions = map[Status]bool{
	StatusOnHold:          true,
	StatusRunning:         true,
	StatusPendingFollowUp: true,
	StatusFinished:        true,
}

// CanExplicitlySet reports whether a client patch may request this status.
func (s Status) CanExplicitlySet() bool {
	return explicitTransitions[s]
}
