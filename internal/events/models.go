package events

import (
	"time"

	"github.com/google/uuid"

	id "wastetrack/pkg/domain"
)

// Type names a domain occurrence worth broadcasting to downstream consumers
// (reporting, exports, notification fan-out).
type Type string

const (
	TypePointRemoved		Type = "point.removed"
	TypePointDeactivated		Type = "point.deactivated"
	TypePointActivated		Type = "point.activated"
	TypePointReparented		Type = "point.reparented"
	TypeProjectCreated		Type = "project.created"
	TypeProjectFinished		Type = "project.finished"
	TypeProjectAutoFinished		Type = "project.auto_finished"
	TypeProjectRelinked		Type = "project.relinked"
	TypeRegistrationRecorded	Type = "registration.recorded"
	TypeRegistrationLinked		Type = "registration.linked"
)

// Event is emitted from domain logic after a successful mutation. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID		uuid.UUID	`json:"id"`
	Type		Type		`json:"type"`
	CustomerID	id.CustomerID	`json:"customer_id"`
	Subject		string		`json:"subject"`
	Actor		string		`json:"actor,omitempty"`
	Payload		map[string]any	`json:"payload,omitempty"`
	OccurredAt	time.Time	`json:"occurred_at"`
}
