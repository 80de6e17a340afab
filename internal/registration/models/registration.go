package models

import (
	"time"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

// DateLayout is the civil-date encoding used for distinct-day counting.
const DateLayout = "2006-01-02"

// Registration is one waste measurement against a registration point. The
// ledger is append-only; the engine reads rows and writes project links, it
// never rewrites registrations.
type Registration struct {
	ID         id.RegistrationID `json:"id"`
	CustomerID id.CustomerID     `json:"customerId"`
	PointID    id.PointID        `json:"registrationPointId"`
	Date       time.Time         `json:"date"`
	Amount     float64           `json:"amount"`
	Cost       float64           `json:"cost"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// NewRegistration validates and constructs a ledger row. The date is
// truncated to its civil day.
func NewRegistration(customerID id.CustomerID, pointID id.PointID, date time.Time, amount, cost float64, now time.Time) (*Registration, error) {
	if pointID.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration point is required")
	}
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration date is required")
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration amount must be positive")
	}
	return &Registration{
		CustomerID: customerID,
		PointID:    pointID,
		Date:       Day(date),
		Amount:     amount,
		Cost:       cost,
		CreatedAt:  now,
	}, nil
}

// DateKey returns the civil-date key used when counting distinct
// registration days.
func (r *Registration) DateKey() string {
	return r.Date.Format(DateLayout)
}

// Day truncates a timestamp to its UTC civil date.
func Day(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
