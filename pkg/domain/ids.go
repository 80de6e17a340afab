// Package domain holds typed identifiers shared across the engine.
//
// Entity ids are store-assigned int64 sequences rather than uuids because the
// registration point hierarchy encodes ancestry as dotted id strings
// ("10.20"); prefix substitution over that encoding is the core tree
// operation. Construct ids at trust boundaries; a zero id is "unset".
package domain

import "strconv"

type (
	// CustomerID scopes every entity to one organization.
	CustomerID int64
	// PointID identifies a registration point (area/category/product node).
	PointID int64
	// ProjectID identifies a waste-reduction project.
	ProjectID int64
	// RegistrationID identifies a ledger row.
	RegistrationID int64
	// ActionID identifies a free-form project action.
	ActionID int64
)

func (id CustomerID) String() string     { return strconv.FormatInt(int64(id), 10) }
func (id PointID) String() string        { return strconv.FormatInt(int64(id), 10) }
func (id ProjectID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id RegistrationID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id ActionID) String() string       { return strconv.FormatInt(int64(id), 10) }

func (id CustomerID) IsZero() bool { return id == 0 }
func (id PointID) IsZero() bool    { return id == 0 }
func (id ProjectID) IsZero() bool  { return id == 0 }
