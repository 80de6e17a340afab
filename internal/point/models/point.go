package models

import (
	"strconv"
	"strings"
	"time"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

// DefaultLabel is assigned when no label is requested and forced onto nodes
// deeper than MaxLabelledDepth ancestors.
const DefaultLabel = "product"

// MaxLabelledDepth is the ancestor count beyond which a node's label is
// always the default, regardless of what the caller asked for.
const MaxLabelledDepth = 2

// Point is a node in the registration point hierarchy (area, category,
// product). Ancestry is materialized in Path as the dotted ids of all
// ancestors, most distant first; a root has an empty Path.
//
// Invariants:
//   - Path lists exactly the ordered ancestor ids; empty iff ParentID is nil
//   - Active may be true only when every ancestor is active
//   - Deactivation and soft deletion cascade to the whole subtree, never up
//   - Nodes with more than MaxLabelledDepth ancestors carry DefaultLabel
type Point struct {
	ID         id.PointID    `json:"id"`
	CustomerID id.CustomerID `json:"customerId"`
	ParentID   *id.PointID   `json:"parentId,omitempty"`
	Path       string        `json:"path,omitempty"`
	Name       string        `json:"name"`
	Label      string        `json:"label"`
	Active     bool          `json:"active"`
	Amount     float64       `json:"amount"`
	Cost       float64       `json:"cost"`
	DeletedAt  *time.Time    `json:"deletedAt,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// NewPoint validates attributes and derives path and label from the parent.
// A nil parent creates a root.
func NewPoint(customerID id.CustomerID, parent *Point, name, label string, amount, cost float64, now time.Time) (*Point, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "point name cannot be empty")
	}
	if amount < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "point amount cannot be negative")
	}
	p := &Point{
		CustomerID: customerID,
		Name:       name,
		Label:      label,
		Active:     true,
		Amount:     amount,
		Cost:       cost,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if parent != nil {
		parentID := parent.ID
		p.ParentID = &parentID
		p.Path = parent.SubtreePrefix()
	}
	p.Label = normalizeLabel(p.Label, p.Depth())
	return p, nil
}

// Depth is the number of ancestors.
func (p *Point) Depth() int {
	if p.Path == "" {
		return 0
	}
	return strings.Count(p.Path, ".") + 1
}

// Ancestors returns the ordered ancestor ids, most distant first.
func (p *Point) Ancestors() []id.PointID {
	if p.Path == "" {
		return nil
	}
	segments := strings.Split(p.Path, ".")
	ancestors := make([]id.PointID, 0, len(segments))
	for _, segment := range segments {
		value, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			continue
		}
		ancestors = append(ancestors, id.PointID(value))
	}
	return ancestors
}

// SubtreePrefix is the path every direct child of p carries, and the prefix
// every descendant's path starts with.
func (p *Point) SubtreePrefix() string {
	if p.Path == "" {
		return p.ID.String()
	}
	return p.Path + "." + p.ID.String()
}

// IsDescendantOf reports whether p lies strictly below other.
func (p *Point) IsDescendantOf(other *Point) bool {
	prefix := other.SubtreePrefix()
	return p.Path == prefix || strings.HasPrefix(p.Path, prefix+".")
}

// Rebase rewrites p's path by substituting oldPrefix with newPrefix,
// preserving the suffix beyond the prefix. Used for reparent cascades.
func (p *Point) Rebase(oldPrefix, newPrefix string) {
	if p.Path == oldPrefix {
		p.Path = newPrefix
		return
	}
	if strings.HasPrefix(p.Path, oldPrefix+".") {
		p.Path = newPrefix + strings.TrimPrefix(p.Path, oldPrefix)
	}
}

// ApplyParent moves p under parent (nil for root) and renormalizes the label
// for the new depth.
func (p *Point) ApplyParent(parent *Point, now time.Time) {
	if parent == nil {
		p.ParentID = nil
		p.Path = ""
	} else {
		parentID := parent.ID
		p.ParentID = &parentID
		p.Path = parent.SubtreePrefix()
	}
	p.Label = normalizeLabel(p.Label, p.Depth())
	p.UpdatedAt = now
}

// ApplyActive sets the activation state. Callers cascade the same value to
// every descendant; ancestors are never touched.
func (p *Point) ApplyActive(active bool, now time.Time) {
	p.Active = active
	p.UpdatedAt = now
}

// ApplyDelete soft-deletes the point. Deleted points stay in the store so
// historical registrations keep resolving.
func (p *Point) ApplyDelete(now time.Time) {
	p.DeletedAt = &now
	p.UpdatedAt = now
}

// IsDeleted reports whether the point carries a soft-delete marker.
func (p *Point) IsDeleted() bool {
	return p.DeletedAt != nil
}

// CostPerKg derives the cost per kilogram from the point's portion amount in
// grams. Returns 0 when no amount is set.
func (p *Point) CostPerKg() float64 {
	if p.Amount == 0 {
		return 0
	}
	return p.Cost / (p.Amount / 1000)
}

func normalizeLabel(label string, depth int) string {
	if label == "" || depth > MaxLabelledDepth {
		return DefaultLabel
	}
	return label
}
