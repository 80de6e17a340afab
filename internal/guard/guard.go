// Package guard holds the cross-entity precondition checks that run before
// any mutation to the point hierarchy or the project lifecycle. The checks
// are pure validation: they read stores and return code-tagged errors, they
// never mutate. Each operation runs its checks as an explicit ordered list
// before touching state, so a refused operation leaves nothing half-done.
package guard

import (
	"context"
	"strings"

	pointmodels "wastetrack/internal/point/models"
	projectmodels "wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

// PointReader is the subset of the point store the guard needs.
type PointReader interface {
	FindByIDs(ctx context.Context, customerID id.CustomerID, ids []id.PointID) ([]*pointmodels.Point, error)
	ListSubtree(ctx context.Context, customerID id.CustomerID, prefix string) ([]*pointmodels.Point, error)
}

// ProjectReader is the subset of the project store the guard needs.
type ProjectReader interface {
	ListOngoingReferencing(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) ([]*projectmodels.Project, error)
}

// Guard validates cross-entity invariants.
type Guard struct {
	points   PointReader
	projects ProjectReader
}

func New(points PointReader, projects ProjectReader) *Guard {
	return &Guard{points: points, projects: projects}
}

// AssertAncestorsActive fails with Conflict when any ancestor of the point is
// inactive or gone. Activating a node below an inactive ancestor would break
// activation reachability.
func (g *Guard) AssertAncestorsActive(ctx context.Context, point *pointmodels.Point) error {
	ancestors := point.Ancestors()
	if len(ancestors) == 0 {
		return nil
	}
	found, err := g.points.FindByIDs(ctx, point.CustomerID, ancestors)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ancestors")
	}
	byID := make(map[id.PointID]*pointmodels.Point, len(found))
	for _, ancestor := range found {
		byID[ancestor.ID] = ancestor
	}
	for _, ancestorID := range ancestors {
		ancestor, ok := byID[ancestorID]
		if !ok {
			return dErrors.Newf(dErrors.CodeConflict, "ancestor %s of point %s no longer exists", ancestorID, point.ID)
		}
		if !ancestor.Active {
			return dErrors.Newf(dErrors.CodeConflict, "ancestor %s of point %s is inactive", ancestorID, point.ID)
		}
	}
	return nil
}

// AssertNoOngoingProject fails with Conflict when the point or any of its
// descendants is referenced by an active, not-yet-finished project.
func (g *Guard) AssertNoOngoingProject(ctx context.Context, point *pointmodels.Point) error {
	subtree, err := g.points.ListSubtree(ctx, point.CustomerID, point.SubtreePrefix())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load subtree")
	}
	pointIDs := make([]id.PointID, 0, len(subtree)+1)
	pointIDs = append(pointIDs, point.ID)
	for _, descendant := range subtree {
		pointIDs = append(pointIDs, descendant.ID)
	}

	referencing, err := g.projects.ListOngoingReferencing(ctx, point.CustomerID, pointIDs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check project references")
	}
	if len(referencing) == 0 {
		return nil
	}
	projectIDs := make([]string, len(referencing))
	for i, project := range referencing {
		projectIDs[i] = project.ID.String()
	}
	return dErrors.Newf(dErrors.CodeConflict,
		"point %s is referenced by ongoing project(s) %s", point.ID, strings.Join(projectIDs, ", "))
}

// AssertDependenciesExist checks that every id names a live, active point
// whose ancestors are all active. The three failure modes are reported
// distinctly: missing ids (BadRequest), inactive points (Conflict), and
// points below an inactive ancestor (Conflict).
func (g *Guard) AssertDependenciesExist(ctx context.Context, customerID id.CustomerID, pointIDs []id.PointID) error {
	if len(pointIDs) == 0 {
		return nil
	}
	found, err := g.points.FindByIDs(ctx, customerID, pointIDs)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration points")
	}
	byID := make(map[id.PointID]*pointmodels.Point, len(found))
	for _, point := range found {
		byID[point.ID] = point
	}

	var missing []string
	for _, pointID := range pointIDs {
		if _, ok := byID[pointID]; !ok {
			missing = append(missing, pointID.String())
		}
	}
	if len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"registration point(s) %s do not exist", strings.Join(missing, ", "))
	}

	for _, pointID := range pointIDs {
		point := byID[pointID]
		if !point.Active {
			return dErrors.Newf(dErrors.CodeConflict, "registration point %s is inactive", pointID)
		}
		if err := g.AssertAncestorsActive(ctx, point); err != nil {
			return err
		}
	}
	return nil
}
