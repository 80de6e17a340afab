package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	pointmodels "wastetrack/internal/point/models"
	pointstore "wastetrack/internal/point/store"
	projectmodels "wastetrack/internal/project/models"
	projectstore "wastetrack/internal/project/store"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

type GuardSuite struct {
	suite.Suite
	points   *pointstore.InMemory
	projects *projectstore.InMemory
	guard    *Guard
	ctx      context.Context
	now      time.Time
}

func (s *GuardSuite) SetupTest() {
	s.points = pointstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.guard = New(s.points, s.projects)
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) createPoint(parent *pointmodels.Point, name string) *pointmodels.Point {
	point, err := pointmodels.NewPoint(1, parent, name, "", 0, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.points.Create(s.ctx, point))
	return point
}

func (s *GuardSuite) deactivate(point *pointmodels.Point) {
	s.Require().NoError(s.points.CascadeActive(s.ctx, 1, point.ID, point.SubtreePrefix(), false, s.now))
}

func (s *GuardSuite) TestAssertDependenciesExist() {
	s.Run("missing ids are a bad request naming each id", func() {
		root := s.createPoint(nil, "Kitchen")
		err := s.guard.AssertDependenciesExist(s.ctx, 1, []id.PointID{root.ID, 99998, 99999})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
		s.Contains(err.Error(), "99998")
		s.Contains(err.Error(), "99999")
	})

	s.Run("an inactive point is a conflict", func() {
		root := s.createPoint(nil, "Kitchen")
		s.deactivate(root)

		err := s.guard.AssertDependenciesExist(s.ctx, 1, []id.PointID{root.ID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("an active point below an inactive ancestor is a conflict", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(root, "Buffet")
		s.deactivate(root)
		// restore the child only; the root stays inactive
		child.Active = true
		s.Require().NoError(s.points.Update(s.ctx, child))

		err := s.guard.AssertDependenciesExist(s.ctx, 1, []id.PointID{child.ID})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty and healthy scopes pass", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(root, "Buffet")

		s.NoError(s.guard.AssertDependenciesExist(s.ctx, 1, nil))
		s.NoError(s.guard.AssertDependenciesExist(s.ctx, 1, []id.PointID{root.ID, child.ID}))
	})
}

func (s *GuardSuite) TestAssertAncestorsActive() {
	s.Run("a root always passes", func() {
		root := s.createPoint(nil, "Kitchen")
		s.NoError(s.guard.AssertAncestorsActive(s.ctx, root))
	})

	s.Run("any inactive ancestor fails", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(root, "Buffet")
		grandchild := s.createPoint(child, "Salmon")
		s.deactivate(root)

		err := s.guard.AssertAncestorsActive(s.ctx, grandchild)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("a deleted ancestor fails", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(root, "Buffet")
		s.Require().NoError(s.points.CascadeDelete(s.ctx, 1, root.ID, root.SubtreePrefix(), s.now))

		err := s.guard.AssertAncestorsActive(s.ctx, child)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *GuardSuite) TestAssertNoOngoingProject() {
	project := func(points []id.PointID, finish bool) {
		created, err := projectmodels.NewProject(1, "Less waste", projectmodels.Duration{
			Type:  projectmodels.DurationRegistrations,
			Start: s.now,
			Days:  3,
		}, points, s.now)
		s.Require().NoError(err)
		if finish {
			created.ApplyFinish(s.now)
		}
		s.Require().NoError(s.projects.Create(s.ctx, created))
	}

	s.Run("a project referencing a descendant blocks the ancestor", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(root, "Buffet")
		project([]id.PointID{child.ID}, false)

		err := s.guard.AssertNoOngoingProject(s.ctx, root)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("finished projects do not block", func() {
		root := s.createPoint(nil, "Kitchen")
		project([]id.PointID{root.ID}, true)

		s.NoError(s.guard.AssertNoOngoingProject(s.ctx, root))
	})

	s.Run("projects scoped elsewhere do not block", func() {
		root := s.createPoint(nil, "Kitchen")
		other := s.createPoint(nil, "Storage")
		project([]id.PointID{other.ID}, false)

		s.NoError(s.guard.AssertNoOngoingProject(s.ctx, root))
	})
}
