package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
)

type PointModelSuite struct {
	suite.Suite
	now time.Time
}

func (s *PointModelSuite) SetupTest() {
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPointModelSuite(t *testing.T) {
	suite.Run(t, new(PointModelSuite))
}

func (s *PointModelSuite) point(pointID id.PointID, path string) *Point {
	return &Point{ID: pointID, CustomerID: 1, Path: path, Name: "p", Label: "area", Active: true}
}

func (s *PointModelSuite) TestConstruction() {
	s.Run("root has empty path", func() {
		root, err := NewPoint(1, nil, "Kitchen", "area", 0, 0, s.now)
		s.Require().NoError(err)
		s.Empty(root.Path)
		s.Nil(root.ParentID)
		s.Zero(root.Depth())
		s.True(root.Active)
	})

	s.Run("child path is the parent's subtree prefix", func() {
		parent := s.point(10, "")
		child, err := NewPoint(1, parent, "Buffet", "category", 0, 0, s.now)
		s.Require().NoError(err)
		s.Equal("10", child.Path)
		s.Equal(id.PointID(10), *child.ParentID)
		s.Equal(1, child.Depth())
	})

	s.Run("rejects empty name", func() {
		_, err := NewPoint(1, nil, "", "area", 0, 0, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects negative amount", func() {
		_, err := NewPoint(1, nil, "Kitchen", "area", -1, 0, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *PointModelSuite) TestLabels() {
	s.Run("empty label falls back to default", func() {
		point, err := NewPoint(1, nil, "Kitchen", "", 0, 0, s.now)
		s.Require().NoError(err)
		s.Equal(DefaultLabel, point.Label)
	})

	s.Run("deep nodes are forced to the default label", func() {
		parent := s.point(30, "10.20")

		point, err := NewPoint(1, parent, "Salmon", "special", 0, 0, s.now)
		s.Require().NoError(err)
		s.Equal(3, point.Depth())
		s.Equal(DefaultLabel, point.Label)
	})

	s.Run("shallow nodes keep the requested label", func() {
		parent := s.point(10, "")
		point, err := NewPoint(1, parent, "Buffet", "category", 0, 0, s.now)
		s.Require().NoError(err)
		s.Equal("category", point.Label)
	})
}

func (s *PointModelSuite) TestAncestry() {
	s.Run("ancestors are ordered most distant first", func() {
		point := s.point(40, "10.20.30")
		s.Equal([]id.PointID{10, 20, 30}, point.Ancestors())
	})

	s.Run("descendant check uses the subtree prefix", func() {
		root := s.point(10, "")
		child := s.point(20, "10")
		grandchild := s.point(30, "10.20")
		sibling := s.point(11, "")

		s.True(child.IsDescendantOf(root))
		s.True(grandchild.IsDescendantOf(root))
		s.True(grandchild.IsDescendantOf(child))
		s.False(root.IsDescendantOf(child))
		s.False(sibling.IsDescendantOf(root))
	})
}

// TestPrefixSubstitution exercises the documented reparent example: node 30
// with path "10.20" moves under node 40, and its descendants follow by pure
// prefix substitution.
func (s *PointModelSuite) TestPrefixSubstitution() {
	moved := s.point(30, "10.20")
	descendant := s.point(50, "10.20.30")
	deeper := s.point(60, "10.20.30.50")
	newParent := s.point(40, "")

	oldPrefix := moved.SubtreePrefix()
	s.Equal("10.20.30", oldPrefix)

	moved.ApplyParent(newParent, s.now)
	s.Equal("40", moved.Path)
	newPrefix := moved.SubtreePrefix()
	s.Equal("40.30", newPrefix)

	descendant.Rebase(oldPrefix, newPrefix)
	deeper.Rebase(oldPrefix, newPrefix)
	s.Equal("40.30", descendant.Path)
	s.Equal("40.30.50", deeper.Path)

	s.Run("move to root drops the prefix entirely", func() {
		point := s.point(30, "10.20")
		child := s.point(50, "10.20.30")
		old := point.SubtreePrefix()
		point.ApplyParent(nil, s.now)
		s.Empty(point.Path)
		child.Rebase(old, point.SubtreePrefix())
		s.Equal("30", child.Path)
	})
}

func (s *PointModelSuite) TestLifecycle() {
	s.Run("soft delete marks without removing", func() {
		point := s.point(10, "")
		s.False(point.IsDeleted())
		point.ApplyDelete(s.now)
		s.True(point.IsDeleted())
		s.Equal(s.now, *point.DeletedAt)
	})

	s.Run("cost per kg derives from portion grams", func() {
		point := s.point(10, "")
		point.Amount = 250
		point.Cost = 10
		s.InDelta(40.0, point.CostPerKg(), 0.001)
	})

	s.Run("cost per kg is zero without an amount", func() {
		point := s.point(10, "")
		s.Zero(point.CostPerKg())
	})
}
