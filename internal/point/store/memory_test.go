package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/sentinel"
)

type PointStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func (s *PointStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPointStoreSuite(t *testing.T) {
	suite.Run(t, new(PointStoreSuite))
}

func (s *PointStoreSuite) create(customerID id.CustomerID, parent *models.Point, name string) *models.Point {
	point, err := models.NewPoint(customerID, parent, name, "", 0, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, point))
	return point
}

// tree builds root -> child -> grandchild for customer 1.
func (s *PointStoreSuite) tree() (*models.Point, *models.Point, *models.Point) {
	root := s.create(1, nil, "Kitchen")
	child := s.create(1, root, "Buffet")
	grandchild := s.create(1, child, "Salmon")
	return root, child, grandchild
}

func (s *PointStoreSuite) TestCreateAndFind() {
	s.Run("assigns increasing ids", func() {
		root := s.create(1, nil, "Kitchen")
		sibling := s.create(1, nil, "Storage")
		s.Less(root.ID, sibling.ID)
	})

	s.Run("finds by id within the customer", func() {
		root := s.create(1, nil, "Kitchen")
		found, err := s.store.FindByID(s.ctx, 1, root.ID)
		s.Require().NoError(err)
		s.Equal(root.Name, found.Name)
	})

	s.Run("hides other customers' points", func() {
		root := s.create(1, nil, "Kitchen")
		_, err := s.store.FindByID(s.ctx, 2, root.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hides deleted points", func() {
		root := s.create(1, nil, "Kitchen")
		s.Require().NoError(s.store.CascadeDelete(s.ctx, 1, root.ID, root.SubtreePrefix(), s.now))
		_, err := s.store.FindByID(s.ctx, 1, root.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PointStoreSuite) TestListSubtree() {
	s.Run("returns all descendants, root excluded", func() {
		root, child, grandchild := s.tree()
		subtree, err := s.store.ListSubtree(s.ctx, 1, root.SubtreePrefix())
		s.Require().NoError(err)
		s.Require().Len(subtree, 2)
		s.Equal(child.ID, subtree[0].ID)
		s.Equal(grandchild.ID, subtree[1].ID)
	})

	s.Run("does not match numeric prefix collisions", func() {
		root := s.create(1, nil, "Kitchen")
		child := &models.Point{CustomerID: 1, Name: "Odd", Path: root.SubtreePrefix() + "9", Active: true, CreatedAt: s.now, UpdatedAt: s.now}
		s.Require().NoError(s.store.Create(s.ctx, child))

		subtree, err := s.store.ListSubtree(s.ctx, 1, root.SubtreePrefix())
		s.Require().NoError(err)
		s.Empty(subtree)
	})
}

func (s *PointStoreSuite) TestCascades() {
	s.Run("deactivation covers the whole subtree", func() {
		root, child, grandchild := s.tree()
		s.Require().NoError(s.store.CascadeActive(s.ctx, 1, root.ID, root.SubtreePrefix(), false, s.now))

		for _, pointID := range []id.PointID{root.ID, child.ID, grandchild.ID} {
			found, err := s.store.FindByID(s.ctx, 1, pointID)
			s.Require().NoError(err)
			s.False(found.Active)
		}
	})

	s.Run("cascade from a mid node leaves ancestors alone", func() {
		root, child, grandchild := s.tree()
		s.Require().NoError(s.store.CascadeActive(s.ctx, 1, child.ID, child.SubtreePrefix(), false, s.now))

		rootFound, err := s.store.FindByID(s.ctx, 1, root.ID)
		s.Require().NoError(err)
		s.True(rootFound.Active)

		grandchildFound, err := s.store.FindByID(s.ctx, 1, grandchild.ID)
		s.Require().NoError(err)
		s.False(grandchildFound.Active)
	})

	s.Run("delete cascade removes the whole subtree from reads", func() {
		root, child, grandchild := s.tree()
		s.Require().NoError(s.store.CascadeDelete(s.ctx, 1, child.ID, child.SubtreePrefix(), s.now))

		_, err := s.store.FindByID(s.ctx, 1, child.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.store.FindByID(s.ctx, 1, grandchild.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByID(s.ctx, 1, root.ID)
		s.Require().NoError(err)
	})
}

func (s *PointStoreSuite) TestUpdatePaths() {
	s.Run("writes back rebased paths", func() {
		root, child, grandchild := s.tree()
		newRoot := s.create(1, nil, "Annex")

		oldPrefix := child.SubtreePrefix()
		child.ApplyParent(newRoot, s.now)
		grandchild.Rebase(oldPrefix, child.SubtreePrefix())

		s.Require().NoError(s.store.Update(s.ctx, child))
		s.Require().NoError(s.store.UpdatePaths(s.ctx, []*models.Point{grandchild}))

		found, err := s.store.FindByID(s.ctx, 1, grandchild.ID)
		s.Require().NoError(err)
		s.Equal(child.SubtreePrefix(), found.Path)

		subtree, err := s.store.ListSubtree(s.ctx, 1, root.SubtreePrefix())
		s.Require().NoError(err)
		s.Empty(subtree)
	})
}
