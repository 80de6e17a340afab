package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/sentinel"
)

// memorySeqBase keeps in-memory ids out of the range tests usually hardcode
// for fixtures they create themselves.
const memorySeqBase = 10000

// InMemory is a map-backed point store. Mutations rely on the service's
// transaction runner for serialization; the store's own lock only protects
// map access for concurrent readers.
type InMemory struct {
	mu     sync.RWMutex
	points map[id.PointID]*models.Point
	nextID id.PointID
}

func NewInMemory() *InMemory {
	return &InMemory{
		points: make(map[id.PointID]*models.Point),
		nextID: memorySeqBase,
	}
}

func (s *InMemory) Create(_ context.Context, point *models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	point.ID = s.nextID
	stored := *point
	s.points[stored.ID] = &stored
	return nil
}

func (s *InMemory) FindByID(_ context.Context, customerID id.CustomerID, pointID id.PointID) (*models.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	point, ok := s.points[pointID]
	if !ok || point.CustomerID != customerID || point.IsDeleted() {
		return nil, sentinel.ErrNotFound
	}
	found := *point
	return &found, nil
}

func (s *InMemory) FindByIDs(_ context.Context, customerID id.CustomerID, ids []id.PointID) ([]*models.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]*models.Point, 0, len(ids))
	for _, pointID := range ids {
		point, ok := s.points[pointID]
		if !ok || point.CustomerID != customerID || point.IsDeleted() {
			continue
		}
		copied := *point
		found = append(found, &copied)
	}
	return found, nil
}

// ListSubtree returns every live descendant whose path starts at prefix. The
// subtree root itself is not included.
func (s *InMemory) ListSubtree(_ context.Context, customerID id.CustomerID, prefix string) ([]*models.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subtree []*models.Point
	for _, point := range s.points {
		if point.CustomerID != customerID || point.IsDeleted() {
			continue
		}
		if point.Path == prefix || strings.HasPrefix(point.Path, prefix+".") {
			copied := *point
			subtree = append(subtree, &copied)
		}
	}
	sort.Slice(subtree, func(i, j int) bool { return subtree[i].ID < subtree[j].ID })
	return subtree, nil
}

func (s *InMemory) Update(_ context.Context, point *models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[point.ID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *point
	s.points[stored.ID] = &stored
	return nil
}

// UpdatePaths writes back a batch of rebased descendant paths.
func (s *InMemory) UpdatePaths(_ context.Context, points []*models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, point := range points {
		stored, ok := s.points[point.ID]
		if !ok {
			return sentinel.ErrNotFound
		}
		stored.Path = point.Path
		stored.UpdatedAt = point.UpdatedAt
	}
	return nil
}

// CascadeActive sets the activation state on the root and every live
// descendant, unconditionally.
func (s *InMemory) CascadeActive(_ context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, active bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, point := range s.points {
		if point.CustomerID != customerID || point.IsDeleted() {
			continue
		}
		if point.ID == rootID || point.Path == prefix || strings.HasPrefix(point.Path, prefix+".") {
			point.Active = active
			point.UpdatedAt = now
		}
	}
	return nil
}

// CascadeDelete soft-deletes the root and every live descendant.
func (s *InMemory) CascadeDelete(_ context.Context, customerID id.CustomerID, rootID id.PointID, prefix string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, point := range s.points {
		if point.CustomerID != customerID || point.IsDeleted() {
			continue
		}
		if point.ID == rootID || point.Path == prefix || strings.HasPrefix(point.Path, prefix+".") {
			deletedAt := now
			point.DeletedAt = &deletedAt
			point.UpdatedAt = now
		}
	}
	return nil
}

// LockSubtree is a no-op in memory: the transaction runner's coarse lock
// already serializes overlapping subtree mutations.
func (s *InMemory) LockSubtree(context.Context, id.CustomerID, id.PointID) error {
	return nil
}
