package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
)

// InMemory is a map-backed registration ledger.
type InMemory struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]*models.Registration
	nextID        id.RegistrationID
}

func NewInMemory() *InMemory {
	return &InMemory{registrations: make(map[id.RegistrationID]*models.Registration)}
}

func (s *InMemory) Create(_ context.Context, registration *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	registration.ID = s.nextID
	stored := *registration
	s.registrations[stored.ID] = &stored
	return nil
}

func (s *InMemory) FindByIDs(_ context.Context, ids []id.RegistrationID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]*models.Registration, 0, len(ids))
	for _, registrationID := range ids {
		if registration, ok := s.registrations[registrationID]; ok {
			copied := *registration
			found = append(found, &copied)
		}
	}
	return found, nil
}

// FindInScope returns the customer's registrations at the given points (nil
// or empty means all points) dated inside [from, until]; a nil until leaves
// the window open-ended.
func (s *InMemory) FindInScope(_ context.Context, customerID id.CustomerID, pointIDs []id.PointID, from time.Time, until *time.Time) ([]*models.Registration, error) {
	scoped := make(map[id.PointID]bool, len(pointIDs))
	for _, pointID := range pointIDs {
		scoped[pointID] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*models.Registration
	for _, registration := range s.registrations {
		if registration.CustomerID != customerID {
			continue
		}
		if len(scoped) > 0 && !scoped[registration.PointID] {
			continue
		}
		if registration.Date.Before(models.Day(from)) {
			continue
		}
		if until != nil && registration.Date.After(*until) {
			continue
		}
		copied := *registration
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}
