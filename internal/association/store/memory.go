package store

import (
	"context"
	"sort"
	"sync"

	id "wastetrack/pkg/domain"
)

// InMemory keeps project-registration links as per-project sets, which makes
// both the delete-then-reinsert rescope and the incremental insert naturally
// idempotent.
type InMemory struct {
	mu    sync.RWMutex
	links map[id.ProjectID]map[id.RegistrationID]bool
}

func NewInMemory() *InMemory {
	return &InMemory{links: make(map[id.ProjectID]map[id.RegistrationID]bool)}
}

func (s *InMemory) ReplaceForProject(_ context.Context, projectID id.ProjectID, registrationIDs []id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replacement := make(map[id.RegistrationID]bool, len(registrationIDs))
	for _, registrationID := range registrationIDs {
		replacement[registrationID] = true
	}
	s.links[projectID] = replacement
	return nil
}

func (s *InMemory) Insert(_ context.Context, projectID id.ProjectID, registrationID id.RegistrationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[projectID] == nil {
		s.links[projectID] = make(map[id.RegistrationID]bool)
	}
	s.links[projectID][registrationID] = true
	return nil
}

func (s *InMemory) ListByProject(_ context.Context, projectID id.ProjectID) ([]id.RegistrationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	linked := make([]id.RegistrationID, 0, len(s.links[projectID]))
	for registrationID := range s.links[projectID] {
		linked = append(linked, registrationID)
	}
	sort.Slice(linked, func(i, j int) bool { return linked[i] < linked[j] })
	return linked, nil
}
