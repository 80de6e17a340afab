package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/sentinel"
)

// InMemory is a map-backed project store.
type InMemory struct {
	mu           sync.RWMutex
	projects     map[id.ProjectID]*models.Project
	actions      map[id.ActionID]*models.Action
	actionOwners map[id.ActionID]id.CustomerID
	nextID       id.ProjectID
	nextActionID id.ActionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		projects:     make(map[id.ProjectID]*models.Project),
		actions:      make(map[id.ActionID]*models.Action),
		actionOwners: make(map[id.ActionID]id.CustomerID),
	}
}

func (s *InMemory) Create(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	project.ID = s.nextID
	s.projects[project.ID] = copyProject(project)
	return nil
}

func (s *InMemory) Update(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.projects[project.ID] = copyProject(project)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, ok := s.projects[projectID]
	if !ok || project.CustomerID != customerID {
		return nil, sentinel.ErrNotFound
	}
	return copyProject(project), nil
}

func (s *InMemory) ListFollowUps(_ context.Context, customerID id.CustomerID, parentID id.ProjectID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var followUps []*models.Project
	for _, project := range s.projects {
		if project.CustomerID != customerID || project.ParentProjectID == nil {
			continue
		}
		if *project.ParentProjectID == parentID {
			followUps = append(followUps, copyProject(project))
		}
	}
	sort.Slice(followUps, func(i, j int) bool { return followUps[i].ID < followUps[j].ID })
	return followUps, nil
}

// ListOngoingByCustomer returns active, not-yet-finished projects; these are
// the candidates for incremental link insertion.
func (s *InMemory) ListOngoingByCustomer(_ context.Context, customerID id.CustomerID) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ongoing []*models.Project
	for _, project := range s.projects {
		if project.CustomerID == customerID && project.IsOngoing() {
			ongoing = append(ongoing, copyProject(project))
		}
	}
	sort.Slice(ongoing, func(i, j int) bool { return ongoing[i].ID < ongoing[j].ID })
	return ongoing, nil
}

// ListOngoingReferencing returns ongoing projects whose explicit scope names
// any of the given points.
func (s *InMemory) ListOngoingReferencing(_ context.Context, customerID id.CustomerID, pointIDs []id.PointID) ([]*models.Project, error) {
	referenced := make(map[id.PointID]bool, len(pointIDs))
	for _, pointID := range pointIDs {
		referenced[pointID] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var referencing []*models.Project
	for _, project := range s.projects {
		if project.CustomerID != customerID || !project.IsOngoing() {
			continue
		}
		for _, scoped := range project.RegistrationPoints {
			if referenced[scoped] {
				referencing = append(referencing, copyProject(project))
				break
			}
		}
	}
	sort.Slice(referencing, func(i, j int) bool { return referencing[i].ID < referencing[j].ID })
	return referencing, nil
}

// FindOrCreateActionByName resolves an action by case-insensitive name,
// creating it when missing.
func (s *InMemory) FindOrCreateActionByName(_ context.Context, customerID id.CustomerID, name string) (*models.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for actionID, action := range s.actions {
		if s.actionOwners[actionID] == customerID && strings.EqualFold(action.Name, name) {
			found := *action
			return &found, nil
		}
	}
	s.nextActionID++
	action := &models.Action{ID: s.nextActionID, Name: name}
	s.actions[action.ID] = action
	s.actionOwners[action.ID] = customerID
	created := *action
	return &created, nil
}

func copyProject(project *models.Project) *models.Project {
	copied := *project
	if project.ParentProjectID != nil {
		parentID := *project.ParentProjectID
		copied.ParentProjectID = &parentID
	}
	copied.RegistrationPoints = append([]id.PointID(nil), project.RegistrationPoints...)
	copied.Actions = append([]models.Action(nil), project.Actions...)
	return &copied
}
