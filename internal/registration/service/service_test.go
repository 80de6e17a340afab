package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wastetrack/internal/association"
	associationstore "wastetrack/internal/association/store"
	"wastetrack/internal/events"
	"wastetrack/internal/guard"
	pointmodels "wastetrack/internal/point/models"
	pointstore "wastetrack/internal/point/store"
	projectmodels "wastetrack/internal/project/models"
	projectstore "wastetrack/internal/project/store"
	registrationstore "wastetrack/internal/registration/store"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/tx"
	"wastetrack/pkg/testutil"
)

type RegistrationServiceSuite struct {
	suite.Suite
	points        *pointstore.InMemory
	projects      *projectstore.InMemory
	registrations *registrationstore.InMemory
	links         *associationstore.InMemory
	sink          *events.MemorySink
	service       *Service
	ctx           context.Context
	now           time.Time
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.points = pointstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.registrations = registrationstore.NewInMemory()
	s.links = associationstore.NewInMemory()
	engine := association.NewEngine(s.registrations, s.links, nil)
	s.sink = events.NewMemorySink()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = testutil.Context(1, s.now)

	s.service = New(s.registrations, s.projects, engine, guard.New(s.points, s.projects), tx.NewMemoryRunner(),
		WithEventPublisher(events.NewPublisher(s.sink, nil)),
	)
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) createPoint(name string) *pointmodels.Point {
	point, err := pointmodels.NewPoint(1, nil, name, "", 0, 0, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.points.Create(s.ctx, point))
	return point
}

func (s *RegistrationServiceSuite) createProject(points []id.PointID, days int) *projectmodels.Project {
	project, err := projectmodels.NewProject(1, "Less waste", projectmodels.Duration{
		Type:  projectmodels.DurationRegistrations,
		Start: s.now,
		Days:  days,
	}, points, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.projects.Create(s.ctx, project))
	return project
}

func (s *RegistrationServiceSuite) TestRecord() {
	s.Run("appends to the ledger with the date truncated", func() {
		point := s.createPoint("Kitchen")

		registration, err := s.service.Record(s.ctx, 1, point.ID, s.now, 500, 10)
		s.Require().NoError(err)
		s.NotZero(registration.ID)
		s.Equal("2024-03-01", registration.DateKey())
		s.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), registration.Date)

		s.Len(s.sink.ByType(events.TypeRegistrationRecorded), 1)
	})

	s.Run("links into every ongoing project in scope", func() {
		kitchen := s.createPoint("Kitchen")
		buffet := s.createPoint("Buffet")
		scoped := s.createProject([]id.PointID{kitchen.ID}, 3)
		trackAll := s.createProject(nil, 3)
		other := s.createProject([]id.PointID{buffet.ID}, 3)

		_, err := s.service.Record(s.ctx, 1, kitchen.ID, s.now, 500, 10)
		s.Require().NoError(err)

		for projectID, want := range map[id.ProjectID]int{scoped.ID: 1, trackAll.ID: 1, other.ID: 0} {
			linked, err := s.links.ListByProject(s.ctx, projectID)
			s.Require().NoError(err)
			s.Len(linked, want)
		}
		s.Len(s.sink.ByType(events.TypeRegistrationLinked), 2)
	})

	s.Run("flips the project to pending input at the day quota", func() {
		point := s.createPoint("Kitchen")
		project := s.createProject([]id.PointID{point.ID}, 2)

		_, err := s.service.Record(s.ctx, 1, point.ID, s.now, 500, 10)
		s.Require().NoError(err)
		found, err := s.projects.FindByID(s.ctx, 1, project.ID)
		s.Require().NoError(err)
		s.Equal(projectmodels.StatusRunning, found.Status)
		s.Equal(50, found.Percentage)

		_, err = s.service.Record(s.ctx, 1, point.ID, s.now.AddDate(0, 0, 1), 500, 10)
		s.Require().NoError(err)
		found, err = s.projects.FindByID(s.ctx, 1, project.ID)
		s.Require().NoError(err)
		s.Equal(projectmodels.StatusPendingInput, found.Status)
		s.Equal(100, found.Percentage)
	})

	s.Run("a second registration on the same day does not advance the project", func() {
		point := s.createPoint("Kitchen")
		project := s.createProject([]id.PointID{point.ID}, 2)

		for range 2 {
			_, err := s.service.Record(s.ctx, 1, point.ID, s.now, 500, 10)
			s.Require().NoError(err)
		}

		found, err := s.projects.FindByID(s.ctx, 1, project.ID)
		s.Require().NoError(err)
		s.Equal(50, found.Percentage)

		linked, err := s.links.ListByProject(s.ctx, project.ID)
		s.Require().NoError(err)
		s.Len(linked, 2)
	})

	s.Run("rejects an unknown point", func() {
		_, err := s.service.Record(s.ctx, 1, 99999, s.now, 500, 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects an inactive point", func() {
		point := s.createPoint("Kitchen")
		s.Require().NoError(s.points.CascadeActive(s.ctx, 1, point.ID, point.SubtreePrefix(), false, s.now))

		_, err := s.service.Record(s.ctx, 1, point.ID, s.now, 500, 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects a non-positive amount", func() {
		point := s.createPoint("Kitchen")
		_, err := s.service.Record(s.ctx, 1, point.ID, s.now, 0, 10)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *RegistrationServiceSuite) TestFind() {
	point := s.createPoint("Kitchen")
	mine, err := s.service.Record(s.ctx, 1, point.ID, s.now, 500, 10)
	s.Require().NoError(err)

	s.Run("returns rows by id", func() {
		found, err := s.service.Find(s.ctx, 1, []id.RegistrationID{mine.ID})
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(mine.ID, found[0].ID)
	})

	s.Run("filters out other customers' rows", func() {
		found, err := s.service.Find(s.ctx, 2, []id.RegistrationID{mine.ID})
		s.Require().NoError(err)
		s.Empty(found)
	})
}
