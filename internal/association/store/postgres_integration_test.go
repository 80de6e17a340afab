//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wastetrack/internal/platform/postgres"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/testutil/containers"
)

type LinkPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func (s *LinkPostgresSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(postgres.Migrate(s.pg.DB))
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *LinkPostgresSuite) SetupTest() {
	s.pg.Exec(s.T(),
		`TRUNCATE project_registrations, registrations, registration_points, projects RESTART IDENTITY CASCADE`)
}

func TestLinkPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LinkPostgresSuite))
}

// seed inserts one project, one point, and n registrations, returning the
// registration ids. Links carry foreign keys to both sides.
func (s *LinkPostgresSuite) seed(n int) (id.ProjectID, []id.RegistrationID) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	var projectID int64
	s.Require().NoError(s.pg.DB.QueryRow(`
		INSERT INTO projects (customer_id, name, status, duration_type, duration_start,
			duration_days, created_at, updated_at)
		VALUES (1, 'Less waste', 'RUNNING', 'REGISTRATIONS', $1, 3, $1, $1)
		RETURNING id`, now).Scan(&projectID))

	var pointID int64
	s.Require().NoError(s.pg.DB.QueryRow(`
		INSERT INTO registration_points (customer_id, path, name, label, created_at, updated_at)
		VALUES (1, '', 'Kitchen', 'area', $1, $1)
		RETURNING id`, now).Scan(&pointID))

	registrationIDs := make([]id.RegistrationID, 0, n)
	for i := range n {
		var registrationID int64
		s.Require().NoError(s.pg.DB.QueryRow(`
			INSERT INTO registrations (customer_id, point_id, date, amount, cost, created_at)
			VALUES (1, $1, $2, 500, 10, $2)
			RETURNING id`, pointID, now.AddDate(0, 0, i)).Scan(&registrationID))
		registrationIDs = append(registrationIDs, id.RegistrationID(registrationID))
	}
	return id.ProjectID(projectID), registrationIDs
}

func (s *LinkPostgresSuite) TestReplaceForProject() {
	projectID, registrationIDs := s.seed(3)

	s.Require().NoError(s.store.ReplaceForProject(s.ctx, projectID, registrationIDs))
	linked, err := s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(registrationIDs, linked)

	// replace drops rows that fell out of scope
	s.Require().NoError(s.store.ReplaceForProject(s.ctx, projectID, registrationIDs[:1]))
	linked, err = s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(registrationIDs[:1], linked)

	s.Require().NoError(s.store.ReplaceForProject(s.ctx, projectID, nil))
	linked, err = s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Empty(linked)
}

func (s *LinkPostgresSuite) TestInsertIsIdempotent() {
	projectID, registrationIDs := s.seed(1)

	for range 2 {
		s.Require().NoError(s.store.Insert(s.ctx, projectID, registrationIDs[0]))
	}

	linked, err := s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Len(linked, 1)
}

func (s *LinkPostgresSuite) TestInsertAfterReplace() {
	projectID, registrationIDs := s.seed(2)

	s.Require().NoError(s.store.ReplaceForProject(s.ctx, projectID, registrationIDs))
	s.Require().NoError(s.store.Insert(s.ctx, projectID, registrationIDs[1]))

	linked, err := s.store.ListByProject(s.ctx, projectID)
	s.Require().NoError(err)
	s.Equal(registrationIDs, linked)
}
