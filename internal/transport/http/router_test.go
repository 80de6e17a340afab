package httptransport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"wastetrack/internal/association"
	associationstore "wastetrack/internal/association/store"
	"wastetrack/internal/guard"
	"wastetrack/internal/jwttoken"
	pointmodels "wastetrack/internal/point/models"
	pointservice "wastetrack/internal/point/service"
	pointstore "wastetrack/internal/point/store"
	projectmodels "wastetrack/internal/project/models"
	projectservice "wastetrack/internal/project/service"
	projectstore "wastetrack/internal/project/store"
	registrationmodels "wastetrack/internal/registration/models"
	registrationservice "wastetrack/internal/registration/service"
	registrationstore "wastetrack/internal/registration/store"
	id "wastetrack/pkg/domain"
	"wastetrack/pkg/platform/tx"
	"wastetrack/pkg/testutil"
)

// RouterSuite drives the full HTTP surface over in-memory stores: routing,
// authentication, JSON decoding, and domain error to status code mapping.
type RouterSuite struct {
	suite.Suite
	router http.Handler
	token  string
}

func (s *RouterSuite) SetupTest() {
	points := pointstore.NewInMemory()
	projects := projectstore.NewInMemory()
	registrations := registrationstore.NewInMemory()
	links := associationstore.NewInMemory()

	engine := association.NewEngine(registrations, links, nil)
	guards := guard.New(points, projects)
	runner := tx.NewMemoryRunner()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := jwttoken.NewService("test-signing-key", "wastetrack")
	token, err := tokens.GenerateAccessToken(1, "tester", time.Hour)
	s.Require().NoError(err)
	s.token = token

	s.router = NewRouter(RouterDeps{
		Points:        NewPointHandler(pointservice.New(points, guards, runner), logger),
		Projects:      NewProjectHandler(projectservice.New(projects, guards, engine, runner), logger),
		Registrations: NewRegistrationHandler(registrationservice.New(registrations, projects, engine, guards, runner), logger),
		Validator:     tokens,
		Logger:        logger,
	})
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("Authorization", "Bearer "+s.token)
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) createPoint(parentID *id.PointID, name string) *pointmodels.Point {
	rr := s.do(http.MethodPost, "/registration-points", map[string]any{
		"parentId": parentID, "name": name,
	})
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[pointmodels.Point](s.T(), rr)
}

func (s *RouterSuite) registrationsDuration(days int) map[string]any {
	return map[string]any{
		"type":  projectmodels.DurationRegistrations,
		"start": time.Now().UTC().Format(time.RFC3339),
		"days":  days,
	}
}

func (s *RouterSuite) TestAuthentication() {
	s.Run("health and metrics are open", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(s.T(), rr)

		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("api requires a bearer token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/registration-points/1"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("a garbage token is rejected", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/registration-points/1")
		req.Header.Set("Authorization", "Bearer not-a-token")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("mutating requests must declare a json body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/registration-points", `{"name":"Kitchen"}`)
		req.Header.Set("Content-Type", "text/plain")
		req.Header.Set("Authorization", "Bearer "+s.token)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *RouterSuite) TestPointEndpoints() {
	s.Run("create, read, and walk the subtree", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(&root.ID, "Buffet")
		s.Equal(root.ID.String(), child.Path)

		rr := s.do(http.MethodGet, fmt.Sprintf("/registration-points/%s", root.ID), nil)
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "name", "Kitchen")

		rr = s.do(http.MethodGet, fmt.Sprintf("/registration-points/%s/subtree", root.ID), nil)
		testutil.AssertStatusOK(s.T(), rr)
		subtree := testutil.UnmarshalResponse[[]*pointmodels.Point](s.T(), rr)
		s.Len(*subtree, 2)
	})

	s.Run("unknown point is 404", func() {
		rr := s.do(http.MethodGet, "/registration-points/99999", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id is 400", func() {
		rr := s.do(http.MethodGet, "/registration-points/abc", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("empty patch is 400", func() {
		root := s.createPoint(nil, "Kitchen")
		rr := s.do(http.MethodPatch, fmt.Sprintf("/registration-points/%s", root.ID), map[string]any{})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("patch moves and deactivates", func() {
		root := s.createPoint(nil, "Kitchen")
		annex := s.createPoint(nil, "Annex")
		child := s.createPoint(&root.ID, "Buffet")

		rr := s.do(http.MethodPatch, fmt.Sprintf("/registration-points/%s", child.ID), map[string]any{
			"parentId": annex.ID, "active": false,
		})
		testutil.AssertStatusOK(s.T(), rr)
		moved := testutil.UnmarshalResponse[pointmodels.Point](s.T(), rr)
		s.Equal(annex.ID.String(), moved.Path)
		s.False(moved.Active)
	})

	s.Run("a rejected activation does not undo the move", func() {
		cellar := s.createPoint(nil, "Cellar")
		box := s.createPoint(nil, "Box")
		for _, pointID := range []id.PointID{cellar.ID, box.ID} {
			rr := s.do(http.MethodPatch, fmt.Sprintf("/registration-points/%s", pointID), map[string]any{
				"active": false,
			})
			testutil.AssertStatusOK(s.T(), rr)
		}

		// Moving under the inactive parent is allowed for an inactive point;
		// activating under an inactive ancestor is not. The move stays applied.
		rr := s.do(http.MethodPatch, fmt.Sprintf("/registration-points/%s", box.ID), map[string]any{
			"parentId": cellar.ID, "active": true,
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")

		rr = s.do(http.MethodGet, fmt.Sprintf("/registration-points/%s", box.ID), nil)
		testutil.AssertStatusOK(s.T(), rr)
		moved := testutil.UnmarshalResponse[pointmodels.Point](s.T(), rr)
		s.Equal(cellar.ID.String(), moved.Path)
		s.False(moved.Active)
	})

	s.Run("cyclic move is 409", func() {
		root := s.createPoint(nil, "Kitchen")
		child := s.createPoint(&root.ID, "Buffet")

		rr := s.do(http.MethodPatch, fmt.Sprintf("/registration-points/%s", root.ID), map[string]any{
			"parentId": child.ID,
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("delete soft-removes the subtree", func() {
		root := s.createPoint(nil, "Kitchen")
		rr := s.do(http.MethodDelete, fmt.Sprintf("/registration-points/%s", root.ID), nil)
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

		rr = s.do(http.MethodGet, fmt.Sprintf("/registration-points/%s", root.ID), nil)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func (s *RouterSuite) TestProjectEndpoints() {
	s.Run("create rejects unknown scope points", func() {
		rr := s.do(http.MethodPost, "/projects", map[string]any{
			"name":               "Less waste",
			"duration":           s.registrationsDuration(3),
			"registrationPoints": []int{99999},
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("create then read back the derived state", func() {
		point := s.createPoint(nil, "Kitchen")
		rr := s.do(http.MethodPost, "/projects", map[string]any{
			"name":               "Less waste",
			"duration":           s.registrationsDuration(2),
			"registrationPoints": []id.PointID{point.ID},
			"actions":            []string{"Smaller plates"},
		})
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		project := testutil.UnmarshalResponse[projectmodels.Project](s.T(), rr)
		s.Equal(projectmodels.StatusRunning, project.Status)

		rr = s.do(http.MethodPost, "/registrations", map[string]any{
			"registrationPointId": point.ID,
			"date":                time.Now().UTC().Format(registrationmodels.DateLayout),
			"amount":              500,
			"cost":                10,
		})
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		rr = s.do(http.MethodGet, fmt.Sprintf("/projects/%s", project.ID), nil)
		testutil.AssertStatusOK(s.T(), rr)
		refreshed := testutil.UnmarshalResponse[projectmodels.Project](s.T(), rr)
		s.Equal(50, refreshed.Percentage)
	})

	s.Run("removing a point referenced by an ongoing project is 409", func() {
		point := s.createPoint(nil, "Kitchen")
		rr := s.do(http.MethodPost, "/projects", map[string]any{
			"name":               "Less waste",
			"duration":           s.registrationsDuration(3),
			"registrationPoints": []id.PointID{point.ID},
		})
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)

		rr = s.do(http.MethodDelete, fmt.Sprintf("/registration-points/%s", point.ID), nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("patching a finished project is 409", func() {
		rr := s.do(http.MethodPost, "/projects", map[string]any{
			"name":     "Less waste",
			"duration": s.registrationsDuration(3),
		})
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		project := testutil.UnmarshalResponse[projectmodels.Project](s.T(), rr)

		rr = s.do(http.MethodPatch, fmt.Sprintf("/projects/%s", project.ID), map[string]any{
			"status": projectmodels.StatusFinished,
		})
		testutil.AssertStatusOK(s.T(), rr)

		rr = s.do(http.MethodPatch, fmt.Sprintf("/projects/%s", project.ID), map[string]any{
			"name": "Renamed",
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("follow-ups of an unknown project is 404", func() {
		rr := s.do(http.MethodGet, "/projects/99999/follow-ups", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *RouterSuite) TestRegistrationEndpoint() {
	s.Run("rejects a malformed date", func() {
		point := s.createPoint(nil, "Kitchen")
		rr := s.do(http.MethodPost, "/registrations", map[string]any{
			"registrationPointId": point.ID,
			"date":                "01-03-2024",
			"amount":              500,
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("rejects an unknown point", func() {
		rr := s.do(http.MethodPost, "/registrations", map[string]any{
			"registrationPointId": 99999,
			"date":                time.Now().UTC().Format(registrationmodels.DateLayout),
			"amount":              500,
		})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}
