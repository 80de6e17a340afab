package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/requestcontext"
	"wastetrack/pkg/testutil"
)

type staticValidator struct {
	claims *TokenClaims
	err    error
}

func (v *staticValidator) ValidateToken(string) (*TokenClaims, error) {
	return v.claims, v.err
}

type MiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *MiddlewareSuite) TestRequireCustomer() {
	s.Run("propagates customer and actor from the token", func() {
		var gotCustomer id.CustomerID
		var gotActor string
		handler := RequireCustomer(&staticValidator{claims: &TokenClaims{CustomerID: 7, Subject: "tester"}}, s.logger)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotCustomer = requestcontext.CustomerID(r.Context())
				gotActor = requestcontext.Actor(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

		req := testutil.NewRequest(s.T(), http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer token")
		rr := testutil.DoRequest(handler, req)
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal(id.CustomerID(7), gotCustomer)
		s.Equal("tester", gotActor)
	})

	s.Run("missing header is unauthorized", func() {
		handler := RequireCustomer(&staticValidator{}, s.logger)(okHandler())
		rr := testutil.DoRequest(handler, testutil.NewRequest(s.T(), http.MethodGet, "/"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("validator rejection is unauthorized", func() {
		handler := RequireCustomer(&staticValidator{err: dErrors.New(dErrors.CodeUnauthorized, "expired")}, s.logger)(okHandler())
		req := testutil.NewRequest(s.T(), http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer token")
		rr := testutil.DoRequest(handler, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("token without customer scope is unauthorized", func() {
		handler := RequireCustomer(&staticValidator{claims: &TokenClaims{Subject: "tester"}}, s.logger)(okHandler())
		req := testutil.NewRequest(s.T(), http.MethodGet, "/")
		req.Header.Set("Authorization", "Bearer token")
		rr := testutil.DoRequest(handler, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *MiddlewareSuite) TestRateLimiter() {
	do := func(handler http.Handler, customerID id.CustomerID) *httptest.ResponseRecorder {
		req := testutil.WithCustomer(testutil.NewRequest(s.T(), http.MethodGet, "/"), customerID)
		return testutil.DoRequest(handler, req)
	}

	s.Run("requests over the limit get 429", func() {
		handler := NewRateLimiter(2, time.Minute).Middleware(okHandler())

		testutil.AssertStatusOK(s.T(), do(handler, 1))
		testutil.AssertStatusOK(s.T(), do(handler, 1))

		rr := do(handler, 1)
		testutil.AssertStatus(s.T(), rr, http.StatusTooManyRequests)
		testutil.AssertErrorCode(s.T(), rr, "rate_limited")
		s.Equal("2", rr.Header().Get("X-RateLimit-Limit"))
	})

	s.Run("customers do not share windows", func() {
		handler := NewRateLimiter(1, time.Minute).Middleware(okHandler())

		testutil.AssertStatusOK(s.T(), do(handler, 1))
		testutil.AssertStatusOK(s.T(), do(handler, 2))
		testutil.AssertStatus(s.T(), do(handler, 1), http.StatusTooManyRequests)
	})

	s.Run("the window slides", func() {
		limiter := NewRateLimiter(1, time.Minute)
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		_, ok := limiter.allow(1, now)
		s.True(ok)
		_, ok = limiter.allow(1, now.Add(30*time.Second))
		s.False(ok)
		_, ok = limiter.allow(1, now.Add(61*time.Second))
		s.True(ok)
	})
}
