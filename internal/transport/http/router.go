package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wastetrack/internal/platform/metrics"
	"wastetrack/internal/platform/middleware"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Points        *PointHandler
	Projects      *ProjectHandler
	Registrations *RegistrationHandler
	Validator     middleware.TokenValidator
	Logger        *slog.Logger
	HTTPMetrics   *metrics.HTTP
	RateLimiter   *middleware.RateLimiter
	Timeout       time.Duration
}

// NewRouter assembles the middleware chain and mounts every endpoint. The
// API routes sit behind authentication; health and metrics do not.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}
	if deps.Timeout > 0 {
		r.Use(middleware.Timeout(deps.Timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(middleware.ContentTypeJSON)
		api.Use(middleware.RequireCustomer(deps.Validator, deps.Logger))
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Middleware)
		}
		deps.Points.Register(api)
		deps.Projects.Register(api)
		deps.Registrations.Register(api)
	})
	return r
}
