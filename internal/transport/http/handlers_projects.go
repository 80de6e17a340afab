package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	projectmodels "wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/httputil"
	"wastetrack/pkg/requestcontext"
)

// ProjectService is the lifecycle surface the transport layer needs.
type ProjectService interface {
	Create(ctx context.Context, customerID id.CustomerID, req *projectmodels.CreateProjectRequest) (*projectmodels.Project, error)
	Patch(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID, req *projectmodels.PatchProjectRequest) (*projectmodels.Project, error)
	Get(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*projectmodels.Project, error)
	FollowUps(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) ([]*projectmodels.Project, error)
}

// ProjectHandler wires project endpoints to the project service.
type ProjectHandler struct {
	service ProjectService
	logger  *slog.Logger
}

func NewProjectHandler(service ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

// Register mounts project endpoints on the router.
func (h *ProjectHandler) Register(r chi.Router) {
	r.Post("/projects", h.HandleCreate)
	r.Get("/projects/{id}", h.HandleGet)
	r.Get("/projects/{id}/follow-ups", h.HandleFollowUps)
	r.Patch("/projects/{id}", h.HandlePatch)
}

func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[projectmodels.CreateProjectRequest](w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.service.Create(ctx, requestcontext.CustomerID(ctx), &req)
	if err != nil {
		h.logError(ctx, "project creation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	project, err := h.service.Get(ctx, requestcontext.CustomerID(ctx), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) HandleFollowUps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	followUps, err := h.service.FollowUps(ctx, requestcontext.CustomerID(ctx), projectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, followUps)
}

func (h *ProjectHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, ok := pathProjectID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[projectmodels.PatchProjectRequest](w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.service.Patch(ctx, requestcontext.CustomerID(ctx), projectID, &req)
	if err != nil {
		h.logError(ctx, "project update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) logError(ctx context.Context, msg string, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg,
			"error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func pathProjectID(w http.ResponseWriter, r *http.Request) (id.ProjectID, bool) {
	raw := chi.URLParam(r, "id")
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid project id"))
		return 0, false
	}
	return id.ProjectID(value), true
}
