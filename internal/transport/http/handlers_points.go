package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	pointmodels "wastetrack/internal/point/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/httputil"
	"wastetrack/pkg/requestcontext"
)

// PointService is the hierarchy surface the transport layer needs.
type PointService interface {
	Create(ctx context.Context, customerID id.CustomerID, parentID *id.PointID, name, label string, amount, cost float64) (*pointmodels.Point, error)
	Get(ctx context.Context, customerID id.CustomerID, pointID id.PointID) (*pointmodels.Point, error)
	Subtree(ctx context.Context, customerID id.CustomerID, pointID id.PointID) ([]*pointmodels.Point, error)
	Reparent(ctx context.Context, customerID id.CustomerID, pointID id.PointID, newParentID *id.PointID) (*pointmodels.Point, error)
	SetActive(ctx context.Context, customerID id.CustomerID, pointID id.PointID, active bool) (*pointmodels.Point, error)
	Remove(ctx context.Context, customerID id.CustomerID, pointID id.PointID) error
}

// PointHandler wires registration point endpoints to the point service.
type PointHandler struct {
	service PointService
	logger  *slog.Logger
}

func NewPointHandler(service PointService, logger *slog.Logger) *PointHandler {
	return &PointHandler{service: service, logger: logger}
}

// Register mounts point endpoints on the router.
func (h *PointHandler) Register(r chi.Router) {
	r.Post("/registration-points", h.HandleCreate)
	r.Get("/registration-points/{id}", h.HandleGet)
	r.Get("/registration-points/{id}/subtree", h.HandleSubtree)
	r.Patch("/registration-points/{id}", h.HandlePatch)
	r.Delete("/registration-points/{id}", h.HandleRemove)
}

type createPointRequest struct {
	ParentID *id.PointID `json:"parentId,omitempty"`
	Name     string      `json:"name"`
	Label    string      `json:"label,omitempty"`
	Amount   float64     `json:"amount"`
	Cost     float64     `json:"cost"`
}

// patchPointRequest moves and/or toggles a point. A parentId of 0 moves the
// point to the root.
type patchPointRequest struct {
	ParentID *id.PointID `json:"parentId,omitempty"`
	Active   *bool       `json:"active,omitempty"`
}

func (h *PointHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[createPointRequest](w, r, h.logger)
	if !ok {
		return
	}

	point, err := h.service.Create(ctx, requestcontext.CustomerID(ctx), req.ParentID, req.Name, req.Label, req.Amount, req.Cost)
	if err != nil {
		h.logError(ctx, "point creation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, point)
}

func (h *PointHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pointID, ok := pathPointID(w, r)
	if !ok {
		return
	}
	point, err := h.service.Get(ctx, requestcontext.CustomerID(ctx), pointID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, point)
}

func (h *PointHandler) HandleSubtree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pointID, ok := pathPointID(w, r)
	if !ok {
		return
	}
	subtree, err := h.service.Subtree(ctx, requestcontext.CustomerID(ctx), pointID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, subtree)
}

// HandlePatch applies the requested changes in order: the move first, then
// the activation toggle. Each change is atomic on its own; a rejected toggle
// does not undo an already applied move.
func (h *PointHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pointID, ok := pathPointID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[patchPointRequest](w, r, h.logger)
	if !ok {
		return
	}
	customerID := requestcontext.CustomerID(ctx)

	var point *pointmodels.Point
	var err error
	if req.ParentID != nil {
		newParent := req.ParentID
		if newParent.IsZero() {
			newParent = nil
		}
		point, err = h.service.Reparent(ctx, customerID, pointID, newParent)
		if err != nil {
			h.logError(ctx, "point reparent failed", err)
			httputil.WriteError(w, err)
			return
		}
	}
	if req.Active != nil {
		point, err = h.service.SetActive(ctx, customerID, pointID, *req.Active)
		if err != nil {
			h.logError(ctx, "point activation toggle failed", err)
			httputil.WriteError(w, err)
			return
		}
	}
	if point == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "patch names no changes"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, point)
}

func (h *PointHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pointID, ok := pathPointID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(ctx, requestcontext.CustomerID(ctx), pointID); err != nil {
		h.logError(ctx, "point removal failed", err)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PointHandler) logError(ctx context.Context, msg string, err error) {
	if h.logger != nil {
		h.logger.ErrorContext(ctx, msg,
			"error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func pathPointID(w http.ResponseWriter, r *http.Request) (id.PointID, bool) {
	raw := chi.URLParam(r, "id")
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid point id"))
		return 0, false
	}
	return id.PointID(value), true
}
