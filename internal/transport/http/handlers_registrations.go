package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	registrationmodels "wastetrack/internal/registration/models"
	id "wastetrack/pkg/domain"
	dErrors "wastetrack/pkg/domain-errors"
	"wastetrack/pkg/platform/httputil"
	"wastetrack/pkg/requestcontext"
)

// RegistrationService is the ledger surface the transport layer needs.
type RegistrationService interface {
	Record(ctx context.Context, customerID id.CustomerID, pointID id.PointID, date time.Time, amount, cost float64) (*registrationmodels.Registration, error)
}

// RegistrationHandler wires the ledger endpoint to the registration service.
type RegistrationHandler struct {
	service RegistrationService
	logger  *slog.Logger
}

func NewRegistrationHandler(service RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, logger: logger}
}

// Register mounts the ledger endpoint on the router.
func (h *RegistrationHandler) Register(r chi.Router) {
	r.Post("/registrations", h.HandleRecord)
}

type recordRegistrationRequest struct {
	PointID id.PointID `json:"registrationPointId"`
	Date    string     `json:"date"`
	Amount  float64    `json:"amount"`
	Cost    float64    `json:"cost"`
}

func (h *RegistrationHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[recordRegistrationRequest](w, r, h.logger)
	if !ok {
		return
	}
	date, err := time.Parse(registrationmodels.DateLayout, req.Date)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "date must be formatted YYYY-MM-DD"))
		return
	}

	registration, err := h.service.Record(ctx, requestcontext.CustomerID(ctx), req.PointID, date, req.Amount, req.Cost)
	if err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "registration recording failed",
				"error", err, "request_id", requestcontext.RequestID(ctx))
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, registration)
}
