package registration

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// Handler serves the public registration endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the registration route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.register)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var input Input
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	userID, err := h.service.Register(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": userID})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCodeRequired):
		shared.RespondError(w, http.StatusBadRequest, "A registration code is required.", "code_required")
	case errors.Is(err, ErrCodeExpired):
		shared.RespondError(w, http.StatusGone, "This registration code has expired.", "code_expired")
	case errors.Is(err, ErrCodeExhausted):
		shared.RespondError(w, http.StatusConflict, "This registration code has no uses left.", "code_exhausted")
	case errors.Is(err, shared.ErrNotFound):
		shared.RespondError(w, http.StatusNotFound, "Invalid registration code.", "code_invalid")
	case errors.Is(err, shared.ErrConflict):
		shared.RespondError(w, http.StatusConflict, "This email address is already registered.", "conflict")
	default:
		h.logger.Error("register", slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err), "internal")
	}
}
