package events

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Handler manages event endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}/participants", h.participants)
	r.Post("/", h.save)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.List(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list events", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) participants(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id", "bad_request")
		return
	}
	ids, err := h.service.Participants(r.Context(), identity.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, "event participants", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"participants": ids})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var input EventInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(&input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	event, err := h.service.Save(r.Context(), identity.PrincipalFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "save event", err)
		return
	}
	status := http.StatusOK
	if input.ID == 0 {
		status = http.StatusCreated
	}
	shared.RespondJSON(w, status, event)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id", "bad_request")
		return
	}
	if err := h.service.Delete(r.Context(), identity.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete event", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	authz.RespondError(w, err)
}
