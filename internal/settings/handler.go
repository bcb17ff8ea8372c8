package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Handler manages system-settings endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listSettings)
	r.Put("/{key}", h.updateSetting)
	r.Get("/codes", h.listCodes)
	r.Post("/codes", h.createCode)
	r.Put("/codes/{id}", h.updateCode)
	r.Delete("/codes/{id}", h.deleteCode)
}

type updateSettingRequest struct {
	Value json.RawMessage `json:"value" validate:"required"`
}

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Settings(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list settings", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"settings": result})
}

func (h *Handler) updateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req updateSettingRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	setting, err := h.service.UpdateSetting(r.Context(), identity.PrincipalFromContext(r.Context()), key, req.Value)
	if err != nil {
		h.fail(w, "update setting", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, setting)
}

func (h *Handler) listCodes(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListCodes(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list registration codes", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"codes": result})
}

func (h *Handler) createCode(w http.ResponseWriter, r *http.Request) {
	var input CodeInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	code, err := h.service.CreateCode(r.Context(), identity.PrincipalFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "create registration code", err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, code)
}

func (h *Handler) updateCode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid code id", "bad_request")
		return
	}
	var input CodeInput
	if err := shared.DecodeJSON(r, &input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	code, err := h.service.UpdateCode(r.Context(), identity.PrincipalFromContext(r.Context()), id, input)
	if err != nil {
		h.fail(w, "update registration code", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, code)
}

func (h *Handler) deleteCode(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid code id", "bad_request")
		return
	}
	if err := h.service.DeleteCode(r.Context(), identity.PrincipalFromContext(r.Context()), id); err != nil {
		h.fail(w, "delete registration code", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	authz.RespondError(w, err)
}
