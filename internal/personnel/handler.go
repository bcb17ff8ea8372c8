package personnel

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

// Handler manages personnel registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers personnel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Put("/{id}/tags", h.updateTags)
	r.Post("/import", h.importRows)
	r.Post("/batch-delete", h.batchDelete)
}

type importRequest struct {
	IdempotencyKey string        `json:"idempotency_key"`
	Rows           []PersonInput `json:"rows" validate:"required,min=1,dive"`
}

type tagsRequest struct {
	Tags []string `json:"tags" validate:"required"`
}

type deleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.List(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list personnel", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"personnel": people})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input PersonInput
	if !h.decode(w, r, &input) {
		return
	}
	person, err := h.service.Create(r.Context(), identity.PrincipalFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "create person", err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, person)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id", "bad_request")
		return
	}
	var input PersonInput
	if !h.decode(w, r, &input) {
		return
	}
	person, err := h.service.Update(r.Context(), identity.PrincipalFromContext(r.Context()), id, input)
	if err != nil {
		h.fail(w, "update person", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, person)
}

func (h *Handler) updateTags(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid id", "bad_request")
		return
	}
	var req tagsRequest
	if !h.decode(w, r, &req) {
		return
	}
	person, err := h.service.UpdateTags(r.Context(), identity.PrincipalFromContext(r.Context()), id, req.Tags)
	if err != nil {
		h.fail(w, "update tags", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, person)
}

func (h *Handler) importRows(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.Import(r.Context(), identity.PrincipalFromContext(r.Context()), req.IdempotencyKey, req.Rows)
	if err != nil {
		h.fail(w, "import personnel", err)
		return
	}
	status := http.StatusOK
	if len(result.Errors) > 0 && (result.Inserted > 0 || result.Updated > 0) {
		status = http.StatusMultiStatus
	}
	shared.RespondJSON(w, status, result)
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Delete(r.Context(), identity.PrincipalFromContext(r.Context()), req.IDs); err != nil {
		h.fail(w, "delete personnel", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	authz.RespondError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := shared.DecodeJSON(r, dst); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return false
	}
	return true
}
