package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Handler wires the account management JSON endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers account routes. The actor middleware has already
// resolved the principal; gating happens in the service where target
// roles are known.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Post("/batch-delete", h.batchDelete)
}

type createRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role"`
	Nickname string `json:"nickname"`
}

type updateRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Role     *string `json:"role"`
	Nickname *string `json:"nickname"`
}

type batchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "list accounts", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"accounts": profiles})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	profile, err := h.service.Create(r.Context(), identity.PrincipalFromContext(r.Context()), CreateInput{
		Email:    req.Email,
		Password: req.Password,
		RoleName: req.Role,
		Nickname: req.Nickname,
	})
	if err != nil {
		h.respondError(w, "create account", err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, profile)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	profile, err := h.service.Update(r.Context(), identity.PrincipalFromContext(r.Context()), id, UpdateInput{
		Email:    req.Email,
		Password: req.Password,
		RoleName: req.Role,
		Nickname: req.Nickname,
	})
	if err != nil {
		h.respondError(w, "update account", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, profile)
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	result, err := h.service.Delete(r.Context(), identity.PrincipalFromContext(r.Context()), req.IDs)
	if err != nil {
		h.respondError(w, "batch delete accounts", err)
		return
	}
	switch {
	case len(result.Failed) == 0:
		shared.RespondJSON(w, http.StatusOK, result)
	case len(result.Succeeded) == 0:
		shared.RespondJSON(w, http.StatusInternalServerError, result)
	default:
		shared.RespondJSON(w, http.StatusMultiStatus, result)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	authz.RespondError(w, err)
}
