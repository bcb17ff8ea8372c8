package roles

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

// Handler manages role administration endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Get("/permissions", h.listPermissions)
	r.Put("/{id}/permissions", h.setPermissions)
}

type setPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListRoles(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		authz.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"roles": result})
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListPermissions(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		authz.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"permissions": result})
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid role id", "bad_request")
		return
	}
	var req setPermissionsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}

	if err := h.service.SetRolePermissions(r.Context(), identity.PrincipalFromContext(r.Context()), roleID, req.PermissionIDs); err != nil {
		h.logger.Error("set role permissions", slog.Any("error", err))
		authz.RespondError(w, err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}
