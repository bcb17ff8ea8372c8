package records

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rollcall-app/rollcall/internal/authz"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// Handler manages check-in record endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers check-in record routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.query)
	r.Get("/recent", h.recent)
	r.Get("/stats/daily", h.dailyStats)
	r.Get("/event/{eventID}", h.byEvent)
	r.Post("/", h.save)
	r.Post("/batch-delete", h.batchDelete)
}

type saveRequest struct {
	Records []RecordInput `json:"records" validate:"required,min=1,dive"`
}

type deleteRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	actor := identity.PrincipalFromContext(r.Context())

	if date := r.URL.Query().Get("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			shared.RespondError(w, http.StatusBadRequest, "invalid date", "bad_request")
			return
		}
		rows, err := h.service.ByDate(r.Context(), actor, day)
		if err != nil {
			h.fail(w, "records by date", err)
			return
		}
		shared.RespondJSON(w, http.StatusOK, map[string]any{"records": rows})
		return
	}

	from, ok := h.parseTime(w, r.URL.Query().Get("from"))
	if !ok {
		return
	}
	to, ok := h.parseTime(w, r.URL.Query().Get("to"))
	if !ok {
		return
	}
	rows, err := h.service.ByRange(r.Context(), actor, from, to)
	if err != nil {
		h.fail(w, "records by range", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"records": rows})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	result, err := h.service.Recent(r.Context(), identity.PrincipalFromContext(r.Context()), page, pageSize)
	if err != nil {
		h.fail(w, "recent records", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) dailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DailyStats(r.Context(), identity.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "daily stats", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *Handler) byEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid event id", "bad_request")
		return
	}
	rows, err := h.service.ByEvent(r.Context(), identity.PrincipalFromContext(r.Context()), eventID)
	if err != nil {
		h.fail(w, "records by event", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"records": rows})
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	inserted, err := h.service.Save(r.Context(), identity.PrincipalFromContext(r.Context()), req.Records)
	if err != nil {
		h.fail(w, "save records", err)
		return
	}
	shared.RespondJSON(w, http.StatusCreated, map[string]any{"inserted": inserted})
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		shared.RespondError(w, http.StatusBadRequest, err.Error(), "validation")
		return
	}
	if err := h.service.Delete(r.Context(), identity.PrincipalFromContext(r.Context()), req.IDs); err != nil {
		h.fail(w, "delete records", err)
		return
	}
	shared.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) parseTime(w http.ResponseWriter, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		shared.RespondError(w, http.StatusBadRequest, "invalid timestamp", "bad_request")
		return nil, false
	}
	return &ts, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	authz.RespondError(w, err)
}
