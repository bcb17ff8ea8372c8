package jobs

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestRollupRejectsBadDays(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, slog.Default()))

	for _, days := range []string{"zero", "-1", "0"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/rollup?days="+days, nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestRollupWithoutClientIsUnavailable(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, slog.Default()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/rollup", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthWithoutInspectorReportsEmptyQueue(t *testing.T) {
	router := newJobsRouter(NewHandler(nil, nil, slog.Default()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}
