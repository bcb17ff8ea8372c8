package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rollcall-app/rollcall/internal/accounts"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/events"
	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/observability"
	"github.com/rollcall-app/rollcall/internal/personnel"
	"github.com/rollcall-app/rollcall/internal/records"
	"github.com/rollcall-app/rollcall/internal/registration"
	"github.com/rollcall-app/rollcall/internal/roles"
	"github.com/rollcall-app/rollcall/internal/settings"
	"github.com/rollcall-app/rollcall/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	IdentityMiddleware  identity.Middleware
	AccountsHandler     *accounts.Handler
	RolesHandler        *roles.Handler
	PersonnelHandler    *personnel.Handler
	RecordsHandler      *records.Handler
	EventsHandler       *events.Handler
	AuditHandler        *audit.Handler
	SettingsHandler     *settings.Handler
	RegistrationHandler *registration.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with Rollcall defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Everything under /api requires a resolvable actor.
	r.Route("/api", func(r chi.Router) {
		r.Use(params.IdentityMiddleware.RequireActor)

		if params.AccountsHandler != nil {
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.PersonnelHandler != nil {
			r.Route("/personnel", params.PersonnelHandler.MountRoutes)
		}
		if params.RecordsHandler != nil {
			r.Route("/records", params.RecordsHandler.MountRoutes)
		}
		if params.EventsHandler != nil {
			r.Route("/events", params.EventsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.SettingsHandler != nil {
			r.Route("/settings", params.SettingsHandler.MountRoutes)
		}
	})

	// Self-registration is the one public mutation: admission is decided
	// by the registration-code gate, not by a resolved actor.
	if params.RegistrationHandler != nil {
		r.Route("/register", params.RegistrationHandler.MountRoutes)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
