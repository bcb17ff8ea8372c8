package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rollcall-app/rollcall/internal/identity"
	"github.com/rollcall-app/rollcall/internal/shared"
)

// DenialObserver counts denied permission checks.
type DenialObserver interface {
	CountDenial(reason string)
}

var denialObserver DenialObserver

// ObserveDenials registers the process-wide denial counter. Call once at
// startup, before serving.
func ObserveDenials(o DenialObserver) {
	denialObserver = o
}

func countDenial(reason DenyReason) {
	if denialObserver != nil {
		denialObserver.CountDenial(string(reason))
	}
}

// RespondError writes a service error, surfacing the gate reason when the
// error is a denial. Every denial that reaches the wire is counted here.
func RespondError(w http.ResponseWriter, err error) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		countDenial(denied.Decision.Reason)
		shared.RespondError(w, http.StatusForbidden, shared.UserSafeMessage(shared.ErrUnauthorized), string(denied.Decision.Reason))
		return
	}
	shared.RespondDomainError(w, err)
}

// Middleware wires gate checks for routes whose action has no per-target
// role (listings, creates against non-account tables). Target-aware checks
// happen inside services, where the target's role is known.
type Middleware struct {
	Logger *slog.Logger
}

// Require ensures the current principal passes the gate for perm.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := identity.PrincipalFromContext(r.Context())
			if principal == nil {
				shared.RespondDomainError(w, shared.ErrUnauthenticated)
				return
			}
			decision := Authorize(principal, perm, nil)
			if !decision.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("denied",
						slog.String("actor", principal.ID),
						slog.String("permission", perm),
						slog.String("reason", string(decision.Reason)))
				}
				RespondError(w, decision.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
