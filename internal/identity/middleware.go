package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rollcall-app/rollcall/internal/shared"
)

// ActorHeader carries the caller id set by the trusted session layer in
// front of this service. The service never verifies passwords on the
// request path, only resolves what the id is allowed to do.
const ActorHeader = "X-Admin-User-Id"

// Middleware resolves the caller on every request that needs one.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireActor rejects requests without a resolvable principal and stores
// the principal in the request context for downstream handlers.
func (m Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.Resolver.Resolve(r.Context(), r.Header.Get(ActorHeader))
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrUnauthorized):
				shared.RespondDomainError(w, err)
			default:
				if m.Logger != nil {
					m.Logger.Error("resolve actor", slog.Any("error", err))
				}
				shared.RespondError(w, http.StatusInternalServerError, shared.UserSafeMessage(err), "")
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}
