package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aegis-authz/aegis/internal/identity"
	"github.com/aegis-authz/aegis/internal/platform/httpx"
)

// Middleware wires authorization enforcement for HTTP handlers. The
// constructors validate their permission codes against the catalog when the
// router is built, so a typoed code crashes at startup instead of surfacing
// as a spurious 403 in production.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// RequirePermission ensures the caller holds the permission.
func (m Middleware) RequirePermission(code string) func(http.Handler) http.Handler {
	return m.guard([]string{code}, m.Engine.CheckAll)
}

// RequireAll ensures the caller holds every listed permission.
func (m Middleware) RequireAll(codes ...string) func(http.Handler) http.Handler {
	return m.guard(codes, m.Engine.CheckAll)
}

// RequireAny ensures the caller holds at least one of the listed permissions.
func (m Middleware) RequireAny(codes ...string) func(http.Handler) http.Handler {
	return m.guard(codes, m.Engine.CheckAny)
}

func (m Middleware) guard(codes []string, check func(context.Context, int64, ...string) (Decision, error)) func(http.Handler) http.Handler {
	if err := m.Engine.Catalog().Require(codes...); err != nil {
		panic(fmt.Sprintf("authz: route requires unregistered permission: %v", err))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := identity.FromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no verified identity")
				return
			}
			decision, err := check(r.Context(), principal.UserID, codes...)
			if err != nil {
				if errors.Is(err, ErrStorageUnavailable) {
					if m.Logger != nil {
						m.Logger.Warn("authorization degraded", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "authorization temporarily unavailable, retry later")
					return
				}
				if m.Logger != nil {
					m.Logger.Error("authorization check", slog.Any("error", err))
				}
				httpx.Internal(w)
				return
			}
			if !decision.Allowed() {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing required permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
