package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aegis-authz/aegis/internal/audit"
	"github.com/aegis-authz/aegis/internal/authz"
	"github.com/aegis-authz/aegis/internal/catalog"
	"github.com/aegis-authz/aegis/internal/observability"
	"github.com/aegis-authz/aegis/internal/positions"
	"github.com/aegis-authz/aegis/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthzMiddleware  authz.Middleware
	AuthzHandler     *authz.Handler
	CatalogHandler   *catalog.Handler
	PositionsHandler *positions.Handler
	UsersHandler     *users.Handler
	AuditHandler     *audit.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router for the service.
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
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	guard := params.AuthzMiddleware

	r.Route("/v1", func(r chi.Router) {
		r.Route("/authz", func(r chi.Router) {
			params.AuthzHandler.MountRoutes(r)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Use(guard.RequireAny(catalog.PermViewPermissions, catalog.PermManagePermissions))
			params.CatalogHandler.MountRoutes(r)
		})

		r.Route("/positions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAny(catalog.PermViewPositions, catalog.PermManagePositions))
				params.PositionsHandler.MountViewRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(guard.RequirePermission(catalog.PermManagePositions))
				params.PositionsHandler.MountManageRoutes(r)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(guard.RequireAny(catalog.PermViewUsers, catalog.PermManageUsers))
				params.UsersHandler.MountViewRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(guard.RequirePermission(catalog.PermManageUsers))
				params.UsersHandler.MountManageRoutes(r)
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(guard.RequirePermission(catalog.PermViewAuditLogs))
			params.AuditHandler.MountRoutes(r)
		})
	})

	return r
}
