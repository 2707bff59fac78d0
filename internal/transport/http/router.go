// Package httptransport assembles the public HTTP surface: middleware order,
// authenticated module routes, health and metrics.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"umid/pkg/platform/middleware/admin"
	"umid/pkg/platform/middleware/auth"
	"umid/pkg/platform/middleware/request"
	"umid/pkg/platform/middleware/requesttime"
)

// ModuleRoutes is implemented by module handlers.
type ModuleRoutes interface {
	Register(r chi.Router)
}

// AdminRoutes is implemented by handlers that expose admin-only routes.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// Deps are the pieces the router wires together.
type Deps struct {
	Validator auth.JWTValidator
	Logger    *slog.Logger
	Modules   []ModuleRoutes
	Admin     []AdminRoutes
	Health    *Health
	// Metrics serves the Prometheus registry; nil disables /metrics.
	Metrics http.Handler
}

// NewRouter wires all public endpoints. Everything except /healthz and
// /metrics requires a bearer token; /admin additionally requires the admin role.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		for _, m := range d.Modules {
			m.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.Logger))
			for _, m := range d.Admin {
				m.RegisterAdmin(r)
			}
		})
	})
	return r
}
