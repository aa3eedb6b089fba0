// Package httptransport assembles the public HTTP surface: the gated audit
// endpoint, the authenticated profile endpoint, admin quota tooling, and the
// operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scangate/internal/audit"
	"scangate/internal/gate"
	"scangate/internal/platform/middleware"
	principalstore "scangate/internal/principal/store"
	quotaservice "scangate/internal/quota/service"
	"scangate/pkg/httputil"
)

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Logger     *slog.Logger
	Gate       *gate.Gate
	Dispatcher *audit.Dispatcher
	Quota      *quotaservice.Service
	Principals principalstore.Store

	// Health maps a dependency name to its checker. Nil checkers are skipped.
	Health map[string]HealthChecker
}

// NewRouter wires all routes with the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)

	auditHandler := NewAuditHandler(deps.Dispatcher, deps.Logger)
	userInfoHandler := NewUserInfoHandler(deps.Principals, deps.Logger)
	adminHandler := NewAdminHandler(deps.Quota, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.Guard())
		r.Post("/audit", auditHandler.HandleCreate)
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.RequireUser())
		r.Get("/auth/userinfo", userInfoHandler.HandleUserInfo)
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.RequireAdmin())
		r.Get("/admin/quota", adminHandler.HandleList)
		r.Get("/admin/quota/{guestID}", adminHandler.HandleGet)
		r.Delete("/admin/quota/{guestID}", adminHandler.HandleReset)
	})

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := make(map[string]string, len(checkers)+1)
		statuses["server"] = "ok"
		healthy := true
		for name, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(r.Context()); err != nil {
				statuses[name] = err.Error()
				healthy = false
				continue
			}
			statuses[name] = "ok"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, statuses)
	}
}
