package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/fleetlock/internal/auth"
)

// healthCheckTimeout bounds each component check on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Prometheus scrape endpoint (no auth, same as /health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			read := r.With(s.requirePermission(auth.PermDeviceRead))
			read.Get("/devices", s.handleListDevices)
			read.Get("/devices/stats", s.handleDeviceStats)
			read.Get("/devices/{name}", s.handleGetDevice)
			read.Get("/ws", s.handleWebSocket)

			r.With(s.requirePermission(auth.PermCommandRead)).Get("/commands", s.handleListCommands)

			operate := r.With(s.requirePermission(auth.PermDeviceOperate))
			operate.Patch("/devices/{name}", s.handleUpdateDevice)
			operate.Put("/devices/{name}/lock", s.handleSetLock)
			operate.Post("/devices/{name}/launch/{variant}", s.handleLaunch)
			operate.Post("/devices/{name}/terminate", s.handleTerminate)

			operate.Put("/selection", s.handleSetAllSelected)
			operate.Put("/selected/lock", s.handleSetLockSelected)
			operate.Post("/selected/launch/{variant}", s.handleLaunchSelected)
			operate.Post("/selected/terminate", s.handleTerminateSelected)
		})
	})

	return r
}

// handleHealth reports ok, or degraded when an optional component fails.
// The control loops themselves have no failure state to report.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.components))
	for name, c := range s.components {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
