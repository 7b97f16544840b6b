package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramonehamilton/deck-winrate/internal/api/handlers"
	"github.com/ramonehamilton/deck-winrate/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	// Prometheus scrape endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		winrateHandler := handlers.NewWinrateHandler(s.calculator, s.metrics, s.config.Chart)
		r.Route("/winrate", func(r chi.Router) {
			r.Post("/calculate", winrateHandler.Calculate)
			r.Post("/chart", winrateHandler.Chart)
			r.Get("/advantages", winrateHandler.GetAdvantages)
			r.Get("/distribution", winrateHandler.GetDistribution)
		})

		systemHandler := handlers.NewSystemHandler(s.metrics)
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", systemHandler.GetStatus)
			r.Get("/version", systemHandler.GetVersion)
		})
	})
}

// healthCheck returns server health status.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": handlers.ServiceName,
	})
}
