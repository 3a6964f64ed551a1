package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/philippkemmeter/mvcfun/internal/controller"
)

// StatsProvider is implemented by Server.
type StatsProvider interface {
	Stats() MetricsSnapshot
}

// ControllerLister is implemented by router.Router.
type ControllerLister interface {
	Controllers() []controller.Controller
}

type adminHandler struct {
	stats       StatsProvider
	controllers ControllerLister
}

// NewAdminHandler returns the operational endpoints served next to the
// application port: /healthz, /stats, /controllers and /metrics for the
// collectors in gatherer.
func NewAdminHandler(stats StatsProvider, controllers ControllerLister, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	h := &adminHandler{stats: stats, controllers: controllers}
	registerAdminRoutes(router, h, gatherer)
	return router
}

func registerAdminRoutes(router chi.Router, h *adminHandler, gatherer prometheus.Gatherer) {
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Get("/stats", h.handleStats)
	router.Get("/controllers", h.handleControllers)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func (h *adminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Stats())
}

func (h *adminHandler) handleControllers(w http.ResponseWriter, r *http.Request) {
	list := h.controllers.Controllers()
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = controller.Describe(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
