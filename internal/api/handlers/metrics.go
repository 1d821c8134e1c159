package handlers

import (
	"net/http"

	"releaseguard/internal/platform/metrics"
)

type MetricsHandler struct {
	h http.Handler
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{h: metrics.Handler()}
}

// Export serves the Prometheus registry.
func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.h.ServeHTTP(w, r)
}
