package http

import (
	"net/http"

	"wastebank-backend/internal/health"
)

// Health reports store reachability. A degraded store answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.health.Check(r.Context())
	if report.Status != health.StatusOK {
		writeJSON(w, http.StatusServiceUnavailable, Envelope{Status: "error", Message: "Service degraded", Data: report})
		return
	}
	ok(w, "Service healthy", report)
}
