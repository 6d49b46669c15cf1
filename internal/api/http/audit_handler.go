package http

import (
	"net/http"

	"wastebank-backend/internal/domain"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	filter := domain.AuditFilter{
		Page:       q.page(),
		LocationID: q.optional("locationId"),
	}
	if a := q.optional("action"); a != nil {
		action := domain.AuditAction(*a)
		filter.Action = &action
	}
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}
	entries, meta, err := h.services.Audit.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Audit logs retrieved", entries, meta)
}
