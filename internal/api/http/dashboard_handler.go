package http

import (
	"net/http"

	"wastebank-backend/internal/service"
)

func (h *Handler) CustomerSummary(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	summary, err := h.services.Dashboard.CustomerSummary(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Customer summary fetched", summary)
}

func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	in := service.ReportInput{
		LocationID: q.optional("locationId"),
		From:       q.time("startDate"),
		To:         q.time("endDate"),
	}
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.services.Dashboard.Report(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Report generated successfully", report)
}
