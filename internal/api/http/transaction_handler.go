package http

import (
	"net/http"

	"wastebank-backend/internal/domain"
	"wastebank-backend/internal/service"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	filter := domain.TransactionFilter{
		Page:       q.page(),
		LocationID: q.optional("locationId"),
		UserID:     q.optional("userId"),
		From:       q.time("from"),
		To:         q.time("to"),
	}
	if s := q.optional("status"); s != nil {
		status := domain.TransactionStatus(*s)
		filter.Status = &status
	}
	if t := q.optional("type"); t != nil {
		typ := domain.TransactionType(*t)
		filter.Type = &typ
	}
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}

	txs, meta, err := h.services.Transactions.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Transactions retrieved", txs, meta)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	tx, err := h.services.Transactions.Get(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Transaction retrieved", tx)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.services.Transactions.Create(r.Context(), caller, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Transaction created", tx)
}

func (h *Handler) ProcessTransaction(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req processTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.services.Transactions.Process(r.Context(), caller, pathVar(r, "id"), service.ProcessTransactionInput{
		ActualWeight: *req.ActualWeight,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Transaction processed", tx)
}

func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	tx, err := h.services.Transactions.Cancel(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Transaction cancelled", tx)
}
