package http

import (
	"net/http"

	"wastebank-backend/internal/domain"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	filter := domain.UserFilter{
		Page:       q.page(),
		LocationID: q.optional("locationId"),
		Search:     q.get("search"),
	}
	if role := q.optional("role"); role != nil {
		rr := domain.Role(*role)
		filter.Role = &rr
	}
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}

	users, meta, err := h.services.Users.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Users retrieved", users, meta)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	user, err := h.services.Users.Get(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "User retrieved", user)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.services.Users.Create(r.Context(), caller, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "User created", user)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.services.Users.Update(r.Context(), caller, pathVar(r, "id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "User updated", user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	if err := h.services.Users.Delete(r.Context(), caller, pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "User deleted", nil)
}

// Leaderboard ranks NASABAH users by points, optionally within one location.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	q := newQuery(r)
	limit := q.int("limit")
	location := q.optional("locationId")
	if err := q.err(); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.services.Users.Leaderboard(r.Context(), caller, location, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Leaderboard retrieved", entries)
}
