package http

import (
	"net/http"

	"wastebank-backend/internal/domain"
)

func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	locations, err := h.services.Locations.List(r.Context(), caller)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Locations retrieved", locations)
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	loc, err := h.services.Locations.Get(r.Context(), caller, pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Location retrieved", loc)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.services.Locations.Create(r.Context(), caller, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Location created", loc)
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	loc, err := h.services.Locations.Update(r.Context(), caller, pathVar(r, "id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Location updated", loc)
}

func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	if err := h.services.Locations.Delete(r.Context(), caller, pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Location deleted", nil)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	filter, err := catalogFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, meta, err := h.services.Categories.List(r.Context(), caller, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	paginated(w, "Waste categories retrieved", categories, meta)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := h.services.Categories.Create(r.Context(), caller, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, "Waste category created", category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := h.services.Categories.Update(r.Context(), caller, pathVar(r, "id"), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Waste category updated", category)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	caller, found := callerFrom(w, r)
	if !found {
		return
	}
	if err := h.services.Categories.Delete(r.Context(), caller, pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, "Waste category deleted", nil)
}

func catalogFilter(r *http.Request) (domain.CatalogFilter, error) {
	q := newQuery(r)
	filter := domain.CatalogFilter{
		Page:       q.page(),
		LocationID: q.optional("locationId"),
		Search:     q.get("search"),
	}
	return filter, q.err()
}
