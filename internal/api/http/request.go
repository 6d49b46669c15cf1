package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
)

const dateLayout = "2006-01-02"

func callerFrom(w http.ResponseWriter, r *http.Request) (authz.Caller, bool) {
	caller, err := authz.CallerFrom(r.Context())
	if err != nil {
		writeError(w, r, err)
		return authz.Caller{}, false
	}
	return caller, true
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// query wraps URL parameters and collects the first parse failure.
type query struct {
	values map[string][]string
	fields map[string]string
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query(), fields: map[string]string{}}
}

func (q *query) get(name string) string {
	if v := q.values[name]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (q *query) optional(name string) *string {
	if v := q.get(name); v != "" {
		return &v
	}
	return nil
}

func (q *query) int(name string) int {
	v := q.get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fields[name] = "must be an integer"
		return 0
	}
	return n
}

func (q *query) time(name string) *time.Time {
	v := q.get(name)
	if v == "" {
		return nil
	}
	t, err := parseTime(v)
	if err != nil {
		q.fields[name] = "must be a date (YYYY-MM-DD) or RFC 3339 timestamp"
		return nil
	}
	return &t
}

func (q *query) page() domain.Page {
	return domain.Page{Page: q.int("page"), PageSize: q.int("pageSize")}
}

func (q *query) err() error {
	if len(q.fields) == 0 {
		return nil
	}
	return apperr.ValidationFields(q.fields)
}

// parseTime accepts a bare date or a full RFC 3339 timestamp.
func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, v)
}
