package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// requireActor returns the authenticated actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (core.Actor, bool) {
	actor, ok := core.ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization header")
	}
	return actor, ok
}

// idParam parses the {id} route parameter. An id that is not a positive
// integer cannot name a record, so it answers 404 like an unknown id.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter. Values that
// do not parse are ignored.
func queryID(r *http.Request, name string) *int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
