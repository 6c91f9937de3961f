package web

// errors.go turns failures into the API's JSON error bodies.
//
// Every error response has the shape {"error": message}. A *core.Error
// carries its own status and user-facing message; anything else is an
// unexpected failure and becomes a generic 500. Technical details are logged
// with the request id, never sent to the client.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/assettrack/internal/core"
	"github.com/JonMunkholm/assettrack/internal/logging"
)

const msgInternal = "internal server error"

// ErrorResponse is the JSON body of every error reply. Dependents is set
// when a delete is blocked by records that still reference the target.
type ErrorResponse struct {
	Error      string `json:"error"`
	Dependents int    `json:"dependents,omitempty"`
}

// respondError writes err as an error response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := core.AsError(err)
	if !ok {
		logging.FromContext(r.Context()).Error("request error",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
			"code", core.MapError(err).Code,
			"user_message", core.FormatUserError(err),
			"known", core.IsUserFacing(err),
		)
		writeJSONStatus(w, http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
		return
	}

	status := e.Status()
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"status", status,
			"error", err,
			"code", core.MapError(err).Code,
			"user_message", core.FormatUserError(err),
			"known", core.IsUserFacing(err),
		)
	}
	writeJSONStatus(w, status, ErrorResponse{Error: e.Message, Dependents: e.Dependents})
}

// writeError writes a plain {"error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSONStatus(w, status, ErrorResponse{Error: message})
}

// writeJSON encodes v as a 200 response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v with the given status. Encoding errors are only
// logged since the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// Request body errors.
const (
	msgInvalidJSON  = "Invalid JSON"
	msgBodyTooLarge = "Request body too large."
)

// decodeJSON reads the request body into dst. It writes the error response
// itself and reports false when the body is unusable; shapeErr, when not
// nil, replaces the generic message for well-formed JSON of the wrong shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, shapeErr *core.Error) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
	case shapeErr != nil:
		writeError(w, shapeErr.Status(), shapeErr.Message)
	default:
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
	}
	return false
}
