package web

// errors.go provides unified error response handling for the web layer.
//
// Every error leaves through respondError, which:
//  1. Picks the HTTP status from the sentinel the error carries
//  2. Maps it via core.MapError to a user-friendly message and code
//  3. Logs the technical error with the request ID for correlation
//  4. Writes an ErrorResponse as JSON

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/JonMunkholm/csvcompare/internal/logging"
	"github.com/cockroachdb/errors"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type statusRule struct {
	err    error
	status int
}

// statusRules is checked in order with errors.Is.
var statusRules = []statusRule{
	{core.ErrMissingTable, http.StatusBadRequest},
	{core.ErrNoRules, http.StatusBadRequest},
	{core.ErrMalformedRule, http.StatusBadRequest},
	{core.ErrInvalidRequest, http.StatusBadRequest},
	{core.ErrInvalidCSV, http.StatusBadRequest},
	{core.ErrNotCSV, http.StatusBadRequest},
	{core.ErrNoFile, http.StatusBadRequest},
	{core.ErrNothingToExport, http.StatusBadRequest},
	{core.ErrRuleSetName, http.StatusBadRequest},
	{core.ErrRuleSetExists, http.StatusConflict},
	{core.ErrRuleSetNotFound, http.StatusNotFound},
	{core.ErrRunNotFound, http.StatusNotFound},
	{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{core.ErrTooManyComparisons, http.StatusServiceUnavailable},
	{core.ErrComparisonTimeout, http.StatusGatewayTimeout},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
	{context.Canceled, http.StatusRequestTimeout},
	{errRateLimited, http.StatusTooManyRequests},
}

// statusFor returns the HTTP status for err. Unknown errors are 500.
func statusFor(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	for _, sr := range statusRules {
		if errors.Is(err, sr.err) {
			return sr.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with the status statusFor picks.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

// respondErrorStatus logs the technical error server-side and returns the
// user-friendly message to the client.
func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errors.WithHintf(errors.Mark(errors.Wrap(err, "decode request"), core.ErrFileTooLarge),
				"Request bodies are limited to %d bytes", mbe.Limit)
		}
		return errors.Mark(errors.Wrap(err, "decode request"), core.ErrInvalidRequest)
	}
	return nil
}
