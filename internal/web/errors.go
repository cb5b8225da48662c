package web

// errors.go maps handler errors to HTTP responses. The technical error is
// logged with the request id; the client gets the catalog.MapError message,
// action, and support code as JSON.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/ingest"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// errIngestDisabled is returned by the ingest routes when no source is configured.
var errIngestDisabled = errors.New("ingestion is not configured")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor derives the response status from err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, errIngestDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing JSON form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := catalog.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	// Internal failures can carry driver details; only client errors echo the cause.
	if status >= http.StatusInternalServerError {
		resp.Error = msg.Message
	}
	writeJSON(w, r, status, resp)
}

// writeJSON encodes v with the given status. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
