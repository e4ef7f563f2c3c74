// Package server provides the HTTP server, router, middleware, and the JSON
// request and response helpers of the content API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GyroZepelix/mithril-content/internal/validate"
)

// CodeServerError is the error code of every failed request.
const CodeServerError = "server_error"

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description"`
}

// JSON writes v as the response body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, v)
}

// Error writes an error body with an explicit status. Middleware uses it for
// transport-level rejections.
func Error(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, errorResponse{Error: code, Description: description})
}

// Fail reports a failed request. Clients of this API read failures from the
// body, so the status stays 200.
func Fail(w http.ResponseWriter, description string) {
	Error(w, http.StatusOK, CodeServerError, description)
}

// Mutation writes the result of a create or edit:
// {"<entity>": record, "userErrors": [...]}. The record is null whenever
// user errors are present.
func Mutation(w http.ResponseWriter, entity string, record any, errs validate.Errors) {
	if errs.Len() > 0 {
		record = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		entity:       record,
		"userErrors": errs.List(),
	})
}

// writeJSON marshals v to JSON and writes it to the response writer.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent, so we can only log.
		slog.Error("failed to encode JSON response", "error", err)
	}
}
