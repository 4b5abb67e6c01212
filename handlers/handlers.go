// Package handlers provides the HTTP handlers of the drug database browser.
// They expose the cached queries, the list view state and the mutations as
// JSON, with input validation and a uniform error body.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/drugdb/apiclient"
	"github.com/giygas/drugdb/logging"
)

var errEmptyBody = errors.New("request body is empty")

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// statusForError maps a failed query or mutation to the status returned to
// the browser. Client errors of the drug API are passed through, its server
// errors and transport failures become 502.
func statusForError(err error) int {
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away, the code is only seen by the logs
		return 499
	}
	return http.StatusBadGateway
}

// respondWithUpstreamError writes the error body for a failed drug API call
func respondWithUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusForError(err)
	message := err.Error()
	if apiErr, ok := apiclient.AsAPIError(err); ok {
		message = apiErr.Message
	} else if apiclient.IsTransport(err) {
		message = "Drug API is unavailable"
	}

	logging.Warn("Drug API call failed",
		"path", r.URL.Path,
		"status", code,
		"error", err,
	)
	RespondWithError(w, code, message)
}

// decodeJSON reads a single JSON value from the request body into dst
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: unexpected trailing data")
	}
	return nil
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
