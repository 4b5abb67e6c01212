package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/giygas/drugdb/entities"
)

// ErrTransport marks failures where no HTTP response was obtained
// (server down, DNS, connection reset, client timeout).
var ErrTransport = errors.New("drug API unreachable")

const genericErrorMessage = "An error occurred"

// APIError is a non-2xx answer from the drug API
type APIError struct {
	StatusCode int
	Message    string
}

// Error returns the server-supplied message
func (e *APIError) Error() string {
	return e.Message
}

// IsTransport reports whether err is a network-level failure
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func transportError(method, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
}

// decodeAPIError builds an APIError from an error body, falling back to a
// generic message when the body is missing or not the expected JSON.
func decodeAPIError(status int, body []byte) *APIError {
	var payload entities.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || strings.TrimSpace(payload.Error) == "" {
		return &APIError{StatusCode: status, Message: genericErrorMessage}
	}
	return &APIError{StatusCode: status, Message: payload.Error}
}
