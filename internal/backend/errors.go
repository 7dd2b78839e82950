package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// FallbackMessage is shown when a failure carries no usable text.
const FallbackMessage = "Failed to fetch recommendations"

// UnavailableMessage is shown when the circuit breaker rejects a call and no
// backend error explains why.
const UnavailableMessage = "The recommendation service is not responding. Try again in a few seconds."

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status int
	// Detail is the backend's human-readable "detail" string, if the body had one.
	Detail string
}

// Error returns Detail verbatim, or "Error: <status>" when there is none.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Error: %d", e.Status)
}

// parseAPIError builds an APIError from a non-2xx body. Only a non-empty
// string "detail" is used; validation errors (detail as a list) and
// unparseable bodies fall back to the status message.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	if s, ok := payload.Detail.(string); ok {
		apiErr.Detail = strings.TrimSpace(s)
	}
	return apiErr
}

// Message renders err for display: the APIError text when one is in the
// chain, UnavailableMessage for a bare breaker rejection, the error's own
// text otherwise, FallbackMessage when that is empty.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if IsBreakerOpen(err) {
		return UnavailableMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
