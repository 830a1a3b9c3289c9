package client

import (
	"errors"
	"fmt"
)

// APIError is the one error shape every request failure is normalized into.
// Status is the literal HTTP status for server-reported failures and 0 for
// network-level failures (the request never reached the server). Callers
// branch on Status; Errors carries per-field validation messages when the
// server returned any.
type APIError struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Code    string              `json:"code,omitempty"`
	Status  int                 `json:"status,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// IsNetworkError reports whether the failure never reached the server.
func (e *APIError) IsNetworkError() bool {
	return e.Status == 0
}

// AsAPIError unwraps err into an *APIError if it carries one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
