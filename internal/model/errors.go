package model

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork        = errors.New("network request failed")
	ErrChannelClosed  = errors.New("channel closed")
	ErrInvalidRequest = errors.New("invalid request")
)

// APIError is an upstream non-success response or a body that failed
// required-field validation.
type APIError struct {
	Status  int
	Mode    Mode
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api error (%s, status %d): %s", e.Mode, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (%s): %s", e.Mode, e.Message)
}

// IsAPIError reports whether err wraps an upstream error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
