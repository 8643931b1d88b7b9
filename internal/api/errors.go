package api

import (
	"errors"
	"fmt"
)

// Error is a server-reported failure: the backend answered with a non-2xx
// status and, when it could, an {"error": "..."} payload.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error (status %d)", e.StatusCode)
}

// ServerMessage extracts the server-supplied message from err, falling back
// to the given generic message for transport failures or empty payloads.
func ServerMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
