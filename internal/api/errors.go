package api

import (
	"errors"
	"fmt"
)

// genericFailureMessage is shown when a request failed without the backend
// supplying a usable error payload (transport errors, malformed bodies).
const genericFailureMessage = "request failed, please check your connection and try again"

// Error is a backend-reported failure: a non-2xx response, with the
// structured detail message when the payload carried one.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Message returns the text suitable for showing to the user: the backend's
// own message verbatim when present, otherwise a generic fallback.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return genericFailureMessage
}

// UserMessage extracts a human-readable message from any error produced by
// the client. Transport errors and everything else collapse to the generic
// fallback; only backend payloads surface verbatim.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return genericFailureMessage
}
