package webdriver

import (
	"errors"
	"fmt"
)

// Client errors.
var (
	// ErrInvalidEndpoint is returned when the driver endpoint URL is not
	// a valid absolute http or https URL.
	ErrInvalidEndpoint = errors.New("invalid webdriver endpoint")

	// ErrNotReady is returned by Status when the driver answered but
	// reported that it cannot accept new sessions.
	ErrNotReady = errors.New("webdriver endpoint is not ready for new sessions")
)

// Error is a protocol-level error returned by the remote end.
// The W3C WebDriver specification defines the error code vocabulary
// ("invalid session id", "session not created", "timeout", ...).
type Error struct {
	// Code is the W3C error code string.
	Code string

	// Message is the human-readable description from the driver.
	Message string

	// HTTPStatus is the HTTP status code the driver answered with.
	HTTPStatus int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webdriver: %s (HTTP %d)", e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("webdriver: %s: %s (HTTP %d)", e.Code, e.Message, e.HTTPStatus)
}
