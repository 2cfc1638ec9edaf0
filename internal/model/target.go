package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Target errors.
var (
	// ErrInvalidTarget is returned when the target URL cannot be parsed.
	ErrInvalidTarget = errors.New("invalid target URL")
	// ErrEmptyTarget is returned when the target is empty.
	ErrEmptyTarget = errors.New("target cannot be empty")
	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("target scheme must be http or https")
)

// Target is an immutable value object identifying the page under evaluation.
// It always holds a normalized absolute http(s) URL.
type Target struct {
	url string
}

// NewTarget creates a Target from a raw string.
// A missing scheme defaults to https, matching what users type on the command
// line. Fragments are stripped because they never reach the server and two
// URLs differing only in fragment identify the same page.
func NewTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, ErrEmptyTarget
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s", ErrInvalidTarget, raw)
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	if u.Host == "" {
		return Target{}, fmt.Errorf("%w: %s", ErrInvalidTarget, raw)
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return Target{url: u.String()}, nil
}

// MustNewTarget creates a Target or panics if invalid.
// Use only for known-valid URLs in tests or initialization.
func MustNewTarget(raw string) Target {
	t, err := NewTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the normalized URL.
func (t Target) String() string {
	return t.url
}

// URL returns the parsed form of the target.
func (t Target) URL() *url.URL {
	u, err := url.Parse(t.url)
	if err != nil {
		// The constructor already parsed this string.
		panic(fmt.Sprintf("model: target %q no longer parses: %v", t.url, err))
	}
	return u
}

// Host returns the host component, including the port if present.
func (t Target) Host() string {
	return t.URL().Host
}

// IsZero reports whether the target is the zero value.
func (t Target) IsZero() bool {
	return t.url == ""
}
