package model

import (
	"errors"
	"testing"
)

// TestNewTarget tests URL validation and normalization.
func TestNewTarget(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		raw      string
		expected string
		wantErr  error
	}{
		{
			name:     "https URL kept as is",
			raw:      "https://example.com/page",
			expected: "https://example.com/page",
		},
		{
			name:     "http URL accepted",
			raw:      "http://example.com/",
			expected: "http://example.com/",
		},
		{
			name:     "missing scheme defaults to https",
			raw:      "example.com",
			expected: "https://example.com/",
		},
		{
			name:     "fragment stripped",
			raw:      "https://example.com/docs#section-2",
			expected: "https://example.com/docs",
		},
		{
			name:     "host lowercased",
			raw:      "https://EXAMPLE.COM/Path",
			expected: "https://example.com/Path",
		},
		{
			name:     "empty path becomes slash",
			raw:      "https://example.com",
			expected: "https://example.com/",
		},
		{
			name:     "surrounding whitespace trimmed",
			raw:      "  https://example.com/  ",
			expected: "https://example.com/",
		},
		{
			name:    "empty rejected",
			raw:     "",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "whitespace only rejected",
			raw:     "   ",
			wantErr: ErrEmptyTarget,
		},
		{
			name:    "ftp scheme rejected",
			raw:     "ftp://example.com/",
			wantErr: ErrUnsupportedScheme,
		},
		{
			name:    "scheme without host rejected",
			raw:     "https://",
			wantErr: ErrInvalidTarget,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			target, err := NewTarget(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("NewTarget(%q) error = %v, expected %v", tc.raw, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTarget(%q) unexpected error: %v", tc.raw, err)
			}
			if target.String() != tc.expected {
				t.Errorf("NewTarget(%q) = %q, expected %q", tc.raw, target.String(), tc.expected)
			}
		})
	}
}

// TestTargetHost tests host extraction including ports.
func TestTargetHost(t *testing.T) {
	t.Parallel()

	target := MustNewTarget("https://example.com:8443/admin")
	if got := target.Host(); got != "example.com:8443" {
		t.Errorf("Host() = %q, expected %q", got, "example.com:8443")
	}
}

// TestMustNewTargetPanics tests that invalid input panics.
func TestMustNewTargetPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid target")
		}
	}()
	MustNewTarget("ftp://nope")
}

// TestTargetIsZero tests zero-value detection.
func TestTargetIsZero(t *testing.T) {
	t.Parallel()

	var zero Target
	if !zero.IsZero() {
		t.Error("expected zero target to report IsZero")
	}
	if MustNewTarget("https://example.com/").IsZero() {
		t.Error("expected constructed target not to report IsZero")
	}
}
