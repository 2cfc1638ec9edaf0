package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityInfo, "INFO"},
		{SeverityMinor, "MINOR"},
		{SeverityModerate, "MODERATE"},
		{SeveritySerious, "SERIOUS"},
		{SeverityCritical, "CRITICAL"},
		{Severity(999), "UNKNOWN"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestParseSeverity tests name parsing including case folding and errors.
func TestParseSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		expected Severity
		wantErr  bool
	}{
		{"critical", SeverityCritical, false},
		{"Serious", SeveritySerious, false},
		{"MODERATE", SeverityModerate, false},
		{" minor ", SeverityMinor, false},
		{"info", SeverityInfo, false},
		{"", SeverityInfo, true},
		{"fatal", SeverityInfo, true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSeverity(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseSeverity(%q) expected error, got %v", tc.name, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSeverity(%q) unexpected error: %v", tc.name, err)
			}
			if got != tc.expected {
				t.Errorf("ParseSeverity(%q) = %v, expected %v", tc.name, got, tc.expected)
			}
		})
	}
}

// TestGetSeverity tests the GetSeverity function.
func TestGetSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		code     string
		expected Severity
	}{
		// Critical findings
		{"img_alt_missing", SeverityCritical},
		{"control_label_missing", SeverityCritical},
		{"viewport_zoom_disabled", SeverityCritical},

		// Serious findings
		{"link_name_empty", SeveritySerious},
		{"page_lang_missing", SeveritySerious},
		{"html_invalid", SeveritySerious},

		// Moderate findings
		{"heading_order_skip", SeverityModerate},
		{"viewport_meta_missing", SeverityModerate},

		// Minor findings
		{"page_lang_mismatch", SeverityMinor},
		{"html_warning", SeverityMinor},

		// Unknown code defaults to Info
		{"unknown_code", SeverityInfo},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.code, func(t *testing.T) {
			t.Parallel()
			result := GetSeverity(tc.code)
			if result != tc.expected {
				t.Errorf("GetSeverity(%q) = %v, expected %v", tc.code, result, tc.expected)
			}
		})
	}
}

// TestSeverityOrdering tests that severity levels are ordered correctly.
// Info < Minor < Moderate < Serious < Critical
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	if SeverityInfo >= SeverityMinor {
		t.Error("expected SeverityInfo < SeverityMinor")
	}
	if SeverityMinor >= SeverityModerate {
		t.Error("expected SeverityMinor < SeverityModerate")
	}
	if SeverityModerate >= SeveritySerious {
		t.Error("expected SeverityModerate < SeveritySerious")
	}
	if SeveritySerious >= SeverityCritical {
		t.Error("expected SeveritySerious < SeverityCritical")
	}
}

// TestGetFindingInfo tests metadata lookup and the unknown-code default.
func TestGetFindingInfo(t *testing.T) {
	t.Parallel()

	t.Run("known code carries criterion and recommendation", func(t *testing.T) {
		t.Parallel()
		info := GetFindingInfo("img_alt_missing")
		if info.Severity != SeverityCritical {
			t.Errorf("severity = %v, expected %v", info.Severity, SeverityCritical)
		}
		if info.Criterion == "" {
			t.Error("expected a WCAG criterion reference")
		}
		if info.Recommendation == "" {
			t.Error("expected a recommendation")
		}
	})

	t.Run("unknown code gets review default", func(t *testing.T) {
		t.Parallel()
		info := GetFindingInfo("no_such_code")
		if info.Severity != SeverityInfo {
			t.Errorf("severity = %v, expected %v", info.Severity, SeverityInfo)
		}
		if info.Recommendation == "" {
			t.Error("expected a default recommendation")
		}
	})
}

// TestSeverityCounts tests tallying, merging, and derived values.
func TestSeverityCounts(t *testing.T) {
	t.Parallel()

	t.Run("add and total", func(t *testing.T) {
		t.Parallel()
		var c SeverityCounts
		c.Add(SeverityCritical)
		c.Add(SeverityCritical)
		c.Add(SeveritySerious)
		c.Add(SeverityModerate)
		c.Add(SeverityMinor)
		c.Add(SeverityInfo)

		if c.Critical != 2 {
			t.Errorf("Critical = %d, expected 2", c.Critical)
		}
		if got := c.Total(); got != 6 {
			t.Errorf("Total() = %d, expected 6", got)
		}
	})

	t.Run("merge", func(t *testing.T) {
		t.Parallel()
		a := SeverityCounts{Critical: 1, Minor: 2}
		b := SeverityCounts{Critical: 2, Serious: 3, Info: 1}
		a.Merge(b)

		expected := SeverityCounts{Critical: 3, Serious: 3, Minor: 2, Info: 1}
		if a != expected {
			t.Errorf("merged = %+v, expected %+v", a, expected)
		}
	})

	t.Run("at or above", func(t *testing.T) {
		t.Parallel()
		c := SeverityCounts{Critical: 1, Serious: 2, Moderate: 3, Minor: 4, Info: 5}

		if got := c.AtOrAbove(SeverityCritical); got != 1 {
			t.Errorf("AtOrAbove(critical) = %d, expected 1", got)
		}
		if got := c.AtOrAbove(SeveritySerious); got != 3 {
			t.Errorf("AtOrAbove(serious) = %d, expected 3", got)
		}
		if got := c.AtOrAbove(SeverityInfo); got != 15 {
			t.Errorf("AtOrAbove(info) = %d, expected 15", got)
		}
	})

	t.Run("score weights critical highest", func(t *testing.T) {
		t.Parallel()
		oneCritical := SeverityCounts{Critical: 1}
		manyInfo := SeverityCounts{Info: 99}
		if oneCritical.Score() <= manyInfo.Score() {
			t.Errorf("expected one critical (%d) to outweigh 99 info (%d)",
				oneCritical.Score(), manyInfo.Score())
		}
	})
}
