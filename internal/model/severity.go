package model

import (
	"fmt"
	"strings"
)

// Severity represents the impact level of an accessibility finding.
// The vocabulary follows the axe-core impact scale, which is the de facto
// standard for automated accessibility tooling.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings with no direct user impact.
	// Examples: markup validation warnings, advisory notices from external checkers.
	// These are worth reviewing but do not block any user group.
	SeverityInfo Severity = iota

	// SeverityMinor indicates issues that inconvenience some users.
	// Examples: redundant language declarations, decorative images with
	// unnecessary descriptions. Workarounds usually exist.
	SeverityMinor

	// SeverityModerate indicates barriers that make content harder to use.
	// Examples: skipped heading levels, missing viewport metadata, untitled
	// frames. Some users will struggle but can often still proceed.
	SeverityModerate

	// SeveritySerious indicates barriers that block common tasks for some users.
	// Examples: links without accessible names, missing page language,
	// invalid markup that confuses assistive technology.
	SeveritySerious

	// SeverityCritical indicates barriers that make content unusable for
	// affected users. Examples: images without text alternatives, form controls
	// without labels, zoom disabled on mobile viewports.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityMinor:
		return "MINOR"
	case SeverityModerate:
		return "MODERATE"
	case SeveritySerious:
		return "SERIOUS"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a case-insensitive severity name to a Severity.
// It is used for the --fail-on flag and configuration values.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityInfo, nil
	case "minor":
		return SeverityMinor, nil
	case "moderate":
		return SeverityModerate, nil
	case "serious":
		return SeveritySerious, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q (expected info, minor, moderate, serious, or critical)", name)
	}
}

// SeverityCounts tallies findings by severity level.
// It appears on cell results, target rollups, and the global rollup.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
	Info     int `json:"info"`
}

// Add increments the counter for the given severity.
func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeveritySerious:
		c.Serious++
	case SeverityModerate:
		c.Moderate++
	case SeverityMinor:
		c.Minor++
	case SeverityInfo:
		c.Info++
	}
}

// Merge adds another tally into this one.
func (c *SeverityCounts) Merge(other SeverityCounts) {
	c.Critical += other.Critical
	c.Serious += other.Serious
	c.Moderate += other.Moderate
	c.Minor += other.Minor
	c.Info += other.Info
}

// Total returns the number of findings across all severities.
func (c SeverityCounts) Total() int {
	return c.Critical + c.Serious + c.Moderate + c.Minor + c.Info
}

// AtOrAbove returns the number of findings at or above the given severity.
// Used by the --fail-on CI gate.
func (c SeverityCounts) AtOrAbove(s Severity) int {
	total := 0
	if s <= SeverityCritical {
		total += c.Critical
	}
	if s <= SeveritySerious {
		total += c.Serious
	}
	if s <= SeverityModerate {
		total += c.Moderate
	}
	if s <= SeverityMinor {
		total += c.Minor
	}
	if s <= SeverityInfo {
		total += c.Info
	}
	return total
}

// Score returns a weighted severity score used to compare runs.
// Higher scores indicate worse accessibility. The weights make one critical
// finding outweigh any realistic number of informational ones.
func (c SeverityCounts) Score() int {
	return c.Critical*100 + c.Serious*50 + c.Moderate*10 + c.Minor*5 + c.Info
}

// FindingInfo contains metadata about a finding code including severity,
// the WCAG success criterion it relates to, a description of who is affected,
// and a remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Criterion      string
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding codes to their metadata.
// This centralized mapping ensures consistent severity assignment across probes.
//
// Design decision: We use a map rather than embedding severity in each probe
// because:
// 1. It allows tuning severity assessments without modifying probe logic
// 2. It provides a single source of truth for WCAG criterion references
// 3. It makes it easy to generate severity documentation
var findingInfoMapping = map[string]FindingInfo{
	// CRITICAL - Content unusable for affected users
	"img_alt_missing": {
		Severity:       SeverityCritical,
		Criterion:      "WCAG 2.2 SC 1.1.1 Non-text Content",
		Impact:         "Screen reader users receive no information about the image content.",
		Recommendation: "Add an alt attribute describing the image, or alt=\"\" for purely decorative images.",
	},
	"control_label_missing": {
		Severity:       SeverityCritical,
		Criterion:      "WCAG 2.2 SC 4.1.2 Name, Role, Value",
		Impact:         "Screen reader users cannot tell what the form control is for.",
		Recommendation: "Associate a <label> via the for attribute, or add aria-label/aria-labelledby.",
	},
	"viewport_zoom_disabled": {
		Severity:       SeverityCritical,
		Criterion:      "WCAG 2.2 SC 1.4.4 Resize Text",
		Impact:         "Low-vision users cannot pinch-zoom to enlarge content on touch devices.",
		Recommendation: "Remove user-scalable=no from the viewport meta tag.",
	},
	"wave_error": {
		Severity:       SeverityCritical,
		Criterion:      "WCAG 2.2 (multiple)",
		Impact:         "WAVE classifies these as definite accessibility failures.",
		Recommendation: "Review each reported element in the WAVE browser extension and fix the underlying markup.",
	},

	// SERIOUS - Common tasks blocked for some users
	"link_name_empty": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 2.4.4 Link Purpose (In Context)",
		Impact:         "Screen reader users hear \"link\" with no indication of the destination.",
		Recommendation: "Provide link text, an aria-label, or alt text on the image inside the link.",
	},
	"button_name_empty": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 4.1.2 Name, Role, Value",
		Impact:         "Screen reader users cannot tell what the button does.",
		Recommendation: "Provide button text, an aria-label, or a title attribute.",
	},
	"page_title_missing": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 2.4.2 Page Titled",
		Impact:         "Users cannot identify the page in tabs, history, or screen reader announcements.",
		Recommendation: "Add a descriptive <title> element to the document head.",
	},
	"page_lang_missing": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 3.1.1 Language of Page",
		Impact:         "Screen readers cannot select the correct pronunciation rules for the page.",
		Recommendation: "Add a lang attribute to the <html> element, e.g. lang=\"ja\" or lang=\"en\".",
	},
	"page_lang_invalid": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 3.1.1 Language of Page",
		Impact:         "An unrecognized language tag forces screen readers to guess pronunciation.",
		Recommendation: "Use a valid BCP 47 language tag such as \"en\", \"ja\", or \"pt-BR\".",
	},
	"viewport_scale_capped": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 1.4.4 Resize Text",
		Impact:         "Low-vision users cannot zoom content to at least 200%.",
		Recommendation: "Remove maximum-scale or set it to 2.0 or higher in the viewport meta tag.",
	},
	"html_invalid": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 4.1.2 Name, Role, Value",
		Impact:         "Invalid markup can change how assistive technology parses the page structure.",
		Recommendation: "Fix the validation errors reported by the Nu HTML Checker.",
	},
	"wave_contrast": {
		Severity:       SeveritySerious,
		Criterion:      "WCAG 2.2 SC 1.4.3 Contrast (Minimum)",
		Impact:         "Low-vision users cannot read text that lacks sufficient contrast.",
		Recommendation: "Adjust foreground or background colors to meet the 4.5:1 contrast ratio.",
	},

	// MODERATE - Content harder to use
	"heading_order_skip": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 SC 1.3.1 Info and Relationships",
		Impact:         "Screen reader users navigating by heading lose the document outline.",
		Recommendation: "Use heading levels in order without skipping (h1, then h2, then h3).",
	},
	"iframe_title_missing": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 SC 4.1.2 Name, Role, Value",
		Impact:         "Screen reader users cannot tell what the embedded frame contains.",
		Recommendation: "Add a title attribute to the <iframe> describing its content.",
	},
	"viewport_meta_missing": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 SC 1.4.10 Reflow",
		Impact:         "Mobile browsers render the page at desktop width, forcing horizontal scrolling.",
		Recommendation: "Add <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">.",
	},
	"viewport_fixed_width": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 SC 1.4.10 Reflow",
		Impact:         "A fixed pixel width prevents content from reflowing to the device size.",
		Recommendation: "Use width=device-width instead of a fixed pixel value.",
	},
	"element_lang_invalid": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 SC 3.1.2 Language of Parts",
		Impact:         "Screen readers mispronounce passages marked with an unrecognized language tag.",
		Recommendation: "Use valid BCP 47 language tags on elements containing foreign-language text.",
	},
	"wave_alert": {
		Severity:       SeverityModerate,
		Criterion:      "WCAG 2.2 (multiple)",
		Impact:         "WAVE flags these as likely problems that need human review.",
		Recommendation: "Review each alerted element and confirm whether it is a real barrier.",
	},

	// MINOR - Inconvenience with workarounds
	"page_lang_mismatch": {
		Severity:       SeverityMinor,
		Criterion:      "WCAG 2.2 SC 3.1.1 Language of Page",
		Impact:         "Conflicting lang and xml:lang values may confuse older assistive technology.",
		Recommendation: "Make the lang and xml:lang attributes on <html> agree.",
	},
	"html_warning": {
		Severity:       SeverityMinor,
		Criterion:      "WCAG 2.2 SC 4.1.2 Name, Role, Value",
		Impact:         "Questionable markup that may degrade in some parsers.",
		Recommendation: "Review the warnings reported by the Nu HTML Checker.",
	},
}

// GetSeverity returns the severity level for a finding code.
// Returns SeverityInfo if the code is not in the mapping.
func GetSeverity(code string) Severity {
	if info, ok := findingInfoMapping[code]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding code.
// Returns a default FindingInfo with SeverityInfo if the code is not in the mapping.
func GetFindingInfo(code string) FindingInfo {
	if info, ok := findingInfoMapping[code]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Criterion:      "",
		Impact:         "Unrecognized finding code. Review manually.",
		Recommendation: "Investigate the finding and assess its impact.",
	}
}
