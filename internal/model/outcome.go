package model

import "time"

// Finding represents a single accessibility issue discovered by a probe.
type Finding struct {
	// Probe is the ID of the probe that produced this finding.
	Probe string `json:"probe"`

	// Code identifies the kind of issue (e.g. "img_alt_missing").
	// Codes map to severity and remediation metadata via GetFindingInfo.
	Code string `json:"code"`

	// Severity is the impact level of the issue.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity, kept alongside the
	// numeric value so serialized findings stay readable.
	SeverityText string `json:"severity_text"`

	// Summary is a one-line description of the issue.
	Summary string `json:"summary"`

	// Detail carries issue-specific context (the offending value,
	// an upstream checker message, a source extract).
	Detail string `json:"detail,omitempty"`

	// Selector locates the offending element (CSS-like path, tag
	// description, or line reference depending on the probe).
	Selector string `json:"selector,omitempty"`

	// Criterion is the WCAG success criterion the issue relates to.
	Criterion string `json:"criterion,omitempty"`

	// Impact describes who is affected and how.
	Impact string `json:"impact,omitempty"`

	// Recommendation describes how to fix the issue.
	Recommendation string `json:"recommendation,omitempty"`
}

// NewFinding creates a Finding for a known code, filling severity, criterion,
// impact, and recommendation from the central mapping. The probe field is
// stamped by the cell runner when the outcome is assembled.
func NewFinding(code, summary, detail, selector string) Finding {
	info := GetFindingInfo(code)
	return Finding{
		Code:           code,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Summary:        summary,
		Detail:         detail,
		Selector:       selector,
		Criterion:      info.Criterion,
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
	}
}

// ErrorKind classifies why a probe outcome is a failure.
// Failures below the scheduler are always encoded as data, never raised.
type ErrorKind int

const (
	// ErrorKindNone marks a successful outcome.
	ErrorKindNone ErrorKind = iota

	// ErrorKindProbeConstruction means the probe instance could not be built
	// for this cell (missing credential, bad configuration). Other probes run.
	ErrorKindProbeConstruction

	// ErrorKindHandleUnavailable means the rendering session could not be
	// created or navigated for this cell. Handle-free probes still run.
	ErrorKindHandleUnavailable

	// ErrorKindProbe means the probe itself returned an error or panicked.
	// Isolated to this probe's outcome.
	ErrorKindProbe

	// ErrorKindTimeout means the cell deadline expired before or during this
	// probe's invocation. Forces handle teardown.
	ErrorKindTimeout

	// ErrorKindScheduler is the defensive catch-all for anything escaping
	// cell runner isolation. Recorded, never propagated to sibling cells.
	ErrorKindScheduler
)

// String returns a stable identifier for the error kind, used in reports
// and database rows.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindProbeConstruction:
		return "probe_construction"
	case ErrorKindHandleUnavailable:
		return "handle_unavailable"
	case ErrorKindProbe:
		return "probe_error"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindScheduler:
		return "scheduler_error"
	default:
		return "unknown"
	}
}

// ProbeOutcome is the result of one probe invocation within one cell:
// either a success carrying findings or a failure carrying an error kind
// and message. Probe failures never cross the cell runner boundary as
// errors or panics; they travel as values.
type ProbeOutcome struct {
	// Probe is the ID of the probe this outcome belongs to.
	Probe string `json:"probe"`

	// Success reports whether the probe ran to completion.
	Success bool `json:"success"`

	// Findings holds the issues discovered. Only set on success;
	// a successful probe with no findings is a clean pass.
	Findings []Finding `json:"findings,omitempty"`

	// ErrorKind classifies the failure. ErrorKindNone on success.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// ErrorKindText is the human-readable error kind.
	ErrorKindText string `json:"error_kind_text,omitempty"`

	// Message is the failure detail. Empty on success.
	Message string `json:"message,omitempty"`

	// Duration is how long the invocation took.
	Duration time.Duration `json:"duration_ns"`
}

// NewSuccessOutcome creates a successful outcome carrying the findings.
// Each finding is stamped with the probe ID.
func NewSuccessOutcome(probeID string, findings []Finding, duration time.Duration) ProbeOutcome {
	for i := range findings {
		findings[i].Probe = probeID
	}
	return ProbeOutcome{
		Probe:    probeID,
		Success:  true,
		Findings: findings,
		Duration: duration,
	}
}

// NewFailureOutcome creates a failed outcome with the given classification.
func NewFailureOutcome(probeID string, kind ErrorKind, message string, duration time.Duration) ProbeOutcome {
	return ProbeOutcome{
		Probe:         probeID,
		Success:       false,
		ErrorKind:     kind,
		ErrorKindText: kind.String(),
		Message:       message,
		Duration:      duration,
	}
}

// Counts tallies the outcome's findings by severity.
// Failed outcomes contribute nothing.
func (o ProbeOutcome) Counts() SeverityCounts {
	var counts SeverityCounts
	for _, f := range o.Findings {
		counts.Add(f.Severity)
	}
	return counts
}
