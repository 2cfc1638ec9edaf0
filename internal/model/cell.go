package model

import (
	"sort"
	"time"
)

// SchedulerOutcomeID is the reserved outcome key under which the matrix
// scheduler records failures that escaped cell runner isolation. No probe
// may register with this ID.
const SchedulerOutcomeID = "scheduler"

// CellState tracks a cell through its lifecycle. Every dispatched cell
// reaches one of the two terminal states; there is no externally visible
// aborted state.
type CellState int

const (
	// CellPending means the cell is enumerated but not yet handed to a worker.
	CellPending CellState = iota

	// CellDispatched means a worker has accepted the cell.
	CellDispatched

	// CellRunning means probes are executing.
	CellRunning

	// CellCompleted is terminal: a usable rendering session was available
	// (or none was needed) and every selected probe produced an outcome.
	CellCompleted

	// CellAcquireFailed means the rendering session could not be created or
	// navigated; handle-free probes may still be running.
	CellAcquireFailed

	// CellPartiallyCompleted is terminal: the cell finished degraded, with
	// handle-dependent probes recorded as unavailable.
	CellPartiallyCompleted
)

// String returns a stable identifier for the state, used in reports and
// database rows.
func (s CellState) String() string {
	switch s {
	case CellPending:
		return "pending"
	case CellDispatched:
		return "dispatched"
	case CellRunning:
		return "running"
	case CellCompleted:
		return "completed"
	case CellAcquireFailed:
		return "acquire_failed"
	case CellPartiallyCompleted:
		return "partially_completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the two terminal states.
func (s CellState) Terminal() bool {
	return s == CellCompleted || s == CellPartiallyCompleted
}

// ParseCellState converts a stored state string back to a CellState.
// Unknown strings map to CellPending.
func ParseCellState(s string) CellState {
	switch s {
	case "dispatched":
		return CellDispatched
	case "running":
		return CellRunning
	case "completed":
		return CellCompleted
	case "acquire_failed":
		return CellAcquireFailed
	case "partially_completed":
		return CellPartiallyCompleted
	default:
		return CellPending
	}
}

// CellResult is the complete result of evaluating one (target, variant)
// cell: one outcome per selected probe plus cell-level metadata. A cell
// result is written once by its worker and never mutated afterwards.
type CellResult struct {
	// Target is the page this cell evaluated.
	Target Target `json:"target"`

	// Variant is the rendering configuration this cell used.
	Variant EnvironmentVariant `json:"variant"`

	// State is the terminal state the cell reached.
	State CellState `json:"state"`

	// StateText is the human-readable state.
	StateText string `json:"state_text"`

	// Outcomes maps probe ID to that probe's outcome in this cell.
	Outcomes map[string]ProbeOutcome `json:"outcomes"`

	// StartedAt is when the worker began the cell.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the cell reached its terminal state.
	FinishedAt time.Time `json:"finished_at"`

	// HandleError holds the session acquisition or navigation error, if any.
	HandleError string `json:"handle_error,omitempty"`

	// SourceDigest is the SHA3-256 digest of the page source the cell
	// evaluated, recorded when navigation succeeded. Run comparison uses it
	// to distinguish regressions from page content drift.
	SourceDigest string `json:"source_digest,omitempty"`
}

// NewCellResult creates an in-progress cell result. The runner records
// outcomes into it and finalizes it with Finish.
func NewCellResult(target Target, variant EnvironmentVariant) *CellResult {
	return &CellResult{
		Target:    target,
		Variant:   variant,
		State:     CellRunning,
		StateText: CellRunning.String(),
		Outcomes:  make(map[string]ProbeOutcome),
		StartedAt: time.Now(),
	}
}

// SetOutcome records the outcome for one probe.
func (c *CellResult) SetOutcome(o ProbeOutcome) {
	c.Outcomes[o.Probe] = o
}

// MarkHandleFailed records a session acquisition or navigation failure.
// The cell will finish in the partially-completed state.
func (c *CellResult) MarkHandleFailed(message string) {
	c.State = CellAcquireFailed
	c.StateText = c.State.String()
	c.HandleError = message
}

// Finish moves the cell to its terminal state and stamps the end time.
func (c *CellResult) Finish() {
	c.FinishedAt = time.Now()
	if c.State == CellAcquireFailed {
		c.State = CellPartiallyCompleted
	} else {
		c.State = CellCompleted
	}
	c.StateText = c.State.String()
}

// NewSchedulerFailureResult builds the synthetic terminal result recorded
// when a failure escapes cell runner isolation. It carries a single failed
// outcome under SchedulerOutcomeID and finishes partially completed, since
// the cell produced no probe evidence.
func NewSchedulerFailureResult(target Target, variant EnvironmentVariant, message string) *CellResult {
	result := NewCellResult(target, variant)
	result.SetOutcome(NewFailureOutcome(SchedulerOutcomeID, ErrorKindScheduler, message, 0))
	result.State = CellPartiallyCompleted
	result.StateText = result.State.String()
	result.FinishedAt = time.Now()
	return result
}

// Key returns the matrix key pair for this cell.
func (c *CellResult) Key() (target string, variantKey string) {
	return c.Target.String(), c.Variant.Key()
}

// Counts tallies all findings in the cell by severity.
func (c *CellResult) Counts() SeverityCounts {
	var counts SeverityCounts
	for _, o := range c.Outcomes {
		counts.Merge(o.Counts())
	}
	return counts
}

// FailureKinds tallies failed outcomes in the cell by error kind.
func (c *CellResult) FailureKinds() map[ErrorKind]int {
	kinds := make(map[ErrorKind]int)
	for _, o := range c.Outcomes {
		if !o.Success {
			kinds[o.ErrorKind]++
		}
	}
	return kinds
}

// ProbeIDs returns the outcome keys in deterministic order.
func (c *CellResult) ProbeIDs() []string {
	ids := make([]string, 0, len(c.Outcomes))
	for id := range c.Outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
