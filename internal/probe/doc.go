// Package probe provides accessibility probes and their registry.
//
// A probe evaluates one target page within one matrix cell and returns
// findings. Handle-based probes (markup, viewport, language) read the
// rendered DOM through the cell's rendering session; handle-free probes
// (wave, validator) call external checker APIs and never touch the
// session.
//
// The Registry maps probe IDs to definitions and resolves a requested ID
// list into runnable probes. Resolution is forgiving: unknown IDs,
// probes missing a credential, and probes whose construction fails are
// dropped with a warning so the run proceeds with whatever evidence is
// collectable.
//
// Design decision: Probes return findings and errors; they never write
// into shared report state. The cell runner owns outcome assembly,
// which keeps probes independently testable and guarantees that one
// probe's failure cannot corrupt another's results.
package probe
