// Package runner executes the test matrix. The cell runner evaluates one
// (target, variant) cell with a per-cell deadline, per-probe isolation, and
// strict session hygiene; the matrix scheduler dispatches the full
// targets × variants cross product to a bounded worker pool and assembles
// the incrementally growing result tree.
//
// Failure isolation is layered. A probe failure becomes an outcome value
// inside its cell result; the cell runner returns a result and never an
// error; the scheduler recovers anything that escapes cell isolation and
// records it under the reserved "scheduler" outcome key. One cell's failure
// never cancels a sibling cell.
package runner
