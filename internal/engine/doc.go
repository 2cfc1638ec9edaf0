// Package engine manages rendering-engine sessions for matrix cells.
//
// A Handle is an exclusively owned browser session used by the probes of
// exactly one (target, variant) cell. The Manager creates handles through
// per-engine Providers, applies the variant viewport, and tears sessions
// down when the cell finishes.
//
// Design decision: We define Handle and Provider as interfaces here rather
// than exposing WebDriver types directly because:
// 1. The cell runner and probes stay testable with in-memory fake handles
// 2. A future engine integration (e.g. DevTools protocol) only has to
//    implement two small interfaces
// 3. It keeps the WebDriver wire protocol out of every package that merely
//    reads page source
//
// The package is designed to be used with dependency injection - create a
// Manager, register Providers, and pass it to the cell runner rather than
// using global state.
package engine
