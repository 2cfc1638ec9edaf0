// Package database provides SQLite-based storage for run history.
//
// This package implements the ResultDB, which stores:
//   - Run rows with planned matrix dimensions and finalized rollups
//   - Cell rows with per-probe outcomes serialized as JSON
//
// Cells are saved incrementally while a run executes, so an interrupted
// run keeps every cell that finished before the interruption. The compare
// command reads two runs back out of this store.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
