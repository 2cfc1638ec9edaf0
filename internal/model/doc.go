// Package model defines the core data structures used throughout a11yscan.
//
// This package contains the following main types:
//   - Target: A validated page URL under evaluation
//   - EnvironmentVariant: A rendering engine plus viewport configuration
//   - Finding: A single accessibility issue with severity metadata
//   - ProbeOutcome / CellResult: Results at probe and cell granularity
//   - MatrixResult: The incrementally built target × variant result tree
//   - AggregateReport: Rollups and comparison tables derived from a matrix
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (probe, runner, report, database) need to use
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
