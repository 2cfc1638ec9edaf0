// Package config defines the runtime configuration for a11yscan.
//
// Configuration is assembled from three layers, lowest precedence first:
//   - compiled-in defaults (NewConfig)
//   - the optional .a11yscan YAML file (LoadConfigFile / File.ApplyTo)
//   - command-line flags
//
// The scan command performs the layering; this package only defines the
// structures, defaults, file format, and validation rules.
//
// Design decision: We keep a single flat Config struct populated by the CLI
// and passed via dependency injection rather than global state. The number
// of options is manageable, and nesting would add complexity without
// significant benefit.
package config
