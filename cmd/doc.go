// Package cmd implements the command-line interface of aosdb, the record
// store of the irrigation node. Every command opens the partition selected
// by the global flags, works on it and closes it again.
//
// The package is organized into several subpackages:
//
//   - node: Record commands (duration, voltage), status, metrics and the restart counter
//   - shell: Interactive shell running the node commands against one open partition
//   - simulate: Concurrent voltage sampler and flow recorder, as on a running node
//   - perf: Read and write benchmarks against the engine
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Configuration is read from flags, AOSDB_* environment variables and the
// .env and .env.local files, in that order of precedence.
//
// See aosdb -help for a list of all commands.
package cmd
