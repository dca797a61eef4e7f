// Package db provides a standardized interface for the in-memory key-value
// databases that hold the live state of an NVS namespace.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Standardized metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Delete), iteration
//     (Range, Len) and metadata retrieval (GetInfo). Values are always copied on
//     the way in and out, so callers can reuse their buffers.
//
//   - Database Information: The DatabaseInfo structure reports entry and byte
//     counts, value size estimates and how evenly entries spread over shards.
//     The nvs package surfaces it as the namespace info behind table status.
//
// Persistence is not part of this interface. The nvs package owns durability:
// it replays its commit log into a KVDB when a partition is initialised and
// writes every committed change to the log.
//
// Related Packages:
//
// The engines/maple package (github.com/g02flow/aosdb/lib/db/engines/maple) provides a
// sharded, concurrent implementation of the KVDB interface.
//
// The testing package (github.com/g02flow/aosdb/lib/db/testing) provides
// standardized tests and benchmarks for database implementations that satisfy the db.KVDB interface.
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
