// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - statistics: Summary statistics and a SizeHistogram for tracking value size distribution
//   - hash: Seeded string hashing used for shard selection
package util
