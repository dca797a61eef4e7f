// Package maple provides a sharded, concurrent in-memory implementation of the
// db.KVDB interface. The nvs package keeps one maple database per namespace
// as the live view of the namespace's committed and staged blobs.
//
// Architecture:
//
//   - Sharding: Keys are hashed with a seeded FNV-1a hash and distributed over
//     a fixed number of shards (by default one per CPU). Each shard is an
//     xsync.MapOf, so reads never block and writes only contend per bucket.
//
//   - Copy Semantics: Set stores a copy of the value and Get returns a copy,
//     so callers may reuse their buffers. Range passes the stored slice and
//     callers must not modify it.
//
//   - Write Sequence: Every Set is stamped with a monotonically increasing
//     sequence number. The current value is reported by GetInfo.
//
// Usage Example:
//
//	database := maple.NewMapleDB(nil)
//	defer database.Close()
//
//	database.Set("3", record)
//	value, ok := database.Get("3")
//
// Thread Safety:
//
//	All methods are safe for concurrent use. Close must not race with other calls.
package maple
