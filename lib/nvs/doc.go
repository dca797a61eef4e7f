// Package nvs implements a file-backed emulation of a non-volatile storage
// (NVS) flash partition: a namespaced key→blob store with an explicit commit
// step, bounded key and value sizes and entry-based capacity accounting.
//
// It serves as the storage backend of the record table engine in package aos.
// The engine only depends on the Backend and Handle interfaces declared in
// this package, which describe the contract of a flash key-value store:
//
//   - Backend.InitPartition mounts a partition (creating its file if absent).
//   - Backend.OpenNamespace returns a Handle for one namespace of a partition.
//     Opening a missing namespace read-write creates it.
//   - Handle.GetBlob / Handle.SetBlob read and stage blob values.
//   - Handle.Commit makes all changes staged on the handle durable.
//   - Backend.Stats reports used, free and total entry counts.
//
// Storage Model:
//
//	Every partition is a single log file "<dir>/<partition>.nvs". The file
//	starts with a header (magic, version, flags, encryption salt and key check
//	block) followed by CRC-protected log records. A commit appends all records
//	staged on a handle followed by a commit marker and fsyncs the file. When a
//	partition is initialised the log is replayed batch by batch. A batch without
//	its commit marker, a torn record or a checksum mismatch ends the replay and
//	the file is truncated to the end of the last complete batch, so a power loss
//	during a commit never leaves a half applied batch behind.
//
//	The live key-value state of every namespace is kept in memory in a db.KVDB
//	(the maple engine). Changes staged by SetBlob are visible to readers right
//	away but are not durable until Commit returns successfully.
//
//	When more than half of a log file is garbage (overwritten or erased
//	values) the log is compacted during InitPartition.
//
// Capacity:
//
//	Capacity is accounted like on a real NVS partition: the partition is split
//	into 4096 byte pages of 126 entries each (32 bytes per entry) and one page is
//	always kept free. A namespace costs one entry, a blob one header entry plus
//	one entry per started 32 bytes of data. A write that does not fit fails with
//	ErrCNotEnoughSpace.
//
// Encryption:
//
//	A partition can be encrypted at rest with AES-256-GCM. The key is either
//	given directly or derived from a passphrase with PBKDF2 (SHA-256) and a
//	random per-partition salt stored in the header. Each record body is sealed
//	independently. A wrong key is detected at InitPartition.
//
// Thread Safety:
//
//	All Backend and Handle methods are safe for concurrent use. Reads of a
//	namespace run concurrently, writes and commits to one partition are
//	serialised by a partition-wide mutex.
package nvs
