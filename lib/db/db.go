package db

import "github.com/g02flow/aosdb/lib/db/util"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
)

// DatabaseInfo describes the contents of a database.
type DatabaseInfo struct {
	SizeBytes         int                    `json:"size_bytes"` // key and value bytes
	EntryCount        int                    `json:"entry_count"`
	DbType            Implementation         `json:"db_type"`
	WriteSeq          uint64                 `json:"write_seq"` // number of Set calls so far
	ShardCount        int                    `json:"shard_count"`
	ShardDistribution util.DistributionStats `json:"shard_distribution"`
	AverageValueSize  int                    `json:"average_value_size"`
	MedianValueSize   int                    `json:"median_value_size"` // estimated from a size histogram
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for in-memory key-value database implementations.
// It holds the live state of one namespace of a flash partition.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// If the key already exists, the old value is overwritten.
	// The database stores a copy of value.
	Set(key string, value []byte)

	// Delete removes the entry with the specified key.
	Delete(key string)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves a copy of the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool)

	// Range calls fn for every entry until fn returns false.
	// The value passed to fn must not be modified or retained.
	Range(fn func(key string, value []byte) bool)

	// Len returns the number of entries.
	Len() (n int)

	// --------------------------------------------------------------------------
	// Metadata
	// --------------------------------------------------------------------------

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases the database. It must not be used afterwards.
	Close() (err error)
}
