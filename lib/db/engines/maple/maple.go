package maple

import (
	"runtime"
	"sync/atomic"

	"github.com/g02flow/aosdb/lib/db"
	"github.com/g02flow/aosdb/lib/db/engines/maple/internal"
	"github.com/g02flow/aosdb/lib/db/util"
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements a concurrent in-memory database with sharded data
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	seq       atomic.Uint64     // Write sequence counter
	closed    atomic.Bool
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = number of CPUs)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	shards := make([]*internal.Shard, numShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	return &mapleImpl{
		numShards: numShards,
		seed:      util.GenerateSeed(),
		shards:    shards,
	}
}

func (maple *mapleImpl) shard(key string) *internal.Shard {
	return internal.GetShard(key, maple.seed, maple.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key and value.
// The value is copied before it is stored.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	maple.shard(key).Data.Store(key, internal.Entry{
		Value: valueCopy,
		Seq:   maple.seq.Add(1),
	})
}

// Delete removes the entry with the specified key. Deleting a missing key is a no-op.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string) {
	maple.shard(key).Data.Delete(key)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	entry, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return nil, false
	}

	data := make([]byte, len(entry.Value))
	copy(data, entry.Value)
	return data, true
}

// Range calls fn for every entry until fn returns false.
// Entries written concurrently may or may not be visited.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Range(fn func(key string, value []byte) bool) {
	for _, shard := range maple.shards {
		cont := true
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			cont = fn(key, entry.Value)
			return cont
		})
		if !cont {
			return
		}
	}
}

// Len returns the number of entries in all shards.
func (maple *mapleImpl) Len() int {
	n := 0
	for _, shard := range maple.shards {
		n += shard.Data.Size()
	}
	return n
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database.
// Unlike sampling engines the sizes are exact, namespaces are small.
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	histogram := util.NewSizeHistogram()
	shardSizes := make([]float64, len(maple.shards))
	sizeBytes := 0

	for i, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			histogram.AddSample(len(entry.Value))
			sizeBytes += len(key) + len(entry.Value)
			return true
		})
		shardSizes[i] = float64(shard.Data.Size())
	}

	return db.DatabaseInfo{
		SizeBytes:         sizeBytes,
		EntryCount:        int(histogram.Count()),
		DbType:            db.ImplMaple,
		WriteSeq:          maple.seq.Load(),
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		AverageValueSize:  histogram.AverageSize(),
		MedianValueSize:   histogram.MedianEstimate(),
	}
}

// Close drops all entries. Closing twice is a no-op.
func (maple *mapleImpl) Close() error {
	if maple.closed.CompareAndSwap(false, true) {
		for _, shard := range maple.shards {
			shard.Data.Clear()
		}
	}
	return nil
}
