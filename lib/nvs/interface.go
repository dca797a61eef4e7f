package nvs

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// OpenMode selects whether a namespace handle may modify its namespace.
type OpenMode uint8

const (
	ReadOnly OpenMode = iota
	ReadWrite
)

func (m OpenMode) String() string {
	switch m {
	case ReadOnly:
		return "readonly"
	case ReadWrite:
		return "readwrite"
	default:
		return "unknown"
	}
}

// Backend is a namespaced, crash-consistent key→blob store with explicit commit.
// All errors returned by a Backend are of type *Error.
type Backend interface {
	// InitPartition mounts the named partition. It must be called before any
	// namespace of the partition is opened. Calling it again for an already
	// initialised partition is a no-op.
	InitPartition(partition string) (err error)

	// OpenNamespace opens a handle to a namespace of an initialised partition.
	// In ReadWrite mode a missing namespace is created, in ReadOnly mode
	// ErrCNotFound is returned for it.
	OpenNamespace(partition, namespace string, mode OpenMode) (handle Handle, err error)

	// Stats returns the entry usage of an initialised partition.
	Stats(partition string) (stats Stats, err error)
}

// Handle gives access to a single namespace.
type Handle interface {
	// GetBlob copies the blob stored under key into out and returns its size.
	// If out is nil only the size is returned. ErrCNotFound is returned if the
	// key does not exist, ErrCInvalidLength if out is too small.
	GetBlob(key string, out []byte) (n int, err error)

	// SetBlob stores value under key. The change is visible immediately but
	// only durable after Commit.
	SetBlob(key string, value []byte) (err error)

	// EraseKey removes key from the namespace. Like SetBlob it needs a Commit.
	EraseKey(key string) (err error)

	// Commit durably writes all changes staged on this handle. If it fails,
	// the staged changes are dropped and the previous values are visible again.
	Commit() (err error)

	// Info describes the keys and blobs currently visible in the namespace,
	// staged changes included.
	Info() (info NamespaceInfo, err error)

	// Close releases the handle. Uncommitted changes are dropped.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// Stats describes the entry usage of a partition.
type Stats struct {
	UsedEntries      int `json:"used_entries"`
	FreeEntries      int `json:"free_entries"`
	AvailableEntries int `json:"available_entries"` // free entries minus the reserved page
	TotalEntries     int `json:"total_entries"`
	NamespaceCount   int `json:"namespace_count"`
}

// NamespaceInfo describes the contents of one namespace.
type NamespaceInfo struct {
	Keys            int `json:"keys"`
	UsedEntries     int `json:"used_entries"` // entries occupied by the blobs
	DataBytes       int `json:"data_bytes"`   // key and blob bytes
	AverageBlobSize int `json:"average_blob_size"`
	MedianBlobSize  int `json:"median_blob_size"` // estimate
}

// UsedPercent returns how full the partition is in percent of all entries.
func (s Stats) UsedPercent() float64 {
	if s.TotalEntries == 0 {
		return 0
	}
	return float64(s.UsedEntries) * 100 / float64(s.TotalEntries)
}

func (s Stats) String() string {
	return fmt.Sprintf("UsedEntries = (%d), FreeEntries = (%d), TotalEntries = (%d), namespaces in partition = %d (%.1f%% full)",
		s.UsedEntries, s.FreeEntries, s.TotalEntries, s.NamespaceCount, s.UsedPercent())
}
