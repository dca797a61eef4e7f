package nvs

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	PageSize       = 4096 // Bytes per flash page
	EntrySize      = 32   // Bytes per entry
	EntriesPerPage = 126  // Entries per page (the rest of a page is its header and state bitmap)

	MaxNameLength = 15     // Longest partition, namespace or key name (16 bytes incl. terminator)
	MaxBlobSize   = 508000 // Largest blob value in bytes
	MaxNamespaces = 254    // Namespaces per partition

	// DefaultPartitionSize holds all records of the irrigation node with room to spare.
	DefaultPartitionSize = 0x80000

	fileExt = ".nvs"
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// EncryptionConfig configures at-rest encryption of a partition.
type EncryptionConfig struct {
	// Enabled turns encryption on. Partitions created with encryption can only
	// be opened with encryption enabled and the same key.
	Enabled bool

	// Key is a 32-byte AES-256 key. If empty, the key is derived from Passphrase.
	Key []byte

	// Passphrase is used to derive the key with PBKDF2 and the partition's salt.
	Passphrase string
}

// Options configures a Flash.
type Options struct {
	Dir           string           // Directory holding the partition files
	PartitionSize int64            // Size of each partition in bytes (rounded down to whole pages)
	Encryption    EncryptionConfig // At-rest encryption
}

// DefaultOptions returns options storing partitions in dir.
func DefaultOptions(dir string) *Options {
	return &Options{
		Dir:           dir,
		PartitionSize: DefaultPartitionSize,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// checkName validates a partition, namespace or key name.
func checkName(kind, name string) error {
	if name == "" {
		return NewError(ErrCInvalidName, "%s name must not be empty", kind)
	}
	if len(name) > MaxNameLength {
		return NewError(ErrCKeyTooLong, "%s name %q is longer than %d characters", kind, name, MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return NewError(ErrCInvalidName, "%s name %q contains a non-printable character", kind, name)
		}
	}
	return nil
}

// blobSpan returns the number of entries a blob of size bytes occupies.
func blobSpan(size int) int {
	return 1 + (size+EntrySize-1)/EntrySize
}

// totalEntries returns the number of entries of a partition of size bytes.
func totalEntries(size int64) int {
	return int(size/PageSize) * EntriesPerPage
}
