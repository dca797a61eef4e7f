package common

import (
	"fmt"
	"strings"

	"github.com/g02flow/aosdb/lib/nvs"
)

// --------------------------------------------------------------------------
// Node configuration struct
// --------------------------------------------------------------------------

// NodeConfig holds all configuration parameters of a node's record store.
type NodeConfig struct {
	// Storage
	DataDir       string
	Partition     string
	PartitionSize int64

	// At-rest encryption
	Encrypt    bool
	Passphrase string

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration before anything is opened.
func (c *NodeConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.Partition == "" || len(c.Partition) > nvs.MaxNameLength {
		return fmt.Errorf("partition name %q must have 1 to %d characters", c.Partition, nvs.MaxNameLength)
	}
	if c.PartitionSize < 2*nvs.PageSize {
		return fmt.Errorf("partition size %d must be at least %d bytes", c.PartitionSize, 2*nvs.PageSize)
	}
	if c.Encrypt && c.Passphrase == "" {
		return fmt.Errorf("encryption needs a passphrase")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// FlashOptions converts the configuration to the options of the file-backed backend.
func (c *NodeConfig) FlashOptions() *nvs.Options {
	opts := nvs.DefaultOptions(c.DataDir)
	opts.PartitionSize = c.PartitionSize
	opts.Encryption = nvs.EncryptionConfig{
		Enabled:    c.Encrypt,
		Passphrase: c.Passphrase,
	}
	return opts
}

// String returns a formatted string representation of the configuration
func (c *NodeConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Partition", c.Partition)
	addField("Partition Size", fmt.Sprintf("%d bytes (%d pages)", c.PartitionSize, c.PartitionSize/nvs.PageSize))

	// Encryption
	addSection("Encryption")
	addField("Enabled", fmt.Sprintf("%t", c.Encrypt))
	if c.Encrypt {
		addField("Passphrase", strings.Repeat("*", 8))
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
