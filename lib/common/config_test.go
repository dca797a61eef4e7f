package common

import (
	"strings"
	"testing"

	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/lni/dragonboat/v4/logger"
)

func validConfig() NodeConfig {
	return NodeConfig{
		DataDir:       "data",
		Partition:     "g02nvs",
		PartitionSize: nvs.DefaultPartitionSize,
		LogLevel:      "info",
	}
}

// TestValidate tests the configuration checks
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *NodeConfig)
		ok     bool
	}{
		{"valid", func(c *NodeConfig) {}, true},
		{"no data dir", func(c *NodeConfig) { c.DataDir = "" }, false},
		{"long partition", func(c *NodeConfig) { c.Partition = strings.Repeat("p", 16) }, false},
		{"tiny partition", func(c *NodeConfig) { c.PartitionSize = nvs.PageSize }, false},
		{"encrypt without passphrase", func(c *NodeConfig) { c.Encrypt = true }, false},
		{"encrypt with passphrase", func(c *NodeConfig) { c.Encrypt, c.Passphrase = true, "secret" }, true},
		{"bad log level", func(c *NodeConfig) { c.LogLevel = "loud" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			if err := c.Validate(); tt.ok != (err == nil) {
				t.Errorf("Expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}

// TestFlashOptions tests the conversion to backend options
func TestFlashOptions(t *testing.T) {
	c := validConfig()
	c.Encrypt, c.Passphrase = true, "secret"

	opts := c.FlashOptions()
	if opts.Dir != "data" || opts.PartitionSize != nvs.DefaultPartitionSize {
		t.Errorf("Unexpected options %+v", opts)
	}
	if !opts.Encryption.Enabled || opts.Encryption.Passphrase != "secret" {
		t.Errorf("Expected encryption to be configured, got %+v", opts.Encryption)
	}

	if s := c.String(); strings.Contains(s, "secret") || !strings.Contains(s, "g02nvs") {
		t.Errorf("Unexpected config string:\n%s", s)
	}
}

// TestParseLogLevel tests the log level names
func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for name, want := range tests {
		if got, err := ParseLogLevel(name); err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Errorf("Expected unknown level to fail")
	}
}
