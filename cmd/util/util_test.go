package util

import (
	"strings"
	"testing"

	"github.com/g02flow/aosdb/lib/aos"
	"github.com/spf13/viper"
)

// TestWrapString tests wrapping of flag help texts
func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line longer than %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("Expected short text unchanged, got %q", got)
	}
}

// TestParseKey tests parsing of record keys
func TestParseKey(t *testing.T) {
	tests := []struct {
		arg string
		key aos.Key
		ok  bool
	}{
		{"0", 0, true},
		{"4032", 4032, true},
		{"65535", 65535, true},
		{"65536", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		key, err := ParseKey(tt.arg)
		if tt.ok != (err == nil) || key != tt.key {
			t.Errorf("ParseKey(%q) = %d, %v; want %d, ok=%v", tt.arg, key, err, tt.key, tt.ok)
		}
	}

	if _, err := ParseInt32("startTime", "-5"); err != nil {
		t.Errorf("Expected negative int32 to parse, got %v", err)
	}
	if _, err := ParseUint16("batteryMV", "70000"); err == nil {
		t.Errorf("Expected 70000 mV to fail")
	}
}

// TestLoadConfig tests reading the configuration from viper and opening the store
func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	viper.Set("data-dir", dir)
	viper.Set("partition", "test")
	viper.Set("partition-size", 8*4096)
	viper.Set("log-level", "error")
	t.Cleanup(viper.Reset)

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if conf.DataDir != dir || conf.Partition != "test" || conf.PartitionSize != 8*4096 {
		t.Errorf("Unexpected config %+v", conf)
	}

	store, err := OpenStore(conf)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if store.Engine.Partition() != "test" {
		t.Errorf("Expected partition test, got %s", store.Engine.Partition())
	}
	if err := store.Close(); err != nil {
		t.Errorf("Failed to close store: %v", err)
	}

	viper.Set("partition", "")
	if _, err := LoadConfig(); err == nil {
		t.Errorf("Expected empty partition name to fail")
	}
}
