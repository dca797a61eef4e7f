package node

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/common"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/g02flow/aosdb/lib/records"
	"github.com/spf13/cobra"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func newTestStore(t *testing.T) *util.Store {
	t.Helper()
	store, err := util.OpenStore(&common.NodeConfig{
		DataDir:       t.TempDir(),
		Partition:     records.DefaultPartition,
		PartitionSize: nvs.DefaultPartitionSize,
		LogLevel:      "warn",
	})
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// exec runs a command line against store and returns its output.
func exec(t *testing.T, store *util.Store, line string) (string, error) {
	t.Helper()
	cmd, args, ok := Lookup(strings.Fields(line))
	if !ok {
		t.Fatalf("No command for %q", line)
	}
	var out bytes.Buffer
	err := cmd.Exec(store, &out, args)
	return out.String(), err
}

func mustExec(t *testing.T, store *util.Store, line string) string {
	t.Helper()
	out, err := exec(t, store, line)
	if err != nil {
		t.Fatalf("Failed to run %q: %v", line, err)
	}
	return out
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestLookup tests resolving command words to commands
func TestLookup(t *testing.T) {
	tests := []struct {
		words []string
		path  string
		args  []string
		ok    bool
	}{
		{[]string{"voltage", "get", "2"}, "voltage get", []string{"2"}, true},
		{[]string{"boot"}, "boot", []string{}, true},
		{[]string{"boot", "reset"}, "boot reset", []string{}, true},
		{[]string{"boot", "show", "x"}, "boot show", []string{"x"}, true},
		{[]string{"status"}, "status", []string{}, true},
		{[]string{"duration"}, "", nil, false},
		{[]string{"nope", "get"}, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.words, " "), func(t *testing.T) {
			cmd, args, ok := Lookup(tt.words)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if cmd.Path != tt.path || !slices.Equal(args, tt.args) {
				t.Errorf("Expected %q %v, got %q %v", tt.path, tt.args, cmd.Path, args)
			}
		})
	}
}

// TestAddCommands tests the cobra command tree
func TestAddCommands(t *testing.T) {
	root := &cobra.Command{Use: "aosdb"}
	AddCommands(root)

	tests := [][]string{
		{"duration", "get"},
		{"duration", "record"},
		{"voltage", "list"},
		{"boot"},
		{"boot", "reset"},
		{"metrics"},
	}
	for _, path := range tests {
		cmd, rest, err := root.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("Expected command %v, got %v (rest %v, err %v)", path, cmd.Name(), rest, err)
		}
	}
}

// TestArgumentCount tests that commands reject a wrong number of arguments
func TestArgumentCount(t *testing.T) {
	store := newTestStore(t)

	for _, line := range []string{"voltage get", "voltage get 1 2", "duration set 1 2 3", "duration list current"} {
		if _, err := exec(t, store, line); err == nil || !strings.HasPrefix(err.Error(), "usage:") {
			t.Errorf("Expected usage error for %q, got %v", line, err)
		}
	}
}

// TestVoltageCommands tests writing, reading and listing voltage samples
func TestVoltageCommands(t *testing.T) {
	store := newTestStore(t)

	out := mustExec(t, store, "voltage set 2 3400 4200 3600")
	if !strings.Contains(out, "Battery 3400 mV, solar 4200 mV (low) at stamp 3600") {
		t.Errorf("Unexpected output %q", out)
	}

	out = mustExec(t, store, "voltage get 2")
	if !strings.HasPrefix(out, "2: Battery 3400 mV") {
		t.Errorf("Unexpected output %q", out)
	}

	if _, err := exec(t, store, "voltage get 3"); !aos.IsNotFound(err) {
		t.Errorf("Expected not found for key 3, got %v", err)
	}
	if _, err := exec(t, store, "voltage get 5000"); aos.CodeOf(err) != aos.RetCKeyOutOfRange {
		t.Errorf("Expected key out of range, got %v", err)
	}
	if _, err := exec(t, store, "voltage get -1"); err == nil {
		t.Errorf("Expected negative key to fail")
	}

	out = mustExec(t, store, "voltage sample 3900 0")
	if !strings.Contains(out, "Battery 3900 mV") {
		t.Errorf("Unexpected output %q", out)
	}

	out = mustExec(t, store, "voltage list 0 10")
	if !strings.Contains(out, "in 0..10") {
		t.Errorf("Unexpected output %q", out)
	}
	out = mustExec(t, store, "voltage list")
	if !strings.Contains(out, "Battery 3900 mV") || !strings.HasSuffix(out, " samples in 0..4031\n") {
		t.Errorf("Expected the sample in the list, got %q", out)
	}

	if _, err := exec(t, store, "voltage list 10 5"); err == nil {
		t.Errorf("Expected inverted range to fail")
	}
}

// TestDurationCommands tests recording waterings against the baseline
func TestDurationCommands(t *testing.T) {
	store := newTestStore(t)

	out := mustExec(t, store, "duration record baseline 2 4 0 21600 600 30000")
	if !strings.HasPrefix(out, "72: ") {
		t.Errorf("Expected baseline in slot 72, got %q", out)
	}

	out = mustExec(t, store, "duration record current 2 4 0 22500 600 30000")
	if !strings.HasPrefix(out, "492: ") {
		t.Errorf("Expected current watering in slot 492, got %q", out)
	}
	if !strings.Contains(out, "deviation: startTime off by +900 (limit 300)") {
		t.Errorf("Expected start time deviation, got %q", out)
	}

	out = mustExec(t, store, "duration record previous 0 0 0 100 10 200")
	if !strings.Contains(out, "no baseline recorded") {
		t.Errorf("Expected missing baseline note, got %q", out)
	}

	out = mustExec(t, store, "duration list current 2")
	if !strings.Contains(out, "1 durations on day 2 of the current cycle") {
		t.Errorf("Unexpected list %q", out)
	}

	if out = mustExec(t, store, "duration slot current 6 9 2"); out != "629\n" {
		t.Errorf("Expected slot 629, got %q", out)
	}
	if _, err := exec(t, store, "duration slot current 7 0 0"); err == nil {
		t.Errorf("Expected invalid day to fail")
	}
	if _, err := exec(t, store, "duration record weekly 0 0 0 1 1 1"); err == nil {
		t.Errorf("Expected invalid set to fail")
	}

	mustExec(t, store, "duration set 10 21700 600 30000 72")
	d, err := store.Tables.Durations.ReadE(10)
	if err != nil {
		t.Fatalf("Failed to read duration: %v", err)
	}
	if d.StartTimeDiff != 100 || d.AvgFlow != 50 {
		t.Errorf("Unexpected duration %v", d)
	}

	if _, err := exec(t, store, "duration set 11 1 1 1 12"); !aos.IsNotFound(err) {
		t.Errorf("Expected missing baseline to fail with not found, got %v", err)
	}
}

// TestStatusCommands tests status, metrics and the restart counter
func TestStatusCommands(t *testing.T) {
	store := newTestStore(t)

	mustExec(t, store, "boot")
	if out := mustExec(t, store, "boot"); out != "Restart counter = 2\n" {
		t.Errorf("Expected second boot, got %q", out)
	}
	if out := mustExec(t, store, "boot show"); out != "Restart counter = 2\n" {
		t.Errorf("Expected counter 2, got %q", out)
	}

	mustExec(t, store, "voltage set 1 3700 0")

	out := mustExec(t, store, "status")
	for _, want := range []string{"Partition g02nvs", "oDuration", "oVoltage", "Restart counter = 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected status to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "WARNING") {
		t.Errorf("Expected no space warning on an empty partition")
	}
	if !strings.Contains(out, "    1 records in     2 entries used, 7 bytes (median record 8 B)") {
		t.Errorf("Expected one voltage record in the table status, got:\n%s", out)
	}

	out = mustExec(t, store, "metrics")
	for _, want := range []string{`aos_operations_total{table="oVoltage",op="write",result="SUCCESS"} 1`, "nvs.g02nvs.commits"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected metrics to contain %q, got:\n%s", want, out)
		}
	}

	mustExec(t, store, "boot reset")
	if out := mustExec(t, store, "boot show"); out != "Restart counter = 0\n" {
		t.Errorf("Expected erased counter, got %q", out)
	}
}

// TestLowSpace tests the space warnings of the status command
func TestLowSpace(t *testing.T) {
	tests := []struct {
		name  string
		stats nvs.Stats
		want  string
	}{
		{"plenty", nvs.Stats{UsedEntries: 100, AvailableEntries: 3000, TotalEntries: 4000}, ""},
		{"last page", nvs.Stats{UsedEntries: 3900, AvailableEntries: 100, TotalEntries: 4000}, "less than one page of entries left"},
		{"almost full", nvs.Stats{UsedEntries: 99000, AvailableEntries: 900, TotalEntries: 100000}, "partition is 99.0% full"},
		{"exactly 98%", nvs.Stats{UsedEntries: 98000, AvailableEntries: 1900, TotalEntries: 100000}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lowSpace(tt.stats); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
