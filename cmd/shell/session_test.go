package shell

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/common"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/g02flow/aosdb/lib/records"
)

func newTestSession(t *testing.T) (*Session, *bytes.Buffer) {
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

	var out bytes.Buffer
	return NewSession(store, &out), &out
}

// TestExecute tests parsing and dispatching of shell lines
func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		line string
		err  bool
		quit bool
		out  string
	}{
		{"empty", "   ", false, false, ""},
		{"comment", "# voltage get 1", false, false, ""},
		{"help", "help", false, false, "voltage get [key]"},
		{"set", "voltage set 7 3700 5000 12", false, false, "7: Battery 3700 mV"},
		{"quoted", `voltage "set" '8' 3700 5000`, false, false, "8: Battery 3700 mV"},
		{"unknown", "drop table", true, false, ""},
		{"unbalanced quote", `voltage get "1`, true, false, ""},
		{"bad arguments", "voltage get", true, false, ""},
		{"exit", "exit", true, true, ""},
		{"quit", "QUIT", true, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, out := newTestSession(t)
			err := session.Execute(tt.line)
			if tt.err != (err != nil) {
				t.Fatalf("Expected error=%v, got %v", tt.err, err)
			}
			if tt.quit != errors.Is(err, errQuit) {
				t.Errorf("Expected quit=%v, got %v", tt.quit, err)
			}
			if !strings.Contains(out.String(), tt.out) {
				t.Errorf("Expected output to contain %q, got %q", tt.out, out.String())
			}
		})
	}
}

// TestRunSimple tests executing piped input
func TestRunSimple(t *testing.T) {
	session, out := newTestSession(t)

	input := strings.Join([]string{
		"boot",
		"voltage set 3 3650 0 100",
		"voltage get 3",
		"exit",
		"voltage get 99",
	}, "\n")
	if err := runSimple(session, strings.NewReader(input)); err != nil {
		t.Fatalf("Failed to run input: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "Restart counter = 1") || strings.Count(got, "3: Battery 3650 mV") != 2 {
		t.Errorf("Unexpected output:\n%s", got)
	}

	err := runSimple(session, strings.NewReader("voltage get 1\nboot\n"))
	if err == nil || !strings.HasPrefix(err.Error(), "line 1:") {
		t.Errorf("Expected missing key to stop at line 1, got %v", err)
	}
}

// TestCompletions tests that every command can be completed
func TestCompletions(t *testing.T) {
	items := completions()
	for _, want := range []string{"help", "exit", "status", "voltage list", "duration record", "boot reset"} {
		found := false
		for _, item := range items {
			found = found || item == want
		}
		if !found {
			t.Errorf("Expected completion %q in %v", want, items)
		}
	}
	if createCompleter() == nil {
		t.Errorf("Expected completer")
	}
}
