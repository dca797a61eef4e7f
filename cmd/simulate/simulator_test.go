package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/g02flow/aosdb/lib/records"
)

func newTestTables(t *testing.T) (*aos.Engine, *records.Tables) {
	t.Helper()
	flash := nvs.NewFlash(nvs.DefaultOptions(t.TempDir()))
	engine, tables, err := records.OpenEngine(flash, records.DefaultPartition)
	if err != nil {
		t.Fatalf("Failed to open engine: %v", err)
	}
	t.Cleanup(func() {
		_ = engine.Close()
		_ = flash.Close()
	})
	return engine, tables
}

// TestRunSteps tests a bounded run of both workers
func TestRunSteps(t *testing.T) {
	_, tables := newTestTables(t)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sim := &Simulator{
		Tables:   tables,
		Interval: time.Millisecond,
		Steps:    5,
		Start:    start,
	}

	summary, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Failed to run simulation: %v", err)
	}
	if summary.Samples != 5 || summary.Waterings != 5 {
		t.Errorf("Expected 5 samples and 5 waterings, got %s", summary)
	}

	for i := 0; i < 5; i++ {
		at := start.Add(time.Duration(i) * records.VoltageInterval)
		v, ok := tables.ReadVoltage(records.VoltageSlot(at))
		if !ok || v.Timestamp != records.Stamp(at) {
			t.Errorf("Expected sample %d in slot %d, got %v (ok=%v)", i, records.VoltageSlot(at), v, ok)
		}
		if v.SolarMV == 0 {
			t.Errorf("Expected solar voltage at noon, got %v", v)
		}

		// the first steps fill the baseline of day 0
		if _, ok := tables.ReadDuration(aos.Key(i)); !ok {
			t.Errorf("Expected baseline watering in slot %d", i)
		}
	}
}

// TestRunCancel tests that an unbounded run stops with its context
func TestRunCancel(t *testing.T) {
	_, tables := newTestTables(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sim := &Simulator{Tables: tables, Interval: time.Millisecond}
	summary, err := sim.Run(ctx)
	if err != nil {
		t.Fatalf("Expected cancelled run to succeed, got %v", err)
	}
	if summary.Samples == 0 || summary.Waterings == 0 {
		t.Errorf("Expected records before cancellation, got %s", summary)
	}
}

// TestRecordWateringCycles tests that the flow recorder switches to the
// current cycle after the baseline
func TestRecordWateringCycles(t *testing.T) {
	_, tables := newTestTables(t)
	sim := &Simulator{Tables: tables}

	for _, i := range []int{0, slotsPerSet} {
		if err := sim.recordWatering(i); err != nil {
			t.Fatalf("Failed to record watering %d: %v", i, err)
		}
	}

	baseline, ok := tables.ReadDuration(0)
	if !ok {
		t.Fatalf("Expected baseline in slot 0")
	}
	current, ok := tables.ReadDuration(aos.Key(2 * slotsPerSet))
	if !ok {
		t.Fatalf("Expected current watering in slot %d", 2*slotsPerSet)
	}
	if current.StartTimeDiff != current.StartTime-baseline.StartTime {
		t.Errorf("Expected diffs against the baseline, got %v", current)
	}
}

// TestInvalidInterval tests the interval check
func TestInvalidInterval(t *testing.T) {
	_, tables := newTestTables(t)
	if _, err := (&Simulator{Tables: tables}).Run(context.Background()); err == nil {
		t.Errorf("Expected zero interval to fail")
	}
}
