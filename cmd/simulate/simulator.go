package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/g02flow/aosdb/lib/records"
	"golang.org/x/sync/errgroup"
)

// slotsPerSet is the number of duration slots of one cycle set.
const slotsPerSet = records.CycleDays * records.Stations * records.Waterings

// Simulator drives the record tables the way a running node does: a voltage
// sampler stores a sample every VoltageInterval of simulated time and a flow
// recorder stores finished waterings, first for the baseline cycle and then
// for the current one.
//
// Simulated time advances by one VoltageInterval per Interval of wall time.
type Simulator struct {
	Tables   *records.Tables
	Interval time.Duration // wall time per step
	Steps    int           // steps per worker, 0 runs until the context ends
	Start    time.Time     // simulated time of the first step

	samples   atomic.Int64
	waterings atomic.Int64
}

// Summary counts the records written by a run.
type Summary struct {
	Samples   int64
	Waterings int64
}

func (s Summary) String() string {
	return fmt.Sprintf("%d voltage samples, %d waterings", s.Samples, s.Waterings)
}

// Run starts both workers and waits until they are done, the context ends
// or one of them fails.
func (s *Simulator) Run(ctx context.Context) (Summary, error) {
	if s.Interval <= 0 {
		return Summary{}, fmt.Errorf("interval must be positive, got %s", s.Interval)
	}
	if s.Start.IsZero() {
		s.Start = time.Now()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop(ctx, "voltage sampler", s.sampleVoltage)
	})
	g.Go(func() error {
		return s.loop(ctx, "flow recorder", s.recordWatering)
	})
	err := g.Wait()

	return Summary{Samples: s.samples.Load(), Waterings: s.waterings.Load()}, err
}

func (s *Simulator) loop(ctx context.Context, name string, step func(i int) error) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for i := 0; s.Steps == 0 || i < s.Steps; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := step(i); err != nil {
			return fmt.Errorf("%s step %d: %w", name, i, err)
		}
	}
	return nil
}

// sampleVoltage stores the i-th sample. The solar panel only delivers
// between 6 and 18 o'clock.
func (s *Simulator) sampleVoltage(i int) error {
	at := s.Start.Add(time.Duration(i) * records.VoltageInterval)

	battery := uint16(3500 + rand.Intn(800))
	var solar uint16
	if h := at.Hour(); h >= 6 && h < 18 {
		solar = uint16(4000 + rand.Intn(2000))
	}

	key, ok := s.Tables.RecordVoltage(battery, solar, at)
	if !ok {
		return fmt.Errorf("storing sample in slot %d failed", key)
	}
	s.samples.Add(1)
	return nil
}

// recordWatering stores the i-th watering. Steps walk all slots of the
// baseline cycle first and the current cycle afterwards.
func (s *Simulator) recordWatering(i int) error {
	seq := i % (2 * slotsPerSet)
	set := records.Baseline
	if seq >= slotsPerSet {
		set = records.Current
	}
	slot := seq % slotsPerSet
	day := slot / (records.Stations * records.Waterings)
	station := (slot / records.Waterings) % records.Stations
	watering := slot % records.Waterings

	startTime := int32(watering*8*3600 + station*1800 + rand.Intn(600))
	flowTime := int32(600 + rand.Intn(60))
	totalFlow := flowTime*20 + int32(rand.Intn(400))

	d := records.NewDuration(startTime, flowTime, totalFlow)
	if _, err := s.Tables.RecordDuration(set, day, station, watering, d); err != nil {
		return err
	}
	s.waterings.Add(1)
	return nil
}
