package records

import (
	"encoding/binary"
	"fmt"

	"github.com/g02flow/aosdb/lib/aos"
)

// DurationSize is the encoded size of a Duration: eight little-endian int32.
const DurationSize = 8 * 4

// Duration is one watering cycle of a station as seen by the flow meter,
// together with its deviation from the baseline cycle.
type Duration struct {
	StartTime int32 // seconds since cycle start
	FlowTime  int32 // seconds
	TotalFlow int32 // pulses
	AvgFlow   int32 // TotalFlow / FlowTime

	StartTimeDiff int32 // from baseline
	FlowTimeDiff  int32 // from baseline
	TotalFlowDiff int32 // from baseline
	AvgFlowDiff   int32 // from baseline
}

// NewDuration creates a Duration and computes its average flow.
func NewDuration(startTime, flowTime, totalFlow int32) Duration {
	d := Duration{StartTime: startTime, FlowTime: flowTime, TotalFlow: totalFlow}
	if flowTime > 0 {
		d.AvgFlow = totalFlow / flowTime
	}
	return d
}

// WithBaseline returns d with its diff fields set relative to baseline.
func (d Duration) WithBaseline(baseline Duration) Duration {
	d.StartTimeDiff = d.StartTime - baseline.StartTime
	d.FlowTimeDiff = d.FlowTime - baseline.FlowTime
	d.TotalFlowDiff = d.TotalFlow - baseline.TotalFlow
	d.AvgFlowDiff = d.AvgFlow - baseline.AvgFlow
	return d
}

func (d *Duration) fields() []*int32 {
	return []*int32{
		&d.StartTime, &d.FlowTime, &d.TotalFlow, &d.AvgFlow,
		&d.StartTimeDiff, &d.FlowTimeDiff, &d.TotalFlowDiff, &d.AvgFlowDiff,
	}
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (d *Duration) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DurationSize)
	for i, f := range d.fields() {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(*f))
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (d *Duration) UnmarshalBinary(data []byte) error {
	if len(data) != DurationSize {
		return fmt.Errorf("duration record needs %d bytes, got %d", DurationSize, len(data))
	}
	for i, f := range d.fields() {
		*f = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

func (d Duration) String() string {
	return fmt.Sprintf("startTime=%d, flowTime=%d, totalFlow=%d, avgFlow=%d (diff %+d, %+d, %+d, %+d)",
		d.StartTime, d.FlowTime, d.TotalFlow, d.AvgFlow,
		d.StartTimeDiff, d.FlowTimeDiff, d.TotalFlowDiff, d.AvgFlowDiff)
}

// --------------------------------------------------------------------------
// Slot layout
// --------------------------------------------------------------------------

// CycleSet selects which of the three stored cycles a duration belongs to.
type CycleSet uint8

const (
	Baseline CycleSet = iota
	Previous
	Current
)

func (s CycleSet) String() string {
	switch s {
	case Baseline:
		return "baseline"
	case Previous:
		return "previous"
	case Current:
		return "current"
	default:
		return "unknown"
	}
}

const (
	Stations  = 10 // stations of one controller
	Waterings = 3  // waterings per station and day
	CycleDays = 7  // days of one cycle
	cycleSets = 3
)

// DurationSlot returns the key of a duration in the table:
// sets × days × stations × waterings, 630 slots in total.
func DurationSlot(set CycleSet, day, station, watering int) (aos.Key, error) {
	switch {
	case set >= cycleSets:
		return 0, fmt.Errorf("invalid cycle set %d", set)
	case day < 0 || day >= CycleDays:
		return 0, fmt.Errorf("day %d is not in 0..%d", day, CycleDays-1)
	case station < 0 || station >= Stations:
		return 0, fmt.Errorf("station %d is not in 0..%d", station, Stations-1)
	case watering < 0 || watering >= Waterings:
		return 0, fmt.Errorf("watering %d is not in 0..%d", watering, Waterings-1)
	}
	return aos.Key(((int(set)*CycleDays+day)*Stations+station)*Waterings + watering), nil
}

// --------------------------------------------------------------------------
// Notifications
// --------------------------------------------------------------------------

// Thresholds are the allowed deviations of a cycle from its baseline.
type Thresholds struct {
	StartTime    int32 // seconds
	FlowTime     int32 // seconds
	TotalFlowPct int32 // percent of the baseline total flow
	AvgFlowPct   int32 // percent of the baseline average flow
}

// DefaultThresholds: start ±5 min, flow time ±30 s, total and average flow ±5%.
var DefaultThresholds = Thresholds{
	StartTime:    5 * 60,
	FlowTime:     30,
	TotalFlowPct: 5,
	AvgFlowPct:   5,
}

// Deviation is a field of a Duration that is outside its threshold.
type Deviation struct {
	Field string
	Diff  int32 // difference to the baseline
	Limit int32 // allowed absolute difference
}

func (d Deviation) String() string {
	return fmt.Sprintf("%s off by %+d (limit %d)", d.Field, d.Diff, d.Limit)
}

// Deviations compares d (with diffs computed by WithBaseline) against
// baseline and returns every field outside th.
func (d Duration) Deviations(baseline Duration, th Thresholds) []Deviation {
	var out []Deviation
	check := func(field string, diff, limit int32) {
		if abs(diff) > limit {
			out = append(out, Deviation{Field: field, Diff: diff, Limit: limit})
		}
	}

	check("startTime", d.StartTimeDiff, th.StartTime)
	check("flowTime", d.FlowTimeDiff, th.FlowTime)
	check("totalFlow", d.TotalFlowDiff, abs(baseline.TotalFlow)*th.TotalFlowPct/100)
	check("avgFlow", d.AvgFlowDiff, abs(baseline.AvgFlow)*th.AvgFlowPct/100)
	return out
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
