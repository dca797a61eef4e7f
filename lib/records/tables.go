package records

import (
	"time"

	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/nvs"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("records")

// DefaultPartition is the partition holding all tables of the node.
const DefaultPartition = "g02nvs"

// Table ids of the node. New tables are appended before the end of the list.
const (
	Durations aos.TableID = iota
	Voltages
)

// Defs returns the table registry of the node.
func Defs() []aos.TableDef {
	return []aos.TableDef{
		// 10 stations x 3 waterings x 7 days x baseline/previous/current
		{ID: Durations, Namespace: "oDuration", RecordSize: DurationSize, MaxKey: 630},
		// 5 minute samples for 2 weeks
		{ID: Voltages, Namespace: "oVoltage", RecordSize: VoltageSize, MaxKey: 4032},
	}
}

// Tables gives typed access to all tables of the node.
type Tables struct {
	Durations *aos.Table[Duration, *Duration]
	Voltages  *aos.Table[Voltage, *Voltage]
}

// Open creates typed accessors over a store with the tables of Defs installed.
func Open(store aos.RecordStore) (*Tables, error) {
	durations, err := aos.NewTable[Duration](store, Durations)
	if err != nil {
		return nil, err
	}
	voltages, err := aos.NewTable[Voltage](store, Voltages)
	if err != nil {
		return nil, err
	}
	return &Tables{Durations: durations, Voltages: voltages}, nil
}

// OpenEngine mounts partition on backend with the node's tables installed.
func OpenEngine(backend nvs.Backend, partition string) (*aos.Engine, *Tables, error) {
	engine, err := aos.NewEngine(backend, partition, Defs())
	if err != nil {
		return nil, nil, err
	}
	tables, err := Open(engine)
	if err != nil {
		_ = engine.Close()
		return nil, nil, err
	}
	return engine, tables, nil
}

func (t *Tables) ReadDuration(key aos.Key) (Duration, bool) {
	return t.Durations.Read(key)
}

func (t *Tables) WriteDuration(key aos.Key, d Duration) bool {
	return t.Durations.Write(key, d)
}

func (t *Tables) ReadVoltage(key aos.Key) (Voltage, bool) {
	return t.Voltages.Read(key)
}

func (t *Tables) WriteVoltage(key aos.Key, v Voltage) bool {
	return t.Voltages.Write(key, v)
}

// RecordVoltage stores a sample in the ring slot of its time.
func (t *Tables) RecordVoltage(batteryMV, solarMV uint16, at time.Time) (aos.Key, bool) {
	key := VoltageSlot(at)
	return key, t.Voltages.Write(key, NewVoltage(batteryMV, solarMV, at))
}

// RecordDuration stores a finished watering and computes its diffs against
// the baseline of the same day, station and watering if one exists.
func (t *Tables) RecordDuration(set CycleSet, day, station, watering int, d Duration) (aos.Key, error) {
	key, err := DurationSlot(set, day, station, watering)
	if err != nil {
		return 0, err
	}

	if set != Baseline {
		baseKey, _ := DurationSlot(Baseline, day, station, watering)
		if baseline, ok := t.Durations.Read(baseKey); ok {
			d = d.WithBaseline(baseline)
			for _, dev := range d.Deviations(baseline, DefaultThresholds) {
				Logger.Warningf("station %d, day %d, watering %d: %s", station, day, watering, dev)
			}
		}
	}

	return key, t.Durations.WriteE(key, d)
}
