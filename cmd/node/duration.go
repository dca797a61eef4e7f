package node

import (
	"fmt"
	"io"
	"strings"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/records"
)

var durationCommands = []Command{
	{
		Path:    "duration get",
		Args:    "[key]",
		Short:   "Reads the duration stored under a key",
		MinArgs: 1, MaxArgs: 1,
		Run: durationGet,
	},
	{
		Path:    "duration set",
		Args:    "[key] [startTime] [flowTime] [totalFlow] [baselineKey]",
		Short:   "Writes a duration under a key, with diffs to the duration under baselineKey if given",
		MinArgs: 4, MaxArgs: 5,
		Run: durationSet,
	},
	{
		Path:    "duration record",
		Args:    "[set] [day] [station] [watering] [startTime] [flowTime] [totalFlow]",
		Short:   "Records a watering into its slot and compares it with the baseline",
		MinArgs: 7, MaxArgs: 7,
		Run: durationRecord,
	},
	{
		Path:    "duration slot",
		Args:    "[set] [day] [station] [watering]",
		Short:   "Prints the key of a duration slot",
		MinArgs: 4, MaxArgs: 4,
		Run: durationSlot,
	},
	{
		Path:    "duration list",
		Args:    "[set] [day]",
		Short:   "Lists the stored durations of one day of a cycle",
		MinArgs: 2, MaxArgs: 2,
		Run: durationList,
	},
}

func durationGet(s *util.Store, w io.Writer, args []string) error {
	key, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	d, err := s.Tables.Durations.ReadE(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d: %s\n", key, d)
	return nil
}

func durationSet(s *util.Store, w io.Writer, args []string) error {
	key, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	d, err := parseDuration(args[1:4])
	if err != nil {
		return err
	}
	if len(args) > 4 {
		baseKey, err := util.ParseKey(args[4])
		if err != nil {
			return err
		}
		baseline, err := s.Tables.Durations.ReadE(baseKey)
		if err != nil {
			return fmt.Errorf("reading baseline %d: %w", baseKey, err)
		}
		d = d.WithBaseline(baseline)
	}
	if err := s.Tables.Durations.WriteE(key, d); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d: %s\n", key, d)
	return nil
}

func durationRecord(s *util.Store, w io.Writer, args []string) error {
	set, day, station, watering, err := parseSlot(args[:4])
	if err != nil {
		return err
	}
	d, err := parseDuration(args[4:])
	if err != nil {
		return err
	}

	key, err := s.Tables.RecordDuration(set, day, station, watering, d)
	if err != nil {
		return err
	}
	recorded, err := s.Tables.Durations.ReadE(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d: %s\n", key, recorded)

	if set == records.Baseline {
		return nil
	}
	baseKey, _ := records.DurationSlot(records.Baseline, day, station, watering)
	baseline, err := s.Tables.Durations.ReadE(baseKey)
	if aos.IsNotFound(err) {
		fmt.Fprintln(w, "no baseline recorded")
		return nil
	} else if err != nil {
		return err
	}
	for _, dev := range recorded.Deviations(baseline, records.DefaultThresholds) {
		fmt.Fprintf(w, "deviation: %s\n", dev)
	}
	return nil
}

func durationSlot(_ *util.Store, w io.Writer, args []string) error {
	set, day, station, watering, err := parseSlot(args)
	if err != nil {
		return err
	}
	key, err := records.DurationSlot(set, day, station, watering)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, key)
	return nil
}

func durationList(s *util.Store, w io.Writer, args []string) error {
	set, err := parseCycleSet(args[0])
	if err != nil {
		return err
	}
	day, err := parseInt("day", args[1])
	if err != nil {
		return err
	}

	found := 0
	for station := 0; station < records.Stations; station++ {
		for watering := 0; watering < records.Waterings; watering++ {
			key, err := records.DurationSlot(set, day, station, watering)
			if err != nil {
				return err
			}
			d, err := s.Tables.Durations.ReadE(key)
			if aos.IsNotFound(err) {
				continue
			} else if err != nil {
				return err
			}
			fmt.Fprintf(w, "station %d, watering %d (key %d): %s\n", station, watering, key, d)
			found++
		}
	}
	fmt.Fprintf(w, "%d durations on day %d of the %s cycle\n", found, day, set)
	return nil
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

func parseCycleSet(arg string) (records.CycleSet, error) {
	for _, set := range []records.CycleSet{records.Baseline, records.Previous, records.Current} {
		if strings.EqualFold(arg, set.String()) {
			return set, nil
		}
	}
	n, err := parseInt("set", arg)
	if err != nil || n < 0 || n > int(records.Current) {
		return 0, fmt.Errorf("set must be baseline, previous, current or 0..2: %s", arg)
	}
	return records.CycleSet(n), nil
}

func parseSlot(args []string) (set records.CycleSet, day, station, watering int, err error) {
	if set, err = parseCycleSet(args[0]); err != nil {
		return
	}
	if day, err = parseInt("day", args[1]); err != nil {
		return
	}
	if station, err = parseInt("station", args[2]); err != nil {
		return
	}
	watering, err = parseInt("watering", args[3])
	return
}

func parseDuration(args []string) (records.Duration, error) {
	startTime, err := util.ParseInt32("startTime", args[0])
	if err != nil {
		return records.Duration{}, err
	}
	flowTime, err := util.ParseInt32("flowTime", args[1])
	if err != nil {
		return records.Duration{}, err
	}
	totalFlow, err := util.ParseInt32("totalFlow", args[2])
	if err != nil {
		return records.Duration{}, err
	}
	return records.NewDuration(startTime, flowTime, totalFlow), nil
}
