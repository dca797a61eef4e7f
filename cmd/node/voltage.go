package node

import (
	"fmt"
	"io"
	"time"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/records"
)

var voltageCommands = []Command{
	{
		Path:    "voltage get",
		Args:    "[key]",
		Short:   "Reads the voltage sample stored under a key",
		MinArgs: 1, MaxArgs: 1,
		Run: voltageGet,
	},
	{
		Path:    "voltage set",
		Args:    "[key] [batteryMV] [solarMV] [timestamp]",
		Short:   "Writes a voltage sample under a key. The timestamp defaults to now",
		MinArgs: 3, MaxArgs: 4,
		Run: voltageSet,
	},
	{
		Path:    "voltage sample",
		Args:    "[batteryMV] [solarMV]",
		Short:   "Stores a sample taken now in its ring slot",
		MinArgs: 2, MaxArgs: 2,
		Run: voltageSample,
	},
	{
		Path:    "voltage list",
		Args:    "[from] [to]",
		Short:   "Lists the stored samples between two keys",
		MinArgs: 0, MaxArgs: 2,
		Run: voltageList,
	},
}

func voltageGet(s *util.Store, w io.Writer, args []string) error {
	key, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	v, err := s.Tables.Voltages.ReadE(key)
	if err != nil {
		return err
	}
	printVoltage(w, key, v, time.Now())
	return nil
}

func voltageSet(s *util.Store, w io.Writer, args []string) error {
	key, err := util.ParseKey(args[0])
	if err != nil {
		return err
	}
	batteryMV, err := util.ParseUint16("batteryMV", args[1])
	if err != nil {
		return err
	}
	solarMV, err := util.ParseUint16("solarMV", args[2])
	if err != nil {
		return err
	}

	v := records.NewVoltage(batteryMV, solarMV, time.Now())
	if len(args) > 3 {
		if v.Timestamp, err = util.ParseUint16("timestamp", args[3]); err != nil {
			return err
		}
	}

	if err := s.Tables.Voltages.WriteE(key, v); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d: %s\n", key, v)
	return nil
}

func voltageSample(s *util.Store, w io.Writer, args []string) error {
	batteryMV, err := util.ParseUint16("batteryMV", args[0])
	if err != nil {
		return err
	}
	solarMV, err := util.ParseUint16("solarMV", args[1])
	if err != nil {
		return err
	}

	now := time.Now()
	key, ok := s.Tables.RecordVoltage(batteryMV, solarMV, now)
	if !ok {
		return fmt.Errorf("storing sample in slot %d failed", key)
	}
	printVoltage(w, key, records.NewVoltage(batteryMV, solarMV, now), now)
	return nil
}

func voltageList(s *util.Store, w io.Writer, args []string) error {
	from, to, err := parseRange(args, records.VoltageSlots-1)
	if err != nil {
		return err
	}

	now := time.Now()
	found := 0
	for key := from; key <= to; key++ {
		v, err := s.Tables.Voltages.ReadE(aos.Key(key))
		if aos.IsNotFound(err) {
			continue
		} else if err != nil {
			return err
		}
		printVoltage(w, aos.Key(key), v, now)
		found++
	}
	fmt.Fprintf(w, "%d samples in %d..%d\n", found, from, to)
	return nil
}

func printVoltage(w io.Writer, key aos.Key, v records.Voltage, now time.Time) {
	fmt.Fprintf(w, "%d: %s, taken %s\n", key, v, v.Time(now).Format(time.DateTime))
}
