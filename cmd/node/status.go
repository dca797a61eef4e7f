package node

import (
	"fmt"
	"io"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/nvs"
	gometrics "github.com/rcrowley/go-metrics"
)

const (
	lowSpaceEntries = nvs.EntriesPerPage // available entries below which status warns
	lowSpacePercent = 98                 // used share of the partition above which status warns
)

var statusCommands = []Command{
	{
		Path:  "status",
		Short: "Shows the entry usage of the partition and its tables",
		Run:   status,
	},
	{
		Path:  "metrics",
		Short: "Prints the engine and backend metrics of this session",
		Run:   printMetrics,
	},
	{
		Path:  "boot",
		Short: "Counts a restart of the node and prints the new count",
		Run:   bootIncrement,
	},
	{
		Path:  "boot show",
		Short: "Prints the restart counter",
		Run:   bootShow,
	},
	{
		Path:  "boot reset",
		Short: "Erases the restart counter",
		Run:   bootReset,
	},
}

func status(s *util.Store, w io.Writer, _ []string) error {
	stats, err := s.Engine.Status()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Partition %s (%s)\n", s.Engine.Partition(), s.Config.DataDir)
	fmt.Fprintf(w, "  %s\n", stats)
	fmt.Fprintf(w, "  AvailableEntries = (%d)\n", stats.AvailableEntries)
	if warning := lowSpace(stats); warning != "" {
		fmt.Fprintf(w, "  WARNING: %s\n", warning)
	}

	fmt.Fprintln(w, "Tables")
	for _, def := range s.Engine.Tables() {
		ts, err := s.Engine.TableStatus(def.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-40s %5d records in %5d entries used, %d bytes (median record %d B)\n",
			ts.Def, ts.Records, ts.UsedEntries, ts.DataBytes, ts.MedianRecordSize)
	}

	boots, err := s.Boot.Value()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Restart counter = %d\n", boots)
	return nil
}

// lowSpace returns a warning if the partition is about to run full.
func lowSpace(stats nvs.Stats) string {
	switch {
	case stats.AvailableEntries < lowSpaceEntries:
		return "less than one page of entries left"
	case stats.UsedPercent() > lowSpacePercent:
		return fmt.Sprintf("partition is %.1f%% full", stats.UsedPercent())
	}
	return ""
}

func printMetrics(s *util.Store, w io.Writer, _ []string) error {
	s.Engine.WritePrometheus(w)
	gometrics.WriteOnce(s.Flash.Metrics(), w)
	return nil
}

func bootIncrement(s *util.Store, w io.Writer, _ []string) error {
	val, err := s.Boot.Increment()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Restart counter = %d\n", val)
	return nil
}

func bootShow(s *util.Store, w io.Writer, _ []string) error {
	val, err := s.Boot.Value()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Restart counter = %d\n", val)
	return nil
}

func bootReset(s *util.Store, w io.Writer, _ []string) error {
	if err := s.Boot.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(w, "Restart counter erased")
	return nil
}
