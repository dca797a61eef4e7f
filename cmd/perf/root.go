package perf

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/g02flow/aosdb/lib/aos"
	"github.com/g02flow/aosdb/lib/common"
	"github.com/g02flow/aosdb/lib/records"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// PerfCmd benchmarks the engine against the configured partition
	PerfCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for the record tables",
		Long: `Runs read and write benchmarks against the voltage table of the
configured partition. Benchmarked keys are overwritten, use a scratch
data directory.`,
		Args:    cobra.NoArgs,
		PreRunE: processPerfConfig,
		RunE:    run,
	}
	perfNumThreads = 4
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)
)

func init() {
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. write,read)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 4, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread < 1 || perfKeySpread > records.VoltageSlots {
		return fmt.Errorf("keys must be between 1 and %d", records.VoltageSlots)
	}
	return nil
}

// benchmark is one operation measured against the engine.
type benchmark struct {
	name    string
	prepare bool // write all keys before measuring
	op      func(e *aos.Engine, key aos.Key, buf []byte) error
}

var benchmarks = []benchmark{
	{
		name: "write",
		op: func(e *aos.Engine, key aos.Key, buf []byte) error {
			return e.WriteE(records.Voltages, key, buf)
		},
	},
	{
		name:    "read",
		prepare: true,
		op: func(e *aos.Engine, key aos.Key, buf []byte) error {
			return e.ReadE(records.Voltages, key, buf)
		},
	},
	{
		name: "read-miss",
		op: func(e *aos.Engine, key aos.Key, buf []byte) error {
			err := e.ReadE(records.Voltages, key, buf)
			if aos.IsNotFound(err) {
				return nil
			}
			return err
		},
	},
	{
		name:    "mixed",
		prepare: true,
		op: func(e *aos.Engine, key aos.Key, buf []byte) error {
			if key%4 == 0 {
				return e.WriteE(records.Voltages, key, buf)
			}
			return e.ReadE(records.Voltages, key, buf)
		},
	},
}

func run(cmd *cobra.Command, _ []string) error {
	store, err := util.OpenCommandStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			util.Logger.Errorf("closing store: %v", err)
		}
	}()

	fmt.Println("Performance testing tool for the record tables")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(store.Config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Keys: %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, bench := range benchmarks {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bench.name) {
				return
			}
			runBenchmark(b, store.Engine, bench)
		})
		results[bench.name] = result
		printResult(bench.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, store.Config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

func runBenchmark(b *testing.B, engine *aos.Engine, bench benchmark) {
	sample := records.NewVoltage(3700, 5000, time.Now())
	value, _ := sample.MarshalBinary()

	getKey := getKeys(bench.name == "read-miss")
	if bench.prepare {
		for i := 0; i < perfKeySpread; i++ {
			if err := engine.WriteE(records.Voltages, getKey(i), value); err != nil {
				util.Logger.Errorf("(%s) - error preparing key: %v", bench.name, err)
			}
		}
	}

	b.SetParallelism(perfNumThreads)

	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		buf := slices.Clone(value)
		counter := 0
		for pb.Next() {
			if err := bench.op(engine, getKey(counter), buf); err != nil {
				util.Logger.Errorf("(%s) - error: %v", bench.name, err)
			}
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys returns the key for the i-th operation (with wraparound). The
// missing key lies past the voltage ring, the table accepts it but the
// sampler never writes it.
func getKeys(missing bool) func(int) aos.Key {
	if missing {
		return func(int) aos.Key { return aos.Key(records.VoltageSlots) }
	}
	return func(i int) aos.Key {
		return aos.Key(i % perfKeySpread)
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.NodeConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Partition", "PartitionSize", "Encrypted",
		"Threads", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Partition,
			strconv.FormatInt(config.PartitionSize, 10),
			strconv.FormatBool(config.Encrypt),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
