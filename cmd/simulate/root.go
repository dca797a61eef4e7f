package simulate

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/g02flow/aosdb/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SimulateCmd runs the node's record writers against the partition
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a running node writing voltage samples and waterings",
	Long: `Counts a restart and then runs a voltage sampler and a flow recorder
concurrently against the record tables until --for has passed or the
process is interrupted. Each --interval advances the simulated clock
by five minutes.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	key := "for"
	SimulateCmd.Flags().Duration(key, 10*time.Second, util.WrapString("How long to run the simulation (0 runs until interrupted)"))
	key = "interval"
	SimulateCmd.Flags().Duration(key, 100*time.Millisecond, util.WrapString("Wall time between two simulated steps"))
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

	boots, err := store.Boot.Increment()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := viper.GetDuration("for"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "boot #%d, simulating (press Ctrl+C to stop)\n", boots)

	sim := &Simulator{
		Tables:   store.Tables,
		Interval: viper.GetDuration("interval"),
	}
	summary, err := sim.Run(ctx)
	fmt.Fprintf(out, "wrote %s\n", summary)
	if err != nil {
		return err
	}

	stats, err := store.Engine.Status()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, stats)
	return nil
}
