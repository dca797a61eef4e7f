package cmd

import (
	"fmt"
	"os"

	"github.com/g02flow/aosdb/cmd/node"
	"github.com/g02flow/aosdb/cmd/perf"
	"github.com/g02flow/aosdb/cmd/shell"
	"github.com/g02flow/aosdb/cmd/simulate"
	"github.com/g02flow/aosdb/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "aosdb",
		Short: "record store of the irrigation node",
		Long: fmt.Sprintf(`aosdb (v%s)

Typed tables of fixed-size records (watering durations, voltage samples)
kept in a crash-consistent, namespaced key-value partition on disk.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of aosdb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aosdb v%s\n", Version)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	node.AddCommands(RootCmd)
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(simulate.SimulateCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupStoreFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
