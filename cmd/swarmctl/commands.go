package main

import (
	"time"

	"github.com/danmuck/swarmctl/internal/logging"
	"github.com/danmuck/swarmctl/internal/observability"
	"github.com/spf13/cobra"
)

var (
	configPath string

	simRobots   int
	simDistance float64
	simTimeout  time.Duration

	relayAddr string

	rootCmd = &cobra.Command{
		Use:           "swarmctl",
		Short:         "Run swarm robots that share state over a broadcast transport",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
			observability.InitLogger("swarmctl")
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one robot from a TOML config until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runRobot,
	}

	simCmd = &cobra.Command{
		Use:   "sim",
		Short: "Run N robots on an in-process hub through one barrier round",
		Args:  cobra.NoArgs,
		RunE:  runSim,
	}

	relayCmd = &cobra.Command{
		Use:   "relay",
		Short: "Serve the websocket broadcast relay",
		Args:  cobra.NoArgs,
		RunE:  runRelay,
	}
)

func init() {
	runCmd.Flags().StringVarP(&configPath, "config", "c", "swarmctl.toml", "robot config path")

	simCmd.Flags().IntVarP(&simRobots, "robots", "n", 3, "number of simulated robots")
	simCmd.Flags().Float64Var(&simDistance, "distance", 10, "neighbor distance")
	simCmd.Flags().DurationVar(&simTimeout, "timeout", 10*time.Second, "give up after this long")

	relayCmd.Flags().StringVar(&relayAddr, "addr", "127.0.0.1:7500", "relay listen address")

	rootCmd.AddCommand(runCmd, simCmd, relayCmd)
}
