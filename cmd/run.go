package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/sim"

	_ "firestige.xyz/strix/internal/engine/evtsim" // registers the default engine
)

var (
	runSimTime    float64
	runPacketSize uint32
	runInterval   float64
	runTraceDir   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and write its reports",
	Long: `Run one simulation from the configuration, honouring flag overrides.

Examples:
  strix run                                 # strix.yml in the working directory
  strix run -c highway.yml                  # explicit config file
  strix run --sim-time 60 --interval 0.05   # longer run, denser traffic
  strix run --trace-dir ./sumo-out --packet-size 512`,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().Float64Var(&runSimTime, "sim-time", 0,
		"simulation stop time in seconds (overrides config)")
	runCmd.Flags().Uint32Var(&runPacketSize, "packet-size", 0,
		"UDP payload size in bytes (overrides config)")
	runCmd.Flags().Float64Var(&runInterval, "interval", 0,
		"seconds between client packets (overrides config)")
	runCmd.Flags().StringVar(&runTraceDir, "trace-dir", "",
		"directory of vehicle trace files (overrides config)")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(func(c *config.Config) {
		if cmd.Flags().Changed("sim-time") {
			c.SimTime = runSimTime
		}
		if cmd.Flags().Changed("packet-size") {
			c.PacketSize = runPacketSize
		}
		if cmd.Flags().Changed("interval") {
			c.Interval = runInterval
		}
		if cmd.Flags().Changed("trace-dir") {
			c.TraceDir = runTraceDir
		}
	})
	if err != nil {
		return err
	}

	logger, closeLogs, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := sim.NewRunner(*cfg, logger, os.Stdout).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("run failed")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"vehicles": result.Vehicles,
		"flows":    result.Report.FlowCount,
	}).Info("run complete")
	return nil
}
