package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/topology"
	"firestige.xyz/strix/internal/trace"
	"firestige.xyz/strix/internal/traffic"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview a run without simulating",
	Long: `Load the traces and print what a run would build: the vehicles found,
the planned address block and the traffic pairs. Nothing is simulated and
no report files are written.

Examples:
  strix plan
  strix plan -c highway.yml`,
	RunE: runPlanCommand,
}

func runPlanCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	logger, closeLogs, err := log.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLogs()

	traces, err := trace.NewLoader(cfg.TraceDir, logger).Load()
	if err != nil {
		return err
	}

	block, err := topology.PlanAddressBlock(len(traces))
	if err != nil {
		return err
	}

	// assign addresses the way the topology builder will
	endpoints := make([]core.Endpoint, len(traces))
	next := block.Addr()
	for i := range traces {
		next = next.Next()
		endpoints[i] = core.Endpoint{ID: traces[i].VehicleID, Addr: next, Trace: &traces[i]}
	}

	plan := traffic.NewPlanner(logger).Plan(endpoints, traffic.Params{
		Port:        cfg.Traffic.Port,
		PacketSize:  cfg.PacketSize,
		Interval:    cfg.Interval,
		MaxPackets:  cfg.Traffic.MaxPackets,
		ServerStart: cfg.Traffic.ServerStart,
		ClientStart: cfg.Traffic.ClientStart,
		StopTime:    cfg.SimTime,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Vehicles: %d (traces from %s)\n", len(traces), cfg.TraceDir)
	for _, tr := range traces {
		fmt.Fprintf(out, "  vehicle %d: %d waypoints\n", tr.VehicleID, len(tr.Waypoints))
	}
	fmt.Fprintf(out, "Address block: %s\n", block)
	fmt.Fprintf(out, "Traffic pairs: %d\n", len(plan.Pairs))
	for _, pair := range plan.Pairs {
		fmt.Fprintf(out, "  %d -> %d  %s:%d\n", pair.ClientID, pair.ServerID, pair.ServerAddr, pair.Port)
	}
	fmt.Fprintf(out, "Engine: %s, sim time %gs, packet size %d B, interval %gs\n",
		cfg.Engine.Name, cfg.SimTime, cfg.PacketSize, cfg.Interval)
	return nil
}
