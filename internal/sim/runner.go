// Package sim wires the whole pipeline together: traces in, engine run in
// the middle, reports out. Everything before the engine barrier is
// fail-fast; everything after it only degrades the outputs it touches.
package sim

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/report"
	"firestige.xyz/strix/internal/stats"
	"firestige.xyz/strix/internal/topology"
	"firestige.xyz/strix/internal/trace"
	"firestige.xyz/strix/internal/traffic"
)

// Runner executes one simulation run from a validated configuration.
type Runner struct {
	cfg    config.Config
	logger log.Logger
	out    io.Writer
}

// Result is what a completed run produced.
type Result struct {
	RunID    string
	Vehicles int
	Pairs    int
	Report   core.Report
}

func NewRunner(cfg config.Config, logger log.Logger, out io.Writer) *Runner {
	return &Runner{cfg: cfg, logger: logger, out: out}
}

// Run loads traces, drives the engine to completion and writes every
// configured artifact. The engine run is the blocking barrier; flow
// statistics are only read after it returns.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	logger := r.logger.WithField("run_id", runID)
	started := time.Now()

	traces, err := trace.NewLoader(r.cfg.TraceDir, logger).Load()
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(r.cfg.Engine.Name, r.cfg.Engine.Options, logger)
	if err != nil {
		return nil, err
	}

	endpoints, err := topology.NewBuilder(eng, logger).Build(traces, engine.MediumParams{
		DataRateMbps: r.cfg.Medium.DataRateMbps,
		DelayNs:      r.cfg.Medium.DelayNs,
		QueuePackets: r.cfg.Medium.QueuePackets,
	})
	if err != nil {
		return nil, err
	}

	plan := traffic.NewPlanner(logger).Plan(endpoints, traffic.Params{
		Port:        r.cfg.Traffic.Port,
		PacketSize:  r.cfg.PacketSize,
		Interval:    r.cfg.Interval,
		MaxPackets:  r.cfg.Traffic.MaxPackets,
		ServerStart: r.cfg.Traffic.ServerStart,
		ClientStart: r.cfg.Traffic.ClientStart,
		StopTime:    r.cfg.SimTime,
	})
	for _, srv := range plan.Servers {
		if err := eng.InstallServer(srv); err != nil {
			return nil, fmt.Errorf("install server on endpoint %d: %w", srv.ID, err)
		}
	}
	for _, pair := range plan.Pairs {
		if err := eng.InstallClient(pair); err != nil {
			return nil, fmt.Errorf("install client on endpoint %d: %w", pair.ClientID, err)
		}
	}
	if r.cfg.Output.Pcap.Enabled {
		if err := eng.EnablePcap(r.cfg.Output.Pcap.Prefix, r.cfg.Output.Pcap.Nodes); err != nil {
			return nil, fmt.Errorf("enable capture: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"vehicles": len(traces),
		"pairs":    len(plan.Pairs),
		"sim_time": r.cfg.SimTime,
		"engine":   r.cfg.Engine.Name,
	}).Info("simulation starting")

	if err := eng.Run(r.cfg.SimTime); err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}
	logger.WithField("elapsed", time.Since(started).String()).Info("simulation finished")

	rep := stats.NewAggregator(logger).Aggregate(eng.FlowStats())

	if err := eng.SerializeReport(r.cfg.Output.FlowmonXML); err != nil {
		return nil, fmt.Errorf("serialize engine report: %w", err)
	}
	if err := report.WriteCSV(r.cfg.Output.StatsCSV, rep); err != nil {
		return nil, err
	}
	report.WriteConsole(r.out, rep)

	manifest := report.Manifest{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Engine:     r.cfg.Engine.Name,
		TraceDir:   r.cfg.TraceDir,
		SimTime:    r.cfg.SimTime,
		Vehicles:   len(traces),
		Pairs:      len(plan.Pairs),
		Flows:      rep.FlowCount,
		NoData:     rep.NoData,
		Outputs: report.ManifestOutputs{
			StatsCSV:   r.cfg.Output.StatsCSV,
			FlowmonXML: r.cfg.Output.FlowmonXML,
		},
	}
	if r.cfg.Output.Pcap.Enabled {
		manifest.Outputs.PcapPrefix = r.cfg.Output.Pcap.Prefix
	}
	if err := report.WriteManifest(r.cfg.Output.Manifest, manifest); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"flows":   rep.FlowCount,
		"no_data": rep.NoData,
	}).Info("run artifacts written")

	return &Result{
		RunID:    runID,
		Vehicles: len(traces),
		Pairs:    len(plan.Pairs),
		Report:   rep,
	}, nil
}
