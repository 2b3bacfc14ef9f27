// Package stats turns raw per-flow counters into the delivery metrics the
// reports are built from. Flows that never delivered a packet are dropped
// here, and every division is guarded so a degenerate flow cannot leak a
// NaN or Inf into the output.
package stats

import (
	"sort"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Aggregator reduces flow counters to a report.
type Aggregator struct {
	logger log.Logger
}

func NewAggregator(logger log.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate computes per-flow and global metrics. Flows with zero received
// packets are excluded from both; with nothing left the report carries the
// NoData marker instead of zeroed averages.
func (a *Aggregator) Aggregate(counters []core.FlowCounters) core.Report {
	flows := make([]core.FlowMetrics, 0, len(counters))
	var totalTx, totalRx uint64
	var sumThroughput, sumDelay float64

	sorted := append([]core.FlowCounters(nil), counters...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FlowID < sorted[j].FlowID })

	for _, c := range sorted {
		if c.RxPackets == 0 {
			a.logger.WithField("flow", c.FlowID).Debug("flow delivered nothing, excluded from report")
			continue
		}

		m := core.FlowMetrics{FlowID: c.FlowID}

		duration := c.LastRxTime - c.FirstTxTime
		if duration > 0 {
			m.ThroughputKbps = float64(c.RxBytes) * 8 / duration / 1024
		} else {
			a.logger.WithField("flow", c.FlowID).Warn("flow has no positive duration, throughput reported as zero")
		}

		m.AvgDelayMs = c.DelaySum / float64(c.RxPackets) * 1000

		if c.TxPackets > 0 {
			m.PDRPercent = float64(c.RxPackets) * 100 / float64(c.TxPackets)
		} else {
			a.logger.WithField("flow", c.FlowID).Warn("flow received packets it never sent, delivery ratio reported as zero")
		}

		m.LostPackets = int64(c.TxPackets) - int64(c.RxPackets)

		flows = append(flows, m)
		totalTx += c.TxPackets
		totalRx += c.RxPackets
		sumThroughput += m.ThroughputKbps
		sumDelay += m.AvgDelayMs
	}

	if len(flows) == 0 {
		a.logger.Warn("no flow delivered any packet, nothing to report")
		return core.Report{NoData: true}
	}

	report := core.Report{
		Flows:             flows,
		FlowCount:         len(flows),
		AvgThroughputKbps: sumThroughput / float64(len(flows)),
		AvgDelayMs:        sumDelay / float64(len(flows)),
		TotalLost:         int64(totalTx) - int64(totalRx),
	}
	if totalTx > 0 {
		report.TotalLossPercent = float64(report.TotalLost) * 100 / float64(totalTx)
	}
	return report
}
