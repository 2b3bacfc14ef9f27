// Package traffic derives the echo application plan from addressed
// endpoints. Endpoints pair up along the id order: each vehicle talks to
// its successor, so n endpoints yield n-1 client/server conversations.
package traffic

import (
	"math"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Params are the knobs shared by every planned application.
type Params struct {
	Port        uint16
	PacketSize  uint32
	Interval    float64
	MaxPackets  uint32 // 0 means unlimited
	ServerStart float64
	ClientStart float64
	StopTime    float64
}

// Plan is the full application schedule for one run.
type Plan struct {
	Servers []core.ServerSpec
	Pairs   []core.TrafficPair
}

// Planner builds traffic plans.
type Planner struct {
	logger log.Logger
}

func NewPlanner(logger log.Logger) *Planner {
	return &Planner{logger: logger}
}

// Plan pairs each endpoint with its successor. Fewer than two endpoints is
// not an error; the run proceeds and the report comes back empty.
func (pl *Planner) Plan(endpoints []core.Endpoint, p Params) Plan {
	if len(endpoints) < 2 {
		pl.logger.WithField("endpoints", len(endpoints)).
			Warn("need at least two endpoints for traffic, plan is empty")
		return Plan{}
	}

	maxPackets := p.MaxPackets
	if maxPackets == 0 {
		maxPackets = math.MaxUint32
	}

	plan := Plan{
		Servers: make([]core.ServerSpec, 0, len(endpoints)-1),
		Pairs:   make([]core.TrafficPair, 0, len(endpoints)-1),
	}
	for i := 0; i+1 < len(endpoints); i++ {
		client, server := endpoints[i], endpoints[i+1]
		plan.Servers = append(plan.Servers, core.ServerSpec{
			ID:          server.ID,
			Port:        p.Port,
			StartOffset: p.ServerStart,
			StopOffset:  p.StopTime,
		})
		plan.Pairs = append(plan.Pairs, core.TrafficPair{
			ClientID:    client.ID,
			ServerID:    server.ID,
			ServerAddr:  server.Addr,
			Port:        p.Port,
			PacketSize:  p.PacketSize,
			Interval:    p.Interval,
			MaxPackets:  maxPackets,
			StartOffset: p.ClientStart,
			StopOffset:  p.StopTime,
		})
	}
	pl.logger.WithField("pairs", len(plan.Pairs)).Info("traffic plan ready")
	return plan
}
