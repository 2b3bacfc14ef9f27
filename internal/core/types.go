// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// Waypoint is one timestamped 2D position of a vehicle's movement trace.
// Immutable once parsed; Time is in non-negative seconds, X/Y in meters.
type Waypoint struct {
	Time float64
	X    float64
	Y    float64
}

// VehicleTrace is the ordered waypoint sequence of one vehicle.
// Waypoints keep file order; an empty sequence is a valid, degenerate trace
// (the vehicle stays at the default position for the whole run).
type VehicleTrace struct {
	VehicleID int
	Waypoints []Waypoint
}

// Empty reports whether the trace holds no valid waypoints.
func (t *VehicleTrace) Empty() bool { return len(t.Waypoints) == 0 }

// Endpoint is one simulated network station. There is exactly one per
// vehicle (ID == VehicleID), with a unique address from the run's block,
// alive for the whole run.
type Endpoint struct {
	ID    int
	Addr  netip.Addr
	Trace *VehicleTrace
}

// TrafficPair describes one client→server application pairing to install on
// the engine. MaxPackets == 0 means unbounded; the run's stop time is then
// the only bound.
type TrafficPair struct {
	ClientID    int
	ServerID    int
	ServerAddr  netip.Addr
	Port        uint16
	PacketSize  uint32
	Interval    float64 // seconds between packets
	MaxPackets  uint32
	StartOffset float64 // seconds after simulation start
	StopOffset  float64
}

// ServerSpec is one passive echo responder installation.
type ServerSpec struct {
	ID          int
	Port        uint16
	StartOffset float64
	StopOffset  float64
}

// FlowCounters are the raw per-flow counters the engine emits after a run.
// Times are virtual seconds; DelaySum accumulates per-packet one-way delay.
type FlowCounters struct {
	FlowID      int
	TxPackets   uint64
	TxBytes     uint64
	RxPackets   uint64
	RxBytes     uint64
	DelaySum    float64
	FirstTxTime float64
	LastRxTime  float64
}

// FlowMetrics are the derived per-flow performance figures.
type FlowMetrics struct {
	FlowID         int
	ThroughputKbps float64
	AvgDelayMs     float64
	PDRPercent     float64
	LostPackets    int64
}

// Report is the aggregate over all flows that received at least one packet.
// NoData is set when no flow qualified; averages are meaningless then and
// stay zero rather than being computed from an empty set.
type Report struct {
	Flows             []FlowMetrics
	FlowCount         int
	AvgThroughputKbps float64
	AvgDelayMs        float64
	TotalLost         int64
	TotalLossPercent  float64
	NoData            bool
}
