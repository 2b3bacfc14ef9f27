// Package engine defines the simulation engine capabilities the pipeline
// depends on. The pipeline never touches a concrete engine type; topology
// construction, traffic installation and stats collection all go through
// the Engine interface so a scripted double can stand in for unit tests.
package engine

import (
	"net/netip"

	"firestige.xyz/strix/internal/core"
)

// MediumParams parameterizes the one shared broadcast domain every endpoint
// attaches to. Block is the contiguous address range hosts are assigned
// from; it is planned by the topology builder, never by the engine.
type MediumParams struct {
	DataRateMbps float64
	DelayNs      int64
	QueuePackets int
	Block        netip.Prefix
}

// Position is a point in the simulation space. Z carries the fixed antenna
// height; traces are 2D.
type Position struct {
	X, Y, Z float64
}

// PositionProvider yields an endpoint's position at a virtual time.
// Implementations must be total: any t maps to a finite position, whatever
// the waypoint sequence looked like.
type PositionProvider interface {
	PositionAt(t float64) Position
}

// Frame is one application payload in flight between two endpoints.
// Payload is the application bytes only; media account for their own
// header overhead.
type Frame struct {
	Src     int // sending endpoint id
	Dst     int // receiving endpoint id
	SrcAddr netip.Addr
	DstAddr netip.Addr
	SrcPort uint16
	DstPort uint16
	FlowID  int
	Payload uint32
	SentAt  float64 // virtual seconds at the application send
}

// PacketMedium is the shared broadcast domain capability: a transmitted
// frame contends for the one channel and is either delivered to its
// destination or dropped by the sender's bounded egress queue. Applications
// talk to the medium, never to each other.
type PacketMedium interface {
	Transmit(f Frame)
}

// Engine is the simulation collaborator the run orchestrator drives. Calls
// arrive in a fixed order: CreateEndpoints, AttachMobility per endpoint,
// BuildSharedMedium, InstallServer/InstallClient, optionally EnablePcap,
// then Run as a blocking barrier. FlowStats and SerializeReport are only
// valid after Run returns.
type Engine interface {
	CreateEndpoints(n int) error
	AttachMobility(endpointID int, waypoints []core.Waypoint) error
	BuildSharedMedium(params MediumParams) ([]netip.Addr, error)
	InstallServer(spec core.ServerSpec) error
	InstallClient(pair core.TrafficPair) error
	EnablePcap(prefix string, nodes int) error
	Run(stopTime float64) error
	FlowStats() []core.FlowCounters
	SerializeReport(path string) error
}
