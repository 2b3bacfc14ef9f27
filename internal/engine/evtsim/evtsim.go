// Package evtsim is the default simulation engine: a compact discrete-event
// model of vehicles on one shared CSMA medium running UDP echo traffic.
// Virtual time and scheduling come from the evtm event manager; contention
// jitter is drawn from named rngstream generators, so a run is fully
// reproducible from its configuration.
package evtsim

import (
	"fmt"
	"net/netip"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
	"firestige.xyz/strix/internal/log"
)

// Name is the registry key of this engine.
const Name = "evtsim"

// Header sizes used to derive wire and IP-level packet lengths from the
// application payload.
const (
	ethHeaderBytes  = 14
	ipv4HeaderBytes = 20
	udpHeaderBytes  = 8
)

// clientPortBase is the first source port handed to echo clients.
const clientPortBase uint16 = 49152

// Options are the engine knobs decoded from the run configuration.
type Options struct {
	AntennaHeight float64 `mapstructure:"antenna_height"`
	Seed          string  `mapstructure:"seed"`
}

func defaultOptions() Options {
	return Options{AntennaHeight: 1.5, Seed: "strix"}
}

func init() {
	engine.Register(Name, func(raw map[string]interface{}, logger log.Logger) (engine.Engine, error) {
		opts := defaultOptions()
		if err := mapstructure.Decode(raw, &opts); err != nil {
			return nil, fmt.Errorf("evtsim: decode options: %w", err)
		}
		if opts.AntennaHeight < 0 {
			return nil, fmt.Errorf("evtsim: antenna height must not be negative, got %v", opts.AntennaHeight)
		}
		if opts.Seed == "" {
			return nil, fmt.Errorf("evtsim: seed must not be empty")
		}
		return newEngine(opts, logger), nil
	})
}

// simEndpoint is one vehicle on the medium: an address, a mobility path,
// a bounded egress queue and optionally an echo responder.
type simEndpoint struct {
	eng  *simEngine
	id   int
	addr netip.Addr
	path engine.PositionProvider
	rng  *rngstream.RngStream

	queue     []engine.Frame
	txPending bool
	drops     uint64

	server *echoServer
}

type simEngine struct {
	opts   Options
	logger log.Logger

	evtMgr    *evtm.EventManager
	endpoints []*simEndpoint
	medium    *csmaMedium
	flows     *flowTable
	clients   []*echoClient
	pcap      *pcapManager

	stopTime float64
	ran      bool
}

var _ engine.Engine = (*simEngine)(nil)

func newEngine(opts Options, logger log.Logger) *simEngine {
	return &simEngine{
		opts:   opts,
		logger: logger,
		evtMgr: evtm.New(),
		flows:  newFlowTable(),
	}
}

func (e *simEngine) CreateEndpoints(n int) error {
	if e.endpoints != nil {
		return fmt.Errorf("evtsim: endpoints already created")
	}
	if n < 1 {
		return fmt.Errorf("evtsim: need at least one endpoint, got %d", n)
	}
	e.endpoints = make([]*simEndpoint, n)
	for i := range e.endpoints {
		e.endpoints[i] = &simEndpoint{
			eng:  e,
			id:   i,
			path: newWaypointPath(nil, e.opts.AntennaHeight),
			rng:  rngstream.New(fmt.Sprintf("%s-ep%d", e.opts.Seed, i)),
		}
	}
	e.logger.WithField("endpoints", n).Debug("endpoints created")
	return nil
}

func (e *simEngine) AttachMobility(endpointID int, waypoints []core.Waypoint) error {
	ep, err := e.endpoint(endpointID)
	if err != nil {
		return err
	}
	ep.path = newWaypointPath(waypoints, e.opts.AntennaHeight)
	return nil
}

func (e *simEngine) BuildSharedMedium(params engine.MediumParams) ([]netip.Addr, error) {
	if e.endpoints == nil {
		return nil, fmt.Errorf("evtsim: create endpoints before building the medium")
	}
	if e.medium != nil {
		return nil, fmt.Errorf("evtsim: medium already built")
	}
	m, err := newCSMAMedium(e, params)
	if err != nil {
		return nil, err
	}

	block := params.Block
	hosts := 1<<(32-block.Bits()) - 2
	if len(e.endpoints) > hosts {
		return nil, fmt.Errorf("%w: %d endpoints do not fit %s", core.ErrAddressCapacity, len(e.endpoints), block)
	}

	addrs := make([]netip.Addr, len(e.endpoints))
	next := block.Addr()
	for i, ep := range e.endpoints {
		next = next.Next()
		ep.addr = next
		addrs[i] = next
	}
	e.medium = m
	return addrs, nil
}

func (e *simEngine) InstallServer(spec core.ServerSpec) error {
	if e.medium == nil {
		return fmt.Errorf("evtsim: build the medium before installing applications")
	}
	ep, err := e.endpoint(spec.ID)
	if err != nil {
		return err
	}
	if ep.server != nil {
		return fmt.Errorf("evtsim: endpoint %d already runs a server", spec.ID)
	}
	if spec.Port == 0 {
		return fmt.Errorf("evtsim: server port must not be zero")
	}
	ep.server = &echoServer{
		medium: e.medium,
		flows:  e.flows,
		port:   spec.Port,
		start:  spec.StartOffset,
		stop:   spec.StopOffset,
	}
	return nil
}

func (e *simEngine) InstallClient(pair core.TrafficPair) error {
	if e.medium == nil {
		return fmt.Errorf("evtsim: build the medium before installing applications")
	}
	ep, err := e.endpoint(pair.ClientID)
	if err != nil {
		return err
	}
	if _, err := e.endpoint(pair.ServerID); err != nil {
		return err
	}
	if pair.Interval <= 0 {
		return fmt.Errorf("evtsim: client interval must be positive, got %v", pair.Interval)
	}
	if pair.PacketSize == 0 {
		return fmt.Errorf("evtsim: client packet size must not be zero")
	}

	srcPort := clientPortBase + uint16(len(e.clients))
	c := &echoClient{
		medium:  e.medium,
		flows:   e.flows,
		ep:      ep,
		pair:    pair,
		srcPort: srcPort,
	}
	// Both directions get their flow ids now, so ids follow the install
	// order instead of the first packet race.
	c.reqFlow = e.flows.id(flowKey{src: ep.addr, dst: pair.ServerAddr, srcPort: srcPort, dstPort: pair.Port})
	c.repFlow = e.flows.id(flowKey{src: pair.ServerAddr, dst: ep.addr, srcPort: pair.Port, dstPort: srcPort})
	e.clients = append(e.clients, c)

	e.evtMgr.Schedule(c, nil, clientSend, vrtime.SecondsToTime(pair.StartOffset))
	return nil
}

func (e *simEngine) EnablePcap(prefix string, nodes int) error {
	if e.endpoints == nil {
		return fmt.Errorf("evtsim: create endpoints before enabling capture")
	}
	if e.pcap != nil {
		return fmt.Errorf("evtsim: capture already enabled")
	}
	if prefix == "" {
		return fmt.Errorf("evtsim: capture prefix must not be empty")
	}
	if nodes <= 0 {
		return nil
	}
	if nodes > len(e.endpoints) {
		nodes = len(e.endpoints)
	}
	pm, err := newPcapManager(prefix, nodes, e.logger)
	if err != nil {
		return err
	}
	e.pcap = pm
	e.logger.WithFields(map[string]interface{}{
		"prefix": prefix,
		"nodes":  nodes,
	}).Info("packet capture enabled")
	return nil
}

// Run drives the event loop until stopTime and closes the capture files.
// It is the blocking barrier of a run; everything after it sees final
// counters.
func (e *simEngine) Run(stopTime float64) error {
	if e.medium == nil {
		return fmt.Errorf("evtsim: build the medium before running")
	}
	if e.ran {
		return fmt.Errorf("evtsim: run already completed")
	}
	if stopTime <= 0 {
		return fmt.Errorf("evtsim: stop time must be positive, got %v", stopTime)
	}

	e.stopTime = stopTime
	e.evtMgr.Schedule(e, nil, samplePositions, vrtime.SecondsToTime(0))
	e.evtMgr.Run(stopTime)
	e.ran = true

	if e.pcap != nil {
		if err := e.pcap.Close(); err != nil {
			e.logger.WithError(err).Warn("closing capture files")
		}
	}

	var drops uint64
	for _, ep := range e.endpoints {
		drops += ep.drops
	}
	e.logger.WithFields(map[string]interface{}{
		"virtual_seconds": stopTime,
		"flows":           e.flows.len(),
		"queue_drops":     drops,
	}).Info("simulation finished")
	return nil
}

func (e *simEngine) FlowStats() []core.FlowCounters {
	return e.flows.counters()
}

func (e *simEngine) SerializeReport(path string) error {
	return e.flows.serializeXML(path)
}

func (e *simEngine) endpoint(id int) (*simEndpoint, error) {
	if id < 0 || id >= len(e.endpoints) {
		return nil, fmt.Errorf("evtsim: no endpoint %d (have %d)", id, len(e.endpoints))
	}
	return e.endpoints[id], nil
}

// samplePositions walks every mobility path once a second. The samples only
// feed debug logging, but they keep position queries on the hot path of
// every run instead of only inside tests.
func samplePositions(evtMgr *evtm.EventManager, cxt any, _ any) any {
	e := cxt.(*simEngine)
	now := evtMgr.CurrentSeconds()
	for _, ep := range e.endpoints {
		pos := ep.path.PositionAt(now)
		e.logger.WithFields(map[string]interface{}{
			"t":        now,
			"endpoint": ep.id,
			"x":        pos.X,
			"y":        pos.Y,
		}).Debug("position sample")
	}
	if now+1.0 <= e.stopTime {
		evtMgr.Schedule(e, nil, samplePositions, vrtime.SecondsToTime(1.0))
	}
	return nil
}
