// Package enginetest provides a scripted engine double for pipeline tests.
// It records every call in order, hands back canned addresses and flow
// counters, and can be told to fail a specific method.
package enginetest

import (
	"fmt"
	"net/netip"
	"os"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
)

// Engine is a recording engine.Engine. The zero value is usable; scripted
// outputs are set directly on the struct before the test drives it.
type Engine struct {
	// scripted outputs
	Addrs []netip.Addr        // BuildSharedMedium result; derived from Block when nil
	Stats []core.FlowCounters // FlowStats result

	// recorded inputs
	CreatedN   int
	Mobility   map[int][]core.Waypoint
	Medium     engine.MediumParams
	Servers    []core.ServerSpec
	Clients    []core.TrafficPair
	PcapPrefix string
	PcapNodes  int
	RanUntil   float64
	Serialized []string

	calls    []string
	failures map[string]error
}

var _ engine.Engine = (*Engine)(nil)

// FailOn makes the named method return err when it is next called.
func (e *Engine) FailOn(method string, err error) {
	if e.failures == nil {
		e.failures = make(map[string]error)
	}
	e.failures[method] = err
}

// Calls returns the method names invoked so far, in order.
func (e *Engine) Calls() []string {
	return append([]string(nil), e.calls...)
}

func (e *Engine) record(method string) error {
	e.calls = append(e.calls, method)
	return e.failures[method]
}

func (e *Engine) CreateEndpoints(n int) error {
	if err := e.record("CreateEndpoints"); err != nil {
		return err
	}
	e.CreatedN = n
	return nil
}

func (e *Engine) AttachMobility(endpointID int, waypoints []core.Waypoint) error {
	if err := e.record("AttachMobility"); err != nil {
		return err
	}
	if e.Mobility == nil {
		e.Mobility = make(map[int][]core.Waypoint)
	}
	e.Mobility[endpointID] = waypoints
	return nil
}

func (e *Engine) BuildSharedMedium(params engine.MediumParams) ([]netip.Addr, error) {
	if err := e.record("BuildSharedMedium"); err != nil {
		return nil, err
	}
	e.Medium = params
	if e.Addrs != nil {
		return e.Addrs, nil
	}
	addrs := make([]netip.Addr, e.CreatedN)
	next := params.Block.Addr()
	for i := range addrs {
		next = next.Next()
		addrs[i] = next
	}
	return addrs, nil
}

func (e *Engine) InstallServer(spec core.ServerSpec) error {
	if err := e.record("InstallServer"); err != nil {
		return err
	}
	e.Servers = append(e.Servers, spec)
	return nil
}

func (e *Engine) InstallClient(pair core.TrafficPair) error {
	if err := e.record("InstallClient"); err != nil {
		return err
	}
	e.Clients = append(e.Clients, pair)
	return nil
}

func (e *Engine) EnablePcap(prefix string, nodes int) error {
	if err := e.record("EnablePcap"); err != nil {
		return err
	}
	e.PcapPrefix = prefix
	e.PcapNodes = nodes
	return nil
}

func (e *Engine) Run(stopTime float64) error {
	if err := e.record("Run"); err != nil {
		return err
	}
	e.RanUntil = stopTime
	return nil
}

func (e *Engine) FlowStats() []core.FlowCounters {
	e.calls = append(e.calls, "FlowStats")
	return e.Stats
}

func (e *Engine) SerializeReport(path string) error {
	if err := e.record("SerializeReport"); err != nil {
		return err
	}
	e.Serialized = append(e.Serialized, path)
	stub := fmt.Sprintf("<?xml version=\"1.0\"?>\n<FlowMonitor flows=\"%d\"/>\n", len(e.Stats))
	return os.WriteFile(path, []byte(stub), 0o644)
}
