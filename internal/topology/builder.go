// Package topology turns loaded traces into addressed endpoints attached
// to one shared medium. Vehicle id, endpoint id, engine node index and
// address index all agree: traces[i] drives endpoint i, which holds the
// i-th address of the planned block.
package topology

import (
	"fmt"
	"net/netip"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
	"firestige.xyz/strix/internal/log"
)

var addressBase = netip.AddrFrom4([4]byte{10, 1, 0, 0})

// PlanAddressBlock picks the narrowest conventional block around the
// 10.1.0.0 base that holds n hosts, widening through /24, /16 and /8.
// Network and broadcast addresses are never handed to hosts, so a /24
// tops out at 254.
func PlanAddressBlock(n int) (netip.Prefix, error) {
	if n < 1 {
		return netip.Prefix{}, fmt.Errorf("plan address block: need at least one host, got %d", n)
	}
	for _, bits := range []int{24, 16, 8} {
		hosts := 1<<(32-bits) - 2
		if n <= hosts {
			return netip.PrefixFrom(addressBase, bits).Masked(), nil
		}
	}
	return netip.Prefix{}, fmt.Errorf("%w: %d hosts do not fit a /8", core.ErrAddressCapacity, n)
}

// Builder drives the engine through endpoint creation, mobility attachment
// and medium construction.
type Builder struct {
	eng    engine.Engine
	logger log.Logger
}

func NewBuilder(eng engine.Engine, logger log.Logger) *Builder {
	return &Builder{eng: eng, logger: logger}
}

// Build places every trace on the shared medium and returns the addressed
// endpoints in vehicle id order. An empty trace still gets an endpoint;
// the vehicle just never moves.
func (b *Builder) Build(traces []core.VehicleTrace, medium engine.MediumParams) ([]core.Endpoint, error) {
	if len(traces) == 0 {
		return nil, fmt.Errorf("build topology: no traces to place")
	}

	n := len(traces)
	if err := b.eng.CreateEndpoints(n); err != nil {
		return nil, fmt.Errorf("create endpoints: %w", err)
	}
	for i := range traces {
		if err := b.eng.AttachMobility(traces[i].VehicleID, traces[i].Waypoints); err != nil {
			return nil, fmt.Errorf("attach mobility to endpoint %d: %w", traces[i].VehicleID, err)
		}
	}

	block, err := PlanAddressBlock(n)
	if err != nil {
		return nil, err
	}
	medium.Block = block

	addrs, err := b.eng.BuildSharedMedium(medium)
	if err != nil {
		return nil, fmt.Errorf("build shared medium: %w", err)
	}
	if len(addrs) != n {
		return nil, fmt.Errorf("build shared medium: engine assigned %d addresses for %d endpoints", len(addrs), n)
	}

	endpoints := make([]core.Endpoint, n)
	for i := range traces {
		endpoints[i] = core.Endpoint{ID: traces[i].VehicleID, Addr: addrs[i], Trace: &traces[i]}
	}
	b.logger.WithFields(map[string]interface{}{
		"endpoints": n,
		"block":     block.String(),
	}).Info("topology built")
	return endpoints, nil
}
