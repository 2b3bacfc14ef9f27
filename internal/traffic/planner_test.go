package traffic

import (
	"math"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

func endpoints(n int) []core.Endpoint {
	eps := make([]core.Endpoint, n)
	addr := netip.AddrFrom4([4]byte{10, 1, 0, 0})
	for i := range eps {
		addr = addr.Next()
		eps[i] = core.Endpoint{ID: i, Addr: addr}
	}
	return eps
}

func defaultParams() Params {
	return Params{
		Port:        9,
		PacketSize:  1024,
		Interval:    0.1,
		ServerStart: 1.0,
		ClientStart: 2.0,
		StopTime:    20.0,
	}
}

func TestPlanAdjacentPairs(t *testing.T) {
	pl := NewPlanner(log.Nop())
	plan := pl.Plan(endpoints(5), defaultParams())

	require.Len(t, plan.Pairs, 4)
	require.Len(t, plan.Servers, 4)

	for i, pair := range plan.Pairs {
		assert.Equal(t, i, pair.ClientID)
		assert.Equal(t, i+1, pair.ServerID)
		assert.Equal(t, netip.AddrFrom4([4]byte{10, 1, 0, byte(i + 2)}), pair.ServerAddr)
		assert.Equal(t, uint16(9), pair.Port)
		assert.Equal(t, uint32(1024), pair.PacketSize)
		assert.Equal(t, 0.1, pair.Interval)
		assert.Equal(t, 2.0, pair.StartOffset)
		assert.Equal(t, 20.0, pair.StopOffset)
	}
	for i, srv := range plan.Servers {
		assert.Equal(t, i+1, srv.ID)
		assert.Equal(t, 1.0, srv.StartOffset)
		assert.Equal(t, 20.0, srv.StopOffset)
	}
}

func TestPlanSingleEndpoint(t *testing.T) {
	pl := NewPlanner(log.Nop())
	plan := pl.Plan(endpoints(1), defaultParams())
	assert.Empty(t, plan.Pairs)
	assert.Empty(t, plan.Servers)
}

func TestPlanNoEndpoints(t *testing.T) {
	pl := NewPlanner(log.Nop())
	plan := pl.Plan(nil, defaultParams())
	assert.Empty(t, plan.Pairs)
}

func TestPlanUnlimitedPackets(t *testing.T) {
	pl := NewPlanner(log.Nop())

	p := defaultParams()
	plan := pl.Plan(endpoints(2), p)
	require.Len(t, plan.Pairs, 1)
	assert.Equal(t, uint32(math.MaxUint32), plan.Pairs[0].MaxPackets)

	p.MaxPackets = 500
	plan = pl.Plan(endpoints(2), p)
	require.Len(t, plan.Pairs, 1)
	assert.Equal(t, uint32(500), plan.Pairs[0].MaxPackets)
}
