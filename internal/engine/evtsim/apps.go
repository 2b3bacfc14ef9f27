package evtsim

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
)

// echoClient sends a fixed-size payload to its server every interval and
// counts on the server to echo each one back.
type echoClient struct {
	medium  engine.PacketMedium
	flows   *flowTable
	ep      *simEndpoint
	pair    core.TrafficPair
	srcPort uint16
	reqFlow int
	repFlow int
	sent    uint32
}

// clientSend emits one request and reschedules itself. The client goes
// quiet once it passes its stop offset or its packet budget.
func clientSend(evtMgr *evtm.EventManager, cxt any, _ any) any {
	c := cxt.(*echoClient)
	now := evtMgr.CurrentSeconds()
	if now > c.pair.StopOffset || c.sent >= c.pair.MaxPackets {
		return nil
	}
	c.sent++

	c.flows.tx(c.reqFlow, now, flowBytes(c.pair.PacketSize))
	c.medium.Transmit(engine.Frame{
		Src:     c.ep.id,
		Dst:     c.pair.ServerID,
		SrcAddr: c.ep.addr,
		DstAddr: c.pair.ServerAddr,
		SrcPort: c.srcPort,
		DstPort: c.pair.Port,
		FlowID:  c.reqFlow,
		Payload: c.pair.PacketSize,
		SentAt:  now,
	})

	evtMgr.Schedule(c, nil, clientSend, vrtime.SecondsToTime(c.pair.Interval))
	return nil
}

// echoServer turns every request on its port straight around while its
// activation window is open.
type echoServer struct {
	medium engine.PacketMedium
	flows  *flowTable
	port   uint16
	start  float64
	stop   float64
}

func (s *echoServer) handle(now float64, req engine.Frame) {
	if now < s.start || now > s.stop {
		return
	}
	id := s.flows.id(flowKey{
		src:     req.DstAddr,
		dst:     req.SrcAddr,
		srcPort: req.DstPort,
		dstPort: req.SrcPort,
	})
	s.flows.tx(id, now, flowBytes(req.Payload))
	s.medium.Transmit(engine.Frame{
		Src:     req.Dst,
		Dst:     req.Src,
		SrcAddr: req.DstAddr,
		DstAddr: req.SrcAddr,
		SrcPort: req.DstPort,
		DstPort: req.SrcPort,
		FlowID:  id,
		Payload: req.Payload,
		SentAt:  now,
	})
}
