package evtsim

import (
	"fmt"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"

	"firestige.xyz/strix/internal/engine"
)

// csmaSlotBits sizes the contention window: a deferring sender retries
// within one classic 512 bit-time slot after the channel frees up.
const csmaSlotBits = 512

// csmaMedium is one shared bus. Every endpoint hears every transmission,
// only one frame occupies the channel at a time, and each endpoint owns a
// bounded drop-tail egress queue.
type csmaMedium struct {
	eng       *simEngine
	bps       float64
	propDelay float64
	slot      float64
	queueCap  int
	busyUntil float64
}

var _ engine.PacketMedium = (*csmaMedium)(nil)

func newCSMAMedium(eng *simEngine, params engine.MediumParams) (*csmaMedium, error) {
	if params.DataRateMbps <= 0 {
		return nil, fmt.Errorf("evtsim: data rate must be positive, got %v", params.DataRateMbps)
	}
	if params.DelayNs < 0 {
		return nil, fmt.Errorf("evtsim: propagation delay must not be negative, got %v", params.DelayNs)
	}
	if params.QueuePackets < 1 {
		return nil, fmt.Errorf("evtsim: queue must hold at least one packet, got %d", params.QueuePackets)
	}
	if !params.Block.IsValid() || !params.Block.Addr().Is4() {
		return nil, fmt.Errorf("evtsim: address block %s is not a valid IPv4 prefix", params.Block)
	}
	bps := params.DataRateMbps * 1e6
	return &csmaMedium{
		eng:       eng,
		bps:       bps,
		propDelay: float64(params.DelayNs) * 1e-9,
		slot:      csmaSlotBits / bps,
		queueCap:  params.QueuePackets,
	}, nil
}

func wireBytes(payload uint32) uint32 {
	return payload + ethHeaderBytes + ipv4HeaderBytes + udpHeaderBytes
}

func flowBytes(payload uint32) uint32 {
	return payload + ipv4HeaderBytes + udpHeaderBytes
}

// Transmit queues the frame at its source endpoint. A full queue drops the
// frame on the spot; the flow monitor already counted it as sent, so the
// loss shows up as tx without rx.
func (m *csmaMedium) Transmit(f engine.Frame) {
	ep := m.eng.endpoints[f.Src]
	if len(ep.queue) >= m.queueCap {
		ep.drops++
		return
	}
	ep.queue = append(ep.queue, f)
	if !ep.txPending {
		ep.txPending = true
		m.eng.evtMgr.Schedule(ep, nil, tryTransmit, vrtime.SecondsToTime(0))
	}
}

// tryTransmit pops the head of an endpoint's queue onto the channel. A busy
// channel defers the attempt to just after the channel frees, plus a random
// slice of one slot so two waiting senders do not collide forever.
func tryTransmit(evtMgr *evtm.EventManager, cxt any, _ any) any {
	ep := cxt.(*simEndpoint)
	if len(ep.queue) == 0 {
		ep.txPending = false
		return nil
	}
	m := ep.eng.medium
	now := evtMgr.CurrentSeconds()

	if m.busyUntil > now {
		backoff := m.busyUntil - now + ep.rng.RandU01()*m.slot
		evtMgr.Schedule(ep, nil, tryTransmit, vrtime.SecondsToTime(backoff))
		return nil
	}

	f := ep.queue[0]
	ep.queue = ep.queue[1:]

	occupied := float64(wireBytes(f.Payload))*8/m.bps + m.propDelay
	m.busyUntil = now + occupied

	ep.eng.recordCapture(ep.id, now, f)
	evtMgr.Schedule(ep.eng.endpoints[f.Dst], f, deliverFrame, vrtime.SecondsToTime(occupied))
	evtMgr.Schedule(ep, nil, tryTransmit, vrtime.SecondsToTime(occupied))
	return nil
}

// deliverFrame lands a frame at its destination: the flow monitor books the
// reception, capture sees the frame, and an active echo responder turns a
// request straight around.
func deliverFrame(evtMgr *evtm.EventManager, cxt any, data any) any {
	ep := cxt.(*simEndpoint)
	f := data.(engine.Frame)
	now := evtMgr.CurrentSeconds()

	ep.eng.flows.rx(f.FlowID, now, flowBytes(f.Payload), now-f.SentAt)
	ep.eng.recordCapture(ep.id, now, f)

	if srv := ep.server; srv != nil && f.DstPort == srv.port {
		srv.handle(now, f)
	}
	return nil
}
