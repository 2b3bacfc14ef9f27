package evtsim

import (
	"encoding/xml"
	"fmt"
	"net/netip"
	"os"

	"firestige.xyz/strix/internal/core"
)

type flowKey struct {
	src     netip.Addr
	dst     netip.Addr
	srcPort uint16
	dstPort uint16
}

type flowRecord struct {
	key      flowKey
	counters core.FlowCounters
}

// flowTable books per-flow tx/rx counters keyed by the UDP five-tuple.
// Flow ids start at 1 and follow first-registration order.
type flowTable struct {
	byKey   map[flowKey]int
	records []*flowRecord
}

func newFlowTable() *flowTable {
	return &flowTable{byKey: make(map[flowKey]int)}
}

// id returns the flow id for key, allocating one on first sight.
func (t *flowTable) id(key flowKey) int {
	if id, ok := t.byKey[key]; ok {
		return id
	}
	id := len(t.records) + 1
	t.byKey[key] = id
	t.records = append(t.records, &flowRecord{
		key:      key,
		counters: core.FlowCounters{FlowID: id},
	})
	return id
}

func (t *flowTable) record(id int) *flowRecord {
	if id < 1 || id > len(t.records) {
		return nil
	}
	return t.records[id-1]
}

func (t *flowTable) tx(id int, now float64, bytes uint32) {
	rec := t.record(id)
	if rec == nil {
		return
	}
	rec.counters.TxPackets++
	rec.counters.TxBytes += uint64(bytes)
	if rec.counters.TxPackets == 1 {
		rec.counters.FirstTxTime = now
	}
}

func (t *flowTable) rx(id int, now float64, bytes uint32, delay float64) {
	rec := t.record(id)
	if rec == nil {
		return
	}
	rec.counters.RxPackets++
	rec.counters.RxBytes += uint64(bytes)
	rec.counters.DelaySum += delay
	rec.counters.LastRxTime = now
}

func (t *flowTable) len() int {
	return len(t.records)
}

// counters snapshots every flow in id order.
func (t *flowTable) counters() []core.FlowCounters {
	out := make([]core.FlowCounters, len(t.records))
	for i, rec := range t.records {
		out[i] = rec.counters
	}
	return out
}

// ─── XML serialization ─────────────────────────────────────────────

const udpProtocolNumber = 17

type xmlFlowStats struct {
	FlowID            int    `xml:"flowId,attr"`
	TimeFirstTxPacket string `xml:"timeFirstTxPacket,attr"`
	TimeLastRxPacket  string `xml:"timeLastRxPacket,attr"`
	DelaySum          string `xml:"delaySum,attr"`
	TxBytes           uint64 `xml:"txBytes,attr"`
	RxBytes           uint64 `xml:"rxBytes,attr"`
	TxPackets         uint64 `xml:"txPackets,attr"`
	RxPackets         uint64 `xml:"rxPackets,attr"`
	LostPackets       int64  `xml:"lostPackets,attr"`
}

type xmlClassifierFlow struct {
	FlowID             int    `xml:"flowId,attr"`
	SourceAddress      string `xml:"sourceAddress,attr"`
	DestinationAddress string `xml:"destinationAddress,attr"`
	SourcePort         uint16 `xml:"sourcePort,attr"`
	DestinationPort    uint16 `xml:"destinationPort,attr"`
	Protocol           int    `xml:"protocol,attr"`
}

type xmlFlowMonitor struct {
	XMLName    xml.Name            `xml:"FlowMonitor"`
	Stats      []xmlFlowStats      `xml:"FlowStats>Flow"`
	Classifier []xmlClassifierFlow `xml:"Ipv4FlowClassifier>Flow"`
}

func nsAttr(seconds float64) string {
	return fmt.Sprintf("+%.1fns", seconds*1e9)
}

// serializeXML writes the counters in the flow monitor layout downstream
// tooling already parses.
func (t *flowTable) serializeXML(path string) error {
	doc := xmlFlowMonitor{
		Stats:      make([]xmlFlowStats, 0, len(t.records)),
		Classifier: make([]xmlClassifierFlow, 0, len(t.records)),
	}
	for _, rec := range t.records {
		c := rec.counters
		doc.Stats = append(doc.Stats, xmlFlowStats{
			FlowID:            c.FlowID,
			TimeFirstTxPacket: nsAttr(c.FirstTxTime),
			TimeLastRxPacket:  nsAttr(c.LastRxTime),
			DelaySum:          nsAttr(c.DelaySum),
			TxBytes:           c.TxBytes,
			RxBytes:           c.RxBytes,
			TxPackets:         c.TxPackets,
			RxPackets:         c.RxPackets,
			LostPackets:       int64(c.TxPackets) - int64(c.RxPackets),
		})
		doc.Classifier = append(doc.Classifier, xmlClassifierFlow{
			FlowID:             c.FlowID,
			SourceAddress:      rec.key.src.String(),
			DestinationAddress: rec.key.dst.String(),
			SourcePort:         rec.key.srcPort,
			DestinationPort:    rec.key.dstPort,
			Protocol:           udpProtocolNumber,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal flow monitor report: %w", err)
	}
	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write flow monitor report: %w", err)
	}
	return nil
}
