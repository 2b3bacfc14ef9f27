package evtsim

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/strix/internal/engine"
	"firestige.xyz/strix/internal/log"
)

const pcapSnapLen = 65536

// Capture timestamps are virtual seconds offset from the unix epoch.
var captureEpoch = time.Unix(0, 0).UTC()

// pcapManager writes one capture file per traced endpoint. Every frame an
// endpoint puts on the wire or receives from it lands in that endpoint's
// file as a synthesized Ethernet/IPv4/UDP packet.
type pcapManager struct {
	logger  log.Logger
	writers map[int]*pcapgo.Writer
	files   []*os.File
}

func newPcapManager(prefix string, nodes int, logger log.Logger) (*pcapManager, error) {
	m := &pcapManager{
		logger:  logger,
		writers: make(map[int]*pcapgo.Writer, nodes),
	}
	for id := 0; id < nodes; id++ {
		path := fmt.Sprintf("%s-%d-0.pcap", prefix, id)
		f, err := os.Create(path)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("create capture file %s: %w", path, err)
		}
		w := pcapgo.NewWriter(f)
		if err := w.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
			f.Close()
			m.Close()
			return nil, fmt.Errorf("write capture header %s: %w", path, err)
		}
		m.files = append(m.files, f)
		m.writers[id] = w
	}
	return m, nil
}

// record captures frame f as seen at endpoint epID. Capture failures only
// cost the affected packet.
func (m *pcapManager) record(epID int, at float64, f engine.Frame) {
	w, ok := m.writers[epID]
	if !ok {
		return
	}
	data, err := synthesizeFrame(f)
	if err != nil {
		m.logger.WithError(err).WithField("endpoint", epID).Warn("cannot synthesize capture packet")
		return
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     captureEpoch.Add(time.Duration(at * float64(time.Second))),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.WritePacket(ci, data); err != nil {
		m.logger.WithError(err).WithField("endpoint", epID).Warn("cannot write capture packet")
	}
}

func (m *pcapManager) Close() error {
	var firstErr error
	for _, f := range m.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.files = nil
	return firstErr
}

func synthesizeFrame(f engine.Frame) ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       nodeMAC(f.Src),
		DstMAC:       nodeMAC(f.Dst),
		EthernetType: layers.EthernetTypeIPv4,
	}
	src, dst := f.SrcAddr.As4(), f.DstAddr.As4()
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(src[:]),
		DstIP:    net.IP(dst[:]),
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(f.SrcPort),
		DstPort: layers.UDPPort(f.DstPort),
	}
	if err := udp.SetNetworkLayerForChecksum(&ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	payload := make([]byte, f.Payload)
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func nodeMAC(id int) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
}

// recordCapture forwards a wire event to the capture layer when one is
// attached.
func (e *simEngine) recordCapture(epID int, at float64, f engine.Frame) {
	if e.pcap == nil {
		return
	}
	e.pcap.record(epID, at, f)
}
