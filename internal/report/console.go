package report

import (
	"fmt"
	"io"

	"firestige.xyz/strix/internal/core"
)

// WriteConsole prints the per-flow blocks and the global summary in the
// traditional layout.
func WriteConsole(w io.Writer, r core.Report) {
	if r.NoData {
		fmt.Fprintf(w, "\nNo valid flow statistics to report\n")
		return
	}

	for _, f := range r.Flows {
		fmt.Fprintf(w, "\nFlow %d Statistics:\n", f.FlowID)
		fmt.Fprintf(w, "  Throughput: %s kbps\n", fmtFloat(f.ThroughputKbps))
		fmt.Fprintf(w, "  Avg Delay: %s ms\n", fmtFloat(f.AvgDelayMs))
		fmt.Fprintf(w, "  Packet Delivery Ratio: %s%%\n", fmtFloat(f.PDRPercent))
		fmt.Fprintf(w, "  Lost Packets: %d\n", f.LostPackets)
	}

	fmt.Fprintf(w, "\nGlobal Statistics:\n")
	fmt.Fprintf(w, "  Avg Throughput: %s kbps\n", fmtFloat(r.AvgThroughputKbps))
	fmt.Fprintf(w, "  Avg End-to-End Delay: %s ms\n", fmtFloat(r.AvgDelayMs))
	fmt.Fprintf(w, "  Total Packet Loss: %d (%s%%)\n", r.TotalLost, fmtFloat(r.TotalLossPercent))
}
