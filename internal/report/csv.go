// Package report renders an aggregated run as CSV, console text and a YAML
// run manifest. Layouts follow the traditional harness output so existing
// downstream tooling keeps working.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"firestige.xyz/strix/internal/core"
)

var csvHeader = []string{"FlowID", "Throughput(kbps)", "AvgDelay(ms)", "PacketDeliveryRatio(%)", "LostPackets"}

// fmtFloat renders with up to six significant digits, matching what the
// column consumers have always parsed.
func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// WriteCSV writes one row per surviving flow. A no-data run still produces
// the header so consumers get a stable schema.
func WriteCSV(path string, r core.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create stats csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write stats csv header: %w", err)
	}
	for _, fl := range r.Flows {
		row := []string{
			strconv.Itoa(fl.FlowID),
			fmtFloat(fl.ThroughputKbps),
			fmtFloat(fl.AvgDelayMs),
			fmtFloat(fl.PDRPercent),
			strconv.FormatInt(fl.LostPackets, 10),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write stats csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush stats csv: %w", err)
	}
	return f.Close()
}
