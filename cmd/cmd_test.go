package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	traceDir := filepath.Join(dir, "traces")
	require.NoError(t, os.Mkdir(traceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(traceDir, "v0.txt"),
		[]byte("0.0 0 0\n10.0 100 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(traceDir, "v1.txt"),
		[]byte("0.0 50 0\n10.0 150 0\n"), 0o644))

	cfg := fmt.Sprintf(`sim_time: 3
packet_size: 256
interval: 0.5
trace_dir: %s
traffic:
  server_start: 0.5
  client_start: 1
output:
  stats_csv: %s
  flowmon_xml: %s
  manifest: %s
  pcap:
    enabled: false
log:
  level: error
`,
		traceDir,
		filepath.Join(dir, "stats.csv"),
		filepath.Join(dir, "results.flowmon"),
		filepath.Join(dir, "run.yml"),
	)
	cfgPath := filepath.Join(dir, "strix.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dir
}

func TestPlanCommand(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"plan", "-c", cfgPath})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "Vehicles: 2")
	assert.Contains(t, out.String(), "Address block: 10.1.0.0/24")
	assert.Contains(t, out.String(), "0 -> 1  10.1.0.2:9")
	assert.Contains(t, out.String(), "Traffic pairs: 1")
}

func TestRunCommandEndToEnd(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"run", "-c", cfgPath})
	require.NoError(t, rootCmd.Execute())

	csvData, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData),
		"FlowID,Throughput(kbps),AvgDelay(ms),PacketDeliveryRatio(%),LostPackets")
	assert.Contains(t, string(csvData), "\n1,")

	_, err = os.Stat(filepath.Join(dir, "results.flowmon"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "run.yml"))
	assert.NoError(t, err)
}
