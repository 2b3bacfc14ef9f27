package sim

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/engine"
	"firestige.xyz/strix/internal/engine/enginetest"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/report"
)

// registerDouble installs fake under a name unique to the test, since the
// engine registry has no teardown.
func registerDouble(t *testing.T, fake *enginetest.Engine) string {
	t.Helper()
	name := "double-" + strings.ToLower(t.Name())
	engine.Register(name, func(map[string]interface{}, log.Logger) (engine.Engine, error) {
		return fake, nil
	})
	return name
}

func testConfig(t *testing.T, engineName string) config.Config {
	t.Helper()
	dir := t.TempDir()

	traceDir := filepath.Join(dir, "traces")
	require.NoError(t, os.Mkdir(traceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(traceDir, "v0.txt"), []byte("0 0 0\n10 100 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(traceDir, "v1.txt"), []byte("0 50 0\n10 150 0\n"), 0o644))

	return config.Config{
		SimTime:    20,
		PacketSize: 1024,
		Interval:   0.1,
		TraceDir:   traceDir,
		Medium:     config.MediumConfig{DataRateMbps: 100, DelayNs: 6560, QueuePackets: 50},
		Traffic:    config.TrafficConfig{Port: 9, ServerStart: 1, ClientStart: 2},
		Engine:     config.EngineConfig{Name: engineName},
		Output: config.OutputConfig{
			StatsCSV:   filepath.Join(dir, "stats.csv"),
			FlowmonXML: filepath.Join(dir, "results.flowmon"),
			Manifest:   filepath.Join(dir, "run.yml"),
			Pcap:       config.PcapConfig{Enabled: true, Prefix: filepath.Join(dir, "cap"), Nodes: 10},
		},
	}
}

func TestRunnerEndToEnd(t *testing.T) {
	fake := &enginetest.Engine{
		Stats: []core.FlowCounters{
			{FlowID: 1, TxPackets: 10, RxPackets: 9, RxBytes: 9216, DelaySum: 0.9, FirstTxTime: 2, LastRxTime: 11},
		},
	}
	cfg := testConfig(t, registerDouble(t, fake))

	var console bytes.Buffer
	result, err := NewRunner(cfg, log.Nop(), &console).Run(context.Background())
	require.NoError(t, err)

	// run identity
	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Vehicles)
	assert.Equal(t, 1, result.Pairs)
	assert.Equal(t, 1, result.Report.FlowCount)

	// the engine was driven in pipeline order with the planned values
	assert.Equal(t, 2, fake.CreatedN)
	assert.Len(t, fake.Mobility, 2)
	require.Len(t, fake.Servers, 1)
	assert.Equal(t, core.ServerSpec{ID: 1, Port: 9, StartOffset: 1, StopOffset: 20}, fake.Servers[0])
	require.Len(t, fake.Clients, 1)
	assert.Equal(t, 0, fake.Clients[0].ClientID)
	assert.Equal(t, "10.1.0.2", fake.Clients[0].ServerAddr.String())
	assert.Equal(t, cfg.Output.Pcap.Prefix, fake.PcapPrefix)
	assert.Equal(t, 20.0, fake.RanUntil)

	calls := fake.Calls()
	runIdx := indexOf(calls, "Run")
	require.GreaterOrEqual(t, runIdx, 0)
	assert.Greater(t, indexOf(calls, "FlowStats"), runIdx)
	assert.Greater(t, indexOf(calls, "SerializeReport"), runIdx)

	// artifacts
	csvData, err := os.ReadFile(cfg.Output.StatsCSV)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "FlowID,Throughput(kbps),AvgDelay(ms),PacketDeliveryRatio(%),LostPackets")
	assert.Contains(t, string(csvData), "1,")

	_, err = os.Stat(cfg.Output.FlowmonXML)
	assert.NoError(t, err)

	manifestData, err := os.ReadFile(cfg.Output.Manifest)
	require.NoError(t, err)
	var m report.Manifest
	require.NoError(t, yaml.Unmarshal(manifestData, &m))
	assert.Equal(t, result.RunID, m.RunID)
	assert.Equal(t, 2, m.Vehicles)
	assert.Equal(t, 1, m.Pairs)
	assert.False(t, m.NoData)
	assert.Equal(t, cfg.Output.Pcap.Prefix, m.Outputs.PcapPrefix)

	assert.Contains(t, console.String(), "Flow 1 Statistics:")
	assert.Contains(t, console.String(), "Global Statistics:")
}

func TestRunnerNoDataRun(t *testing.T) {
	fake := &enginetest.Engine{} // engine reports no flows at all
	cfg := testConfig(t, registerDouble(t, fake))

	var console bytes.Buffer
	result, err := NewRunner(cfg, log.Nop(), &console).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Report.NoData)
	assert.Contains(t, console.String(), "No valid flow statistics to report")

	csvData, err := os.ReadFile(cfg.Output.StatsCSV)
	require.NoError(t, err)
	assert.Equal(t, "FlowID,Throughput(kbps),AvgDelay(ms),PacketDeliveryRatio(%),LostPackets\n", string(csvData))
}

func TestRunnerMissingTraceDir(t *testing.T) {
	fake := &enginetest.Engine{}
	cfg := testConfig(t, registerDouble(t, fake))
	cfg.TraceDir = filepath.Join(cfg.TraceDir, "nope")

	_, err := NewRunner(cfg, log.Nop(), &bytes.Buffer{}).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrTraceDirMissing)
	assert.Empty(t, fake.Calls())
}

func TestRunnerUnknownEngine(t *testing.T) {
	cfg := testConfig(t, "does-not-exist")
	_, err := NewRunner(cfg, log.Nop(), &bytes.Buffer{}).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrEngineNotFound)
}

func TestRunnerCancelledBeforeBarrier(t *testing.T) {
	fake := &enginetest.Engine{}
	cfg := testConfig(t, registerDouble(t, fake))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(cfg, log.Nop(), &bytes.Buffer{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, fake.Calls(), "Run")
}

func indexOf(calls []string, name string) int {
	for i, c := range calls {
		if c == name {
			return i
		}
	}
	return -1
}
