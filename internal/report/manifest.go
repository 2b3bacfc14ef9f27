package report

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records what a run was given and what it produced, one YAML
// document per run.
type Manifest struct {
	RunID      string          `yaml:"run_id"`
	StartedAt  time.Time       `yaml:"started_at"`
	FinishedAt time.Time       `yaml:"finished_at"`
	Engine     string          `yaml:"engine"`
	TraceDir   string          `yaml:"trace_dir"`
	SimTime    float64         `yaml:"sim_time"`
	Vehicles   int             `yaml:"vehicles"`
	Pairs      int             `yaml:"traffic_pairs"`
	Flows      int             `yaml:"flows_reported"`
	NoData     bool            `yaml:"no_data"`
	Outputs    ManifestOutputs `yaml:"outputs"`
}

// ManifestOutputs lists the artifact paths of the run.
type ManifestOutputs struct {
	StatsCSV   string `yaml:"stats_csv"`
	FlowmonXML string `yaml:"flowmon_xml"`
	PcapPrefix string `yaml:"pcap_prefix,omitempty"`
}

// WriteManifest serializes the manifest to path.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal run manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	return nil
}
