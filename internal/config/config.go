// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Config is the full configuration of one simulation run. The four
// top-level options (sim_time, packet_size, interval, trace_dir) are the
// knobs runs override most; everything else parameterizes the medium, the
// traffic plan, the engine and the report outputs.
type Config struct {
	SimTime    float64 `mapstructure:"sim_time"`    // seconds
	PacketSize uint32  `mapstructure:"packet_size"` // bytes per UDP payload
	Interval   float64 `mapstructure:"interval"`    // seconds between client packets
	TraceDir   string  `mapstructure:"trace_dir"`   // directory of per-vehicle trace files

	Medium  MediumConfig  `mapstructure:"medium"`
	Traffic TrafficConfig `mapstructure:"traffic"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     log.Config    `mapstructure:"log"`
}

// ─── Shared Medium ───

// MediumConfig parameterizes the shared broadcast domain. These are inputs
// to the engine, never computed.
type MediumConfig struct {
	DataRateMbps float64 `mapstructure:"data_rate_mbps"`
	DelayNs      int64   `mapstructure:"delay_ns"`      // propagation delay
	QueuePackets int     `mapstructure:"queue_packets"` // drop-tail bound per endpoint
}

// ─── Traffic Plan ───

// TrafficConfig parameterizes the client/server applications installed on
// the chain of endpoint pairs.
type TrafficConfig struct {
	Port        uint16  `mapstructure:"port"`
	ServerStart float64 `mapstructure:"server_start"` // seconds after simulation start
	ClientStart float64 `mapstructure:"client_start"`
	MaxPackets  uint32  `mapstructure:"max_packets"` // 0 = unbounded
}

// ─── Engine Selection ───

// EngineConfig names the engine implementation and carries its untyped
// option map; the engine factory decodes Options into the engine's own
// option struct.
type EngineConfig struct {
	Name    string                 `mapstructure:"name"`
	Options map[string]interface{} `mapstructure:"options"`
}

// ─── Report Outputs ───

// OutputConfig names the artifacts written after the run.
type OutputConfig struct {
	StatsCSV   string     `mapstructure:"stats_csv"`
	FlowmonXML string     `mapstructure:"flowmon_xml"` // engine-native report, passed through
	Manifest   string     `mapstructure:"manifest"`
	Pcap       PcapConfig `mapstructure:"pcap"`
}

// PcapConfig controls per-endpoint packet tracing.
type PcapConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
	Nodes   int    `mapstructure:"nodes"` // trace at most this many endpoints
}

// ─── Loading ───

// Load reads configuration from an optional YAML file plus STRIX_ prefixed
// environment variables. An empty path means "strix.yml in the working
// directory if present, defaults otherwise"; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("STRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("strix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults is the stock parameter set; a run with no config file at all
// reproduces it exactly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("sim_time", 20.0)
	v.SetDefault("packet_size", 1024)
	v.SetDefault("interval", 0.1)
	v.SetDefault("trace_dir", "traces")

	v.SetDefault("medium.data_rate_mbps", 100.0)
	v.SetDefault("medium.delay_ns", 6560)
	v.SetDefault("medium.queue_packets", 50)

	v.SetDefault("traffic.port", 9)
	v.SetDefault("traffic.server_start", 1.0)
	v.SetDefault("traffic.client_start", 2.0)
	v.SetDefault("traffic.max_packets", 0)

	v.SetDefault("engine.name", "evtsim")

	v.SetDefault("output.stats_csv", "strix_stats.csv")
	v.SetDefault("output.flowmon_xml", "strix_results.flowmon")
	v.SetDefault("output.manifest", "strix_run.yml")
	v.SetDefault("output.pcap.enabled", true)
	v.SetDefault("output.pcap.prefix", "strix")
	v.SetDefault("output.pcap.nodes", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "strix.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)
}

// Validate rejects configurations the pipeline cannot run with. Everything
// here fails before any simulation setup happens.
func (cfg *Config) Validate() error {
	if cfg.TraceDir == "" {
		return fmt.Errorf("%w: trace_dir must not be empty", core.ErrConfigInvalid)
	}
	if cfg.SimTime <= 0 {
		return fmt.Errorf("%w: sim_time must be positive, got %v", core.ErrConfigInvalid, cfg.SimTime)
	}
	if cfg.PacketSize == 0 {
		return fmt.Errorf("%w: packet_size must be positive", core.ErrConfigInvalid)
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %v", core.ErrConfigInvalid, cfg.Interval)
	}
	if cfg.Medium.DataRateMbps <= 0 {
		return fmt.Errorf("%w: medium.data_rate_mbps must be positive", core.ErrConfigInvalid)
	}
	if cfg.Medium.DelayNs < 0 {
		return fmt.Errorf("%w: medium.delay_ns must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Medium.QueuePackets <= 0 {
		return fmt.Errorf("%w: medium.queue_packets must be positive", core.ErrConfigInvalid)
	}
	if cfg.Traffic.Port == 0 {
		return fmt.Errorf("%w: traffic.port must be positive", core.ErrConfigInvalid)
	}
	if cfg.Traffic.ServerStart < 0 || cfg.Traffic.ClientStart < 0 {
		return fmt.Errorf("%w: traffic start offsets must not be negative", core.ErrConfigInvalid)
	}
	if cfg.Engine.Name == "" {
		return fmt.Errorf("%w: engine.name must not be empty", core.ErrConfigInvalid)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level %q (must be debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("%w: invalid log format %q (must be text/json)", core.ErrConfigInvalid, cfg.Log.Format)
	}
	return nil
}
