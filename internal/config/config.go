package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults for analysis options left unset in the config file.
const (
	DefaultTopN            = 15
	DefaultIPThreshold     = 0.95
	DefaultPortThreshold   = 0.01
	DefaultMaxSrcPrefixLen = 21
	DefaultMaxDstPrefixLen = 20
	DefaultRareCountCutoff = 5
	DefaultChunkSize       = 100000
	DefaultTopTalkers      = 10
	DefaultBatchSize       = 8192

	DefaultNATSURL          = "nats://127.0.0.1:4222"
	DefaultSubject          = "fwa.batches"
	DefaultSnapshotInterval = "60s"
	DefaultAnalysisName     = "default"
)

// AnalysisConfig holds the tunables of one analysis run.
type AnalysisConfig struct {
	TopN            int     `yaml:"top_n"`
	IPThreshold     float64 `yaml:"ip_threshold"`
	PortThreshold   float64 `yaml:"port_threshold"`
	MaxSrcPrefixLen int     `yaml:"max_src_prefix_len"`
	MaxDstPrefixLen int     `yaml:"max_dst_prefix_len"`
	RareCountCutoff int     `yaml:"rare_count_cutoff"`
	ChunkSize       int     `yaml:"chunk_size"`
	TopTalkers      int     `yaml:"top_talkers"`
}

// ClickHouseConfig holds the connection settings for a ClickHouse writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SQLiteConfig holds the settings for a SQLite writer.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FileConfig holds the settings for a JSON file writer.
type FileConfig struct {
	RootPath string `yaml:"root_path"`
}

// WriterDef defines a single report writer from the config file.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	File       FileConfig       `yaml:"file"`
}

// ProbeConfig holds the NATS transport settings shared by probe and engine.
type ProbeConfig struct {
	NATSURL   string        `yaml:"nats_url"`
	Subject   string        `yaml:"subject"`
	BatchSize int           `yaml:"batch_size"`
	Archive   ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig holds the settings for the probe's local batch archive.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Encoding   string `yaml:"encoding"`
	BufferSize int    `yaml:"buffer_size"`
}

// EngineConfig holds the settings for the continuous analysis engine.
type EngineConfig struct {
	SnapshotInterval string `yaml:"snapshot_interval"`
	AnalysisName     string `yaml:"analysis_name"`
}

// APIConfig holds the settings for the HTTP API service.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	LogPath    string `yaml:"log_path"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Writers  []WriterDef    `yaml:"writers"`
	Probe    ProbeConfig    `yaml:"probe"`
	Engine   EngineConfig   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
}

// Default returns a configuration with every option at its default value,
// for callers that run without a config file.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied to unset analysis options.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills analysis options that were left at their zero value.
// Explicitly invalid values are not touched here; they are rejected with a
// ConfigError when the analyzer is constructed.
func applyDefaults(cfg *Config) {
	a := &cfg.Analysis
	if a.TopN == 0 {
		a.TopN = DefaultTopN
	}
	if a.IPThreshold == 0 {
		a.IPThreshold = DefaultIPThreshold
	}
	if a.PortThreshold == 0 {
		a.PortThreshold = DefaultPortThreshold
	}
	if a.MaxSrcPrefixLen == 0 {
		a.MaxSrcPrefixLen = DefaultMaxSrcPrefixLen
	}
	if a.MaxDstPrefixLen == 0 {
		a.MaxDstPrefixLen = DefaultMaxDstPrefixLen
	}
	if a.RareCountCutoff == 0 {
		a.RareCountCutoff = DefaultRareCountCutoff
	}
	if a.ChunkSize == 0 {
		a.ChunkSize = DefaultChunkSize
	}
	if a.TopTalkers == 0 {
		a.TopTalkers = DefaultTopTalkers
	}
	if cfg.Probe.BatchSize == 0 {
		cfg.Probe.BatchSize = DefaultBatchSize
	}
	if cfg.Probe.NATSURL == "" {
		cfg.Probe.NATSURL = DefaultNATSURL
	}
	if cfg.Probe.Subject == "" {
		cfg.Probe.Subject = DefaultSubject
	}
	if cfg.Engine.SnapshotInterval == "" {
		cfg.Engine.SnapshotInterval = DefaultSnapshotInterval
	}
	if cfg.Engine.AnalysisName == "" {
		cfg.Engine.AnalysisName = DefaultAnalysisName
	}
}
