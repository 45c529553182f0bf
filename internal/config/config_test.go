package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
analysis:
  top_n: 5
  ip_threshold: 0.9
  max_src_prefix_len: 24

writers:
  - type: sqlite
    enabled: true
    sqlite:
      path: "reports/history.db"
  - type: clickhouse
    enabled: false
    clickhouse:
      host: "ch.internal"
      port: 9000

probe:
  subject: "lab.batches"
  archive:
    enabled: true
    path: "spool"
    encoding: "gob"

engine:
  analysis_name: "lab-fw"

api:
  listen_addr: ":9090"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// 1. Explicit values are preserved.
	if cfg.Analysis.TopN != 5 {
		t.Errorf("expected top_n 5, got %d", cfg.Analysis.TopN)
	}
	if cfg.Analysis.MaxSrcPrefixLen != 24 {
		t.Errorf("expected max_src_prefix_len 24, got %d", cfg.Analysis.MaxSrcPrefixLen)
	}
	if cfg.Probe.Subject != "lab.batches" {
		t.Errorf("expected subject lab.batches, got %q", cfg.Probe.Subject)
	}
	if cfg.API.ListenAddr != ":9090" {
		t.Errorf("expected listen_addr :9090, got %q", cfg.API.ListenAddr)
	}

	// 2. Unset options fall back to defaults.
	if cfg.Analysis.PortThreshold != DefaultPortThreshold {
		t.Errorf("expected default port_threshold, got %v", cfg.Analysis.PortThreshold)
	}
	if cfg.Probe.BatchSize != DefaultBatchSize {
		t.Errorf("expected default batch_size, got %d", cfg.Probe.BatchSize)
	}
	if cfg.Probe.NATSURL != DefaultNATSURL {
		t.Errorf("expected default nats_url, got %q", cfg.Probe.NATSURL)
	}
	if cfg.Engine.SnapshotInterval != DefaultSnapshotInterval {
		t.Errorf("expected default snapshot_interval, got %q", cfg.Engine.SnapshotInterval)
	}

	// 3. Writer definitions keep their per-type blocks.
	if len(cfg.Writers) != 2 {
		t.Fatalf("expected 2 writer definitions, got %d", len(cfg.Writers))
	}
	if cfg.Writers[0].Type != "sqlite" || !cfg.Writers[0].Enabled {
		t.Errorf("unexpected first writer: %+v", cfg.Writers[0])
	}
	if cfg.Writers[0].SQLite.Path != "reports/history.db" {
		t.Errorf("unexpected sqlite path: %q", cfg.Writers[0].SQLite.Path)
	}
	if cfg.Writers[1].Enabled {
		t.Error("expected clickhouse writer to be disabled")
	}

	// 4. Archive settings are nested under the probe section.
	if !cfg.Probe.Archive.Enabled || cfg.Probe.Archive.Encoding != "gob" {
		t.Errorf("unexpected archive config: %+v", cfg.Probe.Archive)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "analysis: [not a mapping"))
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Analysis.TopN != DefaultTopN {
		t.Errorf("expected default top_n, got %d", cfg.Analysis.TopN)
	}
	if cfg.Analysis.IPThreshold != DefaultIPThreshold {
		t.Errorf("expected default ip_threshold, got %v", cfg.Analysis.IPThreshold)
	}
	if cfg.Engine.AnalysisName != DefaultAnalysisName {
		t.Errorf("expected default analysis_name, got %q", cfg.Engine.AnalysisName)
	}
}
