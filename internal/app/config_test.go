package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phishscan.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scoring.Aggregation.WeightCap != 40 || cfg.Scoring.Score.DangerousThreshold != 60 {
		t.Errorf("unexpected scoring defaults: %+v", cfg.Scoring)
	}
	if cfg.Enrichment.Timeout != 2*time.Second || cfg.Enrichment.MaxLinks != 3 {
		t.Errorf("unexpected enrichment defaults: %+v", cfg.Enrichment)
	}
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen addr = %q", cfg.Server.ListenAddr)
	}
}

func TestLoadConfig_YAMLOverrides(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
server:
  listen_addr: "127.0.0.1:9000"
logging:
  level: debug
scoring:
  aggregation:
    weight_cap: 50
  score:
    suspicious_threshold: 30
rules:
  weights:
    LINK_SHORTENER: 20
enrichment:
  enabled: false
  timeout: 1500ms
  poll_interval: 250ms
  report_unavailable: true
jobs:
  retention: 1h
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.ListenAddr != "127.0.0.1:9000" || cfg.Logging.Level != "debug" {
		t.Errorf("server/logging = %+v %+v", cfg.Server, cfg.Logging)
	}
	if cfg.Scoring.Aggregation.WeightCap != 50 || cfg.Scoring.Aggregation.Damping != 0.5 {
		t.Errorf("aggregation = %+v", cfg.Scoring.Aggregation)
	}
	if cfg.Scoring.Score.SuspiciousThreshold != 30 || cfg.Scoring.Score.DangerousThreshold != 60 {
		t.Errorf("score = %+v", cfg.Scoring.Score)
	}
	if cfg.Rules.Weights["LINK_SHORTENER"] != 20 {
		t.Errorf("rule weights = %v", cfg.Rules.Weights)
	}
	e := cfg.Enrichment
	if e.Enabled || e.Timeout != 1500*time.Millisecond || e.PollInterval != 250*time.Millisecond || !e.ReportUnavailable {
		t.Errorf("enrichment = %+v", e)
	}
	if e.MaxLinks != 3 {
		t.Errorf("unset fields should keep defaults, max_links = %d", e.MaxLinks)
	}
	if cfg.Jobs.Retention != time.Hour {
		t.Errorf("retention = %v", cfg.Jobs.Retention)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "server: [", "parse config"},
		{"inverted thresholds", "scoring:\n  score:\n    suspicious_threshold: 70\n", "exceeds dangerous_threshold"},
		{"zero cap", "scoring:\n  aggregation:\n    weight_cap: 0\n", "weight_cap"},
		{"negative weight", "rules:\n  weights:\n    LINK_SHORTENER: -1\n", "LINK_SHORTENER"},
		{"no timeout", "enrichment:\n  timeout: 0s\n", "enrichment.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadConfig_EnvAPIKey(t *testing.T) {
	t.Setenv(EnvURLScanAPIKey, " secret-key ")
	path := writeConfig(t, "enrichment:\n  api_key: from-file\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Enrichment.APIKey != "secret-key" {
		t.Errorf("api key = %q, want env override", cfg.Enrichment.APIKey)
	}
}
