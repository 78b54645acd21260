package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/phishscan/internal/aggregator"
	"github.com/raysh454/phishscan/internal/enrichment"
	"github.com/raysh454/phishscan/internal/scorer"
)

// EnvURLScanAPIKey overrides enrichment.api_key when set.
const EnvURLScanAPIKey = "PHISHSCAN_URLSCAN_API_KEY"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	// MaxBodyBytes caps request bodies accepted by the API.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// AllowedOrigins is sent back as Access-Control-Allow-Origin. Empty means "*".
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ScoringConfig struct {
	Aggregation aggregator.Options `yaml:"aggregation"`
	Score       scorer.Options     `yaml:"score"`
}

type RulesConfig struct {
	// Weights overrides the default weight of a rule by its id.
	Weights map[string]float64 `yaml:"weights"`
}

type JobsConfig struct {
	// Retention is how long finished jobs stay queryable.
	Retention time.Duration `yaml:"retention"`

	// EventBuffer sizes each job's event channel.
	EventBuffer int `yaml:"event_buffer"`
}

// Config is the runtime configuration of the scanner and its API.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Logging    LoggingConfig     `yaml:"logging"`
	Scoring    ScoringConfig     `yaml:"scoring"`
	Rules      RulesConfig       `yaml:"rules"`
	Enrichment enrichment.Config `yaml:"enrichment"`
	Jobs       JobsConfig        `yaml:"jobs"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8080",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Scoring: ScoringConfig{
			Aggregation: aggregator.DefaultOptions(),
			Score:       scorer.DefaultOptions(),
		},
		Enrichment: enrichment.DefaultConfig(),
		Jobs: JobsConfig{
			Retention:   10 * time.Minute,
			EventBuffer: 16,
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. An empty path yields
// the defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies secret overrides from the environment.
func (c *Config) ApplyEnv() {
	if key := strings.TrimSpace(os.Getenv(EnvURLScanAPIKey)); key != "" {
		c.Enrichment.APIKey = key
	}
}

// Validate rejects settings the scoring pipeline cannot work with.
func (c *Config) Validate() error {
	var errs []error

	s := c.Scoring.Score
	if s.SuspiciousThreshold < 0 || s.DangerousThreshold > 100 {
		errs = append(errs, fmt.Errorf("scoring.score thresholds must lie within [0,100]"))
	}
	if s.SuspiciousThreshold > s.DangerousThreshold {
		errs = append(errs, fmt.Errorf("scoring.score.suspicious_threshold (%d) exceeds dangerous_threshold (%d)",
			s.SuspiciousThreshold, s.DangerousThreshold))
	}
	if s.SeverityFloor < 0 || s.SeverityFloor > 100 {
		errs = append(errs, fmt.Errorf("scoring.score.severity_floor must lie within [0,100]"))
	}
	if s.SummaryTopK < 0 {
		errs = append(errs, fmt.Errorf("scoring.score.summary_top_k must not be negative"))
	}

	a := c.Scoring.Aggregation
	if a.WeightCap <= 0 {
		errs = append(errs, fmt.Errorf("scoring.aggregation.weight_cap must be positive"))
	}
	if a.Damping < 0 || a.Damping > 1 {
		errs = append(errs, fmt.Errorf("scoring.aggregation.damping must lie within [0,1]"))
	}

	for id, w := range c.Rules.Weights {
		if w < 0 {
			errs = append(errs, fmt.Errorf("rules.weights.%s must not be negative", id))
		}
	}

	e := c.Enrichment
	if e.Enabled {
		if e.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("enrichment.timeout must be positive"))
		}
		if e.MaxLinks < 0 || e.PollAttempts < 0 || e.PollInterval < 0 {
			errs = append(errs, fmt.Errorf("enrichment limits must not be negative"))
		}
		if e.HighWeight < 0 || e.MediumWeight < 0 {
			errs = append(errs, fmt.Errorf("enrichment weights must not be negative"))
		}
	}

	if c.Jobs.Retention < 0 {
		errs = append(errs, fmt.Errorf("jobs.retention must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
