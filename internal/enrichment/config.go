package enrichment

import (
	"time"

	"github.com/raysh454/phishscan/internal/webclient"
)

// Config holds the reputation lookup settings.
type Config struct {
	// Enabled toggles the enrichment evaluator entirely.
	Enabled bool `yaml:"enabled"`

	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Visibility string `yaml:"visibility"`

	// Timeout bounds the whole enrichment invocation for one scan.
	Timeout time.Duration `yaml:"timeout"`

	MaxLinks     int           `yaml:"max_links"`
	Concurrency  int           `yaml:"concurrency"`
	PollAttempts int           `yaml:"poll_attempts"`
	PollInterval time.Duration `yaml:"poll_interval"`

	HighWeight   float64 `yaml:"high_weight"`
	MediumWeight float64 `yaml:"medium_weight"`
	MinScore     float64 `yaml:"min_score"`

	// ReportUnavailable emits ENRICHMENT_UNAVAILABLE for links whose lookup
	// failed or never resolved.
	ReportUnavailable bool `yaml:"report_unavailable"`

	HTTP webclient.Config `yaml:"http"`
}

const (
	DefaultBaseURL    = "https://urlscan.io"
	DefaultVisibility = "unlisted"
)

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		BaseURL:      DefaultBaseURL,
		Visibility:   DefaultVisibility,
		Timeout:      2 * time.Second,
		MaxLinks:     3,
		Concurrency:  3,
		PollAttempts: 3,
		PollInterval: 500 * time.Millisecond,
		HighWeight:   35,
		MediumWeight: 15,
		MinScore:     0,
		HTTP: webclient.Config{
			Client:    webclient.ClientNetHTTP,
			Timeout:   5 * time.Second,
			UserAgent: "phishscan/1.0",
		},
	}
}
