package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

// Config selects and tunes the WebClient backend.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a single request. Zero means 30 seconds.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with every request when non-empty.
	UserAgent string `yaml:"user_agent"`

	// MaxBodyBytes caps how much of a response body is read. Zero means 4 MiB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}
