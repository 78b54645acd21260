package demoserver

// Config holds configuration for the demo reputation server.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// APIKey, when set, must be sent in the API-Key header of submissions.
	APIKey string

	// PendingPolls is how many result polls answer 404 before the verdict.
	PendingPolls int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:         9999,
		APIKey:       "demo",
		PendingPolls: 1,
	}
}
