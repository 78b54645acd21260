package enrichment

import (
	"context"
	"errors"
)

var (
	// ErrNotReady is returned by Poll while the service is still scanning.
	ErrNotReady = errors.New("enrichment: result not ready")

	// ErrNotConfigured is returned when the client has no credentials or endpoint.
	ErrNotConfigured = errors.New("enrichment: client not configured")
)

// Client is the boundary to an external URL-reputation service.
type Client interface {
	// Submit queues url for scanning and returns the service's opaque scan id.
	Submit(ctx context.Context, url string) (string, error)

	// Poll returns the verdict for scanID, or ErrNotReady while scanning.
	Poll(ctx context.Context, scanID string) (*Verdict, error)
}

// Verdict is the reputation service's opinion about one URL.
type Verdict struct {
	Malicious  bool     `json:"malicious"`
	Score      float64  `json:"score"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}
