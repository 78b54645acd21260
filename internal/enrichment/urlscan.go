package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/urlnorm"
	"github.com/raysh454/phishscan/internal/webclient"
)

// URLScanClient talks to a urlscan.io compatible reputation API.
type URLScanClient struct {
	baseURL    string
	apiKey     string
	visibility string
	wc         webclient.WebClient
	logger     logging.Logger
}

type submitRequest struct {
	URL        string `json:"url"`
	Visibility string `json:"visibility,omitempty"`
}

type submitResponse struct {
	UUID    string `json:"uuid"`
	Message string `json:"message"`
}

type resultResponse struct {
	Verdicts struct {
		Overall struct {
			Score      float64  `json:"score"`
			Malicious  bool     `json:"malicious"`
			Categories []string `json:"categories"`
			Tags       []string `json:"tags"`
		} `json:"overall"`
	} `json:"verdicts"`
}

// NewURLScanClient builds a client over wc. A nil wc is constructed from
// cfg.HTTP through the webclient factory.
func NewURLScanClient(cfg Config, wc webclient.WebClient, logger logging.Logger) (*URLScanClient, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	componentLogger := logger.With(logging.Field{Key: "component", Value: "urlscan"})

	if wc == nil {
		var err error
		wc, err = webclient.NewWebClient(cfg.HTTP, componentLogger)
		if err != nil {
			return nil, fmt.Errorf("NewURLScanClient: %w", err)
		}
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	return &URLScanClient{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		visibility: cfg.Visibility,
		wc:         wc,
		logger:     componentLogger,
	}, nil
}

// Submit posts link for scanning and returns the scan uuid. The link is
// normalized first so credentials and recipient tracking parameters never
// leave the process.
func (c *URLScanClient) Submit(ctx context.Context, link string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(submitRequest{URL: urlnorm.NormalizeOrRaw(link), Visibility: c.visibility})
	if err != nil {
		return "", fmt.Errorf("submit: marshal: %w", err)
	}

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/api/v1/scan/",
		Headers: http.Header{
			"API-Key":      []string{c.apiKey},
			"Content-Type": []string{"application/json"},
		},
		Body: body,
	})
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("submit: unexpected status %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("submit: decode: %w", err)
	}
	if out.UUID == "" {
		return "", fmt.Errorf("submit: response carried no scan id")
	}

	c.logger.Debug("submitted url",
		logging.Field{Key: "url", Value: link},
		logging.Field{Key: "scan_id", Value: out.UUID})
	return out.UUID, nil
}

// Poll fetches the result for scanID. A 404 means the scan is still running.
func (c *URLScanClient) Poll(ctx context.Context, scanID string) (*Verdict, error) {
	if scanID == "" {
		return nil, fmt.Errorf("poll: empty scan id")
	}

	resp, err := c.wc.Get(ctx, c.baseURL+"/api/v1/result/"+url.PathEscape(scanID)+"/")
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotReady
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("poll: unexpected status %d", resp.StatusCode)
	}

	var out resultResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("poll: decode: %w", err)
	}
	overall := out.Verdicts.Overall
	return &Verdict{
		Malicious:  overall.Malicious,
		Score:      overall.Score,
		Categories: overall.Categories,
		Tags:       overall.Tags,
	}, nil
}

// Close releases the underlying web client.
func (c *URLScanClient) Close() error {
	return c.wc.Close()
}
