package demoserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/phishscan/internal/demoserver"
	"github.com/raysh454/phishscan/internal/enrichment"
	"github.com/raysh454/phishscan/internal/model"
)

func newDemo(t *testing.T) (*httptest.Server, enrichment.Config) {
	t.Helper()
	ts := httptest.NewServer(demoserver.NewDemoServer(demoserver.DefaultConfig()).Handler())
	t.Cleanup(ts.Close)

	cfg := enrichment.DefaultConfig()
	cfg.BaseURL = ts.URL
	cfg.APIKey = "demo"
	cfg.PollInterval = time.Millisecond
	return ts, cfg
}

func TestDemoServer_PendingThenVerdict(t *testing.T) {
	t.Parallel()
	_, cfg := newDemo(t)
	client, err := enrichment.NewURLScanClient(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewURLScanClient: %v", err)
	}

	id, err := client.Submit(context.Background(), "https://login.evil.test/paypal")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := client.Poll(context.Background(), id); !errors.Is(err, enrichment.ErrNotReady) {
		t.Fatalf("first poll err = %v, want ErrNotReady", err)
	}
	v, err := client.Poll(context.Background(), id)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !v.Malicious || v.Score != 100 {
		t.Errorf("verdict = %+v, subdomain of evil.test should be malicious", v)
	}
}

func TestDemoServer_RejectsWrongKey(t *testing.T) {
	t.Parallel()
	_, cfg := newDemo(t)
	cfg.APIKey = "nope"
	client, _ := enrichment.NewURLScanClient(cfg, nil, nil)
	if _, err := client.Submit(context.Background(), "https://example.com/"); err == nil {
		t.Error("expected submission with wrong key to fail")
	}
}

func TestDemoServer_EvaluatorClassification(t *testing.T) {
	t.Parallel()
	_, cfg := newDemo(t)
	client, _ := enrichment.NewURLScanClient(cfg, nil, nil)
	e := enrichment.NewEvaluator(client, cfg, nil)

	got, err := e.Evaluate(context.Background(), &model.Payload{Links: []string{
		"https://evil.test/login", "http://bit.ly/abc", "https://unknown.test/",
	}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := []string{enrichment.SignalMalicious, enrichment.SignalSuspicious, enrichment.SignalClean}
	if len(got) != len(want) {
		t.Fatalf("got %d signals, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("signal %d = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestDemoServer_SetVerdictAndReset(t *testing.T) {
	t.Parallel()
	ts, cfg := newDemo(t)

	form := url.Values{"host": {"example.com"}, "malicious": {"true"}, "score": {"90"}}
	resp, err := http.Post(ts.URL+"/demo/set-verdict", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("set-verdict: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set-verdict status %d", resp.StatusCode)
	}

	client, _ := enrichment.NewURLScanClient(cfg, nil, nil)
	e := enrichment.NewEvaluator(client, cfg, nil)
	got, _ := e.Evaluate(context.Background(), &model.Payload{Links: []string{"https://www.example.com/"}})
	if len(got) != 1 || got[0].ID != enrichment.SignalMalicious {
		t.Fatalf("after override got %+v", got)
	}

	resp, err = http.Post(ts.URL+"/demo/reset", "", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	resp.Body.Close()

	got, _ = e.Evaluate(context.Background(), &model.Payload{Links: []string{"https://www.example.com/"}})
	if len(got) != 1 || got[0].ID != enrichment.SignalClean {
		t.Errorf("after reset got %+v", got)
	}
}

func TestDemoServer_SetVerdictValidation(t *testing.T) {
	t.Parallel()
	ts, _ := newDemo(t)
	for _, form := range []url.Values{
		{},
		{"host": {"a.test"}, "malicious": {"maybe"}},
		{"host": {"a.test"}, "score": {"high"}},
	} {
		resp, err := http.Post(ts.URL+"/demo/set-verdict", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("form %v: status %d, want 400", form, resp.StatusCode)
		}
	}
}
