// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/phishscan/internal/enrichment"
	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
	"github.com/raysh454/phishscan/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns the number of warnings recorded so far.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200.
// Set FailURLs[url] = true to force an error for a specific URL, or
// Responses[url] to script a status and body.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Responses     map[string]webclient.Response
	mu            sync.Mutex
	Requests      []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, errors.New("dummy fetch fail for " + req.URL)
	}
	if scripted, ok := d.Responses[req.URL]; ok {
		scripted.Request = req
		scripted.FetchedAt = time.Now()
		return &scripted, nil
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte("ok:" + req.URL),
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// ─── Enrichment ────────────────────────────────────────────────────────

// FakeEnrichmentClient implements enrichment.Client from in-memory verdicts.
// Submit returns the url itself as the scan id. Poll answers ErrNotReady for
// the first PendingPolls calls per url, then the scripted verdict, or
// ErrNotReady forever when no verdict is scripted.
type FakeEnrichmentClient struct {
	Verdicts     map[string]*enrichment.Verdict
	SubmitErrors map[string]error
	PendingPolls int

	// Delay is applied to every call and honours ctx cancellation unless
	// IgnoreContext is set.
	Delay         time.Duration
	IgnoreContext bool

	mu      sync.Mutex
	polls   map[string]int
	Submits []string
}

func (f *FakeEnrichmentClient) wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return nil
	}
	if f.IgnoreContext {
		time.Sleep(f.Delay)
		return nil
	}
	select {
	case <-time.After(f.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeEnrichmentClient) Submit(ctx context.Context, url string) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Submits = append(f.Submits, url)
	f.mu.Unlock()
	if err := f.SubmitErrors[url]; err != nil {
		return "", err
	}
	return url, nil
}

func (f *FakeEnrichmentClient) Poll(ctx context.Context, scanID string) (*enrichment.Verdict, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.polls == nil {
		f.polls = make(map[string]int)
	}
	f.polls[scanID]++
	n := f.polls[scanID]
	f.mu.Unlock()

	v, ok := f.Verdicts[scanID]
	if !ok || n <= f.PendingPolls {
		return nil, enrichment.ErrNotReady
	}
	return v, nil
}

// SubmitCount returns how many links were submitted.
func (f *FakeEnrichmentClient) SubmitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Submits)
}

// ─── Evaluators ────────────────────────────────────────────────────────

// StaticEvaluator returns fixed signals, optionally after a delay.
type StaticEvaluator struct {
	EvalName string
	Signals  []model.Signal
	Err      error
	Delay    time.Duration
	Panic    bool
}

func (s *StaticEvaluator) Name() string { return s.EvalName }

func (s *StaticEvaluator) Evaluate(ctx context.Context, _ *model.Payload) ([]model.Signal, error) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if s.Panic {
		panic("static evaluator panic")
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.Signal, len(s.Signals))
	for i, sig := range s.Signals {
		out[i] = sig.Clone()
	}
	return out, nil
}
