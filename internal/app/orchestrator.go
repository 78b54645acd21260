package app

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/phishscan/internal/aggregator"
	"github.com/raysh454/phishscan/internal/enrichment"
	"github.com/raysh454/phishscan/internal/evaluator"
	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
	"github.com/raysh454/phishscan/internal/rules"
	"github.com/raysh454/phishscan/internal/scorer"
)

// Orchestrator runs the evaluators over a payload, merges their signals and
// scores the result. It also tracks asynchronous scan jobs.
type Orchestrator struct {
	cfg        *Config
	logger     logging.Logger
	evaluators []evaluator.Evaluator
	closers    []io.Closer

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewOrchestrator builds the rule evaluators from cfg and, when enabled, the
// deadline-bounded enrichment evaluator backed by the urlscan client.
func NewOrchestrator(cfg *Config, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	evals := RuleEvaluators(cfg)
	var closers []io.Closer
	if cfg.Enrichment.Enabled {
		client, err := enrichment.NewURLScanClient(cfg.Enrichment, nil, logger)
		if err != nil {
			logger.Warn("enrichment disabled: could not build client",
				logging.Field{Key: "error", Value: err.Error()})
		} else {
			evals = append(evals, EnrichmentEvaluator(cfg, client, logger))
			closers = append(closers, client)
		}
	}

	o := NewOrchestratorWithEvaluators(cfg, logger, evals)
	o.closers = closers
	return o
}

// NewOrchestratorWithEvaluators uses evals as given, in order.
func NewOrchestratorWithEvaluators(cfg *Config, logger logging.Logger, evals []evaluator.Evaluator) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		cfg:        cfg,
		logger:     logger.With(logging.Field{Key: "component", Value: "orchestrator"}),
		evaluators: evals,
		jobs:       make(map[string]*Job),
		jobCancels: make(map[string]context.CancelFunc),
		stop:       make(chan struct{}),
	}
	o.startJanitor()
	return o
}

// RuleEvaluators returns the four rule evaluators with configured weights.
func RuleEvaluators(cfg *Config) []evaluator.Evaluator {
	catalog := rules.DefaultCatalog().WithWeights(cfg.Rules.Weights)
	return rules.Evaluators(catalog)
}

// EnrichmentEvaluator wraps client in the enrichment evaluator bounded by
// cfg.Enrichment.Timeout.
func EnrichmentEvaluator(cfg *Config, client enrichment.Client, logger logging.Logger) evaluator.Evaluator {
	e := enrichment.NewEvaluator(client, cfg.Enrichment, logger)
	return evaluator.WithDeadline(e, cfg.Enrichment.Timeout)
}

// Evaluators returns the names of the configured evaluators in run order.
func (o *Orchestrator) Evaluators() []string {
	names := make([]string, len(o.evaluators))
	for i, e := range o.evaluators {
		names[i] = e.Name()
	}
	return names
}

// progressFunc is told about every evaluator as it finishes.
type progressFunc func(name string, signals, done, total int)

// Scan evaluates p and always returns a result. Evaluator failures and
// enrichment timeouts are logged and count as zero signals.
func (o *Orchestrator) Scan(ctx context.Context, p *model.Payload) *model.ScanResult {
	return o.scan(ctx, p, nil)
}

func (o *Orchestrator) scan(ctx context.Context, p *model.Payload, progress progressFunc) *model.ScanResult {
	if p == nil {
		p = &model.Payload{}
	}
	start := time.Now()

	results := make([][]model.Signal, len(o.evaluators))
	var (
		doneMu sync.Mutex
		done   int
	)

	var g errgroup.Group
	for i, e := range o.evaluators {
		g.Go(func() error {
			signals, err := evaluator.Safe(ctx, e, p)
			if err != nil {
				o.logger.Warn("evaluator dropped",
					logging.Field{Key: "evaluator", Value: e.Name()},
					logging.Field{Key: "error", Value: err.Error()})
				signals = nil
			}
			results[i] = signals

			if progress != nil {
				doneMu.Lock()
				done++
				n := done
				doneMu.Unlock()
				progress(e.Name(), len(signals), n, len(o.evaluators))
			}
			return nil
		})
	}
	_ = g.Wait()

	var raw []model.Signal
	for _, signals := range results {
		raw = append(raw, signals...)
	}

	merged := aggregator.Aggregate(raw, o.cfg.Scoring.Aggregation)
	result := scorer.Score(merged, o.cfg.Scoring.Score)

	o.logger.Info("scan complete",
		logging.Field{Key: "score", Value: result.Score},
		logging.Field{Key: "verdict", Value: string(result.Verdict)},
		logging.Field{Key: "raw_signals", Value: len(raw)},
		logging.Field{Key: "signals", Value: len(result.Signals)},
		logging.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	return result
}

// Close cancels running jobs, stops the janitor and releases clients.
func (o *Orchestrator) Close() error {
	var firstErr error
	o.closeOnce.Do(func() {
		close(o.stop)

		o.jobsMu.Lock()
		for _, cancel := range o.jobCancels {
			cancel()
		}
		o.jobsMu.Unlock()

		o.wg.Wait()

		for _, c := range o.closers {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
