package enrichment

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/phishscan/internal/evaluator"
	"github.com/raysh454/phishscan/internal/logging"
	"github.com/raysh454/phishscan/internal/model"
)

const (
	SignalMalicious   = "ENRICHMENT_MALICIOUS"
	SignalSuspicious  = "ENRICHMENT_SUSPICIOUS"
	SignalClean       = "ENRICHMENT_CLEAN"
	SignalUnavailable = "ENRICHMENT_UNAVAILABLE"
)

// EvaluatorName is the name the enrichment evaluator reports.
const EvaluatorName = "enrichment"

// Evaluator turns reputation verdicts for the first few payload links into
// signals. It is asynchronous; callers bound it with evaluator.WithDeadline.
type Evaluator struct {
	client Client
	cfg    Config
	logger logging.Logger
}

var _ evaluator.Evaluator = (*Evaluator)(nil)

// NewEvaluator returns an enrichment evaluator over client. Zero-valued
// limits in cfg fall back to DefaultConfig.
func NewEvaluator(client Client, cfg Config, logger logging.Logger) *Evaluator {
	if logger == nil {
		logger = logging.Nop()
	}
	def := DefaultConfig()
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = def.MaxLinks
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = cfg.MaxLinks
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = def.PollAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}
	return &Evaluator{
		client: client,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "enrichment"}),
	}
}

func (e *Evaluator) Name() string { return EvaluatorName }

// Evaluate checks up to MaxLinks links concurrently. A link whose lookup
// fails or stays pending produces no signal unless ReportUnavailable is set.
// Output order follows the payload's link order.
func (e *Evaluator) Evaluate(ctx context.Context, p *model.Payload) ([]model.Signal, error) {
	if p == nil || e.client == nil {
		return nil, nil
	}
	links := p.Links
	if len(links) > e.cfg.MaxLinks {
		links = links[:e.cfg.MaxLinks]
	}
	if len(links) == 0 {
		return nil, nil
	}

	slots := make([]*model.Signal, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, link := range links {
		g.Go(func() error {
			v, err := e.check(gctx, link)
			if err != nil {
				e.logger.Debug("reputation lookup skipped",
					logging.Field{Key: "url", Value: link},
					logging.Field{Key: "error", Value: err.Error()})
				if e.cfg.ReportUnavailable {
					s := unavailable(link, err)
					slots[i] = &s
				}
				return nil
			}
			s := e.classify(link, v)
			slots[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Signal, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out, nil
}

// check submits link and polls for its verdict, waiting PollInterval before
// each attempt.
func (e *Evaluator) check(ctx context.Context, link string) (*Verdict, error) {
	scanID, err := e.client.Submit(ctx, link)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= e.cfg.PollAttempts; attempt++ {
		if err := sleep(ctx, e.cfg.PollInterval); err != nil {
			return nil, err
		}
		v, err := e.client.Poll(ctx, scanID)
		switch {
		case err == nil && v != nil:
			return v, nil
		case err == nil, errors.Is(err, ErrNotReady):
			continue
		default:
			return nil, err
		}
	}
	return nil, ErrNotReady
}

func (e *Evaluator) classify(link string, v *Verdict) model.Signal {
	evidence := map[string]any{model.EvidenceLink: link, "score": v.Score}
	if len(v.Categories) > 0 {
		evidence["categories"] = append([]string(nil), v.Categories...)
	}
	if len(v.Tags) > 0 {
		evidence["tags"] = append([]string(nil), v.Tags...)
	}

	switch {
	case v.Malicious:
		return model.Signal{
			ID:       SignalMalicious,
			Label:    "Link flagged as malicious by reputation service",
			Severity: model.SeverityHigh,
			Weight:   e.cfg.HighWeight,
			Evidence: evidence,
		}
	case v.Score > e.cfg.MinScore || len(v.Categories) > 0 || len(v.Tags) > 0:
		return model.Signal{
			ID:       SignalSuspicious,
			Label:    "Link has a questionable reputation",
			Severity: model.SeverityMedium,
			Weight:   e.cfg.MediumWeight,
			Evidence: evidence,
		}
	default:
		return model.Signal{
			ID:       SignalClean,
			Label:    "Link checked by reputation service, nothing found",
			Severity: model.SeverityLow,
			Weight:   0,
			Evidence: evidence,
		}
	}
}

func unavailable(link string, err error) model.Signal {
	reason := "error"
	switch {
	case errors.Is(err, ErrNotReady):
		reason = "pending"
	case errors.Is(err, ErrNotConfigured):
		reason = "not_configured"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = "timeout"
	}
	return model.Signal{
		ID:       SignalUnavailable,
		Label:    "Link reputation could not be determined",
		Severity: model.SeverityLow,
		Weight:   0,
		Evidence: map[string]any{model.EvidenceLink: link, "reason": reason},
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
