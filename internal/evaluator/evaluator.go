// Package evaluator defines the single capability shared by every source of
// signals: heuristic rules and the time-bounded reputation lookup alike.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/phishscan/internal/model"
)

// ErrDeadlineExceeded is returned by a deadline-wrapped evaluator whose inner
// evaluation did not finish in time.
var ErrDeadlineExceeded = errors.New("evaluator: deadline exceeded")

// Evaluator maps a payload to zero or more signals. Implementations must not
// modify the payload. Synchronous rule evaluators simply ignore ctx.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, p *model.Payload) ([]model.Signal, error)
}

type funcEvaluator struct {
	name string
	fn   func(p *model.Payload) []model.Signal
}

// Func adapts a pure rule function into an Evaluator.
func Func(name string, fn func(p *model.Payload) []model.Signal) Evaluator {
	return &funcEvaluator{name: name, fn: fn}
}

func (f *funcEvaluator) Name() string { return f.name }

func (f *funcEvaluator) Evaluate(_ context.Context, p *model.Payload) ([]model.Signal, error) {
	return f.fn(p), nil
}

type outcome struct {
	signals []model.Signal
	err     error
}

type deadlineEvaluator struct {
	inner   Evaluator
	timeout time.Duration
}

// WithDeadline bounds every Evaluate call of e to timeout. The inner call gets
// a context carrying the deadline and runs on its own goroutine; if it has not
// returned when the deadline elapses, Evaluate returns ErrDeadlineExceeded and
// the late result is dropped without being awaited.
func WithDeadline(e Evaluator, timeout time.Duration) Evaluator {
	return &deadlineEvaluator{inner: e, timeout: timeout}
}

func (d *deadlineEvaluator) Name() string { return d.inner.Name() }

func (d *deadlineEvaluator) Evaluate(ctx context.Context, p *model.Payload) ([]model.Signal, error) {
	if d.timeout <= 0 {
		return Safe(ctx, d.inner, p)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// Buffered so an abandoned evaluation can always deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		signals, err := Safe(ctx, d.inner, p)
		done <- outcome{signals: signals, err: err}
	}()

	select {
	case out := <-done:
		return out.signals, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", d.inner.Name(), ErrDeadlineExceeded)
		}
		return nil, ctx.Err()
	}
}

// Safe runs e and never lets a failure escape: errors and panics both yield
// an empty signal list together with the error for logging.
func Safe(ctx context.Context, e Evaluator, p *model.Payload) (signals []model.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			err = fmt.Errorf("%s: panic: %v", e.Name(), r)
		}
	}()

	signals, err = e.Evaluate(ctx, p)
	if err != nil {
		return nil, err
	}
	return signals, nil
}
