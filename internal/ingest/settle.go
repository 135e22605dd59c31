package ingest

import (
	"context"
	"fmt"
	"time"
)

// SettleStrategy accommodates the warehouse's eventually-consistent
// ingestion: after a pipe is triggered, the orchestrator settles before
// reading the staged table. The probe reports whether the table looks ready;
// strategies may ignore it.
type SettleStrategy interface {
	Settle(ctx context.Context, probe func(ctx context.Context) bool) error
}

// FixedDelay waits a fixed interval regardless of readiness. This preserves
// the historical behavior; a warehouse slower than the interval yields
// stale or partial data.
type FixedDelay struct {
	Interval time.Duration
}

// DefaultSettleInterval matches the original fixed wait after a pipe trigger.
const DefaultSettleInterval = 10 * time.Second

// Settle blocks for the interval or until the context is done.
func (d FixedDelay) Settle(ctx context.Context, _ func(ctx context.Context) bool) error {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultSettleInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PollBackoff probes until ready, sleeping with capped exponential backoff
// between attempts.
type PollBackoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Settle polls the probe until it reports ready or attempts are exhausted.
func (p PollBackoff) Settle(ctx context.Context, probe func(ctx context.Context) bool) error {
	initial := p.Initial
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxDelay := p.Max
	if maxDelay <= 0 {
		maxDelay = 8 * time.Second
	}
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 10
	}
	delay := initial
	for i := 0; i < attempts; i++ {
		if probe != nil && probe(ctx) {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
	return fmt.Errorf("table not ready after %d attempts", attempts)
}

// NoSettle skips settling entirely. For tests.
type NoSettle struct{}

// Settle returns immediately.
func (NoSettle) Settle(context.Context, func(ctx context.Context) bool) error { return nil }
