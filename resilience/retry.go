package resilience

import (
	"context"
	"time"

	"github.com/seatsniper/engine/model"
)

// RetryConfig controls the exponential backoff policy.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// AttemptEvent is emitted to an observer after each retry attempt.
type AttemptEvent struct {
	Attempt int
	Err     error
	Delay   time.Duration // delay before the NEXT attempt, zero on the last
}

// retryer executes fn up to cfg.MaxAttempts times with exponential backoff,
// capped at cfg.MaxDelay, giving up only on a non-retryable classified error
// or after the attempt budget is exhausted.
type retryer struct {
	cfg      RetryConfig
	onEvent  func(AttemptEvent)
}

func newRetryer(cfg RetryConfig, onEvent func(AttemptEvent)) *retryer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if onEvent == nil {
		onEvent = func(AttemptEvent) {}
	}
	return &retryer{cfg: cfg, onEvent: onEvent}
}

func (r *retryer) run(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			r.onEvent(AttemptEvent{Attempt: attempt, Err: nil})
			return nil
		}
		lastErr = err

		retryable := true
		if ce, ok := model.AsClassified(err); ok {
			retryable = ce.Retryable
		}

		isLast := attempt == r.cfg.MaxAttempts-1
		if !retryable || isLast {
			r.onEvent(AttemptEvent{Attempt: attempt, Err: err})
			return err
		}

		delay := backoffDelay(r.cfg.InitialDelay, r.cfg.MaxDelay, attempt)
		r.onEvent(AttemptEvent{Attempt: attempt, Err: err, Delay: delay})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// backoffDelay computes initialDelay * 2^attempt, capped at maxDelay.
func backoffDelay(initial, max time.Duration, attempt int) time.Duration {
	d := initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
