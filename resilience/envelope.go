package resilience

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Config is the full resilience envelope configuration.
type Config struct {
	Threshold     int
	HalfOpenAfter time.Duration
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	Timeout       time.Duration
	MaxConcurrent int
	QueueSize     int
}

// DefaultConfig returns reasonable envelope defaults for a marketplace adapter.
func DefaultConfig() Config {
	return Config{
		Threshold:     5,
		HalfOpenAfter: 30 * time.Second,
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		Timeout:       10 * time.Second,
		MaxConcurrent: 5,
		QueueSize:     10,
	}
}

// Envelope composes timeout -> retry -> circuitBreaker -> bulkhead ->
// actualCall, outermost to innermost: the timeout bounds total wall time
// including retries; retries occur inside the outer deadline; the breaker
// accumulates failures across retry attempts; the bulkhead limits
// concurrent in-flight calls.
type Envelope struct {
	cfg     Config
	breaker *CircuitBreaker
	bulk    *Bulkhead
	retryer *retryer
	logger  zerolog.Logger
}

// New builds an Envelope. name is used only to tag log lines (e.g. the
// adapter this envelope protects).
func New(name string, cfg Config, logger zerolog.Logger) *Envelope {
	log := logger.With().Str("component", "resilience").Str("target", name).Logger()

	breaker := NewCircuitBreaker(BreakerConfig{Threshold: cfg.Threshold, HalfOpenAfter: cfg.HalfOpenAfter})
	breaker.OnStateChange(func(ev StateChangeEvent) {
		log.Warn().Str("from", string(ev.From)).Str("to", string(ev.To)).Msg("circuit breaker state change")
	})

	e := &Envelope{
		cfg:     cfg,
		breaker: breaker,
		bulk:    NewBulkhead(BulkheadConfig{MaxConcurrent: cfg.MaxConcurrent, QueueSize: cfg.QueueSize}),
		logger:  log,
	}
	e.retryer = newRetryer(RetryConfig{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
	}, func(ev AttemptEvent) {
		if ev.Err != nil {
			log.Debug().Int("attempt", ev.Attempt).Err(ev.Err).Dur("next_delay", ev.Delay).Msg("adapter call attempt failed")
		}
	})
	return e
}

// Do runs fn through the full envelope.
func (e *Envelope) Do(ctx context.Context, fn func(context.Context) error) error {
	return withTimeout(ctx, e.cfg.Timeout, func(ctx context.Context) error {
		return e.retryer.run(ctx, func(ctx context.Context) error {
			return e.breaker.run(ctx, func(ctx context.Context) error {
				return e.bulk.run(ctx, fn)
			})
		})
	})
}

// CircuitState exposes the breaker's current state for health reporting.
func (e *Envelope) CircuitState() BreakerState {
	return e.breaker.State()
}

// InFlight exposes the bulkhead's current concurrency for health reporting.
func (e *Envelope) InFlight() int {
	return e.bulk.InFlight()
}
