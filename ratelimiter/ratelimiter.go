// Package ratelimiter implements the token-bucket gate that every outbound
// adapter call passes through before it reaches the network.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Interval is the refill cadence a Limiter is configured against.
type Interval string

const (
	IntervalSecond Interval = "second"
	IntervalMinute Interval = "minute"
	IntervalHour   Interval = "hour"
	IntervalDay    Interval = "day"
)

func (iv Interval) duration() time.Duration {
	switch iv {
	case IntervalSecond:
		return time.Second
	case IntervalMinute:
		return time.Minute
	case IntervalHour:
		return time.Hour
	case IntervalDay:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Config describes a token bucket: tokensPerInterval tokens are added every
// Interval, up to a burst ceiling of MaxTokens.
type Config struct {
	TokensPerInterval int
	Interval          Interval
	MaxTokens         int
}

// Limiter is a continuous-fractional-refill token bucket. It wraps
// golang.org/x/time/rate, whose Allow()/WaitN() already implement
// "refill continuously, consume greedily" semantics; this type adds the
// tryAcquire/acquire vocabulary and a per-interval configuration shape.
type Limiter struct {
	cfg     Config
	limiter *rate.Limiter
}

// New builds a Limiter from cfg. MaxTokens must be >= 1; TokensPerInterval
// must be >= 1.
func New(cfg Config) *Limiter {
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 1
	}
	if cfg.TokensPerInterval < 1 {
		cfg.TokensPerInterval = 1
	}
	perSecond := float64(cfg.TokensPerInterval) / cfg.Interval.duration().Seconds()
	return &Limiter{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perSecond), cfg.MaxTokens),
	}
}

// NewDaily smooths a daily quota into per-minute buckets with
// burst = min(5x per-minute, 50).
func NewDaily(tokensPerDay int) *Limiter {
	perMinute := tokensPerDay / (24 * 60)
	if perMinute < 1 {
		perMinute = 1
	}
	burst := perMinute * 5
	if burst > 50 {
		burst = 50
	}
	if burst < 1 {
		burst = 1
	}
	return New(Config{TokensPerInterval: perMinute, Interval: IntervalMinute, MaxTokens: burst})
}

// TryAcquire attempts to consume one token without blocking. It returns
// false immediately if fewer than one token is currently available.
func (l *Limiter) TryAcquire() bool {
	return l.limiter.Allow()
}

// Acquire blocks until at least one token is available, then consumes it.
// It returns ctx.Err() if the context is cancelled before a token frees up.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Tokens reports the current (possibly fractional) token count, for
// diagnostics and health endpoints.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
