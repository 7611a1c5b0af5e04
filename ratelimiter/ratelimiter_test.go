package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestTryAcquireExhaustsBurst(t *testing.T) {
	l := New(Config{TokensPerInterval: 60, Interval: IntervalMinute, MaxTokens: 3})

	for i := 0; i < 3; i++ {
		if !l.TryAcquire() {
			t.Fatalf("expected token %d to be available from burst", i)
		}
	}
	if l.TryAcquire() {
		t.Fatalf("expected burst to be exhausted")
	}
}

func TestAcquireBlocksThenSucceeds(t *testing.T) {
	l := New(Config{TokensPerInterval: 1000, Interval: IntervalSecond, MaxTokens: 1})
	if !l.TryAcquire() {
		t.Fatalf("expected first token available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Fatalf("Acquire took too long for a 1000/s bucket")
	}
}

func TestAcquireRespectsCancellation(t *testing.T) {
	l := New(Config{TokensPerInterval: 1, Interval: IntervalHour, MaxTokens: 1})
	if !l.TryAcquire() {
		t.Fatalf("expected first token available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err == nil {
		t.Fatalf("expected context deadline error, got nil")
	}
}

func TestNewDailySmoothing(t *testing.T) {
	l := NewDaily(5000)
	// 5000/day / 1440 min/day ~= 3/min; burst = min(5*3, 50) = 15
	if l.cfg.TokensPerInterval != 3 {
		t.Fatalf("expected 3 tokens/minute, got %d", l.cfg.TokensPerInterval)
	}
	if l.cfg.MaxTokens != 15 {
		t.Fatalf("expected burst 15, got %d", l.cfg.MaxTokens)
	}
}

func TestNewDailyCapsBurstAtFifty(t *testing.T) {
	l := NewDaily(500000)
	if l.cfg.MaxTokens != 50 {
		t.Fatalf("expected burst capped at 50, got %d", l.cfg.MaxTokens)
	}
}
