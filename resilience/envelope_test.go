package resilience

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seatsniper/engine/model"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestEnvelopeRetriesTransientFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.Timeout = time.Second
	env := New("test", cfg, testLogger())

	attempts := 0
	err := env.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return model.NewClassifiedError(model.CategoryServerError, "boom", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestEnvelopeDoesNotRetryNonRetryable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	env := New("test", cfg, testLogger())

	attempts := 0
	err := env.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return model.NewClassifiedError(model.CategoryAuthFailed, "nope", nil)
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 2
	cfg.MaxAttempts = 1 // isolate breaker behavior from retry behavior
	cfg.HalfOpenAfter = time.Hour
	env := New("test", cfg, testLogger())

	failing := func(ctx context.Context) error {
		return model.NewClassifiedError(model.CategoryServerError, "down", nil)
	}

	_ = env.Do(context.Background(), failing)
	_ = env.Do(context.Background(), failing)

	if env.CircuitState() != StateOpen {
		t.Fatalf("expected circuit open after 2 consecutive failures, got %s", env.CircuitState())
	}

	calls := 0
	err := env.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Fatalf("expected fail-fast: underlying call should not run while open")
	}
	var ce *model.ClassifiedError
	if !errors.As(err, &ce) || ce.Category != model.CategoryCircuitOpen {
		t.Fatalf("expected circuit_open error, got %v", err)
	}
}

func TestCircuitHalfOpenRecoversOnSuccess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threshold = 1
	cfg.MaxAttempts = 1
	cfg.HalfOpenAfter = 10 * time.Millisecond
	env := New("test", cfg, testLogger())

	_ = env.Do(context.Background(), func(ctx context.Context) error {
		return model.NewClassifiedError(model.CategoryServerError, "down", nil)
	})
	if env.CircuitState() != StateOpen {
		t.Fatalf("expected open")
	}

	time.Sleep(20 * time.Millisecond)

	err := env.Do(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("expected half-open probe to succeed, got %v", err)
	}
	if env.CircuitState() != StateClosed {
		t.Fatalf("expected closed after successful probe, got %s", env.CircuitState())
	}
}

func TestBulkheadRejectsOverflow(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, QueueSize: 0})

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.run(context.Background(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := b.run(context.Background(), func(ctx context.Context) error { return nil })
	close(release)

	if err == nil {
		t.Fatalf("expected bulkhead rejection while the single slot is occupied")
	}
	var ce *model.ClassifiedError
	if !errors.As(err, &ce) || ce.Category != model.CategoryBulkheadFull {
		t.Fatalf("expected bulkhead_full error, got %v", err)
	}
}

func TestBulkheadFullIsNotRetried(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialDelay = time.Millisecond
	env := New("test", cfg, testLogger())

	attempts := 0
	err := env.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return model.NewClassifiedError(model.CategoryBulkheadFull, "bulkhead queue full", nil)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("a saturated bulkhead must fail the call, not feed the retryer: got %d attempts", attempts)
	}
}

func TestTimeoutSurfacesDistinctError(t *testing.T) {
	err := withTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	var ce *model.ClassifiedError
	if !errors.As(err, &ce) || ce.Category != model.CategoryTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
