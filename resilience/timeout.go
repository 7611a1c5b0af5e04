package resilience

import (
	"context"
	"time"

	"github.com/seatsniper/engine/model"
)

// withTimeout runs fn under a derived context that is cancelled after d.
// If fn does not return before the deadline, it surfaces a distinct timeout
// error; fn's own goroutine is left to observe ctx.Done() and return on its
// own, since the envelope never force-kills it.
func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return model.NewClassifiedError(model.CategoryTimeout, "call exceeded timeout", ctx.Err())
	}
}
