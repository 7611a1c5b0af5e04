package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/seatsniper/engine/model"
)

// BreakerState is one of the three consecutive-failure breaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig configures the consecutive-failure breaker.
type BreakerConfig struct {
	Threshold     int           // consecutive failures before tripping
	HalfOpenAfter time.Duration // how long Open holds before probing
}

// StateChangeEvent is emitted whenever the breaker transitions state.
type StateChangeEvent struct {
	From BreakerState
	To   BreakerState
	At   time.Time
}

// CircuitBreaker is a consecutive-failure breaker: Closed -> (K consecutive
// fails) -> Open -> (after halfOpenAfter) -> HalfOpen -> (success) -> Closed
// | (fail) -> Open. State transitions are observable via OnStateChange and
// are guarded by a single small mutex.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu               sync.Mutex
	state            BreakerState
	consecutiveFails int
	openedAt         time.Time

	onStateChange func(StateChangeEvent)
}

// NewCircuitBreaker builds a breaker starting Closed.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold < 1 {
		cfg.Threshold = 1
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// OnStateChange registers a callback invoked on every transition. Not safe
// to call concurrently with Allow/RecordSuccess/RecordFailure.
func (b *CircuitBreaker) OnStateChange(cb func(StateChangeEvent)) {
	b.onStateChange = cb
}

// State returns the breaker's current state, resolving an expired Open
// window into HalfOpen as a side effect — the Open-to-HalfOpen transition
// is time-driven rather than triggered by an explicit timer.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *CircuitBreaker) stateLocked() BreakerState {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.HalfOpenAfter {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *CircuitBreaker) transitionLocked(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if to == StateOpen {
		b.openedAt = time.Now()
	}
	if b.onStateChange != nil {
		cb := b.onStateChange
		event := StateChangeEvent{From: from, To: to, At: time.Now()}
		go cb(event)
	}
}

// allow reports whether a call may proceed right now.
func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked() != StateOpen
}

// recordSuccess closes the breaker (from Closed or HalfOpen) and resets the
// consecutive failure counter.
func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFails = 0
	b.transitionLocked(StateClosed)
}

// recordFailure increments the consecutive-failure counter and trips the
// breaker to Open once the threshold is reached, or immediately on any
// failure observed while HalfOpen.
func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transitionLocked(StateOpen)
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.cfg.Threshold {
		b.transitionLocked(StateOpen)
	}
}

func (b *CircuitBreaker) run(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return model.NewClassifiedError(model.CategoryCircuitOpen, "circuit open", model.ErrCircuitOpen)
	}

	err := fn(ctx)
	if err == nil {
		b.recordSuccess()
		return nil
	}
	b.recordFailure()
	return err
}
