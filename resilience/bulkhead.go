package resilience

import (
	"context"

	"github.com/seatsniper/engine/model"
)

// BulkheadConfig bounds concurrency for a single adapter.
type BulkheadConfig struct {
	MaxConcurrent int
	QueueSize     int // bounded wait queue beyond the concurrent slots
}

// Bulkhead limits the number of in-flight calls, with a bounded wait
// queue for callers that arrive while all slots are taken. One Bulkhead
// guards one adapter; there is no cross-adapter sharing.
type Bulkhead struct {
	slots chan struct{}
	queue chan struct{}
}

// NewBulkhead builds a bulkhead with cfg.MaxConcurrent concurrent slots and
// a wait queue of cfg.QueueSize additional callers.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	// queue admits running and waiting callers alike, so it holds the
	// concurrent slots plus the wait queue.
	return &Bulkhead{
		slots: make(chan struct{}, cfg.MaxConcurrent),
		queue: make(chan struct{}, cfg.MaxConcurrent+cfg.QueueSize),
	}
}

func (b *Bulkhead) run(ctx context.Context, fn func(context.Context) error) error {
	select {
	case b.queue <- struct{}{}:
	default:
		return model.NewClassifiedError(model.CategoryBulkheadFull, "bulkhead queue full", model.ErrBulkheadRejected)
	}
	defer func() { <-b.queue }()

	select {
	case b.slots <- struct{}{}:
	case <-ctx.Done():
		return model.NewClassifiedError(model.CategoryTimeout, "cancelled while waiting for bulkhead slot", ctx.Err())
	}
	defer func() { <-b.slots }()

	return fn(ctx)
}

// InFlight reports the number of calls currently holding a concurrency slot.
func (b *Bulkhead) InFlight() int {
	return len(b.slots)
}

// Queued reports the number of calls currently waiting for a slot.
func (b *Bulkhead) Queued() int {
	if n := len(b.queue) - len(b.slots); n > 0 {
		return n
	}
	return 0
}
