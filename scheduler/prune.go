package scheduler

import (
	"context"
	"time"
)

const alertRingPruneCycleName = "alert_ring_prune"

// runAlertRingPrune drops in-memory alert records older than 24h.
func (s *Scheduler) runAlertRingPrune(ctx context.Context) {
	if !s.enterCycle(alertRingPruneCycleName) {
		return
	}
	defer s.exitCycle(alertRingPruneCycleName)

	before := s.ring.Len()
	s.ring.Prune(time.Now())
	s.log.Debug().Int("before", before).Int("after", s.ring.Len()).Msg("alert ring pruned")
}
