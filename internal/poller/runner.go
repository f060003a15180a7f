// internal/poller/runner.go
package poller

import (
	"context"
	"time"

	"github.com/tamzrod/stlink-bridge/internal/link"
)

// run is the ticker loop for one Start. No overlap. No retries.
func (s *Scheduler) run(ctx context.Context, gen uint64, sessionID string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(gen, sessionID, every)
		}
	}
}

// tick starts a read unless one is still outstanding.
func (s *Scheduler) tick(gen uint64, sessionID string, every time.Duration) {
	// Stopped while the tick was pending.
	if !s.current(gen) {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.met.PollTick(true)
		if s.log != nil {
			s.log.Trace().Str("session", sessionID).Msg("poll tick dropped")
		}
		return
	}
	s.met.PollTick(false)

	go func() {
		defer s.inFlight.Store(false)
		r := s.pollOnce(sessionID)
		r.Interval = every
		s.deliver(gen, r)
	}()
}

// pollOnce performs exactly one read of all channels.
func (s *Scheduler) pollOnce(sessionID string) Result {
	r := Result{SessionID: sessionID, At: time.Now()}
	r.Read = s.rd.ReadGpio(link.GpioAll)
	if s.log != nil {
		s.log.Trace().Str("session", sessionID).Str("code", string(r.Read.Status)).Msg("poll")
	}
	return r
}
