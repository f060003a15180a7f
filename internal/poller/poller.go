// internal/poller/poller.go
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/metrics"
)

// MinInterval is the shortest accepted poll period.
const MinInterval = 10 * time.Millisecond

type Options struct {
	Log     types.Logger
	Metrics metrics.Recorder
}

// Scheduler is a dumb, clock-driven GPIO reader.
// At most one read is in flight; ticks that find one outstanding are dropped.
type Scheduler struct {
	rd   Reader
	sess Session
	log  types.Logger
	met  metrics.Recorder

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	interval time.Duration
	subs     map[int]func(Result)
	nextSub  int

	inFlight atomic.Bool
}

func New(rd Reader, sess Session, opts Options) *Scheduler {
	return &Scheduler{
		rd:   rd,
		sess: sess,
		log:  opts.Log,
		met:  metrics.OrNop(opts.Metrics),
		subs: map[int]func(Result){},
	}
}

// Start arms the timer, replacing any running one.
// An invalid interval also stops polling.
func (s *Scheduler) Start(intervalMs int) error {
	every := time.Duration(intervalMs) * time.Millisecond
	if intervalMs <= 0 || every < MinInterval {
		s.Stop()
		return brgerr.Param(brgerr.InvalidInterval, "poll.start",
			fmt.Sprintf("%d ms, need at least %d ms", intervalMs, MinInterval.Milliseconds()))
	}

	info, ok := s.sess.Current()
	if !ok {
		return &brgerr.E{C: brgerr.NotConnected, Op: "poll.start"}
	}

	s.mu.Lock()
	s.stopLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.interval = every
	gen := s.gen
	s.mu.Unlock()

	// A disconnect between Current and arming has already run
	// HandleDisconnect; undo the arm ourselves.
	if !s.sess.Valid(info.Token) {
		s.mu.Lock()
		if s.gen == gen {
			s.stopLocked()
		}
		s.mu.Unlock()
		return &brgerr.E{C: brgerr.NotConnected, Op: "poll.start"}
	}

	if s.log != nil {
		s.log.Info().Str("session", info.SessionID).Int("interval_ms", intervalMs).Msg("polling started")
	}
	go s.run(ctx, gen, info.SessionID, every)
	return nil
}

// Stop is idempotent. A read already on the wire completes but its
// result is discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	was := s.cancel != nil
	s.stopLocked()
	s.mu.Unlock()

	if was && s.log != nil {
		s.log.Info().Msg("polling stopped")
	}
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// Running reports whether the timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// Interval returns the active period, zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return 0
	}
	return s.interval
}

// HandleDisconnect stops polling when the session ends.
func (s *Scheduler) HandleDisconnect() { s.Stop() }

// ---- observers ----

// Subscribe registers fn for every delivered result.
// fn runs on the poll goroutine and must not block for long.
func (s *Scheduler) Subscribe(fn func(Result)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Results returns a buffered channel fed with results.
// A full channel drops the result rather than stalling the poller.
func (s *Scheduler) Results(buf int) (<-chan Result, func()) {
	ch := make(chan Result, buf)
	cancel := s.Subscribe(func(r Result) {
		select {
		case ch <- r:
		default:
		}
	})
	return ch, cancel
}

func (s *Scheduler) deliver(gen uint64, r Result) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if s.log != nil {
			s.log.Debug().Str("session", r.SessionID).Msg("discarding late poll result")
		}
		return
	}
	fns := make([]func(Result), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(r)
	}
}
