// internal/writer/mirror.go
package writer

import (
	"context"
	"time"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/poller"
	"github.com/tamzrod/stlink-bridge/internal/session"
	"github.com/tamzrod/stlink-bridge/internal/status"
)

// Mirror owns the status snapshot and feeds both writers.
// All state lives on the Run goroutine.
type Mirror struct {
	data   Writer
	status StatusWriter
	log    types.Logger

	// secondTick drives seconds_in_error; one second outside tests.
	secondTick time.Duration

	snap status.Snapshot
}

type MirrorOptions struct {
	Log types.Logger
}

func NewMirror(data Writer, sw StatusWriter, log types.Logger) *Mirror {
	return &Mirror{
		data:       data,
		status:     sw,
		log:        log,
		secondTick: time.Second,
		snap: status.Snapshot{
			Health:       status.HealthUnknown,
			SessionState: status.SessionDisconnected,
		},
	}
}

// Snapshot returns the current state. Only safe once Run has returned,
// or from the Run goroutine.
func (m *Mirror) Snapshot() status.Snapshot { return m.snap }

// Run blocks until ctx is done. A closed input is ignored from then on.
func (m *Mirror) Run(ctx context.Context, results <-chan poller.Result, events <-chan session.Event) {
	sec := time.NewTicker(m.secondTick)
	defer sec.Stop()

	// Full block write on start (identity re-assert).
	m.push("start")

	for {
		select {
		case <-ctx.Done():
			return

		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			// --- data delivery ---
			if err := m.data.Write(res); err != nil && m.log != nil {
				m.log.Warn().Str("session", res.SessionID).Err(err).Msg("mirror data write failed")
			}
			if m.applyResult(res) {
				m.push("poll")
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if m.applyEvent(ev) {
				m.push("event")
			}

		case <-sec.C:
			// Tick 1 Hz while in error. Never wraps.
			if m.snap.Health == status.HealthError && m.snap.SecondsInError < 65535 {
				m.snap.SecondsInError++
				m.push("seconds")
			}
		}
	}
}

func (m *Mirror) push(why string) {
	if err := m.status.WriteStatus(m.snap); err != nil && m.log != nil {
		m.log.Warn().Str("trigger", why).Err(err).Msg("mirror status write failed")
	}
}

// applyResult folds one poll into the snapshot and reports whether it changed.
func (m *Mirror) applyResult(res poller.Result) bool {
	next := m.snap
	next.PollIntervalMs = clampMs(res.Interval)

	r := res.Read
	switch {
	case !r.OK():
		next.Health = status.HealthError
		next.LastErrorCode = status.ErrorCode(r.Status)
		next.GpioErrors = uint16(link.GpioAll)

	case r.ErrorMask != 0:
		next.Health = status.HealthError
		next.LastErrorCode = status.ErrorCode(brgerr.GpioError)
		next.GpioErrors = uint16(r.ErrorMask)
		next.GpioValues = gpioBits(r.Values)

	default:
		// Recovery resets the error slots.
		next.Health = status.HealthOK
		next.LastErrorCode = 0
		next.SecondsInError = 0
		next.GpioErrors = 0
		next.GpioValues = gpioBits(r.Values)
	}

	changed := next != m.snap
	m.snap = next
	return changed
}

// applyEvent folds a session event into the snapshot.
func (m *Mirror) applyEvent(ev session.Event) bool {
	next := m.snap
	switch ev.Kind {
	case session.EventConnected:
		next = status.Snapshot{
			Health:       status.HealthStale,
			SessionState: status.SessionConnected,
		}

	case session.EventDisconnected:
		next = status.Snapshot{
			Health:       status.HealthDisabled,
			SessionState: status.SessionDisconnected,
		}

	case session.EventSessionLost:
		code := brgerr.NoDeviceFound
		if ev.Err != nil {
			code = brgerr.Of(ev.Err)
		}
		next.Health = status.HealthError
		next.SessionState = status.SessionDisconnected
		next.LastErrorCode = status.ErrorCode(code)
		next.GpioValues = 0
		next.GpioErrors = 0
		next.PollIntervalMs = 0

	case session.EventWarning:
		next.LastErrorCode = status.ErrorCode(brgerr.Of(ev.Err))

	default:
		return false
	}

	changed := next != m.snap
	m.snap = next
	return changed
}

func gpioBits(vals [link.GpioChannels]dispatch.GpioValue) uint16 {
	var out uint16
	for ch, v := range vals {
		if v == dispatch.GpioSet {
			out |= 1 << uint(ch)
		}
	}
	return out
}

func clampMs(d time.Duration) uint16 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > 65535 {
		return 65535
	}
	return uint16(ms)
}
