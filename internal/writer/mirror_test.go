// internal/writer/mirror_test.go
package writer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/poller"
	"github.com/tamzrod/stlink-bridge/internal/session"
	"github.com/tamzrod/stlink-bridge/internal/status"
)

type snapRecorder struct {
	mu    sync.Mutex
	snaps []status.Snapshot
}

func (r *snapRecorder) WriteStatus(s status.Snapshot) error {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	return nil
}

func (r *snapRecorder) last() (status.Snapshot, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return status.Snapshot{}, 0
	}
	return r.snaps[len(r.snaps)-1], len(r.snaps)
}

type harness struct {
	rec     *snapRecorder
	coils   *fakeEndpointClient
	results chan poller.Result
	events  chan session.Event
	done    chan struct{}
}

func runMirror(t *testing.T, tick time.Duration) *harness {
	t.Helper()
	h := &harness{
		rec:     &snapRecorder{},
		coils:   &fakeEndpointClient{},
		results: make(chan poller.Result),
		events:  make(chan session.Event),
		done:    make(chan struct{}),
	}
	m := NewMirror(New(Plan{}, h.coils), h.rec, nil)
	m.secondTick = tick

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		m.Run(ctx, h.results, h.events)
		close(h.done)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) waitFor(t *testing.T, cond func(status.Snapshot) bool) status.Snapshot {
	t.Helper()
	var s status.Snapshot
	require.Eventually(t, func() bool {
		s, _ = h.rec.last()
		return cond(s)
	}, 2*time.Second, 2*time.Millisecond)
	return s
}

func TestMirror_StartWritesUnknown(t *testing.T) {
	h := runMirror(t, time.Hour)
	require.Eventually(t, func() bool { _, n := h.rec.last(); return n == 1 }, time.Second, time.Millisecond)
	s, _ := h.rec.last()
	assert.Equal(t, status.HealthUnknown, s.Health)
	assert.Equal(t, status.SessionDisconnected, s.SessionState)
}

func TestMirror_ConnectThenPoll(t *testing.T) {
	h := runMirror(t, time.Hour)

	h.events <- session.Event{Kind: session.EventConnected}
	s := h.waitFor(t, func(s status.Snapshot) bool { return s.SessionState == status.SessionConnected })
	assert.Equal(t, status.HealthStale, s.Health)

	res := okRead(dispatch.GpioSet, dispatch.GpioReset, dispatch.GpioSet, dispatch.GpioReset)
	res.Interval = 50 * time.Millisecond
	h.results <- res

	s = h.waitFor(t, func(s status.Snapshot) bool { return s.Health == status.HealthOK })
	assert.Equal(t, uint16(0b0101), s.GpioValues)
	assert.Equal(t, uint16(50), s.PollIntervalMs)
	assert.Zero(t, s.LastErrorCode)
}

func TestMirror_ErrorCountsSecondsAndRecovers(t *testing.T) {
	h := runMirror(t, 5*time.Millisecond)

	var bad poller.Result
	bad.Read.Status = brgerr.CommunicationError
	bad.Read.Err = brgerr.CommunicationError
	h.results <- bad

	s := h.waitFor(t, func(s status.Snapshot) bool { return s.SecondsInError >= 2 })
	assert.Equal(t, status.HealthError, s.Health)
	assert.Equal(t, status.ErrorCode(brgerr.CommunicationError), s.LastErrorCode)
	assert.Equal(t, uint16(link.GpioAll), s.GpioErrors)

	h.results <- okRead()
	s = h.waitFor(t, func(s status.Snapshot) bool { return s.Health == status.HealthOK })
	assert.Zero(t, s.SecondsInError)
	assert.Zero(t, s.GpioErrors)
}

func TestMirror_ChannelErrorBits(t *testing.T) {
	h := runMirror(t, time.Hour)

	res := okRead(dispatch.GpioReset, dispatch.GpioSet, dispatch.GpioError, dispatch.GpioReset)
	res.Read.ErrorMask = uint8(link.Gpio2)
	h.results <- res

	s := h.waitFor(t, func(s status.Snapshot) bool { return s.Health == status.HealthError })
	assert.Equal(t, uint16(link.Gpio2), s.GpioErrors)
	assert.Equal(t, uint16(0b0010), s.GpioValues)
	assert.Equal(t, status.ErrorCode(brgerr.GpioError), s.LastErrorCode)
}

func TestMirror_SessionLostAndDisconnect(t *testing.T) {
	h := runMirror(t, time.Hour)

	h.events <- session.Event{Kind: session.EventConnected}
	h.results <- okRead(dispatch.GpioSet)
	h.waitFor(t, func(s status.Snapshot) bool { return s.Health == status.HealthOK })

	h.events <- session.Event{Kind: session.EventSessionLost}
	s := h.waitFor(t, func(s status.Snapshot) bool { return s.SessionState == status.SessionDisconnected })
	assert.Equal(t, status.HealthError, s.Health)
	assert.Equal(t, status.ErrorCode(brgerr.NoDeviceFound), s.LastErrorCode)
	assert.Zero(t, s.GpioValues)

	h.events <- session.Event{Kind: session.EventDisconnected}
	s = h.waitFor(t, func(s status.Snapshot) bool { return s.Health == status.HealthDisabled })
	assert.Zero(t, s.LastErrorCode)
}

func TestMirror_IgnoresDevicesChanged(t *testing.T) {
	h := runMirror(t, time.Hour)
	require.Eventually(t, func() bool { _, n := h.rec.last(); return n == 1 }, time.Second, time.Millisecond)

	h.events <- session.Event{Kind: session.EventDevicesChanged}
	h.events <- session.Event{Kind: session.EventDevicesChanged}

	_, n := h.rec.last()
	assert.Equal(t, 1, n)
}
