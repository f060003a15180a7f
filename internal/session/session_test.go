// internal/session/session_test.go
package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/link/sim"
)

// ---- helpers ----

type countingParticipant struct {
	mu    sync.Mutex
	calls int
}

func (p *countingParticipant) HandleDisconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
}

func (p *countingParticipant) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) on(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func connected(t *testing.T, ids ...string) (*Manager, *sim.Bridge) {
	t.Helper()
	devs := make([]link.DeviceDescriptor, len(ids))
	for i, id := range ids {
		devs[i] = sim.Device(id)
	}
	b := sim.New(devs...)
	m := New(b, Options{})
	_, err := m.Connect(ids[0])
	require.NoError(t, err)
	require.Equal(t, Connected, m.State())
	return m, b
}

// ---- enumerate ----

func TestEnumerate_LazyAndRestartable(t *testing.T) {
	b := sim.New(sim.Device("A1"), sim.Device("B2"))
	m := New(b, Options{})

	seq := m.Enumerate()
	assert.Equal(t, 0, b.Calls(sim.OpEnumerate), "nothing queried before ranging")

	var first []string
	for d, err := range seq {
		require.NoError(t, err)
		first = append(first, d.UniqueID)
	}
	assert.Equal(t, []string{"A1", "B2"}, first)

	b.SetDevices(sim.Device("C3"))
	var second []string
	for d, err := range seq {
		require.NoError(t, err)
		second = append(second, d.UniqueID)
	}
	assert.Equal(t, []string{"C3"}, second)
	assert.Equal(t, 2, b.Calls(sim.OpEnumerate))
}

func TestEnumerate_Failure(t *testing.T) {
	b := sim.New(sim.Device("A1"))
	b.Fail(sim.OpEnumerate, link.StatusEnumErr)
	m := New(b, Options{})

	n := 0
	for _, err := range m.Enumerate() {
		n++
		assert.Equal(t, brgerr.EnumerationFailed, brgerr.Of(err))
	}
	assert.Equal(t, 1, n)
}

// ---- connect ----

func TestConnect_Errors(t *testing.T) {
	inUse := sim.Device("BUSY")
	inUse.InUse = true

	cases := []struct {
		name  string
		id    string
		fault link.Status
		want  brgerr.Code
	}{
		{"unknown id", "ZZ", link.StatusOK, brgerr.NoDeviceFound},
		{"claimed", "BUSY", link.StatusOK, brgerr.AlreadyInUse},
		{"permission", "A1", link.StatusPermissionErr, brgerr.PermissionDenied},
		{"transport", "A1", link.StatusUSBCommErr, brgerr.ConnectionFailed},
		{"generic", "A1", link.StatusConnectErr, brgerr.ConnectionFailed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := sim.New(sim.Device("A1"), inUse)
			if c.fault != link.StatusOK {
				b.Fail(sim.OpOpen, c.fault)
			}
			m := New(b, Options{})

			_, err := m.Connect(c.id)
			require.Error(t, err)
			assert.Equal(t, c.want, brgerr.Of(err))
			assert.Equal(t, Disconnected, m.State())
			assert.Equal(t, NotConnectedVersion, m.Firmware())
		})
	}
}

func TestConnect_OldFirmwareIsWarning(t *testing.T) {
	b := sim.New(sim.Device("A1"))
	b.SetOpenStatus(link.StatusOldFirmwareWarning)
	m := New(b, Options{})
	rec := &recorder{}
	m.Subscribe(rec.on)

	info, err := m.Connect("A1")
	require.NoError(t, err)
	assert.Equal(t, Connected, m.State())
	require.Error(t, info.Warning)
	assert.Equal(t, brgerr.OldFirmwareWarning, brgerr.Of(info.Warning))
	assert.Equal(t, []EventKind{EventConnected, EventWarning}, rec.kinds())
}

func TestConnect_AlreadyConnectedIsNoop(t *testing.T) {
	m, b := connected(t, "A1")
	first, _ := m.Current()

	again, err := m.Connect("A1")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, again.SessionID)
	assert.Equal(t, 1, b.Calls(sim.OpOpen))
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "V3J7M1B1S0", m.Firmware())
}

// slowOpen blocks OpenDevice until released.
type slowOpen struct {
	*sim.Bridge
	entered chan struct{}
	release chan struct{}
}

func (s *slowOpen) OpenDevice(id string) link.Status {
	close(s.entered)
	<-s.release
	return s.Bridge.OpenDevice(id)
}

func TestConnect_ConcurrentAttemptIsBusy(t *testing.T) {
	l := &slowOpen{Bridge: sim.New(sim.Device("A1")), entered: make(chan struct{}), release: make(chan struct{})}
	m := New(l, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect("A1")
		done <- err
	}()

	<-l.entered
	assert.Equal(t, Connecting, m.State())
	_, err := m.Connect("A1")
	assert.Equal(t, brgerr.Busy, brgerr.Of(err))

	close(l.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not finish")
	}
	assert.Equal(t, Connected, m.State())
}

// ---- disconnect ----

func TestDisconnect_NotifiesAndCloses(t *testing.T) {
	m, b := connected(t, "A1")
	p := &countingParticipant{}
	m.Register(p)
	rec := &recorder{}
	m.Subscribe(rec.on)

	require.NoError(t, m.Disconnect())
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, 1, b.Calls(sim.OpCloseProt))
	assert.Equal(t, 1, b.Calls(sim.OpClose))
	assert.Equal(t, "", b.OpenID())
	assert.Equal(t, []EventKind{EventDisconnected}, rec.kinds())

	// idempotent
	require.NoError(t, m.Disconnect())
	assert.Equal(t, 1, p.Calls())
}

func TestDisconnect_BestEffortOnCloseError(t *testing.T) {
	m, b := connected(t, "A1")
	b.Fail(sim.OpCloseProt, link.StatusComInitNotDone)
	b.Fail(sim.OpClose, link.StatusCloseErr)

	err := m.Disconnect()
	require.Error(t, err)
	assert.ErrorIs(t, err, brgerr.CloseFailed)
	assert.ErrorIs(t, err, brgerr.SequenceError)
	assert.Equal(t, Disconnected, m.State())
}

func TestRegister_Unregister(t *testing.T) {
	m, _ := connected(t, "A1")
	p := &countingParticipant{}
	unregister := m.Register(p)
	unregister()

	require.NoError(t, m.Disconnect())
	assert.Equal(t, 0, p.Calls())
}

// ---- borrow ----

func TestBorrow_RequiresConnected(t *testing.T) {
	b := sim.New(sim.Device("A1"))
	m := New(b, Options{})

	called := false
	_, err := m.Borrow("gpio.read", func(link.Link) error {
		called = true
		return nil
	})
	assert.Equal(t, brgerr.NotConnected, brgerr.Of(err))
	assert.False(t, called)
}

func TestBorrow_TokenInvalidatedByDisconnect(t *testing.T) {
	m, _ := connected(t, "A1")

	tok, err := m.Borrow("x", func(link.Link) error { return nil })
	require.NoError(t, err)
	assert.True(t, m.Valid(tok))

	require.NoError(t, m.Disconnect())
	assert.False(t, m.Valid(tok))

	_, err = m.Connect("A1")
	require.NoError(t, err)
	assert.False(t, m.Valid(tok), "a new session gets a new token")
	assert.False(t, m.Valid(0))
}

// ---- hotplug ----

func TestHotplugArrival_EmitsDevicesOnly(t *testing.T) {
	b := sim.New(sim.Device("A1"))
	m := New(b, Options{})
	rec := &recorder{}
	m.Subscribe(rec.on)

	b.SetDevices(sim.Device("A1"), sim.Device("B2"))
	m.HandleHotplugArrival()

	require.Equal(t, []EventKind{EventDevicesChanged}, rec.kinds())
	assert.Len(t, rec.events[0].Devices, 2)
	assert.Equal(t, Disconnected, m.State())
}

func TestHotplugRemoval_OtherDeviceKeepsSession(t *testing.T) {
	m, b := connected(t, "A1", "B2")
	p := &countingParticipant{}
	m.Register(p)

	b.SetDevices(sim.Device("A1"))
	m.HandleHotplugRemoval()

	assert.Equal(t, Connected, m.State())
	assert.Equal(t, 0, p.Calls())
}

func TestHotplugRemoval_ConnectedDeviceGone(t *testing.T) {
	m, b := connected(t, "A1", "B2")
	p := &countingParticipant{}
	m.Register(p)
	rec := &recorder{}
	m.Subscribe(rec.on)

	b.SetDevices(sim.Device("B2"))
	m.HandleHotplugRemoval()

	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, []EventKind{EventDevicesChanged, EventSessionLost}, rec.kinds())

	// a second removal is a no-op
	m.OnRemoval()
	assert.Equal(t, 1, p.Calls())
}

func TestHotplugRemoval_EnumerationFailureKeepsSession(t *testing.T) {
	m, b := connected(t, "A1")
	b.Fail(sim.OpEnumerate, link.StatusUSBCommErr)

	m.HandleHotplugRemoval()
	assert.Equal(t, Connected, m.State())
}
