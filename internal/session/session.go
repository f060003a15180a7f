// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/metrics"
)

// State of the single bridge session.
type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Token identifies one connected session. The zero Token never matches.
type Token uint64

// Info describes the connected session.
type Info struct {
	Device    link.DeviceDescriptor
	SessionID string
	Firmware  link.Version
	Token     Token

	// Warning is set when the device opened with a non-fatal status
	// (old firmware). The session is connected regardless.
	Warning error
}

// Participant is notified when the session ends, before the link closes.
type Participant interface {
	HandleDisconnect()
}

// Borrower lends the open device for exactly one call at a time.
type Borrower interface {
	Borrow(op string, fn func(link.Link) error) (Token, error)
	Valid(t Token) bool
}

type Options struct {
	Log     types.Logger
	Metrics metrics.Recorder
}

// Manager owns the only link handle and the connect/disconnect state machine.
//
// Two locks: mu guards state and is never held across a hardware call;
// hw is held for every hardware call so no two transactions overlap.
type Manager struct {
	link link.Link
	log  types.Logger
	met  metrics.Recorder

	hw sync.Mutex

	mu           sync.Mutex
	state        State
	info         Info
	gen          uint64
	participants map[int]Participant
	observers    map[int]func(Event)
	nextID       int
}

func New(l link.Link, opts Options) *Manager {
	return &Manager{
		link:         l,
		log:          opts.Log,
		met:          metrics.OrNop(opts.Metrics),
		participants: map[int]Participant{},
		observers:    map[int]func(Event){},
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the connected session, ok=false otherwise.
func (m *Manager) Current() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected {
		return Info{}, false
	}
	return m.info, true
}

// Register adds a participant. The returned func removes it.
func (m *Manager) Register(p Participant) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.participants[id] = p
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.participants, id)
	}
}

// ---- connect ----

// Connect opens the device with the given unique id.
// Already connected: returns the current session unchanged.
func (m *Manager) Connect(id string) (Info, error) {
	m.mu.Lock()
	switch m.state {
	case Connected:
		info := m.info
		m.mu.Unlock()
		return info, nil
	case Connecting:
		m.mu.Unlock()
		return Info{}, &brgerr.E{C: brgerr.Busy, Op: "session.connect", Msg: "connect already in progress"}
	}
	m.state = Connecting
	m.mu.Unlock()

	info, err := m.open(id)

	m.mu.Lock()
	if err != nil {
		m.state = Disconnected
		m.mu.Unlock()
		if m.log != nil {
			m.log.Warn().Str("device", id).Err(err).Msg("connect failed")
		}
		return Info{}, err
	}
	m.gen++
	info.Token = Token(m.gen)
	m.info = info
	m.state = Connected
	m.mu.Unlock()

	m.met.Connected(true)
	if m.log != nil {
		m.log.Info().Str("device", id).Str("session", info.SessionID).Str("firmware", FormatVersion(info.Firmware)).Msg("connected")
		if info.Warning != nil {
			m.log.Warn().Str("device", id).Err(info.Warning).Msg("connected with warning")
		}
	}
	m.emit(Event{Kind: EventConnected, Info: info})
	if info.Warning != nil {
		m.emit(Event{Kind: EventWarning, Info: info, Err: info.Warning})
	}
	return info, nil
}

func (m *Manager) open(id string) (Info, error) {
	m.hw.Lock()
	defer m.hw.Unlock()

	devs, st := m.link.EnumerateDevices(true)
	if st != link.StatusOK {
		return Info{}, &brgerr.E{C: brgerr.EnumerationFailed, Op: "session.enumerate", Status: st, Msg: brgerr.Text(st)}
	}
	dev, ok := find(devs, id)
	if !ok {
		return Info{}, &brgerr.E{C: brgerr.NoDeviceFound, Op: "session.connect", Msg: fmt.Sprintf("device %q not enumerated", id)}
	}
	if dev.InUse {
		return Info{}, &brgerr.E{C: brgerr.AlreadyInUse, Op: "session.connect", Msg: fmt.Sprintf("device %q claimed", id)}
	}

	var warn error
	st = m.link.OpenDevice(id)
	switch {
	case st == link.StatusOK:
	case brgerr.IsWarning(st):
		warn = brgerr.Hardware("session.open", st)
	default:
		return Info{}, connectError("session.open", st)
	}

	ver, vst := m.link.FirmwareVersion()
	if vst != link.StatusOK && m.log != nil {
		m.log.Debug().Str("device", id).Str("status", vst.String()).Msg("firmware version unavailable")
	}

	return Info{
		Device:    dev,
		SessionID: uuid.NewString(),
		Firmware:  ver,
		Warning:   warn,
	}, nil
}

// connectError narrows an open failure to the connection taxonomy.
func connectError(op string, st link.Status) error {
	c := brgerr.FromStatus(st)
	switch c {
	case brgerr.NoDeviceFound, brgerr.PermissionDenied, brgerr.EnumerationFailed, brgerr.ConnectionFailed:
	default:
		c = brgerr.ConnectionFailed
	}
	return &brgerr.E{C: c, Op: op, Status: st, Msg: brgerr.Text(st)}
}

func find(devs []link.DeviceDescriptor, id string) (link.DeviceDescriptor, bool) {
	for _, d := range devs {
		if d.UniqueID == id {
			return d, true
		}
	}
	return link.DeviceDescriptor{}, false
}

// ---- disconnect ----

// Disconnect tears the session down. The state is Disconnected afterwards
// even when the close calls fail; their errors are returned joined.
func (m *Manager) Disconnect() error {
	return m.disconnect(0, false)
}

// disconnect ends the session identified by expect (0 = any).
func (m *Manager) disconnect(expect Token, lost bool) error {
	m.mu.Lock()
	if m.state != Connected || (expect != 0 && m.info.Token != expect) {
		m.mu.Unlock()
		return nil
	}
	info := m.info
	m.state = Disconnected
	m.info = Info{}
	m.gen++
	parts := make([]Participant, 0, len(m.participants))
	for _, p := range m.participants {
		parts = append(parts, p)
	}
	m.mu.Unlock()

	// Participants stop their timers and drop caches first.
	for _, p := range parts {
		p.HandleDisconnect()
	}

	m.hw.Lock()
	pst := m.link.CloseProtocol(link.ProtocolAll)
	dst := m.link.CloseDevice()
	m.hw.Unlock()

	m.met.Connected(false)
	err := errors.Join(
		brgerr.Hardware("session.close_protocol", pst),
		brgerr.Hardware("session.close", dst),
	)

	if m.log != nil {
		ev := m.log.Info()
		if lost {
			ev = m.log.Warn()
		}
		ev.Str("device", info.Device.UniqueID).Str("session", info.SessionID).Err(err).Msg("disconnected")
	}

	kind := EventDisconnected
	if lost {
		kind = EventSessionLost
	}
	m.emit(Event{Kind: kind, Info: info, Err: err})
	return err
}

// ---- borrowing ----

// Borrow runs fn with exclusive access to the open device. It fails with
// NotConnected, without calling fn, unless a session is connected.
// The returned Token names the session fn ran in.
func (m *Manager) Borrow(op string, fn func(link.Link) error) (Token, error) {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return 0, &brgerr.E{C: brgerr.NotConnected, Op: op}
	}
	tok := m.info.Token
	m.mu.Unlock()

	m.hw.Lock()
	defer m.hw.Unlock()

	// The session may have ended while waiting for the device.
	if !m.Valid(tok) {
		return 0, &brgerr.E{C: brgerr.NotConnected, Op: op}
	}
	return tok, fn(m.link)
}

// Valid reports whether t still names the connected session.
func (m *Manager) Valid(t Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return t != 0 && m.state == Connected && m.info.Token == t
}

// ---- firmware ----

// NotConnectedVersion is shown when no session is open.
const NotConnectedVersion = "<N/C>"

// Firmware returns the firmware version string of the connected probe.
func (m *Manager) Firmware() string {
	info, ok := m.Current()
	if !ok {
		return NotConnectedVersion
	}
	return FormatVersion(info.Firmware)
}

// FormatVersion renders V<major>J<jtag>M<msc>B<bridge>S<swim>.
func FormatVersion(v link.Version) string {
	return fmt.Sprintf("V%dJ%dM%dB%dS%d", v.Major, v.Jtag, v.Msc, v.Bridge, v.Swim)
}
