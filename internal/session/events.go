// internal/session/events.go
package session

import "github.com/tamzrod/stlink-bridge/internal/link"

type EventKind uint8

const (
	EventDevicesChanged EventKind = iota + 1
	EventConnected
	EventDisconnected
	EventSessionLost
	EventWarning
)

func (k EventKind) String() string {
	switch k {
	case EventDevicesChanged:
		return "devices_changed"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventSessionLost:
		return "session_lost"
	case EventWarning:
		return "warning"
	}
	return "unknown"
}

// Event is delivered to observers. Fields not relevant to Kind are zero.
type Event struct {
	Kind    EventKind
	Info    Info
	Devices []link.DeviceDescriptor
	Err     error
}

// Subscribe registers fn for every event. Observers run on the goroutine
// that caused the event and must not call back into Connect or Disconnect.
// The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.observers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.observers, id)
	}
}

func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
