// internal/session/enumerate.go
package session

import (
	"iter"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Enumerate returns a lazy sequence of visible devices. Nothing is queried
// until the sequence is ranged over, and every range re-queries the link.
// A failed query yields a single zero descriptor with the error.
func (m *Manager) Enumerate() iter.Seq2[link.DeviceDescriptor, error] {
	return func(yield func(link.DeviceDescriptor, error) bool) {
		devs, err := m.List()
		if err != nil {
			yield(link.DeviceDescriptor{}, err)
			return
		}
		for _, d := range devs {
			if !yield(d, nil) {
				return
			}
		}
	}
}

// List queries the link once and returns a fresh slice.
func (m *Manager) List() ([]link.DeviceDescriptor, error) {
	m.hw.Lock()
	devs, st := m.link.EnumerateDevices(true)
	m.hw.Unlock()

	if st != link.StatusOK {
		return nil, &brgerr.E{C: brgerr.EnumerationFailed, Op: "session.enumerate", Status: st, Msg: brgerr.Text(st)}
	}
	return devs, nil
}
