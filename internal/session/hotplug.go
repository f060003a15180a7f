// internal/session/hotplug.go
package session

// HandleHotplugArrival re-enumerates so observers see the new device list.
// The session state is never changed here.
func (m *Manager) HandleHotplugArrival() {
	m.met.Hotplug("arrival")
	devs, err := m.List()
	m.emit(Event{Kind: EventDevicesChanged, Devices: devs, Err: err})
}

// HandleHotplugRemoval re-enumerates and, when the connected device is no
// longer visible, forces a disconnect and reports the session as lost.
// A removal of some other device leaves the session alone.
func (m *Manager) HandleHotplugRemoval() {
	m.met.Hotplug("removal")
	devs, err := m.List()
	m.emit(Event{Kind: EventDevicesChanged, Devices: devs, Err: err})

	info, ok := m.Current()
	if !ok {
		return
	}
	if err != nil {
		// Cannot tell which device left; keep the session.
		if m.log != nil {
			m.log.Warn().Str("device", info.Device.UniqueID).Err(err).Msg("removal check skipped")
		}
		return
	}
	if _, present := find(devs, info.Device.UniqueID); present {
		if m.log != nil {
			m.log.Debug().Str("device", info.Device.UniqueID).Msg("removed device was not the connected one")
		}
		return
	}

	m.met.SessionLost()
	_ = m.disconnect(info.Token, true)
}

// OnArrival and OnRemoval let the Manager serve as a hotplug handler.
func (m *Manager) OnArrival() { m.HandleHotplugArrival() }
func (m *Manager) OnRemoval() { m.HandleHotplugRemoval() }
