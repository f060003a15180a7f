// internal/status/snapshot.go
package status

// Snapshot represents exactly what the mirror is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health         uint16
	LastErrorCode  uint16
	SecondsInError uint16
	SessionState   uint16
	GpioValues     uint16
	GpioErrors     uint16
	PollIntervalMs uint16
}

// Slots returns the live slots in layout order.
func (s Snapshot) Slots() [LiveSlots]uint16 {
	return [LiveSlots]uint16{
		SlotHealthCode:     s.Health,
		SlotLastErrorCode:  s.LastErrorCode,
		SlotSecondsInError: s.SecondsInError,
		SlotSessionState:   s.SessionState,
		SlotGpioValues:     s.GpioValues,
		SlotGpioErrors:     s.GpioErrors,
		SlotPollIntervalMs: s.PollIntervalMs,
	}
}
