// internal/metrics/metrics.go
package metrics

// Recorder receives bridge counters. Every component treats a nil Recorder
// as disabled, so callers never have to guard.
type Recorder interface {
	Connected(up bool)
	SessionLost()
	Hotplug(event string)

	// Transaction records one hardware transaction. code is the brgerr code
	// string ("ok" on success), n the bytes or channels transferred.
	Transaction(op string, code string, n int)

	// PollTick records a scheduler tick, dropped=true when it was skipped
	// because a previous read was still in flight.
	PollTick(dropped bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Connected(bool) {}
func (Nop) SessionLost() {}
func (Nop) Hotplug(string) {}
func (Nop) Transaction(string, string, int) {}
func (Nop) PollTick(bool) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}
