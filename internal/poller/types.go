// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

// Reader is the one transaction the poller needs.
type Reader interface {
	ReadGpio(mask link.GpioMask) dispatch.GpioRead
}

// Session reports the open session, if any.
type Session interface {
	Current() (session.Info, bool)
	Valid(t session.Token) bool
}

// Result is produced by one poll tick.
// Read always carries its own status; a failed read is still a result.
type Result struct {
	SessionID string
	At        time.Time
	Interval  time.Duration
	Read      dispatch.GpioRead
}
