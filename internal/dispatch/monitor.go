// internal/dispatch/monitor.go
package dispatch

import (
	"strings"

	"github.com/tamzrod/stlink-bridge/internal/numbase"
)

// MonitorLine renders one I2C transaction for the operator's monitor:
//
//	WRITE (0x50): 0x01, 0x02, ACK OK
//	READ (0x50): 0x00, NACK
//
// A write lists every byte it attempted, NACKed or not. A read lists only
// the bytes received.
func MonitorLine(t I2cTransfer, write bool, base numbase.Base) string {
	var sb strings.Builder
	if write {
		sb.WriteString("WRITE (")
	} else {
		sb.WriteString("READ (")
	}
	sb.WriteString(numbase.Format(uint64(t.Address), base))
	sb.WriteString("): ")
	shown := t.Data
	if write && t.Sent != nil {
		shown = t.Sent
	}
	for _, b := range shown {
		sb.WriteString(numbase.Format(uint64(b), base))
		sb.WriteString(", ")
	}
	if t.OK() {
		sb.WriteString("ACK OK")
	} else {
		sb.WriteString("NACK")
	}
	return sb.String()
}
