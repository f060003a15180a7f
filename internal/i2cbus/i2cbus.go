// internal/i2cbus/i2cbus.go
package i2cbus

import (
	"tinygo.org/x/drivers"

	"github.com/tamzrod/stlink-bridge/internal/dispatch"
)

// Transactor is the part of the dispatcher the bus needs.
type Transactor interface {
	WriteI2c(addr uint16, data []byte) dispatch.I2cTransfer
	ReadI2c(addr uint16, buf []byte, count int) dispatch.I2cTransfer
}

// Bus runs stock tinygo drivers over the bridge I2C channel.
type Bus struct {
	t Transactor
}

var _ drivers.I2C = (*Bus)(nil)

func New(t Transactor) *Bus { return &Bus{t: t} }

// Tx writes w (if any) then reads len(r) bytes (if any).
// The bridge has no repeated start, so these are two transactions.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if res := b.t.WriteI2c(addr, w); res.Err != nil {
			return res.Err
		}
	}
	if len(r) > 0 {
		if res := b.t.ReadI2c(addr, r, len(r)); res.Err != nil {
			return res.Err
		}
	}
	return nil
}

// ---- scan ----

// First and last non-reserved 7-bit addresses.
const (
	ScanFirst uint16 = 0x08
	ScanLast  uint16 = 0x77
)

// Scan probes every non-reserved 7-bit address with a one-byte read
// and returns those that acknowledged.
func (b *Bus) Scan() []uint16 {
	var found []uint16
	var buf [1]byte
	for a := ScanFirst; a <= ScanLast; a++ {
		if b.t.ReadI2c(a, buf[:], 1).OK() {
			found = append(found, a)
		}
	}
	return found
}
