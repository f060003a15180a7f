// internal/dispatch/types.go
package dispatch

import (
	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
)

// GpioValue is the logical state of one channel after a read.
type GpioValue uint8

const (
	GpioReset GpioValue = iota
	GpioSet
	GpioError
)

func (v GpioValue) String() string {
	switch v {
	case GpioReset:
		return "RESET"
	case GpioSet:
		return "SET"
	}
	return "ERROR"
}

// Result is returned by every transaction, failed or not.
type Result struct {
	Status brgerr.Code
	Err    error

	// ErrorMask has a bit per failed channel (GPIO).
	ErrorMask uint8

	// Transferred counts bytes (I2C) or channels (GPIO) that completed,
	// including those moved before a failure.
	Transferred int
}

func (r Result) OK() bool { return r.Err == nil }

func result(err error) Result {
	return Result{Status: brgerr.Of(err), Err: err}
}

// GpioRead carries the values of all four channels. Mask records which
// channels the caller asked about; all four are always read.
type GpioRead struct {
	Result
	Mask   link.GpioMask
	Values [link.GpioChannels]GpioValue
}

// I2cTransfer carries the bytes that actually moved.
// Sent is the full payload a write attempted; it is nil for reads.
type I2cTransfer struct {
	Result
	Address uint16
	Data    []byte
	Sent    []byte
}
