// internal/writer/types.go
package writer

import "github.com/tamzrod/stlink-bridge/internal/poller"

// Modbus table selectors understood by every endpoint client.
const (
	AreaCoils            byte = 1
	AreaHoldingRegisters byte = 3
)

// Plan is the fully-built mirror plan for one bridge.
type Plan struct {
	Endpoint string
	UnitID   uint8

	// BaseSlot selects the status block: registers
	// [BaseSlot*SlotsPerDevice, +SlotsPerDevice).
	BaseSlot uint16

	// CoilAddress is the first of four coils mirroring GPIO 0..3.
	CoilAddress uint16

	DeviceName string
}

// Writer writes poll results into the mirror.
type Writer interface {
	Write(res poller.Result) error
}
