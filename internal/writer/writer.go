// internal/writer/writer.go
package writer

import (
	"fmt"

	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/poller"
)

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

// gpioWriter mirrors the four GPIO values into coils.
// Coils are written only when a value changed or the last write failed.
type gpioWriter struct {
	plan Plan
	cli  endpointClient

	have bool
	last [link.GpioChannels]bool
}

func New(plan Plan, cli endpointClient) Writer {
	return &gpioWriter{plan: plan, cli: cli}
}

func (w *gpioWriter) Write(res poller.Result) error {
	// A failed read carries no values; the status block reports it.
	if !res.Read.OK() {
		return nil
	}
	if w.cli == nil {
		return fmt.Errorf("writer: missing client for endpoint %s", w.plan.Endpoint)
	}

	var bits [link.GpioChannels]bool
	for ch, v := range res.Read.Values {
		bits[ch] = v == dispatch.GpioSet
	}
	if w.have && bits == w.last {
		return nil
	}

	if err := w.cli.WriteBits(AreaCoils, w.plan.UnitID, w.plan.CoilAddress, bits[:]); err != nil {
		w.have = false
		return fmt.Errorf(
			"writer: ep=%s unit=%d coils=%d err=%w",
			w.plan.Endpoint, w.plan.UnitID, w.plan.CoilAddress, err,
		)
	}
	w.have = true
	w.last = bits
	return nil
}
