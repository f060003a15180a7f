// internal/timing/timing.go
package timing

import (
	"fmt"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Bounds are the inclusive rise/fall limits (ns) and the maximum bus
// frequency (kHz) for one speed class.
type Bounds struct {
	MaxRiseNs       int
	MaxFallNs       int
	MaxFrequencyKHz uint32
}

var bounds = map[link.I2cSpeed]Bounds{
	link.I2cStandard: {MaxRiseNs: 1000, MaxFallNs: 300, MaxFrequencyKHz: 100},
	link.I2cFast:     {MaxRiseNs: 300, MaxFallNs: 300, MaxFrequencyKHz: 400},
	link.I2cFastPlus: {MaxRiseNs: 120, MaxFallNs: 120, MaxFrequencyKHz: 1000},
}

// MaxDNF is the deepest digital noise filter.
const MaxDNF = 15

// BoundsFor returns the limits of a speed class.
func BoundsFor(s link.I2cSpeed) (Bounds, bool) {
	b, ok := bounds[s]
	return b, ok
}

// DefaultFrequencyKHz is the nominal frequency of a speed class.
func DefaultFrequencyKHz(s link.I2cSpeed) uint32 {
	return bounds[s].MaxFrequencyKHz
}

// Validate enforces the per-speed rise/fall bounds. Both bounds are inclusive.
func Validate(s link.I2cSpeed, riseNs, fallNs int) error {
	b, ok := bounds[s]
	if !ok {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "timing.validate", fmt.Sprintf("unknown speed class %d", s))
	}
	if riseNs < 0 || riseNs > b.MaxRiseNs {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "timing.validate",
			fmt.Sprintf("rise time %dns outside [0,%d] for %s", riseNs, b.MaxRiseNs, s))
	}
	if fallNs < 0 || fallNs > b.MaxFallNs {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "timing.validate",
			fmt.Sprintf("fall time %dns outside [0,%d] for %s", fallNs, b.MaxFallNs, s))
	}
	return nil
}

// ValidateRequest checks everything Compute needs before touching hardware.
func ValidateRequest(req link.TimingRequest) error {
	if err := Validate(req.Speed, int(req.RiseTimeNs), int(req.FallTimeNs)); err != nil {
		return err
	}
	b := bounds[req.Speed]
	if req.FrequencyKHz == 0 || req.FrequencyKHz > b.MaxFrequencyKHz {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "timing.validate",
			fmt.Sprintf("frequency %dkHz outside (0,%d] for %s", req.FrequencyKHz, b.MaxFrequencyKHz, req.Speed))
	}
	if req.DNF > MaxDNF {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "timing.validate",
			fmt.Sprintf("dnf %d outside [0,%d]", req.DNF, MaxDNF))
	}
	return nil
}

// Result is a derived timing register and the clocks it was derived from.
type Result struct {
	Register      uint32
	PeripheralKHz uint32
	BusKHz        uint32

	// Warning is set when the bridge applied a frequency that is not
	// exactly the requested one. The register is still usable.
	Warning error
}

// Compute validates req, reads the bridge clocks, then delegates the
// derivation to the link. Nothing is sent to hardware if validation fails.
func Compute(l link.Link, req link.TimingRequest) (Result, error) {
	if err := ValidateRequest(req); err != nil {
		return Result{}, err
	}

	periph, bus, st := l.ClockFrequencies(link.ProtocolI2C)
	if st != link.StatusOK {
		return Result{}, &brgerr.E{
			C:      brgerr.TimingUnavailable,
			Op:     "timing.clocks",
			Status: st,
			Msg:    brgerr.Text(st),
		}
	}

	reg, st := l.ComputeTimingRegister(req)
	res := Result{Register: reg, PeripheralKHz: periph, BusKHz: bus}
	switch {
	case st == link.StatusOK:
	case brgerr.IsWarning(st):
		res.Warning = brgerr.Hardware("timing.compute", st)
	default:
		return Result{}, &brgerr.E{
			C:      brgerr.TimingUnavailable,
			Op:     "timing.compute",
			Status: st,
			Msg: fmt.Sprintf("speed=%s freq=%dkHz rise=%dns fall=%dns anf=%t: %s",
				req.Speed, req.FrequencyKHz, req.RiseTimeNs, req.FallTimeNs, req.AnalogFilter, brgerr.Text(st)),
		}
	}
	return res, nil
}
