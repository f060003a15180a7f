// internal/link/sim/timing.go
package sim

import (
	"math"

	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Bus minima per speed class (ns): tLOW, tHIGH, tSU;DAT.
type classMin struct {
	low, high, suDat float64
}

var minima = map[link.I2cSpeed]classMin{
	link.I2cStandard: {low: 4700, high: 4000, suDat: 250},
	link.I2cFast:     {low: 1300, high: 600, suDat: 100},
	link.I2cFastPlus: {low: 500, high: 260, suDat: 50},
}

// analogFilterNs is the minimum delay added by the analog filter.
const analogFilterNs = 50

// deriveTiming packs PRESC<<28 | SCLDEL<<20 | SDADEL<<16 | SCLH<<8 | SCLL
// for an STM32-style I2C peripheral. The lowest prescaler that fits wins,
// so the result is deterministic for a given clock and request.
func deriveTiming(periphKHz uint32, req link.TimingRequest) (uint32, link.Status) {
	m, ok := minima[req.Speed]
	if !ok || periphKHz == 0 || req.FrequencyKHz == 0 {
		return 0, link.StatusParamErr
	}
	tclk := 1e6 / float64(periphKHz)
	period := 1e6 / float64(req.FrequencyKHz)
	rise := float64(req.RiseTimeNs)
	fall := float64(req.FallTimeNs)

	af := 0.0
	if req.AnalogFilter {
		af = analogFilterNs
	}
	dnf := float64(req.DNF) * tclk
	sync := af + dnf + 2*tclk

	for presc := 0; presc < 16; presc++ {
		tpresc := float64(presc+1) * tclk

		scldel := int(math.Ceil((rise+m.suDat)/tpresc)) - 1
		if scldel < 0 {
			scldel = 0
		}
		sdadel := int(math.Ceil((fall - af - dnf - 3*tclk) / tpresc))
		if sdadel < 0 {
			sdadel = 0
		}
		if scldel > 15 || sdadel > 15 {
			continue
		}

		cycles := int(math.Round((period - rise - fall - 2*sync) / tpresc))
		scll := int(math.Ceil(float64(cycles) * m.low / (m.low + m.high)))
		sclh := cycles - scll
		if scll < 1 || sclh < 1 || scll > 256 || sclh > 256 {
			continue
		}
		reg := uint32(presc)<<28 | uint32(scldel)<<20 | uint32(sdadel)<<16 |
			uint32(sclh-1)<<8 | uint32(scll-1)
		return reg, link.StatusOK
	}
	return 0, link.StatusComFreqNotSupported
}
