// internal/link/gpio.go
package link

// GpioChannels is the fixed number of bridge GPIO channels.
const GpioChannels = 4

// GpioMask selects channels in bulk operations. Bit n = channel n.
type GpioMask uint8

const (
	Gpio0   GpioMask = 0x01
	Gpio1   GpioMask = 0x02
	Gpio2   GpioMask = 0x04
	Gpio3   GpioMask = 0x08
	GpioAll GpioMask = 0x0F
)

// MaskOf returns the mask bit for a channel index.
// Out-of-range indices yield 0.
func MaskOf(channel int) GpioMask {
	if channel < 0 || channel >= GpioChannels {
		return 0
	}
	return GpioMask(1 << uint(channel))
}

// Single returns the channel index when exactly one bit is set.
func (m GpioMask) Single() (int, bool) {
	switch m {
	case Gpio0:
		return 0, true
	case Gpio1:
		return 1, true
	case Gpio2:
		return 2, true
	case Gpio3:
		return 3, true
	}
	return -1, false
}

// Has reports whether channel is selected.
func (m GpioMask) Has(channel int) bool {
	b := MaskOf(channel)
	return b != 0 && m&b != 0
}

// ---- hardware-facing enums (values are firmware-defined) ----

// GpioMode is the hardware mode value. Note the gap: there is no 2.
type GpioMode uint8

const (
	GpioModeInput  GpioMode = 0
	GpioModeOutput GpioMode = 1
	GpioModeAnalog GpioMode = 3
)

type GpioSpeed uint8

const (
	GpioSpeedLow GpioSpeed = iota
	GpioSpeedMedium
	GpioSpeedHigh
	GpioSpeedVeryHigh
)

type GpioPull uint8

const (
	GpioPullNone GpioPull = iota
	GpioPullUp
	GpioPullDown
)

type GpioOutputType uint8

const (
	GpioOutputPushPull GpioOutputType = iota
	GpioOutputOpenDrain
)

// GpioConf is the per-channel init record sent to InitGpio.
type GpioConf struct {
	Mode       GpioMode
	Speed      GpioSpeed
	Pull       GpioPull
	OutputType GpioOutputType
}

// GpioLevel is a raw pin level.
type GpioLevel uint8

const (
	GpioReset GpioLevel = 0
	GpioSet   GpioLevel = 1
)
