// internal/link/i2c.go
package link

// I2cSpeed is the bus speed class.
type I2cSpeed uint8

const (
	I2cStandard I2cSpeed = iota // up to 100 kHz
	I2cFast                     // up to 400 kHz
	I2cFastPlus                 // up to 1 MHz
)

func (s I2cSpeed) String() string {
	switch s {
	case I2cStandard:
		return "standard"
	case I2cFast:
		return "fast"
	case I2cFastPlus:
		return "fast_plus"
	}
	return "unknown"
}

// I2cAddrMode is the addressing width.
type I2cAddrMode uint8

const (
	I2cAddr7Bit I2cAddrMode = iota
	I2cAddr10Bit
)

// TimingRequest is threaded unchanged into ComputeTimingRegister.
type TimingRequest struct {
	Speed        I2cSpeed
	FrequencyKHz uint32
	DNF          uint8
	RiseTimeNs   uint16
	FallTimeNs   uint16
	AnalogFilter bool
}

// I2cInit is the record sent to InitI2c.
type I2cInit struct {
	TimingReg     uint32
	OwnAddr       uint16
	AddrMode      I2cAddrMode
	AnalogFilter  bool
	DigitalFilter bool
	DNF           uint8
}

// I2cMaxTransfer bounds a single read or write.
const I2cMaxTransfer = 4096
