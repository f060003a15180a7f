// internal/link/link.go
package link

// Link is the synchronous call surface of the bridge link layer.
// Every call may block up to the protocol timeout.
// Implementations are NOT required to be safe for concurrent use:
// the session owns the only Link and serializes access to it.
type Link interface {
	// EnumerateDevices lists visible bridge devices.
	// refresh=true forces the link layer to rescan the bus.
	EnumerateDevices(refresh bool) ([]DeviceDescriptor, Status)

	OpenDevice(id string) Status
	CloseDevice() Status

	// CloseProtocol closes one protocol instance (or all with ProtocolAll).
	CloseProtocol(p Protocol) Status

	FirmwareVersion() (Version, Status)

	// ClockFrequencies returns the peripheral input clock and the bridge bus clock, in kHz.
	ClockFrequencies(p Protocol) (peripheralKHz, busKHz uint32, st Status)

	// ComputeTimingRegister is the vendor timing derivation. Opaque.
	ComputeTimingRegister(req TimingRequest) (uint32, Status)

	InitGpio(mask GpioMask, conf []GpioConf) Status
	ReadGpio(mask GpioMask) (vals [GpioChannels]GpioLevel, errMask uint8, st Status)
	WriteGpio(mask GpioMask, vals []GpioLevel) (errMask uint8, st Status)

	InitI2c(init I2cInit) Status
	ReadI2c(addr uint16, buf []byte) (n int, st Status)
	WriteI2c(addr uint16, data []byte) (n int, st Status)
}

// ---- devices ----

// DeviceDescriptor is produced fresh on every enumeration and never mutated.
type DeviceDescriptor struct {
	UniqueID  string // enumeration unique id (serial)
	VendorID  uint16
	ProductID uint16
	BridgeID  string // bridge firmware identifier (ST-LINK USB id)
	InUse     bool
}

// Version of the probe firmware blocks.
type Version struct {
	VID, PID uint16
	Major    uint8
	Jtag     uint8
	Swim     uint8
	Msc      uint8
	Bridge   uint8
}

// Protocol selects a bridge sub-channel.
type Protocol uint8

const (
	ProtocolSPI  Protocol = 0x03
	ProtocolI2C  Protocol = 0x04
	ProtocolCAN  Protocol = 0x05
	ProtocolGPIO Protocol = 0x06
	ProtocolAll  Protocol = 0xFF
)

func (p Protocol) String() string {
	switch p {
	case ProtocolSPI:
		return "spi"
	case ProtocolI2C:
		return "i2c"
	case ProtocolCAN:
		return "can"
	case ProtocolGPIO:
		return "gpio"
	case ProtocolAll:
		return "all"
	}
	return "unknown"
}
