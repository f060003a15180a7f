// internal/brgerr/translate.go
package brgerr

import "github.com/tamzrod/stlink-bridge/internal/link"

// Category groups codes by propagation policy.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryConnection
	CategoryParameter
	CategoryCommunication
	CategoryWarning
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryParameter:
		return "parameter"
	case CategoryCommunication:
		return "communication"
	case CategoryWarning:
		return "warning"
	case CategoryFatal:
		return "fatal"
	}
	return "none"
}

type entry struct {
	code Code
	text string
}

// statusTable is the single mapping from hardware status to code and text.
var statusTable = map[link.Status]entry{
	link.StatusOK:                  {OK, "OK"},
	link.StatusConnectErr:          {ConnectionFailed, "USB connection error"},
	link.StatusDLLErr:              {ConnectionFailed, "USB driver library error"},
	link.StatusUSBCommErr:          {CommunicationError, "USB communication error"},
	link.StatusNoDevice:            {NoDeviceFound, "No bridge device target found error"},
	link.StatusOldFirmwareWarning:  {OldFirmwareWarning, "Warning: current bridge firmware is not the last one available"},
	link.StatusTargetCmdErr:        {CommunicationError, "Target communication or command error"},
	link.StatusParamErr:            {HardwareParamError, "Wrong parameter error"},
	link.StatusCmdNotSupported:     {FirmwareCommandUnsupported, "Firmware command not supported by the current firmware version"},
	link.StatusGetInfoErr:          {EnumerationFailed, "Error getting bridge device information"},
	link.StatusSerialNotFound:      {NoDeviceFound, "Required probe serial number not found error"},
	link.StatusNoProbe:             {NotConnected, "Bridge device not opened error"},
	link.StatusNotSupported:        {HardwareParamError, "Parameter error"},
	link.StatusPermissionErr:       {PermissionDenied, "Bridge device already in use by another program error"},
	link.StatusEnumErr:             {EnumerationFailed, "USB enumeration error"},
	link.StatusComFreqModified:     {FrequencyModified, "Warning: required frequency is not exactly the one applied"},
	link.StatusComFreqNotSupported: {FrequencyUnsupported, "Required frequency cannot be applied error"},
	link.StatusSPIErr:              {CommunicationError, "SPI communication error"},
	link.StatusI2CErr:              {I2cError, "I2C communication error"},
	link.StatusCANErr:              {CommunicationError, "CAN communication error"},
	link.StatusTargetCmdTimeout:    {Timeout, "Timeout error during bridge communication"},
	link.StatusComInitNotDone:      {SequenceError, "Bridge init function not called error"},
	link.StatusComCmdOrderErr:      {SequenceError, "Sequential bridge function order error"},
	link.StatusBootloaderNackErr:   {CommunicationError, "Bootloader NACK error"},
	link.StatusVerifyErr:           {CommunicationError, "Data verification error"},
	link.StatusMemAllocErr:         {MemoryAllocationError, "Memory allocation error"},
	link.StatusGPIOErr:             {GpioError, "GPIO communication error"},
	link.StatusOverrunErr:          {Overrun, "Overrun error during bridge communication"},
	link.StatusCmdBusy:             {CommandBusy, "Command busy: only the last read/write status command is allowed"},
	link.StatusCloseErr:            {CloseFailed, "Error during device close"},
	link.StatusInterfaceErr:        {Unknown, "Unknown default error returned by the link interface"},
}

const unknownText = "Unknown default error returned by the link interface"

// FromStatus maps a hardware status to a Code.
func FromStatus(st link.Status) Code {
	if e, ok := statusTable[st]; ok {
		return e.code
	}
	return Unknown
}

// Text returns the operator-facing description of a hardware status.
func Text(st link.Status) string {
	if e, ok := statusTable[st]; ok {
		return e.text
	}
	return unknownText
}

// IsWarning reports statuses after which the operation still took effect.
func IsWarning(st link.Status) bool {
	return st == link.StatusOldFirmwareWarning || st == link.StatusComFreqModified
}

// CategoryOf classifies a code.
func CategoryOf(c Code) Category {
	switch c {
	case OK:
		return CategoryNone
	case NoDeviceFound, AlreadyInUse, PermissionDenied, EnumerationFailed,
		ConnectionFailed, NotConnected, Busy, CloseFailed:
		return CategoryConnection
	case InvalidChannel, InvalidInterval, TimingParamOutOfRange, InvalidNumericInput, InvalidConfig:
		return CategoryParameter
	case OldFirmwareWarning, FrequencyModified:
		return CategoryWarning
	case MemoryAllocationError:
		return CategoryFatal
	}
	return CategoryCommunication
}
