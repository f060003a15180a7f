// internal/status/codes.go
package status

import "github.com/tamzrod/stlink-bridge/internal/brgerr"

// errorCodes assigns every error code a stable register value.
// Append only: existing values are part of the mirror protocol.
var errorCodes = map[brgerr.Code]uint16{
	brgerr.OK: 0,

	brgerr.NoDeviceFound:      0x0101,
	brgerr.AlreadyInUse:       0x0102,
	brgerr.PermissionDenied:   0x0103,
	brgerr.EnumerationFailed:  0x0104,
	brgerr.ConnectionFailed:   0x0105,
	brgerr.OldFirmwareWarning: 0x0106,
	brgerr.NotConnected:       0x0107,
	brgerr.Busy:               0x0108,
	brgerr.CloseFailed:        0x0109,

	brgerr.InvalidChannel:        0x0201,
	brgerr.InvalidInterval:       0x0202,
	brgerr.TimingParamOutOfRange: 0x0203,
	brgerr.InvalidNumericInput:   0x0204,
	brgerr.InvalidConfig:         0x0205,

	brgerr.Timeout:                    0x0301,
	brgerr.Overrun:                    0x0302,
	brgerr.I2cError:                   0x0303,
	brgerr.GpioError:                  0x0304,
	brgerr.FirmwareCommandUnsupported: 0x0305,
	brgerr.CommandBusy:                0x0306,
	brgerr.SequenceError:              0x0307,
	brgerr.TimingUnavailable:          0x0308,
	brgerr.FrequencyModified:          0x0309,
	brgerr.FrequencyUnsupported:       0x030A,
	brgerr.HardwareParamError:         0x030B,
	brgerr.CommunicationError:         0x030C,

	brgerr.MemoryAllocationError: 0x0401,
}

// CodeUnknown is written for codes with no assigned value.
const CodeUnknown uint16 = 0xFFFF

// ErrorCode maps an error code to its register value.
// The high byte is the category, the low byte the code within it.
func ErrorCode(c brgerr.Code) uint16 {
	if v, ok := errorCodes[c]; ok {
		return v
	}
	return CodeUnknown
}
