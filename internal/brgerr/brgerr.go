// internal/brgerr/brgerr.go
package brgerr

import (
	"errors"

	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Code is a stable error identifier.
// It is a string newtype, comparable, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK Code = "ok"

	// Connection
	NoDeviceFound      Code = "no_device_found"
	AlreadyInUse       Code = "already_in_use"
	PermissionDenied   Code = "permission_denied"
	EnumerationFailed  Code = "enumeration_failed"
	ConnectionFailed   Code = "connection_failed"
	OldFirmwareWarning Code = "old_firmware_warning"
	NotConnected       Code = "not_connected"
	Busy               Code = "busy"
	CloseFailed        Code = "close_failed"

	// Parameter (local, never from hardware)
	InvalidChannel        Code = "invalid_channel"
	InvalidInterval       Code = "invalid_interval"
	TimingParamOutOfRange Code = "timing_param_out_of_range"
	InvalidNumericInput   Code = "invalid_numeric_input"
	InvalidConfig         Code = "invalid_config"

	// Communication
	Timeout                    Code = "timeout"
	Overrun                    Code = "overrun"
	I2cError                   Code = "i2c_error"
	GpioError                  Code = "gpio_error"
	FirmwareCommandUnsupported Code = "firmware_command_unsupported"
	CommandBusy                Code = "command_busy"
	SequenceError              Code = "sequence_error"
	TimingUnavailable          Code = "timing_unavailable"
	FrequencyModified          Code = "frequency_modified"
	FrequencyUnsupported       Code = "frequency_unsupported"
	HardwareParamError         Code = "hardware_param_error"
	CommunicationError         Code = "communication_error"

	// Fatal
	MemoryAllocationError Code = "memory_allocation_error"

	Unknown Code = "unknown"
)

// E carries a Code together with the operation, the raw hardware status
// (StatusOK for locally detected errors) and an optional cause.
type E struct {
	C      Code
	Op     string
	Status link.Status
	Msg    string
	Err    error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, brgerr.NotConnected) match a wrapped E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Param builds a locally detected parameter error.
func Param(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Hardware builds an error from a hardware status.
// Returns nil for StatusOK.
func Hardware(op string, st link.Status) error {
	if st == link.StatusOK {
		return nil
	}
	return &E{C: FromStatus(st), Op: op, Status: st, Msg: Text(st)}
}

// Of extracts a Code from an error, defaulting to Unknown.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	// outermost E wins over a Code it wraps
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Unknown
}

// StatusOf returns the hardware status carried by err, if any.
func StatusOf(err error) (link.Status, bool) {
	var e *E
	if errors.As(err, &e) && e.Status != link.StatusOK {
		return e.Status, true
	}
	return link.StatusOK, false
}
