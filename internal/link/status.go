// internal/link/status.go
package link

import "strconv"

// Status is the closed set of codes returned by every hardware call.
// Only brgerr interprets these values.
type Status uint8

const (
	StatusOK Status = iota
	StatusConnectErr
	StatusDLLErr
	StatusUSBCommErr
	StatusNoDevice
	StatusOldFirmwareWarning
	StatusTargetCmdErr
	StatusParamErr
	StatusCmdNotSupported
	StatusGetInfoErr
	StatusSerialNotFound
	StatusNoProbe
	StatusNotSupported
	StatusPermissionErr
	StatusEnumErr
	StatusComFreqModified
	StatusComFreqNotSupported
	StatusSPIErr
	StatusI2CErr
	StatusCANErr
	StatusTargetCmdTimeout
	StatusComInitNotDone
	StatusComCmdOrderErr
	StatusBootloaderNackErr
	StatusVerifyErr
	StatusMemAllocErr
	StatusGPIOErr
	StatusOverrunErr
	StatusCmdBusy
	StatusCloseErr
	StatusInterfaceErr
)

var statusNames = [...]string{
	StatusOK:                  "ok",
	StatusConnectErr:          "connect_err",
	StatusDLLErr:              "dll_err",
	StatusUSBCommErr:          "usb_comm_err",
	StatusNoDevice:            "no_device",
	StatusOldFirmwareWarning:  "old_firmware_warning",
	StatusTargetCmdErr:        "target_cmd_err",
	StatusParamErr:            "param_err",
	StatusCmdNotSupported:     "cmd_not_supported",
	StatusGetInfoErr:          "get_info_err",
	StatusSerialNotFound:      "serial_not_found",
	StatusNoProbe:             "no_probe",
	StatusNotSupported:        "not_supported",
	StatusPermissionErr:       "permission_err",
	StatusEnumErr:             "enum_err",
	StatusComFreqModified:     "com_freq_modified",
	StatusComFreqNotSupported: "com_freq_not_supported",
	StatusSPIErr:              "spi_err",
	StatusI2CErr:              "i2c_err",
	StatusCANErr:              "can_err",
	StatusTargetCmdTimeout:    "target_cmd_timeout",
	StatusComInitNotDone:      "com_init_not_done",
	StatusComCmdOrderErr:      "com_cmd_order_err",
	StatusBootloaderNackErr:   "bootloader_nack_err",
	StatusVerifyErr:           "verify_err",
	StatusMemAllocErr:         "mem_alloc_err",
	StatusGPIOErr:             "gpio_err",
	StatusOverrunErr:          "overrun_err",
	StatusCmdBusy:             "cmd_busy",
	StatusCloseErr:            "close_err",
	StatusInterfaceErr:        "interface_err",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// OK reports StatusOK.
func (s Status) OK() bool { return s == StatusOK }
