// internal/brgerr/brgerr_test.go
package brgerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/link"
)

func TestEveryStatusHasText(t *testing.T) {
	for st := link.StatusOK; st <= link.StatusInterfaceErr; st++ {
		assert.NotEmpty(t, Text(st), "status %s", st)
		if st != link.StatusInterfaceErr {
			assert.NotEqual(t, Unknown, FromStatus(st), "status %s", st)
		}
	}
	assert.Equal(t, Unknown, FromStatus(link.Status(200)))
	assert.Equal(t, unknownText, Text(link.Status(200)))
}

func TestFromStatus_Taxonomy(t *testing.T) {
	cases := map[link.Status]Code{
		link.StatusNoDevice:           NoDeviceFound,
		link.StatusPermissionErr:      PermissionDenied,
		link.StatusEnumErr:            EnumerationFailed,
		link.StatusConnectErr:         ConnectionFailed,
		link.StatusOldFirmwareWarning: OldFirmwareWarning,
		link.StatusTargetCmdTimeout:   Timeout,
		link.StatusOverrunErr:         Overrun,
		link.StatusI2CErr:             I2cError,
		link.StatusCmdNotSupported:    FirmwareCommandUnsupported,
		link.StatusCmdBusy:            CommandBusy,
		link.StatusComCmdOrderErr:     SequenceError,
		link.StatusMemAllocErr:        MemoryAllocationError,
	}
	for st, want := range cases {
		assert.Equal(t, want, FromStatus(st), "status %s", st)
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryConnection, CategoryOf(NoDeviceFound))
	assert.Equal(t, CategoryParameter, CategoryOf(TimingParamOutOfRange))
	assert.Equal(t, CategoryCommunication, CategoryOf(I2cError))
	assert.Equal(t, CategoryWarning, CategoryOf(OldFirmwareWarning))
	assert.Equal(t, CategoryFatal, CategoryOf(MemoryAllocationError))
	assert.Equal(t, CategoryNone, CategoryOf(OK))
}

func TestHardware_WrapsStatus(t *testing.T) {
	require.NoError(t, Hardware("op", link.StatusOK))

	err := Hardware("i2c.write", link.StatusI2CErr)
	require.Error(t, err)
	assert.True(t, errors.Is(err, I2cError))
	assert.False(t, errors.Is(err, Timeout))

	st, ok := StatusOf(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, link.StatusI2CErr, st)
	assert.Equal(t, I2cError, Of(fmt.Errorf("outer: %w", err)))
}

func TestParam_HasNoStatus(t *testing.T) {
	err := Param(InvalidChannel, "gpio.set", "channel 4")
	_, ok := StatusOf(err)
	assert.False(t, ok)
	assert.Equal(t, InvalidChannel, Of(err))
	assert.Equal(t, "gpio.set: invalid_channel: channel 4", err.Error())
}

func TestOf_BareCodeAndForeign(t *testing.T) {
	assert.Equal(t, OK, Of(nil))
	assert.Equal(t, Busy, Of(Busy))
	assert.Equal(t, Unknown, Of(errors.New("x")))
}

func TestIsWarning(t *testing.T) {
	assert.True(t, IsWarning(link.StatusOldFirmwareWarning))
	assert.True(t, IsWarning(link.StatusComFreqModified))
	assert.False(t, IsWarning(link.StatusI2CErr))
	assert.False(t, IsWarning(link.StatusOK))
}
