// internal/gpio/types.go
package gpio

import (
	"fmt"
	"strings"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Mode is the operator-facing pin mode, in menu order.
// It is NOT the hardware value; see modeTable.
type Mode uint8

const (
	ModeOutput Mode = iota
	ModeInput
	ModeAnalog
)

// modeTable is the only place operator modes meet hardware modes.
// Hardware has no value 2, so positional casting would be wrong.
var modeTable = [...]struct {
	mode Mode
	hw   link.GpioMode
	name string
}{
	{ModeOutput, link.GpioModeOutput, "output"},
	{ModeInput, link.GpioModeInput, "input"},
	{ModeAnalog, link.GpioModeAnalog, "analog"},
}

// Hardware returns the firmware mode value for m.
func (m Mode) Hardware() (link.GpioMode, bool) {
	for _, e := range modeTable {
		if e.mode == m {
			return e.hw, true
		}
	}
	return 0, false
}

// ModeFromHardware is the inverse of Mode.Hardware.
func ModeFromHardware(hw link.GpioMode) (Mode, bool) {
	for _, e := range modeTable {
		if e.hw == hw {
			return e.mode, true
		}
	}
	return 0, false
}

func (m Mode) String() string {
	for _, e := range modeTable {
		if e.mode == m {
			return e.name
		}
	}
	return "unknown"
}

var (
	speedNames  = []string{"low", "medium", "high", "very_high"}
	pullNames   = []string{"none", "up", "down"}
	outputNames = []string{"push_pull", "open_drain"}
)

func ParseMode(s string) (Mode, error) {
	for _, e := range modeTable {
		if strings.EqualFold(s, e.name) {
			return e.mode, nil
		}
	}
	return 0, badName("mode", s)
}

func ParseSpeed(s string) (link.GpioSpeed, error) {
	i, err := lookup("speed", speedNames, s)
	return link.GpioSpeed(i), err
}

func ParsePull(s string) (link.GpioPull, error) {
	i, err := lookup("pull", pullNames, s)
	return link.GpioPull(i), err
}

func ParseOutputType(s string) (link.GpioOutputType, error) {
	i, err := lookup("output type", outputNames, s)
	return link.GpioOutputType(i), err
}

func lookup(what string, names []string, s string) (int, error) {
	for i, n := range names {
		if strings.EqualFold(s, n) {
			return i, nil
		}
	}
	return 0, badName(what, s)
}

func badName(what, s string) error {
	return brgerr.Param(brgerr.InvalidConfig, "gpio.parse", fmt.Sprintf("unknown %s %q", what, s))
}

// ChannelConfig is the configuration of one GPIO channel.
type ChannelConfig struct {
	Mode       Mode
	Speed      link.GpioSpeed
	Pull       link.GpioPull
	OutputType link.GpioOutputType
}

// Default is the hardware reset state.
func Default() ChannelConfig {
	return ChannelConfig{
		Mode:       ModeInput,
		Speed:      link.GpioSpeedLow,
		Pull:       link.GpioPullNone,
		OutputType: link.GpioOutputPushPull,
	}
}

func (c ChannelConfig) String() string {
	return fmt.Sprintf("mode=%s speed=%s pull=%s ot=%s",
		c.Mode, name(speedNames, int(c.Speed)), name(pullNames, int(c.Pull)), name(outputNames, int(c.OutputType)))
}

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

// hardware converts c to the init record, rejecting out-of-range fields.
func (c ChannelConfig) hardware() (link.GpioConf, error) {
	hw, ok := c.Mode.Hardware()
	if !ok {
		return link.GpioConf{}, brgerr.Param(brgerr.InvalidConfig, "gpio.set_config", fmt.Sprintf("mode %d", c.Mode))
	}
	if int(c.Speed) >= len(speedNames) || int(c.Pull) >= len(pullNames) || int(c.OutputType) >= len(outputNames) {
		return link.GpioConf{}, brgerr.Param(brgerr.InvalidConfig, "gpio.set_config", c.String())
	}
	return link.GpioConf{Mode: hw, Speed: c.Speed, Pull: c.Pull, OutputType: c.OutputType}, nil
}
