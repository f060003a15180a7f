// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/tamzrod/stlink-bridge/internal/gpio"
	"github.com/tamzrod/stlink-bridge/internal/i2c"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/poller"
	"github.com/tamzrod/stlink-bridge/internal/status"
	"github.com/tamzrod/stlink-bridge/internal/timing"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Empty enum names are accepted; Normalize fills them in.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: empty")
	}
	b := &cfg.Bridge

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	switch b.Link.Driver {
	case "", "sim":
	default:
		return fmt.Errorf("link.driver %q: only \"sim\" is built in", b.Link.Driver)
	}
	seen := map[string]bool{}
	for _, id := range b.Link.Devices {
		if id == "" {
			return fmt.Errorf("link.devices: empty unique id")
		}
		if seen[id] {
			return fmt.Errorf("link.devices: duplicate unique id %q", id)
		}
		seen[id] = true
	}

	if b.NumericBase != 0 && !numbase.Base(b.NumericBase).Valid() {
		return fmt.Errorf("numeric_base %d: must be 2, 8, 10 or 16", b.NumericBase)
	}

	// ------------------------------------------------------------
	// GPIO
	// ------------------------------------------------------------

	channels := map[int]bool{}
	for _, g := range b.Gpio {
		if g.Channel < 0 || g.Channel >= link.GpioChannels {
			return fmt.Errorf("gpio: channel %d out of range 0..%d", g.Channel, link.GpioChannels-1)
		}
		if channels[g.Channel] {
			return fmt.Errorf("gpio: channel %d configured twice", g.Channel)
		}
		channels[g.Channel] = true

		if _, err := gpio.ParseMode(g.Mode); err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
		if err := optional(g.Speed, gpio.ParseSpeed); err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
		if err := optional(g.Pull, gpio.ParsePull); err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
		if err := optional(g.OutputType, gpio.ParseOutputType); err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
	}

	// ------------------------------------------------------------
	// I2C
	// ------------------------------------------------------------

	if c := b.I2c; c != nil {
		mode, err := i2c.ParseAddressMode(c.AddressMode)
		if err != nil {
			return fmt.Errorf("i2c: %w", err)
		}
		limit := uint16(i2c.MaxAddr7Bit)
		if mode == link.I2cAddr10Bit {
			limit = i2c.MaxAddr10Bit
		}
		if c.OwnAddress > limit {
			return fmt.Errorf("i2c: own_address 0x%x above 0x%x for %s addressing", c.OwnAddress, limit, c.AddressMode)
		}
		if c.DigitalFilter && c.DNF > timing.MaxDNF {
			return fmt.Errorf("i2c: dnf %d above %d", c.DNF, timing.MaxDNF)
		}

		speed := link.I2cStandard
		if c.Speed != "" {
			if speed, err = i2c.ParseSpeed(c.Speed); err != nil {
				return fmt.Errorf("i2c: %w", err)
			}
		}
		if err := timing.Validate(speed, c.RiseTimeNs, c.FallTimeNs); err != nil {
			return fmt.Errorf("i2c: %w", err)
		}
		if top := timing.DefaultFrequencyKHz(speed); c.FrequencyKHz > top {
			return fmt.Errorf("i2c: frequency_khz %d above %d for %s", c.FrequencyKHz, top, speed)
		}
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if b.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms must be > 0")
	}
	if b.Poll.IntervalMs != 0 && b.Poll.IntervalMs < int(poller.MinInterval.Milliseconds()) {
		return fmt.Errorf("poll.interval_ms %d below %d", b.Poll.IntervalMs, poller.MinInterval.Milliseconds())
	}

	switch b.Hotplug.Source {
	case "", "none", "netlink":
	default:
		return fmt.Errorf("hotplug.source %q: want none or netlink", b.Hotplug.Source)
	}

	// ------------------------------------------------------------
	// MIRROR (OPT-IN)
	// ------------------------------------------------------------

	if m := b.Mirror; m != nil {
		switch m.Transport {
		case "", "modbus", "ingest":
		default:
			return fmt.Errorf("mirror.transport %q: want modbus or ingest", m.Transport)
		}
		if m.Endpoint == "" {
			return fmt.Errorf("mirror.endpoint required")
		}
		if m.TimeoutMs < 0 {
			return fmt.Errorf("mirror.timeout_ms must be >= 0")
		}
		for i := 0; i < len(m.DeviceName); i++ {
			if m.DeviceName[i] > 0x7F {
				return fmt.Errorf("mirror.device_name must contain ASCII characters only")
			}
		}

		// status block and coils live in different Modbus tables, but the
		// block itself must fit the 16-bit register space.
		end := uint32(m.BaseSlot)*status.SlotsPerDevice + status.SlotsPerDevice
		if end > 0x10000 {
			return fmt.Errorf("mirror.base_slot %d: status block exceeds register space", m.BaseSlot)
		}
		if uint32(m.CoilAddress)+link.GpioChannels > 0x10000 {
			return fmt.Errorf("mirror.coil_address %d: coils exceed address space", m.CoilAddress)
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	switch b.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want trace, debug, info, warn or error", b.Log.Level)
	}

	return nil
}

func optional[T any](s string, parse func(string) (T, error)) error {
	if s == "" {
		return nil
	}
	_, err := parse(s)
	return err
}
