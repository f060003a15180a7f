// internal/bridge/apply.go
package bridge

import (
	"fmt"

	"github.com/tamzrod/stlink-bridge/internal/config"
	"github.com/tamzrod/stlink-bridge/internal/gpio"
	"github.com/tamzrod/stlink-bridge/internal/i2c"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
)

// ApplyConfig pushes the configured GPIO channels, one SetConfig each,
// then the I2C configuration. It stops at the first failure.
// cfg must be validated and normalized.
func (b *Bridge) ApplyConfig(cfg *config.BridgeConfig) error {
	if cfg.NumericBase != 0 {
		if err := b.SetNumericBase(numbase.Base(cfg.NumericBase)); err != nil {
			return err
		}
	}

	for _, g := range cfg.Gpio {
		cc, err := GpioChannelConfig(g)
		if err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
		if err := b.Gpio.SetConfig(g.Channel, cc); err != nil {
			return fmt.Errorf("gpio channel %d: %w", g.Channel, err)
		}
	}

	if cfg.I2c != nil {
		c, bus, err := I2cSettings(cfg.I2c)
		if err != nil {
			return fmt.Errorf("i2c: %w", err)
		}
		applied, err := b.I2c.Apply(c, bus)
		if err != nil {
			return fmt.Errorf("i2c: %w", err)
		}
		if applied.Warning != nil && b.log != nil {
			b.log.Warn().Err(applied.Warning).Msg("i2c applied with warning")
		}
	}
	return nil
}

// GpioChannelConfig converts one configured channel.
func GpioChannelConfig(g config.GpioConfig) (gpio.ChannelConfig, error) {
	cc := gpio.Default()
	var err error
	if cc.Mode, err = gpio.ParseMode(g.Mode); err != nil {
		return cc, err
	}
	if g.Speed != "" {
		if cc.Speed, err = gpio.ParseSpeed(g.Speed); err != nil {
			return cc, err
		}
	}
	if g.Pull != "" {
		if cc.Pull, err = gpio.ParsePull(g.Pull); err != nil {
			return cc, err
		}
	}
	if g.OutputType != "" {
		if cc.OutputType, err = gpio.ParseOutputType(g.OutputType); err != nil {
			return cc, err
		}
	}
	return cc, nil
}

// I2cSettings converts the configured I2C section.
func I2cSettings(c *config.I2cConfig) (i2c.Config, i2c.Bus, error) {
	mode, err := i2c.ParseAddressMode(c.AddressMode)
	if err != nil {
		return i2c.Config{}, i2c.Bus{}, err
	}
	conf := i2c.Config{
		AddressMode:   mode,
		OwnAddress:    c.OwnAddress,
		AnalogFilter:  c.AnalogFilter,
		DigitalFilter: c.DigitalFilter,
		DNF:           c.DNF,
	}

	bus := i2c.Bus{
		FrequencyKHz: c.FrequencyKHz,
		RiseTimeNs:   c.RiseTimeNs,
		FallTimeNs:   c.FallTimeNs,
	}
	if c.Speed != "" {
		if bus.Speed, err = i2c.ParseSpeed(c.Speed); err != nil {
			return i2c.Config{}, i2c.Bus{}, err
		}
	}
	return conf, bus, nil
}

// Start connects, applies cfg and starts polling when enabled.
// A failed apply leaves the session connected.
func (b *Bridge) Start(cfg *config.BridgeConfig) error {
	info, err := b.Connect(cfg.Device)
	if err != nil {
		return err
	}
	if b.log != nil {
		b.log.Info().Str("device", info.Device.UniqueID).Str("session", info.SessionID).Msg("bridge started")
	}
	if err := b.ApplyConfig(cfg); err != nil {
		return err
	}
	if cfg.Poll.Enabled {
		return b.Poller.Start(cfg.Poll.IntervalMs)
	}
	return nil
}
