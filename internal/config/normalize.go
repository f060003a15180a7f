// internal/config/normalize.go
package config

import "github.com/tamzrod/stlink-bridge/internal/numbase"

const (
	DefaultDriver         = "sim"
	DefaultPollIntervalMs = 100
	DefaultMirrorTimeout  = 2000
	DefaultLogLevel       = "info"
	DefaultNamespace      = "bridge"
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	if b.Link.Driver == "" {
		b.Link.Driver = DefaultDriver
	}
	if b.NumericBase == 0 {
		b.NumericBase = int(numbase.Default)
	}
	if b.Poll.IntervalMs == 0 {
		b.Poll.IntervalMs = DefaultPollIntervalMs
	}
	if b.Hotplug.Source == "" {
		b.Hotplug.Source = "none"
	}
	if b.Log.Level == "" {
		b.Log.Level = DefaultLogLevel
	}
	if b.Metrics.Namespace == "" {
		b.Metrics.Namespace = DefaultNamespace
	}

	if b.I2c != nil {
		if b.I2c.Speed == "" {
			b.I2c.Speed = "standard"
		}
		// DNF is meaningless without the digital filter.
		if !b.I2c.DigitalFilter {
			b.I2c.DNF = 0
		}
	}

	for i := range b.Gpio {
		g := &b.Gpio[i]
		if g.Speed == "" {
			g.Speed = "low"
		}
		if g.Pull == "" {
			g.Pull = "none"
		}
		if g.OutputType == "" {
			g.OutputType = "push_pull"
		}
	}

	if m := b.Mirror; m != nil {
		if m.Transport == "" {
			m.Transport = "modbus"
		}
		if m.TimeoutMs == 0 {
			m.TimeoutMs = DefaultMirrorTimeout
		}
		// ASCII already validated; the status block holds 16 characters.
		if len(m.DeviceName) > 16 {
			m.DeviceName = m.DeviceName[:16]
		}
	}
}
