// cmd/bridgectl/commands.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tamzrod/stlink-bridge/internal/bridge"
	"github.com/tamzrod/stlink-bridge/internal/config"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/link/sim"
	"github.com/tamzrod/stlink-bridge/internal/metrics"
	metricsprom "github.com/tamzrod/stlink-bridge/internal/metrics/prometheus"
)

var (
	rootCmd = &cobra.Command{
		Use:           "bridgectl",
		Short:         "ST-LINK bridge GPIO/I2C control.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var configPath string
var debug bool
var logFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Debug logging (trace)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")
}

func Execute() error {
	return rootCmd.Execute()
}

// ---- shared setup ----

// env is what every command works against.
type env struct {
	cfg    *config.Config
	log    types.RootLogger
	link   link.Link
	bridge *bridge.Bridge

	// reg is nil unless metrics are enabled.
	reg *prometheus.Registry

	closeLog func() error
}

func (e *env) Close() {
	if e.closeLog != nil {
		_ = e.closeLog()
	}
}

func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)
	return cfg, nil
}

func levelOf(s string) types.Level {
	switch s {
	case "trace":
		return types.TraceLevel
	case "debug":
		return types.DebugLevel
	case "warn":
		return types.WarnLevel
	case "error":
		return types.ErrorLevel
	}
	return types.InfoLevel
}

func newEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	var w io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		w = f
		e.closeLog = f.Close
	}
	e.log = logging.New(logging.Zerolog, "bridgectl", w)
	if debug {
		e.log.SetLevel(types.TraceLevel)
	} else {
		e.log.SetLevel(levelOf(cfg.Bridge.Log.Level))
	}

	var rec metrics.Recorder
	if cfg.Bridge.Metrics.Enabled {
		e.reg = prometheus.NewRegistry()
		rec = metricsprom.New(e.reg, &metricsprom.Config{Namespace: cfg.Bridge.Metrics.Namespace, Subsystem: "core"})
	}

	e.link = newLink(&cfg.Bridge.Link)
	e.bridge = bridge.New(e.link, bridge.Options{Log: e.log, Metrics: rec})
	return e, nil
}

// ---- link ----

// Default sim bench: one probe, an EEPROM-like memory and an SHTC3.
const (
	simDefaultDevice = "SIM0"
	simMemoryAddress = 0x50
)

func newLink(c *config.LinkConfig) link.Link {
	ids := c.Devices
	if len(ids) == 0 {
		ids = []string{simDefaultDevice}
	}
	devs := make([]link.DeviceDescriptor, 0, len(ids))
	for _, id := range ids {
		devs = append(devs, sim.Device(id))
	}

	l := sim.New(devs...)
	l.AddTarget(simMemoryAddress, sim.NewMemory())
	// 23 °C, 45 %RH
	l.AddTarget(0x70, &sim.SHTC3{RawTemp: 25466, RawHumidity: 29491, Asleep: true})
	return l
}

// connect starts the bridge from config without polling. Unconfigured
// protocols get bench defaults: every GPIO channel an input, I2C standard mode.
func (e *env) connect() error {
	b := e.cfg.Bridge
	b.Poll.Enabled = false
	if len(b.Gpio) == 0 {
		for ch := 0; ch < link.GpioChannels; ch++ {
			b.Gpio = append(b.Gpio, config.GpioConfig{Channel: ch, Mode: "input"})
		}
	}
	if b.I2c == nil {
		b.I2c = &config.I2cConfig{Speed: "standard"}
	}
	return e.start(&b)
}

// start runs bridge.Start and closes the session again if any step after
// Connect fails.
func (e *env) start(cfg *config.BridgeConfig) error {
	if err := e.bridge.Start(cfg); err != nil {
		e.shutdown()
		return err
	}
	return nil
}

// shutdown stops polling and closes the session. Safe when not connected.
func (e *env) shutdown() {
	e.bridge.Poller.Stop()
	if err := e.bridge.Session.Disconnect(); err != nil {
		e.log.Warn().Err(err).Msg("disconnect on shutdown")
	}
}
