// internal/i2c/i2c.go
package i2c

import (
	"fmt"
	"strings"
	"sync"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/session"
	"github.com/tamzrod/stlink-bridge/internal/timing"
)

// Address limits per addressing mode.
const (
	MaxAddr7Bit  = 0x7F
	MaxAddr10Bit = 0x3FF
)

// Config is the I2C master configuration. TimingRegister is derived by
// Apply and ignored on input.
type Config struct {
	AddressMode    link.I2cAddrMode
	OwnAddress     uint16
	AnalogFilter   bool
	DigitalFilter  bool
	DNF            uint8
	TimingRegister uint32
}

// Default is the state before any Apply: 7-bit, own address 0, no filters.
func Default() Config {
	return Config{AddressMode: link.I2cAddr7Bit}
}

// Bus carries the timing inputs of Apply.
// FrequencyKHz 0 selects the nominal frequency of Speed.
type Bus struct {
	Speed        link.I2cSpeed
	FrequencyKHz uint32
	RiseTimeNs   int
	FallTimeNs   int
}

// Applied is the outcome of a successful Apply.
type Applied struct {
	Config Config
	Timing timing.Result

	// Warning is set when the bridge accepted the config with a non-fatal
	// status (frequency not exactly applied).
	Warning error
}

func ParseSpeed(s string) (link.I2cSpeed, error) {
	for _, sp := range []link.I2cSpeed{link.I2cStandard, link.I2cFast, link.I2cFastPlus} {
		if strings.EqualFold(s, sp.String()) {
			return sp, nil
		}
	}
	return 0, brgerr.Param(brgerr.InvalidConfig, "i2c.parse", fmt.Sprintf("unknown speed %q", s))
}

func ParseAddressMode(s string) (link.I2cAddrMode, error) {
	switch strings.ToLower(s) {
	case "7bit", "7-bit", "":
		return link.I2cAddr7Bit, nil
	case "10bit", "10-bit":
		return link.I2cAddr10Bit, nil
	}
	return 0, brgerr.Param(brgerr.InvalidConfig, "i2c.parse", fmt.Sprintf("unknown address mode %q", s))
}

// Configurator caches the last I2C configuration the hardware accepted
// and observes the numeric base used to parse operator input.
type Configurator struct {
	sess session.Borrower
	log  types.Logger

	mu   sync.Mutex
	conf Config
	base numbase.Base
}

func New(sess session.Borrower, log types.Logger) *Configurator {
	return &Configurator{sess: sess, log: log, conf: Default(), base: numbase.Default}
}

// Config returns the cached configuration.
func (c *Configurator) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf
}

// Validate checks rise/fall times for a speed class. No hardware access.
func (c *Configurator) Validate(s link.I2cSpeed, riseNs, fallNs int) error {
	return timing.Validate(s, riseNs, fallNs)
}

// ComputeTiming derives a timing register on the connected bridge.
// Parameters are checked before the session is even consulted.
func (c *Configurator) ComputeTiming(req link.TimingRequest) (timing.Result, error) {
	if err := timing.ValidateRequest(req); err != nil {
		return timing.Result{}, err
	}
	var res timing.Result
	_, err := c.sess.Borrow("i2c.timing", func(l link.Link) error {
		var err error
		res, err = timing.Compute(l, req)
		return err
	})
	return res, err
}

// Apply derives the timing register for bus and sends cfg to the bridge.
// The cache is updated only when the bridge accepted the whole config.
func (c *Configurator) Apply(cfg Config, bus Bus) (Applied, error) {
	if err := timing.Validate(bus.Speed, bus.RiseTimeNs, bus.FallTimeNs); err != nil {
		return Applied{}, err
	}
	if !cfg.DigitalFilter {
		cfg.DNF = 0
	}
	if err := checkOwnAddress(cfg); err != nil {
		return Applied{}, err
	}
	freq := bus.FrequencyKHz
	if freq == 0 {
		freq = timing.DefaultFrequencyKHz(bus.Speed)
	}
	req := link.TimingRequest{
		Speed:        bus.Speed,
		FrequencyKHz: freq,
		DNF:          cfg.DNF,
		RiseTimeNs:   uint16(bus.RiseTimeNs),
		FallTimeNs:   uint16(bus.FallTimeNs),
		AnalogFilter: cfg.AnalogFilter,
	}
	if err := timing.ValidateRequest(req); err != nil {
		return Applied{}, err
	}

	var out Applied
	tok, err := c.sess.Borrow("i2c.apply", func(l link.Link) error {
		res, err := timing.Compute(l, req)
		if err != nil {
			return err
		}
		cfg.TimingRegister = res.Register
		out.Timing = res
		out.Warning = res.Warning

		st := l.InitI2c(link.I2cInit{
			TimingReg:     cfg.TimingRegister,
			OwnAddr:       cfg.OwnAddress,
			AddrMode:      cfg.AddressMode,
			AnalogFilter:  cfg.AnalogFilter,
			DigitalFilter: cfg.DigitalFilter,
			DNF:           cfg.DNF,
		})
		if brgerr.IsWarning(st) {
			out.Warning = brgerr.Hardware("i2c.init", st)
			return nil
		}
		return brgerr.Hardware("i2c.init", st)
	})
	if err != nil {
		if c.log != nil {
			c.log.Warn().Str("speed", bus.Speed.String()).Err(err).Msg("i2c config rejected")
		}
		return Applied{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.sess.Valid(tok) {
		return Applied{}, &brgerr.E{C: brgerr.NotConnected, Op: "i2c.apply", Msg: "session ended during init"}
	}
	c.conf = cfg
	out.Config = cfg
	if c.log != nil {
		c.log.Info().
			Str("speed", bus.Speed.String()).
			Uint32("frequency_khz", freq).
			Uint32("timing", cfg.TimingRegister).
			Int("own_address", int(cfg.OwnAddress)).
			Int("dnf", int(cfg.DNF)).
			Msg("i2c configured")
		if out.Warning != nil {
			c.log.Warn().Err(out.Warning).Msg("i2c configured with warning")
		}
	}
	return out, nil
}

func checkOwnAddress(cfg Config) error {
	limit := uint16(MaxAddr7Bit)
	switch cfg.AddressMode {
	case link.I2cAddr7Bit:
	case link.I2cAddr10Bit:
		limit = MaxAddr10Bit
	default:
		return brgerr.Param(brgerr.InvalidConfig, "i2c.apply", fmt.Sprintf("address mode %d", cfg.AddressMode))
	}
	if cfg.OwnAddress > limit {
		return brgerr.Param(brgerr.InvalidConfig, "i2c.apply", fmt.Sprintf("own address 0x%x above 0x%x", cfg.OwnAddress, limit))
	}
	if cfg.DNF > timing.MaxDNF {
		return brgerr.Param(brgerr.TimingParamOutOfRange, "i2c.apply", fmt.Sprintf("dnf %d outside [0,%d]", cfg.DNF, timing.MaxDNF))
	}
	return nil
}

// HandleDisconnect drops the cache back to defaults.
func (c *Configurator) HandleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conf = Default()
}

// ---- numeric input ----

// SetNumericBase changes how address and data fields are parsed.
func (c *Configurator) SetNumericBase(b numbase.Base) {
	if !b.Valid() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.base = b
}

func (c *Configurator) Base() numbase.Base {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base
}

// ParseAddress reads a target address in the active base, bounded by
// the configured addressing mode.
func (c *Configurator) ParseAddress(s string) (uint16, error) {
	c.mu.Lock()
	base, mode := c.base, c.conf.AddressMode
	c.mu.Unlock()

	v, err := numbase.Parse(s, base, 16)
	if err != nil {
		return 0, err
	}
	limit := uint64(MaxAddr7Bit)
	if mode == link.I2cAddr10Bit {
		limit = MaxAddr10Bit
	}
	if v > limit {
		return 0, brgerr.Param(brgerr.InvalidNumericInput, "i2c.address", fmt.Sprintf("address %s above %s", numbase.Format(v, base), numbase.Format(limit, base)))
	}
	return uint16(v), nil
}

// ParseData reads a comma-separated byte list in the active base.
func (c *Configurator) ParseData(s string) ([]byte, error) {
	data, err := numbase.ParseBytes(s, c.Base())
	if err != nil {
		return nil, err
	}
	if len(data) > link.I2cMaxTransfer {
		return nil, brgerr.Param(brgerr.InvalidNumericInput, "i2c.data", fmt.Sprintf("%d bytes above %d", len(data), link.I2cMaxTransfer))
	}
	return data, nil
}

// ParseCount reads a byte count in the active base, 1..I2cMaxTransfer.
func (c *Configurator) ParseCount(s string) (int, error) {
	v, err := numbase.Parse(s, c.Base(), 16)
	if err != nil {
		return 0, err
	}
	if v == 0 || v > link.I2cMaxTransfer {
		return 0, brgerr.Param(brgerr.InvalidNumericInput, "i2c.count", fmt.Sprintf("count %d outside 1..%d", v, link.I2cMaxTransfer))
	}
	return int(v), nil
}
