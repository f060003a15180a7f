// internal/gpio/gpio.go
package gpio

import (
	"fmt"
	"sync"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

// AllChannels is the "all" selector. It is never a valid config target.
const AllChannels = 0xFF

// Configurator caches the last configuration the hardware accepted for
// each channel. The cache only changes after a confirmed write.
type Configurator struct {
	sess session.Borrower
	log  types.Logger

	mu   sync.Mutex
	conf [link.GpioChannels]ChannelConfig
}

func New(sess session.Borrower, log types.Logger) *Configurator {
	c := &Configurator{sess: sess, log: log}
	c.reset()
	return c
}

func (c *Configurator) reset() {
	for i := range c.conf {
		c.conf[i] = Default()
	}
}

func checkChannel(op string, ch int) error {
	if ch == AllChannels {
		return brgerr.Param(brgerr.InvalidChannel, op, "the all selector cannot be configured")
	}
	if ch < 0 || ch >= link.GpioChannels {
		return brgerr.Param(brgerr.InvalidChannel, op, fmt.Sprintf("channel %d outside 0..%d", ch, link.GpioChannels-1))
	}
	return nil
}

// ChannelOf resolves a mask to its only channel. Zero or several bits set
// is a parameter error.
func ChannelOf(mask link.GpioMask) (int, error) {
	ch, ok := mask.Single()
	if !ok {
		return -1, brgerr.Param(brgerr.InvalidChannel, "gpio.channel", fmt.Sprintf("mask 0x%02x selects zero or several channels", uint8(mask)))
	}
	return ch, nil
}

// GetConfig returns the cached configuration of one channel.
func (c *Configurator) GetConfig(ch int) (ChannelConfig, error) {
	if err := checkChannel("gpio.get_config", ch); err != nil {
		return ChannelConfig{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf[ch], nil
}

// Configs returns a copy of all cached channel configurations.
func (c *Configurator) Configs() [link.GpioChannels]ChannelConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conf
}

// SetConfig writes one channel's configuration and caches it on success.
// On failure the cache is untouched and the hardware status is in the error.
func (c *Configurator) SetConfig(ch int, cfg ChannelConfig) error {
	if err := checkChannel("gpio.set_config", ch); err != nil {
		return err
	}
	hw, err := cfg.hardware()
	if err != nil {
		return err
	}

	tok, err := c.sess.Borrow("gpio.set_config", func(l link.Link) error {
		return brgerr.Hardware("gpio.set_config", l.InitGpio(link.MaskOf(ch), []link.GpioConf{hw}))
	})
	if err != nil {
		if c.log != nil {
			c.log.Warn().Int("channel", ch).Str("config", cfg.String()).Err(err).Msg("gpio config rejected")
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A session that ended mid-call already reset the cache.
	if !c.sess.Valid(tok) {
		return &brgerr.E{C: brgerr.NotConnected, Op: "gpio.set_config", Msg: "session ended during write"}
	}
	c.conf[ch] = cfg
	if c.log != nil {
		c.log.Info().Int("channel", ch).Str("config", cfg.String()).Msg("gpio configured")
	}
	return nil
}

// HandleDisconnect drops the cache back to reset defaults.
func (c *Configurator) HandleDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// SetNumericBase is a no-op: GPIO fields are not numeric.
func (c *Configurator) SetNumericBase(numbase.Base) {}
