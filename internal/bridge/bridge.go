// internal/bridge/bridge.go
package bridge

import (
	"fmt"
	"sync"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/dispatch"
	"github.com/tamzrod/stlink-bridge/internal/gpio"
	"github.com/tamzrod/stlink-bridge/internal/i2c"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/metrics"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/poller"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

type Options struct {
	Log     types.Logger
	Metrics metrics.Recorder
}

// BaseObserver is told about every numeric base change.
type BaseObserver interface {
	SetNumericBase(numbase.Base)
}

// Bridge composes the session core around one link.
type Bridge struct {
	Session  *session.Manager
	Gpio     *gpio.Configurator
	I2c      *i2c.Configurator
	Dispatch *dispatch.Dispatcher
	Poller   *poller.Scheduler

	log types.Logger

	mu        sync.Mutex
	base      numbase.Base
	observers []BaseObserver
}

func New(l link.Link, opts Options) *Bridge {
	sess := session.New(l, session.Options{Log: opts.Log, Metrics: opts.Metrics})
	d := dispatch.New(sess, dispatch.Options{Log: opts.Log, Metrics: opts.Metrics})

	b := &Bridge{
		Session:  sess,
		Gpio:     gpio.New(sess, opts.Log),
		I2c:      i2c.New(sess, opts.Log),
		Dispatch: d,
		Poller:   poller.New(d, sess, poller.Options{Log: opts.Log, Metrics: opts.Metrics}),
		log:      opts.Log,
		base:     numbase.Default,
	}

	// Disconnect resets cached protocol state and stops polling.
	sess.Register(b.Gpio)
	sess.Register(b.I2c)
	sess.Register(b.Poller)

	b.observers = []BaseObserver{b.Gpio, b.I2c}
	for _, o := range b.observers {
		o.SetNumericBase(b.base)
	}
	return b
}

// ---- numeric base ----

func (b *Bridge) Base() numbase.Base {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.base
}

// SetNumericBase changes the base used to parse and render operator input.
func (b *Bridge) SetNumericBase(base numbase.Base) error {
	if !base.Valid() {
		return brgerr.Param(brgerr.InvalidNumericInput, "base", fmt.Sprintf("base %d: want 2, 8, 10 or 16", base))
	}

	b.mu.Lock()
	b.base = base
	obs := append([]BaseObserver(nil), b.observers...)
	b.mu.Unlock()

	for _, o := range obs {
		o.SetNumericBase(base)
	}
	if b.log != nil {
		b.log.Debug().Int("base", int(base)).Msg("numeric base changed")
	}
	return nil
}

// Observe adds a base observer and tells it the current base.
func (b *Bridge) Observe(o BaseObserver) {
	b.mu.Lock()
	b.observers = append(b.observers, o)
	base := b.base
	b.mu.Unlock()
	o.SetNumericBase(base)
}

// ---- connection ----

// Connect opens id, or the first free device when id is empty.
func (b *Bridge) Connect(id string) (session.Info, error) {
	if id == "" {
		devs, err := b.Session.List()
		if err != nil {
			return session.Info{}, err
		}
		for _, d := range devs {
			if !d.InUse {
				id = d.UniqueID
				break
			}
		}
		if id == "" {
			return session.Info{}, &brgerr.E{C: brgerr.NoDeviceFound, Op: "connect", Msg: "no free device"}
		}
	}
	return b.Session.Connect(id)
}

// Events returns a buffered channel of session events.
// A full channel drops the event rather than stalling the session.
func (b *Bridge) Events(buf int) (<-chan session.Event, func()) {
	ch := make(chan session.Event, buf)
	cancel := b.Session.Subscribe(func(ev session.Event) {
		select {
		case ch <- ev:
		default:
		}
	})
	return ch, cancel
}

// ---- operator I2C ----

// WriteI2cText parses address and a comma-separated byte list in the
// active base and writes them. line is the monitor rendering.
func (b *Bridge) WriteI2cText(addr, data string) (t dispatch.I2cTransfer, line string, err error) {
	a, err := b.I2c.ParseAddress(addr)
	if err != nil {
		return t, "", err
	}
	bytes, err := b.I2c.ParseData(data)
	if err != nil {
		return t, "", err
	}
	t = b.Dispatch.WriteI2c(a, bytes)
	return t, dispatch.MonitorLine(t, true, b.Base()), t.Err
}

// ReadI2cText parses address and count in the active base and reads.
func (b *Bridge) ReadI2cText(addr, count string) (t dispatch.I2cTransfer, line string, err error) {
	a, err := b.I2c.ParseAddress(addr)
	if err != nil {
		return t, "", err
	}
	n, err := b.I2c.ParseCount(count)
	if err != nil {
		return t, "", err
	}
	t = b.Dispatch.ReadI2c(a, make([]byte, n), n)
	return t, dispatch.MonitorLine(t, false, b.Base()), t.Err
}
