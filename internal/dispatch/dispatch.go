// internal/dispatch/dispatch.go
package dispatch

import (
	"fmt"

	"github.com/loopholelabs/logging/types"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/metrics"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

// MaxAddress is the widest (10-bit) I2C address.
const MaxAddress = 0x3FF

type Options struct {
	Log     types.Logger
	Metrics metrics.Recorder
}

// Dispatcher runs GPIO and I2C transactions on the borrowed device.
// It never retries.
type Dispatcher struct {
	sess session.Borrower
	log  types.Logger
	met  metrics.Recorder
}

func New(sess session.Borrower, opts Options) *Dispatcher {
	return &Dispatcher{sess: sess, log: opts.Log, met: metrics.OrNop(opts.Metrics)}
}

func (d *Dispatcher) record(op string, r Result) {
	d.met.Transaction(op, string(r.Status), r.Transferred)
	if r.Err == nil || d.log == nil {
		return
	}
	ev := d.log.Warn()
	if brgerr.CategoryOf(r.Status) == brgerr.CategoryParameter {
		ev = d.log.Debug()
	}
	ev.Str("op", op).Str("code", string(r.Status)).Int("bytes", r.Transferred).Err(r.Err).Msg("transaction failed")
}

// ---- GPIO ----

// ReadGpio reads all four channels in one call. A channel whose error
// bit is set reads as GpioError. When the call fails outright every
// channel is GpioError.
func (d *Dispatcher) ReadGpio(mask link.GpioMask) GpioRead {
	out := GpioRead{Mask: mask}
	for i := range out.Values {
		out.Values[i] = GpioError
	}

	if mask == 0 || mask&^link.GpioAll != 0 {
		out.Result = result(brgerr.Param(brgerr.InvalidChannel, "gpio.read", fmt.Sprintf("mask 0x%02x", uint8(mask))))
		out.ErrorMask = uint8(link.GpioAll)
		d.record("gpio_read", out.Result)
		return out
	}

	var (
		vals    [link.GpioChannels]link.GpioLevel
		errMask uint8
	)
	_, err := d.sess.Borrow("gpio.read", func(l link.Link) error {
		var st link.Status
		vals, errMask, st = l.ReadGpio(link.GpioAll)
		return brgerr.Hardware("gpio.read", st)
	})
	out.Result = result(err)
	if err != nil {
		out.ErrorMask = uint8(link.GpioAll)
		d.record("gpio_read", out.Result)
		return out
	}

	out.ErrorMask = errMask
	for ch := 0; ch < link.GpioChannels; ch++ {
		switch {
		case errMask&uint8(link.MaskOf(ch)) != 0:
			out.Values[ch] = GpioError
		case vals[ch] == link.GpioSet:
			out.Values[ch] = GpioSet
			out.Transferred++
		default:
			out.Values[ch] = GpioReset
			out.Transferred++
		}
	}
	d.record("gpio_read", out.Result)
	return out
}

// WriteGpio drives exactly one channel.
func (d *Dispatcher) WriteGpio(mask link.GpioMask, v link.GpioLevel) Result {
	ch, ok := mask.Single()
	if !ok {
		r := result(brgerr.Param(brgerr.InvalidChannel, "gpio.write", fmt.Sprintf("mask 0x%02x selects zero or several channels", uint8(mask))))
		d.record("gpio_write", r)
		return r
	}
	if v != link.GpioSet && v != link.GpioReset {
		r := result(brgerr.Param(brgerr.InvalidConfig, "gpio.write", fmt.Sprintf("level %d", v)))
		d.record("gpio_write", r)
		return r
	}

	var errMask uint8
	_, err := d.sess.Borrow("gpio.write", func(l link.Link) error {
		var st link.Status
		errMask, st = l.WriteGpio(mask, []link.GpioLevel{v})
		return brgerr.Hardware("gpio.write", st)
	})
	r := result(err)
	r.ErrorMask = errMask
	if err == nil && errMask == 0 {
		r.Transferred = 1
	}
	if d.log != nil && err == nil {
		d.log.Debug().Int("channel", ch).Int("level", int(v)).Msg("gpio written")
	}
	d.record("gpio_write", r)
	return r
}

// ---- I2C ----

func checkAddress(op string, addr uint16) error {
	if addr > MaxAddress {
		return brgerr.Param(brgerr.InvalidNumericInput, op, fmt.Sprintf("address 0x%x above 0x%x", addr, MaxAddress))
	}
	return nil
}

// WriteI2c sends data to addr. On a NACK the result carries I2cError and
// the number of bytes the target acknowledged before it.
func (d *Dispatcher) WriteI2c(addr uint16, data []byte) I2cTransfer {
	out := I2cTransfer{Address: addr}
	if err := checkAddress("i2c.write", addr); err != nil {
		out.Result = result(err)
		d.record("i2c_write", out.Result)
		return out
	}
	if len(data) == 0 || len(data) > link.I2cMaxTransfer {
		out.Result = result(brgerr.Param(brgerr.InvalidNumericInput, "i2c.write", fmt.Sprintf("%d bytes outside 1..%d", len(data), link.I2cMaxTransfer)))
		d.record("i2c_write", out.Result)
		return out
	}

	var n int
	_, err := d.sess.Borrow("i2c.write", func(l link.Link) error {
		var st link.Status
		n, st = l.WriteI2c(addr, data)
		return brgerr.Hardware("i2c.write", st)
	})
	n = clamp(n, len(data))
	out.Result = result(err)
	out.Transferred = n
	out.Data = data[:n]
	out.Sent = data
	if d.log != nil && err == nil {
		d.log.Debug().Int("address", int(addr)).Int("bytes", n).Msg("i2c write")
	}
	d.record("i2c_write", out.Result)
	return out
}

// ReadI2c reads count bytes from addr into buf. count is bounded by the
// buffer and by I2cMaxTransfer. Bytes read before a failure are kept.
func (d *Dispatcher) ReadI2c(addr uint16, buf []byte, count int) I2cTransfer {
	out := I2cTransfer{Address: addr}
	if err := checkAddress("i2c.read", addr); err != nil {
		out.Result = result(err)
		d.record("i2c_read", out.Result)
		return out
	}
	if count <= 0 || count > len(buf) || count > link.I2cMaxTransfer {
		out.Result = result(brgerr.Param(brgerr.InvalidNumericInput, "i2c.read",
			fmt.Sprintf("count %d outside 1..%d", count, min(len(buf), link.I2cMaxTransfer))))
		d.record("i2c_read", out.Result)
		return out
	}

	var n int
	_, err := d.sess.Borrow("i2c.read", func(l link.Link) error {
		var st link.Status
		n, st = l.ReadI2c(addr, buf[:count])
		return brgerr.Hardware("i2c.read", st)
	})
	n = clamp(n, count)
	out.Result = result(err)
	out.Transferred = n
	out.Data = buf[:n]
	if d.log != nil && err == nil {
		d.log.Debug().Int("address", int(addr)).Int("bytes", n).Msg("i2c read")
	}
	d.record("i2c_read", out.Result)
	return out
}

func clamp(n, top int) int {
	if n < 0 {
		return 0
	}
	if n > top {
		return top
	}
	return n
}
