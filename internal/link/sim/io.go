// internal/link/sim/io.go
package sim

import "github.com/tamzrod/stlink-bridge/internal/link"

func (b *Bridge) InitGpio(mask link.GpioMask, conf []link.GpioConf) link.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpInitGpio); st != link.StatusOK {
		return st
	}
	if b.open == "" {
		return link.StatusNoProbe
	}
	if mask == 0 || mask&^link.GpioAll != 0 || len(conf) == 0 {
		return link.StatusParamErr
	}
	// One config applies to every selected channel, or one config per channel.
	n := 0
	for ch := 0; ch < link.GpioChannels; ch++ {
		if !mask.Has(ch) {
			continue
		}
		c := conf[0]
		if len(conf) > 1 {
			if n >= len(conf) {
				return link.StatusParamErr
			}
			c = conf[n]
		}
		b.gpioConf[ch] = c
		n++
	}
	b.gpioInit = true
	return link.StatusOK
}

func (b *Bridge) ReadGpio(mask link.GpioMask) ([link.GpioChannels]link.GpioLevel, uint8, link.Status) {
	b.mu.Lock()
	hook := b.readGpioHook
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var vals [link.GpioChannels]link.GpioLevel
	if st := b.enter(OpReadGpio); st != link.StatusOK {
		return vals, 0, st
	}
	if b.open == "" {
		return vals, 0, link.StatusNoProbe
	}
	if !b.gpioInit {
		return vals, 0, link.StatusComInitNotDone
	}
	for ch := 0; ch < link.GpioChannels; ch++ {
		if mask.Has(ch) {
			vals[ch] = b.gpioLevel[ch]
		}
	}
	return vals, b.gpioErrors & uint8(mask), link.StatusOK
}

func (b *Bridge) WriteGpio(mask link.GpioMask, vals []link.GpioLevel) (uint8, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpWriteGpio); st != link.StatusOK {
		return uint8(mask), st
	}
	if b.open == "" {
		return uint8(mask), link.StatusNoProbe
	}
	if !b.gpioInit {
		return uint8(mask), link.StatusComInitNotDone
	}
	errMask := b.gpioErrors & uint8(mask)
	n := 0
	for ch := 0; ch < link.GpioChannels; ch++ {
		if !mask.Has(ch) {
			continue
		}
		if n >= len(vals) {
			return uint8(mask), link.StatusParamErr
		}
		if errMask&uint8(link.MaskOf(ch)) == 0 && b.gpioConf[ch].Mode == link.GpioModeOutput {
			b.gpioLevel[ch] = vals[n]
		}
		n++
	}
	if errMask != 0 {
		return errMask, link.StatusGPIOErr
	}
	return 0, link.StatusOK
}

func (b *Bridge) InitI2c(init link.I2cInit) link.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpInitI2c); st != link.StatusOK {
		return st
	}
	if b.open == "" {
		return link.StatusNoProbe
	}
	if init.DNF > 15 || (!init.DigitalFilter && init.DNF != 0) {
		return link.StatusParamErr
	}
	cp := init
	b.i2cInit = &cp
	return link.StatusOK
}

func (b *Bridge) ReadI2c(addr uint16, buf []byte) (int, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpReadI2c); st != link.StatusOK {
		return 0, st
	}
	if st := b.i2cReady(); st != link.StatusOK {
		return 0, st
	}
	t, ok := b.i2cTargets[addr]
	if !ok {
		return 0, link.StatusI2CErr
	}
	n, ok := t.Read(buf)
	if !ok {
		return n, link.StatusI2CErr
	}
	return n, link.StatusOK
}

func (b *Bridge) WriteI2c(addr uint16, data []byte) (int, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpWriteI2c); st != link.StatusOK {
		return 0, st
	}
	if st := b.i2cReady(); st != link.StatusOK {
		return 0, st
	}
	t, ok := b.i2cTargets[addr]
	if !ok {
		return 0, link.StatusI2CErr
	}
	n, ok := t.Write(data)
	if !ok {
		return n, link.StatusI2CErr
	}
	return n, link.StatusOK
}

func (b *Bridge) i2cReady() link.Status {
	if b.open == "" {
		return link.StatusNoProbe
	}
	if b.i2cInit == nil {
		return link.StatusComInitNotDone
	}
	return link.StatusOK
}

// ---- targets ----

// Memory is an EEPROM-like target: the first written byte sets the
// register pointer, the rest are stored from there. Reads continue from
// the pointer. NackAfter >= 0 NACKs any write longer than that many bytes.
type Memory struct {
	Data      [256]byte
	Ptr       byte
	NackAfter int
}

// NewMemory returns a memory target that never NACKs.
func NewMemory() *Memory { return &Memory{NackAfter: -1} }

func (m *Memory) Write(data []byte) (int, bool) {
	n := len(data)
	ok := true
	if m.NackAfter >= 0 && n > m.NackAfter {
		n = m.NackAfter
		ok = false
	}
	for i := 0; i < n; i++ {
		if i == 0 {
			m.Ptr = data[0]
			continue
		}
		m.Data[m.Ptr] = data[i]
		m.Ptr++
	}
	return n, ok
}

func (m *Memory) Read(buf []byte) (int, bool) {
	for i := range buf {
		buf[i] = m.Data[m.Ptr]
		m.Ptr++
	}
	return len(buf), true
}
