// internal/link/sim/sim.go
package sim

import (
	"sync"

	"github.com/tamzrod/stlink-bridge/internal/link"
)

// Op names a link call for fault injection.
type Op string

const (
	OpEnumerate Op = "enumerate"
	OpOpen      Op = "open"
	OpClose     Op = "close"
	OpCloseProt Op = "close_protocol"
	OpVersion   Op = "version"
	OpClocks    Op = "clocks"
	OpTiming    Op = "timing"
	OpInitGpio  Op = "init_gpio"
	OpReadGpio  Op = "read_gpio"
	OpWriteGpio Op = "write_gpio"
	OpInitI2c   Op = "init_i2c"
	OpReadI2c   Op = "read_i2c"
	OpWriteI2c  Op = "write_i2c"
)

// Default clocks reported by ClockFrequencies (kHz).
const (
	DefaultPeripheralKHz = 48000
	DefaultBusKHz        = 192000
)

// Target is a simulated I2C slave.
type Target interface {
	// Write consumes data and returns how many bytes were ACKed.
	// ok=false means the transfer ended with a NACK.
	Write(data []byte) (n int, ok bool)
	Read(buf []byte) (n int, ok bool)
}

// Bridge is an in-memory link.Link.
// It is safe for concurrent use so tests can inspect it mid-run.
type Bridge struct {
	mu sync.Mutex

	devices []link.DeviceDescriptor
	open    string
	version link.Version
	openSt  link.Status // status OpenDevice returns on success (OK or a warning)

	periphKHz uint32
	busKHz    uint32

	faults map[Op][]link.Status
	calls  map[Op]int

	gpioConf   [link.GpioChannels]link.GpioConf
	gpioLevel  [link.GpioChannels]link.GpioLevel
	gpioErrors uint8
	gpioInit   bool

	i2cInit    *link.I2cInit
	i2cTargets map[uint16]Target

	readGpioHook func()
}

// New returns a bridge that exposes devs.
func New(devs ...link.DeviceDescriptor) *Bridge {
	return &Bridge{
		devices:    append([]link.DeviceDescriptor(nil), devs...),
		version:    link.Version{VID: 0x0483, PID: 0x374F, Major: 3, Jtag: 7, Msc: 1, Bridge: 1, Swim: 0},
		periphKHz:  DefaultPeripheralKHz,
		busKHz:     DefaultBusKHz,
		faults:     map[Op][]link.Status{},
		calls:      map[Op]int{},
		i2cTargets: map[uint16]Target{},
	}
}

// Device builds a descriptor with the ST vendor id.
func Device(id string) link.DeviceDescriptor {
	return link.DeviceDescriptor{
		UniqueID:  id,
		VendorID:  0x0483,
		ProductID: 0x374F,
		BridgeID:  "STLINK-V3-" + id,
	}
}

// ---- test controls ----

// SetDevices replaces the visible device set (simulates hot-plug).
func (b *Bridge) SetDevices(devs ...link.DeviceDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = append([]link.DeviceDescriptor(nil), devs...)
}

// Fail queues statuses returned by the next calls of op, in order.
func (b *Bridge) Fail(op Op, st ...link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[op] = append(b.faults[op], st...)
}

// Calls returns how many times op reached the bridge.
func (b *Bridge) Calls(op Op) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// SetOpenStatus makes OpenDevice succeed with st (e.g. old firmware warning).
func (b *Bridge) SetOpenStatus(st link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openSt = st
}

// SetClocks overrides the reported clocks.
func (b *Bridge) SetClocks(periphKHz, busKHz uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.periphKHz, b.busKHz = periphKHz, busKHz
}

// SetInput drives the external level seen on a non-output channel.
func (b *Bridge) SetInput(channel int, lv link.GpioLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gpioLevel[channel] = lv
}

// SetGpioErrorMask makes channels in mask report an error on reads and writes.
func (b *Bridge) SetGpioErrorMask(mask uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gpioErrors = mask
}

// OnReadGpio installs a hook run (without the lock) inside every ReadGpio.
func (b *Bridge) OnReadGpio(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readGpioHook = fn
}

// AddTarget attaches an I2C slave.
func (b *Bridge) AddTarget(addr uint16, t Target) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.i2cTargets[addr] = t
}

// GpioConf returns the last accepted config of a channel.
func (b *Bridge) GpioConf(channel int) link.GpioConf {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gpioConf[channel]
}

// I2cInit returns the last accepted I2C init, nil if none.
func (b *Bridge) I2cInit() *link.I2cInit {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.i2cInit == nil {
		return nil
	}
	cp := *b.i2cInit
	return &cp
}

// OpenID returns the id of the open device, "" when closed.
func (b *Bridge) OpenID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// enter counts the call and pops a queued fault. Caller holds mu.
func (b *Bridge) enter(op Op) link.Status {
	b.calls[op]++
	q := b.faults[op]
	if len(q) == 0 {
		return link.StatusOK
	}
	b.faults[op] = q[1:]
	return q[0]
}

// ---- link.Link ----

func (b *Bridge) EnumerateDevices(refresh bool) ([]link.DeviceDescriptor, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpEnumerate); st != link.StatusOK {
		return nil, st
	}
	out := make([]link.DeviceDescriptor, len(b.devices))
	copy(out, b.devices)
	for i := range out {
		if out[i].UniqueID == b.open {
			out[i].InUse = true
		}
	}
	return out, link.StatusOK
}

func (b *Bridge) OpenDevice(id string) link.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpOpen); st != link.StatusOK {
		return st
	}
	found := false
	for _, d := range b.devices {
		if d.UniqueID == id {
			if d.InUse {
				return link.StatusPermissionErr
			}
			found = true
		}
	}
	if !found {
		return link.StatusSerialNotFound
	}
	b.open = id
	b.gpioConf = [link.GpioChannels]link.GpioConf{}
	b.gpioInit = false
	b.i2cInit = nil
	return b.openSt
}

func (b *Bridge) CloseDevice() link.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.enter(OpClose)
	b.open = ""
	return st
}

func (b *Bridge) CloseProtocol(p link.Protocol) link.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpCloseProt); st != link.StatusOK {
		return st
	}
	if p == link.ProtocolI2C || p == link.ProtocolAll {
		b.i2cInit = nil
	}
	if p == link.ProtocolGPIO || p == link.ProtocolAll {
		b.gpioInit = false
	}
	return link.StatusOK
}

func (b *Bridge) FirmwareVersion() (link.Version, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpVersion); st != link.StatusOK {
		return link.Version{}, st
	}
	if b.open == "" {
		return link.Version{}, link.StatusNoProbe
	}
	return b.version, link.StatusOK
}

func (b *Bridge) ClockFrequencies(p link.Protocol) (uint32, uint32, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpClocks); st != link.StatusOK {
		return 0, 0, st
	}
	if b.open == "" {
		return 0, 0, link.StatusNoProbe
	}
	return b.periphKHz, b.busKHz, link.StatusOK
}

func (b *Bridge) ComputeTimingRegister(req link.TimingRequest) (uint32, link.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st := b.enter(OpTiming); st != link.StatusOK {
		return 0, st
	}
	return deriveTiming(b.periphKHz, req)
}
