// internal/dispatch/dispatch_test.go
package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/link/sim"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

type txRecord struct {
	op, code string
	n        int
}

type fakeRecorder struct {
	tx []txRecord
}

func (f *fakeRecorder) Connected(bool) {}
func (f *fakeRecorder) SessionLost()   {}
func (f *fakeRecorder) Hotplug(string) {}
func (f *fakeRecorder) PollTick(bool)  {}
func (f *fakeRecorder) Transaction(op, code string, n int) {
	f.tx = append(f.tx, txRecord{op, code, n})
}

func setup(t *testing.T) (*Dispatcher, *sim.Bridge, *fakeRecorder) {
	t.Helper()
	b := sim.New(sim.Device("A1"))
	m := session.New(b, session.Options{})
	_, err := m.Connect("A1")
	require.NoError(t, err)

	require.Equal(t, link.StatusOK, b.InitGpio(link.GpioAll, []link.GpioConf{{Mode: link.GpioModeOutput}}))
	require.Equal(t, link.StatusOK, b.InitI2c(link.I2cInit{AddrMode: link.I2cAddr7Bit}))

	rec := &fakeRecorder{}
	return New(m, Options{Metrics: rec}), b, rec
}

func TestReadGpio_Values(t *testing.T) {
	d, b, _ := setup(t)
	b.SetInput(0, link.GpioSet)
	b.SetInput(3, link.GpioSet)

	r := d.ReadGpio(link.Gpio0 | link.Gpio1)
	require.True(t, r.OK())
	assert.Equal(t, [4]GpioValue{GpioSet, GpioReset, GpioReset, GpioSet}, r.Values)
	assert.Equal(t, 4, r.Transferred)
	assert.Equal(t, 1, b.Calls(sim.OpReadGpio), "one bulk read")
}

func TestReadGpio_ChannelErrorBit(t *testing.T) {
	d, b, _ := setup(t)
	b.SetGpioErrorMask(uint8(link.Gpio2))

	r := d.ReadGpio(link.GpioAll)
	require.True(t, r.OK())
	assert.Equal(t, GpioError, r.Values[2])
	assert.NotEqual(t, GpioError, r.Values[1])
	assert.Equal(t, uint8(link.Gpio2), r.ErrorMask)
	assert.Equal(t, 3, r.Transferred)
}

func TestReadGpio_CallFailureMarksAll(t *testing.T) {
	d, b, _ := setup(t)
	b.Fail(sim.OpReadGpio, link.StatusUSBCommErr)

	r := d.ReadGpio(link.GpioAll)
	assert.False(t, r.OK())
	assert.Equal(t, brgerr.CommunicationError, r.Status)
	for ch, v := range r.Values {
		assert.Equal(t, GpioError, v, "channel %d", ch)
	}
	assert.Equal(t, uint8(0x0F), r.ErrorMask)
}

func TestReadGpio_InvalidMask(t *testing.T) {
	d, b, _ := setup(t)
	for _, m := range []link.GpioMask{0, 0x10, 0xFF} {
		r := d.ReadGpio(m)
		assert.Equal(t, brgerr.InvalidChannel, r.Status, "mask 0x%02x", uint8(m))
	}
	assert.Zero(t, b.Calls(sim.OpReadGpio))
}

func TestWriteGpio(t *testing.T) {
	d, b, rec := setup(t)

	r := d.WriteGpio(link.Gpio1, link.GpioSet)
	require.True(t, r.OK())
	assert.Equal(t, 1, r.Transferred)

	read := d.ReadGpio(link.Gpio1)
	assert.Equal(t, GpioSet, read.Values[1])

	r = d.WriteGpio(link.Gpio0|link.Gpio1, link.GpioSet)
	assert.Equal(t, brgerr.InvalidChannel, r.Status)
	assert.Equal(t, 1, b.Calls(sim.OpWriteGpio))

	require.NotEmpty(t, rec.tx)
	assert.Equal(t, txRecord{"gpio_write", "invalid_channel", 0}, rec.tx[len(rec.tx)-1])
}

func TestWriteGpio_ChannelError(t *testing.T) {
	d, b, _ := setup(t)
	b.SetGpioErrorMask(uint8(link.Gpio3))

	r := d.WriteGpio(link.Gpio3, link.GpioSet)
	assert.Equal(t, brgerr.GpioError, r.Status)
	assert.Equal(t, uint8(link.Gpio3), r.ErrorMask)
	assert.Zero(t, r.Transferred)
}

func TestWriteI2c_AckAndReadBack(t *testing.T) {
	d, b, _ := setup(t)
	mem := sim.NewMemory()
	b.AddTarget(0x50, mem)

	w := d.WriteI2c(0x50, []byte{0x10, 0xAA, 0xBB})
	require.True(t, w.OK())
	assert.Equal(t, 3, w.Transferred)

	require.True(t, d.WriteI2c(0x50, []byte{0x10}).OK())
	buf := make([]byte, 8)
	r := d.ReadI2c(0x50, buf, 2)
	require.True(t, r.OK())
	assert.Equal(t, []byte{0xAA, 0xBB}, r.Data)
}

func TestWriteI2c_NackKeepsPartialCount(t *testing.T) {
	d, b, _ := setup(t)
	b.AddTarget(0x50, &sim.Memory{NackAfter: 1})

	w := d.WriteI2c(0x50, []byte{0x01, 0x02})
	assert.Equal(t, brgerr.I2cError, w.Status)
	assert.Equal(t, 1, w.Transferred)
	assert.Equal(t, []byte{0x01}, w.Data)
	assert.Equal(t, []byte{0x01, 0x02}, w.Sent)
	assert.Equal(t, "WRITE (0x50): 0x01, 0x02, NACK", MonitorLine(w, true, numbase.Hexadecimal))
}

func TestI2c_ParameterErrors(t *testing.T) {
	d, b, _ := setup(t)
	buf := make([]byte, 4)

	assert.Equal(t, brgerr.InvalidNumericInput, d.WriteI2c(0x50, nil).Status)
	assert.Equal(t, brgerr.InvalidNumericInput, d.WriteI2c(0x50, make([]byte, link.I2cMaxTransfer+1)).Status)
	assert.Equal(t, brgerr.InvalidNumericInput, d.WriteI2c(0x400, []byte{1}).Status)
	assert.Equal(t, brgerr.InvalidNumericInput, d.ReadI2c(0x50, buf, 0).Status)
	assert.Equal(t, brgerr.InvalidNumericInput, d.ReadI2c(0x50, buf, 5).Status)

	assert.Zero(t, b.Calls(sim.OpWriteI2c))
	assert.Zero(t, b.Calls(sim.OpReadI2c))
}

func TestNotConnected_NoHardware(t *testing.T) {
	b := sim.New(sim.Device("A1"))
	d := New(session.New(b, session.Options{}), Options{})

	assert.Equal(t, brgerr.NotConnected, d.ReadGpio(link.GpioAll).Status)
	assert.Equal(t, brgerr.NotConnected, d.WriteGpio(link.Gpio0, link.GpioSet).Status)
	assert.Equal(t, brgerr.NotConnected, d.WriteI2c(0x50, []byte{1}).Status)
	assert.Equal(t, brgerr.NotConnected, d.ReadI2c(0x50, make([]byte, 1), 1).Status)

	for _, op := range []sim.Op{sim.OpReadGpio, sim.OpWriteGpio, sim.OpWriteI2c, sim.OpReadI2c} {
		assert.Zero(t, b.Calls(op), string(op))
	}
}

func TestMonitorLine(t *testing.T) {
	ok := I2cTransfer{Address: 0x50, Data: []byte{0x01, 0x02}}
	assert.Equal(t, "WRITE (0x50): 0x01, 0x02, ACK OK", MonitorLine(ok, true, numbase.Hexadecimal))

	nack := I2cTransfer{Result: Result{Status: brgerr.I2cError, Err: brgerr.I2cError}, Address: 0x50}
	assert.Equal(t, "READ (0x50): NACK", MonitorLine(nack, false, numbase.Hexadecimal))

	partial := I2cTransfer{
		Result:  Result{Status: brgerr.I2cError, Err: brgerr.I2cError, Transferred: 1},
		Address: 0x50,
		Data:    []byte{0x01},
		Sent:    []byte{0x01, 0x02, 0x03},
	}
	assert.Equal(t, "WRITE (0x50): 0x01, 0x02, 0x03, NACK", MonitorLine(partial, true, numbase.Hexadecimal))
	assert.Equal(t, "READ (0x50): 0x01, NACK", MonitorLine(partial, false, numbase.Hexadecimal))

	assert.Equal(t, "WRITE (80): 1, ACK OK", MonitorLine(I2cTransfer{Address: 0x50, Data: []byte{1}}, true, numbase.Decimal))
}
