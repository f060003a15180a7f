// internal/bridge/bridge_test.go
package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
	"github.com/tamzrod/stlink-bridge/internal/config"
	"github.com/tamzrod/stlink-bridge/internal/gpio"
	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/link/sim"
	"github.com/tamzrod/stlink-bridge/internal/numbase"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

func bridgeConfig() *config.BridgeConfig {
	cfg := &config.Config{Bridge: config.BridgeConfig{
		Gpio: []config.GpioConfig{
			{Channel: 0, Mode: "output", Speed: "high"},
			{Channel: 2, Mode: "analog"},
		},
		I2c: &config.I2cConfig{
			AddressMode: "7bit",
			OwnAddress:  0x10,
			Speed:       "fast",
			RiseTimeNs:  100,
			FallTimeNs:  100,
		},
	}}
	config.Normalize(cfg)
	return &cfg.Bridge
}

func connected(t *testing.T) (*Bridge, *sim.Bridge) {
	t.Helper()
	l := sim.New(sim.Device("A1"))
	b := New(l, Options{})
	_, err := b.Connect("A1")
	require.NoError(t, err)
	return b, l
}

func TestConnect_FirstFreeDevice(t *testing.T) {
	busy := sim.Device("A0")
	busy.InUse = true
	l := sim.New(busy, sim.Device("B1"))
	b := New(l, Options{})

	info, err := b.Connect("")
	require.NoError(t, err)
	assert.Equal(t, "B1", info.Device.UniqueID)
}

func TestConnect_NoFreeDevice(t *testing.T) {
	b := New(sim.New(), Options{})
	_, err := b.Connect("")
	assert.ErrorIs(t, err, brgerr.NoDeviceFound)
}

func TestApplyConfig(t *testing.T) {
	b, l := connected(t)

	require.NoError(t, b.ApplyConfig(bridgeConfig()))

	assert.Equal(t, link.GpioModeOutput, l.GpioConf(0).Mode)
	assert.Equal(t, link.GpioSpeedHigh, l.GpioConf(0).Speed)
	assert.Equal(t, link.GpioModeAnalog, l.GpioConf(2).Mode)
	assert.Equal(t, 2, l.Calls(sim.OpInitGpio), "one init per configured channel")

	init := l.I2cInit()
	require.NotNil(t, init)
	assert.Equal(t, uint16(0x10), init.OwnAddr)
	assert.Equal(t, uint16(0x10), b.I2c.Config().OwnAddress)

	cc, err := b.Gpio.GetConfig(2)
	require.NoError(t, err)
	assert.Equal(t, gpio.ModeAnalog, cc.Mode)
}

func TestApplyConfig_StopsAtFirstFailure(t *testing.T) {
	b, l := connected(t)
	l.Fail(sim.OpInitGpio, link.StatusOK, link.StatusUSBCommErr)

	err := b.ApplyConfig(bridgeConfig())
	assert.ErrorIs(t, err, brgerr.CommunicationError)
	assert.Contains(t, err.Error(), "gpio channel 2")
	assert.Nil(t, l.I2cInit(), "i2c is not applied after a gpio failure")
	assert.Zero(t, l.Calls(sim.OpInitI2c))
}

func TestApplyConfig_NotConnected(t *testing.T) {
	l := sim.New(sim.Device("A1"))
	b := New(l, Options{})
	err := b.ApplyConfig(bridgeConfig())
	assert.ErrorIs(t, err, brgerr.NotConnected)
}

func TestSetNumericBase_Broadcast(t *testing.T) {
	b, _ := connected(t)
	assert.Equal(t, numbase.Hexadecimal, b.Base())
	assert.Equal(t, numbase.Hexadecimal, b.I2c.Base())

	require.NoError(t, b.SetNumericBase(numbase.Decimal))
	assert.Equal(t, numbase.Decimal, b.I2c.Base())

	err := b.SetNumericBase(numbase.Base(7))
	assert.ErrorIs(t, err, brgerr.InvalidNumericInput)
	assert.Equal(t, numbase.Decimal, b.Base(), "invalid base leaves the old one")
}

type baseSpy struct{ got []numbase.Base }

func (s *baseSpy) SetNumericBase(b numbase.Base) { s.got = append(s.got, b) }

func TestObserve(t *testing.T) {
	b := New(sim.New(), Options{})
	spy := &baseSpy{}
	b.Observe(spy)
	require.NoError(t, b.SetNumericBase(numbase.Binary))
	assert.Equal(t, []numbase.Base{numbase.Hexadecimal, numbase.Binary}, spy.got)
}

func TestI2cText(t *testing.T) {
	b, l := connected(t)
	require.NoError(t, b.ApplyConfig(bridgeConfig()))
	l.AddTarget(0x50, sim.NewMemory())

	_, line, err := b.WriteI2cText("0x50", "0x00, 0xAB, 0xCD")
	require.NoError(t, err)
	assert.Equal(t, "WRITE (0x50): 0x00, 0xAB, 0xCD, ACK OK", line)

	_, _, err = b.WriteI2cText("50", "0")
	require.NoError(t, err)

	require.NoError(t, b.SetNumericBase(numbase.Decimal))
	tr, line, err := b.ReadI2cText("80", "2")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD}, tr.Data)
	assert.Equal(t, "READ (80): 171, 205, ACK OK", line)
}

func TestI2cText_Nack(t *testing.T) {
	b, l := connected(t)
	require.NoError(t, b.ApplyConfig(bridgeConfig()))
	l.AddTarget(0x50, &sim.Memory{NackAfter: 1})

	tr, line, err := b.WriteI2cText("0x50", "0x01, 0x02")
	assert.ErrorIs(t, err, brgerr.I2cError)
	assert.Equal(t, 1, tr.Transferred)
	assert.Equal(t, "WRITE (0x50): 0x01, 0x02, NACK", line)
}

func TestI2cText_BadInput(t *testing.T) {
	b, l := connected(t)

	_, _, err := b.WriteI2cText("0x80", "1")
	assert.ErrorIs(t, err, brgerr.InvalidNumericInput, "above the 7-bit limit")
	_, _, err = b.WriteI2cText("0x50", "")
	assert.ErrorIs(t, err, brgerr.InvalidNumericInput)
	_, _, err = b.ReadI2cText("0x50", "0")
	assert.ErrorIs(t, err, brgerr.InvalidNumericInput)
	assert.Zero(t, l.Calls(sim.OpWriteI2c))
}

func TestStart_PollsAndDisconnectStops(t *testing.T) {
	l := sim.New(sim.Device("A1"))
	b := New(l, Options{})

	cfg := bridgeConfig()
	cfg.Poll = config.PollConfig{Enabled: true, IntervalMs: 20}
	require.NoError(t, b.Start(cfg))
	assert.True(t, b.Poller.Running())

	events, cancel := b.Events(4)
	defer cancel()

	require.NoError(t, b.Session.Disconnect())
	assert.False(t, b.Poller.Running())
	assert.Equal(t, gpio.Default(), b.Gpio.Configs()[0], "disconnect resets cached gpio")

	ev := <-events
	assert.Equal(t, session.EventDisconnected, ev.Kind)
}
