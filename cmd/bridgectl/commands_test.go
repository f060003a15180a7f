// cmd/bridgectl/commands_test.go
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopholelabs/logging/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/stlink-bridge/internal/link"
	"github.com/tamzrod/stlink-bridge/internal/link/sim"
	"github.com/tamzrod/stlink-bridge/internal/session"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		configPath, debug, logFile = "", false, ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestList(t *testing.T) {
	p := writeConfig(t, "bridge:\n  link:\n    devices: [A1, B2]\n")
	out, err := execute(t, "list", "--config", p, "--log-file", filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	assert.Contains(t, out, "A1  0483:374f  STLINK-V3-A1")
	assert.Contains(t, out, "B2")
}

func TestI2cWriteRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "log")
	out, err := execute(t, "i2c", "write", "0x50", "0x00", "0x2A", "--log-file", logPath)
	require.NoError(t, err)
	assert.Equal(t, "WRITE (0x50): 0x00, 0x2a, ACK OK\n", out)
}

func TestI2cScan(t *testing.T) {
	out, err := execute(t, "i2c", "scan", "--log-file", filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	assert.Equal(t, "0x50\n", out, "a sleeping SHTC3 does not acknowledge")
}

func TestGpioWrite_BadChannel(t *testing.T) {
	_, err := execute(t, "gpio", "write", "9", "1")
	assert.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	p := writeConfig(t, "bridge:\n  numeric_base: 7\n")
	_, err := execute(t, "list", "--config", p)
	assert.Error(t, err)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, types.TraceLevel, levelOf("trace"))
	assert.Equal(t, types.WarnLevel, levelOf("warn"))
	assert.Equal(t, types.InfoLevel, levelOf(""))
}

func TestSensor(t *testing.T) {
	out, err := execute(t, "sensor", "--log-file", filepath.Join(t.TempDir(), "log"))
	require.NoError(t, err)
	assert.Regexp(t, `^2[23]\.\d\d°C 4[45]\.\d\d%RH\n$`, out)
}

func TestStart_FailureAfterConnectCloses(t *testing.T) {
	logFile = filepath.Join(t.TempDir(), "log")
	t.Cleanup(func() { logFile = "" })

	e, err := newEnv()
	require.NoError(t, err)
	defer e.Close()

	l := e.link.(*sim.Bridge)
	l.Fail(sim.OpInitGpio, link.StatusGPIOErr)

	require.Error(t, e.connect())
	assert.Equal(t, session.Disconnected, e.bridge.Session.State())
	assert.Equal(t, 1, l.Calls(sim.OpOpen))
	assert.Equal(t, 1, l.Calls(sim.OpClose), "the device is closed again")
}
