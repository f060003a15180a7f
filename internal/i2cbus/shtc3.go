// internal/i2cbus/shtc3.go
package i2cbus

import (
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers/shtc3"
)

// SHTC3Address is the fixed address of the sensor.
const SHTC3Address = 0x70

// Reading is one SHTC3 measurement.
type Reading struct {
	MilliCelsius int32
	RHx100       int16
}

func (r Reading) String() string {
	return fmt.Sprintf("%.2f°C %.2f%%RH", float64(r.MilliCelsius)/1000, float64(r.RHx100)/100)
}

// ReadSHTC3 wakes the sensor, measures and puts it back to sleep.
// Wake and measure go straight to the bus: the stock driver drops Tx errors,
// and an absent sensor must not read as -45 °C.
func ReadSHTC3(bus *Bus) (Reading, error) {
	if err := bus.Tx(SHTC3Address, []byte(shtc3.SHTC3_CMD_WAKEUP), nil); err != nil {
		return Reading{}, fmt.Errorf("shtc3: wake: %w", err)
	}
	time.Sleep(time.Millisecond)

	dev := shtc3.New(bus)
	defer func() { _ = dev.Sleep() }()

	var raw [6]byte
	if err := bus.Tx(SHTC3Address, []byte(shtc3.SHTC3_CMD_MEASURE_HP), raw[:]); err != nil {
		return Reading{}, fmt.Errorf("shtc3: measure: %w", err)
	}
	if crc8(raw[0:2]) != raw[2] || crc8(raw[3:5]) != raw[5] {
		return Reading{}, fmt.Errorf("shtc3: measure: %w", ErrCRC)
	}

	t := uint16(raw[0])<<8 | uint16(raw[1])
	rh := uint16(raw[3])<<8 | uint16(raw[4])
	return Reading{
		MilliCelsius: (21875*int32(t))>>13 - 45000,
		RHx100:       int16((1250 * int32(rh)) >> 13),
	}, nil
}

// ErrCRC reports a measurement word whose checksum does not match.
var ErrCRC = errors.New("checksum mismatch")

// crc8 is the Sensirion CRC: polynomial 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
