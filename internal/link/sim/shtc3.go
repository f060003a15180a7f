// internal/link/sim/shtc3.go
package sim

// SHTC3 is a Sensirion humidity/temperature sensor target.
// Raw values are returned as-is on the next read after a measure command.
type SHTC3 struct {
	RawTemp     uint16
	RawHumidity uint16

	Asleep bool
	cmd    uint16
}

// SHTC3 commands.
const (
	shtc3Wakeup uint16 = 0x3517
	shtc3Sleep  uint16 = 0xB098
	shtc3ReadID uint16 = 0xEFC8
)

// shtc3TempFirst lists measure commands that return temperature first.
var shtc3TempFirst = map[uint16]bool{0x7866: true, 0x7CA2: true, 0x609C: true, 0x6458: true}

// shtc3HumFirst lists measure commands that return humidity first.
var shtc3HumFirst = map[uint16]bool{0x58E0: true, 0x5C24: true, 0x401A: true, 0x44DE: true}

func (s *SHTC3) Write(data []byte) (int, bool) {
	if len(data) < 2 {
		return len(data), false
	}
	cmd := uint16(data[0])<<8 | uint16(data[1])
	switch {
	case cmd == shtc3Wakeup:
		s.Asleep = false
	case s.Asleep:
		return 0, false // only wakeup is acknowledged while asleep
	case cmd == shtc3Sleep:
		s.Asleep = true
	}
	s.cmd = cmd
	return 2, true
}

func (s *SHTC3) Read(buf []byte) (int, bool) {
	if s.Asleep {
		return 0, false
	}
	var words []uint16
	switch {
	case shtc3TempFirst[s.cmd]:
		words = []uint16{s.RawTemp, s.RawHumidity}
	case shtc3HumFirst[s.cmd]:
		words = []uint16{s.RawHumidity, s.RawTemp}
	case s.cmd == shtc3ReadID:
		words = []uint16{0x0807}
	default:
		return 0, false
	}

	var out []byte
	for _, w := range words {
		hi, lo := byte(w>>8), byte(w)
		out = append(out, hi, lo, SensirionCRC([]byte{hi, lo}))
	}
	n := copy(buf, out)
	return n, true
}

// SensirionCRC is CRC-8 with polynomial 0x31 and init 0xFF.
func SensirionCRC(data []byte) byte {
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
