// internal/numbase/numbase.go
package numbase

import (
	"strconv"
	"strings"

	"github.com/tamzrod/stlink-bridge/internal/brgerr"
)

// Base is the global display/parse base for addresses and data.
type Base uint8

const (
	Binary      Base = 2
	Octal       Base = 8
	Decimal     Base = 10
	Hexadecimal Base = 16
)

// Default matches the initial menu selection.
const Default = Hexadecimal

func (b Base) Valid() bool {
	switch b {
	case Binary, Octal, Decimal, Hexadecimal:
		return true
	}
	return false
}

func (b Base) prefix() string {
	switch b {
	case Binary:
		return "0b"
	case Octal:
		return "0o"
	case Hexadecimal:
		return "0x"
	}
	return ""
}

// byteWidth returns the smallest of 1/2/4/8 bytes that holds n.
func byteWidth(n uint64) int {
	switch {
	case n <= 0xFF:
		return 1
	case n <= 0xFFFF:
		return 2
	case n <= 0xFFFFFFFF:
		return 4
	}
	return 8
}

// Format renders n in base b, zero-padded to its byte width.
// Invalid bases fall back to hexadecimal.
func Format(n uint64, b Base) string {
	if !b.Valid() {
		b = Hexadecimal
	}
	bits := byteWidth(n) * 8

	var digits int
	switch b {
	case Binary:
		digits = bits
	case Octal:
		digits = (bits + 2) / 3
	case Hexadecimal:
		digits = bits / 4
	default:
		return strconv.FormatUint(n, 10)
	}

	s := strconv.FormatUint(n, int(b))
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return b.prefix() + s
}

// Parse reads an unsigned number in base b that must fit in bitSize bits.
// A prefix matching b (0b, 0o, 0x) is accepted.
func Parse(s string, b Base, bitSize int) (uint64, error) {
	if !b.Valid() {
		return 0, brgerr.Param(brgerr.InvalidNumericInput, "numbase.parse", "unsupported base "+strconv.Itoa(int(b)))
	}
	t := strings.TrimSpace(s)
	if p := b.prefix(); p != "" && len(t) > len(p) && strings.EqualFold(t[:len(p)], p) {
		t = t[len(p):]
	}
	if t == "" {
		return 0, brgerr.Param(brgerr.InvalidNumericInput, "numbase.parse", "empty value")
	}
	v, err := strconv.ParseUint(t, int(b), bitSize)
	if err != nil {
		return 0, &brgerr.E{C: brgerr.InvalidNumericInput, Op: "numbase.parse", Msg: strconv.Quote(s), Err: err}
	}
	return v, nil
}

// ParseBytes parses a comma-separated byte list ("0x01, 0x02"). Empty
// elements are skipped; an empty list is an error.
func ParseBytes(s string, b Base) ([]byte, error) {
	var out []byte
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := Parse(part, b, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(v))
	}
	if len(out) == 0 {
		return nil, brgerr.Param(brgerr.InvalidNumericInput, "numbase.parse", "empty data list")
	}
	return out, nil
}

// FormatBytes renders data as a comma-separated list in base b.
func FormatBytes(data []byte, b Base) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = Format(uint64(v), b)
	}
	return strings.Join(parts, ", ")
}
