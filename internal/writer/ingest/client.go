// internal/writer/ingest/client.go
package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// Raw Ingest v1: one packet per connection, one status byte back.
const (
	magic     = "RI"
	versionV1 = 0x01
	headerLen = 10

	respOK       byte = 0x00
	respRejected byte = 0x01
)

// ErrRejected is returned when the server refuses a packet.
var ErrRejected = errors.New("writer ingest: rejected")

// EndpointClient is stateless; every write dials the endpoint.
type EndpointClient struct {
	endpoint string
	timeout  time.Duration
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer ingest: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &EndpointClient{endpoint: cfg.Endpoint, timeout: cfg.Timeout}, nil
}

func (c *EndpointClient) Close() error { return nil }

func (c *EndpointClient) WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error {
	return c.send(Packet{Area: area, UnitID: unitID, Address: addr, Count: uint16(len(bits)), Payload: packBits(bits)})
}

func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	payload := make([]byte, 0, 2*len(regs))
	for _, r := range regs {
		payload = binary.BigEndian.AppendUint16(payload, r)
	}
	return c.send(Packet{Area: area, UnitID: unitID, Address: addr, Count: uint16(len(regs)), Payload: payload})
}

func (c *EndpointClient) send(p Packet) error {
	conn, err := net.DialTimeout("tcp", c.endpoint, c.timeout)
	if err != nil {
		return fmt.Errorf("writer ingest: dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write(p.Marshal()); err != nil {
		return fmt.Errorf("writer ingest: write: %w", err)
	}

	var resp [1]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("writer ingest: read status: %w", err)
	}
	switch resp[0] {
	case respOK:
		return nil
	case respRejected:
		return ErrRejected
	}
	return fmt.Errorf("writer ingest: unknown status 0x%02x", resp[0])
}

// ---- packet ----

// Packet is one Raw Ingest v1 frame.
//
//	0-1  magic "RI"
//	2    version
//	3    area
//	4-5  unit id
//	6-7  address
//	8-9  count
//	10+  payload
type Packet struct {
	Area    byte
	UnitID  uint8
	Address uint16
	Count   uint16
	Payload []byte
}

func (p Packet) Marshal() []byte {
	b := make([]byte, headerLen, headerLen+len(p.Payload))
	copy(b, magic)
	b[2] = versionV1
	b[3] = p.Area
	binary.BigEndian.PutUint16(b[4:], uint16(p.UnitID))
	binary.BigEndian.PutUint16(b[6:], p.Address)
	binary.BigEndian.PutUint16(b[8:], p.Count)
	return append(b, p.Payload...)
}

// ReadPacket reads one frame whose payload length follows from area and count.
func ReadPacket(r io.Reader) (Packet, error) {
	var h [headerLen]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Packet{}, err
	}
	if string(h[:2]) != magic || h[2] != versionV1 {
		return Packet{}, fmt.Errorf("writer ingest: bad header % x", h[:3])
	}
	p := Packet{
		Area:    h[3],
		UnitID:  uint8(binary.BigEndian.Uint16(h[4:])),
		Address: binary.BigEndian.Uint16(h[6:]),
		Count:   binary.BigEndian.Uint16(h[8:]),
	}

	n := int(p.Count) * 2
	if p.Area == 1 || p.Area == 2 {
		n = (int(p.Count) + 7) / 8
	}
	p.Payload = make([]byte, n)
	if _, err := io.ReadFull(r, p.Payload); err != nil {
		return Packet{}, err
	}
	return p, nil
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}
