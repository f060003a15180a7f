// internal/writer/ingest/client_test.go
package ingest

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve accepts one connection, decodes one packet and answers resp.
func serve(t *testing.T, resp byte) (string, <-chan Packet) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	got := make(chan Packet, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		p, err := ReadPacket(conn)
		if err != nil {
			return
		}
		got <- p
		_, _ = conn.Write([]byte{resp})
	}()
	return ln.Addr().String(), got
}

func TestMarshal_Header(t *testing.T) {
	b := Packet{Area: 3, UnitID: 7, Address: 0x0102, Count: 1, Payload: []byte{0xAB, 0xCD}}.Marshal()
	assert.Equal(t, []byte{'R', 'I', 0x01, 3, 0, 7, 0x01, 0x02, 0, 1, 0xAB, 0xCD}, b)

	p, err := ReadPacket(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), p.Address)
	assert.Equal(t, []byte{0xAB, 0xCD}, p.Payload)
}

func TestReadPacket_BadMagic(t *testing.T) {
	_, err := ReadPacket(bytes.NewReader([]byte("XX\x01\x03\x00\x00\x00\x00\x00\x00")))
	assert.Error(t, err)
}

func TestWriteRegisters_RoundTrip(t *testing.T) {
	addr, got := serve(t, respOK)
	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})
	require.NoError(t, err)

	require.NoError(t, c.WriteRegisters(3, 1, 40, []uint16{0x0001, 0x0203}))

	p := <-got
	assert.Equal(t, byte(3), p.Area)
	assert.Equal(t, uint8(1), p.UnitID)
	assert.Equal(t, uint16(40), p.Address)
	assert.Equal(t, uint16(2), p.Count)
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, p.Payload)
}

func TestWriteBits_Rejected(t *testing.T) {
	addr, got := serve(t, respRejected)
	c, err := NewEndpointClient(Config{Endpoint: addr, Timeout: time.Second})
	require.NoError(t, err)

	err = c.WriteBits(1, 1, 0, []bool{true, false, true, true})
	assert.ErrorIs(t, err, ErrRejected)

	p := <-got
	assert.Equal(t, []byte{0b1101}, p.Payload)
}
