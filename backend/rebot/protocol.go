// Package rebot implements the rebot backend of spec §4.2/§6: a
// numeric-addressed register space reached over a framed TCP
// protocol instead of local memory. Grounded on
// core_engine/network/tap_device.go's raw-fd framed read/write
// discipline and core_engine/devices/ne2000.go's RX/TX packet framing,
// generalized from Ethernet frames to the rebot fixed-size word frames.
package rebot

import (
	"encoding/binary"
	"fmt"
	"io"
)

// wordSize is the wire word size: fixed-size 32-bit little-endian
// words, per spec §6.
const wordSize = 4

// Opcode identifies a rebot command, carried in a frame header.
type Opcode uint32

const (
	OpHello  Opcode = iota // client -> server: protocol version
	OpWelcome              // server -> client: negotiated version + session key
	OpRead                 // client -> server: read length words at (bar, address)
	OpWrite                // client -> server: write length words at (bar, address), payload follows
	OpAck                  // server -> client: write accepted
	OpData                 // server -> client: read response, payload follows
	OpHeartbeat            // server -> client: no-op keepalive
)

// ProtocolVersion is the version this client negotiates.
const ProtocolVersion = 1

// Header is the 4-word frame header of spec §6: "(opcode, address,
// length_or_value, bar)".
type Header struct {
	Opcode        Opcode
	Address       uint32
	LengthOrValue uint32
	Bar           uint32
}

func (h Header) encode() []byte {
	buf := make([]byte, wordSize*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(h.Opcode))
	binary.LittleEndian.PutUint32(buf[4:], h.Address)
	binary.LittleEndian.PutUint32(buf[8:], h.LengthOrValue)
	binary.LittleEndian.PutUint32(buf[12:], h.Bar)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) != wordSize*4 {
		return Header{}, fmt.Errorf("rebot: short header (%d bytes)", len(buf))
	}
	return Header{
		Opcode:        Opcode(binary.LittleEndian.Uint32(buf[0:])),
		Address:       binary.LittleEndian.Uint32(buf[4:]),
		LengthOrValue: binary.LittleEndian.Uint32(buf[8:]),
		Bar:           binary.LittleEndian.Uint32(buf[12:]),
	}, nil
}

func encodeWords(words []uint32) []byte {
	buf := make([]byte, len(words)*wordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*wordSize:], w)
	}
	return buf
}

func decodeWords(buf []byte) ([]uint32, error) {
	if len(buf)%wordSize != 0 {
		return nil, fmt.Errorf("rebot: payload length %d not word-aligned", len(buf))
	}
	words := make([]uint32, len(buf)/wordSize)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[i*wordSize:])
	}
	return words, nil
}

func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
