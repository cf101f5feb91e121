package util

import "encoding/binary"

type binaryOrder struct{ binary.ByteOrder }

// BinaryOrder is the byte order of every multi-byte HCI field.
var BinaryOrder = binaryOrder{binary.LittleEndian}

func (o binaryOrder) Uint8(b []byte) uint8 { return b[0] }
func (o binaryOrder) Uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// Uint48 reads a device address as an integer; b[0] is the least significant octet.
func (o binaryOrder) Uint48(b []byte) uint64 {
	var v uint64
	for i := 5; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (o binaryOrder) PutUint8(b []byte, v uint8) { b[0] = v }
func (o binaryOrder) PutUint24(b []byte, v uint32) {
	b[0], b[1], b[2] = byte(v), byte(v>>8), byte(v>>16)
}

func (o binaryOrder) PutUint48(b []byte, v uint64) {
	for i := range 6 {
		b[i] = byte(v >> (8 * i))
	}
}
