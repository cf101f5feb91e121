// Package h4 implements the UART-style HCI framing where every packet is
// prefixed with its packet type.
package h4

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/hci/util"
	"github.com/xaionaro-go/btrelay/transport"
)

type PacketType uint8

// HCI Packet types
const (
	PacketTypeCommand = PacketType(0x01)
	PacketTypeACLData = PacketType(0x02)
	PacketTypeSCOData = PacketType(0x03)
	PacketTypeEvent   = PacketType(0x04)
	PacketTypeVendor  = PacketType(0xFF)
)

// Endpoint maps a packet type to the endpoint its payload is delivered on.
func (t PacketType) Endpoint() (transport.Endpoint, bool) {
	switch t {
	case PacketTypeEvent:
		return transport.EndpointControl, true
	case PacketTypeACLData:
		return transport.EndpointBulk, true
	case PacketTypeSCOData:
		return transport.EndpointIsochronous, true
	}
	return 0, false
}

// Encode prefixes b with the packet type.
func Encode(t PacketType, b []byte) []byte {
	p := make([]byte, 1+len(b))
	p[0] = byte(t)
	copy(p[1:], b)
	return p
}

// headerLength returns the header width and the offset/width of its length field.
func headerLength(t PacketType) (hdr int, lenOff int, lenWidth int, ok bool) {
	switch t {
	case PacketTypeEvent:
		return 2, 1, 1, true
	case PacketTypeACLData:
		return hci.ACLHeaderLength, 2, 2, true
	case PacketTypeSCOData:
		return 3, 2, 1, true
	case PacketTypeCommand:
		return hci.CommandHeaderLength, 2, 1, true
	}
	return 0, 0, 0, false
}

// ReadPacket reads one complete packet (type byte included) from a byte stream.
func ReadPacket(r *bufio.Reader) ([]byte, error) {
	tb, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	t := PacketType(tb)
	hdr, lenOff, lenWidth, ok := headerLength(t)
	if !ok {
		return nil, errors.Wrapf(hci.ErrProtocolViolation, "unknown H4 packet type 0x%02X", tb)
	}
	p := make([]byte, 1+hdr)
	p[0] = tb
	if _, err := io.ReadFull(r, p[1:]); err != nil {
		return nil, err
	}
	var n int
	if lenWidth == 1 {
		n = int(p[1+lenOff])
	} else {
		n = int(util.BinaryOrder.Uint16(p[1+lenOff:]))
	}
	p = append(p, make([]byte, n)...)
	if _, err := io.ReadFull(r, p[1+hdr:]); err != nil {
		return nil, err
	}
	return p, nil
}
