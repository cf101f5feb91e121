// Package relay mirrors controller events and ACL traffic to a peer node
// over TCP and turns the peer's messages back into controller commands.
package relay

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
)

// Tag is the first payload byte of a frame.
type Tag byte

const (
	// TagIncomingData carries an ACL frame received by the sender's controller.
	TagIncomingData = Tag('I')
	// TagConnectionComplete carries the sender's Connection Complete event.
	TagConnectionComplete = Tag('C')
	// TagConnectionRequest carries the sender's Connection Request event.
	TagConnectionRequest = Tag('R')
)

func (t Tag) String() string {
	if t >= 0x20 && t < 0x7F {
		return fmt.Sprintf("'%c'", rune(t))
	}
	return fmt.Sprintf("0x%02X", uint8(t))
}

const (
	// FrameLengthSize is the width of the little-endian length prefix.
	FrameLengthSize = 4

	DefaultMaxFrameSize = 1 << 20
)

// EncodeFrame builds [u32 LE length][tag][body].
func EncodeFrame(tag Tag, body []byte) []byte {
	b := make([]byte, FrameLengthSize+1+len(body))
	binary.LittleEndian.PutUint32(b, uint32(1+len(body)))
	b[FrameLengthSize] = byte(tag)
	copy(b[FrameLengthSize+1:], body)
	return b
}

// ReadFrame reads one frame. Any short read, an empty payload or a payload
// larger than maxSize is an error; the stream cannot be resynchronized.
func ReadFrame(r io.Reader, maxSize int) (Tag, []byte, error) {
	var hdr [FrameLengthSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n == 0 {
		return 0, nil, errors.Wrap(hci.ErrProtocolViolation, "empty frame")
	}
	if maxSize > 0 && uint64(n) > uint64(maxSize) {
		return 0, nil, errors.Wrapf(hci.ErrProtocolViolation, "frame of %d bytes exceeds the limit of %d", n, maxSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return Tag(payload[0]), payload[1:], nil
}
