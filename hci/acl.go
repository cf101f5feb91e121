package hci

import "github.com/xaionaro-go/btrelay/hci/util"

const (
	// HandleMask selects the link identifier bits of a connection handle.
	HandleMask = 0x0FFF

	// ACLHeaderLength is handle+flags(2) | data length(2).
	ACLHeaderLength = 4
)

// ACLHandle extracts the connection handle from an ACL frame.
func ACLHandle(b []byte) uint16 {
	return util.BinaryOrder.Uint16(b) & HandleMask
}

// ACLFlags extracts the packet-boundary/broadcast nibble (bits 12-15).
func ACLFlags(b []byte) uint8 {
	return b[1] & 0xF0
}

// RewriteACLHandle replaces the connection handle of the ACL frame in place,
// preserving the packet-boundary/broadcast flags in the top nibble of b[1].
func RewriteACLHandle(b []byte, handle uint16) {
	b[0] = byte(handle)
	b[1] = b[1]&0xF0 | byte(handle>>8)&0x0F
}
