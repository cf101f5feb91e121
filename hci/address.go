package hci

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci/util"
)

const AddressLength = 6

// Address is a 48-bit device address kept in wire order: Address[0] is the
// least significant octet.
type Address [AddressLength]byte

// AddressFromUint64 builds an address from its integer form (the low 48 bits).
func AddressFromUint64(v uint64) Address {
	var a Address
	util.BinaryOrder.PutUint48(a[:], v)
	return a
}

func ReadAddress(b []byte) Address {
	var a Address
	copy(a[:], b[:AddressLength])
	return a
}

func (a Address) Uint64() uint64 { return util.BinaryOrder.Uint48(a[:]) }

// Hex formats the address as 12 upper-case hex digits, most significant first.
func (a Address) Hex() string { return fmt.Sprintf("%012X", a.Uint64()) }

// String formats the address as a colon-separated MAC, most significant first.
func (a Address) String() string {
	return net.HardwareAddr{a[5], a[4], a[3], a[2], a[1], a[0]}.String()
}

// ParseAddress accepts either the 12-digit hex form or a colon/dash separated MAC.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if len(s) == 2*AddressLength {
		v, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return Address{}, errors.Wrapf(ErrInvalidArgument, "address %q: %v", s, err)
		}
		return AddressFromUint64(v), nil
	}
	mac, err := net.ParseMAC(s)
	if err != nil || len(mac) != AddressLength {
		return Address{}, errors.Wrapf(ErrInvalidArgument, "address %q", s)
	}
	return Address{mac[5], mac[4], mac[3], mac[2], mac[1], mac[0]}, nil
}
