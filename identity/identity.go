// Package identity persists the two devices a relay node works with: the
// one reachable by the local controller and the one it impersonates.
package identity

import (
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/hci/util"
)

// RecordLength is the size of an encoded Identity:
// address(6) deviceClass(3) pageScanRepetitionMode(1) clockOffset(2) name(248).
const RecordLength = hci.AddressLength + 3 + 1 + 2 + hci.NameLength

type Identity struct {
	Address                hci.Address
	DisplayName            string
	DeviceClass            uint32
	PageScanRepetitionMode uint8
	ClockOffset            uint16
}

// FromNamedDevice builds an identity out of a discovered and resolved device.
func FromNamedDevice(d hci.NamedDevice) Identity {
	return Identity{
		Address:                d.Address,
		DisplayName:            d.Name,
		DeviceClass:            d.DeviceClass,
		PageScanRepetitionMode: d.PageScanRepetitionMode,
		ClockOffset:            d.ClockOffset,
	}
}

func (id Identity) MarshalBinary() ([]byte, error) {
	b := make([]byte, RecordLength)
	copy(b[0:6], id.Address[:])
	util.BinaryOrder.PutUint24(b[6:], id.DeviceClass)
	b[9] = id.PageScanRepetitionMode
	util.BinaryOrder.PutUint16(b[10:], id.ClockOffset)
	hci.PutName(b[12:], id.DisplayName)
	return b, nil
}

func (id *Identity) UnmarshalBinary(b []byte) error {
	if len(b) < RecordLength {
		return errors.Wrapf(hci.ErrProtocolViolation, "identity record: %d bytes, want %d", len(b), RecordLength)
	}
	id.Address = hci.ReadAddress(b[0:6])
	id.DeviceClass = util.BinaryOrder.Uint24(b[6:])
	id.PageScanRepetitionMode = b[9]
	id.ClockOffset = util.BinaryOrder.Uint16(b[10:])
	id.DisplayName = hci.ReadName(b[12 : 12+hci.NameLength])
	return nil
}
