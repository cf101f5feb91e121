package hci

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci/util"
)

const (
	// DiscoveredDeviceLength is the width of one inquiry result sub-record:
	// addr(6) | pageScanRepetitionMode(1) | reserved(2) | deviceClass(3) | clockOffset(2).
	DiscoveredDeviceLength = 14

	// NameLength is the fixed width of a device name field on the wire.
	NameLength = 248

	NamedDeviceLength = DiscoveredDeviceLength + NameLength
)

// ClockOffsetValid marks a clock offset as valid when handed back to the controller.
const ClockOffsetValid = 0x8000

// DiscoveredDevice is one inquiry result.
type DiscoveredDevice struct {
	Address                Address
	PageScanRepetitionMode uint8
	Reserved               [2]byte
	DeviceClass            uint32
	ClockOffset            uint16
}

func (d *DiscoveredDevice) Marshal(b []byte) {
	copy(b[0:6], d.Address[:])
	util.BinaryOrder.PutUint8(b[6:], d.PageScanRepetitionMode)
	b[7], b[8] = d.Reserved[0], d.Reserved[1]
	util.BinaryOrder.PutUint24(b[9:], d.DeviceClass&0xFFFFFF)
	util.BinaryOrder.PutUint16(b[12:], d.ClockOffset)
}

func (d *DiscoveredDevice) Unmarshal(b []byte) error {
	if len(b) < DiscoveredDeviceLength {
		return errors.Wrapf(ErrProtocolViolation, "inquiry result record: %d bytes, want %d", len(b), DiscoveredDeviceLength)
	}
	d.Address = ReadAddress(b[0:6])
	d.PageScanRepetitionMode = util.BinaryOrder.Uint8(b[6:])
	d.Reserved = [2]byte{b[7], b[8]}
	d.DeviceClass = util.BinaryOrder.Uint24(b[9:])
	d.ClockOffset = util.BinaryOrder.Uint16(b[12:])
	return nil
}

// ParseInquiryResult decodes all sub-records of an Inquiry Result event frame.
func ParseInquiryResult(evt []byte) ([]DiscoveredDevice, error) {
	if len(evt) <= InquiryResultCountOffset {
		return nil, errors.Wrap(ErrProtocolViolation, "inquiry result: short event")
	}
	n := int(evt[InquiryResultCountOffset])
	b := evt[InquiryResultRecordsOffset:]
	if len(b) < n*DiscoveredDeviceLength {
		return nil, errors.Wrapf(ErrProtocolViolation, "inquiry result: %d records in %d bytes", n, len(b))
	}
	r := make([]DiscoveredDevice, n)
	for i := range r {
		if err := r[i].Unmarshal(b[i*DiscoveredDeviceLength:]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NamedDevice pairs an inquiry result with its resolved name.
type NamedDevice struct {
	DiscoveredDevice
	Name string
}

func (d *NamedDevice) MarshalBinary() ([]byte, error) {
	b := make([]byte, NamedDeviceLength)
	d.DiscoveredDevice.Marshal(b)
	PutName(b[DiscoveredDeviceLength:], d.Name)
	return b, nil
}

func (d *NamedDevice) UnmarshalBinary(b []byte) error {
	if len(b) < NamedDeviceLength {
		return errors.Wrapf(ErrProtocolViolation, "named device record: %d bytes, want %d", len(b), NamedDeviceLength)
	}
	if err := d.DiscoveredDevice.Unmarshal(b); err != nil {
		return err
	}
	d.Name = ReadName(b[DiscoveredDeviceLength : DiscoveredDeviceLength+NameLength])
	return nil
}

// PutName writes name into a NameLength-wide NUL-padded field, truncating if needed.
func PutName(b []byte, name string) {
	field := b[:NameLength]
	clear(field)
	copy(field, name)
}

// ReadName decodes a NUL-padded name field.
func ReadName(b []byte) string {
	return string(bytes.Trim(b, "\x00"))
}
