package hci

import (
	"bytes"
	"strings"
	"testing"
)

func TestDiscoveredDeviceRoundTrip(t *testing.T) {
	want := DiscoveredDevice{
		Address:                Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		PageScanRepetitionMode: 0x02,
		Reserved:               [2]byte{0xAA, 0x55},
		DeviceClass:            0x5A020C,
		ClockOffset:            0x1234,
	}
	b := make([]byte, DiscoveredDeviceLength)
	want.Marshal(b)
	if exp := []byte{1, 2, 3, 4, 5, 6, 0x02, 0xAA, 0x55, 0x0C, 0x02, 0x5A, 0x34, 0x12}; !bytes.Equal(b, exp) {
		t.Fatalf("Marshal: got [% X], want [% X]", b, exp)
	}
	var got DiscoveredDevice
	if err := got.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestParseInquiryResult(t *testing.T) {
	evt := []byte{byte(EventInquiryResult), 1 + 2*DiscoveredDeviceLength, 2}
	evt = append(evt, 1, 2, 3, 4, 5, 6, 0x01, 0, 0, 0x04, 0x02, 0x5A, 0x10, 0x00)
	evt = append(evt, 6, 5, 4, 3, 2, 1, 0x02, 0, 0, 0x00, 0x01, 0x00, 0x20, 0x00)
	r, err := ParseInquiryResult(evt)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 {
		t.Fatalf("got %d records", len(r))
	}
	if r[0].Address.Hex() != "060504030201" || r[0].DeviceClass != 0x5A0204 || r[0].ClockOffset != 0x10 {
		t.Errorf("record 0: %+v", r[0])
	}
	if r[1].Address.Hex() != "010203040506" || r[1].PageScanRepetitionMode != 2 || r[1].ClockOffset != 0x20 {
		t.Errorf("record 1: %+v", r[1])
	}

	if _, err := ParseInquiryResult(evt[:20]); err == nil {
		t.Error("expected an error for a truncated event")
	}
}

func TestNamedDeviceRoundTrip(t *testing.T) {
	want := NamedDevice{
		DiscoveredDevice: DiscoveredDevice{Address: AddressFromUint64(0x001122334455), DeviceClass: 0x240404},
		Name:             "Headset",
	}
	b, err := want.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != NamedDeviceLength {
		t.Fatalf("len = %d", len(b))
	}
	var got NamedDevice
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNameField(t *testing.T) {
	b := bytes.Repeat([]byte{0xFF}, NameLength)
	PutName(b, "gopher")
	if got := ReadName(b); got != "gopher" {
		t.Errorf("ReadName = %q", got)
	}
	long := strings.Repeat("x", NameLength+10)
	PutName(b, long)
	if got := ReadName(b); got != long[:NameLength] {
		t.Errorf("long name not truncated: %d bytes", len(got))
	}
}
