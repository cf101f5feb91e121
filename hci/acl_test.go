package hci

import "testing"

func TestRewriteACLHandle(t *testing.T) {
	cases := []struct {
		in     [2]byte
		handle uint16
		want   [2]byte
	}{
		{in: [2]byte{0x03, 0xC3}, handle: 0x0245, want: [2]byte{0x45, 0xC2}},
		{in: [2]byte{0x01, 0x20}, handle: 0x0001, want: [2]byte{0x01, 0x20}},
		{in: [2]byte{0xFF, 0x1F}, handle: 0x0E10, want: [2]byte{0x10, 0x1E}},
		// bits above the 12-bit handle never leak into the flags
		{in: [2]byte{0x00, 0x20}, handle: 0xF123, want: [2]byte{0x23, 0x21}},
	}
	for _, tt := range cases {
		b := []byte{tt.in[0], tt.in[1], 0x05, 0x00}
		RewriteACLHandle(b, tt.handle)
		if b[0] != tt.want[0] || b[1] != tt.want[1] {
			t.Errorf("RewriteACLHandle(% X, %#04x) = % X, want % X", tt.in, tt.handle, b[:2], tt.want)
		}
		if ACLHandle(b) != tt.handle&HandleMask {
			t.Errorf("ACLHandle = %#04x", ACLHandle(b))
		}
		if ACLFlags(b) != tt.in[1]&0xF0 {
			t.Errorf("ACLFlags = %#02x", ACLFlags(b))
		}
	}
}
