package h4

import "testing"

func TestPacketPool(t *testing.T) {
	p := newPacketPool(readBufferSize)

	b := p.Get()
	if len(b) != readBufferSize {
		t.Fatalf("got a buffer of %d bytes, want %d", len(b), readBufferSize)
	}
	p.Put(b[:3])
	if b := p.Get(); len(b) != readBufferSize {
		t.Errorf("a buffer returned short came back with %d bytes", len(b))
	}
	p.Put(make([]byte, 16))

	p.Close()
	if b := p.Get(); b != nil {
		t.Errorf("got a %d byte buffer from a closed pool", len(b))
	}
	p.Put(make([]byte, readBufferSize))
}
