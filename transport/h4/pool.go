package h4

import (
	"sync"
	"sync/atomic"
)

// packetPool recycles read buffers sized for one H4 packet. Get returns
// nil once the pool is closed; Put drops buffers of any other size.
type packetPool struct {
	size   int
	closed atomic.Bool
	pool   sync.Pool
}

func newPacketPool(size int) *packetPool {
	p := &packetPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

func (p *packetPool) Close() {
	p.closed.Store(true)
}

func (p *packetPool) Get() []byte {
	if p.closed.Load() {
		return nil
	}
	return *p.pool.Get().(*[]byte)
}

func (p *packetPool) Put(b []byte) {
	if p.closed.Load() || cap(b) != p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
