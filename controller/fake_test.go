package controller

import (
	"context"
	"sync"
	"testing"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/hci/util"
	"github.com/xaionaro-go/btrelay/transport"
)

type inbound struct {
	ep transport.Endpoint
	b  []byte
}

// fakeController answers commands with scripted events, delivered from
// its own goroutine like a real transport does.
type fakeController struct {
	respond func(op hci.Opcode, cmd []byte) [][]byte
	short   bool

	mu       sync.Mutex
	commands [][]byte
	data     [][]byte
	sent     chan []byte

	in chan inbound
}

var _ transport.Transport = (*fakeController)(nil)

func newFakeController(respond func(op hci.Opcode, cmd []byte) [][]byte) *fakeController {
	return &fakeController{
		respond: respond,
		sent:    make(chan []byte, 64),
		in:      make(chan inbound, 64),
	}
}

func (f *fakeController) SendControlCommand(ctx context.Context, b []byte) (int, error) {
	cmd := append([]byte(nil), b...)
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
	f.sent <- cmd

	n := len(b)
	if f.short {
		return n - 1, nil
	}
	if f.respond != nil {
		for _, evt := range f.respond(hci.DecodeOpcode(cmd), cmd) {
			f.inject(transport.EndpointControl, evt)
		}
	}
	return n, nil
}

func (f *fakeController) SendBulkData(ctx context.Context, b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = append(f.data, append([]byte(nil), b...))
	if f.short {
		return len(b) - 1, nil
	}
	return len(b), nil
}

func (f *fakeController) Serve(ctx context.Context, h transport.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-f.in:
			h(ctx, p.ep, p.b)
		}
	}
}

func (f *fakeController) Close() error {
	return nil
}

func (f *fakeController) inject(ep transport.Endpoint, b []byte) {
	f.in <- inbound{ep: ep, b: b}
}

func (f *fakeController) Commands() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.commands...)
}

func newTestEngine(t *testing.T, f *fakeController, opts ...Option) *Engine {
	t.Helper()
	e := New(f, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func commandComplete(op hci.Opcode, status uint8) []byte {
	b := op.Bytes()
	return []byte{byte(hci.EventCommandComplete), 4, 0x01, b[0], b[1], status}
}

func commandStatus(op hci.Opcode, status uint8) []byte {
	b := op.Bytes()
	return []byte{byte(hci.EventCommandStatus), 4, status, 0x01, b[0], b[1]}
}

func inquiryResult(devices ...hci.DiscoveredDevice) []byte {
	evt := make([]byte, 3+len(devices)*hci.DiscoveredDeviceLength)
	evt[0] = byte(hci.EventInquiryResult)
	evt[1] = byte(len(evt) - 2)
	evt[2] = byte(len(devices))
	for i := range devices {
		devices[i].Marshal(evt[3+i*hci.DiscoveredDeviceLength:])
	}
	return evt
}

func inquiryComplete(status uint8) []byte {
	return []byte{byte(hci.EventInquiryComplete), 1, status}
}

func remoteNameComplete(addr hci.Address, status uint8, name string) []byte {
	evt := make([]byte, hci.RemoteNameOffset+hci.NameLength)
	evt[0] = byte(hci.EventRemoteNameRequestComplete)
	evt[1] = byte(len(evt) - 2)
	evt[2] = status
	copy(evt[3:], addr[:])
	hci.PutName(evt[hci.RemoteNameOffset:], name)
	return evt
}

func connectionComplete(status uint8, handle uint16, addr hci.Address) []byte {
	evt := make([]byte, 13)
	evt[0] = byte(hci.EventConnectionComplete)
	evt[1] = 11
	evt[2] = status
	util.BinaryOrder.PutUint16(evt[3:], handle)
	copy(evt[5:], addr[:])
	evt[11] = 0x01 // ACL
	return evt
}
