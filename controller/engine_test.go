package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xaionaro-go/btrelay/capture"
	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/transport"
)

func TestInquiryUnits(t *testing.T) {
	tests := []struct {
		seconds int
		units   uint8
		ok      bool
	}{
		{0, 0, false},
		{1, 1, true},
		{10, 8, true},
		{38, 30, true},
		{39, 0, false},
		{50, 0, false},
		{-5, 0, false},
	}
	for _, tt := range tests {
		units, err := InquiryUnits(tt.seconds)
		if (err == nil) != tt.ok || units != tt.units {
			t.Errorf("InquiryUnits(%d) = %d, %v", tt.seconds, units, err)
		}
		if err != nil && !errors.Is(err, hci.ErrInvalidArgument) {
			t.Errorf("InquiryUnits(%d): expected ErrInvalidArgument, got %v", tt.seconds, err)
		}
	}
}

func TestInquiryScan(t *testing.T) {
	devices := []hci.DiscoveredDevice{
		{Address: hci.AddressFromUint64(0x001122334455), PageScanRepetitionMode: 1, DeviceClass: 0x5A020C, ClockOffset: 0x1234},
		{Address: hci.AddressFromUint64(0x66778899AABB), PageScanRepetitionMode: 2, DeviceClass: 0x240404, ClockOffset: 0x0001},
		{Address: hci.AddressFromUint64(0x0A0B0C0D0E0F), DeviceClass: 0x000100},
	}
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		if op != hci.OpInquiry {
			return nil
		}
		return [][]byte{
			commandStatus(op, 0),
			inquiryResult(devices[0], devices[1]),
			inquiryResult(devices[2]),
			inquiryComplete(0),
		}
	})
	e := newTestEngine(t, f)

	got, err := e.InquiryScan(context.Background(), 10)
	if err != nil {
		t.Fatalf("InquiryScan: %v", err)
	}
	if len(got) != len(devices) {
		t.Fatalf("got %d devices, want %d", len(got), len(devices))
	}
	for i := range devices {
		if got[i] != devices[i] {
			t.Errorf("device %d: got %+v, want %+v", i, got[i], devices[i])
		}
	}

	cmds := f.Commands()
	if len(cmds) != 1 {
		t.Fatalf("expected one command, got %d", len(cmds))
	}
	if want := []byte{0x01, 0x04, 0x05, 0x33, 0x8B, 0x9E, 0x08, 0x00}; !bytes.Equal(cmds[0], want) {
		t.Errorf("inquiry command [ % X ], want [ % X ]", cmds[0], want)
	}

	// the accumulated results are consumed, a new scan starts empty
	f.respond = func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandStatus(op, 0), inquiryComplete(0)}
	}
	got, err = e.InquiryScan(context.Background(), 2)
	if err != nil {
		t.Fatalf("second InquiryScan: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("second scan returned %d stale devices", len(got))
	}
}

func TestInquiryScanInvalidDuration(t *testing.T) {
	f := newFakeController(nil)
	e := newTestEngine(t, f)
	_, err := e.InquiryScan(context.Background(), 50)
	if !errors.Is(err, hci.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if n := len(f.Commands()); n != 0 {
		t.Errorf("%d commands were sent for an invalid duration", n)
	}
}

func TestResolveName(t *testing.T) {
	addr := hci.AddressFromUint64(0x001A7DDA7113)
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandStatus(op, 0), remoteNameComplete(hci.ReadAddress(cmd[3:]), 0, "Wiimote")}
	})
	e := newTestEngine(t, f)

	name, err := e.ResolveName(context.Background(), hci.DiscoveredDevice{Address: addr, PageScanRepetitionMode: 1, ClockOffset: 0x0102})
	if err != nil {
		t.Fatalf("ResolveName: %v", err)
	}
	if name != "Wiimote" {
		t.Errorf("got name %q", name)
	}
	want := []byte{0x19, 0x04, 0x0A, 0x13, 0x71, 0xDA, 0x7D, 0x1A, 0x00, 0x01, 0x00, 0x02, 0x81}
	if cmd := f.Commands()[0]; !bytes.Equal(cmd, want) {
		t.Errorf("remote name request [ % X ], want [ % X ]", cmd, want)
	}
}

func TestCommandErrorStatus(t *testing.T) {
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandComplete(op, 0x12)}
	})
	e := newTestEngine(t, f)

	err := e.SetLocalName(context.Background(), "relay")
	var cmdErr *hci.CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *hci.CommandError, got %v", err)
	}
	if cmdErr.Opcode != hci.OpWriteLocalName || cmdErr.Status != 0x12 {
		t.Errorf("unexpected error %+v", cmdErr)
	}
}

func TestCommandStatusFailure(t *testing.T) {
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandStatus(op, 0x0C)}
	})
	e := newTestEngine(t, f)

	_, err := e.InquiryScan(context.Background(), 5)
	var cmdErr *hci.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Status != 0x0C {
		t.Fatalf("expected a CommandError with status 0x0C, got %v", err)
	}
}

func TestBlockingCommands(t *testing.T) {
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandComplete(op, 0)}
	})
	e := newTestEngine(t, f)
	ctx := context.Background()

	if err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := e.SetDiscoverable(ctx, true); err != nil {
		t.Fatalf("SetDiscoverable(true): %v", err)
	}
	if err := e.SetDiscoverable(ctx, false); err != nil {
		t.Fatalf("SetDiscoverable(false): %v", err)
	}
	if err := e.SetDeviceClass(ctx, 0x002540); err != nil {
		t.Fatalf("SetDeviceClass: %v", err)
	}
	if err := e.SendPINReply(ctx, hci.AddressFromUint64(1), "0000"); err != nil {
		t.Fatalf("SendPINReply: %v", err)
	}

	cmds := f.Commands()
	want := []string{
		"030c00",
		"1a0c0103",
		"1a0c0101",
		"240c03402500",
		"0d04170100000000000430303030000000000000000000000000",
	}
	if len(cmds) != len(want) {
		t.Fatalf("got %d commands, want %d", len(cmds), len(want))
	}
	for i := range want {
		if got := fmt.Sprintf("%x", cmds[i]); got != want[i] {
			t.Errorf("command %d: got %s, want %s", i, got, want[i])
		}
	}
}

func TestSendPINReplyTooLong(t *testing.T) {
	f := newFakeController(nil)
	e := newTestEngine(t, f)
	err := e.SendPINReply(context.Background(), hci.Address{}, "01234567890123456")
	if !errors.Is(err, hci.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestReturnImmediately(t *testing.T) {
	f := newFakeController(nil) // never answers
	e := newTestEngine(t, f, OptionCommandTimeout(time.Minute))
	ctx := context.Background()
	addr := hci.AddressFromUint64(0x0A0B0C0D0E0F)

	if err := e.Connect(ctx, addr, 0x01, 0x1234); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := e.AcceptConnection(ctx, addr, hci.RoleSlave); err != nil {
		t.Fatalf("AcceptConnection: %v", err)
	}

	cmds := f.Commands()
	if got, want := fmt.Sprintf("%x", cmds[0]), "05040d0f0e0d0c0b0a18000100349200"; got != want {
		t.Errorf("create connection: got %s, want %s", got, want)
	}
	if got, want := fmt.Sprintf("%x", cmds[1]), "0904070f0e0d0c0b0a01"; got != want {
		t.Errorf("accept connection: got %s, want %s", got, want)
	}
}

func TestCommandTimeout(t *testing.T) {
	f := newFakeController(nil)
	e := newTestEngine(t, f, OptionCommandTimeout(50*time.Millisecond))

	start := time.Now()
	err := e.Reset(context.Background())
	if !errors.Is(err, hci.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Errorf("returned before the deadline")
	}

	// a late completion must not leak into the next call
	sub := e.Subscribe()
	defer sub.Close()
	f.inject(transport.EndpointControl, commandComplete(hci.OpReset, 0))
	f.inject(transport.EndpointBulk, []byte{0x01, 0x20, 0x00, 0x00})
	<-sub.C()
	err = e.Reset(context.Background())
	if !errors.Is(err, hci.ErrTimeout) {
		t.Errorf("expected ErrTimeout after late completion, got %v", err)
	}
}

func TestCommandCancel(t *testing.T) {
	f := newFakeController(nil)
	e := newTestEngine(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-f.sent
		cancel()
	}()
	err := e.SetLocalName(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestShortWrite(t *testing.T) {
	f := newFakeController(nil)
	f.short = true
	e := newTestEngine(t, f)

	if err := e.Reset(context.Background()); !errors.Is(err, hci.ErrTransportFailure) {
		t.Errorf("Reset: expected ErrTransportFailure, got %v", err)
	}
	if err := e.Connect(context.Background(), hci.Address{}, 0, 0); !errors.Is(err, hci.ErrTransportFailure) {
		t.Errorf("Connect: expected ErrTransportFailure, got %v", err)
	}
	if err := e.SendData(context.Background(), []byte{0x01, 0x20, 0x00, 0x00}); !errors.Is(err, hci.ErrTransportFailure) {
		t.Errorf("SendData: expected ErrTransportFailure, got %v", err)
	}
}

func TestSendDataCapture(t *testing.T) {
	var buf bytes.Buffer
	f := newFakeController(nil)
	e := newTestEngine(t, f, OptionDataLog(capture.New(&buf)))

	if err := e.SendData(context.Background(), []byte{0x45, 0x20, 0x01, 0x00, 0xAA}); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if len(f.data) != 1 || !bytes.Equal(f.data[0], []byte{0x45, 0x20, 0x01, 0x00, 0xAA}) {
		t.Errorf("unexpected bulk writes %v", f.data)
	}
	if s := buf.String(); !bytes.Contains([]byte(s), []byte("msg=45-20-01-00-AA")) {
		t.Errorf("capture log misses the frame: %q", s)
	}
}

func TestPINCodeRequestAutoReply(t *testing.T) {
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		return [][]byte{commandComplete(op, 0)}
	})
	newTestEngine(t, f)

	addr := hci.AddressFromUint64(0x112233445566)
	evt := append([]byte{byte(hci.EventPINCodeRequest), 6}, addr[:]...)
	f.inject(transport.EndpointControl, evt)

	select {
	case cmd := <-f.sent:
		want := append([]byte{0x0E, 0x04, 0x06}, addr[:]...)
		if !bytes.Equal(cmd, want) {
			t.Errorf("got [ % X ], want negative reply [ % X ]", cmd, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no PIN reply was sent")
	}
}

func TestNotifications(t *testing.T) {
	f := newFakeController(nil)
	e := newTestEngine(t, f)
	sub := e.Subscribe()
	defer sub.Close()

	addr := hci.AddressFromUint64(0x0A0B0C0D0E0F)
	cc := connectionComplete(0, 0x002A, addr)
	cr := []byte{byte(hci.EventConnectionRequest), 10, 0x0F, 0x0E, 0x0D, 0x0C, 0x0B, 0x0A, 0x04, 0x25, 0x00, 0x01}
	acl := []byte{0x2A, 0x20, 0x01, 0x00, 0x77}

	f.inject(transport.EndpointControl, cc)
	f.inject(transport.EndpointControl, []byte{byte(hci.EventDisconnectionComplete), 4, 0, 0x2A, 0x00, 0x13})
	f.inject(transport.EndpointControl, cr)
	f.inject(transport.EndpointIsochronous, []byte{0x01, 0x00, 0x00})
	f.inject(transport.EndpointBulk, acl)
	f.inject(transport.EndpointControl, []byte{0xFE, 0x00})

	want := []Notification{
		{Kind: NotificationConnectionComplete, Payload: cc},
		{Kind: NotificationConnectionRequest, Payload: cr},
		{Kind: NotificationIncomingData, Payload: acl},
	}
	for i, w := range want {
		select {
		case n := <-sub.C():
			if n.Kind != w.Kind || !bytes.Equal(n.Payload, w.Payload) {
				t.Errorf("notification %d: got %s [ % X ], want %s [ % X ]", i, n.Kind, n.Payload, w.Kind, w.Payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("notification %d (%s) not delivered", i, w.Kind)
		}
	}

	sub.Close()
	f.inject(transport.EndpointBulk, acl)
	select {
	case n := <-sub.C():
		t.Errorf("closed subscription received %s", n.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

// Concurrent callers of the same opcode each get their own result.
func TestCorrelationExclusivity(t *testing.T) {
	f := newFakeController(func(op hci.Opcode, cmd []byte) [][]byte {
		addr := hci.ReadAddress(cmd[3:])
		return [][]byte{commandStatus(op, 0), remoteNameComplete(addr, 0, "dev-"+addr.Hex())}
	})
	e := newTestEngine(t, f)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := hci.AddressFromUint64(uint64(i + 1))
			name, err := e.ResolveName(context.Background(), hci.DiscoveredDevice{Address: addr})
			if err != nil {
				errs <- err
				return
			}
			if want := "dev-" + addr.Hex(); name != want {
				errs <- fmt.Errorf("caller %d got %q, want %q", i, name, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	if n := len(f.Commands()); n != callers {
		t.Errorf("%d name requests were sent, want %d", n, callers)
	}
}
