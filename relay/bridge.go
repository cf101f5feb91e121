package relay

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/xaionaro-go/ctxflow"
	"golang.org/x/net/proxy"

	"github.com/xaionaro-go/btrelay/controller"
	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/hci/util"
	"github.com/xaionaro-go/btrelay/identity"
)

// Controller is the part of controller.Engine the bridge drives.
type Controller interface {
	Subscribe() *controller.Subscription
	AcceptConnection(ctx context.Context, addr hci.Address, role uint8) error
	Connect(ctx context.Context, addr hci.Address, pageScanRepetitionMode uint8, clockOffset uint16) error
	SendData(ctx context.Context, b []byte) error
}

var _ Controller = (*controller.Engine)(nil)

// Bridge relays one ACL link between the local controller and a peer node.
//
// It listens for the peer's connection and lazily dials the peer to send
// its own frames. The local connection handle learned from Connection
// Complete events is patched into every ACL frame received from the peer.
type Bridge struct {
	controller Controller
	real       identity.Identity
	emulated   identity.Identity
	peerAddr   string
	config     config

	lifecycle ctxflow.StartStopper[ctxflow.StartStopperBackendFuncs]

	handleLocker sync.Mutex
	handle       uint16
	handleIsSet  bool

	// sendLocker serializes senders; outLocker only guards out, so that
	// Stop can close a connection blocked in Write.
	sendLocker sync.Mutex
	outLocker  sync.Mutex
	out        net.Conn
	stopping   bool

	locker   sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	sub      *controller.Subscription
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a bridge. real is the device the local controller talks to,
// emulated is the identity the local controller presents.
func New(
	c Controller,
	real identity.Identity,
	emulated identity.Identity,
	peerAddr string,
	opts ...Option,
) *Bridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Bridge{
		controller: c,
		real:       real,
		emulated:   emulated,
		peerAddr:   peerAddr,
		config:     cfg,
		conns:      map[net.Conn]struct{}{},
	}
	b.lifecycle = ctxflow.StartStopper[ctxflow.StartStopperBackendFuncs]{
		StartStopper: ctxflow.StartStopperBackendFuncs{
			StartFunc: b.doStart,
			StopFunc:  b.doStop,
		},
	}
	return b
}

// Start listens for the peer and starts forwarding local notifications.
func (b *Bridge) Start(ctx context.Context) error {
	return b.lifecycle.Start(ctx)
}

// Stop closes every connection and waits for all goroutines to return.
func (b *Bridge) Stop() error {
	return b.lifecycle.Stop()
}

// Addr returns the listening address, or nil if the bridge is not started.
func (b *Bridge) Addr() net.Addr {
	b.locker.Lock()
	defer b.locker.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Handle returns the current local connection handle.
func (b *Bridge) Handle() (uint16, bool) {
	b.handleLocker.Lock()
	defer b.handleLocker.Unlock()
	return b.handle, b.handleIsSet
}

func (b *Bridge) setHandle(handle uint16) {
	b.handleLocker.Lock()
	defer b.handleLocker.Unlock()
	b.handle = handle & hci.HandleMask
	b.handleIsSet = true
}

func (b *Bridge) doStart(ctx context.Context, _ ...any) (_err error) {
	logger.Tracef(ctx, "doStart")
	defer func() { logger.Tracef(ctx, "/doStart: %v", _err) }()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", b.config.ListenAddress)
	if err != nil {
		return errors.Wrapf(hci.ErrTransportFailure, "unable to listen at '%s': %v", b.config.ListenAddress, err)
	}
	logger.Infof(ctx, "listening for the peer at %s", listener.Addr())

	ctx, cancelFn := context.WithCancel(ctx)
	sub := b.controller.Subscribe()

	b.locker.Lock()
	b.listener = listener
	b.sub = sub
	b.cancelFn = cancelFn
	b.locker.Unlock()

	b.outLocker.Lock()
	b.stopping = false
	b.outLocker.Unlock()

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		b.acceptLoop(ctx, listener)
	}()
	go func() {
		defer b.wg.Done()
		b.forwardLoop(ctx, sub)
	}()
	return nil
}

func (b *Bridge) doStop(ctx context.Context) error {
	logger.Debugf(ctx, "stopping the bridge")
	b.locker.Lock()
	if b.cancelFn != nil {
		b.cancelFn()
	}
	if b.sub != nil {
		b.sub.Close()
	}
	var err error
	if b.listener != nil {
		err = b.listener.Close()
	}
	for conn := range b.conns {
		conn.Close()
	}
	b.locker.Unlock()

	b.outLocker.Lock()
	b.stopping = true
	if b.out != nil {
		b.out.Close()
		b.out = nil
	}
	b.outLocker.Unlock()

	b.wg.Wait()

	b.locker.Lock()
	b.listener = nil
	b.sub = nil
	b.cancelFn = nil
	b.locker.Unlock()
	return err
}

func (b *Bridge) acceptLoop(ctx context.Context, listener net.Listener) {
	logger.Debugf(ctx, "acceptLoop")
	defer logger.Debugf(ctx, "/acceptLoop")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Errorf(ctx, "unable to accept a peer connection: %v", err)
			if !sleep(ctx, b.config.AcceptPacing) {
				return
			}
			continue
		}
		logger.Infof(ctx, "peer connected from %s", conn.RemoteAddr())

		b.locker.Lock()
		if ctx.Err() != nil {
			b.locker.Unlock()
			conn.Close()
			return
		}
		b.conns[conn] = struct{}{}
		b.wg.Add(1)
		b.locker.Unlock()

		go func() {
			defer b.wg.Done()
			defer func() {
				b.locker.Lock()
				delete(b.conns, conn)
				b.locker.Unlock()
				conn.Close()
			}()
			b.readLoop(ctx, conn)
		}()

		if !sleep(ctx, b.config.AcceptPacing) {
			return
		}
	}
}

// readLoop handles the frames of one peer connection. Failures end only
// this connection.
func (b *Bridge) readLoop(ctx context.Context, conn net.Conn) {
	for {
		tag, body, err := ReadFrame(conn, b.config.MaxFrameSize)
		if err != nil {
			if ctx.Err() == nil {
				logger.Infof(ctx, "peer connection from %s closed: %v", conn.RemoteAddr(), err)
			}
			return
		}
		b.handleFrame(ctx, tag, body)
		if !sleep(ctx, b.config.FramePacing) {
			return
		}
	}
}

func (b *Bridge) handleFrame(ctx context.Context, tag Tag, body []byte) {
	switch tag {
	case TagIncomingData:
		logger.Debugf(ctx, "network: received ACL data: [ % X ]", body)
		if len(body) < 2 {
			logger.Warnf(ctx, "network: ACL frame of %d bytes is too short", len(body))
			return
		}
		handle, ok := b.Handle()
		if !ok {
			logger.Warnf(ctx, "network: dropping ACL data, there is no local connection yet")
			return
		}
		logger.Tracef(ctx, "network: ACL handle 0x%03X (flags 0x%X) -> 0x%03X", hci.ACLHandle(body), hci.ACLFlags(body)>>4, handle)
		hci.RewriteACLHandle(body, handle)
		logger.Debugf(ctx, "sending ACL data: [ % X ]", body)
		if err := b.controller.SendData(ctx, body); err != nil {
			logger.Errorf(ctx, "unable to send ACL data: %v", err)
		}

	case TagConnectionComplete:
		if len(body) < hci.ConnectionCompleteMinLength {
			logger.Warnf(ctx, "network: connection complete of %d bytes is too short", len(body))
			return
		}
		handle := util.BinaryOrder.Uint16(body[hci.ConnectionCompleteHandleOffset:]) & hci.HandleMask
		addr := hci.ReadAddress(body[hci.ConnectionCompleteAddressOffset:])
		if addr != b.emulated.Address {
			logger.Debugf(ctx, "network: connection complete for %s (handle 0x%03X), not the emulated device", addr.Hex(), handle)
			return
		}
		logger.Infof(ctx, "network: received connection complete")
		if err := b.controller.AcceptConnection(ctx, b.real.Address, hci.RoleSlave); err != nil {
			logger.Errorf(ctx, "unable to accept the connection of %s: %v", b.real.Address.Hex(), err)
		}

	case TagConnectionRequest:
		logger.Infof(ctx, "network: received connection request")
		if err := b.controller.Connect(ctx, b.real.Address, b.real.PageScanRepetitionMode, b.real.ClockOffset); err != nil {
			logger.Errorf(ctx, "unable to connect to %s: %v", b.real.Address.Hex(), err)
		}

	default:
		logger.Warnf(ctx, "network: unknown command received: %s", tag)
	}
}

func (b *Bridge) forwardLoop(ctx context.Context, sub *controller.Subscription) {
	logger.Debugf(ctx, "forwardLoop")
	defer logger.Debugf(ctx, "/forwardLoop")
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case n := <-sub.C():
			var tag Tag
			switch n.Kind {
			case controller.NotificationIncomingData:
				tag = TagIncomingData
			case controller.NotificationConnectionRequest:
				tag = TagConnectionRequest
			case controller.NotificationConnectionComplete:
				tag = TagConnectionComplete
				b.observeConnectionComplete(ctx, n.Payload)
			default:
				continue
			}
			if err := b.send(ctx, tag, n.Payload); err != nil {
				logger.Errorf(ctx, "unable to forward %s to the peer: %v", n.Kind, err)
			}
		}
	}
}

// observeConnectionComplete records the handle of a successfully
// established local link to one of the two known devices.
func (b *Bridge) observeConnectionComplete(ctx context.Context, evt []byte) {
	if len(evt) < hci.ConnectionCompleteMinLength {
		return
	}
	status := evt[hci.ConnectionCompleteStatusOffset]
	handle := util.BinaryOrder.Uint16(evt[hci.ConnectionCompleteHandleOffset:]) & hci.HandleMask
	addr := hci.ReadAddress(evt[hci.ConnectionCompleteAddressOffset:])
	if status != 0 {
		logger.Warnf(ctx, "connection to %s failed with status 0x%02X", addr.Hex(), status)
		return
	}
	if addr != b.emulated.Address && addr != b.real.Address {
		logger.Debugf(ctx, "ignoring the connection handle 0x%03X of an unrelated device %s", handle, addr.Hex())
		return
	}
	logger.Infof(ctx, "local connection handle is now 0x%03X (%s)", handle, addr.Hex())
	b.setHandle(handle)
}

// send writes one frame to the peer, dialing it first if needed. A failed
// write drops the connection so that the next send dials again.
func (b *Bridge) send(ctx context.Context, tag Tag, body []byte) error {
	b.sendLocker.Lock()
	defer b.sendLocker.Unlock()

	conn, err := b.outConn(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.Write(EncodeFrame(tag, body)); err != nil {
		b.dropOut(conn)
		return errors.Wrap(hci.ErrTransportFailure, err.Error())
	}
	return nil
}

func (b *Bridge) outConn(ctx context.Context) (net.Conn, error) {
	b.outLocker.Lock()
	conn := b.out
	b.outLocker.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, err := b.dial(ctx)
	if err != nil {
		return nil, errors.Wrapf(hci.ErrTransportFailure, "unable to connect to the peer at '%s': %v", b.peerAddr, err)
	}

	b.outLocker.Lock()
	defer b.outLocker.Unlock()
	if b.stopping {
		conn.Close()
		return nil, errors.Wrap(hci.ErrTransportFailure, "the bridge is stopping")
	}
	logger.Infof(ctx, "connected to the peer at %s", conn.RemoteAddr())
	b.out = conn
	return conn, nil
}

func (b *Bridge) dropOut(conn net.Conn) {
	conn.Close()
	b.outLocker.Lock()
	defer b.outLocker.Unlock()
	if b.out == conn {
		b.out = nil
	}
}

func (b *Bridge) dial(ctx context.Context) (net.Conn, error) {
	if d, ok := b.config.Dialer.(proxy.ContextDialer); ok {
		return d.DialContext(ctx, "tcp", b.peerAddr)
	}
	return b.config.Dialer.Dial("tcp", b.peerAddr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
