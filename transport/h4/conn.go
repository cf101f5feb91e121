package h4

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/transport"
)

// Mode tells Conn how the underlying device delivers packets.
type Mode int

const (
	// ModeDatagram devices return exactly one packet per Read (HCI sockets).
	// A Read returning (0, nil) is treated as an idle poll.
	ModeDatagram Mode = iota
	// ModeStream devices are plain byte streams (UARTs).
	ModeStream
)

const readBufferSize = 4096

// Conn implements transport.Transport on top of an H4-framed device.
type Conn struct {
	device  io.ReadWriteCloser
	mode    Mode
	pool    *packetPool
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Transport = (*Conn)(nil)

func NewConn(device io.ReadWriteCloser, mode Mode) *Conn {
	return &Conn{
		device: device,
		mode:   mode,
		pool:   newPacketPool(readBufferSize),
	}
}

func (c *Conn) SendControlCommand(ctx context.Context, b []byte) (int, error) {
	return c.write(ctx, PacketTypeCommand, b)
}

func (c *Conn) SendBulkData(ctx context.Context, b []byte) (int, error) {
	return c.write(ctx, PacketTypeACLData, b)
}

func (c *Conn) write(ctx context.Context, t PacketType, b []byte) (int, error) {
	p := Encode(t, b)
	logger.Tracef(ctx, "h4 write: [ % X ]", p)
	c.writeMu.Lock()
	n, err := c.device.Write(p)
	c.writeMu.Unlock()
	if n > 0 {
		n-- // the packet type byte is not part of the caller's frame
	}
	if err != nil {
		return n, errors.Wrap(hci.ErrTransportFailure, err.Error())
	}
	return n, nil
}

func (c *Conn) Serve(ctx context.Context, h transport.Handler) error {
	logger.Debugf(ctx, "h4.Serve started")
	defer logger.Debugf(ctx, "h4.Serve stopped")
	if c.mode == ModeStream {
		return c.serveStream(ctx, h)
	}
	return c.serveDatagram(ctx, h)
}

func (c *Conn) serveDatagram(ctx context.Context, h transport.Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := c.pool.Get()
		if b == nil {
			logger.Debugf(ctx, "got nil buffer, the connection is closed")
			return nil
		}
		n, err := c.device.Read(b)
		if err != nil {
			c.pool.Put(b)
			return errors.Wrap(hci.ErrTransportFailure, err.Error())
		}
		if n > 0 {
			c.handlePacket(ctx, h, b[:n])
		}
		c.pool.Put(b)
	}
}

func (c *Conn) serveStream(ctx context.Context, h transport.Handler) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	r := bufio.NewReaderSize(c.device, readBufferSize)
	for {
		p, err := ReadPacket(r)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, hci.ErrProtocolViolation) {
				// the stream is out of sync, there is no way to find the next packet
				return err
			}
			return errors.Wrap(hci.ErrTransportFailure, err.Error())
		}
		c.handlePacket(ctx, h, p)
	}
}

func (c *Conn) handlePacket(ctx context.Context, h transport.Handler, p []byte) {
	logger.Tracef(ctx, "handlePacket(ctx, [ % X ])", p)
	t, b := PacketType(p[0]), p[1:]
	if ep, ok := t.Endpoint(); ok {
		h(ctx, ep, b)
		return
	}
	switch t {
	case PacketTypeCommand:
		logger.Debugf(ctx, "unmanaged cmd: [ % X ]", b)
	case PacketTypeVendor:
		logger.Debugf(ctx, "vendor packet not supported: [ % X ]", b)
	default:
		logger.Warnf(ctx, "unknown packet type 0x%02X: [ % X ]", uint8(t), b)
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.pool.Close()
		c.closeErr = c.device.Close()
	})
	return c.closeErr
}
