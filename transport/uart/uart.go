// Package uart opens an HCI controller attached to a serial line (H4).
package uart

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/transport/h4"
)

const DefaultBaud = 115200

// Open opens the serial port and wraps it into an H4 stream transport.
func Open(ctx context.Context, name string, baud int) (*h4.Conn, error) {
	if name == "" {
		return nil, errors.Wrap(hci.ErrInvalidArgument, "no serial port given")
	}
	if baud <= 0 {
		baud = DefaultBaud
	}
	logger.Debugf(ctx, "opening '%s' at %d baud", name, baud)
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, errors.Wrapf(hci.ErrTransportFailure, "unable to open '%s': %v", name, err)
	}
	return h4.NewConn(port, h4.ModeStream), nil
}
