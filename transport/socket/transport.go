package socket

import (
	"context"

	"github.com/xaionaro-go/btrelay/transport/h4"
)

// OpenTransport opens hciN and serves it as an H4 datagram transport.
func OpenTransport(ctx context.Context, devID int) (*h4.Conn, error) {
	dev, err := Open(ctx, devID)
	if err != nil {
		return nil, err
	}
	return h4.NewConn(dev, h4.ModeDatagram), nil
}
