//go:build !linux

package socket

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
)

type Device struct {
	io.ReadWriteCloser
}

func Open(ctx context.Context, devID int) (*Device, error) {
	return nil, errors.Wrap(hci.ErrTransportFailure, "the HCI user channel is only available on Linux")
}

func (d *Device) DevID() int {
	return -1
}
