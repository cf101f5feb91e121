//go:build linux

package socket

import (
	"context"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/xaionaro-go/btrelay/hci"
)

const (
	hciDevDown  = 0x400448ca // HCIDEVDOWN
	pollTimeout = 100        // milliseconds
)

// Device is an HCI controller bound to the user channel. Each Read returns
// one H4 packet or (0, nil) if nothing arrived within the poll interval.
type Device struct {
	fd         int
	fds        []unix.PollFd
	id         int
	readMutex  sync.Mutex
	writeMutex sync.Mutex
	closeOnce  sync.Once
}

// Open takes exclusive ownership of hciN. The kernel requires the
// controller to be down, so it is brought down first.
func Open(ctx context.Context, devID int) (*Device, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		logger.Debugf(ctx, "could not create AF_BLUETOOTH raw socket: %v", err)
		return nil, errors.Wrap(hci.ErrTransportFailure, err.Error())
	}

	logger.Debugf(ctx, "dev: hci%d down", devID)
	if err := unix.IoctlSetInt(fd, hciDevDown, devID); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(hci.ErrTransportFailure, "unable to bring hci%d down: %v", devID, err)
	}

	sa := unix.SockaddrHCI{Dev: uint16(devID), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(hci.ErrTransportFailure, "unable to bind hci%d to the user channel: %v", devID, err)
	}
	logger.Debugf(ctx, "dev: hci%d bound to the user channel", devID)

	return &Device{
		fd:  fd,
		fds: []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}},
		id:  devID,
	}, nil
}

func (d *Device) DevID() int {
	return d.id
}

func (d *Device) Read(b []byte) (int, error) {
	d.readMutex.Lock()
	defer d.readMutex.Unlock()
	// Use poll to avoid blocking on Read
	n, err := unix.Poll(d.fds, pollTimeout)
	if err == unix.EINTR {
		return 0, nil
	}
	if n == 0 || err != nil {
		return 0, err
	}
	return unix.Read(d.fd, b)
}

func (d *Device) Write(b []byte) (int, error) {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	return unix.Write(d.fd, b)
}

func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		logger.Debugf(context.TODO(), "socket.Device.Close(): hci%d", d.id)
		err = unix.Close(d.fd)
	})
	return err
}
