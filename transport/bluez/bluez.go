// Package bluez asks bluetoothd to let go of an adapter so the HCI user
// channel can be bound.
package bluez

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/hci"
)

const (
	serviceName     = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	propertiesSet   = "org.freedesktop.DBus.Properties.Set"
	poweredProperty = "Powered"
)

// AdapterPath returns the D-Bus object path of hciN.
func AdapterPath(devID int) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/bluez/hci%d", devID))
}

// ReleaseAdapter powers hciN off through bluetoothd.
func ReleaseAdapter(ctx context.Context, devID int) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return errors.Wrap(hci.ErrTransportFailure, err.Error())
	}
	return PowerOff(ctx, conn.Object(serviceName, AdapterPath(devID)))
}

// PowerOff sets Adapter1.Powered to false on the given adapter object.
func PowerOff(ctx context.Context, adapter dbus.BusObject) error {
	logger.Debugf(ctx, "powering off %s", adapter.Path())
	call := adapter.CallWithContext(ctx, propertiesSet, 0, adapterIface, poweredProperty, dbus.MakeVariant(false))
	if call.Err != nil {
		return errors.Wrapf(hci.ErrTransportFailure, "unable to power off %s: %v", adapter.Path(), call.Err)
	}
	return nil
}
