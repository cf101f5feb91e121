package main

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay"
	"github.com/xaionaro-go/btrelay/capture"
	"github.com/xaionaro-go/btrelay/controller"
	"github.com/xaionaro-go/btrelay/transport"
	"github.com/xaionaro-go/btrelay/transport/bluez"
	"github.com/xaionaro-go/btrelay/transport/socket"
	"github.com/xaionaro-go/btrelay/transport/uart"
)

func openTransport(ctx context.Context, cfg deviceConfig) (transport.Transport, error) {
	if cfg.UART != "" {
		logger.Infof(ctx, "opening %s at %d baud", cfg.UART, cfg.Baud)
		conn, err := uart.Open(ctx, cfg.UART, cfg.Baud)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	devID := cfg.HCI
	if devID < 0 {
		id, err := socket.FindDevice(*cfg.USBID)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to find the controller %04X:%04X", cfg.USBID.Vendor, cfg.USBID.Product)
		}
		devID = id
	}

	if cfg.ReleaseBlueZ {
		if err := bluez.ReleaseAdapter(ctx, devID); err != nil {
			logger.Warnf(ctx, "unable to release hci%d from bluetoothd: %v", devID, err)
		}
	}

	logger.Infof(ctx, "opening hci%d", devID)
	conn, err := socket.OpenTransport(ctx, devID)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// openNode opens the local controller. The returned cleanup closes the
// node and the capture file.
func openNode(ctx context.Context, cfg deviceConfig, opts ...btrelay.Option) (*btrelay.Node, func(), error) {
	var controllerOpts []controller.Option
	if cfg.CommandTimeout > 0 {
		controllerOpts = append(controllerOpts, controller.OptionCommandTimeout(cfg.CommandTimeout))
	}
	var dataLog *capture.Log
	if cfg.CapturePath != "" {
		var err error
		dataLog, err = capture.Open(cfg.CapturePath)
		if err != nil {
			return nil, nil, err
		}
		controllerOpts = append(controllerOpts, controller.OptionDataLog(dataLog))
	}

	t, err := openTransport(ctx, cfg)
	if err != nil {
		dataLog.Close()
		return nil, nil, err
	}

	opts = append([]btrelay.Option{btrelay.OptionController(controllerOpts...)}, opts...)
	node, err := btrelay.NewNode(ctx, t, opts...)
	if err != nil {
		t.Close()
		dataLog.Close()
		return nil, nil, err
	}
	return node, func() {
		if err := node.Close(); err != nil {
			logger.Warnf(ctx, "unable to close the controller: %v", err)
		}
		dataLog.Close()
	}, nil
}
