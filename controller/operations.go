package controller

import (
	"context"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"

	"github.com/xaionaro-go/btrelay/capture"
	"github.com/xaionaro-go/btrelay/hci"
)

const (
	MinInquirySeconds = 1
	MaxInquirySeconds = 38

	// inquiryUnit is the duration of one Inquiry_Length unit, in seconds.
	inquiryUnit     = 1.28
	maxInquiryUnits = 0x30
)

// Reset drops every accumulated result that no outstanding command waits
// for and resets the controller.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	for op := range e.pending {
		if !e.inflight[op] {
			delete(e.pending, op)
		}
	}
	for op := range e.completed {
		if !e.inflight[op] {
			delete(e.completed, op)
		}
	}
	e.mu.Unlock()

	_, err := e.sendCommand(ctx, hci.Reset{}, false)
	return err
}

// InquiryUnits converts an inquiry duration in seconds to controller units.
func InquiryUnits(seconds int) (uint8, error) {
	if seconds < MinInquirySeconds || seconds > MaxInquirySeconds {
		return 0, errors.Wrapf(hci.ErrInvalidArgument, "inquiry duration %ds is out of range [%d..%d]", seconds, MinInquirySeconds, MaxInquirySeconds)
	}
	units := int(math.RoundToEven(float64(seconds) / inquiryUnit))
	if units <= 0 || units > maxInquiryUnits {
		return 0, errors.Wrapf(hci.ErrInvalidArgument, "inquiry duration %ds converts to %d units", seconds, units)
	}
	return uint8(units), nil
}

// InquiryScan discovers nearby devices for the given number of seconds.
func (e *Engine) InquiryScan(ctx context.Context, seconds int) ([]hci.DiscoveredDevice, error) {
	units, err := InquiryUnits(seconds)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "inquiry scan for %ds (%d units)", seconds, units)
	result, err := e.sendCommand(ctx, hci.Inquiry{
		LAP:           hci.GeneralInquiryAccessCode,
		InquiryLength: units,
	}, false)
	if err != nil {
		return nil, err
	}
	devices, _ := result.([]hci.DiscoveredDevice)
	return devices, nil
}

// ResolveName asks the remote device for its user-friendly name.
func (e *Engine) ResolveName(ctx context.Context, d hci.DiscoveredDevice) (string, error) {
	result, err := e.sendCommand(ctx, hci.RemoteNameRequest{
		Address:                d.Address,
		PageScanRepetitionMode: d.PageScanRepetitionMode,
		ClockOffset:            d.ClockOffset,
	}, false)
	if err != nil {
		return "", err
	}
	name, _ := result.(string)
	return name, nil
}

// SetDiscoverable enables inquiry and page scan, or page scan only.
func (e *Engine) SetDiscoverable(ctx context.Context, on bool) error {
	scan := uint8(hci.ScanEnablePageOnly)
	if on {
		scan = hci.ScanEnableInquiryAndPage
	}
	_, err := e.sendCommand(ctx, hci.WriteScanEnable{ScanEnable: scan}, false)
	return err
}

func (e *Engine) SetLocalName(ctx context.Context, name string) error {
	_, err := e.sendCommand(ctx, hci.WriteLocalName{LocalName: name}, false)
	return err
}

func (e *Engine) SetDeviceClass(ctx context.Context, class uint32) error {
	_, err := e.sendCommand(ctx, hci.WriteDeviceClass{DeviceClass: class}, false)
	return err
}

// AcceptConnection accepts an incoming link. The outcome is reported later
// by a Connection Complete notification.
func (e *Engine) AcceptConnection(ctx context.Context, addr hci.Address, role uint8) error {
	_, err := e.sendCommand(ctx, hci.AcceptConnectionRequest{Address: addr, Role: role}, true)
	return err
}

// Connect pages the device. The outcome is reported later by a Connection
// Complete notification.
func (e *Engine) Connect(ctx context.Context, addr hci.Address, pageScanRepetitionMode uint8, clockOffset uint16) error {
	_, err := e.sendCommand(ctx, hci.CreateConnection{
		Address:                addr,
		PacketType:             hci.DefaultPacketType,
		PageScanRepetitionMode: pageScanRepetitionMode,
		ClockOffset:            clockOffset,
	}, true)
	return err
}

// SendPINReply answers a PIN Code Request; an empty pin rejects it.
func (e *Engine) SendPINReply(ctx context.Context, addr hci.Address, pin string) error {
	if pin == "" {
		_, err := e.sendCommand(ctx, hci.PINCodeNegativeReply{Address: addr}, false)
		return err
	}
	if len(pin) > hci.MaxPINLength {
		return errors.Wrapf(hci.ErrInvalidArgument, "PIN is %d bytes long, max is %d", len(pin), hci.MaxPINLength)
	}
	_, err := e.sendCommand(ctx, hci.PINCodeReply{Address: addr, PIN: pin}, false)
	return err
}

// SendData writes an ACL frame to the controller.
func (e *Engine) SendData(ctx context.Context, b []byte) error {
	e.config.DataLog.LogData(capture.DirectionIn, b)
	n, err := e.transport.SendBulkData(ctx, b)
	if err != nil {
		return errors.Wrap(err, "unable to send ACL data")
	}
	if n != len(b) {
		return errors.Wrapf(hci.ErrTransportFailure, "failed to send ACL data; sent %d bytes instead of %d", n, len(b))
	}
	return nil
}
