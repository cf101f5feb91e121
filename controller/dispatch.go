package controller

import (
	"context"

	"github.com/facebookincubator/go-belt/tool/logger"

	"github.com/xaionaro-go/btrelay/capture"
	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/hci/util"
	"github.com/xaionaro-go/btrelay/transport"
)

const eventHeaderLength = 2

// HandleData is the transport.Handler of the engine.
func (e *Engine) HandleData(ctx context.Context, ep transport.Endpoint, b []byte) {
	switch ep {
	case transport.EndpointControl:
		e.handleEvent(ctx, b)
	case transport.EndpointBulk:
		logger.Debugf(ctx, "incoming: [ % X ]", b)
		e.config.DataLog.LogData(capture.DirectionOut, b)
		e.notify(ctx, NotificationIncomingData, b)
	case transport.EndpointIsochronous:
		logger.Debugf(ctx, "incoming isochronous data: [ % X ]", b)
	default:
		logger.Warnf(ctx, "data on unknown endpoint %d: [ % X ]", uint8(ep), b)
	}
}

func (e *Engine) handleEvent(ctx context.Context, evt []byte) {
	if len(evt) < eventHeaderLength {
		logger.Warnf(ctx, "short event: [ % X ]", evt)
		return
	}
	code := hci.EventCode(evt[0])
	logger.Tracef(ctx, "event %s: [ % X ]", code, evt)

	switch code {
	case hci.EventInquiryComplete:
		e.markCompleted(ctx, hci.OpInquiry, statusAt(evt, 2))

	case hci.EventInquiryResult:
		devices, err := hci.ParseInquiryResult(evt)
		if err != nil {
			logger.Warnf(ctx, "%v", err)
			return
		}
		e.mu.Lock()
		if e.inflight[hci.OpInquiry] {
			list, _ := e.pending[hci.OpInquiry].([]hci.DiscoveredDevice)
			e.pending[hci.OpInquiry] = append(list, devices...)
		}
		e.mu.Unlock()

	case hci.EventConnectionComplete:
		if len(evt) < hci.ConnectionCompleteMinLength {
			logger.Warnf(ctx, "short connection complete: [ % X ]", evt)
			return
		}
		logger.Infof(ctx, "connection complete, status: 0x%02X, handle: 0x%03X, BD_ADDR %s",
			evt[hci.ConnectionCompleteStatusOffset],
			util.BinaryOrder.Uint16(evt[hci.ConnectionCompleteHandleOffset:])&hci.HandleMask,
			hci.ReadAddress(evt[hci.ConnectionCompleteAddressOffset:]).Hex(),
		)
		e.notify(ctx, NotificationConnectionComplete, evt)

	case hci.EventDisconnectionComplete:
		logger.Infof(ctx, "disconnection complete, status: 0x%02X", statusAt(evt, 2))

	case hci.EventConnectionRequest:
		if len(evt) < hci.ConnectionRequestMinLength {
			logger.Warnf(ctx, "short connection request: [ % X ]", evt)
			return
		}
		logger.Infof(ctx, "connection request received, BD_ADDR %s, class %06X, link type %02X",
			hci.ReadAddress(evt[hci.ConnectionRequestAddressOffset:]).Hex(),
			util.BinaryOrder.Uint24(evt[hci.ConnectionRequestClassOffset:]),
			evt[hci.ConnectionRequestLinkOffset],
		)
		e.notify(ctx, NotificationConnectionRequest, evt)

	case hci.EventRemoteNameRequestComplete:
		status := statusAt(evt, hci.RemoteNameStatusOffset)
		e.mu.Lock()
		if e.inflight[hci.OpRemoteNameRequest] && status == 0 && len(evt) > hci.RemoteNameOffset {
			end := min(len(evt), hci.RemoteNameOffset+hci.NameLength)
			e.pending[hci.OpRemoteNameRequest] = hci.ReadName(evt[hci.RemoteNameOffset:end])
		}
		e.mu.Unlock()
		e.markCompleted(ctx, hci.OpRemoteNameRequest, status)

	case hci.EventQoSSetupComplete:
		logger.Infof(ctx, "QoS setup complete")

	case hci.EventCommandComplete:
		if len(evt) < hci.CommandCompleteOpcodeOffset+2 {
			logger.Warnf(ctx, "short command complete: [ % X ]", evt)
			return
		}
		op := hci.DecodeOpcode(evt[hci.CommandCompleteOpcodeOffset:])
		e.markCompleted(ctx, op, statusAt(evt, hci.CommandCompleteStatusOffset))

	case hci.EventCommandStatus:
		if len(evt) < hci.CommandStatusOpcodeOffset+2 {
			logger.Warnf(ctx, "short command status: [ % X ]", evt)
			return
		}
		op := hci.DecodeOpcode(evt[hci.CommandStatusOpcodeOffset:])
		status := evt[hci.CommandStatusStatusOffset]
		logger.Debugf(ctx, "command status of '%s': 0x%02X", op, status)
		if status != 0 {
			// the completion event will never come
			e.markCompleted(ctx, op, status)
		}

	case hci.EventPINCodeRequest:
		if len(evt) < hci.PINCodeRequestAddressOffset+hci.AddressLength {
			logger.Warnf(ctx, "short PIN code request: [ % X ]", evt)
			return
		}
		addr := hci.ReadAddress(evt[hci.PINCodeRequestAddressOffset:])
		logger.Infof(ctx, "PIN code request from %s", addr.Hex())
		// the reply blocks on its completion, which this goroutine delivers
		e.pinRepliesWG.Add(1)
		go func() {
			defer e.pinRepliesWG.Done()
			if err := e.SendPINReply(ctx, addr, ""); err != nil {
				logger.Errorf(ctx, "unable to reply to the PIN code request from %s: %v", addr.Hex(), err)
			}
		}()

	case hci.EventMaxSlotsChange, hci.EventPageScanRepetitionModeChange:
		logger.Debugf(ctx, "%s: [ % X ]", code, evt)

	default:
		logger.Warnf(ctx, "unknown HCI event: 0x%02X", uint8(code))
	}
}

// statusAt returns the status byte at off, or 0 if the event is too short to carry one.
func statusAt(evt []byte, off int) uint8 {
	if len(evt) <= off {
		return 0
	}
	return evt[off]
}
