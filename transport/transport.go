// Package transport defines how the controller engine talks to the hardware.
package transport

import (
	"context"
	"io"
)

// Endpoint identifies the channel a chunk of inbound data arrived on.
type Endpoint uint8

const (
	// EndpointControl carries controller events.
	EndpointControl Endpoint = 0x01
	// EndpointBulk carries ACL data.
	EndpointBulk Endpoint = 0x02
	// EndpointIsochronous carries synchronous (SCO) data.
	EndpointIsochronous Endpoint = 0x03
)

func (e Endpoint) String() string {
	switch e {
	case EndpointControl:
		return "control"
	case EndpointBulk:
		return "bulk"
	case EndpointIsochronous:
		return "isochronous"
	}
	return "unknown"
}

// Handler receives inbound data. It is called from the transport's own
// goroutine; b is only valid for the duration of the call.
type Handler func(ctx context.Context, ep Endpoint, b []byte)

// Transport is a raw hardware command/event channel to a controller.
type Transport interface {
	io.Closer

	// SendControlCommand writes a command frame and reports how many bytes were written.
	SendControlCommand(ctx context.Context, b []byte) (int, error)

	// SendBulkData writes an ACL frame and reports how many bytes were written.
	SendBulkData(ctx context.Context, b []byte) (int, error)

	// Serve delivers inbound data to h until ctx is cancelled or the transport fails.
	Serve(ctx context.Context, h Handler) error
}
