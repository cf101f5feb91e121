package btrelay

import (
	"github.com/xaionaro-go/btrelay/controller"
	"github.com/xaionaro-go/btrelay/relay"
)

// An Option is a self-referential function, which sets the option specified.
type Option func(*Node) error

// Option sets the options specified.
// Options only take effect for what is created after they are set: the
// controller options are only used by NewNode, the relay options by the
// next Start.
func (n *Node) Option(opts ...Option) error {
	var err error
	for _, opt := range opts {
		if optErr := opt(n); optErr != nil {
			err = optErr
		}
	}
	return err
}

// OptionController passes options to the controller engine.
func OptionController(opts ...controller.Option) Option {
	return func(n *Node) error {
		n.controllerOpts = append(n.controllerOpts, opts...)
		return nil
	}
}

// OptionRelay passes options to the bridge.
func OptionRelay(opts ...relay.Option) Option {
	return func(n *Node) error {
		n.relayOpts = append(n.relayOpts, opts...)
		return nil
	}
}
