// Package btrelay relays a classic Bluetooth link between two machines:
// Host <-> node A <-> TCP <-> node B <-> Peripheral.
//
// Each node owns one local controller. One side impersonates the
// peripheral towards the host, the other one impersonates the host
// towards the peripheral, and ACL traffic is forwarded in both directions.
package btrelay

import (
	"context"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"github.com/xaionaro-go/ctxflow"

	"github.com/xaionaro-go/btrelay/controller"
	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/identity"
	"github.com/xaionaro-go/btrelay/relay"
	"github.com/xaionaro-go/btrelay/transport"
)

// Node is one relay endpoint: the local controller engine plus the bridge
// to the peer node.
type Node struct {
	transport transport.Transport
	engine    *controller.Engine

	controllerOpts []controller.Option
	relayOpts      []relay.Option

	lifecycle ctxflow.StartStopper[ctxflow.StartStopperBackendFuncs]

	locker sync.Mutex
	bridge *relay.Bridge

	serveCancel context.CancelFunc
	serveDone   chan struct{}
	closeOnce   sync.Once
}

// NewNode takes over the controller behind t and starts processing its
// events. Close releases it.
func NewNode(ctx context.Context, t transport.Transport, opts ...Option) (*Node, error) {
	n := &Node{
		transport: t,
		serveDone: make(chan struct{}),
	}
	n.lifecycle = ctxflow.StartStopper[ctxflow.StartStopperBackendFuncs]{
		StartStopper: ctxflow.StartStopperBackendFuncs{
			StartFunc: n.doStart,
			StopFunc:  n.doStop,
		},
	}
	if err := n.Option(opts...); err != nil {
		return nil, err
	}
	n.engine = controller.New(t, n.controllerOpts...)

	ctx, cancelFn := context.WithCancel(ctx)
	n.serveCancel = cancelFn
	go func() {
		defer close(n.serveDone)
		err := n.engine.Serve(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Errorf(ctx, "the controller transport failed: %v", err)
		}
	}()
	return n, nil
}

// Engine gives direct access to the controller.
func (n *Node) Engine() *controller.Engine {
	return n.engine
}

// Bridge returns the running bridge, or nil if the node is not started.
func (n *Node) Bridge() *relay.Bridge {
	n.locker.Lock()
	defer n.locker.Unlock()
	return n.bridge
}

// Start resets the controller, presents it as emulated and starts
// relaying to the peer node at peerAddr. real is the device the local
// controller links to.
func (n *Node) Start(ctx context.Context, real, emulated identity.Identity, peerAddr string) error {
	return n.lifecycle.Start(ctx, real, emulated, peerAddr)
}

// Stop stops relaying. The controller stays claimed until Close.
func (n *Node) Stop() error {
	return n.lifecycle.Stop()
}

func (n *Node) doStart(ctx context.Context, args ...any) (_err error) {
	real, emulated, peerAddr := args[0].(identity.Identity), args[1].(identity.Identity), args[2].(string)
	logger.Tracef(ctx, "doStart(%s, %s, %s)", real.Address.Hex(), emulated.Address.Hex(), peerAddr)
	defer func() { logger.Tracef(ctx, "/doStart: %v", _err) }()

	if err := n.engine.Reset(ctx); err != nil {
		return errors.Wrap(err, "unable to reset the controller")
	}
	if err := n.engine.SetLocalName(ctx, emulated.DisplayName); err != nil {
		return errors.Wrap(err, "unable to set the local name")
	}
	if err := n.engine.SetDeviceClass(ctx, emulated.DeviceClass); err != nil {
		return errors.Wrap(err, "unable to set the device class")
	}
	if err := n.engine.SetDiscoverable(ctx, true); err != nil {
		return errors.Wrap(err, "unable to make the controller discoverable")
	}
	logger.Infof(ctx, "presenting as '%s' (class %06X)", emulated.DisplayName, emulated.DeviceClass)

	// the bridge is stopped only by doStop
	bridge := relay.New(n.engine, real, emulated, peerAddr, n.relayOpts...)
	if err := bridge.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	n.locker.Lock()
	defer n.locker.Unlock()
	n.bridge = bridge
	return nil
}

func (n *Node) doStop(ctx context.Context) error {
	n.locker.Lock()
	bridge := n.bridge
	n.bridge = nil
	n.locker.Unlock()
	if bridge == nil {
		return nil
	}
	return bridge.Stop()
}

// Discover runs an inquiry scan and resolves the name of every device
// found. A device whose name cannot be resolved is kept with an empty name.
func (n *Node) Discover(ctx context.Context, seconds int) ([]hci.NamedDevice, error) {
	logger.Infof(ctx, "performing inquiry scan...")
	devices, err := n.engine.InquiryScan(ctx, seconds)
	if err != nil {
		return nil, errors.Wrap(err, "inquiry scan failed")
	}
	result := make([]hci.NamedDevice, 0, len(devices))
	for _, d := range devices {
		name, err := n.engine.ResolveName(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warnf(ctx, "unable to resolve the name of %s: %v", d.Address.Hex(), err)
		}
		result = append(result, hci.NamedDevice{DiscoveredDevice: d, Name: name})
	}
	return result, nil
}

// Close stops relaying, stops processing controller events and closes
// the transport.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		ctx := context.TODO()
		logger.Debugf(ctx, "btrelay.Node.Close()")
		if n.Bridge() != nil {
			if stopErr := n.Stop(); stopErr != nil {
				logger.Warnf(ctx, "unable to stop the bridge: %v", stopErr)
			}
		}
		n.serveCancel()
		<-n.serveDone
		err = n.transport.Close()
	})
	return err
}
