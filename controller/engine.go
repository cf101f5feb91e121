// Package controller turns the asynchronous event stream of an HCI
// controller into blocking command calls plus a stream of notifications.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/pkg/errors"
	"v.io/x/lib/nsync"

	"github.com/xaionaro-go/btrelay/hci"
	"github.com/xaionaro-go/btrelay/transport"
)

// Engine correlates commands written to the controller with the events
// that complete them.
//
// At most one command per opcode is outstanding at a time: a second caller
// issuing the same opcode waits until the first one consumed its result.
type Engine struct {
	transport transport.Transport
	config    config

	// mu guards pending, completed and inflight; cv is broadcast whenever
	// any of them changes.
	mu        nsync.Mu
	cv        nsync.CV
	pending   map[hci.Opcode]any
	completed map[hci.Opcode]uint8
	inflight  map[hci.Opcode]bool

	subscribersLocker sync.Mutex
	subscribers       map[*Subscription]struct{}

	pinRepliesWG sync.WaitGroup
}

func New(t transport.Transport, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		transport:   t,
		config:      cfg,
		pending:     map[hci.Opcode]any{},
		completed:   map[hci.Opcode]uint8{},
		inflight:    map[hci.Opcode]bool{},
		subscribers: map[*Subscription]struct{}{},
	}
}

// Serve feeds the transport's inbound data into the engine until ctx is
// cancelled or the transport fails.
func (e *Engine) Serve(ctx context.Context) error {
	ctx, cancelFn := context.WithCancel(ctx)
	err := e.transport.Serve(ctx, e.HandleData)
	cancelFn()
	e.pinRepliesWG.Wait()
	return err
}

func (e *Engine) deadline() time.Time {
	if e.config.CommandTimeout <= 0 {
		return nsync.NoDeadline
	}
	return time.Now().Add(e.config.CommandTimeout)
}

// waitError must be called with e.mu held and explains why a wait ended early.
func (e *Engine) waitError(ctx context.Context, op hci.Opcode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Wrapf(hci.ErrTimeout, "no completion for '%s' within %v", op, e.config.CommandTimeout)
}

func (e *Engine) write(ctx context.Context, c hci.CommandParam) error {
	b := hci.MarshalCommand(c)
	logger.Tracef(ctx, "write command: [ % X ]", b)
	n, err := e.transport.SendControlCommand(ctx, b)
	if err != nil {
		return errors.Wrapf(err, "unable to send command '%s'", c.Opcode())
	}
	if n != len(b) {
		return errors.Wrapf(hci.ErrTransportFailure, "failed to send command '%s'; sent %d bytes instead of %d", c.Opcode(), n, len(b))
	}
	return nil
}

// sendCommand writes c and, unless returnImmediately, blocks until the
// controller reports its completion. It returns whatever result the event
// handlers accumulated for the opcode in the meantime.
func (e *Engine) sendCommand(
	ctx context.Context,
	c hci.CommandParam,
	returnImmediately bool,
) (_ret any, _err error) {
	op := c.Opcode()
	logger.Tracef(ctx, "sendCommand(%s)", op)
	defer func() { logger.Tracef(ctx, "/sendCommand(%s): %v", op, _err) }()

	if returnImmediately {
		return nil, e.write(ctx, c)
	}

	deadline := e.deadline()

	e.mu.Lock()
	for e.inflight[op] && e.cv.WaitWithDeadline(&e.mu, deadline, ctx.Done()) == nsync.OK {
	}
	if e.inflight[op] {
		err := e.waitError(ctx, op)
		e.mu.Unlock()
		return nil, err
	}
	e.inflight[op] = true
	delete(e.pending, op)
	delete(e.completed, op)
	e.mu.Unlock()

	err := e.write(ctx, c)

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.cv.Broadcast()
	defer delete(e.pending, op)
	defer delete(e.inflight, op)

	if err != nil {
		return nil, err
	}

	for !e.isCompleted(op) && e.cv.WaitWithDeadline(&e.mu, deadline, ctx.Done()) == nsync.OK {
	}
	status, ok := e.completed[op]
	if !ok {
		return nil, e.waitError(ctx, op)
	}
	delete(e.completed, op)
	if status != 0 {
		return nil, &hci.CommandError{Opcode: op, Status: status}
	}
	return e.pending[op], nil
}

func (e *Engine) isCompleted(op hci.Opcode) bool {
	_, ok := e.completed[op]
	return ok
}

// markCompleted records the completion of op if somebody is waiting for it.
func (e *Engine) markCompleted(ctx context.Context, op hci.Opcode, status uint8) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.inflight[op] {
		logger.Debugf(ctx, "completion of '%s' (status 0x%02X) while nobody waits for it", op, status)
		return
	}
	e.completed[op] = status
	e.cv.Broadcast()
}
