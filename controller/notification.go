package controller

import (
	"context"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
)

type NotificationKind int

const (
	// NotificationConnectionComplete carries a Connection Complete event.
	NotificationConnectionComplete NotificationKind = iota + 1
	// NotificationConnectionRequest carries a Connection Request event.
	NotificationConnectionRequest
	// NotificationIncomingData carries an ACL frame received from the controller.
	NotificationIncomingData
)

func (k NotificationKind) String() string {
	switch k {
	case NotificationConnectionComplete:
		return "ConnectionComplete"
	case NotificationConnectionRequest:
		return "ConnectionRequestReceived"
	case NotificationIncomingData:
		return "IncomingDataReceived"
	}
	return "unknown"
}

// Notification is an asynchronous controller occurrence. Payload is the raw
// event (code byte included) or the raw ACL frame, owned by the receiver.
type Notification struct {
	Kind    NotificationKind
	Payload []byte
}

// Subscription delivers notifications until it is closed.
type Subscription struct {
	engine *Engine
	ch     chan Notification
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts delivering notifications to a new subscription.
func (e *Engine) Subscribe() *Subscription {
	s := &Subscription{
		engine: e,
		ch:     make(chan Notification, e.config.SubscriberBuffer),
		done:   make(chan struct{}),
	}
	e.subscribersLocker.Lock()
	defer e.subscribersLocker.Unlock()
	e.subscribers[s] = struct{}{}
	return s
}

// C returns the delivery channel. It is never closed; select on Done too.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// Done is closed once the subscription is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close unsubscribes. Pending deliveries to it are abandoned.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.engine.subscribersLocker.Lock()
		delete(s.engine.subscribers, s)
		s.engine.subscribersLocker.Unlock()
		close(s.done)
	})
}

func (e *Engine) notify(ctx context.Context, kind NotificationKind, b []byte) {
	e.subscribersLocker.Lock()
	subs := make([]*Subscription, 0, len(e.subscribers))
	for s := range e.subscribers {
		subs = append(subs, s)
	}
	e.subscribersLocker.Unlock()

	if len(subs) == 0 {
		logger.Debugf(ctx, "no subscribers for %s", kind)
		return
	}

	for _, s := range subs {
		n := Notification{Kind: kind, Payload: append([]byte(nil), b...)}
		select {
		case s.ch <- n:
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}
