// Package events implements component K: the debugger event channel.
// Publishers (the exception loop) never block on a slow or absent
// consumer; subscribers that fall behind simply miss events rather than
// stall the target.
package events

import "github.com/ferros-go/ferros/types"

const defaultBufferSize = 64

type subscription struct {
	ch chan types.DebuggerEvent
}

// Bus is a multi-producer, multi-consumer broadcaster of
// types.DebuggerEvent. Each Subscribe call clones the stream: every live
// subscriber receives every event published after it subscribed.
type Bus struct {
	bufferSize  int
	subscribe   chan *subscription
	unsubscribe chan *subscription
	publish     chan types.DebuggerEvent
	done        chan struct{}
}

// NewBus starts the bus's internal routing goroutine and returns a
// handle to it. Close stops the goroutine and closes every subscriber
// channel.
func NewBus() *Bus {
	b := &Bus{
		bufferSize:  defaultBufferSize,
		subscribe:   make(chan *subscription),
		unsubscribe: make(chan *subscription),
		publish:     make(chan types.DebuggerEvent),
		done:        make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	subscribers := make(map[*subscription]struct{})
	for {
		select {
		case sub := <-b.subscribe:
			subscribers[sub] = struct{}{}
		case sub := <-b.unsubscribe:
			if _, ok := subscribers[sub]; ok {
				delete(subscribers, sub)
				close(sub.ch)
			}
		case ev := <-b.publish:
			for sub := range subscribers {
				select {
				case sub.ch <- ev:
				default:
					// Subscriber is behind; drop rather than block the
					// publisher (the exception loop must never stall).
				}
			}
		case <-b.done:
			for sub := range subscribers {
				close(sub.ch)
			}
			return
		}
	}
}

// Publish sends ev to every live subscriber. Non-blocking from the
// caller's perspective beyond handing off to the routing goroutine: a
// full subscriber buffer drops the event for that subscriber only. Safe
// to call after Close (becomes a no-op).
func (b *Bus) Publish(ev types.DebuggerEvent) {
	select {
	case b.publish <- ev:
	case <-b.done:
	}
}

// Subscription is an active subscriber's handle: Events receives every
// event published since Subscribe, Close stops delivery.
type Subscription struct {
	bus *Bus
	sub *subscription
}

// Events returns the receive side of this subscription's channel.
func (s *Subscription) Events() <-chan types.DebuggerEvent { return s.sub.ch }

// Close stops delivery to this subscription and closes its channel.
func (s *Subscription) Close() {
	select {
	case s.bus.unsubscribe <- s.sub:
	case <-s.bus.done:
	}
}

// Subscribe returns a new subscription receiving every event published
// from this point on. The caller should Close it when done to free the
// routing goroutine's bookkeeping.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscription{ch: make(chan types.DebuggerEvent, b.bufferSize)}
	select {
	case b.subscribe <- sub:
	case <-b.done:
		close(sub.ch)
	}
	return &Subscription{bus: b, sub: sub}
}

// Close stops the routing goroutine and closes every subscriber channel.
// Idempotent.
func (b *Bus) Close() {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
}
