package events

import (
	"testing"
	"time"

	"github.com/ferros-go/ferros/types"
)

func recvWithTimeout(t *testing.T, ch <-chan types.DebuggerEvent) (types.DebuggerEvent, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return types.DebuggerEvent{}, false
	}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	defer sub.Close()

	thread := types.ThreadId(7)
	bus.Publish(types.TargetStopped(types.Breakpoint(types.Address(0x1000)), &thread))

	ev, ok := recvWithTimeout(t, sub.Events())
	if !ok {
		t.Fatalf("expected an event, channel closed")
	}
	if ev.Kind != types.EventTargetStopped {
		t.Fatalf("expected EventTargetStopped, got %v", ev.Kind)
	}
}

func TestMultipleSubscribersEachReceiveEvent(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(types.TargetResumed())

	if _, ok := recvWithTimeout(t, a.Events()); !ok {
		t.Fatalf("subscriber a: expected event")
	}
	if _, ok := recvWithTimeout(t, b.Events()); !ok {
		t.Fatalf("subscriber b: expected event")
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	_, ok := recvWithTimeout(t, sub.Events())
	if ok {
		t.Fatalf("expected subscriber channel to be closed after bus Close")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	sub.Close()

	// Give the routing goroutine a moment to process the unsubscribe.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(types.TargetResumed())

	_, ok := <-sub.Events()
	if ok {
		t.Fatalf("expected channel to be closed and drained after Close")
	}
}

func TestPublishNeverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize*2; i++ {
			bus.Publish(types.TargetResumed())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full, undrained subscriber")
	}
}
