package hotplug

import (
	"context"
	"testing"
	"time"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

func TestHandleEventsDispatchesOnArrival(t *testing.T) {
	hp := newTestContext()

	delivered := make(chan Event, 1)
	_, err := hp.Register(DeviceArrived, 0, MatchAny, MatchAny, MatchAny,
		func(_ *Context, _ *usb.Device, event Event, _ any) Action {
			delivered <- event
			return Rearm
		}, nil)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loopDone := make(chan struct{})
	go func() {
		_ = hp.HandleEvents(ctx)
		close(loopDone)
	}()

	hp.ConnectDevice(newTestDevice(0x1234, 1, 0, nil))

	select {
	case ev := <-delivered:
		if ev != DeviceArrived {
			t.Fatalf("delivered event = %v, want DeviceArrived", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event loop never dispatched the arrival")
	}

	cancel()
	select {
	case <-loopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("HandleEvents did not stop on context cancellation")
	}
}

func TestDeregisterWakesBlockedWaiter(t *testing.T) {
	hp := newTestContext()

	h, err := hp.Register(DeviceArrived, 0, MatchAny, MatchAny, MatchAny, rearmCallback(new(int)), nil)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// An out-of-band deregistration raises the wake signal so a goroutine
	// blocked waiting for events notices the registry change.
	hp.Deregister(h)

	select {
	case <-hp.Wake():
	case <-time.After(time.Second):
		t.Fatal("deregistration did not raise the interrupt signal")
	}
	if hp.Pending() {
		t.Fatal("interrupt must not raise the pending-notification flag")
	}
}

func TestDevicesSnapshotRefs(t *testing.T) {
	hp := newTestContext()

	released := false
	dev := newTestDevice(0x1234, 1, 0, &released)
	hp.ConnectDevice(dev)

	snap := hp.Devices()
	if len(snap) != 1 || snap[0] != dev {
		t.Fatalf("Devices() = %v, want the one live device", snap)
	}

	// The snapshot's reference outlives removal from the live list.
	hp.DisconnectDevice(dev)
	if released {
		t.Fatal("device released while a snapshot reference was held")
	}
	snap[0].Unref()
	if !released {
		t.Fatal("device not released after the snapshot reference was dropped")
	}
}
