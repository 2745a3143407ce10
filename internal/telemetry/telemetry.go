// Package telemetry turns hotplug notifications into time-series points.
//
// A Tracker registers as one hotplug callback and emits a point per
// transition, an attached-device count after every change, and a session
// duration point when a device departs.
package telemetry

import (
	"sync"
	"time"

	"github.com/usbwatch/usbwatch-core/internal/hotplug"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Writer is the slice of the InfluxDB client the tracker needs.
type Writer interface {
	WriteDeviceEvent(event string, desc usb.Descriptor, sessionID string)
	WriteSessionDuration(desc usb.Descriptor, sessionID string, duration time.Duration)
	WriteDeviceCount(count int)
}

// Tracker correlates arrivals with departures to measure session length.
type Tracker struct {
	writer Writer

	mu       sync.Mutex
	attached map[string]time.Time // session id -> attach time

	// now is swappable for tests.
	now func() time.Time
}

// NewTracker creates a tracker writing to w.
func NewTracker(w Writer) *Tracker {
	return &Tracker{
		writer:   w,
		attached: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Callback returns the hotplug callback to register.
func (t *Tracker) Callback() hotplug.Callback {
	return func(_ *hotplug.Context, dev *usb.Device, event hotplug.Event, _ any) hotplug.Action {
		switch event {
		case hotplug.DeviceArrived:
			t.arrived(dev)
		case hotplug.DeviceLeft:
			t.left(dev)
		}
		return hotplug.Rearm
	}
}

func (t *Tracker) arrived(dev *usb.Device) {
	t.mu.Lock()
	t.attached[dev.SessionID()] = t.now()
	count := len(t.attached)
	t.mu.Unlock()

	t.writer.WriteDeviceEvent("arrived", dev.Descriptor(), dev.SessionID())
	t.writer.WriteDeviceCount(count)
}

func (t *Tracker) left(dev *usb.Device) {
	t.mu.Lock()
	attachedAt, known := t.attached[dev.SessionID()]
	delete(t.attached, dev.SessionID())
	count := len(t.attached)
	now := t.now()
	t.mu.Unlock()

	t.writer.WriteDeviceEvent("left", dev.Descriptor(), dev.SessionID())
	if known {
		t.writer.WriteSessionDuration(dev.Descriptor(), dev.SessionID(), now.Sub(attachedAt))
	}
	t.writer.WriteDeviceCount(count)
}

// AttachedCount returns the number of sessions currently tracked.
func (t *Tracker) AttachedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attached)
}
