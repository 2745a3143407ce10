package backend

import (
	"github.com/google/uuid"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Differ turns consecutive enumeration snapshots into arrival and departure
// reports. Keys must be stable for the lifetime of one attachment (bus/
// address pair, platform device path) so that the same physical device is
// not reported twice.
//
// The differ holds one reference to every device it has connected, released
// when the device disappears from a snapshot or when the differ is drained.
// Differ is not safe for concurrent use; each poller owns exactly one.
type Differ struct {
	sink  Sink
	known map[string]*usb.Device
}

// NewDiffer creates a differ reporting to sink.
func NewDiffer(sink Sink) *Differ {
	return &Differ{
		sink:  sink,
		known: make(map[string]*usb.Device),
	}
}

// Apply reconciles the previous snapshot with present. New keys become
// arrivals, vanished keys become departures. Each arrival gets a fresh
// session id so re-attachments of the same physical device are
// distinguishable downstream.
func (d *Differ) Apply(present map[string]usb.Descriptor) {
	for key, desc := range present {
		if _, ok := d.known[key]; ok {
			continue
		}
		dev := usb.NewDevice(desc, uuid.NewString(), nil)
		d.known[key] = dev.Ref()
		d.sink.ConnectDevice(dev) // transfers the creating reference
	}

	for key, dev := range d.known {
		if _, ok := present[key]; ok {
			continue
		}
		delete(d.known, key)
		d.sink.DisconnectDevice(dev)
		dev.Unref()
	}
}

// Len returns the number of devices currently considered attached.
func (d *Differ) Len() int { return len(d.known) }

// Drain reports a departure for every known device. Used when a backend
// shuts down while the service keeps running.
func (d *Differ) Drain() {
	for key, dev := range d.known {
		delete(d.known, key)
		d.sink.DisconnectDevice(dev)
		dev.Unref()
	}
}
