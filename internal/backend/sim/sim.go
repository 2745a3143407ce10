// Package sim provides an in-memory backend for tests and demo mode.
// Devices are plugged and unplugged programmatically; transitions reach the
// sink exactly as a hardware backend would deliver them.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/usbwatch/usbwatch-core/internal/backend"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Backend is a simulated platform backend.
type Backend struct {
	mu      sync.Mutex
	sink    backend.Sink
	plugged map[string]*usb.Device
}

// New creates a simulated backend with nothing attached.
func New() *Backend {
	return &Backend{
		plugged: make(map[string]*usb.Device),
	}
}

// Name implements backend.Backend.
func (b *Backend) Name() string { return "sim" }

// HasHotplug implements backend.Backend. The simulator always delivers
// transitions.
func (b *Backend) HasHotplug() bool { return true }

// Start implements backend.Backend.
func (b *Backend) Start(_ context.Context, sink backend.Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sink != nil {
		return fmt.Errorf("backend sim: already started")
	}
	b.sink = sink
	return nil
}

// Stop implements backend.Backend. Simulated devices stay attached; the
// hotplug context releases them at teardown.
func (b *Backend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = nil
}

// Plug attaches a simulated device under the given key and reports its
// arrival. Plugging an occupied key is an error.
func (b *Backend) Plug(key string, desc usb.Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sink == nil {
		return fmt.Errorf("backend sim: not started")
	}
	if _, ok := b.plugged[key]; ok {
		return fmt.Errorf("backend sim: key %q already plugged", key)
	}

	dev := usb.NewDevice(desc, uuid.NewString(), nil)
	b.plugged[key] = dev.Ref()
	b.sink.ConnectDevice(dev)
	return nil
}

// Unplug detaches the simulated device under key and reports its departure.
func (b *Backend) Unplug(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sink == nil {
		return fmt.Errorf("backend sim: not started")
	}
	dev, ok := b.plugged[key]
	if !ok {
		return fmt.Errorf("backend sim: key %q not plugged", key)
	}

	delete(b.plugged, key)
	b.sink.DisconnectDevice(dev)
	dev.Unref()
	return nil
}
