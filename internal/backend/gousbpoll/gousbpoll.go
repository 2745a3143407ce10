// Package gousbpoll implements a full-bus polling backend on top of
// github.com/google/gousb. It enumerates device descriptors on a fixed
// interval and diffs consecutive snapshots into arrivals and departures.
// No device is ever opened; only descriptor identity is read.
package gousbpoll

import (
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/usbwatch/usbwatch-core/internal/backend"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Backend polls the USB bus via libusb enumeration.
type Backend struct {
	*backend.Poller
	usbCtx *gousb.Context
}

// New creates the backend. interval <= 0 selects the poller default.
func New(interval time.Duration, logger backend.Logger) *Backend {
	b := &Backend{
		usbCtx: gousb.NewContext(),
	}
	b.Poller = backend.NewPoller("gousb", interval, b.snapshot, logger)
	return b
}

// Stop halts polling and releases the libusb context.
func (b *Backend) Stop() {
	b.Poller.Stop()
	_ = b.usbCtx.Close()
}

// snapshot enumerates every device on every bus. The opener always declines
// so no device handle is ever acquired.
func (b *Backend) snapshot() (map[string]usb.Descriptor, error) {
	present := make(map[string]usb.Descriptor)

	_, err := b.usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		key := fmt.Sprintf("%d:%d", desc.Bus, desc.Address)
		present[key] = usb.Descriptor{
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
			Class:     uint8(desc.Class),
			BusNumber: uint8(desc.Bus),
			Address:   uint8(desc.Address),
			Port:      uint8(desc.Port),
			Speed:     mapSpeed(desc.Speed),
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	return present, nil
}

// mapSpeed converts gousb speed constants to the usb package's.
func mapSpeed(s gousb.Speed) usb.Speed {
	switch s {
	case gousb.SpeedLow:
		return usb.SpeedLow
	case gousb.SpeedFull:
		return usb.SpeedFull
	case gousb.SpeedHigh:
		return usb.SpeedHigh
	case gousb.SpeedSuper:
		return usb.SpeedSuper
	default:
		return usb.SpeedUnknown
	}
}
