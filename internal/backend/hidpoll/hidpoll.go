// Package hidpoll implements a polling backend restricted to HID-class
// devices, built on github.com/karalabe/hid. It exists for hosts where raw
// usbfs access is unavailable (unprivileged containers, locked-down
// desktops) but the HID subsystem is still enumerable.
//
// HID enumeration exposes no bus topology, so bus/address/port are zero and
// the platform device path serves as the attachment key. Every device is
// reported with the HID class code.
package hidpoll

import (
	"fmt"
	"time"

	"github.com/karalabe/hid"

	"github.com/usbwatch/usbwatch-core/internal/backend"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// hidClass is the USB class code for Human Interface Devices.
const hidClass = 0x03

// Backend polls the HID subsystem.
type Backend struct {
	*backend.Poller
}

// New creates the backend. interval <= 0 selects the poller default.
// Returns an error when the platform has no HID support compiled in; the
// caller should fall back to another backend or report no hotplug
// capability.
func New(interval time.Duration, logger backend.Logger) (*Backend, error) {
	if !hid.Supported() {
		return nil, fmt.Errorf("backend hid: not supported on this platform")
	}
	b := &Backend{}
	b.Poller = backend.NewPoller("hid", interval, b.snapshot, logger)
	return b, nil
}

// snapshot enumerates all HID devices. A zero vendor/product filter means
// match everything.
func (b *Backend) snapshot() (map[string]usb.Descriptor, error) {
	infos, err := hid.Enumerate(0, 0)
	if err != nil {
		return nil, fmt.Errorf("enumerating hid devices: %w", err)
	}

	present := make(map[string]usb.Descriptor, len(infos))
	for _, info := range infos {
		present[info.Path] = usb.Descriptor{
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Class:     hidClass,
		}
	}
	return present, nil
}
