// Package usb provides the device model shared by the hotplug engine,
// the platform backends, and the service layers above them.
//
// # Key Types
//
//   - Device: one physical USB device, identified by vendor/product/class
//     and bus topology, with an explicit shared-ownership reference count
//   - List: the ordered live-device list owned by a hotplug context
//
// # Reference Counting
//
// Devices are shared between the live-device list and any queued hotplug
// notifications that still point at them. Ownership is explicit: every
// Ref() must be paired with exactly one Unref(). When the count reaches
// zero the release hook runs once and the device must not be touched again.
// A device that has physically left the bus therefore stays inspectable
// for as long as a queued notification references it.
//
// # Thread Safety
//
// Ref, Unref, Attached and SetAttached are safe for concurrent use.
// List is deliberately NOT synchronised: it is owned by the hotplug
// context, whose single lock covers the device list, the callback
// registry and every notification queue as one atomic domain.
package usb
