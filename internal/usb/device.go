package usb

import (
	"fmt"
	"sync/atomic"
)

// Speed describes the negotiated bus speed of a device.
type Speed int

// Bus speeds, in increasing order.
const (
	SpeedUnknown Speed = iota
	SpeedLow
	SpeedFull
	SpeedHigh
	SpeedSuper
	SpeedSuperPlus
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "low"
	case SpeedFull:
		return "full"
	case SpeedHigh:
		return "high"
	case SpeedSuper:
		return "super"
	case SpeedSuperPlus:
		return "super+"
	default:
		return "unknown"
	}
}

// Descriptor holds the identity fields the hotplug match engine and the
// service layers care about. It is a value type and safe to copy.
type Descriptor struct {
	VendorID  uint16 `json:"vendor_id"`
	ProductID uint16 `json:"product_id"`
	Class     uint8  `json:"class"`

	// Bus topology. BusNumber/Address identify the device on its bus for
	// the lifetime of one attachment; Port is the hub port it hangs off.
	BusNumber uint8 `json:"bus"`
	Address   uint8 `json:"address"`
	Port      uint8 `json:"port"`

	Speed Speed `json:"speed"`
}

// Device is one physical USB device known to a hotplug context.
//
// Devices carry an explicit reference count. The live-device list holds one
// reference; every queued hotplug notification holds another. The device is
// released (the hook runs, backends may free OS resources) only when the
// last reference is dropped, which may be long after the device physically
// left the bus.
type Device struct {
	desc Descriptor

	// SessionID distinguishes attachments of the same physical device.
	sessionID string

	refs     atomic.Int64
	attached atomic.Bool

	// release runs exactly once, when the refcount drops to zero.
	release func(*Device)
}

// NewDevice creates a device with a reference count of one, owned by the
// caller. The release hook may be nil.
func NewDevice(desc Descriptor, sessionID string, release func(*Device)) *Device {
	d := &Device{
		desc:      desc,
		sessionID: sessionID,
		release:   release,
	}
	d.refs.Store(1)
	return d
}

// Descriptor returns the device identity fields.
func (d *Device) Descriptor() Descriptor { return d.desc }

// SessionID returns the identifier of this attachment session.
func (d *Device) SessionID() string { return d.sessionID }

// VendorID returns the device vendor id.
func (d *Device) VendorID() uint16 { return d.desc.VendorID }

// ProductID returns the device product id.
func (d *Device) ProductID() uint16 { return d.desc.ProductID }

// Class returns the device class code.
func (d *Device) Class() uint8 { return d.desc.Class }

// Attached reports whether the device is currently present on the bus.
// A detached device remains valid while references to it exist.
func (d *Device) Attached() bool { return d.attached.Load() }

// SetAttached marks the device present or absent. Called by the hotplug
// context under its lock when the device joins or leaves the live list.
func (d *Device) SetAttached(attached bool) { d.attached.Store(attached) }

// Ref acquires an additional reference and returns the device for chaining.
func (d *Device) Ref() *Device {
	d.refs.Add(1)
	return d
}

// Unref drops one reference. When the count reaches zero the release hook
// runs exactly once and the device must not be used again. Dropping more
// references than were acquired is a programming error and panics.
func (d *Device) Unref() {
	n := d.refs.Add(-1)
	switch {
	case n == 0:
		if d.release != nil {
			d.release(d)
		}
	case n < 0:
		panic(fmt.Sprintf("usb: refcount underflow on device %s", d))
	}
}

// RefCount returns the current reference count. Intended for tests and
// diagnostics; the value may be stale by the time the caller looks at it.
func (d *Device) RefCount() int64 { return d.refs.Load() }

// String formats the device identity for logs.
func (d *Device) String() string {
	return fmt.Sprintf("%04x:%04x (bus %d, addr %d)",
		d.desc.VendorID, d.desc.ProductID, d.desc.BusNumber, d.desc.Address)
}
