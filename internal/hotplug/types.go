package hotplug

import "github.com/usbwatch/usbwatch-core/internal/usb"

// Event is a bitmask of device transitions a callback can subscribe to.
type Event uint8

const (
	// DeviceArrived fires when a device has been plugged in and is ready
	// to use.
	DeviceArrived Event = 1 << iota

	// DeviceLeft fires when a device has left and is no longer available.
	DeviceLeft
)

// validEvents is the set of recognised event bits.
const validEvents = DeviceArrived | DeviceLeft

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case DeviceArrived:
		return "arrived"
	case DeviceLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Flag is a bitmask of registration options.
type Flag uint8

// Enumerate requests a synchronous replay of DeviceArrived for every
// matching device already present when the callback is registered. The
// callback's return value is ignored during the replay.
const Enumerate Flag = 1 << 0

// validFlags is the set of recognised registration flags.
const validFlags = Enumerate

// MatchAny is the wildcard value for the vendor, product and class filters.
const MatchAny = -1

// Handle identifies a registered callback within one Context. Handles are
// strictly increasing from 1 and wrap back to 1 if the space is exhausted;
// collisions after a wrap are a documented, accepted risk.
type Handle int32

// Action is a callback's verdict on its own registration.
type Action int

const (
	// Rearm keeps the callback registered for future events.
	Rearm Action = iota

	// Unregister destroys the callback record; any notifications still
	// queued for it are released undelivered.
	Unregister
)

// Callback is invoked once per delivered notification, always on the
// goroutine driving dispatch, never on the backend goroutine that detected
// the transition. The returned Action applies only to asynchronously
// dispatched events; it is ignored for the Enumerate replay at registration
// time.
//
// The callback runs with the registry lock released, so it may call
// Deregister (including on its own handle) and Register freely. Callbacks
// invoked during an Enumerate replay run under the lock and must not call
// back into the Context.
type Callback func(ctx *Context, dev *usb.Device, event Event, userData any) Action

// notification is one queued (event, device) pair awaiting delivery. The
// device reference is acquired when the notification is created and
// released exactly once: on consumption, or when the owning record is
// destroyed with the notification still queued.
type notification struct {
	event Event
	dev   *usb.Device
}
