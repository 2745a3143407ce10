package hotplug

import "errors"

// Domain errors for the hotplug package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, hotplug.ErrNotSupported) {
//	    // platform has no hotplug capability
//	}
var (
	// ErrInvalidParam is returned when a registration carries a malformed
	// event mask, unknown flags, an out-of-range vendor/product/class id,
	// or a nil callback.
	ErrInvalidParam = errors.New("hotplug: invalid parameter")

	// ErrNotSupported is returned when the platform backend reports no
	// hotplug capability.
	ErrNotSupported = errors.New("hotplug: not supported on this platform")

	// ErrNoMemory reports that a notification could not be queued because
	// the owning callback's queue is at capacity. It is logged, never
	// returned: fan-out is best-effort and only the one delivery is lost.
	ErrNoMemory = errors.New("hotplug: notification queue exhausted")
)
