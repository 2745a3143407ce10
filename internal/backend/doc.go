// Package backend defines the platform backend contract for usbwatch-core
// and the snapshot-polling helpers shared by the concrete backends.
//
// A backend's only job is to detect device transitions and report them to
// the hotplug engine through the two Sink hooks. The engine does the rest:
// matching, queueing and dispatch. Backends that cannot observe transitions
// natively poll the bus instead: each poll produces a snapshot of the
// attached devices, and the Differ turns consecutive snapshots into
// arrival/departure calls.
//
// Concrete backends:
//
//   - backend/gousbpoll: full-bus enumeration via github.com/google/gousb
//   - backend/hidpoll: HID-class devices via github.com/karalabe/hid, for
//     hosts where usbfs access is unavailable
//   - backend/sim: an in-memory backend for tests and demo mode
package backend
