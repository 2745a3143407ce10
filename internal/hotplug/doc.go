// Package hotplug implements the device arrival/departure notification
// engine for usbwatch-core.
//
// Callers register interest in device transitions with Register; platform
// backends report transitions through ConnectDevice and DisconnectDevice;
// the event loop drains queued notifications with ProcessPending (or lets
// HandleEvents drive the whole cycle).
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────┐
//	│                          hotplug.Context                           │
//	│                                                                    │
//	│  ┌───────────────┐   ┌───────────────┐   ┌─────────────────────┐   │
//	│  │   Registry    │   │  Match engine │   │     Dispatcher      │   │
//	│  │ (registry.go) │──▶│  (match.go)   │   │   (dispatch.go)     │   │
//	│  │               │   │               │   │                     │   │
//	│  │ • Register    │   │ • event mask  │   │ • FIFO queue drain  │   │
//	│  │ • Deregister  │   │ • vid/pid/cls │   │ • Rearm/Unregister  │   │
//	│  │ • UserData    │   │   filters     │   │ • deferred destroy  │   │
//	│  └───────────────┘   └───────────────┘   └─────────────────────┘   │
//	│          │                                         ▲               │
//	│          ▼                                         │               │
//	│  ┌───────────────┐   ┌───────────────┐   pending / wake signals    │
//	│  │  Live devices │◀──│  Event hooks  │─────────────┘               │
//	│  │   (usb.List)  │   │  (notify.go)  │                             │
//	│  └───────────────┘   └───────────────┘                             │
//	└────────────────────────────────────────────────────────────────────┘
//
// # Locking
//
// One mutex per Context covers the live device list, the callback registry
// and every per-callback notification queue as a single atomic domain. A
// device transition is therefore always matched against a stable snapshot
// of the registered callbacks, and an Enumerate replay at registration time
// can neither miss nor duplicate a delivery.
//
// Go has no re-entrant mutex, so the dispatcher releases the lock around
// each user-callback invocation and re-acquires it afterwards. A "dispatch
// in progress" guard plus a deferred-destruction sweep reconcile any
// Deregister calls made during the unlocked window, which makes Deregister
// safe to call from inside the very callback being dispatched.
//
// # Lifetime
//
// Every queued notification holds a reference to its device, so a device
// that has already left the bus stays valid until the notification is
// consumed or its callback record is destroyed. Close tears the context
// down, releasing every outstanding reference.
package hotplug
