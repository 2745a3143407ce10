package usb

// List is the ordered live-device list of a hotplug context.
//
// Devices are appended on arrival and removed on departure, so iteration
// order is arrival order. The list holds one reference to each member; that
// reference transfers in on Insert and is the caller's to release after
// Remove.
//
// List performs no locking of its own. The hotplug context's single lock
// covers it together with the callback registry and the notification
// queues.
type List struct {
	devices []*Device
}

// Len returns the number of live devices.
func (l *List) Len() int { return len(l.devices) }

// Insert appends a device to the tail of the list. The list takes over the
// caller's reference.
func (l *List) Insert(dev *Device) {
	l.devices = append(l.devices, dev)
}

// Remove unlinks a device from the list. It returns true if the device was
// present. The list's reference is NOT released; the caller decides when to
// drop it (the hotplug departure hook fans out notifications first).
func (l *List) Remove(dev *Device) bool {
	for i, d := range l.devices {
		if d == dev {
			l.devices = append(l.devices[:i], l.devices[i+1:]...)
			return true
		}
	}
	return false
}

// Each calls fn for every device in arrival order. fn must not mutate the
// list.
func (l *List) Each(fn func(*Device)) {
	for _, d := range l.devices {
		fn(d)
	}
}

// Snapshot returns a copy of the current membership in arrival order. No
// references are acquired; the caller must hold the owning lock while it
// uses the snapshot, or Ref the members it keeps.
func (l *List) Snapshot() []*Device {
	out := make([]*Device, len(l.devices))
	copy(out, l.devices)
	return out
}

// Drain empties the list, returning the former members in order. Used at
// context teardown, where each returned device owes one release.
func (l *List) Drain() []*Device {
	out := l.devices
	l.devices = nil
	return out
}
