package hotplug

import "github.com/usbwatch/usbwatch-core/internal/usb"

// ConnectDevice reports a device arrival. Backends call it with a device
// reference that transfers to the live-device list.
//
// Under one lock acquisition the device is marked attached, inserted at the
// tail of the live list, and matched against every registered callback for
// DeviceArrived; each match queues a notification pinning the device with a
// fresh reference. If anything was queued, the pending-notification signal
// is raised for the event loop.
func (c *Context) ConnectDevice(dev *usb.Device) {
	dev.SetAttached(true)

	c.mu.Lock()
	c.devices.Insert(dev)
	notified := false
	if c.cfg.HasHotplug {
		notified = c.enqueueLocked(dev, DeviceArrived)
	}
	c.mu.Unlock()

	c.logger.Debug("device arrived", "device", dev.String(), "notified", notified)

	if notified {
		c.setPending()
	}
}

// DisconnectDevice reports a device departure. The device is marked
// detached, removed from the live list, matched for DeviceLeft, and the
// list's own reference is released — any queued notifications keep the
// device alive independently until they are consumed.
func (c *Context) DisconnectDevice(dev *usb.Device) {
	dev.SetAttached(false)

	c.mu.Lock()
	removed := c.devices.Remove(dev)
	notified := false
	if c.cfg.HasHotplug {
		notified = c.enqueueLocked(dev, DeviceLeft)
	}
	if removed {
		dev.Unref() // the live list's reference
	}
	c.mu.Unlock()

	c.logger.Debug("device left", "device", dev.String(), "notified", notified)

	if notified {
		c.setPending()
	}
}

// enqueueLocked fans one transition out to every matching callback record,
// appending a notification that pins the device. Fan-out is best-effort: a
// record whose queue is at capacity loses only its own delivery, which is
// logged; all other matches still proceed. Returns whether anything was
// queued. Caller holds the context lock.
func (c *Context) enqueueLocked(dev *usb.Device, event Event) bool {
	notified := false
	for _, rec := range c.callbacks {
		if !rec.matches(dev, event) {
			continue
		}

		if c.cfg.QueueCapacity > 0 && len(rec.queue) >= c.cfg.QueueCapacity {
			c.logger.Error("dropping hotplug notification",
				"handle", rec.handle,
				"event", event.String(),
				"device", dev.String(),
				"error", ErrNoMemory,
			)
			continue
		}

		rec.queue = append(rec.queue, notification{event: event, dev: dev.Ref()})
		notified = true
	}
	return notified
}
