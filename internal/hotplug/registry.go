package hotplug

import "github.com/usbwatch/usbwatch-core/internal/usb"

// callbackRecord is one registered interest: event mask, optional identity
// filters, the user callback, and its pending-notification queue. Records
// are owned exclusively by the registry and referenced from the outside
// only by handle.
type callbackRecord struct {
	handle Handle
	events Event

	// Filters; MatchAny means the field is a wildcard.
	vendorID  int32
	productID int32
	class     int32

	callback Callback
	userData any

	// queue holds pending notifications in arrival order. Each entry pins
	// its device with a reference released on consumption or destruction.
	queue []notification

	// needsFree marks the record for deferred destruction: it was
	// deregistered while a dispatch pass was in progress and will be freed
	// by the end-of-pass sweep. A marked record receives no further
	// callback invocations.
	needsFree bool
}

// releaseQueueLocked releases the device reference held by every queued
// notification and clears the queue. Caller holds the context lock.
func (r *callbackRecord) releaseQueueLocked() {
	for _, n := range r.queue {
		n.dev.Unref()
	}
	r.queue = nil
}

// Register adds a hotplug callback. The callback fires for every matching
// transition until it is deregistered or returns Unregister.
//
// events must be a non-empty subset of DeviceArrived|DeviceLeft and flags a
// subset of Enumerate. vendorID and productID must be MatchAny or within
// [0, 0xFFFF]; class must be MatchAny or within [0, 0xFF]; cb must not be
// nil. Violations fail with ErrInvalidParam. If the platform has no hotplug
// capability, Register fails with ErrNotSupported regardless of parameters.
//
// With Enumerate set and DeviceArrived in the mask, cb is invoked
// synchronously, before Register returns, once for every currently-live
// matching device in arrival order; its return value is ignored for these
// replay deliveries. The device snapshot and the record insertion happen
// under one lock acquisition, so no transition can slip between the replay
// and the record becoming visible — no missed and no duplicated delivery.
// Replay invocations run under the registry lock and must not call back
// into the Context.
//
// Returns the handle identifying the new registration.
func (c *Context) Register(events Event, flags Flag, vendorID, productID, class int32, cb Callback, userData any) (Handle, error) {
	if events == 0 || events&^validEvents != 0 ||
		flags&^validFlags != 0 ||
		(vendorID != MatchAny && (vendorID < 0 || vendorID > 0xFFFF)) ||
		(productID != MatchAny && (productID < 0 || productID > 0xFFFF)) ||
		(class != MatchAny && (class < 0 || class > 0xFF)) ||
		cb == nil {
		return 0, ErrInvalidParam
	}

	if !c.cfg.HasHotplug {
		return 0, ErrNotSupported
	}

	rec := &callbackRecord{
		events:    events,
		vendorID:  vendorID,
		productID: productID,
		class:     class,
		callback:  cb,
		userData:  userData,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec.handle = c.allocateHandleLocked()

	if flags&Enumerate != 0 && events&DeviceArrived != 0 {
		c.devices.Each(func(dev *usb.Device) {
			if !rec.matches(dev, DeviceArrived) {
				return
			}
			// The verdict is deliberately ignored: a record cannot remove
			// itself during the replay.
			_ = cb(c, dev, DeviceArrived, userData)
		})
	}

	// Append to the tail so dispatch walks records in registration order.
	c.callbacks = append(c.callbacks, rec)

	c.logger.Debug("hotplug callback registered",
		"handle", rec.handle,
		"events", rec.events,
	)

	return rec.handle, nil
}

// allocateHandleLocked returns the next callback handle. Handles start at 1
// and increase strictly; on overflow into the negative range the counter
// resets to 1. No uniqueness check against still-live handles is performed
// after a wrap — a documented, accepted risk.
func (c *Context) allocateHandleLocked() Handle {
	h := c.nextHandle
	c.nextHandle++
	if c.nextHandle < 0 {
		c.logger.Warn("hotplug callback handle space exhausted, wrapping to 1")
		c.nextHandle = 1
	}
	return h
}

// Deregister removes a hotplug callback by handle. Unknown handles are a
// no-op. The call is safe from inside a hotplug callback, including the one
// being deregistered: when a dispatch pass is in progress the record is
// marked for deferred destruction and freed by the end-of-pass sweep, and
// it receives no further invocations in the meantime.
//
// When a record was removed, the wake signal is raised so a goroutine
// blocked waiting for events notices the registry change.
func (c *Context) Deregister(handle Handle) {
	if !c.cfg.HasHotplug {
		return
	}

	c.mu.Lock()
	found := false
	for i, rec := range c.callbacks {
		if rec.handle != handle {
			continue
		}
		if c.dispatching {
			// Deferred: the dispatcher's sweep frees it once the pass is
			// done. Destroying it here would yank state out from under a
			// callback invocation in flight.
			rec.needsFree = true
			c.recordFreed = true
		} else {
			c.destroyRecordLocked(i, rec)
		}
		found = true
		break
	}
	c.mu.Unlock()

	if found {
		c.logger.Debug("hotplug callback deregistered", "handle", handle)
		c.interrupt()
	}
}

// UserData returns the opaque user data attached to a registration.
// The second return is false when the handle is unknown or the platform
// lacks hotplug support.
func (c *Context) UserData(handle Handle) (any, bool) {
	if !c.cfg.HasHotplug {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, rec := range c.callbacks {
		if rec.handle == handle {
			return rec.userData, true
		}
	}
	return nil, false
}

// destroyRecordLocked releases a record's queued device references and
// unlinks it from the registry. Caller holds the context lock and supplies
// the record's current index.
func (c *Context) destroyRecordLocked(i int, rec *callbackRecord) {
	rec.releaseQueueLocked()
	c.callbacks = append(c.callbacks[:i], c.callbacks[i+1:]...)
}

// removeRecordLocked is destroyRecordLocked for callers that only hold the
// record pointer; the registry may have shifted since the pointer was
// taken. A record no longer present is ignored.
func (c *Context) removeRecordLocked(rec *callbackRecord) {
	for i, r := range c.callbacks {
		if r == rec {
			c.destroyRecordLocked(i, rec)
			return
		}
	}
}
