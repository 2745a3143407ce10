package hotplug

// ProcessPending runs one dispatch pass: it drains every callback record's
// notification queue in registration order, invoking the user callback once
// per notification in FIFO order. The external event loop calls it after
// observing and clearing the pending-notification signal.
//
// The registry lock is released around each callback invocation and
// re-acquired afterwards, with the dispatch-in-progress guard making any
// Deregister call during the unlocked window defer instead of free. A
// record deregistered from inside its own callback receives no further
// invocations this pass; its remaining notifications are abandoned and
// their device references released when the record is finally destroyed by
// the end-of-pass sweep.
//
// Only the last invocation's verdict counts: Unregister destroys the record
// immediately, releasing any notifications not yet consumed; Rearm leaves
// the record registered with an empty queue once the drain completes.
//
// A nested ProcessPending call (from inside a callback) is a no-op.
func (c *Context) ProcessPending() {
	c.mu.Lock()
	if c.closed || c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true

	// Walk a snapshot of the registry: records registered by a callback
	// mid-pass become visible to transitions immediately but are only
	// dispatched on the next pass.
	records := make([]*callbackRecord, len(c.callbacks))
	copy(records, c.callbacks)

	for _, rec := range records {
		if rec.needsFree || len(rec.queue) == 0 {
			continue
		}

		action := Rearm
		for len(rec.queue) > 0 && !rec.needsFree {
			n := rec.queue[0]
			rec.queue = rec.queue[1:]

			cb, ud := rec.callback, rec.userData
			c.mu.Unlock()
			action = cb(c, n.dev, n.event, ud)
			c.mu.Lock()

			// Consumed: release the notification's device reference.
			n.dev.Unref()

			if action == Unregister {
				break
			}
		}

		if rec.needsFree {
			// Deregistered from within a callback; the sweep below frees it.
			continue
		}
		if action == Unregister {
			c.logger.Debug("hotplug callback unregistered itself", "handle", rec.handle)
			c.removeRecordLocked(rec)
		}
	}

	// Second sweep: free records deregistered during the pass, including
	// those deregistered from another record's callback or after their own
	// queue had already drained.
	if c.recordFreed {
		for i := 0; i < len(c.callbacks); {
			rec := c.callbacks[i]
			if rec.needsFree {
				c.destroyRecordLocked(i, rec)
				continue
			}
			i++
		}
		c.recordFreed = false
	}

	c.dispatching = false
	c.mu.Unlock()
}
