package hotplug

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Logger defines the logging interface used by the Context.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config contains hotplug context configuration.
type Config struct {
	// HasHotplug reports whether the platform backend can deliver device
	// transitions. When false, Register fails with ErrNotSupported and the
	// event hooks only maintain the live device list.
	HasHotplug bool

	// QueueCapacity bounds the number of notifications one callback can
	// have pending. Zero means unbounded. When a queue is full, that one
	// delivery is dropped and logged; all other matching callbacks still
	// receive theirs.
	QueueCapacity int
}

// Context owns all hotplug state for one library instance: the live device
// list, the callback registry, every per-callback notification queue, and
// the signals consumed by the event loop. There are no package-level
// globals; independent Contexts are fully isolated.
type Context struct {
	cfg    Config
	logger Logger

	// mu covers devices, callbacks and every notification queue as one
	// atomic domain. No finer-grained locking exists: a transition must be
	// matched against a consistent snapshot of the registry and vice versa.
	mu         sync.Mutex
	devices    usb.List
	callbacks  []*callbackRecord
	nextHandle Handle
	closed     bool

	// dispatching marks a dispatch pass in progress; Deregister calls made
	// while it is set defer destruction instead of freeing immediately.
	// recordFreed notes that at least one record was deferred this pass.
	dispatching bool
	recordFreed bool

	// pending is the process-visible signal that at least one notification
	// awaits dispatch. wake rouses a goroutine blocked in HandleEvents,
	// either for pending notifications or for an out-of-band registry
	// change (the "interrupt blocking wait" signal).
	pending atomic.Bool
	wake    chan struct{}
}

// New creates a hotplug context ready for registrations and backend events.
func New(cfg Config) *Context {
	return &Context{
		cfg:        cfg,
		logger:     noopLogger{},
		nextHandle: 1,
		wake:       make(chan struct{}, 1),
	}
}

// SetLogger sets the logger for the context. Call before wiring backends.
func (c *Context) SetLogger(logger Logger) {
	c.logger = logger
}

// HasHotplug reports whether the backing platform delivers transitions.
func (c *Context) HasHotplug() bool { return c.cfg.HasHotplug }

// Pending reports whether at least one notification awaits dispatch.
// External event loops observe and clear it via ProcessPending.
func (c *Context) Pending() bool { return c.pending.Load() }

// Wake returns the channel signalled when notifications become pending or
// when the registry changes out of band. External event loops may select
// on it alongside their own sources.
func (c *Context) Wake() <-chan struct{} { return c.wake }

// setPending raises the pending-notification signal and wakes the loop.
func (c *Context) setPending() {
	c.pending.Store(true)
	c.signalWake()
}

// interrupt wakes a goroutine blocked waiting for events without raising
// the pending flag. Raised after out-of-band deregistration so a blocked
// waiter notices the registry change.
func (c *Context) interrupt() {
	c.signalWake()
}

func (c *Context) signalWake() {
	select {
	case c.wake <- struct{}{}:
	default: // already signalled
	}
}

// HandleEvents drives dispatch until ctx is cancelled. It blocks on the
// wake signal, clears the pending flag, and runs a dispatch pass whenever
// notifications are waiting. Spurious wakes (interrupts with nothing
// pending) simply loop.
func (c *Context) HandleEvents(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
			if c.pending.Swap(false) {
				c.ProcessPending()
			}
		}
	}
}

// Close tears the context down: every callback record is destroyed
// (releasing queued device references) and the live device list is drained,
// dropping the list's reference to each device. Close must not be called
// from inside a callback or concurrently with a dispatch pass.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for _, rec := range c.callbacks {
		rec.releaseQueueLocked()
	}
	c.callbacks = nil

	for _, dev := range c.devices.Drain() {
		dev.Unref()
	}

	c.logger.Debug("hotplug context closed")
}

// Devices returns a snapshot of the live device list in arrival order.
// The returned devices each carry an extra reference owned by the caller,
// who must Unref them when done.
func (c *Context) Devices() []*usb.Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*usb.Device, 0, c.devices.Len())
	c.devices.Each(func(d *usb.Device) {
		out = append(out, d.Ref())
	})
	return out
}

// CallbackInfo describes one registered callback for diagnostics.
type CallbackInfo struct {
	Handle    Handle `json:"handle"`
	Events    Event  `json:"events"`
	VendorID  int32  `json:"vendor_id"`
	ProductID int32  `json:"product_id"`
	Class     int32  `json:"class"`
	Queued    int    `json:"queued"`
}

// Callbacks returns a snapshot of the registered callbacks in registration
// order. Filters report MatchAny (-1) when unset.
func (c *Context) Callbacks() []CallbackInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]CallbackInfo, 0, len(c.callbacks))
	for _, rec := range c.callbacks {
		if rec.needsFree {
			continue
		}
		out = append(out, CallbackInfo{
			Handle:    rec.handle,
			Events:    rec.events,
			VendorID:  rec.vendorID,
			ProductID: rec.productID,
			Class:     rec.class,
			Queued:    len(rec.queue),
		})
	}
	return out
}
