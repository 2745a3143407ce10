package journal

import (
	"context"
	"time"

	"github.com/usbwatch/usbwatch-core/internal/hotplug"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// recordTimeout bounds each journal insert so a stalled database cannot
// block the dispatch loop.
const recordTimeout = 5 * time.Second

// Logger is the minimal logging interface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder adapts the journal store to a hotplug callback. Register its
// Callback on a hotplug context to persist every arrival and departure.
type Recorder struct {
	store  *Store
	logger Logger
}

// NewRecorder creates a recorder writing to the given store.
func NewRecorder(store *Store, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{store: store, logger: logger}
}

// Callback returns the hotplug callback. Insert failures are logged and
// swallowed: a broken journal must not tear down notification delivery.
func (r *Recorder) Callback() hotplug.Callback {
	return func(_ *hotplug.Context, dev *usb.Device, event hotplug.Event, _ any) hotplug.Action {
		name := EventArrived
		if event == hotplug.DeviceLeft {
			name = EventLeft
		}

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if _, err := r.store.Record(ctx, name, dev.Descriptor(), dev.SessionID()); err != nil {
			r.logger.Warn("journal record failed",
				"event", name,
				"session_id", dev.SessionID(),
				"error", err,
			)
		}
		return hotplug.Rearm
	}
}
