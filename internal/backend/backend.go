package backend

import (
	"context"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Sink receives device transitions from a backend. It is implemented by
// hotplug.Context. ConnectDevice takes over the caller's device reference;
// DisconnectDevice must be called with the same device pointer that was
// connected.
type Sink interface {
	ConnectDevice(dev *usb.Device)
	DisconnectDevice(dev *usb.Device)
}

// Backend detects device transitions for one platform mechanism.
type Backend interface {
	// Name identifies the backend in logs and the health endpoint.
	Name() string

	// HasHotplug reports whether the backend can deliver transitions at
	// all. The hotplug context refuses registrations when it cannot.
	HasHotplug() bool

	// Start begins reporting transitions to sink. Implementations return
	// once initial enumeration is done and detection is running; they stop
	// when ctx is cancelled or Stop is called.
	Start(ctx context.Context, sink Sink) error

	// Stop halts detection and waits for in-flight reports to finish.
	Stop()
}

// Logger defines the logging interface used by backends.
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
