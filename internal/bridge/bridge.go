package bridge

import (
	"encoding/json"
	"time"

	"github.com/usbwatch/usbwatch-core/internal/hotplug"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/mqtt"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// Publisher is the slice of the MQTT client the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the minimal logging interface the bridge needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Event is the JSON payload published for every device transition.
type Event struct {
	Event     string         `json:"event"`
	Host      string         `json:"host"`
	Device    usb.Descriptor `json:"device"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bridge publishes hotplug events to MQTT.
type Bridge struct {
	pub    Publisher
	topics mqtt.Topics
	host   string
	qos    byte
	logger Logger
}

// New creates a bridge publishing under the given host identifier
// (config service.id).
func New(pub Publisher, host string, qos byte, logger Logger) *Bridge {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bridge{
		pub:    pub,
		topics: mqtt.Topics{Host: host},
		host:   host,
		qos:    qos,
		logger: logger,
	}
}

// Callback returns the hotplug callback to register. It always rearms;
// the bridge lives for the lifetime of the daemon.
func (b *Bridge) Callback() hotplug.Callback {
	return func(_ *hotplug.Context, dev *usb.Device, event hotplug.Event, _ any) hotplug.Action {
		b.publish(dev, event)
		return hotplug.Rearm
	}
}

func (b *Bridge) publish(dev *usb.Device, event hotplug.Event) {
	name := "arrived"
	if event == hotplug.DeviceLeft {
		name = "left"
	}

	payload, err := json.Marshal(Event{
		Event:     name,
		Host:      b.host,
		Device:    dev.Descriptor(),
		SessionID: dev.SessionID(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		b.logger.Warn("encoding bridge event", "error", err)
		return
	}

	for _, topic := range []string{
		b.topics.DeviceEvent(name),
		b.topics.DeviceSession(dev.SessionID(), name),
	} {
		if err := b.pub.Publish(topic, payload, b.qos, false); err != nil {
			b.logger.Warn("publishing bridge event",
				"topic", topic,
				"event", name,
				"error", err,
			)
			continue
		}
		b.logger.Debug("published bridge event", "topic", topic, "event", name)
	}
}
