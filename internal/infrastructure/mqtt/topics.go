package mqtt

import "fmt"

// Topic prefixes for the usbwatch MQTT hierarchy.
//
// Event topics use the flat scheme: usbwatch/{host}/{category}/...
// so multiple daemons can share one broker without colliding.
const (
	// TopicPrefix is the base for all usbwatch topics.
	TopicPrefix = "usbwatch"
)

// Topics provides builders for usbwatch MQTT topics. Using these helpers
// ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Host: "lab-42"}
//	t := topics.DeviceEvent("arrived")
//	// Returns: "usbwatch/lab-42/device/arrived"
type Topics struct {
	// Host identifies the publishing daemon (config service.id).
	Host string
}

// DeviceEvent returns the topic for a device transition.
//
// Example: usbwatch/lab-42/device/arrived
func (t Topics) DeviceEvent(event string) string {
	return fmt.Sprintf("%s/%s/device/%s", TopicPrefix, t.Host, event)
}

// DeviceSession returns the per-session topic for a device attachment.
// Every event of one attachment session is republished here so consumers
// can follow a single device without parsing payloads.
//
// Example: usbwatch/lab-42/session/9f1c.../arrived
func (t Topics) DeviceSession(sessionID, event string) string {
	return fmt.Sprintf("%s/%s/session/%s/%s", TopicPrefix, t.Host, sessionID, event)
}

// Status returns the daemon status topic, used for online/offline
// retained messages and the broker last-will.
//
// Example: usbwatch/lab-42/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.Host)
}

// AllDeviceEvents returns a pattern matching every device event from this
// daemon.
//
// Pattern: usbwatch/lab-42/device/+
func (t Topics) AllDeviceEvents() string {
	return fmt.Sprintf("%s/%s/device/+", TopicPrefix, t.Host)
}

// AllHosts returns a pattern matching device events from every daemon on
// the broker.
//
// Pattern: usbwatch/+/device/+
func (Topics) AllHosts() string {
	return fmt.Sprintf("%s/+/device/+", TopicPrefix)
}

// AllTopics returns a pattern matching all usbwatch traffic.
// Use with caution - this receives ALL traffic.
//
// Pattern: usbwatch/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
