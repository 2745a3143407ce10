// Package bridge fans hotplug notifications out to the MQTT event bus.
//
// The bridge registers one callback on the hotplug context. Every arrival
// and departure is serialised to JSON and published twice: once on the
// per-event topic (usbwatch/{host}/device/{event}) and once on the
// per-session topic so consumers can follow one attachment end to end.
//
// Publish failures are logged and dropped. The event bus is best-effort;
// the journal is the durable record.
package bridge
