// Package influxdb provides InfluxDB connectivity for usbwatch-core.
//
// It wraps the official influxdb-client-go v2 library with usbwatch
// patterns for connection management, point writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series telemetry for:
//   - Hotplug transition points (arrivals and departures)
//   - Attachment session durations
//   - Attached-device counts
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteDeviceEvent("arrived", desc, sessionID)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
package influxdb
