package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// WriteDeviceEvent writes one hotplug transition point.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - event: "arrived" or "left"
//   - desc: Device identity and bus position
//   - sessionID: Attachment session the event belongs to
func (c *Client) WriteDeviceEvent(event string, desc usb.Descriptor, sessionID string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hotplug_events",
		map[string]string{
			"event":      event,
			"vendor_id":  fmt.Sprintf("%04x", desc.VendorID),
			"product_id": fmt.Sprintf("%04x", desc.ProductID),
			"class":      fmt.Sprintf("%02x", desc.Class),
			"speed":      desc.Speed.String(),
		},
		map[string]interface{}{
			"bus":        int(desc.BusNumber),
			"address":    int(desc.Address),
			"session_id": sessionID,
			"count":      1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSessionDuration records how long one attachment lasted, written at
// departure time.
func (c *Client) WriteSessionDuration(desc usb.Descriptor, sessionID string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"session_duration",
		map[string]string{
			"vendor_id":  fmt.Sprintf("%04x", desc.VendorID),
			"product_id": fmt.Sprintf("%04x", desc.ProductID),
		},
		map[string]interface{}{
			"seconds":    duration.Seconds(),
			"session_id": sessionID,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceCount records the current number of attached devices, useful
// for dashboarding fleet-wide USB activity.
func (c *Client) WriteDeviceCount(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"attached_devices",
		nil,
		map[string]interface{}{
			"count": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
