// Package mqtt provides MQTT client connectivity for usbwatch-core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// usbwatch uses MQTT as its outbound event bus: every hotplug arrival and
// departure is published so other systems (inventory, SIEM, dashboards)
// can react without polling the REST API.
//
//	usbwatchd → MQTT Broker → consumers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Service.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Host: cfg.Service.ID}
//	client.Publish(topics.DeviceEvent("arrived"), payload, 1, false)
package mqtt
