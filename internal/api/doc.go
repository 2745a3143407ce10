// Package api implements the HTTP REST API and WebSocket server for usbwatch.
//
// This package provides:
//   - REST endpoints for attached devices, registered callbacks, and the
//     persisted event journal
//   - WebSocket hub broadcasting device.arrived and device.left events
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server is a read-only window onto the hotplug context: handlers
// snapshot the live device list and callback registry under the context's
// lock, so responses are consistent without pausing event delivery. Durable
// history comes from the journal store. Real-time updates flow through
// Hub.DeviceCallback, a hotplug callback the daemon registers at startup.
//
// # Security
//
// Authentication uses JWT tokens (placeholder dev credentials for now).
// WebSocket connections use single-use tickets to prevent token leakage in URLs.
package api
