package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usbwatch/usbwatch-core/internal/usb"
)

// deviceView is the JSON representation of an attached device.
type deviceView struct {
	SessionID string         `json:"session_id"`
	Device    usb.Descriptor `json:"device"`
	Attached  bool           `json:"attached"`
}

// handleListDevices returns the currently attached devices in arrival order.
//
// Query parameters:
//   - vendor_id: filter by vendor ID (hex, e.g. 046d)
//   - product_id: filter by product ID (hex)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.hotplug.Devices()
	defer releaseAll(devices)

	vendorFilter, vendorOK, err := parseHexFilter(r.URL.Query().Get("vendor_id"))
	if err != nil {
		writeBadRequest(w, "vendor_id must be a 16-bit hex value")
		return
	}
	productFilter, productOK, err := parseHexFilter(r.URL.Query().Get("product_id"))
	if err != nil {
		writeBadRequest(w, "product_id must be a 16-bit hex value")
		return
	}

	views := make([]deviceView, 0, len(devices))
	for _, dev := range devices {
		if vendorOK && dev.VendorID() != vendorFilter {
			continue
		}
		if productOK && dev.ProductID() != productFilter {
			continue
		}
		views = append(views, newDeviceView(dev))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": views,
		"count":   len(views),
	})
}

// handleGetDevice returns a single attached device by session ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	devices := s.hotplug.Devices()
	defer releaseAll(devices)

	for _, dev := range devices {
		if dev.SessionID() == sessionID {
			writeJSON(w, http.StatusOK, newDeviceView(dev))
			return
		}
	}

	writeNotFound(w, "device not attached")
}

// handleListCallbacks returns the registered hotplug callbacks for diagnostics.
func (s *Server) handleListCallbacks(w http.ResponseWriter, _ *http.Request) {
	callbacks := s.hotplug.Callbacks()
	writeJSON(w, http.StatusOK, map[string]any{
		"callbacks": callbacks,
		"count":     len(callbacks),
	})
}

func newDeviceView(dev *usb.Device) deviceView {
	return deviceView{
		SessionID: dev.SessionID(),
		Device:    dev.Descriptor(),
		Attached:  dev.Attached(),
	}
}

// parseHexFilter parses an optional 16-bit hex query value.
// The second return reports whether a filter was supplied.
func parseHexFilter(raw string) (uint16, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 16, 16)
	if err != nil {
		return 0, false, err
	}
	return uint16(v), true, nil
}

// releaseAll drops the snapshot references handed out by Devices().
func releaseAll(devices []*usb.Device) {
	for _, dev := range devices {
		dev.Unref()
	}
}
