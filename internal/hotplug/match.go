package hotplug

import "github.com/usbwatch/usbwatch-core/internal/usb"

// matches decides whether a (callback, device, event) triple should be
// delivered. The event bit must be present in the record's mask, and each
// filter that is not MatchAny must equal the device's corresponding field
// exactly — no partial or range matching.
func (r *callbackRecord) matches(dev *usb.Device, event Event) bool {
	if r.events&event == 0 {
		return false
	}

	if r.vendorID != MatchAny && uint16(r.vendorID) != dev.VendorID() {
		return false
	}
	if r.productID != MatchAny && uint16(r.productID) != dev.ProductID() {
		return false
	}
	if r.class != MatchAny && uint8(r.class) != dev.Class() {
		return false
	}

	return true
}
