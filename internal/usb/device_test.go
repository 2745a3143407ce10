package usb

import (
	"sync"
	"testing"
)

func TestDeviceRefCounting(t *testing.T) {
	released := 0
	dev := NewDevice(Descriptor{VendorID: 0x1234, ProductID: 0x5678}, "s1", func(*Device) {
		released++
	})

	if got := dev.RefCount(); got != 1 {
		t.Fatalf("initial refcount = %d, want 1", got)
	}

	dev.Ref()
	dev.Ref()
	if got := dev.RefCount(); got != 3 {
		t.Fatalf("refcount after two Refs = %d, want 3", got)
	}

	dev.Unref()
	dev.Unref()
	if released != 0 {
		t.Fatalf("release hook ran with %d references outstanding", dev.RefCount())
	}

	dev.Unref()
	if released != 1 {
		t.Fatalf("release hook ran %d times, want exactly 1", released)
	}
}

func TestDeviceUnrefUnderflowPanics(t *testing.T) {
	dev := NewDevice(Descriptor{}, "s1", nil)
	dev.Unref()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on refcount underflow")
		}
	}()
	dev.Unref()
}

func TestDeviceRefCountingConcurrent(t *testing.T) {
	const refs = 100

	released := 0
	dev := NewDevice(Descriptor{}, "s1", func(*Device) { released++ })

	var wg sync.WaitGroup
	for i := 0; i < refs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dev.Ref()
			dev.Unref()
		}()
	}
	wg.Wait()

	if released != 0 {
		t.Fatal("release hook ran while the creating reference was still held")
	}
	dev.Unref()
	if released != 1 {
		t.Fatalf("release hook ran %d times, want exactly 1", released)
	}
}

func TestDeviceAttachedFlag(t *testing.T) {
	dev := NewDevice(Descriptor{}, "s1", nil)
	if dev.Attached() {
		t.Fatal("new device reports attached")
	}
	dev.SetAttached(true)
	if !dev.Attached() {
		t.Fatal("device not attached after SetAttached(true)")
	}
	dev.SetAttached(false)
	if dev.Attached() {
		t.Fatal("device still attached after SetAttached(false)")
	}
}

func TestListInsertRemoveOrder(t *testing.T) {
	var list List

	a := NewDevice(Descriptor{Address: 1}, "a", nil)
	b := NewDevice(Descriptor{Address: 2}, "b", nil)
	c := NewDevice(Descriptor{Address: 3}, "c", nil)

	list.Insert(a)
	list.Insert(b)
	list.Insert(c)

	if list.Len() != 3 {
		t.Fatalf("len = %d, want 3", list.Len())
	}

	if !list.Remove(b) {
		t.Fatal("Remove(b) = false, want true")
	}
	if list.Remove(b) {
		t.Fatal("second Remove(b) = true, want false")
	}

	var got []*Device
	list.Each(func(d *Device) { got = append(got, d) })
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("iteration order wrong after remove: %v", got)
	}
}

func TestListDrain(t *testing.T) {
	var list List
	a := NewDevice(Descriptor{}, "a", nil)
	b := NewDevice(Descriptor{}, "b", nil)
	list.Insert(a)
	list.Insert(b)

	drained := list.Drain()
	if len(drained) != 2 || drained[0] != a || drained[1] != b {
		t.Fatalf("Drain returned %v", drained)
	}
	if list.Len() != 0 {
		t.Fatalf("list not empty after Drain: len = %d", list.Len())
	}
}
