package protocol

import (
	"github.com/bnema/wlturbo/wl"
)

// TouchListener receives touch device events. Coordinates are
// surface-local pixels.
type TouchListener interface {
	TouchDown(serial, time uint32, id int32, x, y float64)
	TouchUp(serial, time uint32, id int32)
	TouchMotion(time uint32, id int32, x, y float64)
}

// Touch is a seat touch device (wl_touch).
type Touch struct {
	wl.BaseProxy

	Listener TouchListener
}

// Release releases the touch device.
func (t *Touch) Release() error {
	// Opcode 0: release
	const opcode = 0
	err := t.Context().SendRequest(t, opcode)
	t.Context().Unregister(t)
	return err
}

// Dispatch handles touch events.
func (t *Touch) Dispatch(event *wl.Event) {
	if t.Listener == nil {
		return
	}
	switch event.Opcode {
	case 0: // down
		serial := event.Uint32()
		time := event.Uint32()
		_ = event.Uint32() // surface
		id := event.Int32()
		x := wl.Fixed(event.Int32()).Float64()
		y := wl.Fixed(event.Int32()).Float64()
		t.Listener.TouchDown(serial, time, id, x, y)
	case 1: // up
		serial := event.Uint32()
		time := event.Uint32()
		id := event.Int32()
		t.Listener.TouchUp(serial, time, id)
	case 2: // motion
		time := event.Uint32()
		id := event.Int32()
		x := wl.Fixed(event.Int32()).Float64()
		y := wl.Fixed(event.Int32()).Float64()
		t.Listener.TouchMotion(time, id, x, y)
	}
}
