package protocol

import (
	"github.com/bnema/wlturbo/wl"
)

// PointerListener receives pointer device events with coordinates already
// converted to surface-local float64 pixels.
type PointerListener interface {
	PointerEnter(serial uint32, x, y float64)
	PointerLeave(serial uint32)
	PointerMotion(time uint32, x, y float64)
	PointerButton(serial, time, button, state uint32)
	PointerAxis(time uint32, axis uint32, value float64)
}

// Pointer is a seat pointer device (wl_pointer).
type Pointer struct {
	wl.BaseProxy

	Listener PointerListener
}

// Release releases the pointer device.
func (p *Pointer) Release() error {
	// Opcode 1: release
	const opcode = 1
	err := p.Context().SendRequest(p, opcode)
	p.Context().Unregister(p)
	return err
}

// Dispatch handles pointer events.
func (p *Pointer) Dispatch(event *wl.Event) {
	if p.Listener == nil {
		return
	}
	switch event.Opcode {
	case 0: // enter
		serial := event.Uint32()
		_ = event.Uint32() // surface
		x := wl.Fixed(event.Int32()).Float64()
		y := wl.Fixed(event.Int32()).Float64()
		p.Listener.PointerEnter(serial, x, y)
	case 1: // leave
		serial := event.Uint32()
		_ = event.Uint32() // surface
		p.Listener.PointerLeave(serial)
	case 2: // motion
		time := event.Uint32()
		x := wl.Fixed(event.Int32()).Float64()
		y := wl.Fixed(event.Int32()).Float64()
		p.Listener.PointerMotion(time, x, y)
	case 3: // button
		serial := event.Uint32()
		time := event.Uint32()
		button := event.Uint32()
		state := event.Uint32()
		p.Listener.PointerButton(serial, time, button, state)
	case 4: // axis
		time := event.Uint32()
		axis := event.Uint32()
		value := wl.Fixed(event.Int32()).Float64()
		p.Listener.PointerAxis(time, axis, value)
	}
}
