// Package input normalizes raw seat device events into the phase-tagged
// pointer stream and the JSON key-event payloads the engine consumes.
package input

import (
	"golang.org/x/sys/unix"

	"github.com/wayhost/wayhost/internal/engine"
	"github.com/wayhost/wayhost/internal/logger"
)

// Sink receives normalized events. The engine host implements it.
type Sink interface {
	SubmitPointerEvent(phase engine.PointerPhase, x, y float64, buttons int64, timestampMicros uint64)
	SubmitKeyEvent(payload []byte)
}

// Evdev button codes (linux/input-event-codes.h).
const (
	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112
)

// Pointer button states (wl_pointer.button_state).
const (
	ButtonStateReleased = 0
	ButtonStatePressed  = 1
)

// buttonBit maps an evdev button code onto the engine's button mask.
// Unknown buttons do not participate in phase transitions.
func buttonBit(code uint32) uint32 {
	switch code {
	case BtnLeft:
		return 1
	case BtnRight:
		return 2
	case BtnMiddle:
		return 4
	}
	return 0
}

// pointerState is the per-seat pointer lifecycle: current position,
// held-button mask, and whether the device is inside the surface. Touch
// contacts feed the same state, so a stylus and a fingertip cannot both
// claim a Down at once.
type pointerState struct {
	x, y    float64
	buttons uint32
	inside  bool
}

// Normalizer turns seat device events into engine events. It implements
// the protocol listener interfaces and runs entirely on the dispatch
// goroutine; no locking is needed.
type Normalizer struct {
	sink    Sink
	pointer pointerState
	kb      keyboardState

	// Monotonic microsecond clock, sampled at emission time. Seam for
	// tests.
	now func() uint64
}

// New creates a normalizer forwarding into sink.
func New(sink Sink) *Normalizer {
	n := &Normalizer{sink: sink, now: monotonicMicros}
	n.kb.init()
	return n
}

func monotonicMicros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Sec)*1e6 + uint64(ts.Nsec)/1000
}

// submit emits one normalized pointer event at the current instant.
func (n *Normalizer) submit(phase engine.PointerPhase, x, y float64) {
	n.sink.SubmitPointerEvent(phase, x, y, int64(n.pointer.buttons), n.now())
}

// PointerEnter implements protocol.PointerListener.
func (n *Normalizer) PointerEnter(serial uint32, x, y float64) {
	n.pointer.x, n.pointer.y = x, y
	n.pointer.inside = true
	n.pointer.buttons = 0
	n.submit(engine.PhaseAdd, x, y)
}

// PointerLeave implements protocol.PointerListener.
func (n *Normalizer) PointerLeave(serial uint32) {
	n.pointer.inside = false
	n.pointer.buttons = 0
	n.submit(engine.PhaseRemove, n.pointer.x, n.pointer.y)
}

// PointerMotion implements protocol.PointerListener. Motion with a button
// held is a drag (Move); without, a Hover.
func (n *Normalizer) PointerMotion(time uint32, x, y float64) {
	n.pointer.x, n.pointer.y = x, y
	phase := engine.PhaseHover
	if n.pointer.buttons != 0 {
		phase = engine.PhaseMove
	}
	n.submit(phase, x, y)
}

// PointerButton implements protocol.PointerListener. The phase is derived
// from the held-button mask before and after: empty-to-held is Down, an
// unchanged non-empty mask is Move, any other change is Up. Releasing a
// button that was never held is a no-op.
func (n *Normalizer) PointerButton(serial, time, button, state uint32) {
	bit := buttonBit(button)
	if bit == 0 {
		return
	}

	prev := n.pointer.buttons
	if state == ButtonStatePressed {
		n.pointer.buttons |= bit
	} else {
		n.pointer.buttons &^= bit
	}

	var phase engine.PointerPhase
	switch {
	case prev == 0 && n.pointer.buttons != 0:
		phase = engine.PhaseDown
	case prev != 0 && n.pointer.buttons == prev:
		phase = engine.PhaseMove
	case prev == 0 && n.pointer.buttons == 0:
		return
	default:
		phase = engine.PhaseUp
	}
	n.submit(phase, n.pointer.x, n.pointer.y)
}

// PointerAxis implements protocol.PointerListener. Scroll is logged and
// not forwarded.
func (n *Normalizer) PointerAxis(time uint32, axis uint32, value float64) {
	logger.Debug("Axis event unhandled", "axis", axis, "value", value)
}

// TouchDown implements protocol.TouchListener. Touch contacts share the
// pointer's phase state.
func (n *Normalizer) TouchDown(serial, time uint32, id int32, x, y float64) {
	n.pointer.x, n.pointer.y = x, y
	prev := n.pointer.buttons
	n.pointer.buttons |= 1
	switch {
	case prev == 0:
		n.submit(engine.PhaseDown, x, y)
	case prev == n.pointer.buttons:
		n.submit(engine.PhaseMove, x, y)
	default:
		n.submit(engine.PhaseUp, x, y)
	}
}

// TouchUp implements protocol.TouchListener.
func (n *Normalizer) TouchUp(serial, time uint32, id int32) {
	if n.pointer.buttons&1 == 0 {
		return
	}
	n.pointer.buttons &^= 1
	n.submit(engine.PhaseUp, n.pointer.x, n.pointer.y)
}

// TouchMotion implements protocol.TouchListener. Motion after the contact
// lifted degrades to a hover.
func (n *Normalizer) TouchMotion(time uint32, id int32, x, y float64) {
	n.pointer.x, n.pointer.y = x, y
	if n.pointer.buttons == 0 {
		n.submit(engine.PhaseHover, x, y)
		return
	}
	n.submit(engine.PhaseMove, x, y)
}
