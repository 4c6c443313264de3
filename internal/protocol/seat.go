package protocol

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/wayhost/wayhost/internal/logger"
)

// SeatInterface is the input device group global.
const SeatInterface = "wl_seat"

// Seat capability bits.
const (
	SeatCapabilityPointer  = 1
	SeatCapabilityKeyboard = 2
	SeatCapabilityTouch    = 4
)

// Seat is the input device group (wl_seat). Devices are acquired and
// released as the compositor announces capability changes; the handler
// runs on the dispatch goroutine.
type Seat struct {
	wl.BaseProxy

	name string

	// CapabilitiesHandler runs on every capabilities announcement,
	// including the initial one after binding.
	CapabilitiesHandler func(caps uint32)
}

// NewSeat creates an unbound seat proxy.
func NewSeat(ctx *wl.Context) *Seat {
	s := &Seat{}
	s.SetContext(ctx)
	return s
}

// Name returns the seat name announced by the compositor.
func (s *Seat) Name() string {
	return s.name
}

// GetPointer acquires the pointer device.
func (s *Seat) GetPointer() (*Pointer, error) {
	p := &Pointer{}
	p.SetContext(s.Context())
	p.SetID(s.Context().AllocateID())
	s.Context().Register(p)

	// Opcode 0: get_pointer
	const opcode = 0
	if err := s.Context().SendRequest(s, opcode, p); err != nil {
		s.Context().Unregister(p)
		return nil, err
	}
	return p, nil
}

// GetKeyboard acquires the keyboard device.
func (s *Seat) GetKeyboard() (*Keyboard, error) {
	k := &Keyboard{}
	k.SetContext(s.Context())
	k.SetID(s.Context().AllocateID())
	s.Context().Register(k)

	// Opcode 1: get_keyboard
	const opcode = 1
	if err := s.Context().SendRequest(s, opcode, k); err != nil {
		s.Context().Unregister(k)
		return nil, err
	}
	return k, nil
}

// GetTouch acquires the touch device.
func (s *Seat) GetTouch() (*Touch, error) {
	t := &Touch{}
	t.SetContext(s.Context())
	t.SetID(s.Context().AllocateID())
	s.Context().Register(t)

	// Opcode 2: get_touch
	const opcode = 2
	if err := s.Context().SendRequest(s, opcode, t); err != nil {
		s.Context().Unregister(t)
		return nil, err
	}
	return t, nil
}

// Release releases the seat proxy.
func (s *Seat) Release() error {
	// Opcode 3: release
	const opcode = 3
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

// Dispatch handles seat events.
func (s *Seat) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // capabilities
		caps := event.Uint32()
		logger.Debug("Seat capabilities", "caps", caps)
		if s.CapabilitiesHandler != nil {
			s.CapabilitiesHandler(caps)
		}
	case 1: // name
		s.name = event.String()
	}
}
