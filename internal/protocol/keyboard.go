package protocol

import (
	"github.com/bnema/wlturbo/wl"
)

// Keymap formats announced with the keymap event.
const (
	KeymapFormatNoKeymap = 0
	KeymapFormatXkbV1    = 1
)

// Key states carried by the key event.
const (
	KeyStateReleased = 0
	KeyStatePressed  = 1
)

// KeyboardListener receives keyboard device events. The keymap fd is owned
// by the listener, which must close it after mapping.
type KeyboardListener interface {
	KeyboardKeymap(format uint32, fd int, size uint32)
	KeyboardEnter(serial uint32)
	KeyboardLeave(serial uint32)
	KeyboardKey(serial, time, key, state uint32)
	KeyboardModifiers(serial, depressed, latched, locked, group uint32)
}

// Keyboard is a seat keyboard device (wl_keyboard).
type Keyboard struct {
	wl.BaseProxy

	Listener KeyboardListener
}

// Release releases the keyboard device.
func (k *Keyboard) Release() error {
	// Opcode 0: release
	const opcode = 0
	err := k.Context().SendRequest(k, opcode)
	k.Context().Unregister(k)
	return err
}

// Dispatch handles keyboard events.
func (k *Keyboard) Dispatch(event *wl.Event) {
	if k.Listener == nil {
		return
	}
	switch event.Opcode {
	case 0: // keymap
		format := event.Uint32()
		fd := int(event.Fd())
		size := event.Uint32()
		k.Listener.KeyboardKeymap(format, fd, size)
	case 1: // enter
		serial := event.Uint32()
		k.Listener.KeyboardEnter(serial)
	case 2: // leave
		serial := event.Uint32()
		k.Listener.KeyboardLeave(serial)
	case 3: // key
		serial := event.Uint32()
		time := event.Uint32()
		key := event.Uint32()
		state := event.Uint32()
		k.Listener.KeyboardKey(serial, time, key, state)
	case 4: // modifiers
		serial := event.Uint32()
		depressed := event.Uint32()
		latched := event.Uint32()
		locked := event.Uint32()
		group := event.Uint32()
		k.Listener.KeyboardModifiers(serial, depressed, latched, locked, group)
	}
}
