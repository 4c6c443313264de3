// Package xkb binds libxkbcommon through purego to compile compositor
// keymaps and resolve key codes to keysyms and code points.
package xkb

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// Keymap format accepted from the compositor.
const (
	KeymapFormatTextV1 = 1
)

// xkb_state_component bits for serializing modifier state.
const (
	StateModsDepressed = 1 << 0
	StateModsLatched   = 1 << 1
	StateModsLocked    = 1 << 2
	StateModsEffective = 1 << 3
)

const (
	contextNoFlags       = 0
	keymapCompileNoFlags = 0
)

var (
	libOnce sync.Once
	libErr  error

	xkbContextNew          func(flags uint32) uintptr
	xkbContextUnref        func(ctx uintptr)
	xkbKeymapNewFromString func(ctx uintptr, s string, format uint32, flags uint32) uintptr
	xkbKeymapUnref         func(keymap uintptr)
	xkbStateNew            func(keymap uintptr) uintptr
	xkbStateUnref          func(state uintptr)
	xkbStateKeyGetOneSym   func(state uintptr, key uint32) uint32
	xkbKeysymToUTF32       func(keysym uint32) uint32
	xkbStateUpdateMask     func(state uintptr, depressed, latched, locked, layoutDep, layoutLat, layoutLocked uint32) uint32
	xkbStateSerializeMods  func(state uintptr, components uint32) uint32
	xkbKeysymGetName       func(keysym uint32, buffer []byte, size uint64) int32
)

// Load opens libxkbcommon and registers the symbols. Safe to call more than
// once; subsequent calls return the first result.
func Load() error {
	libOnce.Do(func() {
		handle, err := purego.Dlopen("libxkbcommon.so.0", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			libErr = fmt.Errorf("failed to load libxkbcommon: %w", err)
			return
		}

		purego.RegisterLibFunc(&xkbContextNew, handle, "xkb_context_new")
		purego.RegisterLibFunc(&xkbContextUnref, handle, "xkb_context_unref")
		purego.RegisterLibFunc(&xkbKeymapNewFromString, handle, "xkb_keymap_new_from_string")
		purego.RegisterLibFunc(&xkbKeymapUnref, handle, "xkb_keymap_unref")
		purego.RegisterLibFunc(&xkbStateNew, handle, "xkb_state_new")
		purego.RegisterLibFunc(&xkbStateUnref, handle, "xkb_state_unref")
		purego.RegisterLibFunc(&xkbStateKeyGetOneSym, handle, "xkb_state_key_get_one_sym")
		purego.RegisterLibFunc(&xkbKeysymToUTF32, handle, "xkb_keysym_to_utf32")
		purego.RegisterLibFunc(&xkbStateUpdateMask, handle, "xkb_state_update_mask")
		purego.RegisterLibFunc(&xkbStateSerializeMods, handle, "xkb_state_serialize_mods")
		purego.RegisterLibFunc(&xkbKeysymGetName, handle, "xkb_keysym_get_name")
	})
	return libErr
}

// Context owns the xkb compile context.
type Context struct {
	handle uintptr
}

// NewContext creates a compile context, loading the library if needed.
func NewContext() (*Context, error) {
	if err := Load(); err != nil {
		return nil, err
	}
	handle := xkbContextNew(contextNoFlags)
	if handle == 0 {
		return nil, fmt.Errorf("xkb_context_new failed")
	}
	return &Context{handle: handle}, nil
}

// Unref releases the context.
func (c *Context) Unref() {
	if c.handle != 0 {
		xkbContextUnref(c.handle)
		c.handle = 0
	}
}

// Keymap is a compiled keymap.
type Keymap struct {
	handle uintptr
}

// CompileKeymap builds a keymap from the text descriptor the compositor
// supplied (xkb_v1 format).
func (c *Context) CompileKeymap(descriptor string) (*Keymap, error) {
	handle := xkbKeymapNewFromString(c.handle, descriptor, KeymapFormatTextV1, keymapCompileNoFlags)
	if handle == 0 {
		return nil, fmt.Errorf("keymap descriptor did not compile")
	}
	return &Keymap{handle: handle}, nil
}

// Unref releases the keymap.
func (k *Keymap) Unref() {
	if k.handle != 0 {
		xkbKeymapUnref(k.handle)
		k.handle = 0
	}
}

// State tracks live keyboard state (modifiers, layout) against one keymap.
type State struct {
	handle uintptr
}

// NewState creates state for a compiled keymap.
func (k *Keymap) NewState() (*State, error) {
	handle := xkbStateNew(k.handle)
	if handle == 0 {
		return nil, fmt.Errorf("xkb_state_new failed")
	}
	return &State{handle: handle}, nil
}

// Unref releases the state.
func (s *State) Unref() {
	if s.handle != 0 {
		xkbStateUnref(s.handle)
		s.handle = 0
	}
}

// KeyGetOneSym resolves an xkb key code (evdev code + 8) to a keysym.
func (s *State) KeyGetOneSym(keyCode uint32) uint32 {
	return xkbStateKeyGetOneSym(s.handle, keyCode)
}

// UpdateMask feeds a compositor modifiers event into the state and returns
// the changed components.
func (s *State) UpdateMask(depressed, latched, locked, group uint32) uint32 {
	return xkbStateUpdateMask(s.handle, depressed, latched, locked, 0, 0, group)
}

// EffectiveMods returns the effective modifier bitmask.
func (s *State) EffectiveMods() uint32 {
	return xkbStateSerializeMods(s.handle, StateModsEffective)
}

// KeysymToUTF32 converts a keysym to its Unicode scalar value, or 0 when the
// keysym has no character representation.
func KeysymToUTF32(keysym uint32) uint32 {
	return xkbKeysymToUTF32(keysym)
}

// KeysymName returns the symbolic name of a keysym for diagnostics.
func KeysymName(keysym uint32) string {
	buf := make([]byte, 64)
	n := xkbKeysymGetName(keysym, buf, uint64(len(buf)))
	if n <= 0 {
		return "unknown"
	}
	if int(n) > len(buf) {
		n = int32(len(buf))
	}
	return string(buf[:n])
}
