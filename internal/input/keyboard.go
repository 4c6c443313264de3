package input

import (
	"encoding/json"

	"golang.org/x/sys/unix"

	"github.com/wayhost/wayhost/internal/logger"
	"github.com/wayhost/wayhost/internal/protocol"
	"github.com/wayhost/wayhost/internal/xkb"
)

// evdevOffset converts an evdev key code to an X11-style scan code.
const evdevOffset = 8

// keyEventMessage is the JSON payload sent on the key-event channel, in
// the GLFW toolkit encoding the framework's RawKeyboard expects.
type keyEventMessage struct {
	KeyCode             uint32 `json:"keyCode"`
	Keymap              string `json:"keymap"`
	ScanCode            uint32 `json:"scanCode"`
	Modifiers           uint32 `json:"modifiers"`
	Toolkit             string `json:"toolkit"`
	UnicodeScalarValues uint32 `json:"unicodeScalarValues"`
	Type                string `json:"type"`
}

// keyboardState owns the xkb handles for the seat keyboard. A new keymap
// announcement replaces the previous compiled keymap and state pair.
type keyboardState struct {
	ctx    *xkb.Context
	keymap *xkb.Keymap
	state  *xkb.State

	// Seams for tests; init() points them at the xkb-backed paths.
	resolve func(key uint32) (keysym, codepoint uint32)
	mods    func() uint32
	symName func(keysym uint32) string
}

func (s *keyboardState) init() {
	s.resolve = s.xkbResolve
	s.mods = s.xkbMods
	s.symName = xkb.KeysymName
}

func (s *keyboardState) xkbResolve(key uint32) (uint32, uint32) {
	if s.state == nil {
		return 0, 0
	}
	keysym := s.state.KeyGetOneSym(key)
	return keysym, xkb.KeysymToUTF32(keysym)
}

func (s *keyboardState) xkbMods() uint32 {
	if s.state == nil {
		return 0
	}
	return s.state.EffectiveMods()
}

// releaseMap drops the current keymap and state.
func (s *keyboardState) releaseMap() {
	if s.state != nil {
		s.state.Unref()
		s.state = nil
	}
	if s.keymap != nil {
		s.keymap.Unref()
		s.keymap = nil
	}
}

// KeyboardKeymap implements protocol.KeyboardListener. The descriptor
// arrives as an fd the compositor expects us to map and close.
func (n *Normalizer) KeyboardKeymap(format uint32, fd int, size uint32) {
	defer func() {
		if err := unix.Close(fd); err != nil {
			logger.Warn("Failed to close keymap fd", "error", err)
		}
	}()

	if format != protocol.KeymapFormatXkbV1 {
		logger.Warn("Unsupported keymap format", "format", format)
		return
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		logger.Error("Failed to map keymap", "error", err)
		return
	}
	// The descriptor is null-terminated.
	end := len(data)
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	descriptor := string(data[:end])
	if err := unix.Munmap(data); err != nil {
		logger.Warn("Failed to unmap keymap", "error", err)
	}

	if n.kb.ctx == nil {
		ctx, err := xkb.NewContext()
		if err != nil {
			logger.Error("Failed to create xkb context", "error", err)
			return
		}
		n.kb.ctx = ctx
	}

	// Compile the replacement first; a bad descriptor keeps the old keymap.
	keymap, err := n.kb.ctx.CompileKeymap(descriptor)
	if err != nil {
		logger.Error("Failed to compile keymap", "error", err)
		return
	}
	state, err := keymap.NewState()
	if err != nil {
		keymap.Unref()
		logger.Error("Failed to create xkb state", "error", err)
		return
	}
	n.kb.releaseMap()
	n.kb.keymap = keymap
	n.kb.state = state
	logger.Debug("Keymap compiled", "size", size)
}

// KeyboardEnter implements protocol.KeyboardListener.
func (n *Normalizer) KeyboardEnter(serial uint32) {
	logger.Debug("Keyboard focus gained")
}

// KeyboardLeave implements protocol.KeyboardListener.
func (n *Normalizer) KeyboardLeave(serial uint32) {
	logger.Debug("Keyboard focus lost")
}

// KeyboardKey implements protocol.KeyboardListener. Keys that resolve to
// no Unicode scalar are dropped; the framework cannot use them without a
// text value.
func (n *Normalizer) KeyboardKey(serial, time, key, state uint32) {
	keysym, codepoint := n.kb.resolve(key + evdevOffset)
	if codepoint == 0 {
		if keysym != 0 {
			logger.Debug("Key has no scalar value", "keysym", n.kb.symName(keysym))
		}
		return
	}

	eventType := "keyup"
	if state == protocol.KeyStatePressed {
		eventType = "keydown"
	}

	// keyCode is the raw evdev code; the keysym only feeds the scalar
	// value lookup above.
	payload, err := json.Marshal(keyEventMessage{
		KeyCode:             key,
		Keymap:              "linux",
		ScanCode:            key + evdevOffset,
		Modifiers:           n.kb.mods(),
		Toolkit:             "glfw",
		UnicodeScalarValues: codepoint,
		Type:                eventType,
	})
	if err != nil {
		logger.Error("Failed to encode key event", "error", err)
		return
	}
	n.sink.SubmitKeyEvent(payload)
}

// KeyboardModifiers implements protocol.KeyboardListener.
func (n *Normalizer) KeyboardModifiers(serial, depressed, latched, locked, group uint32) {
	if n.kb.state == nil {
		return
	}
	n.kb.state.UpdateMask(depressed, latched, locked, group)
}

// Release drops the keyboard's xkb handles. Called when the seat loses
// its keyboard capability or at shutdown.
func (n *Normalizer) Release() {
	n.kb.releaseMap()
	if n.kb.ctx != nil {
		n.kb.ctx.Unref()
		n.kb.ctx = nil
	}
}
