package protocol

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/wayhost/wayhost/internal/logger"
)

// ShellInterface is the legacy wl_shell global, used when the compositor
// does not offer xdg_wm_base.
const ShellInterface = "wl_shell"

// Shell is the legacy shell global (wl_shell).
type Shell struct {
	wl.BaseProxy
}

// NewShell creates an unbound shell proxy.
func NewShell(ctx *wl.Context) *Shell {
	s := &Shell{}
	s.SetContext(ctx)
	return s
}

// GetShellSurface wraps a surface in a shell surface role.
func (s *Shell) GetShellSurface(surface *Surface) (*ShellSurface, error) {
	ss := &ShellSurface{}
	ss.SetContext(s.Context())
	ss.SetID(s.Context().AllocateID())
	s.Context().Register(ss)

	// Opcode 0: get_shell_surface
	const opcode = 0
	if err := s.Context().SendRequest(s, opcode, ss, surface); err != nil {
		s.Context().Unregister(ss)
		return nil, err
	}
	return ss, nil
}

// Dispatch handles incoming events (the shell global has none).
func (s *Shell) Dispatch(_ *wl.Event) {}

// ShellSurface is a toplevel window role under the legacy shell.
type ShellSurface struct {
	wl.BaseProxy
}

// Pong answers a compositor liveness ping.
func (ss *ShellSurface) Pong(serial uint32) error {
	// Opcode 0: pong
	const opcode = 0
	return ss.Context().SendRequest(ss, opcode, serial)
}

// SetToplevel maps the surface as a toplevel window.
func (ss *ShellSurface) SetToplevel() error {
	// Opcode 3: set_toplevel
	const opcode = 3
	return ss.Context().SendRequest(ss, opcode)
}

// SetTitle sets the window title.
func (ss *ShellSurface) SetTitle(title string) error {
	// Opcode 8: set_title
	const opcode = 8
	return ss.Context().SendRequest(ss, opcode, title)
}

// Dispatch handles shell surface events. Pings must be answered or the
// compositor marks the client unresponsive.
func (ss *ShellSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // ping
		serial := event.Uint32()
		if err := ss.Pong(serial); err != nil {
			logger.Error("Failed to answer shell ping", "error", err)
		}
	case 1: // configure
		_ = event.Uint32() // edges
		width := event.Int32()
		height := event.Int32()
		logger.Debug("Shell configure ignored", "width", width, "height", height)
	case 2: // popup_done
	}
}
