package protocol

import (
	"github.com/bnema/wlturbo/wl"

	"github.com/wayhost/wayhost/internal/logger"
)

// WmBaseInterface is the xdg-shell global, preferred over wl_shell when
// both are announced.
const WmBaseInterface = "xdg_wm_base"

// WmBase is the xdg-shell global (xdg_wm_base).
type WmBase struct {
	wl.BaseProxy
}

// NewWmBase creates an unbound wm base proxy.
func NewWmBase(ctx *wl.Context) *WmBase {
	w := &WmBase{}
	w.SetContext(ctx)
	return w
}

// GetXdgSurface wraps a wl_surface in an xdg_surface.
func (w *WmBase) GetXdgSurface(surface *Surface) (*XdgSurface, error) {
	xs := &XdgSurface{}
	xs.SetContext(w.Context())
	xs.SetID(w.Context().AllocateID())
	w.Context().Register(xs)

	// Opcode 2: get_xdg_surface
	const opcode = 2
	if err := w.Context().SendRequest(w, opcode, xs, surface); err != nil {
		w.Context().Unregister(xs)
		return nil, err
	}
	return xs, nil
}

// Pong answers a compositor liveness ping.
func (w *WmBase) Pong(serial uint32) error {
	// Opcode 3: pong
	const opcode = 3
	return w.Context().SendRequest(w, opcode, serial)
}

// Dispatch handles wm base events.
func (w *WmBase) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // ping
		serial := event.Uint32()
		if err := w.Pong(serial); err != nil {
			logger.Error("Failed to answer xdg ping", "error", err)
		}
	}
}

// XdgSurface is the xdg role wrapper around a wl_surface.
type XdgSurface struct {
	wl.BaseProxy
}

// GetToplevel assigns the toplevel role.
func (xs *XdgSurface) GetToplevel() (*Toplevel, error) {
	t := &Toplevel{}
	t.SetContext(xs.Context())
	t.SetID(xs.Context().AllocateID())
	xs.Context().Register(t)

	// Opcode 1: get_toplevel
	const opcode = 1
	if err := xs.Context().SendRequest(xs, opcode, t); err != nil {
		xs.Context().Unregister(t)
		return nil, err
	}
	return t, nil
}

// AckConfigure acknowledges a configure sequence.
func (xs *XdgSurface) AckConfigure(serial uint32) error {
	// Opcode 4: ack_configure
	const opcode = 4
	return xs.Context().SendRequest(xs, opcode, serial)
}

// Dispatch handles xdg surface events. Every configure must be acked
// before the next commit.
func (xs *XdgSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		serial := event.Uint32()
		if err := xs.AckConfigure(serial); err != nil {
			logger.Error("Failed to ack xdg configure", "error", err)
		}
	}
}

// Toplevel is an xdg toplevel window.
type Toplevel struct {
	wl.BaseProxy

	// CloseHandler runs when the compositor asks the window to close.
	CloseHandler func()
}

// SetTitle sets the window title.
func (t *Toplevel) SetTitle(title string) error {
	// Opcode 2: set_title
	const opcode = 2
	return t.Context().SendRequest(t, opcode, title)
}

// SetAppID sets the application identifier used for window grouping.
func (t *Toplevel) SetAppID(appID string) error {
	// Opcode 3: set_app_id
	const opcode = 3
	return t.Context().SendRequest(t, opcode, appID)
}

// Dispatch handles toplevel events.
func (t *Toplevel) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		width := event.Int32()
		height := event.Int32()
		logger.Debug("Toplevel configure", "width", width, "height", height)
	case 1: // close
		if t.CloseHandler != nil {
			t.CloseHandler()
		}
	}
}
