// Package wlclient manages the Wayland connection: socket setup, registry
// enumeration, and binding of the globals the embedder requires.
package wlclient

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/wlturbo/wl"

	"github.com/wayhost/wayhost/internal/logger"
	"github.com/wayhost/wayhost/internal/protocol"
)

// ErrConnect marks failures to reach the compositor socket.
var ErrConnect = errors.New("wayland connection failed")

// MissingGlobalError reports a required global the compositor never
// announced. Binding is all-or-nothing: the embedder refuses to start
// without its full capability set.
type MissingGlobalError struct {
	Interface string
}

func (e *MissingGlobalError) Error() string {
	return fmt.Sprintf("wayland: compositor does not advertise %s", e.Interface)
}

// Conn is an established Wayland connection with the embedder's globals
// bound. Device objects hang off the seat and are managed by the display
// runtime, not here.
type Conn struct {
	display  *wl.Display
	registry *wl.Registry
	ctx      *wl.Context

	compositor *protocol.Compositor
	wmBase     *protocol.WmBase
	shell      *protocol.Shell
	seat       *protocol.Seat
	shm        *protocol.Shm

	mu      sync.Mutex
	globals map[uint32]string
}

// Connect opens the Wayland socket named by WAYLAND_DISPLAY, enumerates
// the registry, and binds wl_compositor, a shell (xdg_wm_base preferred,
// wl_shell accepted), wl_seat, and wl_shm. Compositor and shell are
// mandatory; a missing seat only means no input.
func Connect() (*Conn, error) {
	display, err := wl.Connect("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	conn := &Conn{
		display: display,
		ctx:     display.Context(),
		globals: make(map[uint32]string),
	}

	registry := display.GetRegistry()
	conn.registry = registry

	// Listener must be in place before the roundtrip announces globals.
	registry.AddGlobalHandler(conn)
	registry.AddGlobalRemoveHandler(conn)

	if err := display.Roundtrip(); err != nil {
		return nil, fmt.Errorf("failed to enumerate globals: %w", err)
	}

	if conn.compositor == nil {
		return nil, &MissingGlobalError{Interface: protocol.CompositorInterface}
	}
	if conn.wmBase == nil && conn.shell == nil {
		return nil, &MissingGlobalError{Interface: protocol.WmBaseInterface}
	}
	if conn.seat == nil {
		logger.Warn("Compositor announced no seat, input disabled")
	}

	return conn, nil
}

// HandleRegistryGlobal implements wl.RegistryGlobalHandler.
func (c *Conn) HandleRegistryGlobal(event wl.RegistryGlobalEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.globals[event.Name] = event.Interface

	// Core globals bind once during the handshake roundtrip; later
	// announcements of the same interface are ignored.
	switch event.Interface {
	case protocol.CompositorInterface:
		if c.compositor != nil {
			return
		}
		compositor := protocol.NewCompositor(c.ctx)
		if c.bind(event, compositor) == nil {
			c.compositor = compositor
		}

	case protocol.WmBaseInterface:
		if c.wmBase != nil {
			return
		}
		wmBase := protocol.NewWmBase(c.ctx)
		if c.bind(event, wmBase) == nil {
			c.wmBase = wmBase
		}

	case protocol.ShellInterface:
		if c.shell != nil {
			return
		}
		shell := protocol.NewShell(c.ctx)
		if c.bind(event, shell) == nil {
			c.shell = shell
		}

	case protocol.SeatInterface:
		if c.seat != nil {
			return
		}
		seat := protocol.NewSeat(c.ctx)
		if c.bind(event, seat) == nil {
			c.seat = seat
		}

	case protocol.ShmInterface:
		if c.shm != nil {
			return
		}
		shm := protocol.NewShm(c.ctx)
		if c.bind(event, shm) == nil {
			c.shm = shm
		}
	}
}

// bind attaches a proxy to an announced global. Held under c.mu.
func (c *Conn) bind(event wl.RegistryGlobalEvent, proxy wl.Proxy) error {
	id, err := c.registry.BindID(event.Name, event.Interface, event.Version)
	if err != nil {
		logger.Error("Failed to bind global", "interface", event.Interface, "error", err)
		return err
	}
	proxy.SetID(id)
	c.ctx.Register(proxy)
	return nil
}

// HandleRegistryGlobalRemove implements wl.RegistryGlobalRemoveHandler.
func (c *Conn) HandleRegistryGlobalRemove(event wl.RegistryGlobalRemoveEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.globals, event.Name)
}

// Compositor returns the bound surface factory.
func (c *Conn) Compositor() *protocol.Compositor {
	return c.compositor
}

// WmBase returns the xdg shell, or nil when the compositor only offers
// the legacy shell.
func (c *Conn) WmBase() *protocol.WmBase {
	return c.wmBase
}

// Shell returns the legacy shell, or nil.
func (c *Conn) Shell() *protocol.Shell {
	return c.shell
}

// Seat returns the input seat, or nil when the compositor has none.
func (c *Conn) Seat() *protocol.Seat {
	return c.seat
}

// Shm returns the shared-memory global, or nil.
func (c *Conn) Shm() *protocol.Shm {
	return c.shm
}

// Display returns the underlying display connection.
func (c *Conn) Display() *wl.Display {
	return c.display
}

// Context returns the protocol object registry.
func (c *Conn) Context() *wl.Context {
	return c.ctx
}

// Dispatch processes pending compositor events, blocking until at least
// one batch arrives.
func (c *Conn) Dispatch() error {
	return c.display.Dispatch()
}

// Roundtrip flushes requests and waits until the compositor has
// processed them.
func (c *Conn) Roundtrip() error {
	return c.display.Roundtrip()
}

// Close shuts the connection down.
func (c *Conn) Close() error {
	if c.ctx != nil {
		return c.ctx.Close()
	}
	return nil
}
