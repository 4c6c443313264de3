// Package protocol implements the typed client-side proxies for the core
// and xdg-shell Wayland objects the embedder binds: surface factory, shell
// variants, seat and input devices, shared memory.
package protocol

import (
	"github.com/bnema/wlturbo/wl"
)

// Core interface names
const (
	CompositorInterface = "wl_compositor"
	ShmInterface        = "wl_shm"
)

// Compositor is the surface factory (wl_compositor).
type Compositor struct {
	wl.BaseProxy
}

// NewCompositor creates an unbound compositor proxy. Bind it through the
// registry before use.
func NewCompositor(ctx *wl.Context) *Compositor {
	c := &Compositor{}
	c.SetContext(ctx)
	return c
}

// CreateSurface creates a new wl_surface.
func (c *Compositor) CreateSurface() (*Surface, error) {
	s := NewSurface(c.Context())

	// Opcode 0: create_surface
	const opcode = 0
	if err := c.Context().SendRequest(c, opcode, s); err != nil {
		c.Context().Unregister(s)
		return nil, err
	}
	return s, nil
}

// Dispatch handles incoming events (the compositor has none).
func (c *Compositor) Dispatch(_ *wl.Event) {}

// Surface is a drawable wl_surface owned by the embedder.
type Surface struct {
	wl.BaseProxy
}

// NewSurface creates and registers a surface proxy.
func NewSurface(ctx *wl.Context) *Surface {
	s := &Surface{}
	s.SetContext(ctx)
	s.SetID(ctx.AllocateID())
	ctx.Register(s)
	return s
}

// Commit applies pending surface state.
func (s *Surface) Commit() error {
	// Opcode 6: commit
	const opcode = 6
	return s.Context().SendRequest(s, opcode)
}

// Destroy destroys the surface.
func (s *Surface) Destroy() error {
	// Opcode 0: destroy
	const opcode = 0
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

// Native returns the handle handed to EGL window-surface creation.
// This is the surface's wire ID, not a wl_egl_window; a driver-backed
// deployment needs a libwayland-egl binding to wrap the surface before
// eglCreateWindowSurface will accept it. See DESIGN.md.
func (s *Surface) Native() uintptr {
	return uintptr(s.ID())
}

// Dispatch handles surface events. Output enter/leave carry no state the
// embedder tracks.
func (s *Surface) Dispatch(_ *wl.Event) {}

// Shm is the shared-memory global (wl_shm). The embedder binds it so the
// compositor can announce buffer formats, but renders through EGL and never
// allocates pools.
type Shm struct {
	wl.BaseProxy

	formats []uint32
}

// NewShm creates an unbound shm proxy.
func NewShm(ctx *wl.Context) *Shm {
	s := &Shm{}
	s.SetContext(ctx)
	return s
}

// Formats lists the pixel formats the compositor announced.
func (s *Shm) Formats() []uint32 {
	return s.formats
}

// Dispatch handles shm events.
func (s *Shm) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // format
		s.formats = append(s.formats, event.Uint32())
	}
}
