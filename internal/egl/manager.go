package egl

import (
	"fmt"

	"github.com/wayhost/wayhost/internal/logger"
)

// InitError reports a failed step of context initialization. Any step
// failing is fatal; there is no reinitialization path. Steps that fail
// inside EGL carry the eglGetError code; steps that fail before EGL is
// involved carry the underlying error instead.
type InitError struct {
	Step string
	Code int32
	Err  error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("egl: %s failed: %v", e.Step, e.Err)
	}
	if name, ok := errorNames[e.Code]; ok {
		return fmt.Sprintf("egl: %s failed: %s (%#x)", e.Step, name, e.Code)
	}
	return fmt.Sprintf("egl: %s failed: unknown error (%#x)", e.Step, e.Code)
}

func (e *InitError) Unwrap() error { return e.Err }

// Manager owns the EGL display plus the primary (on-screen) and resource
// (sharing) contexts. The five render operations are invoked by the engine,
// possibly from its own threads; the engine guarantees the two contexts are
// never current on two threads at once.
type Manager struct {
	display  uintptr
	surface  uintptr
	context  uintptr
	resource uintptr
	valid    bool
}

// NewManager initializes EGL against the given native display and window
// handles: binds the ES API, initializes the display (1.4+ or 2.x), chooses
// an 8-8-8-8 window config with no depth/stencil, creates the window
// surface, the primary ES2 context and the resource context sharing the
// primary's object namespace.
func NewManager(nativeDisplay, nativeWindow uintptr) (*Manager, error) {
	if err := Load(); err != nil {
		return nil, &InitError{Step: "library load", Err: err}
	}

	if eglBindAPI(OpenGLESAPI) != True {
		return nil, initError("bind ES API")
	}

	display := eglGetDisplay(nativeDisplay)
	if display == NoDisplay {
		return nil, initError("get display")
	}

	var major, minor int32
	if eglInitialize(display, &major, &minor) != True {
		return nil, initError("initialize display")
	}
	if !(major == 1 && minor >= 4) && major < 2 {
		logger.Error("EGL version too old", "major", major, "minor", minor)
		return nil, &InitError{
			Step: "version check",
			Err:  fmt.Errorf("EGL %d.%d reported, need 1.4 or newer", major, minor),
		}
	}

	configAttribs := []int32{
		RenderableType, OpenGLES2Bit,
		SurfaceType, WindowBit,
		RedSize, 8,
		GreenSize, 8,
		BlueSize, 8,
		AlphaSize, 8,
		DepthSize, 0,
		StencilSize, 0,
		None,
	}

	var config uintptr
	var configCount int32
	if eglChooseConfig(display, &configAttribs[0], &config, 1, &configCount) != True {
		return nil, initError("choose config")
	}
	if configCount == 0 || config == 0 {
		return nil, initError("no matching config")
	}

	surfaceAttribs := []int32{None}
	surface := eglCreateWindowSurface(display, config, nativeWindow, &surfaceAttribs[0])
	if surface == NoSurface {
		return nil, initError("create window surface")
	}

	contextAttribs := []int32{ContextClientVersion, 2, None}
	context := eglCreateContext(display, config, NoContext, &contextAttribs[0])
	if context == NoContext {
		return nil, initError("create onscreen context")
	}

	resource := eglCreateContext(display, config, context, &contextAttribs[0])
	if resource == NoContext {
		return nil, initError("create resource context")
	}

	return &Manager{
		display:  display,
		surface:  surface,
		context:  context,
		resource: resource,
		valid:    true,
	}, nil
}

func initError(step string) *InitError {
	return &InitError{Step: step, Code: eglGetError()}
}

// MakeCurrent binds the primary context to the window surface.
func (m *Manager) MakeCurrent() bool {
	if !m.valid {
		logger.Error("MakeCurrent on invalid context manager")
		return false
	}
	if eglMakeCurrent(m.display, m.surface, m.surface, m.context) != True {
		m.logLastError("make onscreen context current")
		return false
	}
	return true
}

// ClearCurrent unbinds whatever context is current. Calling it with nothing
// bound is a no-op that still succeeds.
func (m *Manager) ClearCurrent() bool {
	if !m.valid {
		logger.Error("ClearCurrent on invalid context manager")
		return false
	}
	if eglMakeCurrent(m.display, NoSurface, NoSurface, NoContext) != True {
		m.logLastError("clear context")
		return false
	}
	return true
}

// Present swaps the window surface buffers.
func (m *Manager) Present() bool {
	if !m.valid {
		logger.Error("Present on invalid context manager")
		return false
	}
	if eglSwapBuffers(m.display, m.surface) != True {
		m.logLastError("swap buffers")
		return false
	}
	return true
}

// MakeResourceCurrent binds the resource context with no surface, for
// background resource upload from the engine's worker threads.
func (m *Manager) MakeResourceCurrent() bool {
	if !m.valid {
		logger.Error("MakeResourceCurrent on invalid context manager")
		return false
	}
	if eglMakeCurrent(m.display, NoSurface, NoSurface, m.resource) != True {
		m.logLastError("make resource context current")
		return false
	}
	return true
}

// FramebufferID returns the onscreen framebuffer object. Window surfaces
// render to FBO 0.
func (m *Manager) FramebufferID() uint32 {
	if !m.valid {
		logger.Error("FramebufferID on invalid context manager")
		return 999
	}
	return 0
}

// Destroy tears down in the reverse of creation order: resource context,
// primary context, surface, display. A failed step is logged and the
// remaining steps still run.
func (m *Manager) Destroy() {
	if !m.valid {
		return
	}
	m.valid = false

	if m.resource != NoContext {
		if eglDestroyContext(m.display, m.resource) != True {
			m.logLastError("destroy resource context")
		}
		m.resource = NoContext
	}
	if m.context != NoContext {
		if eglDestroyContext(m.display, m.context) != True {
			m.logLastError("destroy onscreen context")
		}
		m.context = NoContext
	}
	if m.surface != NoSurface {
		if eglDestroySurface(m.display, m.surface) != True {
			m.logLastError("destroy surface")
		}
		m.surface = NoSurface
	}
	if m.display != NoDisplay {
		if eglTerminate(m.display) != True {
			m.logLastError("terminate display")
		}
		m.display = NoDisplay
	}
}

func (m *Manager) logLastError(op string) {
	code := eglGetError()
	name, ok := errorNames[code]
	if !ok {
		name = "unknown"
	}
	logger.Error("EGL error", "op", op, "error", name, "code", fmt.Sprintf("%#x", code))
}
