// Package egl manages the on-screen and resource-sharing EGL contexts the
// engine renders through. libEGL is loaded through purego at startup.
package egl

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// EGL constants (eglplatform.h / egl.h).
const (
	False = 0
	True  = 1

	DefaultDisplay = 0
	NoDisplay      = 0
	NoContext      = 0
	NoSurface      = 0

	OpenGLESAPI = 0x30A0

	RenderableType = 0x3040
	OpenGLES2Bit   = 0x0004
	SurfaceType    = 0x3033
	WindowBit      = 0x0004
	RedSize        = 0x3024
	GreenSize      = 0x3023
	BlueSize       = 0x3022
	AlphaSize      = 0x3021
	DepthSize      = 0x3025
	StencilSize    = 0x3026
	None           = 0x3038

	ContextClientVersion = 0x3098
)

// EGL error codes with their symbolic names, for diagnostics only; the
// embedder never interprets them.
var errorNames = map[int32]string{
	0x3000: "EGL_SUCCESS",
	0x3001: "EGL_NOT_INITIALIZED",
	0x3002: "EGL_BAD_ACCESS",
	0x3003: "EGL_BAD_ALLOC",
	0x3004: "EGL_BAD_ATTRIBUTE",
	0x3005: "EGL_BAD_CONFIG",
	0x3006: "EGL_BAD_CONTEXT",
	0x3007: "EGL_BAD_CURRENT_SURFACE",
	0x3008: "EGL_BAD_DISPLAY",
	0x3009: "EGL_BAD_MATCH",
	0x300A: "EGL_BAD_NATIVE_PIXMAP",
	0x300B: "EGL_BAD_NATIVE_WINDOW",
	0x300C: "EGL_BAD_PARAMETER",
	0x300D: "EGL_BAD_SURFACE",
	0x300E: "EGL_CONTEXT_LOST",
}

var (
	libOnce sync.Once
	libErr  error

	eglBindAPI             func(api uint32) uint32
	eglGetDisplay          func(nativeDisplay uintptr) uintptr
	eglInitialize          func(display uintptr, major, minor *int32) uint32
	eglChooseConfig        func(display uintptr, attribs *int32, configs *uintptr, configSize int32, numConfig *int32) uint32
	eglCreateWindowSurface func(display, config, nativeWindow uintptr, attribs *int32) uintptr
	eglCreateContext       func(display, config, shareContext uintptr, attribs *int32) uintptr
	eglMakeCurrent         func(display, draw, read, context uintptr) uint32
	eglSwapBuffers         func(display, surface uintptr) uint32
	eglDestroyContext      func(display, context uintptr) uint32
	eglDestroySurface      func(display, surface uintptr) uint32
	eglTerminate           func(display uintptr) uint32
	eglGetError            func() int32
)

// Load opens libEGL and registers the symbols. Safe to call more than once.
func Load() error {
	libOnce.Do(func() {
		handle, err := purego.Dlopen("libEGL.so.1", purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			libErr = fmt.Errorf("failed to load libEGL: %w", err)
			return
		}

		purego.RegisterLibFunc(&eglBindAPI, handle, "eglBindAPI")
		purego.RegisterLibFunc(&eglGetDisplay, handle, "eglGetDisplay")
		purego.RegisterLibFunc(&eglInitialize, handle, "eglInitialize")
		purego.RegisterLibFunc(&eglChooseConfig, handle, "eglChooseConfig")
		purego.RegisterLibFunc(&eglCreateWindowSurface, handle, "eglCreateWindowSurface")
		purego.RegisterLibFunc(&eglCreateContext, handle, "eglCreateContext")
		purego.RegisterLibFunc(&eglMakeCurrent, handle, "eglMakeCurrent")
		purego.RegisterLibFunc(&eglSwapBuffers, handle, "eglSwapBuffers")
		purego.RegisterLibFunc(&eglDestroyContext, handle, "eglDestroyContext")
		purego.RegisterLibFunc(&eglDestroySurface, handle, "eglDestroySurface")
		purego.RegisterLibFunc(&eglTerminate, handle, "eglTerminate")
		purego.RegisterLibFunc(&eglGetError, handle, "eglGetError")
	})
	return libErr
}
