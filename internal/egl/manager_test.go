package egl

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeEGL drives the manager against a recorded function table.
type fakeEGL struct {
	major, minor int32

	calls           []string
	currentDraw     uintptr
	currentRead     uintptr
	currentContext  uintptr
	surfacesCreated int
	lastError       int32
}

func installFake(t *testing.T, major, minor int32) *fakeEGL {
	t.Helper()

	f := &fakeEGL{major: major, minor: minor, lastError: 0x3000}

	// Short-circuit Load() and install the fake function table.
	libOnce.Do(func() {})
	libErr = nil

	var nextHandle uintptr = 0x1000

	eglBindAPI = func(api uint32) uint32 {
		f.calls = append(f.calls, "bindAPI")
		return True
	}
	eglGetDisplay = func(native uintptr) uintptr {
		f.calls = append(f.calls, "getDisplay")
		nextHandle++
		return nextHandle
	}
	eglInitialize = func(display uintptr, major, minor *int32) uint32 {
		f.calls = append(f.calls, "initialize")
		*major = f.major
		*minor = f.minor
		return True
	}
	eglChooseConfig = func(display uintptr, attribs *int32, configs *uintptr, size int32, num *int32) uint32 {
		f.calls = append(f.calls, "chooseConfig")
		nextHandle++
		*configs = nextHandle
		*num = 1
		return True
	}
	eglCreateWindowSurface = func(display, config, window uintptr, attribs *int32) uintptr {
		f.calls = append(f.calls, "createWindowSurface")
		f.surfacesCreated++
		nextHandle++
		return nextHandle
	}
	eglCreateContext = func(display, config, share uintptr, attribs *int32) uintptr {
		f.calls = append(f.calls, "createContext")
		nextHandle++
		return nextHandle
	}
	eglMakeCurrent = func(display, draw, read, context uintptr) uint32 {
		f.calls = append(f.calls, "makeCurrent")
		f.currentDraw, f.currentRead, f.currentContext = draw, read, context
		return True
	}
	eglSwapBuffers = func(display, surface uintptr) uint32 {
		f.calls = append(f.calls, "swapBuffers")
		return True
	}
	eglDestroyContext = func(display, context uintptr) uint32 {
		f.calls = append(f.calls, "destroyContext")
		return True
	}
	eglDestroySurface = func(display, surface uintptr) uint32 {
		f.calls = append(f.calls, "destroySurface")
		return True
	}
	eglTerminate = func(display uintptr) uint32 {
		f.calls = append(f.calls, "terminate")
		return True
	}
	eglGetError = func() int32 { return f.lastError }

	return f
}

func TestInitVersionGate(t *testing.T) {
	tests := []struct {
		name         string
		major, minor int32
		wantErr      bool
	}{
		{name: "1.4 accepted", major: 1, minor: 4},
		{name: "1.5 accepted", major: 1, minor: 5},
		{name: "2.0 accepted", major: 2, minor: 0},
		{name: "1.3 rejected", major: 1, minor: 3, wantErr: true},
		{name: "0.x rejected", major: 0, minor: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := installFake(t, tt.major, tt.minor)

			m, err := NewManager(DefaultDisplay, 0x42)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewManager succeeded, want InitError")
				}
				if _, ok := err.(*InitError); !ok {
					t.Errorf("error type = %T, want *InitError", err)
				}
				// The message names the rejected version, not an EGL
				// error code (eglGetError has nothing to report here).
				version := fmt.Sprintf("%d.%d", tt.major, tt.minor)
				if !strings.Contains(err.Error(), version) {
					t.Errorf("error %q does not name rejected version %s", err, version)
				}
				// Rejection happens before any window surface exists.
				if f.surfacesCreated != 0 {
					t.Errorf("%d surfaces created before version rejection", f.surfacesCreated)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewManager() error = %v", err)
			}
			if m == nil || !m.valid {
				t.Error("manager not valid after successful init")
			}
		})
	}
}

func TestInitReportsLoadFailure(t *testing.T) {
	installFake(t, 1, 4)
	loadErr := errors.New("libEGL.so.1: cannot open shared object file")
	libErr = loadErr
	defer func() { libErr = nil }()

	_, err := NewManager(DefaultDisplay, 0x42)
	var ie *InitError
	if !errors.As(err, &ie) {
		t.Fatalf("error type = %T, want *InitError", err)
	}
	if !errors.Is(err, loadErr) {
		t.Error("load failure does not wrap the dlopen error")
	}
	if !strings.Contains(err.Error(), "cannot open shared object") {
		t.Errorf("error %q hides the dlopen failure", err)
	}
}

func TestInitCreatesResourceContextSharingPrimary(t *testing.T) {
	var shares []uintptr
	f := installFake(t, 1, 4)
	orig := eglCreateContext
	eglCreateContext = func(display, config, share uintptr, attribs *int32) uintptr {
		shares = append(shares, share)
		return orig(display, config, share, attribs)
	}

	if _, err := NewManager(DefaultDisplay, 0x42); err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if len(shares) != 2 {
		t.Fatalf("created %d contexts, want 2", len(shares))
	}
	if shares[0] != NoContext {
		t.Error("primary context created with a share group")
	}
	if shares[1] == NoContext {
		t.Error("resource context does not share the primary context")
	}
	_ = f
}

func TestClearCurrentIdempotent(t *testing.T) {
	f := installFake(t, 1, 4)
	m, err := NewManager(DefaultDisplay, 0x42)
	if err != nil {
		t.Fatal(err)
	}

	if !m.ClearCurrent() {
		t.Fatal("first ClearCurrent failed")
	}
	draw, read, ctx := f.currentDraw, f.currentRead, f.currentContext

	if !m.ClearCurrent() {
		t.Fatal("second ClearCurrent failed")
	}
	if f.currentDraw != draw || f.currentRead != read || f.currentContext != ctx {
		t.Error("second ClearCurrent changed bound state")
	}
	if ctx != NoContext || draw != NoSurface {
		t.Errorf("ClearCurrent left context %#x surface %#x bound", ctx, draw)
	}
}

func TestMakeResourceCurrentBindsNoSurface(t *testing.T) {
	f := installFake(t, 1, 4)
	m, err := NewManager(DefaultDisplay, 0x42)
	if err != nil {
		t.Fatal(err)
	}

	if !m.MakeResourceCurrent() {
		t.Fatal("MakeResourceCurrent failed")
	}
	if f.currentDraw != NoSurface || f.currentRead != NoSurface {
		t.Error("resource binding attached a surface")
	}
	if f.currentContext != m.resource {
		t.Error("resource binding did not use the resource context")
	}
	if f.currentContext == m.context {
		t.Error("resource binding used the primary context")
	}
}

func TestFramebufferID(t *testing.T) {
	installFake(t, 1, 4)
	m, err := NewManager(DefaultDisplay, 0x42)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.FramebufferID(); got != 0 {
		t.Errorf("FramebufferID() = %d, want 0", got)
	}

	m.Destroy()
	if got := m.FramebufferID(); got != 999 {
		t.Errorf("FramebufferID() after destroy = %d, want 999 sentinel", got)
	}
}

func TestDestroyOrder(t *testing.T) {
	f := installFake(t, 1, 4)
	m, err := NewManager(DefaultDisplay, 0x42)
	if err != nil {
		t.Fatal(err)
	}

	f.calls = nil
	m.Destroy()

	want := []string{"destroyContext", "destroyContext", "destroySurface", "terminate"}
	if len(f.calls) != len(want) {
		t.Fatalf("teardown calls = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("teardown step %d = %s, want %s", i, f.calls[i], want[i])
		}
	}

	// Double destroy is a no-op.
	f.calls = nil
	m.Destroy()
	if len(f.calls) != 0 {
		t.Errorf("second Destroy issued calls: %v", f.calls)
	}
}

func TestOperationsFailAfterDestroy(t *testing.T) {
	installFake(t, 1, 4)
	m, err := NewManager(DefaultDisplay, 0x42)
	if err != nil {
		t.Fatal(err)
	}
	m.Destroy()

	if m.MakeCurrent() || m.ClearCurrent() || m.Present() || m.MakeResourceCurrent() {
		t.Error("render operations succeeded on destroyed manager")
	}
}
