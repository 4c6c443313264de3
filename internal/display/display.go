// Package display runs the embedder: it owns the window surface, the
// graphics contexts, the engine instance, and the dispatch loop that
// pumps compositor events and due engine tasks.
package display

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/wayhost/wayhost/internal/config"
	"github.com/wayhost/wayhost/internal/egl"
	"github.com/wayhost/wayhost/internal/engine"
	"github.com/wayhost/wayhost/internal/input"
	"github.com/wayhost/wayhost/internal/logger"
	"github.com/wayhost/wayhost/internal/platform"
	"github.com/wayhost/wayhost/internal/protocol"
	"github.com/wayhost/wayhost/internal/scheduler"
	"github.com/wayhost/wayhost/internal/wlclient"
)

// Runtime is one embedder instance: a Wayland window hosting a running
// engine. Create with New, drive with Run.
type Runtime struct {
	cfg *config.Config

	conn      *wlclient.Conn
	surface   *protocol.Surface
	xdgSurf   *protocol.XdgSurface
	toplevel  *protocol.Toplevel
	shellSurf *protocol.ShellSurface

	gfx        *egl.Manager
	eng        *engine.Engine
	sched      *scheduler.Scheduler
	dispatcher *platform.Dispatcher
	normalizer *input.Normalizer

	pointer  *protocol.Pointer
	keyboard *protocol.Keyboard
	touch    *protocol.Touch

	closing atomic.Bool
}

// New creates a runtime for the given configuration.
func New(cfg *config.Config) *Runtime {
	return &Runtime{cfg: cfg}
}

// Run connects, maps the window, boots the engine, and pumps events
// until ctx is cancelled or the compositor asks the window to close.
// The calling goroutine becomes the platform thread; it is locked to
// its OS thread for the engine's benefit.
func (r *Runtime) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	conn, err := wlclient.Connect()
	if err != nil {
		return err
	}
	r.conn = conn
	defer r.teardown()

	if err := r.createWindow(); err != nil {
		return err
	}

	gfx, err := egl.NewManager(egl.DefaultDisplay, r.surface.Native())
	if err != nil {
		return err
	}
	r.gfx = gfx

	r.dispatcher = platform.NewDispatcher()
	platform.RegisterCoreChannels(r.dispatcher)

	r.sched = scheduler.New(func(payload interface{}) {
		task, ok := payload.(engine.Task)
		if !ok {
			logger.Error("Scheduler payload is not an engine task")
			return
		}
		r.eng.RunTask(task)
	})

	eng, err := engine.Run(engine.Config{
		LibraryPath: r.cfg.Engine.LibraryPath,
		AssetsPath:  r.cfg.Engine.AssetsPath,
		ICUDataPath: r.cfg.Engine.ICUDataPath,
		Args:        r.cfg.Engine.Args,
	}, gfx, r.onPlatformMessage, func(task engine.Task, targetTimeNanos uint64) {
		r.sched.PostTask(targetTimeNanos, task)
	})
	if err != nil {
		return err
	}
	r.eng = eng

	r.normalizer = input.New(eng)
	if seat := conn.Seat(); seat != nil {
		seat.CapabilitiesHandler = r.onSeatCapabilities
	}

	if err := eng.SendWindowMetrics(uint32(r.cfg.Window.Width), uint32(r.cfg.Window.Height), 1.0); err != nil {
		return err
	}

	// Pick up queued seat capabilities before entering the loop.
	if err := conn.Roundtrip(); err != nil {
		return fmt.Errorf("post-startup roundtrip: %w", err)
	}

	logger.Info("Window mapped",
		"width", r.cfg.Window.Width,
		"height", r.cfg.Window.Height,
		"title", r.cfg.Window.Title)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	for !r.closing.Load() {
		if err := conn.Dispatch(); err != nil {
			if r.closing.Load() {
				break
			}
			return fmt.Errorf("wayland dispatch: %w", err)
		}
		// One pass per batch; every due task sees the same instant.
		r.sched.DrainDue(scheduler.Now())
	}
	return nil
}

// Stop asks the dispatch loop to exit. Safe from any goroutine.
func (r *Runtime) Stop() {
	if r.closing.Swap(true) {
		return
	}
	// Closing the connection unblocks a dispatch stuck in read.
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			logger.Warn("Failed to close connection", "error", err)
		}
	}
}

// createWindow builds the surface and negotiates a toplevel role,
// preferring xdg-shell over the legacy shell.
func (r *Runtime) createWindow() error {
	surface, err := r.conn.Compositor().CreateSurface()
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	r.surface = surface

	switch {
	case r.conn.WmBase() != nil:
		xdgSurf, err := r.conn.WmBase().GetXdgSurface(surface)
		if err != nil {
			return fmt.Errorf("get xdg surface: %w", err)
		}
		r.xdgSurf = xdgSurf

		toplevel, err := xdgSurf.GetToplevel()
		if err != nil {
			return fmt.Errorf("get toplevel: %w", err)
		}
		r.toplevel = toplevel
		toplevel.CloseHandler = r.Stop

		if err := toplevel.SetTitle(r.cfg.Window.Title); err != nil {
			return err
		}
		if err := toplevel.SetAppID(r.cfg.Window.AppID); err != nil {
			return err
		}

	case r.conn.Shell() != nil:
		shellSurf, err := r.conn.Shell().GetShellSurface(surface)
		if err != nil {
			return fmt.Errorf("get shell surface: %w", err)
		}
		r.shellSurf = shellSurf

		if err := shellSurf.SetToplevel(); err != nil {
			return err
		}
		if err := shellSurf.SetTitle(r.cfg.Window.Title); err != nil {
			return err
		}
	}

	if err := surface.Commit(); err != nil {
		return fmt.Errorf("commit surface: %w", err)
	}
	if err := r.conn.Roundtrip(); err != nil {
		return fmt.Errorf("map window: %w", err)
	}
	return nil
}

// onSeatCapabilities acquires and releases input devices as the
// compositor announces them. Runs on the dispatch goroutine.
func (r *Runtime) onSeatCapabilities(caps uint32) {
	seat := r.conn.Seat()

	hasPointer := caps&protocol.SeatCapabilityPointer != 0
	if hasPointer && r.pointer == nil {
		pointer, err := seat.GetPointer()
		if err != nil {
			logger.Error("Failed to acquire pointer", "error", err)
		} else {
			pointer.Listener = r.normalizer
			r.pointer = pointer
			logger.Debug("Pointer acquired")
		}
	} else if !hasPointer && r.pointer != nil {
		if err := r.pointer.Release(); err != nil {
			logger.Warn("Failed to release pointer", "error", err)
		}
		r.pointer = nil
	}

	hasKeyboard := caps&protocol.SeatCapabilityKeyboard != 0
	if hasKeyboard && r.keyboard == nil {
		keyboard, err := seat.GetKeyboard()
		if err != nil {
			logger.Error("Failed to acquire keyboard", "error", err)
		} else {
			keyboard.Listener = r.normalizer
			r.keyboard = keyboard
			logger.Debug("Keyboard acquired")
		}
	} else if !hasKeyboard && r.keyboard != nil {
		if err := r.keyboard.Release(); err != nil {
			logger.Warn("Failed to release keyboard", "error", err)
		}
		r.keyboard = nil
	}

	hasTouch := caps&protocol.SeatCapabilityTouch != 0
	if hasTouch && r.touch == nil {
		touch, err := seat.GetTouch()
		if err != nil {
			logger.Error("Failed to acquire touch", "error", err)
		} else {
			touch.Listener = r.normalizer
			r.touch = touch
			logger.Debug("Touch acquired")
		}
	} else if !hasTouch && r.touch != nil {
		if err := r.touch.Release(); err != nil {
			logger.Warn("Failed to release touch", "error", err)
		}
		r.touch = nil
	}
}

// onPlatformMessage routes engine messages through the channel
// dispatcher.
func (r *Runtime) onPlatformMessage(channel string, message []byte, reply engine.Responder) {
	r.dispatcher.Dispatch(channel, message, reply)
}

// teardown releases everything in the reverse of acquisition order.
// Failures are logged; later steps still run.
func (r *Runtime) teardown() {
	if r.eng != nil {
		if err := r.eng.Shutdown(); err != nil {
			logger.Warn("Engine shutdown failed", "error", err)
		}
		r.eng = nil
	}
	if r.gfx != nil {
		r.gfx.Destroy()
		r.gfx = nil
	}
	if r.normalizer != nil {
		r.normalizer.Release()
		r.normalizer = nil
	}
	if r.surface != nil {
		if err := r.surface.Destroy(); err != nil {
			logger.Warn("Surface destroy failed", "error", err)
		}
		r.surface = nil
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && !r.closing.Load() {
			logger.Warn("Connection close failed", "error", err)
		}
		r.conn = nil
	}
}
