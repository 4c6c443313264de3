package engine

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// Responder sends the reply to one platform message. Respond consumes
// the response handle; a second call is an error, not a second send.
type Responder interface {
	Respond(data []byte) error
}

type responder struct {
	engine *Engine
	handle uintptr

	mu   sync.Mutex
	used bool
}

func newResponder(e *Engine, handle uintptr) *responder {
	return &responder{engine: e, handle: handle}
}

// Respond sends data back through the response handle. A nil or empty
// data is the "no result" reply the framework maps to a null future.
func (r *responder) Respond(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return fmt.Errorf("engine: response handle already consumed")
	}
	r.used = true

	if r.handle == 0 {
		// Sender did not ask for a reply.
		return nil
	}

	var dataPtr uintptr
	if len(data) > 0 {
		dataPtr = uintptr(unsafe.Pointer(&data[0]))
	}
	result := flutterEngineSendPlatformMessageResponse(r.engine.handle, r.handle, dataPtr, uintptr(len(data)))
	runtime.KeepAlive(data)
	if result != resultSuccess {
		return resultError("FlutterEngineSendPlatformMessageResponse", result)
	}
	return nil
}
