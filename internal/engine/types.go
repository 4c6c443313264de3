// Package engine embeds the Flutter engine shared library: it loads
// FlutterEngineRun and friends through purego, exposes the renderer and
// task-runner callbacks the engine calls back into, and forwards input
// and platform messages.
package engine

// PointerPhase tags a pointer event with its position in the
// press/release lifecycle, matching FlutterPointerPhase.
type PointerPhase int32

const (
	PhaseCancel PointerPhase = iota
	PhaseUp
	PhaseDown
	PhaseMove
	PhaseAdd
	PhaseRemove
	PhaseHover
)

func (p PointerPhase) String() string {
	switch p {
	case PhaseCancel:
		return "cancel"
	case PhaseUp:
		return "up"
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseAdd:
		return "add"
	case PhaseRemove:
		return "remove"
	case PhaseHover:
		return "hover"
	}
	return "unknown"
}

// Task is an engine-posted unit of work. Runner and Task are opaque
// engine values; the embedder holds them until the deadline and hands
// them back through RunTask.
type Task struct {
	Runner uintptr
	Task   uint64
}
