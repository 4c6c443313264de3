package engine

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"

	"github.com/wayhost/wayhost/internal/logger"
)

// ABI version expected by FlutterEngineRun.
const abiVersion = 1

// FlutterEngineResult values.
const (
	resultSuccess               = 0
	resultInvalidLibraryVersion = 1
	resultInvalidArguments      = 2
	resultInternalInconsistency = 3
)

var resultNames = map[int32]string{
	resultSuccess:               "kSuccess",
	resultInvalidLibraryVersion: "kInvalidLibraryVersion",
	resultInvalidArguments:      "kInvalidArguments",
	resultInternalInconsistency: "kInternalInconsistency",
}

func resultError(op string, result int32) error {
	name, ok := resultNames[result]
	if !ok {
		name = "unknown"
	}
	return fmt.Errorf("engine: %s failed: %s (%d)", op, name, result)
}

// kOpenGL renderer type.
const rendererOpenGL = 0

// C struct mirrors. Field order and padding follow the embedder ABI;
// pointers travel as uintptr because the engine owns nothing we allocate.

type openGLRendererConfig struct {
	structSize          uintptr
	makeCurrent         uintptr
	clearCurrent        uintptr
	present             uintptr
	fboCallback         uintptr
	makeResourceCurrent uintptr
}

type rendererConfig struct {
	kind   int32
	_      [4]byte
	openGL openGLRendererConfig
}

type taskRunnerDescription struct {
	structSize              uintptr
	userData                uintptr
	runsTaskOnCurrentThread uintptr
	postTask                uintptr
	identifier              uintptr
}

type customTaskRunners struct {
	structSize         uintptr
	platformTaskRunner uintptr
	renderTaskRunner   uintptr
}

type projectArgs struct {
	structSize                          uintptr
	assetsPath                          uintptr
	mainPath                            uintptr
	packagesPath                        uintptr
	icuDataPath                         uintptr
	commandLineArgc                     int32
	_                                   [4]byte
	commandLineArgv                     uintptr
	platformMessageCallback             uintptr
	vmSnapshotData                      uintptr
	vmSnapshotDataSize                  uintptr
	vmSnapshotInstructions              uintptr
	vmSnapshotInstructionsSize          uintptr
	isolateSnapshotData                 uintptr
	isolateSnapshotDataSize             uintptr
	isolateSnapshotInstructions         uintptr
	isolateSnapshotInstructionsSize     uintptr
	rootIsolateCreateCallback           uintptr
	updateSemanticsNodeCallback         uintptr
	updateSemanticsCustomActionCallback uintptr
	persistentCachePath                 uintptr
	isPersistentCacheReadOnly           bool
	_                                   [7]byte
	vsyncCallback                       uintptr
	customDartEntrypoint                uintptr
	customTaskRunners                   uintptr
}

type windowMetricsEvent struct {
	structSize uintptr
	width      uintptr
	height     uintptr
	pixelRatio float64
}

type pointerEvent struct {
	structSize   uintptr
	phase        int32
	_            [4]byte
	timestamp    uintptr
	x            float64
	y            float64
	device       int32
	signalKind   int32
	scrollDeltaX float64
	scrollDeltaY float64
	deviceKind   int32
	_            [4]byte
	buttons      int64
}

type platformMessage struct {
	structSize     uintptr
	channel        uintptr
	message        uintptr
	messageSize    uintptr
	responseHandle uintptr
}

var (
	libOnce sync.Once
	libErr  error

	flutterEngineRun                         func(version uintptr, config, args, userData uintptr, engineOut *uintptr) int32
	flutterEngineShutdown                    func(engine uintptr) int32
	flutterEngineSendWindowMetricsEvent      func(engine uintptr, event uintptr) int32
	flutterEngineSendPointerEvent            func(engine uintptr, events uintptr, count uintptr) int32
	flutterEngineSendPlatformMessage         func(engine uintptr, message uintptr) int32
	flutterEngineSendPlatformMessageResponse func(engine uintptr, handle uintptr, data uintptr, dataLen uintptr) int32
	flutterEngineRunTask                     func(engine uintptr, task uintptr) int32
	flutterEngineGetCurrentTime              func() uint64
)

func load(path string) error {
	libOnce.Do(func() {
		handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_GLOBAL)
		if err != nil {
			libErr = fmt.Errorf("failed to load engine library: %w", err)
			return
		}

		purego.RegisterLibFunc(&flutterEngineRun, handle, "FlutterEngineRun")
		purego.RegisterLibFunc(&flutterEngineShutdown, handle, "FlutterEngineShutdown")
		purego.RegisterLibFunc(&flutterEngineSendWindowMetricsEvent, handle, "FlutterEngineSendWindowMetricsEvent")
		purego.RegisterLibFunc(&flutterEngineSendPointerEvent, handle, "FlutterEngineSendPointerEvent")
		purego.RegisterLibFunc(&flutterEngineSendPlatformMessage, handle, "FlutterEngineSendPlatformMessage")
		purego.RegisterLibFunc(&flutterEngineSendPlatformMessageResponse, handle, "FlutterEngineSendPlatformMessageResponse")
		purego.RegisterLibFunc(&flutterEngineRunTask, handle, "FlutterEngineRunTask")
		purego.RegisterLibFunc(&flutterEngineGetCurrentTime, handle, "FlutterEngineGetCurrentTime")
	})
	return libErr
}

// RenderDelegate is the graphics-context surface the engine renders
// through. egl.Manager satisfies it.
type RenderDelegate interface {
	MakeCurrent() bool
	ClearCurrent() bool
	Present() bool
	MakeResourceCurrent() bool
	FramebufferID() uint32
}

// MessageHandler receives engine-to-embedder platform messages. The
// reply must be used at most once.
type MessageHandler func(channel string, message []byte, reply Responder)

// TaskPoster receives engine tasks with their target time in engine
// monotonic nanoseconds. Called from arbitrary engine threads.
type TaskPoster func(task Task, targetTimeNanos uint64)

// Config carries everything needed to boot the engine.
type Config struct {
	LibraryPath string
	AssetsPath  string
	ICUDataPath string
	Args        []string
}

// Engine is a running engine instance. One per process; the embedder
// ABI's callbacks carry no good closure slot, so trampolines reach the
// instance through the package-level active pointer.
type Engine struct {
	handle    uintptr
	renderer  RenderDelegate
	onMessage MessageHandler
	postTask  TaskPoster

	platformThread int

	// Keeps C-visible allocations reachable while the engine runs.
	pinned []interface{}
}

var active *Engine

// cString returns a null-terminated copy and its base pointer. The
// returned slice must stay referenced while the engine may read it.
func cString(s string) ([]byte, uintptr) {
	buf := append([]byte(s), 0)
	return buf, uintptr(unsafe.Pointer(&buf[0]))
}

func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var n int
	for *(*byte)(unsafe.Pointer(p + uintptr(n))) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// Run loads the engine library and starts an engine instance rendering
// through renderer. Platform messages go to onMessage; posted tasks go
// to postTask for deadline-ordered execution on the platform thread.
// Must be called on the thread that will run the dispatch loop.
func Run(cfg Config, renderer RenderDelegate, onMessage MessageHandler, postTask TaskPoster) (*Engine, error) {
	if active != nil {
		return nil, fmt.Errorf("engine: already running")
	}
	if err := load(cfg.LibraryPath); err != nil {
		return nil, err
	}

	e := &Engine{
		renderer:       renderer,
		onMessage:      onMessage,
		postTask:       postTask,
		platformThread: unix.Gettid(),
	}
	active = e

	config := &rendererConfig{
		kind: rendererOpenGL,
		openGL: openGLRendererConfig{
			structSize:          unsafe.Sizeof(openGLRendererConfig{}),
			makeCurrent:         purego.NewCallback(onMakeCurrent),
			clearCurrent:        purego.NewCallback(onClearCurrent),
			present:             purego.NewCallback(onPresent),
			fboCallback:         purego.NewCallback(onFBO),
			makeResourceCurrent: purego.NewCallback(onMakeResourceCurrent),
		},
	}

	platformRunner := &taskRunnerDescription{
		structSize:              unsafe.Sizeof(taskRunnerDescription{}),
		runsTaskOnCurrentThread: purego.NewCallback(onRunsTaskOnCurrentThread),
		postTask:                purego.NewCallback(onPostTask),
		identifier:              1,
	}
	runners := &customTaskRunners{
		structSize:         unsafe.Sizeof(customTaskRunners{}),
		platformTaskRunner: uintptr(unsafe.Pointer(platformRunner)),
	}

	assets, assetsPtr := cString(cfg.AssetsPath)
	icu, icuPtr := cString(cfg.ICUDataPath)

	argv := append([]string{"wayhost"}, cfg.Args...)
	argvBufs := make([][]byte, len(argv))
	argvPtrs := make([]uintptr, len(argv))
	for i, arg := range argv {
		argvBufs[i], argvPtrs[i] = cString(arg)
	}

	args := &projectArgs{
		structSize:              unsafe.Sizeof(projectArgs{}),
		assetsPath:              assetsPtr,
		icuDataPath:             icuPtr,
		commandLineArgc:         int32(len(argvPtrs)),
		commandLineArgv:         uintptr(unsafe.Pointer(&argvPtrs[0])),
		platformMessageCallback: purego.NewCallback(onPlatformMessage),
		customTaskRunners:       uintptr(unsafe.Pointer(runners)),
	}

	e.pinned = append(e.pinned, config, args, platformRunner, runners, assets, icu, argvBufs, argvPtrs)

	result := flutterEngineRun(abiVersion,
		uintptr(unsafe.Pointer(config)),
		uintptr(unsafe.Pointer(args)),
		0, &e.handle)
	if result != resultSuccess {
		active = nil
		return nil, resultError("FlutterEngineRun", result)
	}

	logger.Info("Engine running", "assets", cfg.AssetsPath)
	return e, nil
}

// Shutdown stops the engine. No engine call is valid afterwards.
func (e *Engine) Shutdown() error {
	if e.handle == 0 {
		return nil
	}
	result := flutterEngineShutdown(e.handle)
	e.handle = 0
	active = nil
	e.pinned = nil
	if result != resultSuccess {
		return resultError("FlutterEngineShutdown", result)
	}
	return nil
}

// SendWindowMetrics reports the surface size and scale factor.
func (e *Engine) SendWindowMetrics(width, height uint32, pixelRatio float64) error {
	event := windowMetricsEvent{
		structSize: unsafe.Sizeof(windowMetricsEvent{}),
		width:      uintptr(width),
		height:     uintptr(height),
		pixelRatio: pixelRatio,
	}
	result := flutterEngineSendWindowMetricsEvent(e.handle, uintptr(unsafe.Pointer(&event)))
	runtime.KeepAlive(&event)
	if result != resultSuccess {
		return resultError("FlutterEngineSendWindowMetricsEvent", result)
	}
	return nil
}

// SubmitPointerEvent implements input.Sink.
func (e *Engine) SubmitPointerEvent(phase PointerPhase, x, y float64, buttons int64, timestampMicros uint64) {
	event := pointerEvent{
		structSize: unsafe.Sizeof(pointerEvent{}),
		phase:      int32(phase),
		timestamp:  uintptr(timestampMicros),
		x:          x,
		y:          y,
		buttons:    buttons,
	}
	result := flutterEngineSendPointerEvent(e.handle, uintptr(unsafe.Pointer(&event)), 1)
	runtime.KeepAlive(&event)
	if result != resultSuccess {
		logger.Error("Failed to send pointer event", "phase", phase, "result", result)
	}
}

// SubmitKeyEvent implements input.Sink by forwarding the payload on the
// key-event channel.
func (e *Engine) SubmitKeyEvent(payload []byte) {
	if err := e.SendPlatformMessage("flutter/keyevent", payload); err != nil {
		logger.Error("Failed to send key event", "error", err)
	}
}

// SendPlatformMessage sends a fire-and-forget message to the framework.
func (e *Engine) SendPlatformMessage(channel string, message []byte) error {
	channelBuf, channelPtr := cString(channel)

	var messagePtr uintptr
	if len(message) > 0 {
		messagePtr = uintptr(unsafe.Pointer(&message[0]))
	}

	msg := platformMessage{
		structSize:  unsafe.Sizeof(platformMessage{}),
		channel:     channelPtr,
		message:     messagePtr,
		messageSize: uintptr(len(message)),
	}
	result := flutterEngineSendPlatformMessage(e.handle, uintptr(unsafe.Pointer(&msg)))
	// The engine copies the message during the call; the backing buffers
	// only have to outlive it.
	runtime.KeepAlive(&msg)
	runtime.KeepAlive(channelBuf)
	runtime.KeepAlive(message)
	if result != resultSuccess {
		return resultError("FlutterEngineSendPlatformMessage", result)
	}
	return nil
}

// RunTask hands a previously posted task back to the engine. Must run on
// the platform thread.
func (e *Engine) RunTask(task Task) {
	t := task
	result := flutterEngineRunTask(e.handle, uintptr(unsafe.Pointer(&t)))
	runtime.KeepAlive(&t)
	if result != resultSuccess {
		logger.Error("Failed to run engine task", "result", result)
	}
}

// CurrentTime returns the engine's monotonic clock in nanoseconds. Task
// deadlines are expressed against it.
func CurrentTime() uint64 {
	return flutterEngineGetCurrentTime()
}

// Renderer trampolines. The engine invokes these from its render thread.

func onMakeCurrent(userData uintptr) uintptr {
	if active != nil && active.renderer.MakeCurrent() {
		return 1
	}
	return 0
}

func onClearCurrent(userData uintptr) uintptr {
	if active != nil && active.renderer.ClearCurrent() {
		return 1
	}
	return 0
}

func onPresent(userData uintptr) uintptr {
	if active != nil && active.renderer.Present() {
		return 1
	}
	return 0
}

func onFBO(userData uintptr) uintptr {
	if active == nil {
		return 0
	}
	return uintptr(active.renderer.FramebufferID())
}

func onMakeResourceCurrent(userData uintptr) uintptr {
	if active != nil && active.renderer.MakeResourceCurrent() {
		return 1
	}
	return 0
}

// Task runner trampolines. FlutterTask is 16 bytes and arrives by value
// in two registers, which maps onto two scalar parameters here.

func onRunsTaskOnCurrentThread(userData uintptr) uintptr {
	if active != nil && unix.Gettid() == active.platformThread {
		return 1
	}
	return 0
}

func onPostTask(runner uintptr, task uint64, targetTimeNanos uint64, userData uintptr) uintptr {
	if active == nil || active.postTask == nil {
		return 0
	}
	active.postTask(Task{Runner: runner, Task: task}, targetTimeNanos)
	return 0
}

func onPlatformMessage(message uintptr, userData uintptr) uintptr {
	if active == nil || active.onMessage == nil || message == 0 {
		return 0
	}
	pm := (*platformMessage)(unsafe.Pointer(message))

	channel := goString(pm.channel)
	var data []byte
	if pm.message != 0 && pm.messageSize > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(pm.message)), pm.messageSize)
		data = append([]byte(nil), src...)
	}

	active.onMessage(channel, data, newResponder(active, pm.responseHandle))
	return 0
}
