package engine

import (
	"testing"
	"unsafe"
)

type fakeRenderer struct {
	calls []string
	fbo   uint32
}

func (f *fakeRenderer) MakeCurrent() bool         { f.calls = append(f.calls, "makeCurrent"); return true }
func (f *fakeRenderer) ClearCurrent() bool        { f.calls = append(f.calls, "clearCurrent"); return true }
func (f *fakeRenderer) Present() bool             { f.calls = append(f.calls, "present"); return true }
func (f *fakeRenderer) MakeResourceCurrent() bool { f.calls = append(f.calls, "resource"); return true }
func (f *fakeRenderer) FramebufferID() uint32     { return f.fbo }

type fakeEngineLib struct {
	pointerEvents []pointerEvent
	messages      []platformMessage
	responses     [][]byte
	tasksRun      []Task
	metrics       []windowMetricsEvent
	shutdowns     int
}

func installFake(t *testing.T) *fakeEngineLib {
	t.Helper()

	f := &fakeEngineLib{}

	// Short-circuit load() and install the fake function table.
	libOnce.Do(func() {})
	libErr = nil

	flutterEngineRun = func(version uintptr, config, args uintptr, userData uintptr, engineOut *uintptr) int32 {
		*engineOut = 0x99
		return resultSuccess
	}
	flutterEngineShutdown = func(engine uintptr) int32 {
		f.shutdowns++
		return resultSuccess
	}
	flutterEngineSendWindowMetricsEvent = func(engine uintptr, event uintptr) int32 {
		f.metrics = append(f.metrics, *(*windowMetricsEvent)(unsafe.Pointer(event)))
		return resultSuccess
	}
	flutterEngineSendPointerEvent = func(engine uintptr, events uintptr, count uintptr) int32 {
		f.pointerEvents = append(f.pointerEvents, *(*pointerEvent)(unsafe.Pointer(events)))
		return resultSuccess
	}
	flutterEngineSendPlatformMessage = func(engine uintptr, message uintptr) int32 {
		f.messages = append(f.messages, *(*platformMessage)(unsafe.Pointer(message)))
		return resultSuccess
	}
	flutterEngineSendPlatformMessageResponse = func(engine uintptr, handle uintptr, data uintptr, dataLen uintptr) int32 {
		var payload []byte
		if data != 0 && dataLen > 0 {
			payload = append(payload, unsafe.Slice((*byte)(unsafe.Pointer(data)), dataLen)...)
		}
		f.responses = append(f.responses, payload)
		return resultSuccess
	}
	flutterEngineRunTask = func(engine uintptr, task uintptr) int32 {
		f.tasksRun = append(f.tasksRun, *(*Task)(unsafe.Pointer(task)))
		return resultSuccess
	}
	flutterEngineGetCurrentTime = func() uint64 { return 42 }

	t.Cleanup(func() { active = nil })
	return f
}

func startEngine(t *testing.T, f *fakeEngineLib, onMessage MessageHandler, postTask TaskPoster) *Engine {
	t.Helper()
	e, err := Run(Config{
		LibraryPath: "libflutter_engine.so",
		AssetsPath:  "/tmp/assets",
		ICUDataPath: "/tmp/icudtl.dat",
	}, &fakeRenderer{}, onMessage, postTask)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return e
}

// Field offsets in FlutterProjectArgs, from the embedder header on
// 64-bit Linux. custom_task_runners sits behind the snapshot, semantics
// and vsync fields even when those stay zero.
func TestProjectArgsLayout(t *testing.T) {
	var args projectArgs
	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"assetsPath", unsafe.Offsetof(args.assetsPath), 8},
		{"icuDataPath", unsafe.Offsetof(args.icuDataPath), 32},
		{"commandLineArgc", unsafe.Offsetof(args.commandLineArgc), 40},
		{"commandLineArgv", unsafe.Offsetof(args.commandLineArgv), 48},
		{"platformMessageCallback", unsafe.Offsetof(args.platformMessageCallback), 56},
		{"vmSnapshotData", unsafe.Offsetof(args.vmSnapshotData), 64},
		{"persistentCachePath", unsafe.Offsetof(args.persistentCachePath), 152},
		{"vsyncCallback", unsafe.Offsetof(args.vsyncCallback), 168},
		{"customTaskRunners", unsafe.Offsetof(args.customTaskRunners), 184},
	}
	for _, f := range offsets {
		if f.got != f.want {
			t.Errorf("offset of %s = %d, want %d", f.name, f.got, f.want)
		}
	}
	if size := unsafe.Sizeof(args); size != 192 {
		t.Errorf("struct size = %d, want 192", size)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	f := installFake(t)
	startEngine(t, f, nil, nil)

	if _, err := Run(Config{LibraryPath: "libflutter_engine.so"}, &fakeRenderer{}, nil, nil); err == nil {
		t.Fatal("second Run() succeeded, want error")
	}
}

func TestSubmitPointerEventCarriesPhase(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	e.SubmitPointerEvent(PhaseDown, 10, 20, 1, 5000)

	if len(f.pointerEvents) != 1 {
		t.Fatalf("sent %d pointer events, want 1", len(f.pointerEvents))
	}
	got := f.pointerEvents[0]
	if got.phase != int32(PhaseDown) {
		t.Errorf("phase = %d, want %d", got.phase, PhaseDown)
	}
	if got.x != 10 || got.y != 20 {
		t.Errorf("position = (%v, %v), want (10, 20)", got.x, got.y)
	}
	if got.buttons != 1 {
		t.Errorf("buttons = %d, want 1", got.buttons)
	}
	if got.timestamp != 5000 {
		t.Errorf("timestamp = %d, want 5000", got.timestamp)
	}
}

func TestSendPlatformMessageChannel(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	if err := e.SendPlatformMessage("flutter/keyevent", []byte(`{"type":"keydown"}`)); err != nil {
		t.Fatalf("SendPlatformMessage() error = %v", err)
	}

	if len(f.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(f.messages))
	}
	if got := goString(f.messages[0].channel); got != "flutter/keyevent" {
		t.Errorf("channel = %q, want flutter/keyevent", got)
	}
	if f.messages[0].messageSize != uintptr(len(`{"type":"keydown"}`)) {
		t.Errorf("message size = %d", f.messages[0].messageSize)
	}
}

func TestIncomingPlatformMessage(t *testing.T) {
	f := installFake(t)

	var gotChannel string
	var gotBody []byte
	var gotReply Responder
	startEngine(t, f, func(channel string, message []byte, reply Responder) {
		gotChannel = channel
		gotBody = message
		gotReply = reply
	}, nil)

	channel := append([]byte("flutter/platform"), 0)
	body := []byte(`{"method":"ping"}`)
	pm := platformMessage{
		structSize:     unsafe.Sizeof(platformMessage{}),
		channel:        uintptr(unsafe.Pointer(&channel[0])),
		message:        uintptr(unsafe.Pointer(&body[0])),
		messageSize:    uintptr(len(body)),
		responseHandle: 0x55,
	}
	onPlatformMessage(uintptr(unsafe.Pointer(&pm)), 0)

	if gotChannel != "flutter/platform" {
		t.Errorf("channel = %q", gotChannel)
	}
	if string(gotBody) != string(body) {
		t.Errorf("body = %q", gotBody)
	}

	if err := gotReply.Respond([]byte("ok")); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(f.responses) != 1 || string(f.responses[0]) != "ok" {
		t.Fatalf("responses = %q, want [ok]", f.responses)
	}
}

func TestResponderConsumesHandleOnce(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	r := newResponder(e, 0x55)
	if err := r.Respond([]byte("first")); err != nil {
		t.Fatalf("first Respond() error = %v", err)
	}
	if err := r.Respond([]byte("second")); err == nil {
		t.Fatal("second Respond() succeeded, want error")
	}
	if len(f.responses) != 1 {
		t.Fatalf("engine received %d responses, want 1", len(f.responses))
	}
}

func TestResponderWithoutHandleIsNoop(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	r := newResponder(e, 0)
	if err := r.Respond(nil); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if len(f.responses) != 0 {
		t.Fatal("handle-less responder reached the engine")
	}
}

func TestPostTaskTrampoline(t *testing.T) {
	f := installFake(t)

	var gotTask Task
	var gotDeadline uint64
	startEngine(t, f, nil, func(task Task, targetTimeNanos uint64) {
		gotTask = task
		gotDeadline = targetTimeNanos
	})

	onPostTask(0xAB, 7, 123456, 0)

	if gotTask.Runner != 0xAB || gotTask.Task != 7 {
		t.Errorf("task = %+v", gotTask)
	}
	if gotDeadline != 123456 {
		t.Errorf("deadline = %d, want 123456", gotDeadline)
	}
}

func TestRunTaskRoundtrip(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	e.RunTask(Task{Runner: 0xAB, Task: 7})

	if len(f.tasksRun) != 1 || f.tasksRun[0] != (Task{Runner: 0xAB, Task: 7}) {
		t.Fatalf("tasks run = %+v", f.tasksRun)
	}
}

func TestWindowMetrics(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	if err := e.SendWindowMetrics(800, 600, 1.0); err != nil {
		t.Fatal(err)
	}
	if len(f.metrics) != 1 {
		t.Fatalf("sent %d metrics events, want 1", len(f.metrics))
	}
	if f.metrics[0].width != 800 || f.metrics[0].height != 600 {
		t.Errorf("metrics = %+v", f.metrics[0])
	}
	if f.metrics[0].pixelRatio != 1.0 {
		t.Errorf("pixelRatio = %v", f.metrics[0].pixelRatio)
	}
}

func TestShutdownInvalidatesEngine(t *testing.T) {
	f := installFake(t)
	e := startEngine(t, f, nil, nil)

	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if f.shutdowns != 1 {
		t.Fatalf("shutdowns = %d", f.shutdowns)
	}
	// A second shutdown is a no-op.
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if f.shutdowns != 1 {
		t.Fatal("second Shutdown reached the engine")
	}
}
