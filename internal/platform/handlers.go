package platform

import (
	"github.com/wayhost/wayhost/internal/codec"
	"github.com/wayhost/wayhost/internal/logger"
)

// Channel names fixed by the engine.
const (
	AccessibilityChannel = "flutter/accessibility"
	PlatformChannel      = "flutter/platform"
	TextInputChannel     = "flutter/textinput"
	KeyEventChannel      = "flutter/keyevent"
	PlatformViewsChannel = "flutter/platform_views"
)

// RegisterCoreChannels installs the embedder's built-in handlers. The
// catalog is fixed; plugin channels are not serviced here.
func RegisterCoreChannels(d *Dispatcher) {
	d.RegisterHandler(AccessibilityChannel, onAccessibility)
	d.RegisterHandler(PlatformChannel, onPlatform)
	d.RegisterHandler(TextInputChannel, onTextInput)
	d.RegisterHandler(PlatformViewsChannel, onPlatformViews)
}

// onAccessibility logs accessibility announcements. The payload is the
// engine's standard-codec accessibility event; no reply content is expected.
func onAccessibility(message []byte, reply Responder) {
	logger.Debug("accessibility message", "size", len(message))
	mustRespond(AccessibilityChannel, reply, nil)
}

func onPlatform(message []byte, reply Responder) {
	call, err := codec.DecodeMethodCall(message)
	if err != nil {
		logger.Warn("malformed platform message", "channel", PlatformChannel, "error", err)
		mustRespond(PlatformChannel, reply, nil)
		return
	}

	logger.Debug("platform channel", "method", call.Method)
	mustRespond(PlatformChannel, reply, nil)
}

func onTextInput(message []byte, reply Responder) {
	call, err := codec.DecodeMethodCall(message)
	if err != nil {
		logger.Warn("malformed platform message", "channel", TextInputChannel, "error", err)
		mustRespond(TextInputChannel, reply, nil)
		return
	}

	logger.Debug("text input", "method", call.Method)
	mustRespond(TextInputChannel, reply, nil)
}

func onPlatformViews(message []byte, reply Responder) {
	call, err := codec.DecodeMethodCall(message)
	if err != nil {
		logger.Warn("malformed platform message", "channel", PlatformViewsChannel, "error", err)
		mustRespond(PlatformViewsChannel, reply, nil)
		return
	}

	logger.Debug("platform views", "method", call.Method)

	switch call.Method {
	case "View.enableWireframe":
		args, err := call.ArgsMap()
		if err != nil {
			respondError(PlatformViewsChannel, reply, "argument_error", err.Error())
			return
		}
		if _, ok := args["enable"].(bool); !ok {
			respondError(PlatformViewsChannel, reply, "argument_error", "argument 'enable' is not a bool")
			return
		}
		payload, _ := codec.EncodeSuccessEnvelope(nil)
		mustRespond(PlatformViewsChannel, reply, payload)
	default:
		logger.Warn("unknown platform views method", "method", call.Method)
		mustRespond(PlatformViewsChannel, reply, nil)
	}
}

func respondError(channel string, reply Responder, code, message string) {
	payload, err := codec.EncodeErrorEnvelope(code, message, nil)
	if err != nil {
		payload = nil
	}
	mustRespond(channel, reply, payload)
}

func mustRespond(channel string, reply Responder, payload []byte) {
	if err := reply.Respond(payload); err != nil {
		logger.Warn("failed to respond on channel", "channel", channel, "error", err)
	}
}
