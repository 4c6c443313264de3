// Package platform routes named-channel messages between the engine and the
// embedder's channel handlers.
package platform

import (
	"github.com/wayhost/wayhost/internal/logger"
)

// Responder delivers the reply for one platform message. Every message must
// be answered exactly once; an unanswered message leaves the engine-side
// caller blocked forever.
type Responder interface {
	Respond(payload []byte) error
}

// Handler processes one message on a channel. The handler owns decoding the
// payload and must call reply.Respond exactly once.
type Handler func(message []byte, reply Responder)

// Outcome classifies a dispatch: routing to a handler is distinct from the
// not-implemented empty reply for unknown channels.
type Outcome int

const (
	// OutcomeHandled means a registered handler received the message.
	OutcomeHandled Outcome = iota
	// OutcomeUnregistered means no handler exists; an empty reply was sent.
	OutcomeUnregistered
)

// Dispatcher holds the channel table. It is populated during startup and
// read-only afterwards; Dispatch runs on the dispatch thread only.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// RegisterHandler installs the handler for a channel, replacing any previous
// registration. Registration happens once at startup, before the loop runs.
func (d *Dispatcher) RegisterHandler(channel string, handler Handler) {
	d.handlers[channel] = handler
}

// Dispatch routes one message. A message on an unregistered channel is
// answered with an empty payload, which the engine reads as "not
// implemented" - it is not an error.
func (d *Dispatcher) Dispatch(channel string, message []byte, reply Responder) Outcome {
	handler, ok := d.handlers[channel]
	if !ok {
		logger.Debug("no handler for platform channel", "channel", channel)
		if err := reply.Respond(nil); err != nil {
			logger.Warn("failed to send empty response", "channel", channel, "error", err)
		}
		return OutcomeUnregistered
	}

	handler(message, reply)
	return OutcomeHandled
}
