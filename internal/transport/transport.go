// Package transport defines what the dashboard needs from the messaging
// layer that delivers telemetry.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrSessionLost is returned by consumers of a Session when it ended because
// the transport went away rather than because they were asked to stop.
var ErrSessionLost = errors.New("transport session lost")

// Handler receives the raw payload of each message published on a topic.
// Handlers run on the transport's goroutine and must not block.
type Handler func(payload json.RawMessage)

// Transport is a messaging substrate the dashboard can wait on and connect to.
type Transport interface {
	// Online reports whether the transport is currently reachable.
	Online(ctx context.Context) bool
	// Connect opens a session for subscriptions.
	Connect(ctx context.Context) (Session, error)
}

// Session is one live connection to the transport.
type Session interface {
	// Subscribe registers handler for messages on topic. msgType is the
	// message type name expected on that topic.
	Subscribe(topic, msgType string, handler Handler) error
	// Done is closed when the session is lost or closed.
	Done() <-chan struct{}
	// Close ends the session.
	Close() error
}
