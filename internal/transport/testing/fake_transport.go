// Package testing provides an in-memory transport for tests.
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rileyhilliard/dronestatus/internal/transport"
)

// ErrConnectFailed is returned by Connect when FailConnect is set.
var ErrConnectFailed = errors.New("fake transport: connect failed")

// FakeTransport is a scriptable transport.Transport.
type FakeTransport struct {
	mu sync.Mutex

	// OnlineResults is consumed one value per Online call; once exhausted,
	// OnlineDefault is returned.
	OnlineResults []bool
	OnlineDefault bool
	FailConnect   bool
	// FailSubscribe, when set, is returned by Subscribe on every session
	// opened afterwards, and the session is dropped, as a connection that
	// dies right after the handshake would be.
	FailSubscribe error

	onlineCalls int
	sessions    []*FakeSession
}

// NewFakeTransport returns a transport that reports results from successive
// Online calls, then stays online.
func NewFakeTransport(results ...bool) *FakeTransport {
	return &FakeTransport{OnlineResults: results, OnlineDefault: true}
}

// Online returns the next scripted availability.
func (f *FakeTransport) Online(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onlineCalls++
	if len(f.OnlineResults) > 0 {
		r := f.OnlineResults[0]
		f.OnlineResults = f.OnlineResults[1:]
		return r
	}
	return f.OnlineDefault
}

// Connect opens a new FakeSession.
func (f *FakeTransport) Connect(ctx context.Context) (transport.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailConnect {
		return nil, ErrConnectFailed
	}
	s := &FakeSession{
		handlers: make(map[string]transport.Handler),
		types:    make(map[string]string),
		done:     make(chan struct{}),
		failSub:  f.FailSubscribe,
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// OnlineCalls returns how many times Online has been called.
func (f *FakeTransport) OnlineCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onlineCalls
}

// Sessions returns every session opened so far.
func (f *FakeTransport) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeSession, len(f.sessions))
	copy(out, f.sessions)
	return out
}

// LastSession returns the most recent session, or nil.
func (f *FakeTransport) LastSession() *FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

// FakeSession records subscriptions and lets tests publish messages.
type FakeSession struct {
	mu       sync.Mutex
	handlers map[string]transport.Handler
	types    map[string]string
	done     chan struct{}
	once     sync.Once
	closed   bool
	failSub  error
}

// Subscribe records the handler for topic, or fails if the transport was
// scripted with FailSubscribe.
func (s *FakeSession) Subscribe(topic, msgType string, handler transport.Handler) error {
	if s.failSub != nil {
		s.Drop()
		return s.failSub
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[topic] = handler
	s.types[topic] = msgType
	return nil
}

// Done is closed by Drop or Close.
func (s *FakeSession) Done() <-chan struct{} { return s.done }

// Close ends the session.
func (s *FakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

// Drop simulates transport loss.
func (s *FakeSession) Drop() {
	s.once.Do(func() { close(s.done) })
}

// Closed reports whether Close was called.
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Topics returns topic -> message type for every subscription.
func (s *FakeSession) Topics() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.types))
	for k, v := range s.types {
		out[k] = v
	}
	return out
}

// Publish delivers payload to the handler for topic. It reports whether a
// handler was registered.
func (s *FakeSession) Publish(topic string, payload string) bool {
	s.mu.Lock()
	h, ok := s.handlers[topic]
	s.mu.Unlock()
	if !ok {
		return false
	}
	h(json.RawMessage(payload))
	return true
}
