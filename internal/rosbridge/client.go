// Package rosbridge is a transport.Transport speaking the rosbridge v2 JSON
// protocol over a websocket.
package rosbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rileyhilliard/dronestatus/internal/errors"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/transport"
)

// Defaults for Config.
const (
	DefaultURL          = "ws://localhost:9090"
	DefaultProbeTimeout = time.Second
	DefaultWriteTimeout = time.Second
)

// DialContextFunc opens the underlying network connection, e.g. through an
// SSH tunnel.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Config configures a Client.
type Config struct {
	URL          string
	ProbeTimeout time.Duration
	WriteTimeout time.Duration
	// NetDialContext overrides how TCP connections are made. Nil dials
	// directly.
	NetDialContext DialContextFunc
	Logger         logger.Logger
}

// Client connects to a rosbridge server.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
}

var _ transport.Transport = (*Client)(nil)

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	dialer := &websocket.Dialer{
		HandshakeTimeout: cfg.ProbeTimeout,
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
	}
	if cfg.NetDialContext != nil {
		dialer.NetDialContext = cfg.NetDialContext
	}
	return &Client{cfg: cfg, dialer: dialer}
}

// URL returns the server address.
func (c *Client) URL() string {
	return c.cfg.URL
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// Online reports whether a websocket handshake with the server succeeds
// within the probe timeout. The probe connection is closed immediately.
func (c *Client) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		c.cfg.Logger.Debug("probe %s: %v", c.cfg.URL, err)
		return false
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.WriteTimeout))
	conn.Close()
	return true
}

// Connect opens a session. Messages are dispatched to subscribers from a
// single reader goroutine until the connection fails or Close is called.
func (c *Client) Connect(ctx context.Context) (transport.Session, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTransport,
			fmt.Sprintf("Can't connect to rosbridge at %s", c.cfg.URL),
			"Is rosbridge_server running? Try: roslaunch rosbridge_server rosbridge_websocket.launch")
	}

	s := &session{
		conn:         conn,
		log:          c.cfg.Logger,
		writeTimeout: c.cfg.WriteTimeout,
		subs:         make(map[string]subscription),
		done:         make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type subscription struct {
	id      string
	handler transport.Handler
}

type session struct {
	conn         *websocket.Conn
	log          logger.Logger
	writeTimeout time.Duration

	writeMu sync.Mutex

	mu   sync.RWMutex
	subs map[string]subscription

	done      chan struct{}
	closeOnce sync.Once
	doneOnce  sync.Once
}

func (s *session) Done() <-chan struct{} { return s.done }

func (s *session) Subscribe(topic, msgType string, handler transport.Handler) error {
	id := fmt.Sprintf("%s:%s:%s", opSubscribe, topic, uuid.NewString())

	s.mu.Lock()
	s.subs[topic] = subscription{id: id, handler: handler}
	s.mu.Unlock()

	err := s.writeJSON(subscribeOp{
		Op:          opSubscribe,
		ID:          id,
		Topic:       topic,
		Type:        msgType,
		QueueLength: 1,
	})
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("Failed to subscribe to %s", topic))
	}
	s.log.Debug("subscribed to %s (%s)", topic, msgType)
	return nil
}

func (s *session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

func (s *session) readLoop() {
	defer s.doneOnce.Do(func() { close(s.done) })

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug("read: %v", err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		s.dispatch(data)
	}
}

func (s *session) dispatch(data []byte) {
	var in incoming
	if err := json.Unmarshal(data, &in); err != nil {
		s.log.Debug("ignoring malformed frame: %v", err)
		return
	}

	switch in.Op {
	case opPublish:
		s.mu.RLock()
		sub, ok := s.subs[in.Topic]
		s.mu.RUnlock()
		if !ok {
			s.log.Debug("publish on unsubscribed topic %s", in.Topic)
			return
		}
		sub.handler(in.Msg)
	case opStatus:
		if in.Level == "error" {
			s.log.Warn("rosbridge: %s", in.statusText())
		} else {
			s.log.Debug("rosbridge %s: %s", in.Level, in.statusText())
		}
	default:
		s.log.Debug("ignoring %q frame", in.Op)
	}
}

// Close unsubscribes every topic and closes the connection. It is safe to
// call more than once and after the connection has already failed.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		select {
		case <-s.done:
		default:
			s.mu.RLock()
			subs := make(map[string]subscription, len(s.subs))
			for topic, sub := range s.subs {
				subs[topic] = sub
			}
			s.mu.RUnlock()

			for topic, sub := range subs {
				if werr := s.writeJSON(unsubscribeOp{Op: opUnsubscribe, ID: sub.id, Topic: topic}); werr != nil {
					s.log.Debug("unsubscribe %s: %v", topic, werr)
				}
			}
			s.writeMu.Lock()
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.writeTimeout))
			s.writeMu.Unlock()
		}
		err = s.conn.Close()
		<-s.done
	})
	return err
}
