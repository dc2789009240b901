package rosbridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/rileyhilliard/dronestatus/internal/errors"
	"github.com/rileyhilliard/dronestatus/internal/logger"
)

// fakeServer is a minimal rosbridge endpoint. Frames from the client are
// collected on received; frames pushed to send are written to the most
// recent connection.
type fakeServer struct {
	*httptest.Server
	received chan map[string]any
	send     chan string
	conns    atomic.Int32
	mu       sync.Mutex
	last     *websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{
		received: make(chan map[string]any, 16),
		send:     make(chan string, 16),
	}
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		fs.mu.Lock()
		fs.last = conn
		fs.mu.Unlock()
		fs.conns.Add(1)

		stop := make(chan struct{})
		defer close(stop)
		go func() {
			for {
				select {
				case <-stop:
					return
				case frame := <-fs.send:
					_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
				}
			}
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				fs.received <- m
			}
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.URL, "http")
}

// dropConn kills the server side of the current connection.
func (fs *fakeServer) dropConn() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.last != nil {
		fs.last.UnderlyingConn().Close()
	}
}

func (fs *fakeServer) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case m := <-fs.received:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no frame from client")
		return nil
	}
}

func TestOnline(t *testing.T) {
	fs := newFakeServer(t)

	c := New(Config{URL: fs.wsURL()})
	assert.True(t, c.Online(context.Background()))
	require.Eventually(t, func() bool { return fs.conns.Load() == 1 }, 2*time.Second, time.Millisecond)
}

func TestOnline_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := New(Config{URL: "ws://" + addr, ProbeTimeout: 200 * time.Millisecond})
	assert.False(t, c.Online(context.Background()))
}

func TestOnline_NotWebsocket(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	assert.False(t, c.Online(context.Background()))
}

func TestConnect_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := New(Config{URL: "ws://" + addr})
	_, err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, dserrors.IsCode(err, dserrors.ErrTransport))
	assert.Contains(t, err.Error(), "rosbridge_server")
}

func TestSession_SubscribeAndDispatch(t *testing.T) {
	fs := newFakeServer(t)
	c := New(Config{URL: fs.wsURL()})

	sess, err := c.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	got := make(chan string, 4)
	require.NoError(t, sess.Subscribe("/uwb_vicon_odom", "nav_msgs/Odometry", func(payload json.RawMessage) {
		got <- string(payload)
	}))

	sub := fs.next(t)
	assert.Equal(t, "subscribe", sub["op"])
	assert.Equal(t, "/uwb_vicon_odom", sub["topic"])
	assert.Equal(t, "nav_msgs/Odometry", sub["type"])
	assert.EqualValues(t, 1, sub["queue_length"])
	assert.True(t, strings.HasPrefix(sub["id"].(string), "subscribe:/uwb_vicon_odom:"))

	fs.send <- `{"op":"publish","topic":"/other","msg":{"x":1}}`
	fs.send <- `{"op":"publish","topic":"/uwb_vicon_odom","msg":{"pose":{"pose":{"position":{"x":1,"y":2,"z":3}}}}}`

	select {
	case payload := <-got:
		assert.JSONEq(t, `{"pose":{"pose":{"position":{"x":1,"y":2,"z":3}}}}`, payload)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	assert.Empty(t, got, "frames for other topics must not reach the handler")
}

func TestSession_StatusFrames(t *testing.T) {
	fs := newFakeServer(t)
	log := logger.NewBufferLogger()
	c := New(Config{URL: fs.wsURL(), Logger: log})

	sess, err := c.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	fs.send <- `not json`
	fs.send <- `{"op":"status","level":"error","msg":"Unknown type foo/Bar"}`

	require.Eventually(t, func() bool { return log.Contains("Unknown type foo/Bar") }, 2*time.Second, time.Millisecond)
	assert.True(t, log.HasLevel("warn"))
	assert.True(t, log.Contains("ignoring malformed frame"))

	select {
	case <-sess.Done():
		t.Fatal("malformed frames must not end the session")
	default:
	}
}

func TestSession_DoneOnTransportLoss(t *testing.T) {
	fs := newFakeServer(t)
	c := New(Config{URL: fs.wsURL()})

	sess, err := c.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	require.Eventually(t, func() bool { return fs.conns.Load() == 1 }, 2*time.Second, time.Millisecond)
	fs.dropConn()

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not marked done after connection loss")
	}
	assert.NoError(t, sess.Close())
}

func TestSession_CloseUnsubscribes(t *testing.T) {
	fs := newFakeServer(t)
	c := New(Config{URL: fs.wsURL()})

	sess, err := c.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, sess.Subscribe("/dji_sdk_1/dji_sdk/battery_state", "sensor_msgs/BatteryState", func(json.RawMessage) {}))
	sub := fs.next(t)

	require.NoError(t, sess.Close())

	unsub := fs.next(t)
	assert.Equal(t, "unsubscribe", unsub["op"])
	assert.Equal(t, "/dji_sdk_1/dji_sdk/battery_state", unsub["topic"])
	assert.Equal(t, sub["id"], unsub["id"])

	select {
	case <-sess.Done():
	default:
		t.Fatal("Done must be closed after Close")
	}
	assert.NoError(t, sess.Close(), "second Close is a no-op")
}

func TestNetDialContext(t *testing.T) {
	fs := newFakeServer(t)

	var dials atomic.Int32
	c := New(Config{
		// The host in the URL is never resolved; the dialer decides.
		URL: "ws://robot.invalid:9090",
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials.Add(1)
			assert.Equal(t, "robot.invalid:9090", addr)
			var d net.Dialer
			return d.DialContext(ctx, network, strings.TrimPrefix(fs.URL, "http://"))
		},
	})

	assert.True(t, c.Online(context.Background()))
	assert.EqualValues(t, 1, dials.Load())
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})

	assert.Equal(t, DefaultURL, c.URL())
	assert.Equal(t, DefaultProbeTimeout, c.cfg.ProbeTimeout)
	assert.Equal(t, DefaultWriteTimeout, c.cfg.WriteTimeout)
}
