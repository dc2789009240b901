package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clocktest "github.com/rileyhilliard/dronestatus/internal/clock/testing"
	"github.com/rileyhilliard/dronestatus/internal/config"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/supervisor"
	transporttest "github.com/rileyhilliard/dronestatus/internal/transport/testing"
	"github.com/rileyhilliard/dronestatus/internal/ui"
)

func TestMain(m *testing.M) {
	ui.DisableColors()
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRootArgs(t *testing.T) {
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
	assert.NoError(t, rootCmd.Args(rootCmd, []string{"/vicon/odom"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"/a", "/b"}))
}

func TestRootSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["init"])
	assert.True(t, names["version"])
	assert.True(t, names["completion"])
}

func TestDashboardOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Topics.Position = "/vicon/odom"
	cfg.Display.BarWidth = 20

	opts := dashboardOptions(cfg)

	assert.Equal(t, "/dji_sdk_1/dji_sdk/battery_state", opts.BatteryTopic)
	assert.Equal(t, "/vicon/odom", opts.PositionTopic)
	assert.Equal(t, 100*time.Millisecond, opts.Interval)
	assert.Equal(t, 100*time.Millisecond, opts.StaleAfter)
	assert.Equal(t, 2*time.Second, opts.BatteryStaleAfter)
	assert.Equal(t, 20, opts.BarWidth)
}

func TestNewTransport(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.DefaultConfig()

	tr, closer := newTransport(cfg, logger.Noop())
	assert.Nil(t, closer)
	assert.Equal(t, "ws://localhost:9090", tr.URL())
	assert.Equal(t, "ws://localhost:9090", endpoint(cfg))

	cfg.Tunnel.Host = "pilot@10.42.0.1"
	tr, closer = newTransport(cfg, logger.Noop())
	require.NotNil(t, closer)
	defer closer.Close()
	assert.Equal(t, "ws://localhost:9090", tr.URL())
	assert.Equal(t, "ws://localhost:9090 via pilot@10.42.0.1", endpoint(cfg))
}

func TestApp_WaitConnectRender(t *testing.T) {
	clk := clocktest.NewFakeClock(time.Unix(1700000123, 456000000))
	ft := transporttest.NewFakeTransport(false, true)
	out := &syncBuffer{}
	log := logger.NewBufferLogger()

	var mu sync.Mutex
	var states []supervisor.State
	a := &app{
		cfg:       config.DefaultConfig(),
		transport: ft,
		endpoint:  "ws://localhost:9090",
		clock:     clk,
		out:       out,
		log:       log,
		onState: func(s supervisor.State) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, s)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- a.run(ctx) }()

	require.Eventually(t, func() bool { return log.Contains("Waiting for ws://localhost:9090") }, time.Second, time.Millisecond)
	assert.Equal(t, 1, ft.OnlineCalls())
	assert.Empty(t, out.String(), "nothing is drawn while waiting")

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return strings.Count(out.String(), "\r") == 1 }, time.Second, time.Millisecond)

	session := ft.LastSession()
	require.NotNil(t, session)
	require.True(t, session.Publish("/dji_sdk_1/dji_sdk/battery_state", `{"voltage": 15.2}`))
	require.True(t, session.Publish("/uwb_vicon_odom", `{"pose":{"pose":{"position":{"x":1,"y":2,"z":3}}}}`))

	clk.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return strings.Count(out.String(), "\r") == 2 }, time.Second, time.Millisecond)

	frames := strings.Split(out.String(), "\r")
	assert.Contains(t, frames[1], "VO false :[0.000, 0.000, 0.000]")
	assert.Contains(t, frames[2], "VO true :[1.000, 2.000, 3.000]")
	assert.Contains(t, frames[2], "60.0% :15.20V")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, strings.HasSuffix(out.String(), "\n"))
	assert.True(t, session.Closed())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []supervisor.State{supervisor.StateConnected, supervisor.StateWaiting}, states)
}
