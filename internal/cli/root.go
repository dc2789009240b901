package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rileyhilliard/dronestatus/internal/clock"
	"github.com/rileyhilliard/dronestatus/internal/config"
	"github.com/rileyhilliard/dronestatus/internal/dashboard"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/rosbridge"
	"github.com/rileyhilliard/dronestatus/internal/supervisor"
	"github.com/rileyhilliard/dronestatus/internal/transport"
	"github.com/rileyhilliard/dronestatus/internal/ui"
	"github.com/rileyhilliard/dronestatus/pkg/sshutil"
)

// LogPrefix tags every diagnostic line on stderr.
const LogPrefix = "[DRONE_STATUS]"

var rootCmd = &cobra.Command{
	Use:   "dronestatus [position-topic]",
	Short: "Live drone telemetry status line",
	Long: `Show a single, continuously refreshed status line with the drone's
position, its liveness, and a color coded battery gauge.

Telemetry is read from a rosbridge websocket server. While the server is
unreachable dronestatus waits and retries once per second; when the link
drops it goes back to waiting. Press Ctrl-C to quit.

The optional argument overrides the position topic (default /uwb_vicon_odom).

Examples:
  dronestatus
  dronestatus /vicon/drone1/odom
  DRONE_STATUS_ROSBRIDGE_URL=ws://10.42.0.1:9090 dronestatus`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return rootCommand(cmd.Context(), args)
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand(parent context.Context, args []string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, path, err := config.LoadOrDefault()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Topics.Position = args[0]
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log.SetFlags(0)
	logger.SetDefault(logger.NewEnvLogger(LogPrefix))
	if path != "" {
		logger.Default().Debug("using config %s", path)
	}
	ui.SetColorMode(cfg.Display.Color)

	tr, closer := newTransport(cfg, logger.Default())
	if closer != nil {
		defer closer.Close()
	}

	return (&app{
		cfg:       cfg,
		transport: tr,
		endpoint:  endpoint(cfg),
		clock:     clock.Real(),
		out:       os.Stdout,
		width:     stdoutWidth,
		log:       logger.Default(),
	}).run(ctx)
}

// newTransport builds the rosbridge client, routed through an SSH tunnel
// when tunnel.host is set. The closer, if any, tears the tunnel down.
func newTransport(cfg *config.Config, log logger.Logger) (*rosbridge.Client, io.Closer) {
	rcfg := rosbridge.Config{
		URL:          cfg.Rosbridge.URL,
		ProbeTimeout: cfg.Rosbridge.ProbeTimeout,
		Logger:       log,
	}

	var closer io.Closer
	if cfg.Tunnel.Host != "" {
		tunnel := sshutil.NewTunnel(sshutil.TunnelConfig{
			Host:                  cfg.Tunnel.Host,
			Timeout:               cfg.Tunnel.Timeout,
			StrictHostKeyChecking: cfg.Tunnel.StrictHostKeyChecking,
			Logger:                log,
		})
		rcfg.NetDialContext = tunnel.DialContext
		closer = tunnel
	}
	return rosbridge.New(rcfg), closer
}

func endpoint(cfg *config.Config) string {
	if cfg.Tunnel.Host != "" {
		return fmt.Sprintf("%s via %s", cfg.Rosbridge.URL, cfg.Tunnel.Host)
	}
	return cfg.Rosbridge.URL
}

func dashboardOptions(cfg *config.Config) dashboard.Options {
	return dashboard.Options{
		BatteryTopic:      cfg.Topics.Battery,
		PositionTopic:     cfg.Topics.Position,
		Interval:          cfg.Refresh.Interval,
		StaleAfter:        cfg.Refresh.StaleAfter,
		BatteryStaleAfter: cfg.Refresh.BatteryStaleAfter,
		BarWidth:          cfg.Display.BarWidth,
	}
}

// stdoutWidth reports the terminal width, or 0 when stdout isn't a terminal.
func stdoutWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// app wires the dashboard to a supervised transport.
type app struct {
	cfg       *config.Config
	transport transport.Transport
	endpoint  string
	clock     clock.Clock
	out       io.Writer
	width     func() int
	log       logger.Logger

	// onState observes supervisor transitions in tests.
	onState func(supervisor.State)
}

func (a *app) run(ctx context.Context) error {
	tracker := dashboard.NewTracker(a.clock)
	dash := dashboard.New(dashboardOptions(a.cfg), tracker, a.clock, ui.NewLineWriter(a.out, a.width), a.log)

	sup := supervisor.New(supervisor.Config{
		Transport:     a.transport,
		Run:           dash.Run,
		Clock:         a.clock,
		Interval:      a.cfg.Reconnect.Interval,
		Logger:        a.log,
		Endpoint:      a.endpoint,
		OnStateChange: a.onState,
	})
	return sup.Run(ctx)
}
