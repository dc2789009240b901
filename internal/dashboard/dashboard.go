// Package dashboard implements the refresh loop that renders the drone
// status line.
//
// Transport handlers write samples into a telemetry.Tracker as they arrive.
// Independently, Run redraws the line on a fixed tick, recomputing liveness
// from sample ages each time, so a silent stream turns red without any
// explicit offline event and a slow stream never delays a redraw.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/dronestatus/internal/battery"
	"github.com/rileyhilliard/dronestatus/internal/clock"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/rosmsg"
	"github.com/rileyhilliard/dronestatus/internal/telemetry"
	"github.com/rileyhilliard/dronestatus/internal/transport"
	"github.com/rileyhilliard/dronestatus/internal/ui"
)

// Defaults matching a 10 Hz display.
const (
	DefaultInterval          = 100 * time.Millisecond
	DefaultStaleAfter        = 100 * time.Millisecond
	DefaultBatteryStaleAfter = 2 * time.Second
	DefaultBarWidth          = 10
	DefaultBatteryTopic      = "/dji_sdk_1/dji_sdk/battery_state"
	DefaultPositionTopic     = "/uwb_vicon_odom"
)

// PositionLabel is the status line label for the position stream.
const PositionLabel = "VO"

// State is the refresh loop state.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	default:
		return "stopped"
	}
}

// Options configures a Dashboard.
type Options struct {
	BatteryTopic      string
	PositionTopic     string
	Interval          time.Duration
	StaleAfter        time.Duration
	BatteryStaleAfter time.Duration
	BarWidth          int
}

func (o *Options) applyDefaults() {
	if o.BatteryTopic == "" {
		o.BatteryTopic = DefaultBatteryTopic
	}
	if o.PositionTopic == "" {
		o.PositionTopic = DefaultPositionTopic
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.BatteryStaleAfter <= 0 {
		o.BatteryStaleAfter = DefaultBatteryStaleAfter
	}
	if o.BarWidth <= 0 {
		o.BarWidth = DefaultBarWidth
	}
}

// Dashboard renders tracked telemetry to a single terminal line.
type Dashboard struct {
	opts    Options
	tracker *telemetry.Tracker
	clock   clock.Clock
	line    *ui.LineWriter
	log     logger.Logger
	state   atomic.Int32
}

// NewTracker returns a tracker holding the startup placeholders the
// dashboard renders before any data arrives: 0 V and the origin.
func NewTracker(c clock.Clock) *telemetry.Tracker {
	return telemetry.NewTracker(c, map[telemetry.StreamID]any{
		telemetry.StreamBattery:  0.0,
		telemetry.StreamPosition: rosmsg.Point{},
	})
}

// New creates a Dashboard. The tracker outlives individual runs so the last
// known readings survive a reconnect.
func New(opts Options, tracker *telemetry.Tracker, c clock.Clock, line *ui.LineWriter, log logger.Logger) *Dashboard {
	opts.applyDefaults()
	if c == nil {
		c = clock.Real()
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Dashboard{
		opts:    opts,
		tracker: tracker,
		clock:   c,
		line:    line,
		log:     log,
	}
}

// State returns whether a Run is in progress.
func (d *Dashboard) State() State {
	return State(d.state.Load())
}

// Subscribe registers the battery and position handlers on session.
func (d *Dashboard) Subscribe(session transport.Session) error {
	if err := session.Subscribe(d.opts.BatteryTopic, rosmsg.TypeBatteryState, d.onBattery); err != nil {
		return err
	}
	return session.Subscribe(d.opts.PositionTopic, rosmsg.TypeOdometry, d.onPosition)
}

func (d *Dashboard) onBattery(payload json.RawMessage) {
	msg, err := rosmsg.DecodeBatteryState(payload)
	if err != nil {
		d.log.Debug("skipping battery sample: %v", err)
		return
	}
	d.tracker.Record(telemetry.StreamBattery, msg.Voltage)
}

func (d *Dashboard) onPosition(payload json.RawMessage) {
	msg, err := rosmsg.DecodeOdometry(payload)
	if err != nil {
		d.log.Debug("skipping position sample: %v", err)
		return
	}
	d.tracker.Record(telemetry.StreamPosition, msg.Position())
}

// Frame is one rendering of the dashboard.
type Frame struct {
	Time         time.Time
	PositionLive bool
	BatteryLive  bool
	Position     rosmsg.Point
	Voltage      float64
	Bar          ui.Bar
}

// StatusLine lays the frame out for the composer.
func (f Frame) StatusLine() ui.StatusLine {
	return ui.StatusLine{
		Time: f.Time,
		Streams: []ui.Fragment{{
			Label: PositionLabel,
			Value: ui.FormatPosition(f.Position.X, f.Position.Y, f.Position.Z),
			Live:  f.PositionLive,
		}},
		BatteryLive: f.BatteryLive,
		Bar:         f.Bar,
		Suffix:      ui.FormatVoltage(f.Voltage),
	}
}

func (f Frame) String() string {
	return ui.ComposeStatusLine(f.StatusLine())
}

// Frame evaluates liveness and readings at now.
func (d *Dashboard) Frame(now time.Time) Frame {
	voltage := telemetry.Value[float64](d.tracker, telemetry.StreamBattery)
	percent := battery.VoltageToPercent(voltage) * 100

	return Frame{
		Time:         now,
		PositionLive: d.tracker.IsLiveAt(telemetry.StreamPosition, d.opts.StaleAfter, now),
		BatteryLive:  d.tracker.IsLiveAt(telemetry.StreamBattery, d.opts.BatteryStaleAfter, now),
		Position:     telemetry.Value[rosmsg.Point](d.tracker, telemetry.StreamPosition),
		Voltage:      voltage,
		Bar:          ui.RenderBar(percent, 100, d.opts.BarWidth),
	}
}

func (d *Dashboard) render() error {
	return d.line.Redraw(d.Frame(d.clock.Now()).String())
}

// Run subscribes on session and redraws the status line every interval.
//
// It returns nil when ctx is cancelled and transport.ErrSessionLost when the
// session ends underneath it. A failed subscription counts as a lost
// session. Once running, the line is terminated with a newline before
// returning.
func (d *Dashboard) Run(ctx context.Context, session transport.Session) error {
	if err := d.Subscribe(session); err != nil {
		return fmt.Errorf("%w: subscribe: %v", transport.ErrSessionLost, err)
	}

	d.state.Store(int32(StateRunning))
	defer d.state.Store(int32(StateStopped))

	ticker := d.clock.NewTicker(d.opts.Interval)
	defer ticker.Stop()
	defer func() {
		if err := d.line.Finish(); err != nil {
			d.log.Debug("finishing status line: %v", err)
		}
	}()

	if err := d.render(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return transport.ErrSessionLost
		case <-ticker.C():
			if ctx.Err() != nil {
				return nil
			}
			select {
			case <-session.Done():
				return transport.ErrSessionLost
			default:
			}
			if err := d.render(); err != nil {
				return err
			}
		}
	}
}
