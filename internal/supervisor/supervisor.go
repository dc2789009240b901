// Package supervisor keeps the dashboard attached to the telemetry source.
//
// While the source is unreachable the supervisor sits in WAITING and polls
// it once per interval. When it comes up, the supervisor connects, moves to
// CONNECTED and hands the session to the refresh loop. If the loop reports
// that the transport went away, the supervisor drops back to WAITING.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/dronestatus/internal/clock"
	"github.com/rileyhilliard/dronestatus/internal/logger"
	"github.com/rileyhilliard/dronestatus/internal/transport"
)

// DefaultInterval is the WAITING poll period.
const DefaultInterval = time.Second

// State of the connection.
type State int32

const (
	StateWaiting State = iota
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	default:
		return "WAITING"
	}
}

// RunFunc drives a connected session until ctx is done or the session is
// lost. It should return transport.ErrSessionLost on loss.
type RunFunc func(ctx context.Context, session transport.Session) error

// Config configures a Supervisor.
type Config struct {
	Transport transport.Transport
	Run       RunFunc
	Clock     clock.Clock
	Interval  time.Duration
	Logger    logger.Logger
	// Endpoint names the source in the waiting log line.
	Endpoint string
	// OnStateChange, when set, is called on every transition.
	OnStateChange func(State)
}

// Supervisor runs the WAITING/CONNECTED state machine.
type Supervisor struct {
	cfg   Config
	state atomic.Int32
}

// New creates a Supervisor starting in WAITING.
func New(cfg Config) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	return &Supervisor{cfg: cfg}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(st)
	}
}

// Run loops until ctx is cancelled, returning nil on a clean shutdown. Any
// error from the RunFunc other than transport loss ends the loop and is
// returned. An error returned after the session has already ended counts as
// transport loss.
func (s *Supervisor) Run(ctx context.Context) error {
	immediate := true
	for {
		session, ok := s.wait(ctx, immediate)
		if !ok {
			return nil
		}

		s.setState(StateConnected)
		s.cfg.Logger.Debug("connected to %s", s.cfg.Endpoint)
		err := s.cfg.Run(ctx, session)
		lost := ended(session)
		if cerr := session.Close(); cerr != nil {
			s.cfg.Logger.Debug("closing session: %v", cerr)
		}
		s.setState(StateWaiting)

		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !lost && !errors.Is(err, transport.ErrSessionLost) {
			return err
		}
		if err != nil {
			s.cfg.Logger.Warn("lost connection to %s: %v", s.cfg.Endpoint, err)
		} else {
			s.cfg.Logger.Warn("lost connection to %s", s.cfg.Endpoint)
		}
		// Retry on the next tick so a link that drops right after the
		// handshake is not redialled in a tight loop.
		immediate = false
	}
}

// wait polls the transport until it is online and a session opens. The
// first poll happens at once when immediate is set, otherwise after one
// interval. It reports false if ctx ends first.
func (s *Supervisor) wait(ctx context.Context, immediate bool) (transport.Session, bool) {
	ticker := s.cfg.Clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if !immediate {
		select {
		case <-ctx.Done():
			return nil, false
		case <-ticker.C():
		}
	}

	for {
		if ctx.Err() != nil {
			return nil, false
		}
		if session := s.poll(ctx); session != nil {
			return session, true
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-ticker.C():
		}
	}
}

func ended(session transport.Session) bool {
	select {
	case <-session.Done():
		return true
	default:
		return false
	}
}

func (s *Supervisor) poll(ctx context.Context) transport.Session {
	if !s.cfg.Transport.Online(ctx) {
		if ctx.Err() == nil {
			s.cfg.Logger.Info("[%s] Waiting for %s", formatWallTime(s.cfg.Clock.Now()), s.cfg.Endpoint)
		}
		return nil
	}
	session, err := s.cfg.Transport.Connect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.cfg.Logger.Warn("connect to %s: %v", s.cfg.Endpoint, err)
		}
		return nil
	}
	return session
}

func formatWallTime(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}
