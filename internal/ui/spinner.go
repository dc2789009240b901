package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// SpinnerInterval is the animation frame period.
const SpinnerInterval = 80 * time.Millisecond

// Spinner shows an animated indicator next to a label while a one-off check
// runs, then settles on ✓ or ✗ with the elapsed time.
type Spinner struct {
	mu        sync.Mutex
	line      *LineWriter
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	stop      chan struct{}
	done      chan struct{}
}

// NewSpinner creates a spinner drawing on out.
func NewSpinner(out io.Writer, label string) *Spinner {
	return &Spinner{
		line:  NewLineWriter(out, nil),
		label: label,
		state: SpinnerPending,
	}
}

// Start begins the animation. It is a no-op if already started.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.state != SpinnerPending {
		s.mu.Unlock()
		return
	}
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.render()
	go s.animate()
}

// Success stops the spinner with a check mark.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner with a cross.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) finish(state SpinnerState) {
	s.mu.Lock()
	if s.state != SpinnerInProgress {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.mu.Unlock()
	<-s.done

	s.mu.Lock()
	s.state = state
	symbol, color := SymbolSuccess, ColorGreen
	if state == SpinnerFailed {
		symbol, color = SymbolFail, ColorRed
	}
	line := fmt.Sprintf("%s %s %s",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		s.label,
		lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(time.Since(s.startTime))))
	s.mu.Unlock()

	_ = s.line.Redraw(line)
	_ = s.line.Finish()
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(SpinnerInterval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	line := fmt.Sprintf("%s %s...",
		lipgloss.NewStyle().Foreground(ColorBlue).Render(spinnerFrames[s.frame]),
		s.label)
	s.mu.Unlock()
	_ = s.line.Redraw(line)
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
