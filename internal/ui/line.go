package ui

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// LineWriter redraws a single terminal line in place with carriage returns.
// Lines wider than the terminal are truncated, since a wrapped line can no
// longer be overwritten with "\r".
type LineWriter struct {
	mu        sync.Mutex
	out       io.Writer
	termWidth func() int
	lastWidth int
	dirty     bool
}

// NewLineWriter creates a LineWriter on out. termWidth reports the current
// terminal width, or 0 when unknown; it may be nil.
func NewLineWriter(out io.Writer, termWidth func() int) *LineWriter {
	return &LineWriter{out: out, termWidth: termWidth}
}

// Redraw replaces the current line with line.
func (w *LineWriter) Redraw(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.termWidth != nil {
		// Leave the last column free so the cursor never wraps.
		if limit := w.termWidth() - 1; limit > 0 && lipgloss.Width(line) > limit {
			line = ansi.Truncate(line, limit, "")
		}
	}

	width := lipgloss.Width(line)
	pad := ""
	if width < w.lastWidth {
		pad = strings.Repeat(" ", w.lastWidth-width)
	}

	if _, err := io.WriteString(w.out, "\r"+line+pad); err != nil {
		return err
	}
	w.lastWidth = width
	w.dirty = true
	return nil
}

// Finish ends the current line with a newline so the terminal is left clean.
// It is a no-op when nothing has been drawn since the last Finish.
func (w *LineWriter) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty {
		return nil
	}
	w.dirty = false
	w.lastWidth = 0
	_, err := io.WriteString(w.out, "\n")
	return err
}
