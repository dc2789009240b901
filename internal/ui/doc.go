// Package ui renders the dronestatus status line.
//
// # Components
//
//	RenderBar          - fixed-width battery bar with a four band color scale
//	ComposeStatusLine  - joins timestamp, stream fragments, bar and readout
//	LineWriter         - carriage-return redraw of one terminal line
//	Spinner            - progress indicator for one-off checks
//
// # Colors
//
// The palette is the basic ANSI set. Battery bands, lower bound inclusive:
//
//	[0, 30)   red
//	[30, 70)  yellow
//	[70, 95)  green
//	[95, ...) blue
//
// Stream fragments use their own scale: green while live, red once stale.
//
// Use SetColorMode to honor display.color, or DisableColors for plain text.
package ui
