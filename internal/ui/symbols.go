package ui

// Unicode symbols for command output.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
)
