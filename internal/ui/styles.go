// Package ui renders CLI output with optional ANSI colour.
package ui

import "fmt"

// ANSI256 colour codes.
const (
	colorAccent   = 74  // blue
	colorMuted    = 245 // medium gray
	colorActive   = 114 // green
	colorInactive = 179 // amber
	colorError    = 203 // red
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) colour. Used for run names
// and day headings.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) colour.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderError returns s in red.
func RenderError(s string) string { return render(colorError, s) }

// RenderStatus renders a run's active flag as a coloured word.
func RenderStatus(active bool) string {
	if active {
		return render(colorActive, "active")
	}
	return render(colorInactive, "inactive")
}

// ForceNoColor disables colour output globally.
func ForceNoColor() {
	noColor = true
}
