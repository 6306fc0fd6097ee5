// Package term is the terminal I/O layer: raw mode, viewport size, the
// keyboard enhancement probe and input decoding.
package term

import (
	"context"
	"io"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Terminal is the boundary between the renderer and the output device.
type Terminal interface {
	io.Writer

	// IsTerminal reports whether output goes to an interactive terminal.
	IsTerminal() bool
	// Size returns the viewport in cells.
	Size() (width, height int, err error)

	// EnableRaw switches input to raw mode. Restore undoes it and is safe
	// to call more than once.
	EnableRaw() error
	Restore() error

	// ProbeKeyboardEnhancement reports whether the terminal supports
	// disambiguated key reporting. It gives up after timeout and reports
	// false. It must be called before Events.
	ProbeKeyboardEnhancement(timeout time.Duration) bool

	// Events streams decoded input and resize events until ctx is done.
	Events(ctx context.Context) <-chan Event
}

// EscapeTimeout is how long a lone ESC waits for the rest of a sequence.
const EscapeTimeout = 50 * time.Millisecond

// WidthMode selects the display width of East Asian ambiguous characters.
type WidthMode string

const (
	WidthAuto   WidthMode = "auto"
	WidthNarrow WidthMode = "narrow"
	WidthWide   WidthMode = "wide"
)

// ConfigureWidth sets how ambiguous-width characters are measured. Auto
// follows the locale.
func ConfigureWidth(mode WidthMode) {
	wide := false
	switch mode {
	case WidthWide:
		wide = true
	case WidthNarrow:
	default:
		wide = runewidth.IsEastAsian()
	}
	if wide {
		uniseg.EastAsianAmbiguousWidth = 2
	} else {
		uniseg.EastAsianAmbiguousWidth = 1
	}
}
