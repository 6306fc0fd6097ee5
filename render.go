package loom

import (
	"io"

	"github.com/muesli/termenv"

	"loom/term"
)

// nopScheduler backs one-shot renders, which never re-render.
type nopScheduler struct{}

func (nopScheduler) post(func()) {}
func (nopScheduler) trigger()    {}
func (nopScheduler) exit()       {}

// renderFrame renders el once at the given width and returns its frame.
// Effects and tasks never run; the tree is unmounted before returning.
func renderFrame(el Element, width int) *Buffer {
	t := newTree(nopScheduler{})
	t.width = width
	t.close()
	defer t.unmountAll()

	t.render(el)
	t.flushDestroyed()
	b := NewBuffer(width, 0)
	if t.empty() {
		return b
	}
	b.Resize(width, t.layout(width, -1))
	t.paint(b)
	return b
}

// RenderString renders el once at the given width and returns the frame as
// plain text, one line per row with trailing blanks removed.
func RenderString(el Element, width int) string {
	return renderFrame(el, width).String()
}

// Fprint renders el once at the given width and writes it to w with styles,
// degraded to profile.
func Fprint(w io.Writer, el Element, width int, profile termenv.Profile) error {
	s := NewScreen(w, ModeInline, width, 0)
	s.SetProfile(profile)
	b := renderFrame(el, width)
	s.back = b
	if err := s.Flush(); err != nil {
		return err
	}
	return s.Close()
}

// Print renders el once to standard output at the terminal width. When
// output is not a terminal the frame is written as plain text.
func Print(el Element) error {
	std := term.NewStd(nil, nil)
	width, _, err := std.Size()
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	if !std.IsTerminal() {
		_, err := io.WriteString(std, RenderString(el, width)+"\n")
		return err
	}
	profile := termenv.NewOutput(std, termenv.WithTTY(true)).EnvColorProfile()
	return Fprint(std, el, width, profile)
}
