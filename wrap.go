package loom

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/rivo/uniseg"
)

// WrapMode selects how text is broken into lines.
type WrapMode uint8

const (
	// WrapWord breaks at word boundaries and falls back to grapheme
	// boundaries for runs wider than the line.
	WrapWord WrapMode = iota
	// WrapChar breaks between any two graphemes.
	WrapChar
	// WrapNone only breaks at explicit newlines; long lines are clipped.
	WrapNone
)

// Align positions a wrapped line inside its box.
type Align uint8

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// offset returns the column at which a line of lineW cells starts in a box of boxW cells.
func (a Align) offset(boxW, lineW int) int {
	free := boxW - lineW
	if free <= 0 {
		return 0
	}
	switch a {
	case AlignCenter:
		return free / 2
	case AlignEnd:
		return free
	}
	return 0
}

// textLine is one wrapped line as a byte range of the source text.
type textLine struct {
	start, end int
	width      int
}

// sanitize strips escape sequences and normalises whitespace that has no
// single-cell rendering.
func sanitize(s string) string {
	if strings.ContainsRune(s, '\x1b') {
		s = ansi.Strip(s)
	}
	if strings.ContainsAny(s, "\r\t") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
		s = strings.ReplaceAll(s, "\t", "    ")
	}
	return s
}

// Wrap breaks text into lines no wider than width cells. Explicit newlines are
// honoured and trailing whitespace is dropped from every line, so wrapping an
// already wrapped text at the same width yields the same lines.
func Wrap(text string, width int, mode WrapMode) []string {
	text = sanitize(text)
	lines := wrapLines(text, width, mode)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = text[l.start:l.end]
	}
	return out
}

// measureText returns the size of text wrapped at maxWidth.
func measureText(text string, maxWidth int, mode WrapMode) (w, h int) {
	lines := wrapLines(text, maxWidth, mode)
	for _, l := range lines {
		w = max(w, l.width)
	}
	return w, len(lines)
}

type wrapper struct {
	text  string
	width int
	mode  WrapMode
	lines []textLine

	// current line
	cur      textLine
	curEmpty bool
	spaceW   int // pending whitespace after cur.end

	// pending word
	wordStart, wordEnd int
	wordW              int
}

func wrapLines(text string, width int, mode WrapMode) []textLine {
	if text == "" {
		return nil
	}
	if width < 1 {
		width = 1
	}
	w := &wrapper{text: text, width: width, mode: mode}
	w.startLine(0)

	state := -1
	pos := 0
	rest := text
	for len(rest) > 0 {
		var cluster string
		var boundaries int
		cluster, rest, boundaries, state = uniseg.StepString(rest, state)
		cw := boundaries >> uniseg.ShiftWidth
		next := pos + len(cluster)

		switch {
		case cluster == "\n":
			w.flushWord()
			w.emit()
			w.startLine(next)
		case cluster == " ":
			w.flushWord()
			w.spaceW += cw
		default:
			if w.wordW == 0 && w.wordEnd == w.wordStart {
				w.wordStart = pos
			}
			w.wordEnd = next
			w.wordW += cw
			if mode == WrapChar || boundaries&uniseg.MaskLine == uniseg.LineCanBreak {
				w.flushWord()
			}
		}
		pos = next
	}
	w.flushWord()
	w.emit()
	return w.lines
}

func (w *wrapper) startLine(at int) {
	w.cur = textLine{start: at, end: at}
	w.curEmpty = true
	w.spaceW = 0
	w.wordStart, w.wordEnd, w.wordW = at, at, 0
}

func (w *wrapper) emit() {
	w.lines = append(w.lines, w.cur)
}

// flushWord commits the pending word to the current line, breaking first when
// it does not fit.
func (w *wrapper) flushWord() {
	if w.wordEnd == w.wordStart {
		return
	}
	start, end, ww := w.wordStart, w.wordEnd, w.wordW
	w.wordStart, w.wordEnd, w.wordW = end, end, 0

	if w.mode == WrapNone || w.cur.width+w.spaceW+ww <= w.width {
		w.cur.end = end
		w.cur.width += w.spaceW + ww
		w.curEmpty = false
		w.spaceW = 0
		return
	}

	if !w.curEmpty {
		w.emit()
	}
	// Soft breaks drop the whitespace between the lines.
	w.cur = textLine{start: start, end: start}
	w.curEmpty = true
	w.spaceW = 0

	if ww <= w.width {
		w.cur.end = end
		w.cur.width = ww
		w.curEmpty = false
		return
	}
	w.splitGraphemes(start, end)
}

// splitGraphemes lays out an unbreakable run wider than the line, one grapheme
// at a time. The last partial line stays open for the following word.
func (w *wrapper) splitGraphemes(start, end int) {
	state := -1
	pos := start
	rest := w.text[start:end]
	for len(rest) > 0 {
		var cluster string
		var cw int
		cluster, rest, cw, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if w.cur.width+cw > w.width && !w.curEmpty {
			w.emit()
			w.cur = textLine{start: pos, end: pos}
		}
		pos += len(cluster)
		w.cur.end = pos
		w.cur.width += cw
		w.curEmpty = false
	}
}
