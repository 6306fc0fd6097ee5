package loom

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"loom/term"
)

// ScreenMode selects how frames reach the output.
type ScreenMode uint8

const (
	// ModeFullscreen owns the whole viewport and moves the cursor absolutely.
	ModeFullscreen ScreenMode = iota
	// ModeInline renders below the cursor and reprints in place.
	ModeInline
	// ModePlain writes no escape sequences; the final frame is printed as
	// lines of text on Close.
	ModePlain
)

func (m ScreenMode) String() string {
	switch m {
	case ModeFullscreen:
		return "fullscreen"
	case ModeInline:
		return "inline"
	case ModePlain:
		return "plain"
	}
	return fmt.Sprintf("ScreenMode(%d)", uint8(m))
}

// invalidCell never results from painting, so a front buffer filled with it
// differs from every painted cell.
var invalidCell = Cell{Glyph: "", Width: 1}

// Screen turns frames into terminal output. It double-buffers: painting goes
// to the back buffer, and Flush writes only what differs from the front
// buffer, which mirrors the terminal.
type Screen struct {
	out  io.Writer
	mode ScreenMode

	// viewport
	width  int
	height int

	front *Buffer
	back  *Buffer

	// invalid forces the next flush to treat every cell as changed.
	invalid bool
	// inlineLines is the number of rows the last inline frame occupies.
	inlineLines int
	// above holds lines to print above the frame on the next flush.
	above []string

	sync    bool
	inSync  bool
	profile termenv.Profile
	colors  map[Color]Color

	lastStyle Style
	buf       []byte
	stats     FlushStats
	closed    bool
}

// FlushStats describes the most recent flush.
type FlushStats struct {
	DirtyRows   int
	ChangedRows int
	Moves       int
	Bytes       int
}

// NewScreen creates a screen of the given viewport writing to out. Colors are
// emitted as true color and updates are not synchronized until configured.
func NewScreen(out io.Writer, mode ScreenMode, width, height int) *Screen {
	width, height = max(width, 0), max(height, 0)
	s := &Screen{
		out:       out,
		mode:      mode,
		width:     width,
		height:    height,
		front:     NewBuffer(0, 0),
		back:      NewBuffer(0, 0),
		invalid:   true,
		profile:   termenv.TrueColor,
		colors:    make(map[Color]Color),
		lastStyle: DefaultStyle(),
	}
	return s
}

// SetProfile sets the color capability colors are degraded to.
func (s *Screen) SetProfile(p termenv.Profile) {
	if p != s.profile {
		s.profile = p
		clear(s.colors)
		s.Invalidate()
	}
}

// SetSync enables wrapping every flush in a synchronized update.
func (s *Screen) SetSync(on bool) {
	s.sync = on
}

// Mode returns the output mode.
func (s *Screen) Mode() ScreenMode {
	return s.mode
}

// SetMode switches the output mode. The next flush repaints everything.
func (s *Screen) SetMode(m ScreenMode) {
	if m != s.mode {
		s.mode = m
		s.inlineLines = 0
		s.Invalidate()
	}
}

// Size returns the viewport dimensions.
func (s *Screen) Size() (width, height int) {
	return s.width, s.height
}

// Resize changes the viewport. The next flush repaints everything.
func (s *Screen) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == s.width && height == s.height {
		return
	}
	s.width, s.height = width, height
	s.Invalidate()
}

// Invalidate makes the next flush treat every cell as changed.
func (s *Screen) Invalidate() {
	s.invalid = true
}

// Prepare readies the back buffer for a frame of the given number of rows and
// returns it. Fullscreen frames always cover the viewport.
func (s *Screen) Prepare(rows int) *Buffer {
	if s.mode == ModeFullscreen {
		rows = s.height
	}
	rows = max(rows, 0)
	if s.back.Width() != s.width || s.back.Height() != rows {
		s.back.Resize(s.width, rows)
	} else {
		s.back.Clear()
	}
	return s.back
}

// Println queues text to be printed above the frame, one line per newline
// separated part. Inline screens print it on the next flush and redraw the
// frame below it; plain screens print it on the next flush. Fullscreen
// screens hold it until the session ends, see heldOutput.
func (s *Screen) Println(text ...string) {
	for _, t := range text {
		for _, line := range strings.Split(t, "\n") {
			s.above = append(s.above, strings.TrimSuffix(line, "\r"))
		}
	}
}

// pendingOutput reports whether the next flush has lines to print.
func (s *Screen) pendingOutput() bool {
	return len(s.above) > 0 && s.mode != ModeFullscreen
}

// heldOutput returns and forgets the lines a fullscreen screen could not
// print, terminated for a terminal in raw mode.
func (s *Screen) heldOutput() []byte {
	var b []byte
	for _, line := range s.above {
		b = append(b, line...)
		b = append(b, '\r', '\n')
	}
	s.above = nil
	return b
}

// appendAbove writes the queued lines and forgets them.
func (s *Screen) appendAbove(b []byte, eol string) []byte {
	for _, line := range s.above {
		b = append(b, line...)
		b = append(b, eol...)
	}
	s.above = s.above[:0]
	return b
}

// Buffer returns the back buffer.
func (s *Screen) Buffer() *Buffer {
	return s.back
}

// Stats returns statistics of the most recent flush.
func (s *Screen) Stats() FlushStats {
	return s.stats
}

// Flush writes the changes between the back buffer and what is displayed.
// Nothing is written when the frame is unchanged.
func (s *Screen) Flush() error {
	if s.closed {
		return nil
	}
	s.stats = FlushStats{}
	var b []byte
	switch s.mode {
	case ModeFullscreen:
		b = s.flushFullscreen()
	case ModeInline:
		b = s.flushInline()
	case ModePlain:
		b = s.appendAbove(s.buf[:0], "\n")
		s.buf = b
		s.back.ClearDirtyFlags()
		s.invalid = false
	}
	s.stats.Bytes = len(b)
	if debugFlush {
		Logger().Debug("flush",
			"mode", s.mode.String(),
			"dirty_rows", s.stats.DirtyRows,
			"changed_rows", s.stats.ChangedRows,
			"moves", s.stats.Moves,
			"bytes", s.stats.Bytes)
	}
	if len(b) == 0 {
		return nil
	}
	return s.write(b)
}

// write sends one frame of output, bracketed by a synchronized update when
// enabled. inSync stays set if the write fails so Close can end the update.
func (s *Screen) write(frame []byte) error {
	out := frame
	if s.sync && s.mode != ModePlain {
		out = make([]byte, 0, len(frame)+len(term.BeginSync)+len(term.EndSync))
		out = append(out, term.BeginSync...)
		out = append(out, frame...)
		out = append(out, term.EndSync...)
		s.inSync = true
	}
	if _, err := s.out.Write(out); err != nil {
		return envError("screen.flush", err)
	}
	s.inSync = false
	return nil
}

func (s *Screen) flushFullscreen() []byte {
	b := s.buf[:0]
	w, h := s.back.Width(), s.back.Height()
	if s.front.Width() != w || s.front.Height() != h {
		s.front.Resize(w, h)
		s.invalid = true
	}
	full := s.invalid
	if full {
		s.front.Fill(invalidCell)
		b = append(b, term.ResetStyle...)
		b = append(b, term.CursorHome...)
		b = append(b, term.ClearScreen...)
		s.lastStyle = DefaultStyle()
	}

	for y := 0; y < h; y++ {
		if !full && !s.back.RowDirty(y) {
			continue
		}
		s.stats.DirtyRows++
		back, front := s.back.Row(y), s.front.Row(y)
		cursorX := -1
		rowChanged := false
		for x := 0; x < w; x++ {
			c := back[x]
			if c == front[x] {
				continue
			}
			front[x] = c
			if c.continuation() {
				continue
			}
			if !rowChanged {
				rowChanged = true
				s.stats.ChangedRows++
			}
			if cursorX != x {
				b = term.AppendMoveTo(b, x, y)
				s.stats.Moves++
			}
			b = s.appendCell(b, c)
			cursorX = x + max(int(c.Width), 1)
		}
	}

	if s.stats.ChangedRows > 0 {
		b = s.appendReset(b)
	}
	s.back.ClearDirtyFlags()
	s.invalid = false
	s.buf = b
	return b
}

func (s *Screen) flushInline() []byte {
	b := s.buf[:0]
	rows, prev := s.back.Height(), s.inlineLines
	full := s.invalid || len(s.above) > 0
	if s.front.Width() != s.back.Width() {
		full = true
	}
	if !full && rows == prev && !s.inlineChanged() {
		s.back.ClearDirtyFlags()
		return b
	}

	// Rewind to the first row of the previous frame. A frame taller than
	// the viewport has scrolled out of reach, so the screen is purged instead.
	purged := false
	switch {
	case prev > s.height:
		b = append(b, term.ResetStyle...)
		b = append(b, term.PurgeScreen...)
		s.lastStyle = DefaultStyle()
		full, purged = true, true
	case prev > 0:
		b = append(b, '\r')
		b = term.AppendCursorUp(b, prev-1)
	}

	// Lines printed above the frame take the frame's place and push it down.
	if len(s.above) > 0 {
		b = s.appendReset(b)
		if !purged {
			b = append(b, '\r')
			b = append(b, term.ClearBelow...)
		}
		b = s.appendAbove(b, "\r\n")
		b = append(b, term.ResetStyle...)
		prev = 0
	}

	for y := 0; y < rows; y++ {
		if y > 0 {
			b = append(b, '\r', '\n')
		}
		row := s.back.Row(y)
		if !full && y < prev && rowsEqual(row, s.front.Row(y)) {
			continue
		}
		s.stats.ChangedRows++
		b = append(b, '\r')
		var filled bool
		b, filled = s.appendLine(b, row)
		b = s.appendReset(b)
		if !filled {
			b = append(b, term.ClearLine...)
		}
	}
	s.stats.DirtyRows = rows

	if rows < prev && !purged {
		if rows == 0 {
			b = append(b, '\r')
			b = append(b, term.ClearBelow...)
		} else {
			b = term.AppendCursorDown(b, 1)
			b = append(b, '\r')
			b = append(b, term.ClearBelow...)
			b = term.AppendCursorUp(b, 1)
		}
	}

	s.front.Resize(s.back.Width(), rows)
	for y := 0; y < rows; y++ {
		copy(s.front.Row(y), s.back.Row(y))
	}
	s.inlineLines = rows
	s.back.ClearDirtyFlags()
	s.invalid = false
	s.buf = b
	return b
}

func (s *Screen) inlineChanged() bool {
	for y := 0; y < s.back.Height(); y++ {
		if s.back.RowDirty(y) && !rowsEqual(s.back.Row(y), s.front.Row(y)) {
			return true
		}
	}
	return false
}

func rowsEqual(a, b []Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// appendLine writes a row up to its last non-blank cell. filled reports
// whether the last column was written, which leaves nothing to clear: erasing
// from a cursor parked past the last column would erase that column.
func (s *Screen) appendLine(b []byte, row []Cell) (out []byte, filled bool) {
	end := len(row)
	empty := EmptyCell()
	for end > 0 && row[end-1] == empty {
		end--
	}
	for _, c := range row[:end] {
		if c.continuation() {
			continue
		}
		b = s.appendCell(b, c)
	}
	return b, end > 0 && end == len(row)
}

// appendCell writes a cell's style, if it changed, and its glyph.
func (s *Screen) appendCell(b []byte, c Cell) []byte {
	style := s.convertStyle(c.Style)
	if style != s.lastStyle {
		b = appendStyle(b, style)
		s.lastStyle = style
	}
	if c.Glyph == "" {
		return append(b, ' ')
	}
	return append(b, c.Glyph...)
}

func (s *Screen) appendReset(b []byte) []byte {
	if s.lastStyle != DefaultStyle() {
		b = append(b, term.ResetStyle...)
		s.lastStyle = DefaultStyle()
	}
	return b
}

// convertStyle degrades a style to the color profile of the output.
func (s *Screen) convertStyle(st Style) Style {
	if s.profile == termenv.Ascii {
		return DefaultStyle()
	}
	st.FG = s.convertColor(st.FG)
	st.BG = s.convertColor(st.BG)
	return st
}

func (s *Screen) convertColor(c Color) Color {
	if c.Mode == ColorDefault || s.profile == termenv.TrueColor {
		return c
	}
	if v, ok := s.colors[c]; ok {
		return v
	}
	var tc termenv.Color
	switch c.Mode {
	case ColorRGB:
		tc = termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
	case Color256:
		tc = termenv.ANSI256Color(c.Index)
	default:
		return c
	}
	out := c
	switch v := s.profile.Convert(tc).(type) {
	case termenv.ANSIColor:
		out = BasicColor(uint8(v))
	case termenv.ANSI256Color:
		out = PaletteColor(uint8(v))
	case termenv.NoColor:
		out = DefaultColor()
	}
	s.colors[c] = out
	return out
}

// Close ends any open synchronized update and leaves the cursor below inline
// output. Plain screens print their final frame here.
func (s *Screen) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var b []byte
	if s.inSync {
		b = append(b, term.EndSync...)
		s.inSync = false
	}
	switch s.mode {
	case ModeInline:
		b = s.appendReset(b)
		if s.inlineLines > 0 {
			b = append(b, '\r', '\n')
		}
	case ModePlain:
		for _, line := range s.back.Lines() {
			b = append(b, line...)
			b = append(b, '\n')
		}
	default:
		b = s.appendReset(b)
	}
	if len(b) == 0 {
		return nil
	}
	if _, err := s.out.Write(b); err != nil {
		return envError("screen.close", err)
	}
	return nil
}

// appendStyle writes the SGR sequence selecting style.
func appendStyle(b []byte, style Style) []byte {
	b = append(b, "\x1b[0"...)

	if style.Attr.Has(AttrBold) {
		b = append(b, ";1"...)
	}
	if style.Attr.Has(AttrDim) {
		b = append(b, ";2"...)
	}
	if style.Attr.Has(AttrItalic) {
		b = append(b, ";3"...)
	}
	if style.Attr.Has(AttrUnderline) {
		b = append(b, ";4"...)
	}
	if style.Attr.Has(AttrBlink) {
		b = append(b, ";5"...)
	}
	if style.Attr.Has(AttrInverse) {
		b = append(b, ";7"...)
	}
	if style.Attr.Has(AttrStrikethrough) {
		b = append(b, ";9"...)
	}

	b = appendColor(b, style.FG, true)
	b = appendColor(b, style.BG, false)
	return append(b, 'm')
}

// appendColor writes the SGR parameters for a color. The default color needs
// none since every sequence starts with a reset.
func appendColor(b []byte, c Color, fg bool) []byte {
	switch c.Mode {
	case Color16:
		base := 30
		if !fg {
			base = 40
		}
		idx := int(c.Index & 0x0f)
		if idx >= 8 {
			base += 60
			idx -= 8
		}
		b = append(b, ';')
		b = term.AppendInt(b, base+idx)
	case Color256:
		if fg {
			b = append(b, ";38;5;"...)
		} else {
			b = append(b, ";48;5;"...)
		}
		b = term.AppendInt(b, int(c.Index))
	case ColorRGB:
		if fg {
			b = append(b, ";38;2;"...)
		} else {
			b = append(b, ";48;2;"...)
		}
		b = term.AppendInt(b, int(c.R))
		b = append(b, ';')
		b = term.AppendInt(b, int(c.G))
		b = append(b, ';')
		b = term.AppendInt(b, int(c.B))
	}
	return b
}
