package loom

import "strings"

// Rect is a rectangle in cell coordinates with a top-left origin.
type Rect struct {
	X, Y int
	W, H int
}

// Union returns the smallest rectangle covering r and o. Empty rectangles
// are ignored.
func (r Rect) Union(o Rect) Rect {
	if o.Empty() {
		return r
	}
	if r.Empty() {
		return o
	}
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.W, o.X+o.W), max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Contains reports whether the cell (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Intersect returns the overlap of two rectangles.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{X: x0, Y: y0}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Buffer is a 2D grid of cells: one Frame of output.
type Buffer struct {
	cells  []Cell
	width  int
	height int
	dirty  []bool // rows written since the last ClearDirtyFlags
}

// NewBuffer creates a new buffer with the given dimensions.
func NewBuffer(width, height int) *Buffer {
	width, height = max(width, 0), max(height, 0)
	b := &Buffer{
		cells:  make([]Cell, width*height),
		width:  width,
		height: height,
		dirty:  make([]bool, height),
	}
	b.Clear()
	return b
}

// Width returns the buffer width.
func (b *Buffer) Width() int {
	return b.width
}

// Height returns the buffer height.
func (b *Buffer) Height() int {
	return b.height
}

// Bounds returns the rectangle covering the whole buffer.
func (b *Buffer) Bounds() Rect {
	return Rect{W: b.width, H: b.height}
}

// InBounds returns true if the given coordinates are within the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Buffer) index(x, y int) int {
	return y*b.width + x
}

// Get returns the cell at the given coordinates.
// Returns an empty cell if out of bounds.
func (b *Buffer) Get(x, y int) Cell {
	if !b.InBounds(x, y) {
		return EmptyCell()
	}
	return b.cells[b.index(x, y)]
}

// Set sets the cell at the given coordinates. Does nothing if out of bounds.
func (b *Buffer) Set(x, y int, c Cell) {
	if !b.InBounds(x, y) {
		return
	}
	b.put(x, y, c)
}

// put stores c and repairs any double-width glyph it cuts in half, so the grid
// never holds a head without its continuation or the reverse.
func (b *Buffer) put(x, y int, c Cell) {
	idx := b.index(x, y)
	old := b.cells[idx]
	if old.Width == 2 && x+1 < b.width {
		b.cells[idx+1] = Cell{Glyph: " ", Width: 1, Style: b.cells[idx+1].Style}
	}
	if old.continuation() && c.Width != 0 && x > 0 {
		b.cells[idx-1] = Cell{Glyph: " ", Width: 1, Style: b.cells[idx-1].Style}
	}
	b.cells[idx] = c
	b.dirty[y] = true
}

// SetGlyph writes one grapheme cluster of the given display width at (x, y),
// restricted to clip. A double-width glyph whose right half would fall outside
// clip or the buffer is replaced by a single blank so it never spills.
func (b *Buffer) SetGlyph(x, y int, glyph string, width int, style Style, clip Rect) {
	if !clip.Contains(x, y) || !b.InBounds(x, y) {
		return
	}
	if width == 2 && (!clip.Contains(x+1, y) || !b.InBounds(x+1, y)) {
		b.put(x, y, Cell{Glyph: " ", Width: 1, Style: style})
		return
	}
	if width != 2 {
		b.put(x, y, Cell{Glyph: glyph, Width: 1, Style: style})
		return
	}
	b.put(x, y, Cell{Glyph: glyph, Width: 2, Style: style})
	b.put(x+1, y, Cell{Width: 0, Style: style})
}

// Fill fills the entire buffer with the given cell.
func (b *Buffer) Fill(c Cell) {
	for i := range b.cells {
		b.cells[i] = c
	}
	for y := range b.dirty {
		b.dirty[y] = true
	}
}

// Clear resets the buffer to empty cells with default style. Only rows that
// held content are marked dirty.
func (b *Buffer) Clear() {
	empty := EmptyCell()
	for y := 0; y < b.height; y++ {
		row := b.Row(y)
		for x := range row {
			if row[x] != empty {
				for i := range row {
					row[i] = empty
				}
				b.dirty[y] = true
				break
			}
		}
	}
}

// FillRect fills the part of r inside clip with blanks of the given style.
func (b *Buffer) FillRect(r Rect, style Style, clip Rect) {
	r = r.Intersect(clip).Intersect(b.Bounds())
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			b.put(x, y, Cell{Glyph: " ", Width: 1, Style: style})
		}
	}
}

// Resize changes the buffer dimensions, discarding its content.
func (b *Buffer) Resize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == b.width && height == b.height {
		return
	}
	b.width = width
	b.height = height
	b.cells = make([]Cell, width*height)
	b.dirty = make([]bool, height)
	b.Clear()
}

// RowDirty reports whether row y was written since the last ClearDirtyFlags.
func (b *Buffer) RowDirty(y int) bool {
	return y >= 0 && y < b.height && b.dirty[y]
}

// MarkDirty flags every row as written.
func (b *Buffer) MarkDirty() {
	for y := range b.dirty {
		b.dirty[y] = true
	}
}

// ClearDirtyFlags resets row tracking after a flush.
func (b *Buffer) ClearDirtyFlags() {
	for y := range b.dirty {
		b.dirty[y] = false
	}
}

// Row returns the cells of row y. The slice aliases the buffer.
func (b *Buffer) Row(y int) []Cell {
	if y < 0 || y >= b.height {
		return nil
	}
	return b.cells[y*b.width : (y+1)*b.width]
}

// GetLine returns row y as plain text with trailing blanks removed.
func (b *Buffer) GetLine(y int) string {
	var sb strings.Builder
	for _, c := range b.Row(y) {
		if c.continuation() {
			continue
		}
		sb.WriteString(c.Glyph)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Lines returns every row as plain text.
func (b *Buffer) Lines() []string {
	lines := make([]string, b.height)
	for y := range lines {
		lines[y] = b.GetLine(y)
	}
	return lines
}

// String returns the buffer as plain text, one line per row.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}

// Sides selects which sides of a box a border is drawn on.
type Sides uint8

const (
	SideTop Sides = 1 << iota
	SideRight
	SideBottom
	SideLeft

	AllSides = SideTop | SideRight | SideBottom | SideLeft
)

// BorderStyle defines the characters used for drawing borders.
// The zero value draws no border.
type BorderStyle struct {
	Top, Bottom rune
	Left, Right rune
	TopLeft     rune
	TopRight    rune
	BottomLeft  rune
	BottomRight rune
}

// IsZero reports whether the style draws nothing.
func (s BorderStyle) IsZero() bool {
	return s == BorderStyle{}
}

// Standard border styles.
var (
	BorderNone   = BorderStyle{}
	BorderSingle = BorderStyle{
		Top: '─', Bottom: '─', Left: '│', Right: '│',
		TopLeft: '┌', TopRight: '┐', BottomLeft: '└', BottomRight: '┘',
	}
	BorderRound = BorderStyle{
		Top: '─', Bottom: '─', Left: '│', Right: '│',
		TopLeft: '╭', TopRight: '╮', BottomLeft: '╰', BottomRight: '╯',
	}
	BorderDouble = BorderStyle{
		Top: '═', Bottom: '═', Left: '║', Right: '║',
		TopLeft: '╔', TopRight: '╗', BottomLeft: '╚', BottomRight: '╝',
	}
	BorderBold = BorderStyle{
		Top: '━', Bottom: '━', Left: '┃', Right: '┃',
		TopLeft: '┏', TopRight: '┓', BottomLeft: '┗', BottomRight: '┛',
	}
	BorderDoubleLeftRight = BorderStyle{
		Top: '─', Bottom: '─', Left: '║', Right: '║',
		TopLeft: '╓', TopRight: '╖', BottomLeft: '╙', BottomRight: '╜',
	}
	BorderDoubleTopBottom = BorderStyle{
		Top: '═', Bottom: '═', Left: '│', Right: '│',
		TopLeft: '╒', TopRight: '╕', BottomLeft: '╘', BottomRight: '╛',
	}
	BorderClassic = BorderStyle{
		Top: '-', Bottom: '-', Left: '|', Right: '|',
		TopLeft: '+', TopRight: '+', BottomLeft: '+', BottomRight: '+',
	}
)

// DrawBorder draws the selected sides of a border around r, restricted to clip.
// A default background keeps the background already under each cell.
func (b *Buffer) DrawBorder(r Rect, border BorderStyle, sides Sides, style Style, clip Rect) {
	if border.IsZero() || r.Empty() {
		return
	}
	set := func(x, y int, ch rune) {
		if clip.Contains(x, y) && b.InBounds(x, y) {
			st := style
			if st.BG.Mode == ColorDefault {
				st.BG = b.Get(x, y).Style.BG
			}
			b.put(x, y, Cell{Glyph: string(ch), Width: 1, Style: st})
		}
	}
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W-1, r.Y+r.H-1
	top, bottom := sides&SideTop != 0, sides&SideBottom != 0
	left, right := sides&SideLeft != 0, sides&SideRight != 0

	if top {
		for x := x0; x <= x1; x++ {
			set(x, y0, border.Top)
		}
	}
	if bottom {
		for x := x0; x <= x1; x++ {
			set(x, y1, border.Bottom)
		}
	}
	if left {
		for y := y0; y <= y1; y++ {
			set(x0, y, border.Left)
		}
	}
	if right {
		for y := y0; y <= y1; y++ {
			set(x1, y, border.Right)
		}
	}

	// Corners only where both adjoining edges are drawn.
	if top && left {
		set(x0, y0, border.TopLeft)
	}
	if top && right {
		set(x1, y0, border.TopRight)
	}
	if bottom && left {
		set(x0, y1, border.BottomLeft)
	}
	if bottom && right {
		set(x1, y1, border.BottomRight)
	}
}
