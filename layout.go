package loom

import (
	"strings"

	"loom/flex"
)

// spanRange is the byte range of one Styled span inside the joined text.
type spanRange struct {
	start, end int
	style      Style
}

// layout projects the instance tree onto a flex tree, solves it for a
// viewport of width × height and stores each host instance's absolute box.
// A negative height leaves the height to the content. It returns the number
// of rows the content occupies.
func (t *tree) layout(width, height int) int {
	root := flex.NewNode()
	root.Style.Direction = flex.Column
	root.Style.Width = flex.Cells(width)
	if height >= 0 {
		root.Style.Height = flex.Cells(height)
	}
	if t.root != nil {
		t.attach(root, t.root)
	}
	flex.Solve(root, width, height)

	rows := 0
	for _, n := range root.Children {
		place(n, 0, 0)
		if n.Style.Display != flex.DisplayNone {
			rows = max(rows, n.Layout.Y+n.Layout.H+n.Style.Margin.Bottom)
		}
	}
	t.updateRects()
	if height >= 0 {
		return height
	}
	return rows
}

// updateRects records the box of every UseComponentRect caller and requests
// a render if one moved.
func (t *tree) updateRects() {
	moved := false
	for _, c := range t.rects {
		r := bounds(c.in)
		if !c.known || r != c.rect {
			c.rect, c.known = r, true
			moved = true
		}
	}
	if moved {
		t.sched.trigger()
	}
}

// bounds is the box of a host instance, or the union of its descendants'
// boxes for a transparent one.
func bounds(in *instance) Rect {
	if in.node != nil {
		return in.rect
	}
	var r Rect
	for _, c := range in.children {
		r = r.Union(bounds(c))
	}
	return r
}

// attach adds the layout node of in, or of its children when in is
// transparent, to parent.
func (t *tree) attach(parent *flex.Node, in *instance) {
	in.node = nil
	switch p := in.props.(type) {
	case View:
		n := &flex.Node{Style: viewStyle(p), Context: in}
		in.node = n
		parent.Add(n)
		for _, c := range in.children {
			t.attach(n, c)
		}
	case Text:
		in.text = sanitize(p.Content)
		in.node = textNode(in, p.Wrap)
		parent.Add(in.node)
	case Styled:
		in.text, in.spans = joinSpans(p.Spans)
		in.node = textNode(in, p.Wrap)
		parent.Add(in.node)
	default:
		for _, c := range in.children {
			t.attach(parent, c)
		}
	}
}

func textNode(in *instance, mode WrapMode) *flex.Node {
	n := flex.NewNode()
	n.Context = in
	text := in.text
	n.Measure = func(maxWidth int) flex.Size {
		w, h := measureText(text, maxWidth, mode)
		return flex.Size{W: w, H: h}
	}
	return n
}

func joinSpans(spans []Span) (string, []spanRange) {
	var sb strings.Builder
	ranges := make([]spanRange, 0, len(spans))
	for _, sp := range spans {
		start := sb.Len()
		sb.WriteString(sanitize(sp.Text))
		ranges = append(ranges, spanRange{start: start, end: sb.Len(), style: sp.Style})
	}
	return sb.String(), ranges
}

// viewStyle translates View props into solver constraints.
func viewStyle(p View) flex.Style {
	st := flex.DefaultStyle()
	st.Direction = p.Direction
	st.Justify = p.Justify
	if p.AlignItems != flex.AlignAuto {
		st.AlignItems = p.AlignItems
	}
	st.AlignSelf = p.AlignSelf
	st.Gap = p.Gap
	st.Width, st.Height = p.Width, p.Height
	st.MinWidth, st.MinHeight = p.MinWidth, p.MinHeight
	st.MaxWidth, st.MaxHeight = p.MaxWidth, p.MaxHeight
	st.Basis = p.Basis
	st.Grow = p.Grow
	switch {
	case p.NoShrink:
		st.Shrink = 0
	case p.Shrink > 0:
		st.Shrink = p.Shrink
	}
	st.Padding = p.Padding
	st.Margin = p.Margin
	st.Border = borderEdges(p)
	st.Position = p.Position
	st.Inset = p.Inset
	if p.Hidden {
		st.Display = flex.DisplayNone
	}
	return st
}

// borderEdges is the thickness of the drawn border sides.
func borderEdges(p View) flex.Edges {
	if p.Border.IsZero() {
		return flex.Edges{}
	}
	sides := p.BorderSides
	if sides == 0 {
		sides = AllSides
	}
	var e flex.Edges
	if sides&SideTop != 0 {
		e.Top = 1
	}
	if sides&SideRight != 0 {
		e.Right = 1
	}
	if sides&SideBottom != 0 {
		e.Bottom = 1
	}
	if sides&SideLeft != 0 {
		e.Left = 1
	}
	return e
}

// place converts solved boxes into absolute coordinates. x and y are the
// absolute position of the parent's border box, already shifted by the
// parent's scroll offset.
func place(n *flex.Node, x, y int) {
	in := n.Context.(*instance)
	in.rect = Rect{X: x + n.Layout.X, Y: y + n.Layout.Y, W: n.Layout.W, H: n.Layout.H}
	in.scrollX, in.scrollY = 0, 0

	ox, oy := in.rect.X, in.rect.Y
	if p, ok := in.props.(View); ok && p.Overflow == OverflowScroll {
		in.scrollX, in.scrollY = scrollOffsets(n, p)
		ox -= in.scrollX
		oy -= in.scrollY
	}
	for _, c := range n.Children {
		place(c, ox, oy)
	}
}

// scrollOffsets clamps the requested scroll offset so the content never
// scrolls past its end.
func scrollOffsets(n *flex.Node, p View) (int, int) {
	st := &n.Style
	innerX := st.Border.Left + st.Padding.Left
	innerY := st.Border.Top + st.Padding.Top
	innerW := n.Layout.W - innerX - st.Border.Right - st.Padding.Right
	innerH := n.Layout.H - innerY - st.Border.Bottom - st.Padding.Bottom

	extentW, extentH := 0, 0
	for _, c := range n.Children {
		if c.Style.Display == flex.DisplayNone {
			continue
		}
		extentW = max(extentW, c.Layout.X+c.Layout.W+c.Style.Margin.Right-innerX)
		extentH = max(extentH, c.Layout.Y+c.Layout.H+c.Style.Margin.Bottom-innerY)
	}
	sx := min(max(p.ScrollX, 0), max(extentW-innerW, 0))
	sy := min(max(p.ScrollY, 0), max(extentH-innerH, 0))
	return sx, sy
}

// paddingBox is the part of a view's box inside its border.
func paddingBox(in *instance) Rect {
	r := in.rect
	if in.node == nil {
		return r
	}
	b := in.node.Style.Border
	return Rect{X: r.X + b.Left, Y: r.Y + b.Top, W: r.W - b.Left - b.Right, H: r.H - b.Top - b.Bottom}
}
