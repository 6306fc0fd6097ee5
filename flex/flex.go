// Package flex is a flexbox geometry solver over terminal cells.
//
// Layout runs in two directions over the tree:
//
// Sizing (bottom→up): leaves report their intrinsic size through Measure,
// containers derive their content size from their children.
// Placement (top→down): parents distribute free space along the main axis,
// align children on the cross axis and position absolute children.
//
// All values are whole cells. Positions in Node.Layout are relative to the
// parent's border box.
package flex

import "math"

// Unit is the unit of a Dimension.
type Unit uint8

const (
	UnitAuto Unit = iota
	UnitCells
	UnitPercent
)

// Dimension is a length that may be automatic, absolute or relative to the
// containing block.
type Dimension struct {
	Unit  Unit
	Value float64
}

// Auto returns an automatic dimension.
func Auto() Dimension { return Dimension{} }

// Cells returns a dimension of n cells.
func Cells(n int) Dimension { return Dimension{Unit: UnitCells, Value: float64(n)} }

// Percent returns a dimension of p percent of the containing block.
func Percent(p float64) Dimension { return Dimension{Unit: UnitPercent, Value: p} }

// undefined marks a size that is not known yet.
const undefined = -1

// unbounded is the available space when nothing limits a node.
const unbounded = math.MaxInt32

func (d Dimension) resolve(parent int) int {
	switch d.Unit {
	case UnitCells:
		return max(int(d.Value), 0)
	case UnitPercent:
		if parent == undefined || parent == unbounded {
			return undefined
		}
		return max(int(math.Floor(float64(parent)*d.Value/100+1e-9)), 0)
	}
	return undefined
}

// Direction is the main axis of a container.
type Direction uint8

const (
	Row Direction = iota
	Column
)

// Position selects flow or absolute positioning.
type Position uint8

const (
	Relative Position = iota
	Absolute
)

// Display hides a node and its subtree from layout when set to DisplayNone.
type Display uint8

const (
	DisplayFlex Display = iota
	DisplayNone
)

// Justify distributes free space along the main axis.
type Justify uint8

const (
	JustifyStart Justify = iota
	JustifyCenter
	JustifyEnd
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

// Align positions children on the cross axis.
type Align uint8

const (
	AlignAuto Align = iota // AlignSelf only: use the parent's AlignItems
	AlignStretch
	AlignStart
	AlignCenter
	AlignEnd
)

// Edges holds a per-side thickness in cells.
type Edges struct {
	Top, Right, Bottom, Left int
}

// Uniform returns edges of n cells on every side.
func Uniform(n int) Edges {
	return Edges{Top: n, Right: n, Bottom: n, Left: n}
}

func (e Edges) start(a axis) int {
	if a == horizontal {
		return e.Left
	}
	return e.Top
}

func (e Edges) sum(a axis) int {
	if a == horizontal {
		return e.Left + e.Right
	}
	return e.Top + e.Bottom
}

// Insets are the offsets of an absolutely positioned node from its containing block.
type Insets struct {
	Top, Right, Bottom, Left Dimension
}

// Style is the constraint vocabulary of a node.
type Style struct {
	Display   Display
	Direction Direction
	Position  Position
	Inset     Insets

	Width, Height       Dimension
	MinWidth, MinHeight Dimension
	MaxWidth, MaxHeight Dimension
	Basis               Dimension
	Grow                float64
	Shrink              float64

	Margin  Edges
	Padding Edges
	Border  Edges
	Gap     int

	Justify    Justify
	AlignItems Align
	AlignSelf  Align
}

// DefaultStyle returns the style of a plain flex row that stretches its children.
func DefaultStyle() Style {
	return Style{Shrink: 1, AlignItems: AlignStretch}
}

type axis uint8

const (
	horizontal axis = iota
	vertical
)

func (a axis) cross() axis { return 1 - a }

func (s *Style) mainAxis() axis {
	if s.Direction == Column {
		return vertical
	}
	return horizontal
}

func (s *Style) size(a axis) Dimension {
	if a == horizontal {
		return s.Width
	}
	return s.Height
}

func (s *Style) minSize(a axis) Dimension {
	if a == horizontal {
		return s.MinWidth
	}
	return s.MinHeight
}

func (s *Style) maxSize(a axis) Dimension {
	if a == horizontal {
		return s.MaxWidth
	}
	return s.MaxHeight
}

// clamp applies min/max constraints resolved against the containing block size cb.
func (s *Style) clamp(a axis, v, cb int) int {
	if mx := s.maxSize(a).resolve(cb); mx != undefined && v > mx {
		v = mx
	}
	if mn := s.minSize(a).resolve(cb); mn != undefined && v < mn {
		v = mn
	}
	return max(v, 0)
}

// frame is the padding plus border thickness along an axis.
func (s *Style) frame(a axis) int {
	return s.Padding.sum(a) + s.Border.sum(a)
}

// Size is a width and height in cells.
type Size struct {
	W, H int
}

// MeasureFunc reports the content size of a leaf given the width available
// for its content.
type MeasureFunc func(maxWidth int) Size

// Layout is the resolved box of a node relative to its parent's border box.
type Layout struct {
	X, Y int
	W, H int
}

func (l *Layout) size(a axis) int {
	if a == horizontal {
		return l.W
	}
	return l.H
}

func (l *Layout) setSize(a axis, v int) {
	if a == horizontal {
		l.W = v
	} else {
		l.H = v
	}
}

func (l *Layout) setPos(a axis, v int) {
	if a == horizontal {
		l.X = v
	} else {
		l.Y = v
	}
}

// Node is one box of the layout tree.
type Node struct {
	Style    Style
	Children []*Node
	Measure  MeasureFunc
	Layout   Layout

	// Context carries caller data through the solver untouched.
	Context any
}

// NewNode creates a node with the default style.
func NewNode() *Node {
	return &Node{Style: DefaultStyle()}
}

// Add appends children and returns the node.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Solve lays out the tree rooted at root inside a viewport of width × height
// cells. A negative height leaves the root's height to its content. The root
// fills the viewport width unless its style fixes a width.
func Solve(root *Node, width, height int) {
	if root == nil {
		return
	}
	if height < 0 {
		height = undefined
	}
	if root.Style.Display == DisplayNone {
		hide(root)
		return
	}
	w := root.Style.Width.resolve(width)
	if w == undefined {
		w = root.Style.clamp(horizontal, width-root.Style.Margin.sum(horizontal), width)
	}
	layout(root, [2]int{w, undefined}, [2]int{width, orUnbounded(height)}, [2]int{width, height})
	root.Layout.X = root.Style.Margin.Left
	root.Layout.Y = root.Style.Margin.Top
}

func orUnbounded(v int) int {
	if v == undefined {
		return unbounded
	}
	return v
}

func hide(n *Node) {
	n.Layout = Layout{}
	for _, c := range n.Children {
		hide(c)
	}
}

// layout sizes n and positions its subtree.
//
// size holds a definite border-box size imposed by the parent, per axis, or
// undefined. avail is the space the border box may grow into when sizing to
// content. cb is the containing block used for percentages.
func layout(n *Node, size, avail, cb [2]int) {
	s := &n.Style
	for a := horizontal; a <= vertical; a++ {
		if size[a] == undefined {
			if v := s.size(a).resolve(cb[a]); v != undefined {
				size[a] = s.clamp(a, v, cb[a])
			}
		}
	}

	if n.Measure != nil && len(n.Children) == 0 {
		measureLeaf(n, size, avail, cb)
		return
	}

	inner := [2]int{undefined, undefined}
	innerAvail := [2]int{}
	for a := horizontal; a <= vertical; a++ {
		if size[a] != undefined {
			inner[a] = max(size[a]-s.frame(a), 0)
			innerAvail[a] = inner[a]
		} else {
			innerAvail[a] = avail[a]
			if avail[a] != unbounded {
				innerAvail[a] = max(avail[a]-s.frame(a), 0)
			}
		}
	}

	content := layoutFlow(n, inner, innerAvail)

	for a := horizontal; a <= vertical; a++ {
		if size[a] == undefined {
			size[a] = s.clamp(a, content[a]+s.frame(a), cb[a])
		}
	}
	n.Layout.W, n.Layout.H = size[horizontal], size[vertical]

	placeFlow(n)
	layoutAbsolute(n)
}

func measureLeaf(n *Node, size, avail, cb [2]int) {
	s := &n.Style
	fw, fh := s.frame(horizontal), s.frame(vertical)
	if size[horizontal] == undefined {
		maxW := avail[horizontal]
		if maxW != unbounded {
			maxW = max(maxW-fw, 0)
		}
		m := n.Measure(maxW)
		size[horizontal] = s.clamp(horizontal, m.W+fw, cb[horizontal])
	}
	if size[vertical] == undefined {
		m := n.Measure(max(size[horizontal]-fw, 0))
		size[vertical] = s.clamp(vertical, m.H+fh, cb[vertical])
	}
	n.Layout.W, n.Layout.H = size[horizontal], size[vertical]
}

// flowChildren returns the children that take part in flex flow.
func flowChildren(n *Node) []*Node {
	var out []*Node
	for _, c := range n.Children {
		switch {
		case c.Style.Display == DisplayNone:
			hide(c)
		case c.Style.Position == Absolute:
		default:
			out = append(out, c)
		}
	}
	return out
}

func alignOf(parent *Style, child *Style) Align {
	if child.AlignSelf != AlignAuto {
		return child.AlignSelf
	}
	if parent.AlignItems == AlignAuto {
		return AlignStretch
	}
	return parent.AlignItems
}

// layoutFlow sizes the flow children of n and returns the content size.
// inner is n's content box when definite, innerAvail the space it may use.
func layoutFlow(n *Node, inner, innerAvail [2]int) [2]int {
	s := &n.Style
	main := s.mainAxis()
	cross := main.cross()
	children := flowChildren(n)
	if len(children) == 0 {
		return [2]int{}
	}

	// Hypothetical main sizes from basis, explicit size or content.
	hyp := make([]int, len(children))
	for i, c := range children {
		cs := &c.Style
		b := cs.Basis.resolve(inner[main])
		if b == undefined {
			b = cs.size(main).resolve(inner[main])
		}
		if b == undefined {
			var sz, av [2]int
			sz[main] = undefined
			sz[cross] = stretchedCross(s, cs, inner[cross])
			av[main] = shrinkAvail(innerAvail[main], cs.Margin.sum(main))
			av[cross] = shrinkAvail(innerAvail[cross], cs.Margin.sum(cross))
			layout(c, sz, av, inner)
			b = c.Layout.size(main)
		}
		hyp[i] = cs.clamp(main, b, inner[main])
	}

	gaps := s.Gap * (len(children) - 1)
	used := gaps
	for i, c := range children {
		used += hyp[i] + c.Style.Margin.sum(main)
	}

	final := append([]int(nil), hyp...)
	if inner[main] != undefined {
		free := inner[main] - used
		switch {
		case free > 0:
			grow(children, final, free, main, inner[main])
		case free < 0:
			shrink(children, final, -free, main, inner[main])
		}
	}

	// Final layout with main size fixed; cross size stretched when possible.
	contentCross := 0
	for i, c := range children {
		cs := &c.Style
		var sz, av [2]int
		sz[main] = final[i]
		sz[cross] = stretchedCross(s, cs, inner[cross])
		av[main] = final[i]
		av[cross] = shrinkAvail(innerAvail[cross], cs.Margin.sum(cross))
		layout(c, sz, av, inner)
		contentCross = max(contentCross, c.Layout.size(cross)+cs.Margin.sum(cross))
	}

	// A content-sized container stretches its children to the tallest one.
	if inner[cross] == undefined {
		for i, c := range children {
			cs := &c.Style
			if alignOf(s, cs) != AlignStretch || cs.size(cross).Unit != UnitAuto {
				continue
			}
			want := cs.clamp(cross, contentCross-cs.Margin.sum(cross), undefined)
			if c.Layout.size(cross) == want {
				continue
			}
			var sz, av [2]int
			sz[main] = final[i]
			sz[cross] = want
			av = sz
			layout(c, sz, av, inner)
		}
	}

	var content [2]int
	content[main] = gaps
	for i, c := range children {
		content[main] += final[i] + c.Style.Margin.sum(main)
	}
	content[cross] = contentCross
	return content
}

// stretchedCross returns the definite cross size of a stretched child, or undefined.
func stretchedCross(parent, child *Style, innerCross int) int {
	cross := parent.mainAxis().cross()
	if v := child.size(cross).resolve(innerCross); v != undefined {
		return child.clamp(cross, v, innerCross)
	}
	if innerCross == undefined || alignOf(parent, child) != AlignStretch {
		return undefined
	}
	return child.clamp(cross, innerCross-child.Margin.sum(cross), innerCross)
}

func shrinkAvail(avail, by int) int {
	if avail == unbounded {
		return unbounded
	}
	return max(avail-by, 0)
}

// distribute splits total across weights so that the parts always sum to total.
func distribute(total int, weights []float64) []int {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	out := make([]int, len(weights))
	if sum <= 0 {
		return out
	}
	var acc float64
	given := 0
	for i, w := range weights {
		acc += w
		upto := int(math.Floor(float64(total)*acc/sum + 1e-9))
		out[i] = upto - given
		given = upto
	}
	return out
}

func grow(children []*Node, sizes []int, free int, main axis, cb int) {
	weights := make([]float64, len(children))
	for i, c := range children {
		weights[i] = max(c.Style.Grow, 0)
	}
	for i, extra := range distribute(free, weights) {
		sizes[i] = children[i].Style.clamp(main, sizes[i]+extra, cb)
	}
}

func shrink(children []*Node, sizes []int, over int, main axis, cb int) {
	weights := make([]float64, len(children))
	for i, c := range children {
		weights[i] = max(c.Style.Shrink, 0) * float64(sizes[i])
	}
	for i, cut := range distribute(over, weights) {
		sizes[i] = children[i].Style.clamp(main, sizes[i]-cut, cb)
	}
}

// placeFlow positions the flow children of a sized node.
func placeFlow(n *Node) {
	s := &n.Style
	main := s.mainAxis()
	cross := main.cross()
	children := flowChildren(n)
	if len(children) == 0 {
		return
	}

	innerMain := max(n.Layout.size(main)-s.frame(main), 0)
	innerCross := max(n.Layout.size(cross)-s.frame(cross), 0)

	used := s.Gap * (len(children) - 1)
	for _, c := range children {
		used += c.Layout.size(main) + c.Style.Margin.sum(main)
	}
	free := max(innerMain-used, 0)

	lead, between := 0, make([]int, len(children))
	switch s.Justify {
	case JustifyCenter:
		lead = free / 2
	case JustifyEnd:
		lead = free
	case JustifySpaceBetween:
		if len(children) > 1 {
			w := make([]float64, len(children)-1)
			for i := range w {
				w[i] = 1
			}
			copy(between[1:], distribute(free, w))
		}
	case JustifySpaceAround:
		// Half a share before the first child, a full share between children.
		w := make([]float64, len(children)*2)
		for i := range w {
			w[i] = 1
		}
		halves := distribute(free, w)
		lead = halves[0]
		for i := 1; i < len(children); i++ {
			between[i] = halves[2*i-1] + halves[2*i]
		}
	case JustifySpaceEvenly:
		w := make([]float64, len(children)+1)
		for i := range w {
			w[i] = 1
		}
		shares := distribute(free, w)
		lead = shares[0]
		copy(between[1:], shares[1:len(children)])
	}

	pos := s.Border.start(main) + s.Padding.start(main) + lead
	for i, c := range children {
		cs := &c.Style
		if i > 0 {
			pos += s.Gap + between[i]
		}
		c.Layout.setPos(main, pos+cs.Margin.start(main))
		pos += cs.Margin.sum(main) + c.Layout.size(main)

		off := 0
		slack := innerCross - c.Layout.size(cross) - cs.Margin.sum(cross)
		switch alignOf(s, cs) {
		case AlignCenter:
			off = max(slack, 0) / 2
		case AlignEnd:
			off = max(slack, 0)
		}
		c.Layout.setPos(cross, s.Border.start(cross)+s.Padding.start(cross)+cs.Margin.start(cross)+off)
	}
}

// layoutAbsolute sizes and positions absolute children against the padding box of n.
func layoutAbsolute(n *Node) {
	s := &n.Style
	pb := [2]int{
		max(n.Layout.W-s.Border.sum(horizontal), 0),
		max(n.Layout.H-s.Border.sum(vertical), 0),
	}
	for _, c := range n.Children {
		cs := &c.Style
		if cs.Position != Absolute || cs.Display == DisplayNone {
			continue
		}
		start := [2]int{cs.Inset.Left.resolve(pb[0]), cs.Inset.Top.resolve(pb[1])}
		end := [2]int{cs.Inset.Right.resolve(pb[0]), cs.Inset.Bottom.resolve(pb[1])}

		var sz, av [2]int
		for a := horizontal; a <= vertical; a++ {
			sz[a] = cs.size(a).resolve(pb[a])
			if sz[a] == undefined && start[a] != undefined && end[a] != undefined {
				sz[a] = max(pb[a]-start[a]-end[a]-cs.Margin.sum(a), 0)
			}
			if sz[a] != undefined {
				sz[a] = cs.clamp(a, sz[a], pb[a])
			}
			av[a] = max(pb[a]-cs.Margin.sum(a), 0)
		}
		layout(c, sz, av, pb)

		for a := horizontal; a <= vertical; a++ {
			var p int
			switch {
			case start[a] != undefined:
				p = start[a] + cs.Margin.start(a)
			case end[a] != undefined:
				p = pb[a] - end[a] - c.Layout.size(a) - (cs.Margin.sum(a) - cs.Margin.start(a))
			default:
				p = s.Padding.start(a) + cs.Margin.start(a)
			}
			c.Layout.setPos(a, s.Border.start(a)+p)
		}
	}
}
