package flex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func text(w, h int) *Node {
	n := NewNode()
	n.Measure = func(int) Size { return Size{W: w, H: h} }
	return n
}

// wrapping measures like a paragraph of `total` cells that wraps at maxWidth.
func wrapping(total int) *Node {
	n := NewNode()
	n.Measure = func(maxWidth int) Size {
		if maxWidth <= 0 || maxWidth >= total {
			return Size{W: total, H: 1}
		}
		return Size{W: maxWidth, H: (total + maxWidth - 1) / maxWidth}
	}
	return n
}

func TestRowLayout(t *testing.T) {
	root := NewNode().Add(text(3, 1), text(5, 1))
	root.Style.Width = Cells(20)
	root.Style.Gap = 1

	Solve(root, 40, -1)

	got := []Layout{root.Children[0].Layout, root.Children[1].Layout}
	want := []Layout{{X: 0, Y: 0, W: 3, H: 1}, {X: 4, Y: 0, W: 5, H: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
	if root.Layout.W != 20 || root.Layout.H != 1 {
		t.Errorf("root size = %dx%d, want 20x1", root.Layout.W, root.Layout.H)
	}
}

func TestColumnLayout(t *testing.T) {
	root := NewNode().Add(text(6, 1), text(6, 2), text(6, 1))
	root.Style.Direction = Column

	Solve(root, 30, -1)

	for i, wantY := range []int{0, 1, 3} {
		if y := root.Children[i].Layout.Y; y != wantY {
			t.Errorf("child %d Y = %d, want %d", i, y, wantY)
		}
		// Stretch is the default cross alignment.
		if w := root.Children[i].Layout.W; w != 30 {
			t.Errorf("child %d W = %d, want 30", i, w)
		}
	}
	if root.Layout.H != 4 {
		t.Errorf("root H = %d, want 4", root.Layout.H)
	}
}

func TestGrow(t *testing.T) {
	a, b := text(2, 1), text(2, 1)
	a.Style.Grow = 1
	b.Style.Grow = 3
	root := NewNode().Add(a, b)
	root.Style.Width = Cells(20)

	Solve(root, 20, -1)

	// 16 free cells split 1:3.
	if a.Layout.W != 6 || b.Layout.W != 14 {
		t.Errorf("widths = %d,%d, want 6,14", a.Layout.W, b.Layout.W)
	}
	if b.Layout.X != 6 {
		t.Errorf("b.X = %d, want 6", b.Layout.X)
	}
}

func TestShrink(t *testing.T) {
	a, b := text(10, 1), text(10, 1)
	b.Style.Shrink = 0
	root := NewNode().Add(a, b)
	root.Style.Width = Cells(15)

	Solve(root, 40, -1)

	if a.Layout.W != 5 || b.Layout.W != 10 {
		t.Errorf("widths = %d,%d, want 5,10", a.Layout.W, b.Layout.W)
	}
}

func TestPercentAndMinMax(t *testing.T) {
	a := text(1, 1)
	a.Style.Width = Percent(50)
	b := text(1, 1)
	b.Style.Width = Percent(10)
	b.Style.MinWidth = Cells(8)
	c := text(30, 1)
	c.Style.MaxWidth = Cells(4)
	root := NewNode().Add(a, b, c)
	root.Style.Width = Cells(40)

	Solve(root, 80, -1)

	if a.Layout.W != 20 {
		t.Errorf("percent width = %d, want 20", a.Layout.W)
	}
	if b.Layout.W != 8 {
		t.Errorf("min width = %d, want 8", b.Layout.W)
	}
	if c.Layout.W != 4 {
		t.Errorf("max width = %d, want 4", c.Layout.W)
	}
}

func TestPaddingBorderMargin(t *testing.T) {
	child := text(4, 1)
	child.Style.Margin = Edges{Left: 2, Top: 1}
	root := NewNode().Add(child)
	root.Style.Border = Uniform(1)
	root.Style.Padding = Edges{Left: 1, Right: 1}

	Solve(root, 40, -1)

	want := Layout{X: 1 + 1 + 2, Y: 1 + 1, W: 4, H: 1}
	if diff := cmp.Diff(want, child.Layout); diff != "" {
		t.Errorf("child layout mismatch (-want +got):\n%s", diff)
	}
	// Root is stretched to the viewport width; height is content plus frame.
	if root.Layout.W != 40 || root.Layout.H != 1+1+1+1 {
		t.Errorf("root = %dx%d, want 40x4", root.Layout.W, root.Layout.H)
	}
}

func TestTextWrapsToStretchedWidth(t *testing.T) {
	para := wrapping(18)
	root := NewNode().Add(para)
	root.Style.Direction = Column
	root.Style.Width = Cells(10)

	Solve(root, 80, -1)

	if para.Layout.W != 10 || para.Layout.H != 2 {
		t.Errorf("paragraph = %dx%d, want 10x2", para.Layout.W, para.Layout.H)
	}
}

func TestJustify(t *testing.T) {
	tests := []struct {
		name    string
		justify Justify
		wantX   []int
	}{
		{"start", JustifyStart, []int{0, 2}},
		{"center", JustifyCenter, []int{3, 5}},
		{"end", JustifyEnd, []int{6, 8}},
		{"space between", JustifySpaceBetween, []int{0, 8}},
		{"space evenly", JustifySpaceEvenly, []int{2, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewNode().Add(text(2, 1), text(2, 1))
			root.Style.Width = Cells(10)
			root.Style.Justify = tt.justify

			Solve(root, 10, -1)

			got := []int{root.Children[0].Layout.X, root.Children[1].Layout.X}
			if diff := cmp.Diff(tt.wantX, got); diff != "" {
				t.Errorf("x positions (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlignItems(t *testing.T) {
	tall := text(1, 5)
	small := text(1, 1)
	root := NewNode().Add(tall, small)
	root.Style.AlignItems = AlignCenter

	Solve(root, 10, -1)

	if small.Layout.Y != 2 {
		t.Errorf("centered Y = %d, want 2", small.Layout.Y)
	}
	if small.Layout.H != 1 {
		t.Errorf("centered child should keep its height, got %d", small.Layout.H)
	}
}

func TestStretchToTallestSibling(t *testing.T) {
	tall := text(1, 3)
	short := text(1, 1)
	root := NewNode().Add(tall, short)

	Solve(root, 10, -1)

	if short.Layout.H != 3 {
		t.Errorf("stretched H = %d, want 3", short.Layout.H)
	}
}

func TestAbsolute(t *testing.T) {
	flow := text(4, 1)
	abs := text(3, 1)
	abs.Style.Position = Absolute
	abs.Style.Inset = Insets{Right: Cells(1), Bottom: Cells(0), Top: Auto(), Left: Auto()}

	root := NewNode().Add(abs, flow)
	root.Style.Width = Cells(20)
	root.Style.Height = Cells(5)
	root.Style.Border = Uniform(1)

	Solve(root, 20, 5)

	// Absolute children do not displace flow siblings.
	if flow.Layout.X != 1 || flow.Layout.Y != 1 {
		t.Errorf("flow child at %d,%d, want 1,1", flow.Layout.X, flow.Layout.Y)
	}
	want := Layout{X: 1 + 18 - 1 - 3, Y: 1 + 3 - 1, W: 3, H: 1}
	if diff := cmp.Diff(want, abs.Layout); diff != "" {
		t.Errorf("absolute layout (-want +got):\n%s", diff)
	}
}

func TestAbsoluteStretchedByInsets(t *testing.T) {
	overlay := NewNode()
	overlay.Style.Position = Absolute
	overlay.Style.Inset = Insets{Top: Cells(1), Left: Cells(2), Right: Cells(2), Bottom: Cells(1)}

	root := NewNode().Add(overlay)
	root.Style.Width = Cells(12)
	root.Style.Height = Cells(6)

	Solve(root, 12, 6)

	want := Layout{X: 2, Y: 1, W: 8, H: 4}
	if diff := cmp.Diff(want, overlay.Layout); diff != "" {
		t.Errorf("overlay layout (-want +got):\n%s", diff)
	}
}

func TestDisplayNone(t *testing.T) {
	hidden := text(5, 5)
	hidden.Style.Display = DisplayNone
	shown := text(2, 1)
	root := NewNode().Add(hidden, shown)

	Solve(root, 10, -1)

	if shown.Layout.X != 0 {
		t.Errorf("hidden node took space: shown.X = %d", shown.Layout.X)
	}
	if hidden.Layout != (Layout{}) {
		t.Errorf("hidden layout = %+v, want zero", hidden.Layout)
	}
}

func TestDistribute(t *testing.T) {
	got := distribute(10, []float64{1, 1, 1})
	sum := 0
	for _, v := range got {
		sum += v
	}
	if sum != 10 {
		t.Errorf("distribute lost cells: %v", got)
	}
}
