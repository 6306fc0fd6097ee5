package loom

import (
	"sort"

	"github.com/rivo/uniseg"
)

// paint rasterizes the laid out tree into b in document order, so content
// declared later overwrites earlier content where boxes overlap.
func (t *tree) paint(b *Buffer) {
	if t.root != nil {
		paintInstance(b, t.root, b.Bounds())
	}
}

func paintInstance(b *Buffer, in *instance, clip Rect) {
	switch p := in.props.(type) {
	case View:
		if p.Hidden {
			return
		}
		paintView(b, in, p, clip)
	case Text:
		style := Style{FG: p.Color, BG: p.Background, Attr: p.Attr | p.Weight.attr()}
		paintText(b, in, p.Align, p.Wrap, func(int) Style { return style }, clip)
	case Styled:
		spans := in.spans
		paintText(b, in, p.Align, p.Wrap, func(off int) Style {
			i := sort.Search(len(spans), func(i int) bool { return spans[i].end > off })
			if i < len(spans) {
				return spans[i].style
			}
			return DefaultStyle()
		}, clip)
	default:
		for _, c := range in.children {
			paintInstance(b, c, clip)
		}
	}
}

func paintView(b *Buffer, in *instance, p View, clip Rect) {
	r := in.rect
	if p.Background.Mode != ColorDefault {
		b.FillRect(r, Style{BG: p.Background}, clip)
	}
	if !p.Border.IsZero() {
		sides := p.BorderSides
		if sides == 0 {
			sides = AllSides
		}
		b.DrawBorder(r, p.Border, sides, Style{FG: p.BorderColor, BG: p.Background}, clip)
	}
	if p.Overflow != OverflowVisible {
		clip = clip.Intersect(paddingBox(in))
	}
	for _, c := range in.children {
		paintInstance(b, c, clip)
	}
}

// paintText draws wrapped text inside the instance's box. Only glyph cells are
// written: alignment padding keeps whatever is beneath it, so neither
// background nor decorations extend past the text. A default background
// keeps the background already painted under each glyph.
func paintText(b *Buffer, in *instance, align Align, mode WrapMode, styleAt func(off int) Style, clip Rect) {
	r := in.rect
	clip = clip.Intersect(r)
	if clip.Empty() || in.text == "" {
		return
	}
	lines := wrapLines(in.text, r.W, mode)
	for i, line := range lines {
		y := r.Y + i
		if y >= r.Y+r.H {
			break
		}
		if y < clip.Y || y >= clip.Y+clip.H {
			continue
		}
		x := r.X + align.offset(r.W, line.width)
		off := line.start
		rest := in.text[line.start:line.end]
		state := -1
		for len(rest) > 0 {
			var cluster string
			var width int
			cluster, rest, width, state = uniseg.FirstGraphemeClusterInString(rest, state)
			if width > 0 {
				style := styleAt(off)
				if style.BG.Mode == ColorDefault {
					style.BG = b.Get(x, y).Style.BG
				}
				b.SetGlyph(x, y, cluster, width, style, clip)
				x += width
			}
			off += len(cluster)
			if x >= clip.X+clip.W {
				break
			}
		}
	}
}
