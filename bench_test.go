package loom

import (
	"fmt"
	"testing"
)

// countWriter discards output but counts bytes.
type countWriter struct {
	n int
}

func (w *countWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

func fillBuffer(b *Buffer, glyph string) {
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			b.Set(x, y, NewCell(glyph, DefaultStyle()))
		}
	}
}

// BenchmarkFlushFullScreen flushes frames in which every cell changed.
func BenchmarkFlushFullScreen(b *testing.B) {
	w := &countWriter{}
	s := NewScreen(w, ModeFullscreen, 120, 40)
	glyphs := []string{"A", "B"}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		fillBuffer(s.Prepare(40), glyphs[i%2])
		w.n = 0
		s.Flush()
	}
	b.ReportMetric(float64(w.n), "bytes/op")
}

// BenchmarkFlushSparseChanges flushes frames with a single changed cell.
func BenchmarkFlushSparseChanges(b *testing.B) {
	w := &countWriter{}
	s := NewScreen(w, ModeFullscreen, 120, 40)
	fillBuffer(s.Prepare(40), "A")
	s.Flush()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := s.Prepare(40)
		fillBuffer(buf, "A")
		buf.Set(i%120, (i/120)%40, NewCell("B", DefaultStyle()))
		w.n = 0
		s.Flush()
	}
	b.ReportMetric(float64(w.n), "bytes/op")
}

// BenchmarkFlushUnchanged measures the cost of detecting an identical frame.
func BenchmarkFlushUnchanged(b *testing.B) {
	w := &countWriter{}
	s := NewScreen(w, ModeInline, 120, 40)
	fillBuffer(s.Prepare(20), "A")
	s.Flush()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		fillBuffer(s.Prepare(20), "A")
		s.Flush()
	}
}

// BenchmarkRenderCycle runs render, reconcile, layout and paint for a keyed
// list of components.
func BenchmarkRenderCycle(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("rows=%d", n), func(b *testing.B) {
			h := newHarness(b, 80)
			kids := make([]Element, n)
			for i := range kids {
				kids[i] = New(counter{label: fmt.Sprintf("row%d", i), seed: i}).WithKey(i)
			}
			root := New(View{Direction: Column, Border: BorderSingle}, kids...)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				h.render(root)
			}
		})
	}
}

// BenchmarkWrap wraps a paragraph at a typical width.
func BenchmarkWrap(b *testing.B) {
	text := "The quick brown fox jumps over the lazy dog. 世界 こんにちは, emoji 👍🏽 included. "
	for len(text) < 4096 {
		text += text
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		wrapLines(text, 60, WrapWord)
	}
}
