package loom

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestKeyedReorder(t *testing.T) {
	h := newHarness(t, 20)
	states := map[string]*State[int]{}
	seeds := map[string]int{"a": 1, "b": 2}
	list := func(keys ...string) Element {
		kids := make([]Element, len(keys))
		for i, k := range keys {
			kids[i] = New(counter{label: k, seed: seeds[k], states: states}).WithKey(k)
		}
		return column(kids...)
	}

	if got := h.render(list("a", "b")); got != "a=1\nb=2" {
		t.Fatalf("first render = %q", got)
	}
	a, b := states["a"], states["b"]
	a.Set(10)

	if got := h.render(list("b", "a")); got != "b=2\na=10" {
		t.Errorf("after swap = %q, want %q", got, "b=2\na=10")
	}
	if states["a"] != a || states["b"] != b {
		t.Error("swapping keyed children recreated their state")
	}
}

func TestStateSurvivesSiblingChanges(t *testing.T) {
	h := newHarness(t, 20)
	states := map[string]*State[int]{}
	keep := New(counter{label: "keep", seed: 1, states: states}).WithKey("keep")

	h.render(column(keep))
	st := states["keep"]
	st.Update(func(v int) int { return v + 41 })

	for i, extra := range [][]string{{"x"}, {"x", "y"}, {}, {"z"}} {
		kids := []Element{}
		for _, k := range extra {
			kids = append(kids, New(counter{label: k}).WithKey(k))
		}
		kids = append(kids, keep)
		got := h.render(column(kids...))
		if states["keep"] != st {
			t.Fatalf("render %d: state cell replaced", i)
		}
		if st.Get() != 42 {
			t.Fatalf("render %d: state = %d, want 42 (%q)", i, st.Get(), got)
		}
	}
}

func TestKindChangeRecreates(t *testing.T) {
	h := newHarness(t, 20)
	var log []string
	states := map[string]*State[int]{}

	h.render(column(New(counter{label: "x", seed: 1, states: states, log: &log})))
	states["x"].Set(5)
	if got := h.render(column(New(counter{label: "x", seed: 1, states: states, log: &log}))); got != "x=5" {
		t.Fatalf("got %q", got)
	}

	got := h.render(column(New(otherCounter{counter{label: "x", seed: 1, states: states, log: &log}})))
	if got != "x=1" {
		t.Errorf("after kind change = %q, want fresh state x=1", got)
	}
	want := []string{"mount x", "unmount x", "mount x"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestUnkeyedPositional(t *testing.T) {
	h := newHarness(t, 20)
	var log []string
	c := func(label string, seed int) Element {
		return New(counter{label: label, seed: seed, log: &log})
	}

	h.render(column(c("a", 1), c("b", 2)))

	// A zero element keeps its position, so b stays matched to slot 1.
	got := h.render(column(Element{}, c("b", 99)))
	if got != "b=2" {
		t.Errorf("got %q, want b=2", got)
	}
	if diff := cmp.Diff([]string{"mount a", "mount b", "unmount a"}, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestMixedKeyedAndUnkeyed(t *testing.T) {
	h := newHarness(t, 20)
	c := func(label string, seed int) Element {
		return New(counter{label: label, seed: seed})
	}

	first := h.render(column(
		c("x", 1).WithKey("x"),
		c("p", 10),
		c("y", 2).WithKey("y"),
		c("q", 20),
	))
	if first != "x=1\np=10\ny=2\nq=20" {
		t.Fatalf("first render = %q", first)
	}

	// Keyed children follow their keys and unkeyed children their position
	// among the unkeyed ones; the output keeps declaration order.
	got := h.render(column(
		c("p", 99),
		c("y", 99).WithKey("y"),
		c("x", 99).WithKey("x"),
		c("q", 99),
	))
	if want := "p=10\ny=2\nx=1\nq=20"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestKeyedNeverMatchesUnkeyed(t *testing.T) {
	h := newHarness(t, 20)
	var log []string
	h.render(column(New(counter{label: "a", seed: 1, log: &log})))
	got := h.render(column(New(counter{label: "a", seed: 2, log: &log}).WithKey("a")))
	if got != "a=2" {
		t.Errorf("got %q, want a fresh instance", got)
	}
	if diff := cmp.Diff([]string{"mount a", "unmount a", "mount a"}, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateKeyPanics(t *testing.T) {
	h := newHarness(t, 20)
	expectContract(t, ErrDuplicateKey, func() {
		h.render(column(Str("a").WithKey(1), Str("b").WithKey(1)))
	})
}

func TestTransparentKinds(t *testing.T) {
	h := newHarness(t, 20)

	got := h.render(column(Group(Str("a"), Str("b")), Provide("v", Str("c")), Str("d")))
	if got != "a\nb\nc\nd" {
		t.Errorf("got %q", got)
	}

	// Transparent wrappers add no box, so a row lays their children side by side.
	got = h.render(New(View{Gap: 1}, Group(Str("a"), Str("b")), Str("c")))
	if got != "a b c" {
		t.Errorf("got %q", got)
	}
}

func TestUnmountOrder(t *testing.T) {
	h := newHarness(t, 20)
	var log []string
	parent := RenderFunc(func(s *Scope) Element {
		UseEffect(s, func() func() {
			log = append(log, "mount parent")
			return func() { log = append(log, "unmount parent") }
		})
		return column(
			New(counter{label: "first", log: &log}),
			New(counter{label: "second", log: &log}),
		)
	})

	h.render(column(New(parent)))
	h.render(column())

	want := []string{
		"mount parent", "mount first", "mount second",
		"unmount first", "unmount second", "unmount parent",
	}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanupExactlyOnce(t *testing.T) {
	h := newHarness(t, 20)
	var log []string
	el := New(counter{label: "a", log: &log})

	for i := 0; i < 5; i++ {
		h.render(column(el))
	}
	if diff := cmp.Diff([]string{"mount a"}, log); diff != "" {
		t.Fatalf("re-rendering ran lifecycle hooks (-want +got):\n%s", diff)
	}

	h.render(column())
	h.render(column())
	h.tree.unmountAll()
	if diff := cmp.Diff([]string{"mount a", "unmount a"}, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

func TestRootEmpty(t *testing.T) {
	h := newHarness(t, 20)
	show := true
	root := RenderFunc(func(s *Scope) Element {
		if !show {
			return Element{}
		}
		return Str("hi")
	})

	if got := h.render(New(root)); got != "hi" || h.tree.empty() {
		t.Fatalf("got %q, empty=%v", got, h.tree.empty())
	}
	show = false
	h.render(New(root))
	if !h.tree.empty() {
		t.Error("root rendering nothing should leave the tree empty")
	}
}

func TestNew(t *testing.T) {
	t.Run("pointer props are dereferenced", func(t *testing.T) {
		if New(&View{}).kind() != New(View{}).kind() {
			t.Error("&View{} and View{} should be the same kind")
		}
		if New(&Text{Content: "x"}).kind() != New(Text{}).kind() {
			t.Error("&Text{} and Text{} should be the same kind")
		}
	})

	t.Run("invalid props", func(t *testing.T) {
		expectContract(t, ErrInvalidElement, func() { New(42) })
		expectContract(t, ErrInvalidElement, func() { New(nil) })
		expectContract(t, ErrInvalidElement, func() { New((*counter)(nil)) })
	})

	t.Run("text has no children", func(t *testing.T) {
		expectContract(t, ErrInvalidElement, func() { New(Text{Content: "a"}, Str("b")) })
		expectContract(t, ErrInvalidElement, func() { New(&Styled{}, Str("b")) })
	})

	t.Run("keys must be comparable", func(t *testing.T) {
		expectContract(t, ErrInvalidElement, func() { Str("a").WithKey([]int{1}) })
	})

	t.Run("zero element", func(t *testing.T) {
		if !(Element{}).IsZero() {
			t.Error("zero element should be zero")
		}
		if Str("").IsZero() {
			t.Error("empty text is still content")
		}
	})
}

func TestTreeWait(t *testing.T) {
	t.Run("cancelled tasks return", func(t *testing.T) {
		tr := newTree(&testScheduler{})
		tr.spawn(tr.ctx, "op", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		tr.close()
		if !tr.wait(time.Second) {
			t.Error("wait timed out on a cancelled task")
		}
	})

	t.Run("no tasks", func(t *testing.T) {
		tr := newTree(&testScheduler{})
		tr.close()
		tr.close()
		if !tr.wait(time.Second) {
			t.Error("wait timed out with nothing running")
		}
	})

	t.Run("task ignoring cancellation", func(t *testing.T) {
		tr := newTree(&testScheduler{})
		release := make(chan struct{})
		tr.spawn(tr.ctx, "op", func(context.Context) error {
			<-release
			return nil
		})
		tr.close()
		if tr.wait(10 * time.Millisecond) {
			t.Fatal("wait returned true while a task was running")
		}
		close(release)
		if !tr.wait(time.Second) {
			t.Error("wait timed out after the task returned")
		}
	})

	t.Run("open tree", func(t *testing.T) {
		tr := newTree(&testScheduler{})
		defer tr.close()
		if tr.wait(10 * time.Millisecond) {
			t.Error("wait returned true before close")
		}
	})
}
