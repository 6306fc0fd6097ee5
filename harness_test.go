package loom

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// testScheduler records render requests instead of running a loop.
type testScheduler struct {
	mu       sync.Mutex
	pending  []func()
	triggers int
	exits    int
}

func (s *testScheduler) post(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
	s.triggers++
}

func (s *testScheduler) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers++
}

func (s *testScheduler) exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exits++
}

func (s *testScheduler) drain() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func (s *testScheduler) triggered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

// harness runs render cycles synchronously against a tree.
type harness struct {
	tb    testing.TB
	sched *testScheduler
	tree  *tree
	width int
}

func newHarness(tb testing.TB, width int) *harness {
	sched := &testScheduler{}
	tr := newTree(sched)
	tr.width = width
	tb.Cleanup(func() {
		tr.unmountAll()
		tr.close()
		tr.wait(time.Second)
	})
	return &harness{tb: tb, sched: sched, tree: tr, width: width}
}

// render applies posted state changes, runs one cycle for el and returns
// the painted frame as text.
func (h *harness) render(el Element) string {
	h.tb.Helper()
	h.sched.drain()
	h.tree.render(el)
	h.tree.flushDestroyed()
	out := ""
	if !h.tree.empty() {
		rows := h.tree.layout(h.width, -1)
		b := NewBuffer(h.width, rows)
		h.tree.paint(b)
		out = b.String()
	}
	h.tree.runEffects()
	return out
}

// eventually polls cond until it holds or a second has passed.
func eventually(tb testing.TB, what string, cond func() bool) {
	tb.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			tb.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// expectContract runs fn and checks that it panics with a contract
// violation wrapping sentinel.
func expectContract(tb testing.TB, sentinel error, fn func()) {
	tb.Helper()
	defer func() {
		tb.Helper()
		r := recover()
		if r == nil {
			tb.Fatalf("expected a panic wrapping %v", sentinel)
		}
		err, ok := r.(error)
		if !ok {
			tb.Fatalf("panic value %v is not an error", r)
		}
		if !errors.Is(err, sentinel) {
			tb.Errorf("panic %v does not wrap %v", err, sentinel)
		}
		if !errors.Is(err, &Error{Kind: KindContract}) {
			tb.Errorf("panic %v is not a contract violation", err)
		}
	}()
	fn()
}

// counter renders its label and a state cell seeded on mount. It records
// its state cell in states and its mount and unmount in log.
type counter struct {
	label  string
	seed   int
	states map[string]*State[int]
	log    *[]string
}

func (c counter) Render(s *Scope) Element {
	st := UseState(s, c.seed)
	if c.states != nil {
		c.states[c.label] = st
	}
	if c.log != nil {
		log, label := c.log, c.label
		UseEffect(s, func() func() {
			*log = append(*log, "mount "+label)
			return func() { *log = append(*log, "unmount "+label) }
		})
	}
	return Strf("%s=%d", c.label, st.Get())
}

// otherCounter renders like counter but is a different kind.
type otherCounter struct{ counter }

func column(children ...Element) Element {
	return New(View{Direction: Column}, children...)
}
