package loom

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"loom/term"
)

// Scope is the render context of one component instance. It is passed to
// Render and is only valid until Render returns.
//
// Hooks address state by call order: the n-th hook call on a scope always
// refers to the n-th slot of the instance. Every render of an instance must
// make the same hook calls in the same order.
type Scope struct {
	t        *tree
	in       *instance
	frame    *contextFrame
	children []Element
	cursor   int
	closed   bool
}

// Children returns the children the component's element was built with.
func (s *Scope) Children() []Element {
	return s.children
}

// done checks that the render used every slot it owns.
func (s *Scope) done() {
	s.closed = true
	in := s.in
	if in.rendered && s.cursor != len(in.cells) {
		contractf("render", ErrSlotMismatch, "%s made %d hook calls, previous renders made %d",
			in.name(), s.cursor, len(in.cells))
	}
	in.rendered = true
}

// use returns the slot at the cursor, creating it on the instance's first
// render. The slot must hold exactly the cell type C.
func use[C any](s *Scope, hook string, create func() *C) (c *C, first bool) {
	if s.closed {
		contractf(hook, ErrSlotMismatch, "called after Render returned")
	}
	in := s.in
	i := s.cursor
	s.cursor++
	if i < len(in.cells) {
		c, ok := in.cells[i].(*C)
		if !ok {
			var want *C
			contractf(hook, ErrSlotMismatch, "slot %d of %s holds %s, not %s",
				i, in.name(), cellName(in.cells[i]), cellName(want))
		}
		return c, false
	}
	if in.rendered {
		contractf(hook, ErrSlotMismatch, "slot %d of %s did not exist on the first render", i, in.name())
	}
	c = create()
	in.cells = append(in.cells, c)
	return c, true
}

func cellName(c any) string {
	return reflect.TypeOf(c).Elem().String()
}

// disposer is implemented by cells holding resources that must be released
// when their instance is destroyed.
type disposer interface {
	dispose()
}

// checkDeps panics if a dependency cannot be compared with ==.
func checkDeps(hook string, deps []any) {
	for i, d := range deps {
		if d != nil && !reflect.TypeOf(d).Comparable() {
			contractf(hook, ErrInvalidDeps, "dependency %d has type %T", i, d)
		}
	}
}

// sameDeps compares dependency lists element by element with ==.
func sameDeps(a, b []any) bool {
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

// State is a value that persists across renders. Set and Update schedule
// a re-render; the new value is visible from the next render on.
type State[T any] struct {
	value T
	sched scheduler
}

// UseState returns the state cell of the current slot, initialised to initial
// on the first render.
func UseState[T any](s *Scope, initial T) *State[T] {
	c, _ := use(s, "UseState", func() *State[T] {
		return &State[T]{value: initial, sched: s.t.sched}
	})
	return c
}

// Get returns the current value. It must only be called while rendering or
// from callbacks run by the render loop.
func (st *State[T]) Get() T {
	return st.value
}

// Set replaces the value. It is safe to call from any goroutine. Several
// calls before the next render collapse into one re-render.
func (st *State[T]) Set(v T) {
	st.sched.post(func() { st.value = v })
}

// Update replaces the value with fn applied to it. Updates posted before the
// next render are applied in order.
func (st *State[T]) Update(fn func(T) T) {
	st.sched.post(func() { st.value = fn(st.value) })
}

// Ref is a mutable box that persists across renders without triggering them.
type Ref[T any] struct {
	Current T
}

// UseRef returns the ref of the current slot, initialised to initial on the
// first render.
func UseRef[T any](s *Scope, initial T) *Ref[T] {
	c, _ := use(s, "UseRef", func() *Ref[T] { return &Ref[T]{Current: initial} })
	return c
}

type memoCell[T any] struct {
	value T
	deps  []any
}

// UseMemo returns fn's result, recomputing it only when a dependency
// changes. Without dependencies it is computed once.
func UseMemo[T any](s *Scope, fn func() T, deps ...any) T {
	checkDeps("UseMemo", deps)
	c, first := use(s, "UseMemo", func() *memoCell[T] { return &memoCell[T]{} })
	if first || (deps != nil && !sameDeps(c.deps, deps)) {
		c.value = fn()
		c.deps = deps
	}
	return c.value
}

type effectCell struct {
	fn      func() func()
	deps    []any
	cleanup func()
	dead    bool
}

func (e *effectCell) run() {
	if e.dead {
		return
	}
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		cleanup()
	}
	e.cleanup = e.fn()
}

func (e *effectCell) dispose() {
	if e.dead {
		return
	}
	e.dead = true
	if e.cleanup != nil {
		cleanup := e.cleanup
		e.cleanup = nil
		cleanup()
	}
}

// arm queues the effect to run after this cycle is committed if it is new
// or a dependency changed.
func (e *effectCell) arm(t *tree, first bool, fn func() func(), deps []any) {
	if first || (deps != nil && !sameDeps(e.deps, deps)) {
		e.fn = fn
		e.deps = deps
		t.effects = append(t.effects, e)
	}
}

// UseEffect runs fn after the cycle's frame has been written, on the first
// render and whenever a dependency changes. Without dependencies it runs
// once. The cleanup fn returns, if any, runs before the next invocation and
// when the instance is destroyed.
func UseEffect(s *Scope, fn func() func(), deps ...any) {
	checkDeps("UseEffect", deps)
	c, first := use(s, "UseEffect", func() *effectCell { return &effectCell{} })
	c.arm(s.t, first, fn, deps)
}

type taskCell struct {
	effectCell
}

// UseTask runs fn in its own goroutine after the cycle is committed, and
// again whenever a dependency changes. Its context is cancelled when a
// dependency changes or the instance is destroyed. When fn returns with its
// context still live, the component tree is re-rendered. Errors and panics
// are logged; they never stop the render loop.
func UseTask(s *Scope, fn func(ctx context.Context) error, deps ...any) {
	checkDeps("UseTask", deps)
	c, first := use(s, "UseTask", func() *taskCell { return &taskCell{} })
	t := s.t
	c.arm(t, first, func() func() {
		ctx, cancel := context.WithCancel(t.ctx)
		t.spawn(ctx, "UseTask", fn)
		return cancel
	}, deps)
}

// Tasks starts goroutines on demand that are cancelled with their instance.
type Tasks struct {
	t      *tree
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	dead   bool
}

// UseTasks returns the task group of the current slot.
func UseTasks(s *Scope) *Tasks {
	c, _ := use(s, "UseTasks", func() *Tasks {
		ctx, cancel := context.WithCancel(s.t.ctx)
		return &Tasks{t: s.t, ctx: ctx, cancel: cancel}
	})
	return c
}

// Go runs fn in a new goroutine. It does nothing once the instance is gone.
func (g *Tasks) Go(fn func(ctx context.Context) error) {
	g.mu.Lock()
	ctx := g.ctx
	g.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	g.t.spawn(ctx, "Tasks.Go", fn)
}

// CancelAll cancels every running task of the group. Later calls to Go
// start normally.
func (g *Tasks) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancel()
	if !g.dead {
		g.ctx, g.cancel = context.WithCancel(g.t.ctx)
	}
}

func (g *Tasks) dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dead = true
	g.cancel()
}

// UseInterval calls fn on the render loop every d while the instance lives.
// The latest fn passed is the one called.
func UseInterval(s *Scope, d time.Duration, fn func()) {
	latest := UseRef(s, fn)
	latest.Current = fn
	sched := s.t.sched
	UseTask(s, func(ctx context.Context) error {
		tick := time.NewTicker(d)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				sched.post(func() {
					if ctx.Err() == nil {
						latest.Current()
					}
				})
			}
		}
	}, d)
}

// UseTimeout calls fn on the render loop once, d after the first render.
func UseTimeout(s *Scope, d time.Duration, fn func()) {
	latest := UseRef(s, fn)
	latest.Current = fn
	sched := s.t.sched
	UseTask(s, func(ctx context.Context) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			sched.post(func() {
				if ctx.Err() == nil {
					latest.Current()
				}
			})
		}
		return nil
	}, d)
}

type contextFrame struct {
	value  any
	parent *contextFrame
}

type contextCell[T any] struct{}

// UseContext returns the value of the nearest enclosing Provider whose value
// has type T.
func UseContext[T any](s *Scope) (T, bool) {
	use(s, "UseContext", func() *contextCell[T] { return &contextCell[T]{} })
	for f := s.frame; f != nil; f = f.parent {
		if v, ok := f.value.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

type inputCell struct {
	fn   func(term.Event)
	dead bool
}

func (c *inputCell) dispose() {
	c.dead = true
}

// UseInput subscribes fn to input events for as long as the instance lives.
// Subscribers receive each event in document order.
func UseInput(s *Scope, fn func(term.Event)) {
	c, _ := use(s, "UseInput", func() *inputCell { return &inputCell{} })
	c.fn = fn
	s.t.inputs = append(s.t.inputs, c)
}

// UseTerminalSize returns the viewport size the tree is rendered for. It
// does not use a slot.
func UseTerminalSize(s *Scope) (width, height int) {
	return s.t.width, s.t.height
}

// UseExit returns a function that stops the render loop after the current
// cycle. It does not use a slot and is safe to call from any goroutine.
func UseExit(s *Scope) func() {
	sched := s.t.sched
	return func() { sched.exit() }
}

// UseObservable returns a snapshot of obs and re-renders whenever it changes.
func UseObservable[T any](s *Scope, obs *Observable[T]) []T {
	items, version := obs.snapshot()
	seen := UseRef(s, version)
	seen.Current = version
	sched := s.t.sched
	UseEffect(s, func() func() {
		unsubscribe := obs.Subscribe(func(Change[T]) { sched.trigger() })
		if obs.Version() != seen.Current {
			sched.trigger()
		}
		return unsubscribe
	}, obs)
	return items
}

// Output prints lines above the rendered frame. It is safe to use from any
// goroutine.
type Output struct {
	t *tree
}

// UseOutput returns the output of the current slot. Printed lines appear
// above the frame on the next cycle, or when the loop stops. Fullscreen
// sessions print them after leaving the alternate screen.
func UseOutput(s *Scope) *Output {
	c, _ := use(s, "UseOutput", func() *Output { return &Output{t: s.t} })
	return c
}

// Println formats its operands like fmt.Println and queues the result.
func (o *Output) Println(a ...any) {
	o.queue(strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
}

// Printf formats like fmt.Printf and queues the result as a line.
func (o *Output) Printf(format string, a ...any) {
	o.queue(strings.TrimSuffix(fmt.Sprintf(format, a...), "\n"))
}

func (o *Output) queue(line string) {
	t := o.t
	t.outMu.Lock()
	t.output = append(t.output, line)
	t.outMu.Unlock()
	t.sched.trigger()
}

type rectCell struct {
	in    *instance
	rect  Rect
	known bool
}

// UseComponentRect returns the box the component occupied in the previous
// frame, and false before its first frame. A component's box is the bounds
// of the boxes it rendered. When the box changes the tree is rendered again.
func UseComponentRect(s *Scope) (Rect, bool) {
	c, _ := use(s, "UseComponentRect", func() *rectCell { return &rectCell{} })
	c.in = s.in
	s.t.rects = append(s.t.rects, c)
	return c.rect, c.known
}

func (in *instance) name() string {
	if in.key != nil {
		return fmt.Sprintf("%s[key=%v]", in.kind, in.key)
	}
	return in.kind.String()
}
