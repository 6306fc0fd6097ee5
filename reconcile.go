package loom

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"loom/flex"
	"loom/term"
)

// scheduler is how state outside the render pass reaches the render loop.
type scheduler interface {
	// post queues fn to run on the loop goroutine before the next render
	// and requests that render.
	post(fn func())
	// trigger requests a render.
	trigger()
	// exit asks the loop to stop.
	exit()
}

// instance is the persistent counterpart of an element: it owns the state
// slots of one mounted component and its child instances.
type instance struct {
	kind     reflect.Type
	key      any
	slot     int // position among unkeyed siblings
	props    Component
	children []*instance
	cells    []any
	rendered bool
	seen     uint64 // cycle in which the instance was last matched
	dead     bool

	// Per cycle, set by layout.
	node    *flex.Node
	rect    Rect
	text    string
	spans   []spanRange
	scrollX int
	scrollY int
}

// tree is the live instance tree and the per-cycle work it produces.
type tree struct {
	sched scheduler
	root  *instance
	cycle uint64

	destroyed []*instance
	effects   []*effectCell
	inputs    []*inputCell
	rects     []*rectCell

	// output holds lines from UseOutput until the loop takes them.
	outMu  sync.Mutex
	output []string

	width, height int

	// ctx parents every task context. It is cancelled once the tree is
	// torn down.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	running int
	// idle is closed once the tree is closed and no task is running.
	idle chan struct{}
}

func newTree(sched scheduler) *tree {
	ctx, cancel := context.WithCancel(context.Background())
	return &tree{sched: sched, ctx: ctx, cancel: cancel, idle: make(chan struct{})}
}

// render renders root and reconciles the result into the instance tree.
// Instances that no longer match are collected for flushDestroyed.
func (t *tree) render(root Element) {
	t.cycle++
	t.inputs = t.inputs[:0]
	t.rects = t.rects[:0]
	var old []*instance
	if t.root != nil {
		old = []*instance{t.root}
	}
	kids := t.reconcileChildren(old, []Element{root}, nil)
	t.root = nil
	if len(kids) > 0 {
		t.root = kids[0]
	}
}

// empty reports whether the root rendered no content.
func (t *tree) empty() bool {
	if t.root == nil {
		return true
	}
	_, composite := t.root.props.(Renderer)
	return composite && len(t.root.children) == 0
}

// reconcileChildren matches els against the old sibling instances.
//
// Keyed elements are matched by key and unkeyed elements by their position
// among the unkeyed siblings; the two partitions never match each other. A
// match is only reused if its kind is unchanged. The result is in the order
// of els.
func (t *tree) reconcileChildren(old []*instance, els []Element, frame *contextFrame) []*instance {
	var keyed map[any]*instance
	var unkeyed map[int]*instance
	for _, in := range old {
		if in.key != nil {
			if keyed == nil {
				keyed = make(map[any]*instance)
			}
			keyed[in.key] = in
		} else {
			if unkeyed == nil {
				unkeyed = make(map[int]*instance)
			}
			unkeyed[in.slot] = in
		}
	}

	out := make([]*instance, 0, len(els))
	var keys map[any]struct{}
	slot := 0
	for _, el := range els {
		var match *instance
		if el.Key != nil {
			if keys == nil {
				keys = make(map[any]struct{})
			}
			if _, dup := keys[el.Key]; dup {
				contractf("reconcile", ErrDuplicateKey, "key %v", el.Key)
			}
			keys[el.Key] = struct{}{}
			if el.IsZero() {
				continue
			}
			match = keyed[el.Key]
		} else {
			s := slot
			slot++
			if el.IsZero() {
				continue
			}
			match = unkeyed[s]
			if match != nil && match.kind != el.kind() {
				match = nil
			}
			in := t.update(match, el, frame)
			in.slot = s
			out = append(out, in)
			continue
		}
		if match != nil && match.kind != el.kind() {
			match = nil
		}
		out = append(out, t.update(match, el, frame))
	}

	for _, in := range old {
		if in.seen != t.cycle {
			t.destroyed = append(t.destroyed, in)
		}
	}
	return out
}

// update renders el into in, or into a new instance when in is nil, and
// reconciles its children.
func (t *tree) update(in *instance, el Element, frame *contextFrame) *instance {
	if in == nil {
		in = &instance{kind: el.kind()}
	}
	in.seen = t.cycle
	in.key = el.Key
	in.props = el.Props

	children := el.Children
	switch p := el.Props.(type) {
	case Renderer:
		s := &Scope{t: t, in: in, frame: frame, children: el.Children}
		out := p.Render(s)
		s.done()
		children = nil
		if !out.IsZero() {
			children = []Element{out}
		}
	case Provider:
		frame = &contextFrame{value: p.Value, parent: frame}
	}
	in.children = t.reconcileChildren(in.children, children, frame)
	return in
}

// flushDestroyed unmounts every instance collected during the last render.
func (t *tree) flushDestroyed() {
	for len(t.destroyed) > 0 {
		list := t.destroyed
		t.destroyed = nil
		for _, in := range list {
			t.unmount(in)
		}
	}
}

// unmount destroys in and its subtree, children first. Within an instance,
// slots are released in the order they were created.
func (t *tree) unmount(in *instance) {
	if in.dead {
		return
	}
	for _, c := range in.children {
		t.unmount(c)
	}
	in.children = nil
	for _, c := range in.cells {
		if d, ok := c.(disposer); ok {
			d.dispose()
		}
	}
	in.dead = true
}

// runEffects runs the effects queued by the last render, in render order.
func (t *tree) runEffects() {
	effects := t.effects
	t.effects = nil
	for _, e := range effects {
		e.run()
	}
}

// dispatch delivers an event to the input subscribers of the last render.
func (t *tree) dispatch(ev term.Event) {
	for _, c := range t.inputs {
		if !c.dead {
			c.fn(ev)
		}
	}
}

// unmountAll destroys the whole tree.
func (t *tree) unmountAll() {
	if t.root != nil {
		t.destroyed = append(t.destroyed, t.root)
		t.root = nil
	}
	t.flushDestroyed()
	t.effects = nil
	t.inputs = nil
	t.rects = nil
}

// takeOutput returns and forgets the lines queued by UseOutput.
func (t *tree) takeOutput() []string {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	out := t.output
	t.output = nil
	return out
}

// close cancels every task context and stops new tasks from starting.
func (t *tree) close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		if t.running == 0 {
			close(t.idle)
		}
	}
	t.mu.Unlock()
	t.cancel()
}

// taskDone records that a task returned.
func (t *tree) taskDone() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running--
	if t.closed && t.running == 0 {
		close(t.idle)
	}
}

// wait blocks until the tree is closed and its tasks have returned, or
// timeout has passed. It reports whether every task returned.
func (t *tree) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.idle:
		return true
	case <-timer.C:
		return false
	}
}

// spawn runs fn in a tracked goroutine. A task that returns while its
// context is live requests a render.
func (t *tree) spawn(ctx context.Context, op string, fn func(context.Context) error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.running++
	t.mu.Unlock()

	go func() {
		defer t.taskDone()
		err := runTask(ctx, op, fn)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			Logger().Warn("task failed", "op", op, "err", err)
		}
		t.sched.trigger()
	}()
}

func runTask(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Op: op, Kind: KindTask, Err: fmt.Errorf("panic: %v\n%s", r, debug.Stack())}
		}
	}()
	return fn(ctx)
}
