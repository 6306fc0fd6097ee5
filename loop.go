package loom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/muesli/termenv"

	"loom/term"
)

// Phase is the state of the render loop.
type Phase uint32

const (
	PhaseIdle Phase = iota
	// PhaseRendering applies posted state changes and renders the tree.
	// Components are rendered and matched to their instances in one
	// top-down pass, so matching happens in this phase too.
	PhaseRendering
	// PhaseReconciling destroys the instances the render left unmatched:
	// unmount cleanups and task cancellation run here.
	PhaseReconciling
	PhaseLayingOut
	PhasePainting
	// PhaseCommitted runs the effects of the written frame.
	PhaseCommitted
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRendering:
		return "rendering"
	case PhaseReconciling:
		return "reconciling"
	case PhaseLayingOut:
		return "laying-out"
	case PhasePainting:
		return "painting"
	case PhaseCommitted:
		return "committed"
	case PhaseTerminated:
		return "terminated"
	}
	return fmt.Sprintf("Phase(%d)", uint32(p))
}

// defaultWidth is the frame width used when the output has no size.
const defaultWidth = 80

// CycleTiming is how long each stage of the last cycle took.
type CycleTiming struct {
	Render time.Duration
	Layout time.Duration
	Paint  time.Duration
	Flush  time.Duration
}

func (c CycleTiming) String() string {
	return fmt.Sprintf("render:%v layout:%v paint:%v flush:%v",
		c.Render.Round(time.Microsecond),
		c.Layout.Round(time.Microsecond),
		c.Paint.Round(time.Microsecond),
		c.Flush.Round(time.Microsecond))
}

// Loop drives the render → reconcile → layout → paint cycle for one root
// element. Only one cycle runs at a time; state changes and task completions
// from other goroutines request a cycle through a coalescing trigger.
type Loop struct {
	cfg    config
	cfgErr error
	root   Element
	term   term.Terminal
	screen *Screen
	tree   *tree

	// wake holds at most one pending render request.
	wake    chan struct{}
	mu      sync.Mutex
	pending []func()
	exitReq atomic.Bool
	done    bool

	phase     atomic.Uint32
	cycles    atomic.Uint64
	lastFrame time.Time
	timing    CycleTiming
}

// NewLoop prepares a loop rendering root. Nothing is written until Run.
func NewLoop(root Element, opts ...Option) *Loop {
	cfg := config{Options: DefaultOptions()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.terminal == nil {
		cfg.terminal = term.NewStd(nil, nil)
	}
	l := &Loop{
		cfg:  cfg,
		root: root,
		term: cfg.terminal,
		wake: make(chan struct{}, 1),
	}
	if err := cfg.validate(); err != nil {
		l.cfgErr = &Error{Op: "loop.options", Kind: KindContract, Err: err}
	}
	l.tree = newTree(l)
	return l
}

// Run renders root until it renders nothing, a component calls the exit
// function from UseExit, Ctrl+C is pressed or ctx is cancelled. The whole
// tree is unmounted and the terminal restored before Run returns. It
// returns ctx.Err() when cancelled and nil on any other normal exit.
func Run(ctx context.Context, root Element, opts ...Option) error {
	return NewLoop(root, opts...).Run(ctx)
}

// Phase returns the current phase.
func (l *Loop) Phase() Phase {
	return Phase(l.phase.Load())
}

// Cycles returns the number of committed cycles.
func (l *Loop) Cycles() uint64 {
	return l.cycles.Load()
}

// Timing returns the stage durations of the last committed cycle. It must
// not be called while Run is active.
func (l *Loop) Timing() CycleTiming {
	return l.timing
}

func (l *Loop) setPhase(p Phase) {
	l.phase.Store(uint32(p))
	if l.cfg.phaseHook != nil {
		l.cfg.phaseHook(p)
	}
}

func (l *Loop) trigger() {
	select {
	case l.wake <- struct{}{}:
	default:
		// a render is already pending
	}
}

func (l *Loop) post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	l.trigger()
}

func (l *Loop) exit() {
	l.exitReq.Store(true)
	l.trigger()
}

// Run starts the loop. It may only be called once. Invalid options are
// reported before anything is written.
func (l *Loop) Run(ctx context.Context) (err error) {
	if l.cfgErr != nil {
		return l.cfgErr
	}
	t := l.term
	tty := t.IsTerminal()
	width, height, serr := t.Size()
	if serr != nil {
		if tty {
			return envError("term.size", serr)
		}
		width, height = defaultWidth, 0
	}
	if width <= 0 {
		width = defaultWidth
	}

	mode := ModePlain
	if tty {
		mode = ModeInline
		if l.cfg.Fullscreen {
			mode = ModeFullscreen
		}
	}
	term.ConfigureWidth(l.cfg.AmbiguousWidth)
	l.screen = NewScreen(t, mode, width, height)
	l.screen.SetProfile(l.colorProfile(tty))
	l.screen.SetSync(l.syncEnabled(tty))
	l.tree.width, l.tree.height = width, height

	Logger().Info("render loop starting", "mode", mode.String(), "width", width, "height", height)
	defer func() {
		l.setPhase(PhaseTerminated)
		if err != nil {
			Logger().Error("render loop stopped", "err", err)
		} else {
			Logger().Info("render loop stopped", "cycles", l.Cycles())
		}
	}()

	evCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var events <-chan term.Event
	if tty {
		if err := t.EnableRaw(); err != nil {
			return envError("term.raw", err)
		}
		defer func() {
			if rerr := t.Restore(); rerr != nil && err == nil {
				err = envError("term.restore", rerr)
			}
		}()

		enter, exit := l.modeSequences(mode)
		if _, err := t.Write(enter); err != nil {
			return envError("term.setup", err)
		}
		defer func() {
			exit = append(exit, l.screen.heldOutput()...)
			if _, werr := t.Write(exit); werr != nil && err == nil {
				err = envError("term.teardown", werr)
			}
		}()
		events = t.Events(evCtx)
	}

	defer func() {
		if cerr := l.screen.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	defer func() {
		// Lines printed by the last cycle or during teardown. A failed
		// cycle may have left a partial frame, so they are dropped then.
		l.screen.Println(l.tree.takeOutput()...)
		if !l.screen.pendingOutput() || failed(err) {
			return
		}
		if ferr := l.screen.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = recovered("render", r)
		}
		if terr := l.teardown(); terr != nil && err == nil {
			err = terr
		}
	}()

	return l.loop(ctx, events)
}

// modeSequences returns what to write to enter the terminal modes the
// session needs, and what undoes them in reverse order.
func (l *Loop) modeSequences(mode ScreenMode) (enter, exit []byte) {
	var undo []string
	add := func(on, off string) {
		enter = append(enter, on...)
		undo = append(undo, off)
	}
	if mode == ModeFullscreen {
		add(term.EnterAltScreen, term.ExitAltScreen)
		if l.cfg.Mouse {
			add(term.EnableMouse, term.DisableMouse)
		}
	}
	add(term.HideCursor, term.ShowCursor)
	add(term.EnableBracketedPaste, term.DisableBracketedPaste)
	if l.cfg.KeyboardEnhancement && l.term.ProbeKeyboardEnhancement(l.cfg.ProbeTimeout) {
		add(term.PushKeyboardFlags, term.PopKeyboardFlags)
	} else if l.cfg.KeyboardEnhancement {
		Logger().Debug("keyboard enhancement unsupported")
	}
	for i := len(undo) - 1; i >= 0; i-- {
		exit = append(exit, undo[i]...)
	}
	return enter, exit
}

func (l *Loop) loop(ctx context.Context, events <-chan term.Event) error {
	if err := l.cycle(); err != nil {
		return err
	}
	for !l.done {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			l.handle(ev)
			continue
		case <-l.wake:
		}
		if err := l.throttle(ctx); err != nil {
			return err
		}
		if err := l.cycle(); err != nil {
			return err
		}
	}
	return nil
}

// throttle waits until FrameInterval has passed since the last frame.
func (l *Loop) throttle(ctx context.Context) error {
	wait := l.cfg.FrameInterval - time.Since(l.lastFrame)
	if l.cfg.FrameInterval <= 0 || wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Loop) handle(ev term.Event) {
	switch {
	case ev.Type == term.EventResize:
		l.screen.Resize(ev.Width, ev.Height)
		l.tree.width, l.tree.height = l.screen.Size()
		l.trigger()
	case l.cfg.ExitOnCtrlC && ev.IsCtrl('c'):
		l.done = true
		return
	}
	l.tree.dispatch(ev)
}

// cycle runs one render pass from posted state changes to the written frame.
func (l *Loop) cycle() error {
	// Requests made from here on belong to the next cycle.
	select {
	case <-l.wake:
	default:
	}

	start := time.Now()
	l.setPhase(PhaseRendering)
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
	l.screen.Println(l.tree.takeOutput()...)
	l.tree.render(l.root)

	l.setPhase(PhaseReconciling)
	l.tree.flushDestroyed()
	if l.tree.empty() {
		l.done = true
		return nil
	}
	rendered := time.Now()

	l.setPhase(PhaseLayingOut)
	width, height := l.screen.Size()
	if l.screen.Mode() != ModeFullscreen {
		height = -1
	}
	rows := l.tree.layout(width, height)
	laidOut := time.Now()

	l.setPhase(PhasePainting)
	buf := l.screen.Prepare(rows)
	l.tree.paint(buf)
	painted := time.Now()
	if err := l.screen.Flush(); err != nil {
		return err
	}
	l.lastFrame = time.Now()
	l.timing = CycleTiming{
		Render: rendered.Sub(start),
		Layout: laidOut.Sub(rendered),
		Paint:  painted.Sub(laidOut),
		Flush:  l.lastFrame.Sub(painted),
	}
	if debugFlush {
		Logger().Debug("cycle", "n", l.cycles.Load()+1, "timing", l.timing.String())
	}

	l.setPhase(PhaseCommitted)
	l.tree.runEffects()
	l.cycles.Add(1)
	if l.exitReq.Load() {
		l.done = true
	}
	l.setPhase(PhaseIdle)
	return nil
}

// teardown unmounts the tree and gives cancelled tasks a grace period to
// return.
func (l *Loop) teardown() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered("unmount", r)
		}
		l.tree.close()
		if !l.tree.wait(l.cfg.ExitGrace) {
			Logger().Warn("tasks still running after exit grace period", "grace", l.cfg.ExitGrace)
		}
	}()
	l.tree.unmountAll()
	return nil
}

// recovered turns a recovered panic value into an error. Contract
// violations already are *Error values.
func recovered(op string, r any) error {
	if err, ok := r.(error); ok {
		var le *Error
		if errors.As(err, &le) {
			return err
		}
	}
	return &PanicError{Op: op, Value: r}
}

// failed reports whether err stopped the loop in the middle of a cycle.
func failed(err error) bool {
	var le *Error
	var pe *PanicError
	return errors.As(err, &le) || errors.As(err, &pe)
}

func parseProfile(name string) (termenv.Profile, bool) {
	switch strings.ToLower(name) {
	case "truecolor", "24bit":
		return termenv.TrueColor, true
	case "256", "ansi256":
		return termenv.ANSI256, true
	case "16", "ansi":
		return termenv.ANSI, true
	case "ascii", "none":
		return termenv.Ascii, true
	}
	return termenv.Ascii, false
}

func (l *Loop) colorProfile(tty bool) termenv.Profile {
	if p, ok := parseProfile(l.cfg.ColorProfile); ok {
		return p
	}
	return termenv.NewOutput(l.term, termenv.WithTTY(tty)).EnvColorProfile()
}

func (l *Loop) syncEnabled(tty bool) bool {
	switch l.cfg.SyncUpdates {
	case SyncOn:
		return true
	case SyncOff:
		return false
	}
	switch os.Getenv("TERM") {
	case "dumb", "linux":
		return false
	}
	return tty
}
