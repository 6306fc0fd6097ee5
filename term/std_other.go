//go:build !unix

package term

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/muesli/cancelreader"
	xterm "golang.org/x/term"
)

// Std is a Terminal over a pair of files, usually os.Stdin and os.Stdout.
// On this platform there is no keyboard enhancement probe and resizes are
// not reported.
type Std struct {
	in  *os.File
	out *os.File

	mu    sync.Mutex
	state *xterm.State
}

// NewStd creates a terminal reading in and writing out. Nil files default
// to os.Stdin and os.Stdout.
func NewStd(in, out *os.File) *Std {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Std{in: in, out: out}
}

func (t *Std) Write(p []byte) (int, error) {
	return t.out.Write(p)
}

// IsTerminal reports whether output goes to a terminal.
func (t *Std) IsTerminal() bool {
	fd := t.out.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Size returns the current terminal dimensions.
func (t *Std) Size() (int, int, error) {
	w, h, err := xterm.GetSize(int(t.out.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("terminal size: %w", err)
	}
	return w, h, nil
}

// EnableRaw puts the input side into raw mode.
func (t *Std) EnableRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := int(t.in.Fd())
	if t.state != nil || !xterm.IsTerminal(fd) {
		return nil
	}
	st, err := xterm.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	t.state = st
	return nil
}

// Restore returns the input to the mode it had before EnableRaw.
func (t *Std) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == nil {
		return nil
	}
	st := t.state
	t.state = nil
	if err := xterm.Restore(int(t.in.Fd()), st); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}

// ProbeKeyboardEnhancement always reports false.
func (t *Std) ProbeKeyboardEnhancement(time.Duration) bool {
	return false
}

// Events reads and decodes input until ctx is done.
func (t *Std) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, 64)
	chunks := make(chan []byte, 16)
	reader, err := cancelreader.NewReader(t.in)
	if err != nil {
		close(out)
		return out
	}
	go readLoop(ctx, reader, chunks)

	go func() {
		defer close(out)
		defer reader.Cancel()
		var dec Decoder
		var escTimer <-chan time.Time
		for {
			var evs []Event
			select {
			case <-ctx.Done():
				return
			case b, ok := <-chunks:
				if !ok {
					return
				}
				evs = dec.Feed(b)
				escTimer = nil
				if dec.Pending() {
					escTimer = time.After(EscapeTimeout)
				}
			case <-escTimer:
				escTimer = nil
				evs = dec.Timeout()
			}
			for _, ev := range evs {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func readLoop(ctx context.Context, r cancelreader.CancelReader, chunks chan<- []byte) {
	defer close(chunks)
	defer r.Close()
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			select {
			case chunks <- b:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}
