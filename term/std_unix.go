//go:build unix

package term

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/muesli/cancelreader"
	"golang.org/x/sys/unix"
	xterm "golang.org/x/term"
)

// Std is a Terminal over a pair of files, usually os.Stdin and os.Stdout.
type Std struct {
	in    *os.File
	out   *os.File
	inFd  int
	outFd int

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
	return &Std{in: in, out: out, inFd: int(in.Fd()), outFd: int(out.Fd())}
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
	ws, err := unix.IoctlGetWinsize(t.outFd, unix.TIOCGWINSZ)
	if err == nil && ws.Col > 0 && ws.Row > 0 {
		return int(ws.Col), int(ws.Row), nil
	}
	w, h, err2 := xterm.GetSize(t.inFd)
	if err2 != nil {
		return 0, 0, fmt.Errorf("terminal size: %w", errors.Join(err, err2))
	}
	return w, h, nil
}

// EnableRaw puts the input side into raw mode. Input that is not a
// terminal is left alone.
func (t *Std) EnableRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != nil || !xterm.IsTerminal(t.inFd) {
		return nil
	}
	st, err := xterm.MakeRaw(t.inFd)
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
	if err := xterm.Restore(t.inFd, st); err != nil {
		return fmt.Errorf("failed to restore termios: %w", err)
	}
	return nil
}

// ProbeKeyboardEnhancement queries the keyboard flags and waits for the
// reply, giving up after timeout.
func (t *Std) ProbeKeyboardEnhancement(timeout time.Duration) bool {
	if !xterm.IsTerminal(t.inFd) {
		return false
	}
	if _, err := t.out.WriteString(probeQuery); err != nil {
		return false
	}

	deadline := time.Now().Add(timeout)
	var reply []byte
	buf := make([]byte, 256)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		fds := []unix.PollFd{{Fd: int32(t.inFd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(remaining/time.Millisecond)+1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false
		}
		if n == 0 {
			continue
		}
		rn, err := unix.Read(t.inFd, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return false
		}
		if rn == 0 {
			return false
		}
		reply = append(reply, buf[:rn]...)
		if enhanced, done := ParseProbeReply(reply); done {
			return enhanced
		}
	}
}

// Events reads and decodes input until ctx is done. Terminal resizes are
// reported as EventResize.
func (t *Std) Events(ctx context.Context) <-chan Event {
	out := make(chan Event, 64)
	chunks := make(chan []byte, 16)

	reader, err := cancelreader.NewReader(t.in)
	if err != nil {
		chunks = nil
	} else {
		go readLoop(ctx, reader, chunks)
	}

	go func() {
		defer close(out)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGWINCH)
		defer signal.Stop(sig)
		if reader != nil {
			defer reader.Cancel()
		}

		var dec Decoder
		var escTimer <-chan time.Time
		send := func(evs []Event) bool {
			for _, ev := range evs {
				select {
				case out <- ev:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-chunks:
				if !ok {
					chunks = nil
					continue
				}
				if !send(dec.Feed(b)) {
					return
				}
				escTimer = nil
				if dec.Pending() {
					escTimer = time.After(EscapeTimeout)
				}
			case <-escTimer:
				escTimer = nil
				if !send(dec.Timeout()) {
					return
				}
			case <-sig:
				w, h, err := t.Size()
				if err != nil {
					continue
				}
				if !send([]Event{{Type: EventResize, Width: w, Height: h}}) {
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
