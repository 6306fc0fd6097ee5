//go:build unix

package term

import (
	"context"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
)

// openPty returns a Std over the follower side of a new pseudo-terminal and
// the controller side that plays the terminal emulator.
func openPty(t *testing.T) (*Std, *os.File) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() {
		tty.Close()
		ptmx.Close()
	})
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 80}); err != nil {
		t.Fatal(err)
	}
	return NewStd(tty, tty), ptmx
}

func TestStdTerminal(t *testing.T) {
	std, ptmx := openPty(t)
	if !std.IsTerminal() {
		t.Fatal("pty not detected as a terminal")
	}
	w, h, err := std.Size()
	if err != nil || w != 80 || h != 24 {
		t.Fatalf("Size = %d, %d, %v; want 80, 24", w, h, err)
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 10, Cols: 33}); err != nil {
		t.Fatal(err)
	}
	if w, h, _ := std.Size(); w != 33 || h != 10 {
		t.Errorf("after resize Size = %d, %d; want 33, 10", w, h)
	}
}

func TestStdNotATerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	std := NewStd(r, w)
	if std.IsTerminal() {
		t.Error("pipe detected as a terminal")
	}
	if err := std.EnableRaw(); err != nil {
		t.Errorf("EnableRaw on a pipe: %v", err)
	}
	if std.ProbeKeyboardEnhancement(10 * time.Millisecond) {
		t.Error("probe succeeded on a pipe")
	}
}

func TestStdRawMode(t *testing.T) {
	std, _ := openPty(t)
	if err := std.EnableRaw(); err != nil {
		t.Fatalf("EnableRaw: %v", err)
	}
	if err := std.EnableRaw(); err != nil {
		t.Fatalf("second EnableRaw: %v", err)
	}
	if err := std.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if err := std.Restore(); err != nil {
		t.Errorf("second Restore: %v", err)
	}
}

func TestStdProbe(t *testing.T) {
	t.Run("terminal replies", func(t *testing.T) {
		std, ptmx := openPty(t)
		if err := std.EnableRaw(); err != nil {
			t.Fatal(err)
		}
		defer std.Restore()

		go func() {
			buf := make([]byte, len(probeQuery))
			if _, err := io.ReadFull(ptmx, buf); err != nil {
				return
			}
			ptmx.Write([]byte("\x1b[?1u\x1b[?62;22c"))
		}()
		if !std.ProbeKeyboardEnhancement(2 * time.Second) {
			t.Error("probe did not see the keyboard flags reply")
		}
	})

	t.Run("silent terminal", func(t *testing.T) {
		std, _ := openPty(t)
		if err := std.EnableRaw(); err != nil {
			t.Fatal(err)
		}
		defer std.Restore()

		start := time.Now()
		if std.ProbeKeyboardEnhancement(20 * time.Millisecond) {
			t.Error("probe succeeded without a reply")
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("probe took %v", elapsed)
		}
	})
}

func TestStdEvents(t *testing.T) {
	std, ptmx := openPty(t)
	if err := std.EnableRaw(); err != nil {
		t.Fatal(err)
	}
	defer std.Restore()

	ctx, cancel := context.WithCancel(context.Background())
	events := std.Events(ctx)

	next := func() Event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("no event")
			return Event{}
		}
	}

	ptmx.Write([]byte("a\x1b[A"))
	if ev := next(); !ev.IsRune('a') {
		t.Errorf("got %v, want a", ev)
	}
	if ev := next(); ev.Key != KeyUp {
		t.Errorf("got %v, want up", ev)
	}

	ptmx.Write([]byte{0x1b})
	if ev := next(); ev.Key != KeyEscape {
		t.Errorf("got %v, want a lone escape after the timeout", ev)
	}

	if err := pty.Setsize(ptmx, &pty.Winsize{Rows: 12, Cols: 40}); err != nil {
		t.Fatal(err)
	}
	// The pty is not our controlling terminal, so deliver the signal
	// ourselves until the watcher has been installed.
	deadline := time.Now().Add(2 * time.Second)
	for {
		syscall.Kill(os.Getpid(), syscall.SIGWINCH)
		select {
		case ev := <-events:
			if ev.Type != EventResize || ev.Width != 40 || ev.Height != 12 {
				t.Fatalf("got %v, want resize(40x12)", ev)
			}
		case <-time.After(20 * time.Millisecond):
			if time.Now().After(deadline) {
				t.Fatal("no resize event")
			}
			continue
		}
		break
	}

	cancel()
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("events channel not closed after cancel")
		}
	}
}
