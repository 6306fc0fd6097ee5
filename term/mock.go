package term

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Terminal for tests. It records everything written and
// delivers events queued with Send.
type Mock struct {
	mu     sync.Mutex
	out    bytes.Buffer
	width  int
	height int
	raw    bool

	// TTY is reported by IsTerminal.
	TTY bool
	// Enhanced is the probe answer; ProbeDelay longer than the probe
	// timeout simulates a terminal that never replies.
	Enhanced   bool
	ProbeDelay time.Duration
	// WriteErr, when set, fails every write.
	WriteErr error

	events chan Event
}

// NewMock creates an interactive mock terminal of the given size.
func NewMock(width, height int) *Mock {
	return &Mock{width: width, height: height, TTY: true, events: make(chan Event, 64)}
}

func (m *Mock) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return 0, m.WriteErr
	}
	return m.out.Write(p)
}

// Output returns everything written so far.
func (m *Mock) Output() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.out.String()
}

// Reset discards recorded output.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out.Reset()
}

func (m *Mock) IsTerminal() bool { return m.TTY }

func (m *Mock) Size() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, nil
}

func (m *Mock) EnableRaw() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = true
	return nil
}

func (m *Mock) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = false
	return nil
}

// Raw reports whether raw mode is on.
func (m *Mock) Raw() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

func (m *Mock) ProbeKeyboardEnhancement(timeout time.Duration) bool {
	if m.ProbeDelay > timeout {
		time.Sleep(timeout)
		return false
	}
	time.Sleep(m.ProbeDelay)
	return m.Enhanced
}

// Send queues an input event.
func (m *Mock) Send(ev Event) {
	m.events <- ev
}

// Resize changes the size and queues the matching resize event.
func (m *Mock) Resize(width, height int) {
	m.mu.Lock()
	m.width, m.height = width, height
	m.mu.Unlock()
	m.Send(Event{Type: EventResize, Width: width, Height: height})
}

func (m *Mock) Events(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-m.events:
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
