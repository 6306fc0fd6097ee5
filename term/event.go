package term

import "fmt"

// EventType distinguishes input event categories.
type EventType uint8

const (
	EventKey EventType = iota
	EventMouse
	EventResize
	EventPaste
)

// Key identifies a non-printable key. Printable input is KeyRune with Event.Rune set.
type Key uint16

const (
	KeyNone Key = iota
	KeyRune
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var keyNames = map[Key]string{
	KeyEscape: "esc", KeyEnter: "enter", KeyTab: "tab", KeyBackspace: "backspace",
	KeyDelete: "delete", KeyInsert: "insert", KeyUp: "up", KeyDown: "down",
	KeyLeft: "left", KeyRight: "right", KeyHome: "home", KeyEnd: "end",
	KeyPageUp: "pgup", KeyPageDown: "pgdown",
	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4", KeyF5: "f5", KeyF6: "f6",
	KeyF7: "f7", KeyF8: "f8", KeyF9: "f9", KeyF10: "f10", KeyF11: "f11", KeyF12: "f12",
}

func (k Key) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return fmt.Sprintf("key(%d)", uint16(k))
}

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModAlt
	ModCtrl
)

// MouseButton identifies the button of a mouse event.
type MouseButton uint8

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
	MouseNone
	MouseWheelUp
	MouseWheelDown
)

// MouseAction is what happened to the button.
type MouseAction uint8

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
)

// Event is one decoded input event.
type Event struct {
	Type      EventType
	Key       Key
	Rune      rune
	Modifiers Modifier

	// EventMouse, zero-based cell coordinates
	X, Y   int
	Button MouseButton
	Action MouseAction

	// EventResize
	Width, Height int

	// EventPaste
	Text string
}

// IsRune reports whether e is the printable key r with no modifiers other than shift.
func (e Event) IsRune(r rune) bool {
	return e.Type == EventKey && e.Key == KeyRune && e.Rune == r && e.Modifiers&^ModShift == 0
}

// IsCtrl reports whether e is Ctrl held with the letter r.
func (e Event) IsCtrl(r rune) bool {
	return e.Type == EventKey && e.Key == KeyRune && e.Rune == r && e.Modifiers&ModCtrl != 0
}

func (e Event) String() string {
	switch e.Type {
	case EventMouse:
		return fmt.Sprintf("mouse(%d,%d btn=%d action=%d)", e.X, e.Y, e.Button, e.Action)
	case EventResize:
		return fmt.Sprintf("resize(%dx%d)", e.Width, e.Height)
	case EventPaste:
		return fmt.Sprintf("paste(%q)", e.Text)
	}
	prefix := ""
	if e.Modifiers&ModCtrl != 0 {
		prefix += "ctrl+"
	}
	if e.Modifiers&ModAlt != 0 {
		prefix += "alt+"
	}
	if e.Modifiers&ModShift != 0 {
		prefix += "shift+"
	}
	if e.Key == KeyRune {
		return prefix + string(e.Rune)
	}
	return prefix + e.Key.String()
}
