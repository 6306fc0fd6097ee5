package term

// Escape sequences emitted by the renderer.
const (
	EnterAltScreen = "\x1b[?1049h"
	ExitAltScreen  = "\x1b[?1049l"
	HideCursor     = "\x1b[?25l"
	ShowCursor     = "\x1b[?25h"
	ClearScreen    = "\x1b[2J"
	PurgeScreen    = "\x1b[H\x1b[2J\x1b[3J" // clear the screen and its scrollback
	ClearLine      = "\x1b[K"
	ClearBelow     = "\x1b[J"
	CursorHome     = "\x1b[H"
	ResetStyle     = "\x1b[0m"

	// BeginSync and EndSync bracket one frame so the terminal presents it atomically.
	BeginSync = "\x1b[?2026h"
	EndSync   = "\x1b[?2026l"

	EnableBracketedPaste  = "\x1b[?2004h"
	DisableBracketedPaste = "\x1b[?2004l"

	// SGR mouse reporting for presses, releases, drags and the wheel.
	EnableMouse  = "\x1b[?1000h\x1b[?1002h\x1b[?1006h"
	DisableMouse = "\x1b[?1006l\x1b[?1002l\x1b[?1000l"

	// Keyboard enhancement: disambiguate escape codes.
	PushKeyboardFlags = "\x1b[>1u"
	PopKeyboardFlags  = "\x1b[<u"

	// probeQuery asks for the keyboard flags, then for device attributes,
	// which every terminal answers, so the reply is bounded.
	probeQuery = "\x1b[?u\x1b[c"
)

// AppendMoveTo appends an absolute cursor move to the zero-based cell (x, y).
func AppendMoveTo(b []byte, x, y int) []byte {
	b = append(b, "\x1b["...)
	b = AppendInt(b, y+1)
	b = append(b, ';')
	b = AppendInt(b, x+1)
	return append(b, 'H')
}

// AppendCursorUp appends a relative move of n rows up.
func AppendCursorUp(b []byte, n int) []byte {
	if n <= 0 {
		return b
	}
	b = append(b, "\x1b["...)
	b = AppendInt(b, n)
	return append(b, 'A')
}

// AppendCursorDown appends a relative move of n rows down.
func AppendCursorDown(b []byte, n int) []byte {
	if n <= 0 {
		return b
	}
	b = append(b, "\x1b["...)
	b = AppendInt(b, n)
	return append(b, 'B')
}

// AppendCursorForward appends a relative move of n columns right.
func AppendCursorForward(b []byte, n int) []byte {
	if n <= 0 {
		return b
	}
	b = append(b, "\x1b["...)
	b = AppendInt(b, n)
	return append(b, 'C')
}

// AppendInt appends an integer to a byte slice without allocation.
func AppendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	if n < 0 {
		b = append(b, '-')
		n = -n
	}
	var scratch [20]byte
	i := len(scratch)
	for n > 0 {
		i--
		scratch[i] = byte('0' + n%10)
		n /= 10
	}
	return append(b, scratch[i:]...)
}
