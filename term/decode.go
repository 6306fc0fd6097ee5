package term

import (
	"bytes"
	"strconv"
	"unicode/utf8"
)

// maxSequence bounds how far the decoder scans for the end of an escape
// sequence before treating it as garbage.
const maxSequence = 64

var pasteEnd = []byte("\x1b[201~")

// Decoder turns raw terminal input into Events.
//
// Input may arrive split at any byte. Incomplete sequences are kept until
// more bytes arrive or Timeout is called; malformed sequences are dropped
// without producing an event.
type Decoder struct {
	buf     []byte
	inPaste bool
	paste   bytes.Buffer
}

// Feed appends input and returns every event that is now complete.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf = append(d.buf, p...)
	var events []Event
	for len(d.buf) > 0 {
		if d.inPaste {
			idx := bytes.Index(d.buf, pasteEnd)
			if idx < 0 {
				// Keep a possible partial end marker in buf.
				keep := min(len(d.buf), len(pasteEnd)-1)
				d.paste.Write(d.buf[:len(d.buf)-keep])
				d.buf = append(d.buf[:0], d.buf[len(d.buf)-keep:]...)
				break
			}
			d.paste.Write(d.buf[:idx])
			d.buf = d.buf[idx+len(pasteEnd):]
			d.inPaste = false
			events = append(events, Event{Type: EventPaste, Text: d.paste.String()})
			d.paste.Reset()
			continue
		}

		n, ev, ok := d.parse(d.buf)
		if n == 0 {
			break
		}
		d.buf = d.buf[n:]
		if ok {
			events = append(events, ev)
		}
	}
	if len(d.buf) == 0 {
		d.buf = d.buf[:0:0]
	}
	return events
}

// Pending reports whether a partial sequence is waiting for more input.
func (d *Decoder) Pending() bool {
	return len(d.buf) > 0 && !d.inPaste
}

// Timeout resolves buffered input after a pause: a lone ESC becomes the
// Escape key and any other partial sequence is discarded.
func (d *Decoder) Timeout() []Event {
	if d.inPaste || len(d.buf) == 0 {
		return nil
	}
	lone := len(d.buf) == 1 && d.buf[0] == 0x1b
	d.buf = d.buf[:0]
	if lone {
		return []Event{{Type: EventKey, Key: KeyEscape}}
	}
	return nil
}

// parse decodes one event from the front of b. It returns the number of bytes
// consumed (0 when b holds an incomplete sequence) and whether ev is valid.
func (d *Decoder) parse(b []byte) (int, Event, bool) {
	switch c := b[0]; {
	case c == 0x1b:
		return d.parseEscape(b)
	case c < 0x20 || c == 0x7f:
		return 1, control(c), true
	}

	if !utf8.FullRune(b) {
		return 0, Event{}, false
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return 1, Event{}, false
	}
	return size, Event{Type: EventKey, Key: KeyRune, Rune: r}, true
}

func control(c byte) Event {
	switch c {
	case 0x0d, 0x0a:
		return Event{Type: EventKey, Key: KeyEnter}
	case 0x09:
		return Event{Type: EventKey, Key: KeyTab}
	case 0x08, 0x7f:
		return Event{Type: EventKey, Key: KeyBackspace}
	case 0x1b:
		return Event{Type: EventKey, Key: KeyEscape}
	case 0x00:
		return Event{Type: EventKey, Key: KeyRune, Rune: ' ', Modifiers: ModCtrl}
	}
	if c <= 0x1a {
		return Event{Type: EventKey, Key: KeyRune, Rune: rune('a' + c - 1), Modifiers: ModCtrl}
	}
	// 0x1c..0x1f: ctrl with \ ] ^ _
	return Event{Type: EventKey, Key: KeyRune, Rune: rune(c + 0x40), Modifiers: ModCtrl}
}

func (d *Decoder) parseEscape(b []byte) (int, Event, bool) {
	if len(b) < 2 {
		return 0, Event{}, false
	}
	switch c := b[1]; {
	case c == '[':
		return d.parseCSI(b)
	case c == 'O':
		return parseSS3(b)
	case c == 0x1b:
		return 2, Event{Type: EventKey, Key: KeyEscape, Modifiers: ModAlt}, true
	case c < 0x20 || c == 0x7f:
		ev := control(c)
		ev.Modifiers |= ModAlt
		return 2, ev, true
	}

	// Alt + printable
	if !utf8.FullRune(b[1:]) {
		return 0, Event{}, false
	}
	r, size := utf8.DecodeRune(b[1:])
	if r == utf8.RuneError && size <= 1 {
		return 2, Event{}, false
	}
	return 1 + size, Event{Type: EventKey, Key: KeyRune, Rune: r, Modifiers: ModAlt}, true
}

func parseSS3(b []byte) (int, Event, bool) {
	if len(b) < 3 {
		return 0, Event{}, false
	}
	if k, ok := letterKeys[b[2]]; ok {
		return 3, Event{Type: EventKey, Key: k}, true
	}
	return 3, Event{}, false
}

// letterKeys maps the final byte of CSI and SS3 sequences to keys.
var letterKeys = map[byte]Key{
	'A': KeyUp, 'B': KeyDown, 'C': KeyRight, 'D': KeyLeft,
	'H': KeyHome, 'F': KeyEnd,
	'P': KeyF1, 'Q': KeyF2, 'R': KeyF3, 'S': KeyF4,
}

// tildeKeys maps the first parameter of CSI ... ~ sequences to keys.
var tildeKeys = map[int]Key{
	1: KeyHome, 2: KeyInsert, 3: KeyDelete, 4: KeyEnd, 5: KeyPageUp, 6: KeyPageDown,
	7: KeyHome, 8: KeyEnd,
	11: KeyF1, 12: KeyF2, 13: KeyF3, 14: KeyF4, 15: KeyF5,
	17: KeyF6, 18: KeyF7, 19: KeyF8, 20: KeyF9, 21: KeyF10, 23: KeyF11, 24: KeyF12,
}

// csiEnd finds the final byte of the CSI sequence starting at b. It returns
// -1 when more input is needed and -2 when the sequence is malformed.
func csiEnd(b []byte) int {
	for i := 2; i < len(b); i++ {
		c := b[i]
		switch {
		case c >= 0x40 && c <= 0x7e:
			return i
		case c >= 0x20 && c <= 0x3f:
			if i >= maxSequence {
				return -2
			}
		default:
			return -2
		}
	}
	return -1
}

func (d *Decoder) parseCSI(b []byte) (int, Event, bool) {
	end := csiEnd(b)
	switch end {
	case -1:
		return 0, Event{}, false
	case -2:
		// Drop the introducer; the rest is decoded as ordinary input.
		return 2, Event{}, false
	}
	n := end + 1
	final := b[end]
	body := b[2:end]

	if len(body) > 0 && body[0] == '<' && (final == 'M' || final == 'm') {
		ev, ok := parseSGRMouse(body[1:], final == 'm')
		return n, ev, ok
	}
	if len(body) > 0 && (body[0] == '?' || body[0] == '>' || body[0] == '=') {
		// Replies to queries, not input.
		return n, Event{}, false
	}

	params := parseParams(body)
	if params == nil {
		return n, Event{}, false
	}
	mods := modifiers(param(params, 1, 1))

	switch final {
	case '~':
		code := param(params, 0, 0)
		if code == 200 {
			d.inPaste = true
			return n, Event{}, false
		}
		if k, ok := tildeKeys[code]; ok {
			return n, Event{Type: EventKey, Key: k, Modifiers: mods}, true
		}
	case 'Z':
		return n, Event{Type: EventKey, Key: KeyTab, Modifiers: ModShift}, true
	case 'u':
		return n, kittyKey(param(params, 0, 0), mods), true
	default:
		if k, ok := letterKeys[final]; ok {
			return n, Event{Type: EventKey, Key: k, Modifiers: mods}, true
		}
	}
	return n, Event{}, false
}

// parseParams splits "1;5" style parameters. Sub-parameters after ':' are
// ignored. It returns nil on a syntax error.
func parseParams(body []byte) []int {
	if len(body) == 0 {
		return []int{}
	}
	var out []int
	for _, field := range bytes.Split(body, []byte{';'}) {
		if i := bytes.IndexByte(field, ':'); i >= 0 {
			field = field[:i]
		}
		if len(field) == 0 {
			out = append(out, 0)
			continue
		}
		v, err := strconv.Atoi(string(field))
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func param(params []int, i, def int) int {
	if i < len(params) && params[i] != 0 {
		return params[i]
	}
	return def
}

// modifiers decodes an xterm modifier parameter (1 + bitmask).
func modifiers(p int) Modifier {
	bits := p - 1
	var m Modifier
	if bits&1 != 0 {
		m |= ModShift
	}
	if bits&2 != 0 {
		m |= ModAlt
	}
	if bits&4 != 0 {
		m |= ModCtrl
	}
	return m
}

// kittyKey decodes a CSI code;mods u key report.
func kittyKey(code int, mods Modifier) Event {
	switch code {
	case 13:
		return Event{Type: EventKey, Key: KeyEnter, Modifiers: mods}
	case 9:
		return Event{Type: EventKey, Key: KeyTab, Modifiers: mods}
	case 27:
		return Event{Type: EventKey, Key: KeyEscape, Modifiers: mods}
	case 127:
		return Event{Type: EventKey, Key: KeyBackspace, Modifiers: mods}
	}
	return Event{Type: EventKey, Key: KeyRune, Rune: rune(code), Modifiers: mods}
}

// parseSGRMouse decodes the "b;x;y" body of an SGR mouse report.
func parseSGRMouse(body []byte, release bool) (Event, bool) {
	params := parseParams(body)
	if len(params) != 3 || params[1] < 1 || params[2] < 1 {
		return Event{}, false
	}
	b := params[0]
	ev := Event{Type: EventMouse, X: params[1] - 1, Y: params[2] - 1, Action: MousePress}
	if b&4 != 0 {
		ev.Modifiers |= ModShift
	}
	if b&8 != 0 {
		ev.Modifiers |= ModAlt
	}
	if b&16 != 0 {
		ev.Modifiers |= ModCtrl
	}
	switch {
	case b&64 != 0:
		ev.Button = MouseWheelUp + MouseButton(b&1)
	case b&32 != 0:
		ev.Action = MouseMotion
		ev.Button = MouseButton(b & 3)
	default:
		ev.Button = MouseButton(b & 3)
	}
	if release {
		ev.Action = MouseRelease
	}
	return ev, true
}

// ParseProbeReply scans a reply to the keyboard enhancement probe. enhanced
// is set when the terminal reported its keyboard flags; done is set once the
// device attributes reply that terminates the probe has arrived.
func ParseProbeReply(b []byte) (enhanced, done bool) {
	for {
		i := bytes.Index(b, []byte("\x1b[?"))
		if i < 0 {
			return enhanced, done
		}
		b = b[i+3:]
		end := bytes.IndexFunc(b, func(r rune) bool { return r >= 0x40 && r <= 0x7e })
		if end < 0 {
			return enhanced, done
		}
		switch b[end] {
		case 'u':
			enhanced = true
		case 'c':
			done = true
		}
		b = b[end+1:]
	}
}
