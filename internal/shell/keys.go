package shell

import "unicode/utf8"

// Key is a decoded keystroke. Printable keys are their own text.
type Key string

const (
	KeyEnter      Key = "enter"
	KeyEsc        Key = "esc"
	KeyCtrlC      Key = "ctrl+c"
	KeyLeft       Key = "left"
	KeyRight      Key = "right"
	KeyShiftLeft  Key = "shift+left"
	KeyShiftRight Key = "shift+right"
)

var csiKeys = map[string]Key{
	"D":    KeyLeft,
	"C":    KeyRight,
	"1;2D": KeyShiftLeft,
	"1;2C": KeyShiftRight,
}

// DecodeKeys turns raw terminal input into keys. Unknown escape sequences
// and control bytes are dropped.
func DecodeKeys(b []byte) []Key {
	var keys []Key
	for len(b) > 0 {
		switch c := b[0]; {
		case c == 0x03:
			keys = append(keys, KeyCtrlC)
			b = b[1:]
		case c == '\r' || c == '\n':
			keys = append(keys, KeyEnter)
			b = b[1:]
		case c == 0x1b:
			k, n := decodeEscape(b)
			if k != "" {
				keys = append(keys, k)
			}
			b = b[n:]
		case c < 0x20 || c == 0x7f:
			b = b[1:]
		default:
			r, n := utf8.DecodeRune(b)
			if r != utf8.RuneError {
				keys = append(keys, Key(string(r)))
			}
			b = b[n:]
		}
	}
	return keys
}

func decodeEscape(b []byte) (Key, int) {
	if len(b) < 2 || (b[1] != '[' && b[1] != 'O') {
		return KeyEsc, 1
	}
	// CSI/SS3: parameters then a final byte in 0x40..0x7e.
	for i := 2; i < len(b); i++ {
		if b[i] >= 0x40 && b[i] <= 0x7e {
			return csiKeys[string(b[2:i+1])], i + 1
		}
	}
	return "", len(b)
}
