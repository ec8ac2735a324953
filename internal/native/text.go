package native

import (
	"strings"
	"unicode/utf8"
)

// ValidateText checks that s can be handed to the engine as a C string.
func ValidateText(s string) error {
	if !utf8.ValidString(s) {
		return invalidTextError{reason: "not valid UTF-8"}
	}
	if strings.IndexByte(s, 0) >= 0 {
		return invalidTextError{reason: "contains NUL byte"}
	}
	return nil
}

// utf8Assembler joins token pieces so a rune split across two native
// callbacks is emitted whole.
type utf8Assembler struct {
	pending []byte
}

// Push appends chunk and returns the longest prefix that ends on a rune boundary.
func (a *utf8Assembler) Push(chunk string) string {
	a.pending = append(a.pending, chunk...)
	n := completePrefix(a.pending)
	if n == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(a.pending[:n]), string(utf8.RuneError))
	a.pending = append([]byte(nil), a.pending[n:]...)
	return out
}

// Flush returns whatever is buffered, replacing incomplete sequences.
func (a *utf8Assembler) Flush() string {
	if len(a.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(a.pending), string(utf8.RuneError))
	a.pending = nil
	return out
}

func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
