package classfile

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// decodeModifiedUTF8 decodes the JVM's modified UTF-8: NUL is the two-byte
// form C0 80 and supplementary characters are surrogate pairs, each encoded
// as a three-byte sequence. Any other irregularity is an error.
func decodeModifiedUTF8(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))
	var pending rune = -1 // high surrogate awaiting its pair

	for i := 0; i < len(b); {
		c := b[i]
		var r rune
		switch {
		case c == 0:
			return "", fmt.Errorf("%w: raw NUL at byte %d", ErrInvalidUtf8, i)
		case c < 0x80:
			r = rune(c)
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: truncated 2-byte sequence at byte %d", ErrInvalidUtf8, i)
			}
			r = rune(c&0x1F)<<6 | rune(b[i+1]&0x3F)
			if r != 0 && r < 0x80 {
				return "", fmt.Errorf("%w: overlong sequence at byte %d", ErrInvalidUtf8, i)
			}
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", fmt.Errorf("%w: truncated 3-byte sequence at byte %d", ErrInvalidUtf8, i)
			}
			r = rune(c&0x0F)<<12 | rune(b[i+1]&0x3F)<<6 | rune(b[i+2]&0x3F)
			if r < 0x800 {
				return "", fmt.Errorf("%w: overlong sequence at byte %d", ErrInvalidUtf8, i)
			}
			i += 3
		default:
			return "", fmt.Errorf("%w: byte 0x%02x at %d", ErrInvalidUtf8, c, i)
		}

		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			if pending >= 0 {
				return "", fmt.Errorf("%w: unpaired high surrogate", ErrInvalidUtf8)
			}
			pending = r
		case utf16.IsSurrogate(r):
			if pending < 0 {
				return "", fmt.Errorf("%w: unpaired low surrogate", ErrInvalidUtf8)
			}
			sb.WriteRune(utf16.DecodeRune(pending, r))
			pending = -1
		default:
			if pending >= 0 {
				return "", fmt.Errorf("%w: unpaired high surrogate", ErrInvalidUtf8)
			}
			sb.WriteRune(r)
		}
	}
	if pending >= 0 {
		return "", fmt.Errorf("%w: unpaired high surrogate at end", ErrInvalidUtf8)
	}
	return sb.String(), nil
}

// encodeModifiedUTF8 is the inverse of decodeModifiedUTF8.
func encodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	put := func(u uint16) {
		switch {
		case u != 0 && u < 0x80:
			out = append(out, byte(u))
		case u < 0x800:
			out = append(out, 0xC0|byte(u>>6), 0x80|byte(u&0x3F))
		default:
			out = append(out, 0xE0|byte(u>>12), 0x80|byte(u>>6&0x3F), 0x80|byte(u&0x3F))
		}
	}
	for _, r := range s {
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			put(uint16(hi))
			put(uint16(lo))
			continue
		}
		put(uint16(r))
	}
	return out
}
