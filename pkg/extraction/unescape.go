package extraction

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Unescape resolves backslash escapes left behind by a client's string
// rendering of an answer part: \n \t \r \a \b \f \v \" \' \\ \/, octal
// \ooo, \xHH, \uXXXX (surrogate pairs joined) and \UXXXXXXXX. Unknown or
// truncated escapes are kept verbatim.
//
// Consecutive octal and hex escapes form a byte run that is decoded as
// UTF-8, so protobuf-style `Caf\303\251` yields "Café". Bytes that are not
// part of a valid sequence map to U+0000..U+00FF.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	var run []byte
	flush := func() {
		if len(run) > 0 {
			writeByteRun(&b, run)
			run = run[:0]
		}
	}

	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			flush()
			b.WriteByte(c)
			i++
			continue
		}

		next := s[i+1]
		if v, n := octalEscape(s, i+1); n > 0 {
			if v <= 0xFF {
				run = append(run, byte(v))
			} else {
				flush()
				b.WriteRune(rune(v))
			}
			i += 1 + n
			continue
		}
		if next == 'x' {
			if v, ok := hexRune(s, i+2, 2); ok {
				run = append(run, byte(v))
				i += 4
				continue
			}
		}
		flush()

		switch next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '"', '\'', '\\', '/':
			b.WriteByte(next)
		case 'u':
			r, n := unicodeEscape(s, i)
			if n == 0 {
				b.WriteString(s[i : i+2])
				break
			}
			b.WriteRune(r)
			i += n
			continue
		case 'U':
			if r, ok := hexRune(s, i+2, 8); ok && utf8.ValidRune(r) {
				b.WriteRune(r)
				i += 10
				continue
			}
			b.WriteString(s[i : i+2])
		default:
			b.WriteString(s[i : i+2])
		}
		i += 2
	}
	flush()
	return b.String()
}

// octalEscape reads one to three octal digits at s[start:]. It returns the
// value and the number of digits consumed, or 0 when s[start] is not octal.
func octalEscape(s string, start int) (int, int) {
	v, n := 0, 0
	for n < 3 && start+n < len(s) && s[start+n] >= '0' && s[start+n] <= '7' {
		v = v*8 + int(s[start+n]-'0')
		n++
	}
	return v, n
}

func writeByteRun(b *strings.Builder, run []byte) {
	for len(run) > 0 {
		r, size := utf8.DecodeRune(run)
		if r == utf8.RuneError && size <= 1 {
			b.WriteRune(rune(run[0]))
			run = run[1:]
			continue
		}
		b.WriteRune(r)
		run = run[size:]
	}
}

// unicodeEscape decodes \uXXXX at s[i:], joining a following low surrogate.
// It returns the rune and the number of bytes consumed, or 0 on failure.
func unicodeEscape(s string, i int) (rune, int) {
	r, ok := hexRune(s, i+2, 4)
	if !ok {
		return 0, 0
	}
	if !utf16.IsSurrogate(r) {
		return r, 6
	}
	if i+12 <= len(s) && s[i+6] == '\\' && s[i+7] == 'u' {
		if lo, ok := hexRune(s, i+8, 4); ok {
			if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
				return pair, 12
			}
		}
	}
	return utf8.RuneError, 6
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
