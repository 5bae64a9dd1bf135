// Package sanitize guards the storage boundary: identifier fields are
// rejected outright when they carry unexpected characters, while free-text
// fields are round-tripped through an extensive character-reference encoding
// so that values meaningful to the storage layer are neutralised without the
// caller ever observing a transformed value.
package sanitize

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// IsUnsafe reports whether s contains any character outside [A-Za-z0-9_-.].
// It is applied to identifiers (user, calendar, appointment, tag, pause and
// share ids) before they reach a repository; free text is never filtered by
// this check.
func IsUnsafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-' || r == '.':
		default:
			return true
		}
	}
	return false
}

// safeTextRune reports whether r may pass through Encode unescaped.
func safeTextRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == ' ' || r == '_' || r == '-' || r == '.' || r == ',':
		return true
	}
	return false
}

// Encode rewrites every rune outside a small safe alphabet as a hexadecimal
// character reference (&#xHH;). Quotes, semicolons, angle brackets and any
// other rune the storage layer could misinterpret are neutralised.
// Decode(Encode(s)) == s holds for every string s.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if safeTextRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString("&#x")
		b.WriteString(strconv.FormatInt(int64(r), 16))
		b.WriteString(";")
	}
	return b.String()
}

// Decode inverts Encode. References that do not parse are kept verbatim so
// that decoding never loses data that was stored before encoding existed.
func Decode(s string) string {
	if !strings.Contains(s, "&#x") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if !strings.HasPrefix(s[i:], "&#x") {
			b.WriteByte(s[i])
			i++
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		code, err := strconv.ParseInt(s[i+3:i+end], 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			b.WriteByte(s[i])
			i++
			continue
		}
		b.WriteRune(rune(code))
		i += end + 1
	}
	return b.String()
}
