package parser

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const maxEntityLen = 32

// unescapeEntity decodes one entity at the start of s, which must begin
// with '&'. It returns the decoded text and the number of bytes consumed,
// or ("", 0) when s does not start with a valid entity.
func unescapeEntity(s []byte) (string, int) {
	if len(s) < 3 || s[0] != '&' {
		return "", 0
	}
	if s[1] == '#' {
		return unescapeNumericEntity(s)
	}
	for i := 1; i < len(s) && i <= maxEntityLen; i++ {
		c := s[i]
		if c == ';' {
			if i == 1 {
				return "", 0
			}
			candidate := string(s[:i+1])
			decoded := html.UnescapeString(candidate)
			// Only full-candidate decodes count; legacy prefix entities
			// leave '&' or the trailing text behind.
			if decoded != candidate &&
				(decoded == "&" || !strings.ContainsAny(decoded, "&;")) {
				return decoded, i + 1
			}
			return "", 0
		}
		if !isAlnum(c) {
			return "", 0
		}
	}
	return "", 0
}

func unescapeNumericEntity(s []byte) (string, int) {
	i := 2
	hex := false
	if i < len(s) && (s[i] == 'x' || s[i] == 'X') {
		hex = true
		i++
	}
	start := i
	var v uint32
	for i < len(s) {
		c := s[i]
		var d uint32
		switch {
		case isDigit(c):
			d = uint32(c - '0')
		case hex && c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case hex && c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			goto done
		}
		if hex {
			v = v*16 + d
		} else {
			v = v*10 + d
		}
		if v > 0x110000 {
			v = 0x110000
		}
		i++
	}
done:
	digits := i - start
	maxDigits := 7
	if hex {
		maxDigits = 6
	}
	if digits == 0 || digits > maxDigits || i >= len(s) || s[i] != ';' {
		return "", 0
	}
	r := rune(v)
	if r == 0 || !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return string(r), i + 1
}

// unescapeHTMLEntities decodes all valid entities in s.
func unescapeHTMLEntities(s []byte) []byte {
	amp := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '&' {
			amp = i
			break
		}
	}
	if amp < 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	out = append(out, s[:amp]...)
	for i := amp; i < len(s); {
		if s[i] == '&' {
			if dec, n := unescapeEntity(s[i:]); n > 0 {
				out = append(out, dec...)
				i += n
				continue
			}
		}
		out = append(out, s[i])
		i++
	}
	return out
}
