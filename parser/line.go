package parser

import "bytes"

const (
	tabStop      = 4
	codeIndent   = 4
	maxListDepth = 100
)

func isLineEnd(c byte) bool { return c == '\n' || c == '\r' }

func isSpaceOrTab(c byte) bool { return c == ' ' || c == '\t' }

// isSpace matches ASCII whitespace the way the block scanners expect.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isPunct(c byte) bool {
	switch {
	case c >= '!' && c <= '/':
		return true
	case c >= ':' && c <= '@':
		return true
	case c >= '[' && c <= '`':
		return true
	case c >= '{' && c <= '~':
		return true
	}
	return false
}

// expandTabs replaces tabs with spaces at 4-column stops, counting columns
// from the start of the line.
func expandTabs(line []byte) []byte {
	if !bytes.ContainsRune(line, '\t') {
		return line
	}
	out := make([]byte, 0, len(line)+3*tabStop)
	col := 0
	for _, c := range line {
		if c == '\t' {
			n := tabStop - col%tabStop
			for i := 0; i < n; i++ {
				out = append(out, ' ')
			}
			col += n
		} else {
			out = append(out, c)
			if c != '\r' && c != '\n' {
				col++
			}
		}
	}
	return out
}

// splitLines cuts src into lines, each terminated by a single '\n'. CRLF and
// lone CR terminators are normalized; a missing final newline is added. A
// leading UTF-8 BOM is dropped.
func splitLines(src []byte) [][]byte {
	src = bytes.TrimPrefix(src, []byte{0xef, 0xbb, 0xbf})
	var lines [][]byte
	start := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '\n':
			lines = append(lines, normalizeLine(src[start:i]))
			start = i + 1
		case '\r':
			lines = append(lines, normalizeLine(src[start:i]))
			if i+1 < len(src) && src[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(src) {
		lines = append(lines, normalizeLine(src[start:]))
	}
	return lines
}

// normalizeLine expands tabs and ensures a trailing '\n'.
func normalizeLine(line []byte) []byte {
	line = expandTabs(line)
	out := make([]byte, len(line), len(line)+1)
	copy(out, line)
	return append(out, '\n')
}

// isBlankBytes reports whether s contains only whitespace.
func isBlankBytes(s []byte) bool {
	for _, c := range s {
		if !isSpace(c) {
			return false
		}
	}
	return true
}

// rtrimSlice drops trailing ASCII whitespace.
func rtrimSlice(s []byte) []byte {
	end := len(s)
	for end > 0 && isSpace(s[end-1]) {
		end--
	}
	return s[:end]
}

// trimBytes drops leading and trailing ASCII whitespace.
func trimBytes(s []byte) []byte {
	start := 0
	for start < len(s) && isSpace(s[start]) {
		start++
	}
	return rtrimSlice(s[start:])
}

// chopTrailingHashtags removes an ATX heading's closing hash run, which must
// be preceded by a space or be the whole remaining content.
func chopTrailingHashtags(line []byte) []byte {
	line = rtrimSlice(line)
	orig := len(line)
	end := orig
	for end > 0 && line[end-1] == '#' {
		end--
	}
	if end == orig {
		return line
	}
	if end == 0 || line[end-1] == ' ' {
		return rtrimSlice(line[:end])
	}
	return line
}

// removeTrailingBlankLines truncates content after the last line holding a
// non-whitespace character.
func removeTrailingBlankLines(content []byte) []byte {
	i := len(content) - 1
	for ; i >= 0; i-- {
		c := content[i]
		if c != ' ' && c != '\t' && !isLineEnd(c) {
			break
		}
	}
	if i < 0 {
		return content[:0]
	}
	for ; i < len(content); i++ {
		if isLineEnd(content[i]) {
			return content[:i]
		}
	}
	return content
}

// unescapeBackslashes removes backslashes before ASCII punctuation in place.
func unescapeBackslashes(s []byte) []byte {
	out := s[:0]
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isPunct(s[i+1]) {
			continue
		}
		out = append(out, s[i])
	}
	return out
}
