package html

import (
	"fmt"
	"strings"
)

var hrefSafe = func() [256]bool {
	var set [256]bool
	for _, c := range []byte("-_.+!*(),%#@?=;:/,+$~" +
		"abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789") {
		set[c] = true
	}
	return set
}()

// escape writes s with the four characters HTML free text cannot contain
// replaced by entities.
func (r *renderer) escape(s string) {
	offset := 0
	for i := 0; i < len(s); i++ {
		var esc string
		switch s[i] {
		case '"':
			esc = "&quot;"
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		default:
			continue
		}
		r.writeString(s[offset:i])
		r.writeString(esc)
		offset = i + 1
	}
	r.writeString(s[offset:])
}

// escapeHref writes a URL for an HTML attribute. Bytes outside the safe
// set are percent-encoded, except for '&' and the apostrophe which get
// entity forms. '%' passes through so pre-encoded URLs survive.
func (r *renderer) escapeHref(s string) {
	i := 0
	for i < len(s) {
		org := i
		for i < len(s) && hrefSafe[s[i]] {
			i++
		}
		if i > org {
			r.writeString(s[org:i])
		}
		if i >= len(s) {
			break
		}
		switch s[i] {
		case '&':
			r.writeString("&amp;")
		case '\'':
			r.writeString("&#x27;")
		default:
			r.writeString(fmt.Sprintf("%%%02X", s[i]))
		}
		i++
	}
}

// dangerousURL reports whether a link destination uses a scheme that
// could execute script or exfiltrate content. Image data URLs are
// allowed.
func dangerousURL(url string) bool {
	for _, scheme := range []string{"javascript:", "vbscript:", "file:"} {
		if hasPrefixFold(url, scheme) {
			return true
		}
	}
	if !hasPrefixFold(url, "data:") {
		return false
	}
	for _, image := range []string{"data:image/png", "data:image/gif", "data:image/jpeg", "data:image/webp"} {
		if hasPrefixFold(url, image) {
			return false
		}
	}
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

var tagfilterBlacklist = []string{
	"title",
	"textarea",
	"style",
	"xmp",
	"iframe",
	"noembed",
	"noframes",
	"script",
	"plaintext",
}

// tagfilter reports whether the raw HTML starting at a '<' opens or
// closes one of the filtered tag names.
func tagfilter(literal string) bool {
	if len(literal) < 3 || literal[0] != '<' {
		return false
	}
	i := 1
	if literal[i] == '/' {
		i++
	}
	lc := strings.ToLower(literal[i:])
	for _, t := range tagfilterBlacklist {
		if !strings.HasPrefix(lc, t) {
			continue
		}
		j := i + len(t)
		if j >= len(literal) {
			return false
		}
		switch b := literal[j]; {
		case b == ' ' || b == '\t' || b == '\n' || b == '\v' || b == '\f' || b == '\r':
			return true
		case b == '>':
			return true
		case b == '/' && j+1 < len(literal) && literal[j+1] == '>':
			return true
		}
		return false
	}
	return false
}

// tagfilterBlock writes a raw HTML block with every filtered tag's
// opening angle bracket escaped.
func (r *renderer) tagfilterBlock(buffer string) {
	offset := 0
	for {
		i := strings.IndexByte(buffer[offset:], '<')
		if i < 0 {
			break
		}
		r.writeString(buffer[offset : offset+i])
		if tagfilter(buffer[offset+i:]) {
			r.writeString("&lt;")
		} else {
			r.writeString("<")
		}
		offset += i + 1
	}
	r.writeString(buffer[offset:])
}
