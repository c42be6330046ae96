package html

import (
	"strconv"
	"strings"
	"unicode"
)

// anchorizer converts heading text to canonical, unique, still readable
// anchor slugs. It remembers every slug it has handed out, so use one per
// rendered document.
type anchorizer struct {
	seen map[string]struct{}
}

func newAnchorizer() *anchorizer {
	return &anchorizer{seen: make(map[string]struct{})}
}

// anchorize lowercases the header text, drops characters that are not
// letters, marks, numbers, connectors, spaces or hyphens, converts spaces
// to hyphens and appends "-N" until the slug is unique.
func (a *anchorizer) anchorize(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || unicode.IsLetter(r) || unicode.IsMark(r) ||
			unicode.IsNumber(r) || unicode.Is(unicode.Pc, r):
			b.WriteRune(r)
		}
	}
	id := b.String()

	for uniq := 0; ; uniq++ {
		anchor := id
		if uniq > 0 {
			anchor = id + "-" + strconv.Itoa(uniq)
		}
		if _, ok := a.seen[anchor]; !ok {
			a.seen[anchor] = struct{}{}
			return anchor
		}
	}
}
