package parser

import (
	"strings"

	"golang.org/x/text/cases"
)

var labelFolder = cases.Fold()

// normalizeLabel trims the label, collapses interior whitespace runs to a
// single space and, when fold is set, case-folds the result.
func normalizeLabel(label string, fold bool) string {
	var b strings.Builder
	b.Grow(len(label))
	lastWasSpace := false
	for _, r := range strings.TrimSpace(label) {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}
	if fold {
		return labelFolder.String(b.String())
	}
	return b.String()
}

// Reference is a resolved link reference definition.
type Reference struct {
	URL   string
	Title string
}

// RefMap stores link reference definitions keyed by normalized label.
// The first definition of a label wins.
type RefMap struct {
	refs map[string]Reference
}

// NewRefMap returns an empty reference map.
func NewRefMap() *RefMap {
	return &RefMap{refs: make(map[string]Reference)}
}

// Add stores a reference unless the label is already defined.
func (m *RefMap) Add(label string, ref Reference) {
	if _, ok := m.refs[label]; !ok {
		m.refs[label] = ref
	}
}

// Lookup resolves a normalized label.
func (m *RefMap) Lookup(label string) (Reference, bool) {
	ref, ok := m.refs[label]
	return ref, ok
}
