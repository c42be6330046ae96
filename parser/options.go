// Package parser turns Markdown source into a document tree. Parsing is
// two-phase: a line-oriented block pass builds the block structure, then
// each text-bearing block's content is parsed into inlines.
package parser

import (
	"strings"

	"git.home.luguber.info/inful/commonmark/internal/errors"
)

// ErrInvalidOption is wrapped by Options.Validate failures.
var ErrInvalidOption = errors.NewValidation("options", "invalid option value")

// ExtensionOptions enables syntax beyond the core language.
type ExtensionOptions struct {
	// Strikethrough enables ~~text~~ spans.
	Strikethrough bool
	// Tagfilter escapes a fixed set of risky raw HTML tags.
	Tagfilter bool
	// Table enables pipe tables.
	Table bool
	// Autolink links bare URLs, www. domains and email addresses.
	Autolink bool
	// Tasklist converts leading [x] / [ ] in list items to checkboxes.
	Tasklist bool
	// Superscript enables ^text^ spans.
	Superscript bool
	// Footnotes enables [^name] references and definitions.
	Footnotes bool
	// DescriptionLists enables term/": definition" lists.
	DescriptionLists bool
	// HeaderIDs, when non-nil, adds anchor elements to headings with the
	// value used as an id prefix. The empty string is a valid prefix.
	HeaderIDs *string
	// FrontMatterDelimiter, when non-nil, recognizes metadata fenced by
	// the delimiter at the very start of the document.
	FrontMatterDelimiter *string
}

// ParseOptions adjusts the parse phase.
type ParseOptions struct {
	// Smart converts straight quotes, -- and --- dash runs, and ... to
	// typographic characters.
	Smart bool
	// DefaultInfoString, when non-nil, is used for fenced code blocks
	// without an info string.
	DefaultInfoString *string
}

// RenderOptions adjusts both renderers.
type RenderOptions struct {
	// Hardbreaks renders soft line breaks as hard breaks.
	Hardbreaks bool
	// GithubPreLang emits <pre lang="..."> instead of a class on <code>.
	GithubPreLang bool
	// Width wraps CommonMark output at the given column; 0 disables.
	Width int
	// UnsafeRaw passes raw HTML and dangerous URLs through unchanged.
	UnsafeRaw bool
	// Escape escapes raw HTML instead of omitting it, and takes
	// precedence over UnsafeRaw.
	Escape bool
	// SourcePos adds data-sourcepos attributes to block elements.
	SourcePos bool
}

// Options bundles all engine settings. The zero value enables nothing
// beyond core CommonMark and renders safely.
type Options struct {
	Extension ExtensionOptions
	Parse     ParseOptions
	Render    RenderOptions
}

// Validate checks option values that have no sensible interpretation.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	if o.Render.Width < 0 {
		return errors.Wrap(ErrInvalidOption, "options", "render width must not be negative")
	}
	if d := o.Extension.FrontMatterDelimiter; d != nil {
		if *d == "" || strings.ContainsAny(*d, "\r\n") {
			return errors.Wrap(ErrInvalidOption, "options", "front matter delimiter must be a single non-empty line")
		}
	}
	if p := o.Extension.HeaderIDs; p != nil && strings.ContainsAny(*p, "\r\n") {
		return errors.Wrap(ErrInvalidOption, "options", "header id prefix must not contain newlines")
	}
	return nil
}
