// Package commonmark converts Markdown to HTML and back.
//
// The engine parses CommonMark plus a set of optional extensions
// (tables, strikethrough, footnotes, task lists and others, see
// ExtensionOptions) into a document tree, then renders the tree as
// HTML or as normalized CommonMark. Parsing and rendering are separate
// steps so callers can transform the tree in between:
//
//	doc, err := commonmark.Parse(src, opts)
//	if err != nil { ... }
//	out, err := commonmark.RenderHTML(doc, opts)
//
// ToHTML and ToCommonMark combine both steps for the common case.
//
// Rendering is safe by default: raw HTML is omitted and dangerous link
// destinations are stripped unless RenderOptions.UnsafeRaw is set.
package commonmark
