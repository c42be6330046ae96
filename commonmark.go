package commonmark

import (
	"git.home.luguber.info/inful/commonmark/ast"
	"git.home.luguber.info/inful/commonmark/parser"
	"git.home.luguber.info/inful/commonmark/renderer/cmark"
	"git.home.luguber.info/inful/commonmark/renderer/html"
)

// Options bundles all engine settings. The zero value is plain
// CommonMark with safe rendering.
type Options = parser.Options

// ExtensionOptions selects the enabled syntax extensions.
type ExtensionOptions = parser.ExtensionOptions

// ParseOptions adjusts parsing behavior.
type ParseOptions = parser.ParseOptions

// RenderOptions adjusts both renderers.
type RenderOptions = parser.RenderOptions

// Parse builds the document tree for src. A nil options value means
// defaults. The tree can be inspected or rewritten before rendering.
func Parse(src []byte, options *Options) (*ast.Node, error) {
	return parser.Parse(src, options)
}

// RenderHTML renders a parsed document as HTML.
func RenderHTML(doc *ast.Node, options *Options) (string, error) {
	return html.Render(doc, options)
}

// RenderCommonMark renders a parsed document back to CommonMark text.
func RenderCommonMark(doc *ast.Node, options *Options) (string, error) {
	return cmark.Render(doc, options)
}

// ToHTML converts CommonMark source to HTML in one step.
func ToHTML(src []byte, options *Options) (string, error) {
	doc, err := Parse(src, options)
	if err != nil {
		return "", err
	}
	return RenderHTML(doc, options)
}

// ToCommonMark converts CommonMark source to normalized CommonMark in
// one step.
func ToCommonMark(src []byte, options *Options) (string, error) {
	doc, err := Parse(src, options)
	if err != nil {
		return "", err
	}
	return RenderCommonMark(doc, options)
}
