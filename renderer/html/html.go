// Package html renders a parsed document tree as HTML.
//
// Rendering is safe by default: raw HTML is replaced with a placeholder
// comment and dangerous link destinations are dropped unless the caller
// opts in through the render options.
package html

import (
	"fmt"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/commonmark/ast"
	"git.home.luguber.info/inful/commonmark/internal/errors"
	"git.home.luguber.info/inful/commonmark/parser"
)

// Render formats the document tree as HTML, honoring the extension and
// render settings the tree was parsed with.
func Render(root *ast.Node, options *parser.Options) (string, error) {
	if options == nil {
		options = &parser.Options{}
	}
	if root == nil {
		return "", errors.NewValidation("html.render", "nil document")
	}
	r := &renderer{
		options:    options,
		anchorizer: newAnchorizer(),
	}
	r.renderDocument(root)
	return r.out.String(), nil
}

type renderPhase int

const (
	phasePre renderPhase = iota
	phasePost
)

type childRendering int

const (
	renderChildrenHTML childRendering = iota
	renderChildrenPlain
	renderChildrenSkip
)

type renderer struct {
	options    *parser.Options
	out        strings.Builder
	lastWasLF  bool
	anchorizer *anchorizer

	footnoteIx        int
	writtenFootnoteIx int
}

type renderEntry struct {
	node  *ast.Node
	plain bool
	phase renderPhase
}

func (r *renderer) renderDocument(root *ast.Node) {
	r.lastWasLF = true
	stack := []renderEntry{{node: root}}

	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if entry.phase == phasePost {
			r.renderNode(entry.node, false)
			continue
		}

		var cr childRendering
		if entry.plain {
			r.renderPlain(entry.node)
			cr = renderChildrenPlain
		} else {
			stack = append(stack, renderEntry{node: entry.node, phase: phasePost})
			cr = r.renderNode(entry.node, true)
		}
		if cr == renderChildrenSkip {
			continue
		}
		for ch := entry.node.LastChild(); ch != nil; ch = ch.Prev() {
			stack = append(stack, renderEntry{
				node:  ch,
				plain: cr == renderChildrenPlain,
			})
		}
	}

	if r.footnoteIx > 0 {
		r.writeString("</ol>\n</section>\n")
	}
}

// renderPlain emits only the text content of a node, as used for image alt
// attributes.
func (r *renderer) renderPlain(node *ast.Node) {
	switch node.Type {
	case ast.Text, ast.Code, ast.HTMLInline:
		r.escape(node.Literal)
	case ast.LineBreak, ast.SoftBreak:
		r.writeString(" ")
	}
}

func (r *renderer) renderNode(node *ast.Node, entering bool) childRendering {
	switch node.Type {
	case ast.Document, ast.FrontMatter, ast.DescriptionItem:
	case ast.BlockQuote:
		if entering {
			r.cr()
			r.writeString("<blockquote")
			r.sourcepos(node)
			r.writeString(">\n")
		} else {
			r.cr()
			r.writeString("</blockquote>\n")
		}
	case ast.Paragraph:
		r.renderParagraph(node, entering)
	case ast.Heading:
		r.renderHeading(node, entering)
	case ast.CodeBlock:
		if entering {
			r.renderCodeBlock(node)
		}
	case ast.HTMLBlock:
		if entering {
			r.renderHTMLBlock(node)
		}
	case ast.ThematicBreak:
		if entering {
			r.cr()
			r.writeString("<hr")
			r.sourcepos(node)
			r.writeString(" />\n")
		}
	case ast.List:
		r.renderList(node, entering)
	case ast.Item:
		if entering {
			r.cr()
			r.writeString("<li")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</li>\n")
		}
	case ast.TaskItem:
		r.renderTaskItem(node, entering)
	case ast.DescriptionList:
		if entering {
			r.cr()
			r.writeString("<dl")
			r.sourcepos(node)
			r.writeString(">\n")
		} else {
			r.writeString("</dl>\n")
		}
	case ast.DescriptionTerm:
		if entering {
			r.writeString("<dt")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</dt>\n")
		}
	case ast.DescriptionDetails:
		if entering {
			r.writeString("<dd")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</dd>\n")
		}
	case ast.FootnoteDefinition:
		r.renderFootnoteDefinition(node, entering)
	case ast.Table:
		r.renderTable(node, entering)
	case ast.TableRow:
		r.renderTableRow(node, entering)
	case ast.TableCell:
		r.renderTableCell(node, entering)
	case ast.Text:
		if entering {
			r.escape(node.Literal)
		}
	case ast.SoftBreak:
		if entering {
			if r.options.Render.Hardbreaks {
				r.writeString("<br")
				r.sourcepos(node)
				r.writeString(" />\n")
			} else {
				r.writeString("\n")
			}
		}
	case ast.LineBreak:
		if entering {
			r.writeString("<br")
			r.sourcepos(node)
			r.writeString(" />\n")
		}
	case ast.Code:
		if entering {
			r.writeString("<code")
			r.sourcepos(node)
			r.writeString(">")
			r.escape(node.Literal)
			r.writeString("</code>")
		}
	case ast.HTMLInline:
		if entering {
			r.renderHTMLInline(node.Literal)
		}
	case ast.Emph:
		if entering {
			r.writeString("<em")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</em>")
		}
	case ast.Strong:
		if entering {
			r.writeString("<strong")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</strong>")
		}
	case ast.Strikethrough:
		if entering {
			r.writeString("<del")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</del>")
		}
	case ast.Superscript:
		if entering {
			r.writeString("<sup")
			r.sourcepos(node)
			r.writeString(">")
		} else {
			r.writeString("</sup>")
		}
	case ast.Link:
		if entering {
			r.writeString("<a")
			r.sourcepos(node)
			r.writeString(" href=\"")
			if r.options.Render.UnsafeRaw || !dangerousURL(node.Link.URL) {
				r.escapeHref(node.Link.URL)
			}
			if node.Link.Title != "" {
				r.writeString("\" title=\"")
				r.escape(node.Link.Title)
			}
			r.writeString("\">")
		} else {
			r.writeString("</a>")
		}
	case ast.Image:
		return r.renderImage(node, entering)
	case ast.FootnoteReference:
		if entering {
			r.renderFootnoteReference(node)
		}
	}
	return renderChildrenHTML
}

func (r *renderer) renderParagraph(node *ast.Node, entering bool) {
	tight := false
	if gp := parentOf(parentOf(node)); gp != nil {
		switch gp.Type {
		case ast.List:
			tight = gp.List.Tight
		case ast.DescriptionItem:
			tight = true
		}
	}
	if p := node.Parent(); p != nil && p.Type == ast.DescriptionTerm {
		tight = true
	}
	if tight {
		return
	}

	if entering {
		r.cr()
		r.writeString("<p")
		r.sourcepos(node)
		r.writeString(">")
		return
	}
	if p := node.Parent(); p != nil && p.Type == ast.FootnoteDefinition && node.Next() == nil {
		r.writeString(" ")
		r.footnoteBackref(p)
	}
	r.writeString("</p>\n")
}

func (r *renderer) renderHeading(node *ast.Node, entering bool) {
	if !entering {
		r.writeString("</h" + strconv.Itoa(node.Heading.Level) + ">\n")
		return
	}
	r.cr()
	r.writeString("<h" + strconv.Itoa(node.Heading.Level))
	r.sourcepos(node)
	r.writeString(">")

	if prefix := r.options.Extension.HeaderIDs; prefix != nil {
		id := r.anchorizer.anchorize(collectText(node))
		r.writeString("<a href=\"#" + id + "\" aria-hidden=\"true\" class=\"anchor\" id=\"")
		r.escape(*prefix)
		r.writeString(id + "\"></a>")
	}
}

func (r *renderer) renderCodeBlock(node *ast.Node) {
	r.cr()

	info := node.CodeBlock.Info
	lang := info
	if i := strings.IndexFunc(info, func(c rune) bool { return c == ' ' || c == '\t' }); i >= 0 {
		lang = info[:i]
	}

	if info == "" {
		r.writeString("<pre")
		r.sourcepos(node)
		r.writeString("><code>")
	} else if r.options.Render.GithubPreLang {
		r.writeString("<pre")
		r.sourcepos(node)
		r.writeString(" lang=\"")
		r.escape(lang)
		r.writeString("\"><code>")
	} else {
		r.writeString("<pre")
		r.sourcepos(node)
		r.writeString("><code class=\"language-")
		r.escape(lang)
		r.writeString("\">")
	}
	r.escape(node.CodeBlock.Literal)
	r.writeString("</code></pre>\n")
}

func (r *renderer) renderHTMLBlock(node *ast.Node) {
	r.cr()
	literal := node.HTMLBlock.Literal
	switch {
	case r.options.Render.Escape:
		r.escape(literal)
	case !r.options.Render.UnsafeRaw:
		r.writeString("<!-- raw HTML omitted -->")
	case r.options.Extension.Tagfilter:
		r.tagfilterBlock(literal)
	default:
		r.writeString(literal)
	}
	r.cr()
}

func (r *renderer) renderHTMLInline(literal string) {
	switch {
	case r.options.Render.Escape:
		r.escape(literal)
	case !r.options.Render.UnsafeRaw:
		r.writeString("<!-- raw HTML omitted -->")
	case r.options.Extension.Tagfilter && tagfilter(literal):
		r.writeString("&lt;")
		r.writeString(literal[1:])
	default:
		r.writeString(literal)
	}
}

func (r *renderer) renderList(node *ast.Node, entering bool) {
	if entering {
		r.cr()
		if node.List.ListType == ast.BulletList {
			r.writeString("<ul")
			r.sourcepos(node)
			r.writeString(">\n")
		} else {
			r.writeString("<ol")
			r.sourcepos(node)
			if node.List.Start == 1 {
				r.writeString(">\n")
			} else {
				r.writeString(" start=\"" + strconv.Itoa(node.List.Start) + "\">\n")
			}
		}
	} else if node.List.ListType == ast.BulletList {
		r.writeString("</ul>\n")
	} else {
		r.writeString("</ol>\n")
	}
}

func (r *renderer) renderTaskItem(node *ast.Node, entering bool) {
	inList := node.Parent() != nil && node.Parent().Type == ast.List
	if entering {
		r.cr()
		if inList {
			r.writeString("<li")
			r.sourcepos(node)
			r.writeString(">")
		}
		r.writeString("<input type=\"checkbox\"")
		if node.TaskItem.Symbol != 0 {
			r.writeString(" checked=\"\"")
		}
		r.writeString(" disabled=\"\" /> ")
	} else if inList {
		r.writeString("</li>\n")
	}
}

func (r *renderer) renderImage(node *ast.Node, entering bool) childRendering {
	if entering {
		r.writeString("<img")
		r.sourcepos(node)
		r.writeString(" src=\"")
		if r.options.Render.UnsafeRaw || !dangerousURL(node.Link.URL) {
			r.escapeHref(node.Link.URL)
		}
		r.writeString("\" alt=\"")
		return renderChildrenPlain
	}
	if node.Link.Title != "" {
		r.writeString("\" title=\"")
		r.escape(node.Link.Title)
	}
	r.writeString("\" />")
	return renderChildrenHTML
}

func (r *renderer) renderFootnoteDefinition(node *ast.Node, entering bool) {
	if entering {
		if r.footnoteIx == 0 {
			r.writeString("<section")
			r.sourcepos(node)
			r.writeString(" class=\"footnotes\" data-footnotes>\n<ol>\n")
		}
		r.footnoteIx++
		r.writeString("<li")
		r.sourcepos(node)
		r.writeString(" id=\"fn-")
		r.escapeHref(node.FootnoteDef.Name)
		r.writeString("\">")
	} else {
		if r.footnoteBackref(node) {
			r.writeString("\n")
		}
		r.writeString("</li>\n")
	}
}

func (r *renderer) renderFootnoteReference(node *ast.Node) {
	refID := "fnref-" + node.FootnoteRef.Name
	if node.FootnoteRef.RefNum > 1 {
		refID = refID + "-" + strconv.Itoa(node.FootnoteRef.RefNum)
	}
	r.writeString("<sup")
	r.sourcepos(node)
	r.writeString(" class=\"footnote-ref\"><a href=\"#fn-")
	r.escapeHref(node.FootnoteRef.Name)
	r.writeString("\" id=\"")
	r.escapeHref(refID)
	r.writeString("\" data-footnote-ref>" + strconv.Itoa(node.FootnoteRef.Ix) + "</a></sup>")
}

// footnoteBackref writes backreference links from a footnote definition to
// each of its references, reporting whether anything was written.
func (r *renderer) footnoteBackref(def *ast.Node) bool {
	if r.writtenFootnoteIx >= r.footnoteIx {
		return false
	}
	r.writtenFootnoteIx = r.footnoteIx

	for refNum := 1; refNum <= def.FootnoteDef.TotalReferences; refNum++ {
		refSuffix := ""
		superscript := ""
		if refNum > 1 {
			refSuffix = "-" + strconv.Itoa(refNum)
			superscript = "<sup class=\"footnote-ref\">" + strconv.Itoa(refNum) + "</sup>"
			r.writeString(" ")
		}
		r.writeString("<a href=\"#fnref-")
		r.escapeHref(def.FootnoteDef.Name)
		ix := strconv.Itoa(r.footnoteIx) + refSuffix
		r.writeString(refSuffix + "\" class=\"footnote-backref\" data-footnote-backref" +
			" data-footnote-backref-idx=\"" + ix + "\" aria-label=\"Back to reference " +
			ix + "\">↩" + superscript + "</a>")
	}
	return true
}

func (r *renderer) renderTable(node *ast.Node, entering bool) {
	if entering {
		r.cr()
		r.writeString("<table")
		r.sourcepos(node)
		r.writeString(">\n")
		return
	}
	if node.LastChild() != nil && node.LastChild() != node.FirstChild() {
		r.cr()
		r.writeString("</tbody>\n")
	}
	r.cr()
	r.writeString("</table>\n")
}

func (r *renderer) renderTableRow(node *ast.Node, entering bool) {
	header := node.TableRow.Header
	if entering {
		r.cr()
		if header {
			r.writeString("<thead>\n")
		} else if prev := node.Prev(); prev != nil && prev.TableRow.Header {
			r.writeString("<tbody>\n")
		}
		r.writeString("<tr")
		r.sourcepos(node)
		r.writeString(">")
	} else {
		r.cr()
		r.writeString("</tr>")
		if header {
			r.cr()
			r.writeString("</thead>")
		}
	}
}

func (r *renderer) renderTableCell(node *ast.Node, entering bool) {
	row := node.Parent()
	table := parentOf(row)
	if row == nil || table == nil {
		return
	}
	header := row.TableRow.Header

	if !entering {
		if header {
			r.writeString("</th>")
		} else {
			r.writeString("</td>")
		}
		return
	}

	r.cr()
	if header {
		r.writeString("<th")
	} else {
		r.writeString("<td")
	}
	r.sourcepos(node)

	i := 0
	for sib := row.FirstChild(); sib != nil && sib != node; sib = sib.Next() {
		i++
	}
	if i < len(table.Table.Alignments) {
		switch table.Table.Alignments[i] {
		case ast.AlignLeft:
			r.writeString(" align=\"left\"")
		case ast.AlignRight:
			r.writeString(" align=\"right\"")
		case ast.AlignCenter:
			r.writeString(" align=\"center\"")
		}
	}
	r.writeString(">")
}

//
// Output helpers
//

func (r *renderer) writeString(s string) {
	if s != "" {
		r.lastWasLF = s[len(s)-1] == '\n'
	}
	r.out.WriteString(s)
}

// cr puts the output at the start of a line.
func (r *renderer) cr() {
	if !r.lastWasLF {
		r.writeString("\n")
	}
}

func (r *renderer) sourcepos(node *ast.Node) {
	if r.options.Render.SourcePos && node.SourcePos.StartLine > 0 {
		sp := node.SourcePos
		r.writeString(fmt.Sprintf(" data-sourcepos=\"%d:%d-%d:%d\"",
			sp.StartLine, sp.StartColumn, sp.EndLine, sp.EndColumn))
	}
}

func parentOf(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}
	return node.Parent()
}

// collectText concatenates the literal content of a subtree, with breaks
// rendered as single spaces.
func collectText(node *ast.Node) string {
	var b strings.Builder
	collectTextAppend(node, &b)
	return b.String()
}

func collectTextAppend(node *ast.Node, b *strings.Builder) {
	switch node.Type {
	case ast.Text, ast.Code:
		b.WriteString(node.Literal)
	case ast.LineBreak, ast.SoftBreak:
		b.WriteByte(' ')
	default:
		for ch := node.FirstChild(); ch != nil; ch = ch.Next() {
			collectTextAppend(ch, b)
		}
	}
}
