// Package cmark renders a parsed document tree back to CommonMark text.
//
// The output parses to an equivalent tree: delimiters, markers and
// escapes are re-derived from the structure rather than preserved from
// the source. Render.Width enables soft wrapping at the last breakable
// space.
package cmark

import (
	"fmt"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/commonmark/ast"
	"git.home.luguber.info/inful/commonmark/internal/errors"
	"git.home.luguber.info/inful/commonmark/parser"
)

// Render formats the document tree as CommonMark.
func Render(root *ast.Node, options *parser.Options) (string, error) {
	if options == nil {
		options = &parser.Options{}
	}
	if root == nil {
		return "", errors.NewValidation("cmark.render", "nil document")
	}
	f := &formatter{options: options}
	f.format(root)
	if len(f.v) > 0 && f.v[len(f.v)-1] != '\n' {
		f.v = append(f.v, '\n')
	}
	return string(f.v), nil
}

type escaping int

const (
	escapeLiteral escaping = iota
	escapeNormal
	escapeURL
	escapeTitle
)

type formatter struct {
	options *parser.Options
	node    *ast.Node

	v      []byte
	prefix []byte

	column          int
	needCR          int
	lastBreakable   int
	beginLine       bool
	beginContent    bool
	noLinebreaks    bool
	inTightListItem bool
	inTable         bool

	footnoteIx int
}

func (f *formatter) format(root *ast.Node) {
	f.beginLine = true
	f.beginContent = true

	type entry struct {
		node *ast.Node
		post bool
	}
	stack := []entry{{node: root}}

	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.post {
			f.formatNode(e.node, false)
			continue
		}
		if f.formatNode(e.node, true) {
			stack = append(stack, entry{node: e.node, post: true})
			for ch := e.node.LastChild(); ch != nil; ch = ch.Prev() {
				stack = append(stack, entry{node: ch})
			}
		}
	}
}

func (f *formatter) formatNode(node *ast.Node, entering bool) bool {
	f.node = node
	allowWrap := f.options.Render.Width > 0 && !f.options.Render.Hardbreaks

	isItem := node.Type == ast.Item || node.Type == ast.TaskItem
	if !(isItem && node.Prev() == nil && entering) {
		f.inTightListItem = inTightListItem(node)
	}

	switch node.Type {
	case ast.Document, ast.DescriptionList, ast.DescriptionItem, ast.DescriptionTerm:
	case ast.FrontMatter:
		if entering {
			f.output([]byte(node.Literal), false, escapeLiteral)
		}
	case ast.BlockQuote:
		if entering {
			f.literal("> ")
			f.beginContent = true
			f.prefix = append(f.prefix, "> "...)
		} else {
			f.prefix = f.prefix[:len(f.prefix)-2]
			f.blankline()
		}
	case ast.List:
		f.formatList(node, entering)
	case ast.Item:
		f.formatItem(node, entering)
	case ast.TaskItem:
		f.formatItem(node, entering)
		if entering {
			symbol := node.TaskItem.Symbol
			if symbol == 0 {
				symbol = ' '
			}
			f.literal("[" + string(symbol) + "] ")
		}
	case ast.DescriptionDetails:
		if entering {
			f.literal(": ")
		}
	case ast.Heading:
		if entering {
			f.literal(strings.Repeat("#", node.Heading.Level) + " ")
			f.beginContent = true
			f.noLinebreaks = true
		} else {
			f.noLinebreaks = false
			f.blankline()
		}
	case ast.CodeBlock:
		if entering {
			f.formatCodeBlock(node)
		}
	case ast.HTMLBlock:
		if entering {
			f.blankline()
			f.literal(node.HTMLBlock.Literal)
			f.blankline()
		}
	case ast.ThematicBreak:
		if entering {
			f.blankline()
			f.literal("-----")
			f.blankline()
		}
	case ast.Paragraph:
		if !entering {
			f.blankline()
		}
	case ast.Text:
		if entering {
			f.output([]byte(node.Literal), allowWrap, escapeNormal)
		}
	case ast.LineBreak:
		if entering {
			if !f.options.Render.Hardbreaks {
				f.literal("\\")
			}
			f.cr()
		}
	case ast.SoftBreak:
		if entering {
			if !f.noLinebreaks && f.options.Render.Width == 0 && !f.options.Render.Hardbreaks {
				f.cr()
			} else {
				f.output([]byte(" "), allowWrap, escapeLiteral)
			}
		}
	case ast.Code:
		if entering {
			f.formatCode(node.Literal, allowWrap)
		}
	case ast.HTMLInline:
		if entering {
			f.literal(node.Literal)
		}
	case ast.Strong:
		f.literal("**")
	case ast.Emph:
		// A lone emphasis directly inside another uses the other marker
		// so the runs don't merge.
		delim := "*"
		if p := node.Parent(); p != nil && p.Type == ast.Emph &&
			node.Prev() == nil && node.Next() == nil {
			delim = "_"
		}
		f.literal(delim)
	case ast.Strikethrough:
		f.literal("~~")
	case ast.Superscript:
		f.literal("^")
	case ast.Link:
		return f.formatLink(node, entering)
	case ast.Image:
		if entering {
			f.literal("![")
		} else {
			f.literal("](")
			f.output([]byte(node.Link.URL), false, escapeURL)
			if node.Link.Title != "" {
				f.output([]byte(" \""), allowWrap, escapeLiteral)
				f.output([]byte(node.Link.Title), false, escapeTitle)
				f.literal("\"")
			}
			f.literal(")")
		}
	case ast.Table:
		f.inTable = entering
		f.blankline()
	case ast.TableRow:
		if entering {
			f.cr()
			f.literal("|")
		}
	case ast.TableCell:
		f.formatTableCell(node, entering)
	case ast.FootnoteDefinition:
		if entering {
			f.footnoteIx++
			f.literal("[^" + strconv.Itoa(f.footnoteIx) + "]:\n")
			f.prefix = append(f.prefix, "    "...)
		} else {
			f.prefix = f.prefix[:len(f.prefix)-4]
		}
	case ast.FootnoteReference:
		if entering {
			f.literal("[^" + strconv.Itoa(node.FootnoteRef.Ix) + "]")
		}
	}
	return true
}

func (f *formatter) formatList(node *ast.Node, entering bool) {
	if entering {
		return
	}
	// A following list or indented code block would merge into this list
	// without an intervening comment.
	if next := node.Next(); next != nil &&
		(next.Type == ast.List ||
			(next.Type == ast.CodeBlock && !next.CodeBlock.Fenced)) {
		f.cr()
		f.literal("<!-- end list -->")
		f.blankline()
	}
}

func (f *formatter) formatItem(node *ast.Node, entering bool) {
	parent := node.Parent()
	if parent == nil || parent.Type != ast.List {
		return
	}

	markerWidth := 2
	bullet := parent.List.BulletChar
	if bullet == 0 {
		bullet = '-'
	}
	listmarker := string(bullet) + " "
	if parent.List.ListType == ast.OrderedList {
		number := parent.List.Start
		for tmp := node.Prev(); tmp != nil; tmp = tmp.Prev() {
			number++
		}
		delim := "."
		if parent.List.Delimiter == ast.ParenDelim {
			delim = ")"
		}
		pad := "  "
		if number >= 10 {
			pad = " "
		}
		listmarker = strconv.Itoa(number) + delim + pad
		markerWidth = len(listmarker)
	}

	if entering {
		f.literal(listmarker)
		f.beginContent = true
		f.prefix = append(f.prefix, strings.Repeat(" ", markerWidth)...)
	} else {
		f.prefix = f.prefix[:len(f.prefix)-markerWidth]
		f.cr()
	}
}

func (f *formatter) formatCodeBlock(node *ast.Node) {
	parent := node.Parent()
	firstInListItem := node.Prev() == nil && parent != nil &&
		(parent.Type == ast.Item || parent.Type == ast.TaskItem)

	if !firstInListItem {
		f.blankline()
	}

	info := node.CodeBlock.Info
	literal := node.CodeBlock.Literal

	if info == "" && len(literal) > 2 &&
		!isSpaceByte(literal[0]) &&
		!(isSpaceByte(literal[len(literal)-1]) && isSpaceByte(literal[len(literal)-2])) &&
		!firstInListItem {
		f.literal("    ")
		f.prefix = append(f.prefix, "    "...)
		f.literal(literal)
		f.prefix = f.prefix[:len(f.prefix)-4]
	} else {
		fenceChar := byte('`')
		if strings.IndexByte(info, '`') >= 0 {
			fenceChar = '~'
		}
		numTicks := longestByteSequence(literal, fenceChar) + 1
		if numTicks < 3 {
			numTicks = 3
		}
		fence := strings.Repeat(string(fenceChar), numTicks)
		f.literal(fence)
		if info != "" {
			f.literal(" " + info)
		}
		f.cr()
		f.literal(literal)
		f.cr()
		f.literal(fence)
	}
	f.blankline()
}

func (f *formatter) formatCode(literal string, allowWrap bool) {
	numTicks := shortestUnusedSequence(literal, '`')
	ticks := strings.Repeat("`", numTicks)

	allSpace := true
	for i := 0; i < len(literal); i++ {
		if literal[i] != ' ' && literal[i] != '\r' && literal[i] != '\n' {
			allSpace = false
			break
		}
	}
	pad := literal == ""
	if !pad {
		edgeSpace := literal[0] == ' ' || literal[len(literal)-1] == ' '
		edgeBacktick := literal[0] == '`' || literal[len(literal)-1] == '`'
		pad = edgeBacktick || (!allSpace && edgeSpace)
	}

	f.literal(ticks)
	if pad {
		f.literal(" ")
	}
	f.output([]byte(literal), allowWrap, escapeLiteral)
	if pad {
		f.literal(" ")
	}
	f.literal(ticks)
}

func (f *formatter) formatLink(node *ast.Node, entering bool) bool {
	if isAutolink(node) {
		if entering {
			f.literal("<" + strings.TrimPrefix(node.Link.URL, "mailto:") + ">")
			return false
		}
		return true
	}
	if entering {
		f.literal("[")
	} else {
		f.literal("](")
		f.output([]byte(node.Link.URL), false, escapeURL)
		if node.Link.Title != "" {
			f.literal(" \"")
			f.output([]byte(node.Link.Title), false, escapeTitle)
			f.literal("\"")
		}
		f.literal(")")
	}
	return true
}

func (f *formatter) formatTableCell(node *ast.Node, entering bool) {
	if entering {
		f.literal(" ")
		return
	}
	f.literal(" |")

	row := node.Parent()
	if row == nil || !row.TableRow.Header || node.Next() != nil {
		return
	}
	table := row.Parent()
	if table == nil {
		return
	}

	f.cr()
	f.literal("|")
	for _, a := range table.Table.Alignments {
		switch a {
		case ast.AlignLeft:
			f.literal(" :-- |")
		case ast.AlignCenter:
			f.literal(" :-: |")
		case ast.AlignRight:
			f.literal(" --: |")
		default:
			f.literal(" --- |")
		}
	}
	f.cr()
}

//
// Output machinery
//

func (f *formatter) cr() {
	if f.needCR < 1 {
		f.needCR = 1
	}
}

func (f *formatter) blankline() {
	if f.needCR < 2 {
		f.needCR = 2
	}
}

func (f *formatter) literal(s string) {
	f.output([]byte(s), false, escapeLiteral)
}

// output appends buf, emitting pending line breaks with the current
// prefix first, escaping per mode and soft-wrapping when wrap is set and
// the configured width is exceeded.
func (f *formatter) output(buf []byte, wrap bool, esc escaping) {
	wrap = wrap && !f.noLinebreaks

	if f.inTightListItem && f.needCR > 1 {
		f.needCR = 1
	}

	k := len(f.v) - 1
	for f.needCR > 0 {
		if k < 0 || f.v[k] == '\n' {
			k--
		} else {
			f.v = append(f.v, '\n')
			if f.needCR > 1 {
				f.v = append(f.v, f.prefix...)
			}
		}
		f.column = 0
		f.lastBreakable = 0
		f.beginLine = true
		f.beginContent = true
		f.needCR--
	}

	for i := 0; i < len(buf); i++ {
		if f.beginLine {
			f.v = append(f.v, f.prefix...)
			f.column = len(f.prefix)
		}

		if f.inTable && buf[i] == '|' && f.tableEscapeNeeded() {
			f.v = append(f.v, '\\')
		}

		var nextc byte
		if i+1 < len(buf) {
			nextc = buf[i+1]
		}

		if buf[i] == ' ' && wrap {
			if !f.beginLine {
				lastNonspace := len(f.v)
				f.v = append(f.v, ' ')
				f.column++
				f.beginLine = false
				f.beginContent = false
				for i+1 < len(buf) && buf[i+1] == ' ' {
					i++
				}
				if !(i+1 < len(buf) && isDigitByte(buf[i+1])) {
					f.lastBreakable = lastNonspace
				}
			}
		} else if esc == escapeLiteral {
			if buf[i] == '\n' {
				f.v = append(f.v, '\n')
				f.column = 0
				f.beginLine = true
				f.beginContent = true
				f.lastBreakable = 0
			} else {
				f.v = append(f.v, buf[i])
				f.column++
				f.beginLine = false
				f.beginContent = f.beginContent && isDigitByte(buf[i])
			}
		} else {
			f.outc(buf[i], esc, nextc)
			f.beginLine = false
			f.beginContent = f.beginContent && isDigitByte(buf[i])
		}

		if f.options.Render.Width > 0 && f.column > f.options.Render.Width &&
			!f.beginLine && f.lastBreakable > 0 {
			remainder := append([]byte(nil), f.v[f.lastBreakable+1:]...)
			f.v = f.v[:f.lastBreakable]
			f.v = append(f.v, '\n')
			f.v = append(f.v, f.prefix...)
			f.v = append(f.v, remainder...)
			f.column = len(f.prefix) + len(remainder)
			f.lastBreakable = 0
			f.beginLine = false
			f.beginContent = false
		}
	}
}

// tableEscapeNeeded reports whether pipes in the current node's content
// must be backslash-escaped. Structural table nodes write their own
// pipes.
func (f *formatter) tableEscapeNeeded() bool {
	switch f.node.Type {
	case ast.Table, ast.TableRow, ast.TableCell:
		return false
	}
	return true
}

func (f *formatter) outc(c byte, esc escaping, nextc byte) {
	followsDigit := len(f.v) > 0 && isDigitByte(f.v[len(f.v)-1])

	needsEscaping := c < 0x80 &&
		((esc == escapeNormal &&
			(c < 0x20 || c == '*' || c == '_' || c == '[' || c == ']' ||
				c == '#' || c == '<' || c == '>' || c == '\\' || c == '`' || c == '!' ||
				(c == '&' && isAlphaByte(nextc)) ||
				(f.beginContent && (c == '-' || c == '+' || c == '=') && !followsDigit) ||
				(f.beginContent && (c == '.' || c == ')') && followsDigit &&
					(nextc == 0 || isSpaceByte(nextc))))) ||
			(esc == escapeURL &&
				(c == '`' || c == '<' || c == '>' || isSpaceByte(c) ||
					c == '\\' || c == ')' || c == '(')) ||
			(esc == escapeTitle &&
				(c == '`' || c == '<' || c == '>' || c == '"' || c == '\\')))

	switch {
	case !needsEscaping:
		f.v = append(f.v, c)
		f.column++
	case esc == escapeURL && isSpaceByte(c):
		f.v = append(f.v, fmt.Sprintf("%%%2X", c)...)
		f.column += 3
	case isPunctByte(c):
		f.v = append(f.v, '\\', c)
		f.column += 2
	default:
		s := "&#" + strconv.Itoa(int(c)) + ";"
		f.v = append(f.v, s...)
		f.column += len(s)
	}
}

//
// Helpers
//

// inTightListItem reports whether node renders inside a tight list item,
// which collapses blank lines between its blocks.
func inTightListItem(node *ast.Node) bool {
	block := node
	for block != nil && block.Type.IsInline() {
		block = block.Parent()
	}
	if block == nil {
		return false
	}

	if block.Type == ast.Item || block.Type == ast.TaskItem {
		if p := block.Parent(); p != nil && p.Type == ast.List {
			return p.List.Tight
		}
		return false
	}
	parent := block.Parent()
	if parent == nil {
		return false
	}
	if parent.Type == ast.Item || parent.Type == ast.TaskItem {
		if gp := parent.Parent(); gp != nil && gp.Type == ast.List {
			return gp.List.Tight
		}
	}
	return false
}

func isAutolink(node *ast.Node) bool {
	url := node.Link.URL
	if url == "" || !hasScheme(url) {
		return false
	}
	if node.Link.Title != "" {
		return false
	}
	child := node.FirstChild()
	if child == nil || child.Type != ast.Text || child.Next() != nil {
		return false
	}
	return strings.TrimPrefix(url, "mailto:") == child.Literal
}

func hasScheme(url string) bool {
	if len(url) == 0 || !isAlphaByte(url[0]) {
		return false
	}
	for i := 1; i < len(url); i++ {
		c := url[i]
		switch {
		case c == ':':
			return i >= 1
		case isAlphaByte(c) || isDigitByte(c) || c == '.' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return false
}

func longestByteSequence(s string, b byte) int {
	longest, current := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// shortestUnusedSequence returns the smallest run length of b absent
// from s, for sizing code span delimiters.
func shortestUnusedSequence(s string, b byte) int {
	used := 1
	current := 0
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			current++
		} else {
			if current > 0 {
				used |= 1 << current
			}
			current = 0
		}
	}
	if current > 0 {
		used |= 1 << current
	}

	i := 0
	for used&1 != 0 {
		used >>= 1
		i++
	}
	return i
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f' || c == '\r'
}

func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isPunctByte(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') ||
		(c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}
