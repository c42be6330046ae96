package parser

import (
	"bytes"
	"sort"
	"strings"

	"git.home.luguber.info/inful/commonmark/ast"
)

// Parse builds the document tree for src. The returned error is only ever
// an option validation failure; no input fails to parse.
func Parse(src []byte, options *Options) (*ast.Node, error) {
	if options == nil {
		options = &Options{}
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	root := ast.NewNode(ast.Document)
	root.SourcePos = ast.SourcePos{StartLine: 1, StartColumn: 1, EndLine: 1, EndColumn: 1}

	p := &blockParser{
		options: options,
		root:    root,
		current: root,
		refmap:  NewRefMap(),
	}

	if d := options.Extension.FrontMatterDelimiter; d != nil {
		if literal, rest, ok := splitOffFrontMatter(src, *d); ok {
			fm := ast.NewNode(ast.FrontMatter)
			fm.Literal = string(literal)
			fm.Open = false
			fm.SourcePos.StartLine = 1
			fm.SourcePos.StartColumn = 1
			fm.SourcePos.EndLine = 1 + bytes.Count(bytes.TrimRight(literal, "\n"), []byte{'\n'})
			root.AppendChild(fm)
			p.lineNumber = bytes.Count(literal, []byte{'\n'})
			src = rest
		}
	}

	for _, line := range splitLines(src) {
		p.processLine(line)
	}
	p.finalizeDocument()
	p.postprocessTextNodes()

	return root, nil
}

type blockParser struct {
	options *Options
	root    *ast.Node
	current *ast.Node
	refmap  *RefMap

	lineNumber           int
	offset               int
	firstNonspace        int
	indent               int
	blank                bool
	thematicBreakKillPos int
	lastLineLength       int
	curlineLen           int
	curlineEndCol        int
}

func (p *blockParser) advanceOffset(count int) {
	p.offset += count
}

func (p *blockParser) findFirstNonspace(line []byte) {
	if p.firstNonspace <= p.offset {
		p.firstNonspace = p.offset
		for p.firstNonspace < len(line) && line[p.firstNonspace] == ' ' {
			p.firstNonspace++
		}
	}
	p.indent = p.firstNonspace - p.offset
	p.blank = p.firstNonspace < len(line) && isLineEnd(line[p.firstNonspace])
}

func (p *blockParser) processLine(line []byte) {
	p.curlineLen = len(line)
	end := len(line)
	if end > 0 && line[end-1] == '\n' {
		end--
	}
	if end > 0 && line[end-1] == '\r' {
		end--
	}
	p.curlineEndCol = end

	p.offset = 0
	p.firstNonspace = 0
	p.indent = 0
	p.blank = false
	p.thematicBreakKillPos = 0
	p.lineNumber++

	container, allMatched, shouldContinue := p.checkOpenBlocks(line)
	if shouldContinue {
		lastMatched := container
		current := p.current
		container = p.openNewBlocks(container, line, allMatched)
		if current == p.current {
			p.addTextToContainer(container, lastMatched, line)
		}
	}

	p.lastLineLength = p.curlineEndCol
	p.curlineLen = 0
	p.curlineEndCol = 0
}

// checkOpenBlocks walks the chain of open blocks, matching each against the
// new line. It returns the deepest matched container, whether every open
// block matched, and whether line processing should continue at all (a
// closing code fence consumes the line outright).
func (p *blockParser) checkOpenBlocks(line []byte) (*ast.Node, bool, bool) {
	container := p.root
	allMatched := true
	shouldContinue := true

walk:
	for container.LastChildIsOpen() {
		container = container.LastChild()
		p.findFirstNonspace(line)

		switch container.Type {
		case ast.BlockQuote:
			if !p.parseBlockQuotePrefix(line) {
				allMatched = false
				break walk
			}
		case ast.Item, ast.TaskItem:
			if !p.parseItemPrefix(line, container) {
				allMatched = false
				break walk
			}
		case ast.DescriptionItem:
			if !p.parseDescriptionItemPrefix(line, container) {
				allMatched = false
				break walk
			}
		case ast.CodeBlock:
			if !p.parseCodeBlockPrefix(line, container, &shouldContinue) {
				allMatched = false
				break walk
			}
		case ast.HTMLBlock:
			if !p.parseHTMLBlockPrefix(container.HTMLBlock.BlockType) {
				allMatched = false
				break walk
			}
		case ast.Paragraph:
			if p.blank {
				allMatched = false
				break walk
			}
		case ast.Table:
			if !tableMatches(line[p.firstNonspace:]) {
				allMatched = false
				break walk
			}
		case ast.Heading, ast.TableRow, ast.TableCell:
			allMatched = false
			break walk
		case ast.FootnoteDefinition:
			if !p.parseFootnoteDefinitionPrefix(line) {
				allMatched = false
				break walk
			}
		}
	}

	if !allMatched {
		container = container.Parent()
	}
	return container, allMatched, shouldContinue
}

func (p *blockParser) parseBlockQuotePrefix(line []byte) bool {
	if p.indent <= 3 && p.firstNonspace < len(line) && line[p.firstNonspace] == '>' {
		p.advanceOffset(p.indent + 1)
		if p.offset < len(line) && isSpaceOrTab(line[p.offset]) {
			p.advanceOffset(1)
		}
		return true
	}
	return false
}

func (p *blockParser) parseFootnoteDefinitionPrefix(line []byte) bool {
	if p.indent >= 4 {
		p.advanceOffset(4)
		return true
	}
	return bytes.Equal(line, []byte("\n")) || bytes.Equal(line, []byte("\r\n"))
}

func (p *blockParser) parseItemPrefix(line []byte, container *ast.Node) bool {
	spacing := container.List.MarkerOffset + container.List.Padding
	if p.indent >= spacing {
		p.advanceOffset(spacing)
		return true
	}
	if p.blank && container.FirstChild() != nil {
		p.advanceOffset(p.firstNonspace - p.offset)
		return true
	}
	return false
}

func (p *blockParser) parseDescriptionItemPrefix(line []byte, container *ast.Node) bool {
	spacing := container.List.MarkerOffset + container.List.Padding
	if p.indent >= spacing {
		p.advanceOffset(spacing)
		return true
	}
	if p.blank && container.FirstChild() != nil {
		p.advanceOffset(p.firstNonspace - p.offset)
		return true
	}
	return false
}

func (p *blockParser) parseCodeBlockPrefix(line []byte, container *ast.Node, shouldContinue *bool) bool {
	cb := &container.CodeBlock
	if !cb.Fenced {
		if p.indent >= codeIndent {
			p.advanceOffset(codeIndent)
			return true
		}
		if p.blank {
			p.advanceOffset(p.firstNonspace - p.offset)
			return true
		}
		return false
	}

	matched := 0
	if p.indent <= 3 && p.firstNonspace < len(line) && line[p.firstNonspace] == cb.FenceChar {
		matched = scanCloseCodeFence(line[p.firstNonspace:])
	}
	if matched >= cb.FenceLength {
		*shouldContinue = false
		p.advanceOffset(matched)
		p.current = p.finalize(container)
		return false
	}

	for i := cb.FenceOffset; i > 0 && p.offset < len(line) && isSpaceOrTab(line[p.offset]); i-- {
		p.advanceOffset(1)
	}
	return true
}

func (p *blockParser) parseHTMLBlockPrefix(blockType int) bool {
	switch blockType {
	case 1, 2, 3, 4, 5:
		return true
	case 6, 7:
		return !p.blank
	}
	return false
}

// openNewBlocks starts any blocks the remainder of the line opens, in
// precedence order, descending into each new container.
func (p *blockParser) openNewBlocks(container *ast.Node, line []byte, allMatched bool) *ast.Node {
	maybeLazy := p.current.Type == ast.Paragraph
	depth := 0

	for container.Type != ast.CodeBlock && container.Type != ast.HTMLBlock {
		depth++
		p.findFirstNonspace(line)
		indented := p.indent >= codeIndent

		if c, ok := p.tryBlockQuote(container, line, indented); ok {
			container = c
		} else if c, ok := p.tryATXHeading(container, line, indented); ok {
			container = c
		} else if c, ok := p.tryCodeFence(container, line, indented); ok {
			container = c
		} else if c, ok := p.tryHTMLBlock(container, line, indented); ok {
			container = c
		} else if c, ok := p.trySetextHeading(container, line, indented); ok {
			container = c
		} else if c, ok := p.tryThematicBreak(container, line, indented, allMatched); ok {
			container = c
		} else if c, ok := p.tryFootnoteDefinition(container, line, indented, depth); ok {
			container = c
		} else if c, ok := p.tryDescriptionItem(container, line, indented); ok {
			container = c
		} else if c, ok := p.tryListItem(container, line, indented, depth); ok {
			container = c
		} else if c, ok := p.tryIndentedCode(container, line, indented, maybeLazy); ok {
			container = c
		} else if !indented && p.options.Extension.Table {
			newContainer, replace, ok := p.tryOpeningTableBlock(container, line)
			if !ok {
				break
			}
			if newContainer.Type == ast.Table {
				container.InsertAfter(newContainer)
				if replace {
					container.Unlink()
				} else if container.Open {
					p.finalize(container)
				}
			}
			container = newContainer
		} else {
			break
		}

		if acceptsLines(container.Type) {
			break
		}
		maybeLazy = false
	}

	return container
}

func acceptsLines(t ast.NodeType) bool {
	switch t {
	case ast.Paragraph, ast.Heading, ast.CodeBlock, ast.HTMLBlock:
		return true
	}
	return false
}

func (p *blockParser) tryBlockQuote(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented || p.firstNonspace >= len(line) || line[p.firstNonspace] != '>' {
		return nil, false
	}
	p.advanceOffset(p.firstNonspace + 1 - p.offset)
	if p.offset < len(line) && isSpaceOrTab(line[p.offset]) {
		p.advanceOffset(1)
	}
	return p.addChildAt(container, ast.BlockQuote, p.firstNonspace+1), true
}

func (p *blockParser) tryATXHeading(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented {
		return nil, false
	}
	matched := scanATXHeadingStart(line[p.firstNonspace:])
	if matched == 0 {
		return nil, false
	}
	headingStart := p.firstNonspace
	p.advanceOffset(headingStart + matched - p.offset)
	heading := p.addChildAt(container, ast.Heading, headingStart+1)

	level := 0
	for i := headingStart; i < len(line) && line[i] == '#'; i++ {
		level++
	}
	heading.Heading = ast.HeadingData{Level: level}
	heading.InternalOffset = matched
	return heading, true
}

func (p *blockParser) tryCodeFence(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented {
		return nil, false
	}
	matched := scanOpenCodeFence(line[p.firstNonspace:])
	if matched == 0 {
		return nil, false
	}
	firstNonspace := p.firstNonspace
	cb := p.addChildAt(container, ast.CodeBlock, firstNonspace+1)
	cb.CodeBlock = ast.CodeBlockData{
		Fenced:      true,
		FenceChar:   line[firstNonspace],
		FenceLength: matched,
		FenceOffset: firstNonspace - p.offset,
	}
	p.advanceOffset(firstNonspace + matched - p.offset)
	return cb, true
}

func (p *blockParser) tryHTMLBlock(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented {
		return nil, false
	}
	blockType := scanHTMLBlockStart(line[p.firstNonspace:])
	if blockType == 0 && container.Type != ast.Paragraph {
		blockType = scanHTMLBlockStart7(line[p.firstNonspace:])
	}
	if blockType == 0 {
		return nil, false
	}
	hb := p.addChildAt(container, ast.HTMLBlock, p.firstNonspace+1)
	hb.HTMLBlock.BlockType = blockType
	return hb, true
}

func (p *blockParser) trySetextHeading(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented || container.Type != ast.Paragraph {
		return nil, false
	}
	sc := scanSetextHeadingLine(line[p.firstNonspace:])
	if sc == setextNone {
		return nil, false
	}
	if p.resolveReferenceLinkDefinitions(container) {
		level := 1
		if sc == setextHyphen {
			level = 2
		}
		container.Type = ast.Heading
		container.Heading = ast.HeadingData{Level: level, Setext: true}
		p.advanceOffset(len(line) - 1 - p.offset)
	}
	return container, true
}

func (p *blockParser) tryThematicBreak(container *ast.Node, line []byte, indented, allMatched bool) (*ast.Node, bool) {
	if indented || (container.Type == ast.Paragraph && !allMatched) {
		return nil, false
	}
	if p.thematicBreakKillPos > p.firstNonspace {
		return nil, false
	}
	matched, found := p.scanThematicBreak(line)
	if !found {
		return nil, false
	}
	tb := p.addChildAt(container, ast.ThematicBreak, p.firstNonspace+1)
	adv := len(line) - 1 - p.offset
	tb.SourcePos.EndLine = p.lineNumber
	tb.SourcePos.EndColumn = adv
	_ = matched
	p.advanceOffset(adv)
	return tb, true
}

func (p *blockParser) scanThematicBreak(line []byte) (int, bool) {
	i := p.firstNonspace
	if i >= len(line) {
		return i, false
	}
	c := line[i]
	if c != '*' && c != '_' && c != '-' {
		p.thematicBreakKillPos = i
		return i, false
	}
	count := 1
	var next byte
	for {
		i++
		if i >= len(line) {
			p.thematicBreakKillPos = i
			return i, false
		}
		next = line[i]
		if next == c {
			count++
		} else if next != ' ' && next != '\t' {
			break
		}
	}
	if count >= 3 && (next == '\r' || next == '\n') {
		return i - p.firstNonspace + 1, true
	}
	p.thematicBreakKillPos = i
	return i, false
}

func (p *blockParser) tryFootnoteDefinition(container *ast.Node, line []byte, indented bool, depth int) (*ast.Node, bool) {
	if indented || !p.options.Extension.Footnotes || depth >= maxListDepth {
		return nil, false
	}
	matched := scanFootnoteDefinition(line[p.firstNonspace:])
	if matched == 0 {
		return nil, false
	}
	label := line[p.firstNonspace+2 : p.firstNonspace+matched]
	if i := bytes.IndexByte(label, ']'); i >= 0 {
		label = label[:i]
	}
	p.advanceOffset(p.firstNonspace + matched - p.offset)
	def := p.addChildAt(container, ast.FootnoteDefinition, p.firstNonspace+1)
	def.FootnoteDef.Name = string(label)
	def.InternalOffset = matched
	return def, true
}

func (p *blockParser) tryDescriptionItem(container *ast.Node, line []byte, indented bool) (*ast.Node, bool) {
	if indented || !p.options.Extension.DescriptionLists {
		return nil, false
	}
	matched := scanDescriptionItemStart(line[p.firstNonspace:])
	if matched == 0 {
		return nil, false
	}
	details, ok := p.parseDescriptionListDetails(container, matched)
	if !ok {
		return nil, false
	}
	p.advanceOffset(p.firstNonspace + matched - p.offset)
	if p.offset < len(line) && isSpaceOrTab(line[p.offset]) {
		p.advanceOffset(1)
	}
	return details, true
}

// parseDescriptionListDetails reshapes the preceding paragraph into a
// term/details pair, starting or extending a description list.
func (p *blockParser) parseDescriptionListDetails(container *ast.Node, matched int) (*ast.Node, bool) {
	tight := false
	lastChild := container.LastChild()
	if lastChild == nil {
		// The details line comes directly after the term, without a
		// blank line between.
		if container.Type != ast.Paragraph {
			return nil, false
		}
		parent := container.Parent()
		if parent == nil {
			return nil, false
		}
		tight = true
		container = parent
		lastChild = container.LastChild()
		if lastChild == nil {
			return nil, false
		}
	}

	switch lastChild.Type {
	case ast.Paragraph:
		lastChild.Unlink()

		var list *ast.Node
		if lc := container.LastChild(); lc != nil && lc.Type == ast.DescriptionList {
			reopen(lc)
			list = lc
		} else {
			list = p.addChild(container, ast.DescriptionList)
		}

		item := p.addChild(list, ast.DescriptionItem)
		item.List.MarkerOffset = p.indent
		item.List.Padding = matched
		item.List.Tight = tight
		term := p.addChild(item, ast.DescriptionTerm)
		details := p.addChild(item, ast.DescriptionDetails)
		term.AppendChild(lastChild)
		lastChild.Open = false
		return details, true

	case ast.DescriptionItem:
		parent := lastChild.Parent()
		item := p.addChild(parent, ast.DescriptionItem)
		item.List.MarkerOffset = p.indent
		item.List.Padding = matched
		item.List.Tight = lastChild.List.Tight
		details := p.addChild(item, ast.DescriptionDetails)
		return details, true
	}
	return nil, false
}

func reopen(node *ast.Node) {
	for n := node; n != nil; n = n.LastChild() {
		n.Open = true
	}
}

func (p *blockParser) tryListItem(container *ast.Node, line []byte, indented bool, depth int) (*ast.Node, bool) {
	if indented && container.Type != ast.List {
		return nil, false
	}
	if p.indent >= 4 || depth >= maxListDepth {
		return nil, false
	}
	matched, data, ok := parseListMarker(line, p.firstNonspace, container.Type == ast.Paragraph)
	if !ok {
		return nil, false
	}

	p.advanceOffset(p.firstNonspace + matched - p.offset)
	saveOffset := p.offset
	for p.offset-saveOffset <= 5 && p.offset < len(line) && isSpaceOrTab(line[p.offset]) {
		p.advanceOffset(1)
	}

	i := p.offset - saveOffset
	if i == 0 || i >= 5 || (p.offset < len(line) && isLineEnd(line[p.offset])) {
		data.Padding = matched + 1
		p.offset = saveOffset
		if i > 0 {
			p.advanceOffset(1)
		}
	} else {
		data.Padding = matched + i
	}
	data.MarkerOffset = p.indent

	if container.Type != ast.List || !listsMatch(data, container.List) {
		list := p.addChildAt(container, ast.List, p.firstNonspace+1)
		list.List = data
		container = list
	}
	item := p.addChildAt(container, ast.Item, p.firstNonspace+1)
	item.List = data
	return item, true
}

func (p *blockParser) tryIndentedCode(container *ast.Node, line []byte, indented, maybeLazy bool) (*ast.Node, bool) {
	if !indented || maybeLazy || p.blank {
		return nil, false
	}
	p.advanceOffset(codeIndent)
	cb := p.addChildAt(container, ast.CodeBlock, p.offset+1)
	return cb, true
}

// parseListMarker matches a bullet or ordered list marker at pos and
// returns the marker length and list metadata.
func parseListMarker(line []byte, pos int, interruptsParagraph bool) (int, ast.ListData, bool) {
	var data ast.ListData
	if pos >= len(line) {
		return 0, data, false
	}
	c := line[pos]
	startpos := pos

	if c == '*' || c == '-' || c == '+' {
		pos++
		if pos >= len(line) || !isSpace(line[pos]) {
			return 0, data, false
		}
		if interruptsParagraph {
			i := pos
			for i < len(line) && isSpaceOrTab(line[i]) {
				i++
			}
			if i < len(line) && line[i] == '\n' {
				return 0, data, false
			}
		}
		data = ast.ListData{ListType: ast.BulletList, Start: 1, BulletChar: c}
		return pos - startpos, data, true
	}

	if isDigit(c) {
		start := 0
		digits := 0
		for {
			start = 10*start + int(line[pos]-'0')
			pos++
			digits++
			if !(digits < 9 && pos < len(line) && isDigit(line[pos])) {
				break
			}
		}
		if interruptsParagraph && start != 1 {
			return 0, data, false
		}
		if pos >= len(line) {
			return 0, data, false
		}
		c = line[pos]
		if c != '.' && c != ')' {
			return 0, data, false
		}
		pos++
		if pos >= len(line) || !isSpace(line[pos]) {
			return 0, data, false
		}
		if interruptsParagraph {
			i := pos
			for i < len(line) && isSpaceOrTab(line[i]) {
				i++
			}
			if i < len(line) && isLineEnd(line[i]) {
				return 0, data, false
			}
		}
		data = ast.ListData{ListType: ast.OrderedList, Start: start}
		if c == ')' {
			data.Delimiter = ast.ParenDelim
		}
		return pos - startpos, data, true
	}

	return 0, data, false
}

func listsMatch(a, b ast.ListData) bool {
	return a.ListType == b.ListType &&
		a.Delimiter == b.Delimiter &&
		a.BulletChar == b.BulletChar
}

func (p *blockParser) addChild(parent *ast.Node, t ast.NodeType) *ast.Node {
	return p.addChildAt(parent, t, p.firstNonspace+1)
}

func (p *blockParser) addChildAt(parent *ast.Node, t ast.NodeType, startColumn int) *ast.Node {
	for !parent.CanContain(t) {
		parent = p.finalize(parent)
	}
	child := ast.NewNode(t)
	child.SourcePos.StartLine = p.lineNumber
	child.SourcePos.StartColumn = startColumn
	parent.AppendChild(child)
	return child
}

func (p *blockParser) addTextToContainer(container, lastMatched *ast.Node, line []byte) {
	p.findFirstNonspace(line)

	if p.blank {
		if lc := container.LastChild(); lc != nil {
			lc.LastLineBlank = true
		}
	}

	container.LastLineBlank = p.blank && lastLineBlankApplies(container, p.lineNumber)

	for tmp := container.Parent(); tmp != nil; tmp = tmp.Parent() {
		tmp.LastLineBlank = false
	}

	if p.current != lastMatched && container == lastMatched && !p.blank &&
		p.current.Type == ast.Paragraph {
		p.addLine(p.current, line)
		return
	}

	for p.current != lastMatched {
		p.current = p.finalize(p.current)
	}

	switch container.Type {
	case ast.CodeBlock:
		p.addLine(container, line)
	case ast.HTMLBlock:
		p.addLine(container, line)
		var done bool
		fns := p.firstNonspace
		if fns > len(line) {
			fns = len(line)
		}
		switch container.HTMLBlock.BlockType {
		case 1:
			done = htmlBlockEnd1(line[fns:])
		case 2:
			done = htmlBlockEnd2(line[fns:])
		case 3:
			done = htmlBlockEnd3(line[fns:])
		case 4:
			done = htmlBlockEnd4(line[fns:])
		case 5:
			done = htmlBlockEnd5(line[fns:])
		}
		if done {
			container = p.finalize(container)
		}
	default:
		if p.blank {
			// nothing to add
		} else if acceptsLines(container.Type) {
			if container.Type == ast.Heading && !container.Heading.Setext {
				line = chopTrailingHashtags(line)
			}
			if p.firstNonspace <= len(line) {
				p.advanceOffset(p.firstNonspace - p.offset)
				p.addLine(container, line)
			}
		} else {
			container = p.addChild(container, ast.Paragraph)
			p.advanceOffset(p.firstNonspace - p.offset)
			p.addLine(container, line)
		}
	}

	p.current = container
}

func lastLineBlankApplies(container *ast.Node, lineNumber int) bool {
	switch container.Type {
	case ast.BlockQuote, ast.Heading, ast.ThematicBreak:
		return false
	case ast.CodeBlock:
		return !container.CodeBlock.Fenced
	case ast.Item, ast.TaskItem:
		return container.FirstChild() != nil ||
			container.SourcePos.StartLine != lineNumber
	}
	return true
}

func (p *blockParser) addLine(node *ast.Node, line []byte) {
	if p.offset < len(line) {
		node.Content = append(node.Content, line[p.offset:]...)
	}
}

// finalize closes node and returns its parent.
func (p *blockParser) finalize(node *ast.Node) *ast.Node {
	node.Open = false
	parent := node.Parent()

	if p.curlineLen == 0 {
		node.SourcePos.EndLine = p.lineNumber
		node.SourcePos.EndColumn = p.lastLineLength
	} else if node.Type == ast.Document ||
		(node.Type == ast.CodeBlock && node.CodeBlock.Fenced) {
		node.SourcePos.EndLine = p.lineNumber
		node.SourcePos.EndColumn = p.curlineEndCol
	} else if node.Type == ast.ThematicBreak {
		// end position set when the break opened
	} else {
		node.SourcePos.EndLine = p.lineNumber - 1
		node.SourcePos.EndColumn = p.lastLineLength
	}

	switch node.Type {
	case ast.Paragraph:
		if !p.resolveReferenceLinkDefinitions(node) {
			node.Unlink()
		}
	case ast.CodeBlock:
		p.finalizeCodeBlock(node)
	case ast.HTMLBlock:
		node.HTMLBlock.Literal = string(node.Content)
		node.Content = nil
	case ast.List:
		p.finalizeList(node)
	}

	return parent
}

func (p *blockParser) finalizeCodeBlock(node *ast.Node) {
	cb := &node.CodeBlock
	content := node.Content
	if !cb.Fenced {
		content = removeTrailingBlankLines(content)
		content = append(content, '\n')
	} else {
		pos := 0
		for pos < len(content) && !isLineEnd(content[pos]) {
			pos++
		}
		info := unescapeBackslashes(trimBytes(unescapeHTMLEntities(content[:pos])))
		if len(info) == 0 && p.options.Parse.DefaultInfoString != nil {
			cb.Info = *p.options.Parse.DefaultInfoString
		} else {
			cb.Info = string(info)
		}
		if pos < len(content) && content[pos] == '\r' {
			pos++
		}
		if pos < len(content) && content[pos] == '\n' {
			pos++
		}
		content = content[pos:]
	}
	cb.Literal = string(content)
	node.Content = nil
}

func (p *blockParser) finalizeList(node *ast.Node) {
	node.List.Tight = true
	for item := node.FirstChild(); item != nil; item = item.Next() {
		if item.LastLineBlank && item.Next() != nil {
			node.List.Tight = false
			break
		}
		tight := true
		for sub := item.FirstChild(); sub != nil; sub = sub.Next() {
			if (item.Next() != nil || sub.Next() != nil) && sub.EndsWithBlankLine() {
				tight = false
				break
			}
		}
		if !tight {
			node.List.Tight = false
			break
		}
	}
	for item := node.FirstChild(); item != nil; item = item.Next() {
		item.List.Tight = node.List.Tight
	}
}

// resolveReferenceLinkDefinitions strips link reference definitions from
// the start of a paragraph's content, reporting whether content remains.
func (p *blockParser) resolveReferenceLinkDefinitions(node *ast.Node) bool {
	content := node.Content
	seeked := 0
	seek := content
	for len(seek) > 0 && seek[0] == '[' {
		pos, ok := p.parseReferenceInline(seek)
		if !ok {
			break
		}
		seek = seek[pos:]
		seeked += pos
	}
	if seeked != 0 {
		node.Content = content[seeked:]
	}
	return !isBlankBytes(node.Content)
}

func (p *blockParser) finalizeDocument() {
	for p.current != p.root {
		p.current = p.finalize(p.current)
	}
	p.finalize(p.root)

	p.processInlines()
	if p.options.Extension.Footnotes {
		p.processFootnotes()
	}
}

func (p *blockParser) processInlines() {
	for _, node := range ast.Descendants(p.root) {
		if node.ContainsInlines() {
			p.parseInlines(node)
		}
	}
}

type footnoteDef struct {
	node            *ast.Node
	name            string
	ix              int
	totalReferences int
}

func (p *blockParser) processFootnotes() {
	defs := make(map[string]*footnoteDef)
	findFootnoteDefinitions(p.root, defs)

	ix := 0
	p.findFootnoteReferences(p.root, defs, &ix)

	if len(defs) > 0 {
		cleanupFootnoteDefinitions(p.root)
	}

	if ix > 0 {
		ordered := make([]*footnoteDef, 0, len(defs))
		for _, d := range defs {
			ordered = append(ordered, d)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].ix < ordered[j].ix })
		for _, d := range ordered {
			if d.ix > 0 {
				d.node.FootnoteDef.Name = d.name
				d.node.FootnoteDef.TotalReferences = d.totalReferences
				p.root.AppendChild(d.node)
			}
		}
	}
}

func findFootnoteDefinitions(node *ast.Node, defs map[string]*footnoteDef) {
	if node.Type == ast.FootnoteDefinition {
		key := normalizeLabel(node.FootnoteDef.Name, true)
		if _, exists := defs[key]; !exists {
			defs[key] = &footnoteDef{
				node: node,
				name: normalizeLabel(node.FootnoteDef.Name, false),
			}
		}
		return
	}
	for c := node.FirstChild(); c != nil; c = c.Next() {
		findFootnoteDefinitions(c, defs)
	}
}

func (p *blockParser) findFootnoteReferences(node *ast.Node, defs map[string]*footnoteDef, ix *int) {
	if node.Type == ast.FootnoteReference {
		key := normalizeLabel(node.FootnoteRef.Name, true)
		if def, ok := defs[key]; ok {
			if def.ix == 0 {
				*ix++
				def.ix = *ix
			}
			def.totalReferences++
			node.FootnoteRef.RefNum = def.totalReferences
			node.FootnoteRef.Ix = def.ix
			node.FootnoteRef.Name = def.name
		} else {
			node.Type = ast.Text
			node.Literal = "[^" + node.FootnoteRef.Name + "]"
			node.FootnoteRef = ast.FootnoteReferenceData{}
		}
		return
	}
	for c := node.FirstChild(); c != nil; c = c.Next() {
		p.findFootnoteReferences(c, defs, ix)
	}
}

func cleanupFootnoteDefinitions(node *ast.Node) {
	if node.Type == ast.FootnoteDefinition {
		node.Unlink()
		return
	}
	for c := node.FirstChild(); c != nil; {
		next := c.Next()
		cleanupFootnoteDefinitions(c)
		c = next
	}
}

// postprocessTextNodes joins adjacent text nodes, then applies the tasklist
// and bare autolink passes to the joined text.
func (p *blockParser) postprocessTextNodes() {
	stack := []*ast.Node{p.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []*ast.Node
		n := node.FirstChild()
		for n != nil {
			if n.Type == ast.Text {
				for next := n.Next(); next != nil && next.Type == ast.Text; next = n.Next() {
					n.Literal += next.Literal
					next.Unlink()
				}
				p.postprocessTextNode(n)
				next := n.Next()
				if n.Literal == "" {
					n.Unlink()
				}
				n = next
				continue
			}
			// don't recurse into bracket constructs
			if n.Type != ast.Link && n.Type != ast.Image {
				children = append(children, n)
			}
			n = n.Next()
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

func (p *blockParser) postprocessTextNode(node *ast.Node) {
	if p.options.Extension.Tasklist {
		p.processTasklist(node)
	}
	if p.options.Extension.Autolink {
		processEmailAutolinks(node)
	}
}

func (p *blockParser) processTasklist(node *ast.Node) {
	end, symbol := scanTasklist([]byte(node.Literal))
	if end == 0 {
		return
	}
	if symbol != ' ' && symbol != 'x' && symbol != 'X' {
		return
	}

	parent := node.Parent()
	if parent == nil || node.Prev() != nil || parent.Prev() != nil {
		return
	}
	if parent.Type != ast.Paragraph {
		return
	}
	item := parent.Parent()
	if item == nil || item.Type != ast.Item {
		return
	}
	list := item.Parent()
	if list == nil || list.Type != ast.List {
		return
	}

	node.Literal = node.Literal[end:]
	item.Type = ast.TaskItem
	if symbol != ' ' {
		item.TaskItem.Symbol = symbol
	}
	list.List.IsTaskList = true
}

// splitOffFrontMatter removes a metadata block fenced by delimiter at the
// very start of the buffer. The returned literal includes both delimiter
// lines and any blank lines that follow.
func splitOffFrontMatter(src []byte, delimiter string) ([]byte, []byte, bool) {
	lines := strings.SplitAfter(string(src), "\n")
	if len(lines) < 2 || strings.TrimRight(lines[0], "\r\n") != delimiter {
		return nil, src, false
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == delimiter {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, src, false
	}
	cut := 0
	for i := 0; i <= end; i++ {
		cut += len(lines[i])
	}
	// Trailing blank lines belong to the front matter literal.
	for i := end + 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r\n") != "" {
			break
		}
		cut += len(lines[i])
	}
	return src[:cut], src[cut:], true
}
