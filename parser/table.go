package parser

import (
	"bytes"

	"git.home.luguber.info/inful/commonmark/ast"
)

// tryOpeningTableBlock is called from the block-open loop when the table
// extension is on. It returns the new container, whether the old container
// should be replaced by it, and whether anything matched.
func (p *blockParser) tryOpeningTableBlock(container *ast.Node, line []byte) (*ast.Node, bool, bool) {
	switch container.Type {
	case ast.Paragraph:
		return p.tryOpeningTableHeader(container, line)
	case ast.Table:
		n, ok := p.tryOpeningTableRow(container, line)
		return n, false, ok
	}
	return nil, false, false
}

// tryOpeningTableHeader turns a paragraph whose last line is a valid row,
// followed by a marker row, into a table.
func (p *blockParser) tryOpeningTableHeader(container *ast.Node, line []byte) (*ast.Node, bool, bool) {
	if container.TableVisited {
		return nil, false, false
	}
	if !scanTableStart(line[p.firstNonspace:]) {
		return nil, false, false
	}

	content := container.Content
	headerStart := 0
	if i := bytes.LastIndexByte(rtrimSlice(content), '\n'); i >= 0 {
		headerStart = i + 1
	}
	headerRow, ok := tableSplitRow(content[headerStart:])
	if !ok {
		container.TableVisited = true
		return nil, false, false
	}
	markerRow, ok := tableSplitRow(line[p.firstNonspace:])
	if !ok || len(headerRow) != len(markerRow) {
		container.TableVisited = true
		return nil, false, false
	}

	alignments := make([]ast.TableAlignment, len(markerRow))
	for i, cell := range markerRow {
		left := len(cell) > 0 && cell[0] == ':'
		right := len(cell) > 0 && cell[len(cell)-1] == ':'
		switch {
		case left && right:
			alignments[i] = ast.AlignCenter
		case left:
			alignments[i] = ast.AlignLeft
		case right:
			alignments[i] = ast.AlignRight
		}
	}

	table := ast.NewNode(ast.Table)
	table.Table.Alignments = alignments
	table.SourcePos.StartLine = p.lineNumber
	table.SourcePos.StartColumn = container.SourcePos.StartColumn

	header := ast.NewNode(ast.TableRow)
	header.TableRow.Header = true
	header.SourcePos.StartLine = p.lineNumber
	table.AppendChild(header)
	for _, cell := range headerRow {
		c := ast.NewNode(ast.TableCell)
		c.Content = []byte(cell)
		header.AppendChild(c)
	}

	replace := headerStart == 0
	if !replace {
		// Earlier paragraph lines stay behind as a paragraph.
		container.Content = container.Content[:headerStart]
	}

	p.advanceOffset(len(line) - 1 - p.offset)

	return table, replace, true
}

// tryOpeningTableRow appends a body row to an open table.
func (p *blockParser) tryOpeningTableRow(container *ast.Node, line []byte) (*ast.Node, bool) {
	if p.blank {
		return nil, false
	}
	cells, ok := tableSplitRow(line[p.firstNonspace:])
	if !ok {
		return nil, false
	}

	row := p.addChild(container, ast.TableRow)
	alignments := container.Table.Alignments
	for i := 0; i < len(alignments); i++ {
		cell := p.addChild(row, ast.TableCell)
		if i < len(cells) {
			cell.Content = []byte(cells[i])
		}
	}

	p.advanceOffset(len(line) - 1 - p.offset)

	return row, true
}

// tableMatches reports whether the line still looks like a table row.
func tableMatches(line []byte) bool {
	_, ok := tableSplitRow(line)
	return ok
}

// tableSplitRow splits a single row line into trimmed, pipe-unescaped cells.
func tableSplitRow(s []byte) ([]string, bool) {
	length := len(s)
	var cells []string
	offset := 0
	if length > 0 && s[0] == '|' {
		offset = 1
	}
	for {
		cellMatched := scanTableCell(s[offset:])
		pipeMatched := scanTableCellEnd(s[offset+cellMatched:])
		if cellMatched > 0 || pipeMatched > 0 {
			cell := tableUnescapePipes(s[offset : offset+cellMatched])
			cells = append(cells, string(trimBytes(cell)))
		}
		offset += cellMatched + pipeMatched
		if pipeMatched == 0 {
			offset += scanTableRowEnd(s[offset:])
		}
		if !((cellMatched > 0 || pipeMatched > 0) && offset < length) {
			break
		}
	}
	if offset != length || len(cells) == 0 {
		return nil, false
	}
	return cells, true
}

// tableUnescapePipes drops backslashes used to escape cell content.
func tableUnescapePipes(s []byte) []byte {
	out := make([]byte, 0, len(s))
	escaping := false
	for _, c := range s {
		switch {
		case escaping:
			out = append(out, c)
			escaping = false
		case c == '\\':
			escaping = true
		default:
			out = append(out, c)
		}
	}
	if escaping {
		out = append(out, '\\')
	}
	return out
}

// scanTableStart matches a table marker row.
func scanTableStart(s []byte) bool {
	i := 0
	if i < len(s) && s[i] == '|' {
		i++
	}
	markers := 0
	for {
		m := scanTableMarker(s[i:])
		if m == 0 {
			break
		}
		i += m
		markers++
		if i < len(s) && s[i] == '|' {
			i++
			continue
		}
		break
	}
	if markers == 0 {
		return false
	}
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	return i == len(s) || isLineEnd(s[i])
}

func scanTableMarker(s []byte) int {
	i := 0
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	if i < len(s) && s[i] == ':' {
		i++
	}
	dashes := 0
	for i < len(s) && s[i] == '-' {
		i++
		dashes++
	}
	if dashes == 0 {
		return 0
	}
	if i < len(s) && s[i] == ':' {
		i++
	}
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	return i
}

func scanTableCell(s []byte) int {
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && !isLineEnd(s[i+1]) {
			i += 2
			continue
		}
		if c == '|' || isLineEnd(c) || c == 0 {
			break
		}
		i++
	}
	return i
}

func scanTableCellEnd(s []byte) int {
	if len(s) > 0 && s[0] == '|' {
		return 1
	}
	return 0
}

// scanTableRowEnd matches trailing whitespace through the end of the row
// and only succeeds when it consumes the remainder of s.
func scanTableRowEnd(s []byte) int {
	i := 0
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '\r' {
		i++
	}
	if i < len(s) && s[i] == '\n' {
		i++
	}
	if i != len(s) {
		return 0
	}
	return i
}
