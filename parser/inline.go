package parser

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"git.home.luguber.info/inful/commonmark/ast"
)

const (
	maxBackticks       = 80
	maxLinkLabelLength = 1000
)

// delimiter is one entry in the doubly linked stack of potential emphasis
// openers and closers built up while scanning a block's inline content.
type delimiter struct {
	inl      *ast.Node
	position int
	length   int
	delim    byte
	canOpen  bool
	canClose bool
	prev     *delimiter
	next     *delimiter
}

type bracket struct {
	inlText      *ast.Node
	position     int
	image        bool
	bracketAfter bool
}

// inlineParser scans one block's inline content byte by byte, appending
// inline nodes to the block and resolving emphasis and brackets afterwards.
type inlineParser struct {
	options *Options
	refmap  *RefMap

	input []byte
	pos   int
	line  int

	lastDelim      *delimiter
	brackets       []bracket
	withinBrackets bool
	noLinkOpeners  bool

	backticks           [maxBackticks + 1]int
	scannedForBackticks bool

	skipHTMLComment     bool
	skipHTMLCDATA       bool
	skipHTMLDeclaration bool
	skipHTMLPI          bool

	specialChars [256]bool
	skipChars    [256]bool
}

func newInlineParser(input []byte, options *Options, refmap *RefMap) *inlineParser {
	s := &inlineParser{
		options:       options,
		refmap:        refmap,
		input:         input,
		line:          1,
		noLinkOpeners: true,
	}
	for _, b := range []byte("\r\n_*\"`\\&<[]!") {
		s.specialChars[b] = true
	}
	if options.Parse.Smart {
		for _, b := range []byte("\"'.-") {
			s.specialChars[b] = true
		}
	}
	if options.Extension.Autolink {
		s.specialChars[':'] = true
		s.specialChars['w'] = true
	}
	if options.Extension.Strikethrough {
		s.specialChars['~'] = true
		s.skipChars['~'] = true
	}
	if options.Extension.Superscript {
		s.specialChars['^'] = true
	}
	return s
}

func (p *blockParser) parseInlines(node *ast.Node) {
	s := newInlineParser(rtrimSlice(node.Content), p.options, p.refmap)
	s.line = node.SourcePos.StartLine
	for s.parseInline(node) {
	}
	s.processEmphasis(0)
	s.brackets = s.brackets[:0]
}

// parseReferenceInline consumes one link reference definition from the
// start of content, adding it to the reference map. It reports the number
// of bytes consumed.
func (p *blockParser) parseReferenceInline(content []byte) (int, bool) {
	s := newInlineParser(content, p.options, p.refmap)

	lab, ok := s.linkLabel()
	if !ok || lab == "" {
		return 0, false
	}
	if s.peek() != ':' {
		return 0, false
	}
	s.pos++
	s.spnl()

	url, n, ok := manualScanLinkURL(s.input[s.pos:])
	if !ok {
		return 0, false
	}
	s.pos += n

	beforeTitle := s.pos
	s.spnl()
	var title []byte
	if s.pos != beforeTitle {
		if m := scanLinkTitle(s.input[s.pos:]); m > 0 {
			title = s.input[s.pos : s.pos+m]
			s.pos += m
		} else {
			s.pos = beforeTitle
		}
	}

	s.skipSpaces()
	if !s.skipLineEnd() {
		if len(title) == 0 {
			return 0, false
		}
		// The title may belong to a following paragraph. Retry without it.
		title = nil
		s.pos = beforeTitle
		s.skipSpaces()
		if !s.skipLineEnd() {
			return 0, false
		}
	}

	if lab = normalizeLabel(lab, true); lab != "" {
		p.refmap.Add(lab, Reference{
			URL:   cleanURL(url),
			Title: cleanTitle(title),
		})
	}
	return s.pos, true
}

//
// Input scanning
//

func (s *inlineParser) eof() bool { return s.pos >= len(s.input) }

func (s *inlineParser) peek() byte { return s.peekN(0) }

func (s *inlineParser) peekN(n int) byte {
	if s.pos+n >= len(s.input) {
		return 0
	}
	return s.input[s.pos+n]
}

func (s *inlineParser) skipSpaces() bool {
	skipped := false
	for !s.eof() && isSpaceOrTab(s.input[s.pos]) {
		s.pos++
		skipped = true
	}
	return skipped
}

func (s *inlineParser) skipLineEnd() bool {
	old := s.pos
	if s.peek() == '\r' {
		s.pos++
	}
	if s.peek() == '\n' {
		s.pos++
	}
	return s.pos > old || s.eof()
}

// spnl skips spaces and tabs with up to one embedded line ending.
func (s *inlineParser) spnl() {
	s.skipSpaces()
	if s.skipLineEnd() {
		s.skipSpaces()
	}
}

func (s *inlineParser) takeWhile(b byte) int {
	start := s.pos
	for !s.eof() && s.input[s.pos] == b {
		s.pos++
	}
	return s.pos - start
}

func (s *inlineParser) findSpecialChar() int {
	for i := s.pos; i < len(s.input); i++ {
		b := s.input[i]
		if b == '^' && s.withinBrackets {
			continue
		}
		if s.specialChars[b] {
			return i
		}
	}
	return len(s.input)
}

func (s *inlineParser) scanToClosingBacktick(openTicks int) int {
	if openTicks > maxBackticks {
		return 0
	}
	if s.scannedForBackticks && s.backticks[openTicks] <= s.pos {
		return 0
	}
	for {
		for !s.eof() && s.input[s.pos] != '`' {
			s.pos++
		}
		if s.eof() {
			s.scannedForBackticks = true
			return 0
		}
		numTicks := s.takeWhile('`')
		if numTicks <= maxBackticks {
			s.backticks[numTicks] = s.pos - numTicks
		}
		if numTicks == openTicks {
			return s.pos
		}
	}
}

//
// Node constructors
//

func (s *inlineParser) makeNode(t ast.NodeType, startPos, endPos int) *ast.Node {
	node := ast.NewNode(t)
	node.Open = false
	node.SourcePos = ast.SourcePos{
		StartLine:   s.line,
		StartColumn: startPos + 1,
		EndLine:     s.line,
		EndColumn:   endPos + 1,
	}
	return node
}

func (s *inlineParser) makeText(literal string, startPos, endPos int) *ast.Node {
	node := s.makeNode(ast.Text, startPos, endPos)
	node.Literal = literal
	return node
}

func (s *inlineParser) makeAutolink(url []byte, email bool, startPos, endPos int) *ast.Node {
	inl := s.makeNode(ast.Link, startPos, endPos)
	inl.Link.URL = cleanAutolink(url, email)
	inl.AppendChild(s.makeText(string(unescapeHTMLEntities(url)), startPos+1, endPos-1))
	return inl
}

//
// Parsing
//

// parseInline consumes one inline element at the current position and
// appends it to node, reporting whether input remains.
func (s *inlineParser) parseInline(node *ast.Node) bool {
	if s.eof() {
		return false
	}

	var inl *ast.Node
	switch b := s.input[s.pos]; b {
	case '\r', '\n':
		inl = s.handleNewline()
	case '`':
		inl = s.handleBackticks()
	case '\\':
		inl = s.handleBackslash()
	case '&':
		inl = s.handleEntity()
	case '<':
		inl = s.handlePointyBrace()
	case ':':
		if s.options.Extension.Autolink {
			inl = s.handleAutolinkWith(node, urlMatch)
		}
		if inl == nil {
			s.pos++
			inl = s.makeText(":", s.pos-1, s.pos-1)
		}
	case 'w':
		if s.options.Extension.Autolink {
			inl = s.handleAutolinkWith(node, wwwMatch)
		}
		if inl == nil {
			s.pos++
			inl = s.makeText("w", s.pos-1, s.pos-1)
		}
	case '*', '_', '\'', '"':
		inl = s.handleDelim(b)
	case '-':
		inl = s.handleHyphen()
	case '.':
		inl = s.handlePeriod()
	case '[':
		s.pos++
		inl = s.makeText("[", s.pos-1, s.pos-1)
		s.pushBracket(false, inl)
		s.withinBrackets = true
	case ']':
		s.withinBrackets = false
		inl = s.handleCloseBracket()
	case '!':
		s.pos++
		if s.peek() == '[' && s.peekN(1) != '^' {
			s.pos++
			inl = s.makeText("![", s.pos-2, s.pos-1)
			s.pushBracket(true, inl)
			s.withinBrackets = true
		} else {
			inl = s.makeText("!", s.pos-1, s.pos-1)
		}
	case '~':
		if s.options.Extension.Strikethrough {
			inl = s.handleDelim('~')
		} else {
			s.pos++
			inl = s.makeText("~", s.pos-1, s.pos-1)
		}
	case '^':
		if s.options.Extension.Superscript && !s.withinBrackets {
			inl = s.handleDelim('^')
		} else {
			s.pos++
			inl = s.makeText("^", s.pos-1, s.pos-1)
		}
	default:
		endPos := s.findSpecialChar()
		startPos := s.pos
		s.pos = endPos
		contents := s.input[startPos:endPos]
		if !s.eof() && isLineEnd(s.input[s.pos]) {
			trimmed := rtrimSlice(contents)
			endPos -= len(contents) - len(trimmed)
			contents = trimmed
		}
		if len(contents) > 0 {
			inl = s.makeText(string(contents), startPos, endPos-1)
		}
	}

	if inl != nil {
		node.AppendChild(inl)
	}
	return true
}

func (s *inlineParser) handleNewline() *ast.Node {
	nlPos := s.pos
	if s.peek() == '\r' {
		s.pos++
	}
	if s.peek() == '\n' {
		s.pos++
	}

	var inl *ast.Node
	if nlPos > 1 && s.input[nlPos-1] == ' ' && s.input[nlPos-2] == ' ' {
		inl = s.makeNode(ast.LineBreak, nlPos-2, s.pos-1)
	} else {
		inl = s.makeNode(ast.SoftBreak, nlPos, s.pos-1)
	}
	s.line++
	s.skipSpaces()
	return inl
}

func (s *inlineParser) handleBackticks() *ast.Node {
	startPos := s.pos
	openTicks := s.takeWhile('`')
	endPos := s.scanToClosingBacktick(openTicks)
	if endPos == 0 {
		s.pos = startPos + openTicks
		return s.makeText(strings.Repeat("`", openTicks), startPos, s.pos-1)
	}

	buf := s.input[startPos+openTicks : endPos-openTicks]
	node := s.makeNode(ast.Code, startPos, endPos-1)
	node.Literal = normalizeCode(buf)
	s.line += bytes.Count(buf, []byte("\n"))
	return node
}

func (s *inlineParser) handleBackslash() *ast.Node {
	startPos := s.pos
	s.pos++

	if isPunct(s.peek()) {
		s.pos++
		return s.makeText(string(s.input[s.pos-1]), s.pos-1, s.pos-1)
	}
	if !s.eof() && s.skipLineEnd() {
		inl := s.makeNode(ast.LineBreak, startPos, s.pos-1)
		s.line++
		s.skipSpaces()
		return inl
	}
	return s.makeText("\\", s.pos-1, s.pos-1)
}

func (s *inlineParser) handleEntity() *ast.Node {
	s.pos++
	entity, n := unescapeEntity(s.input[s.pos-1:])
	if n == 0 {
		return s.makeText("&", s.pos-1, s.pos-1)
	}
	start := s.pos - 1
	s.pos += n - 1
	return s.makeText(entity, start, s.pos-1)
}

func (s *inlineParser) handlePointyBrace() *ast.Node {
	s.pos++

	if n := scanAutolinkURI(s.input[s.pos:]); n > 0 {
		s.pos += n
		return s.makeAutolink(s.input[s.pos-n:s.pos-1], false, s.pos-1-n, s.pos-1)
	}
	if n := scanAutolinkEmail(s.input[s.pos:]); n > 0 {
		s.pos += n
		return s.makeAutolink(s.input[s.pos-n:s.pos-1], true, s.pos-1-n, s.pos-1)
	}

	matchLen := 0
	if s.pos+2 <= len(s.input) {
		switch b := s.input[s.pos]; {
		case b == '!' && s.peekN(1) == '-' && s.peekN(2) == '-':
			if !s.skipHTMLComment {
				if n := scanHTMLComment(s.input[s.pos:]); n > 0 {
					matchLen = n
				} else {
					s.skipHTMLComment = true
				}
			}
		case b == '!' && s.peekN(1) == '[':
			if !s.skipHTMLCDATA {
				if bytes.HasPrefix(s.input[s.pos:], []byte("![CDATA[")) {
					if end := bytes.Index(s.input[s.pos:], []byte("]]>")); end >= 0 {
						matchLen = end + 3
					} else {
						s.skipHTMLCDATA = true
					}
				}
			}
		case b == '!':
			if !s.skipHTMLDeclaration {
				if n := scanHTMLTag(s.input[s.pos:]); n > 0 {
					matchLen = n
				} else {
					s.skipHTMLDeclaration = true
				}
			}
		case b == '?':
			if !s.skipHTMLPI {
				if n := scanHTMLTag(s.input[s.pos:]); n > 0 {
					matchLen = n
				} else {
					s.skipHTMLPI = true
				}
			}
		default:
			matchLen = scanHTMLTag(s.input[s.pos:])
		}
	}

	if matchLen > 0 {
		contents := s.input[s.pos-1 : s.pos+matchLen]
		s.pos += matchLen
		inl := s.makeNode(ast.HTMLInline, s.pos-matchLen-1, s.pos-1)
		inl.Literal = string(contents)
		s.line += bytes.Count(contents, []byte("\n"))
		return inl
	}

	return s.makeText("<", s.pos-1, s.pos-1)
}

// autolinkMatcher recognizes one extension autolink at position i of
// contents, returning the link node, the number of bytes before i that
// belong to the link, and the total length from the rewound start.
type autolinkMatcher func(s *inlineParser, contents []byte, i int) (*ast.Node, int, int, bool)

func (s *inlineParser) handleAutolinkWith(node *ast.Node, match autolinkMatcher) *ast.Node {
	if s.withinBrackets {
		return nil
	}
	post, rewind, skip, ok := match(s, s.input, s.pos)
	if !ok {
		return nil
	}
	s.pos += skip - rewind

	// Rewound bytes sit in Text nodes already appended to the block, eg.
	// "See http" before the "://" that triggered the match. Trim them off.
	for rewind > 0 {
		last := node.LastChild()
		if last == nil || last.Type != ast.Text {
			break
		}
		if rewind < len(last.Literal) {
			last.Literal = last.Literal[:len(last.Literal)-rewind]
			rewind = 0
		} else {
			rewind -= len(last.Literal)
			last.Unlink()
		}
	}
	return post
}

func (s *inlineParser) handleDelim(b byte) *ast.Node {
	numDelims, canOpen, canClose := s.scanDelims(b)

	var contents string
	switch {
	case b == '\'' && s.options.Parse.Smart:
		contents = "’"
	case b == '"' && s.options.Parse.Smart && canClose:
		contents = "”"
	case b == '"' && s.options.Parse.Smart:
		contents = "“"
	default:
		contents = string(s.input[s.pos-numDelims : s.pos])
	}
	inl := s.makeText(contents, s.pos-numDelims, s.pos-1)

	validDelimRun := b != '~' || numDelims <= 2
	if (canOpen || canClose) &&
		(!(b == '\'' || b == '"') || s.options.Parse.Smart) &&
		validDelimRun {
		s.pushDelimiter(b, canOpen, canClose, inl)
	}
	return inl
}

func (s *inlineParser) handleHyphen() *ast.Node {
	start := s.pos
	s.pos++

	if !s.options.Parse.Smart || s.peek() != '-' {
		return s.makeText("-", s.pos-1, s.pos-1)
	}
	for s.peek() == '-' {
		s.pos++
	}

	numHyphens := s.pos - start
	var ens, ems int
	switch {
	case numHyphens%3 == 0:
		ems = numHyphens / 3
	case numHyphens%2 == 0:
		ens = numHyphens / 2
	case numHyphens%3 == 2:
		ens, ems = 1, (numHyphens-2)/3
	default:
		ens, ems = 2, (numHyphens-4)/3
	}
	buf := strings.Repeat("—", ems) + strings.Repeat("–", ens)
	return s.makeText(buf, start, s.pos-1)
}

func (s *inlineParser) handlePeriod() *ast.Node {
	s.pos++
	if s.options.Parse.Smart && s.peek() == '.' {
		s.pos++
		if s.peek() == '.' {
			s.pos++
			return s.makeText("…", s.pos-3, s.pos-1)
		}
		return s.makeText("..", s.pos-2, s.pos-1)
	}
	return s.makeText(".", s.pos-1, s.pos-1)
}

//
// Delimiter scanning
//

func isUnicodeWhitespace(r rune) bool {
	return unicode.IsSpace(r)
}

func isUnicodePunct(r rune) bool {
	if r < 128 {
		return isPunct(byte(r))
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// beforeChar returns the character before pos, skipping characters that do
// not participate in flanking decisions. A line start reads as '\n'.
func (s *inlineParser) beforeChar(pos int) rune {
	if pos == 0 {
		return '\n'
	}
	i := pos - 1
	for i > 0 && (s.input[i]>>6 == 2 || s.skipChars[s.input[i]]) {
		i--
	}
	r, _ := utf8.DecodeRune(s.input[i:pos])
	if r == utf8.RuneError || (r < 256 && s.skipChars[byte(r)]) {
		return '\n'
	}
	return r
}

func (s *inlineParser) afterChar(pos int) rune {
	if pos >= len(s.input) {
		return '\n'
	}
	i := pos
	for i < len(s.input)-1 && s.skipChars[s.input[i]] {
		i++
	}
	r, _ := utf8.DecodeRune(s.input[i:])
	if r == utf8.RuneError || (r < 256 && s.skipChars[byte(r)]) {
		return '\n'
	}
	return r
}

// scanDelims consumes a run of delimiter characters and reports the run
// length and whether it can open or close emphasis.
func (s *inlineParser) scanDelims(b byte) (int, bool, bool) {
	before := s.beforeChar(s.pos)

	numDelims := 0
	if b == '\'' || b == '"' {
		numDelims++
		s.pos++
	} else {
		for s.peek() == b && !s.eof() {
			numDelims++
			s.pos++
		}
	}

	after := s.afterChar(s.pos)

	leftFlanking := numDelims > 0 && !isUnicodeWhitespace(after) &&
		(!isUnicodePunct(after) ||
			(s.options.Extension.Superscript && b == '^') ||
			isUnicodeWhitespace(before) || isUnicodePunct(before))
	rightFlanking := numDelims > 0 && !isUnicodeWhitespace(before) &&
		(!isUnicodePunct(before) ||
			isUnicodeWhitespace(after) || isUnicodePunct(after))

	switch b {
	case '_':
		canOpen := leftFlanking && (!rightFlanking || isUnicodePunct(before))
		canClose := rightFlanking && (!leftFlanking || isUnicodePunct(after))
		return numDelims, canOpen, canClose
	case '\'', '"':
		canOpen := leftFlanking &&
			(!rightFlanking || before == '(' || before == '[') &&
			before != ']' && before != ')'
		return numDelims, canOpen, rightFlanking
	}
	return numDelims, leftFlanking, rightFlanking
}

func (s *inlineParser) pushDelimiter(b byte, canOpen, canClose bool, inl *ast.Node) {
	d := &delimiter{
		inl:      inl,
		position: s.pos,
		length:   len(inl.Literal),
		delim:    b,
		canOpen:  canOpen,
		canClose: canClose,
		prev:     s.lastDelim,
	}
	if s.lastDelim != nil {
		s.lastDelim.next = d
	}
	s.lastDelim = d
}

func (s *inlineParser) removeDelimiter(d *delimiter) {
	if d.next != nil {
		d.next.prev = d.prev
	} else {
		s.lastDelim = d.prev
	}
	if d.prev != nil {
		d.prev.next = d.next
	}
}

func (s *inlineParser) removeDelimiters(stackBottom int) {
	for s.lastDelim != nil && s.lastDelim.position >= stackBottom {
		s.removeDelimiter(s.lastDelim)
	}
}

// processEmphasis resolves the delimiter stack above stackBottom into
// emphasis, strong, strikethrough and superscript nodes, and turns smart
// quote delimiters into their curly forms.
func (s *inlineParser) processEmphasis(stackBottom int) {
	// Tracks how far down the stack each closer kind has already searched
	// without success, preventing quadratic rescans of the stack bottom.
	var openersBottom [13]int
	for i := range openersBottom {
		openersBottom[i] = stackBottom
	}

	var closer *delimiter
	for candidate := s.lastDelim; candidate != nil && candidate.position >= stackBottom; candidate = candidate.prev {
		closer = candidate
	}

	for closer != nil {
		if !closer.canClose {
			closer = closer.next
			continue
		}

		var ix int
		switch closer.delim {
		case '~':
			ix = 1
		case '^':
			ix = 2
		case '"':
			ix = 3
		case '\'':
			ix = 4
		case '_':
			ix = 5
		case '*':
			ix = 6 + closer.length%3
			if closer.canOpen {
				ix += 3
			}
		}

		opener := closer.prev
		openerFound := false
		modThreeRuleInvoked := false
		for opener != nil && opener.position >= openersBottom[ix] {
			if opener.canOpen && opener.delim == closer.delim {
				// Runs like ***a*b** need the middle delimiter skipped when
				// the combined lengths are a multiple of three.
				oddMatch := (closer.canOpen || opener.canClose) &&
					(opener.length+closer.length)%3 == 0 &&
					!(opener.length%3 == 0 && closer.length%3 == 0)
				if !oddMatch {
					openerFound = true
					break
				}
				modThreeRuleInvoked = true
			}
			opener = opener.prev
		}

		oldCloser := closer
		if closer.delim == '\'' || closer.delim == '"' {
			if closer.delim == '\'' {
				closer.inl.Literal = "’"
			} else {
				closer.inl.Literal = "”"
			}
			closer = closer.next
			if openerFound {
				if oldCloser.delim == '\'' {
					opener.inl.Literal = "‘"
				} else {
					opener.inl.Literal = "“"
				}
				s.removeDelimiter(opener)
				s.removeDelimiter(oldCloser)
			}
		} else if openerFound {
			closer = s.insertEmph(opener, closer)
		} else {
			closer = closer.next
		}

		if !openerFound {
			if !modThreeRuleInvoked {
				openersBottom[ix] = oldCloser.position
			}
			if !oldCloser.canOpen {
				s.removeDelimiter(oldCloser)
			}
		}
	}

	s.removeDelimiters(stackBottom)
}

// insertEmph wraps the nodes between opener and closer in an emphasis
// node, truncating longer delimiter runs in place for rematching. It
// returns the closer to continue from, or nil to stop matching.
func (s *inlineParser) insertEmph(opener, closer *delimiter) *delimiter {
	openerByte := opener.inl.Literal[0]
	openerNumBytes := len(opener.inl.Literal)
	closerNumBytes := len(closer.inl.Literal)
	useDelims := 1
	if openerNumBytes >= 2 && closerNumBytes >= 2 {
		useDelims = 2
	}
	openerNumBytes -= useDelims
	closerNumBytes -= useDelims

	// Tildes only pair as complete runs of matching length.
	if s.options.Extension.Strikethrough && openerByte == '~' &&
		(openerNumBytes != closerNumBytes || openerNumBytes > 0) {
		return nil
	}

	opener.inl.Literal = opener.inl.Literal[:openerNumBytes]
	closer.inl.Literal = closer.inl.Literal[:closerNumBytes]

	// Delimiters between the pair have been scanned already; none matched.
	for prev := closer.prev; prev != nil && prev != opener; {
		p := prev
		prev = prev.prev
		s.removeDelimiter(p)
	}

	var t ast.NodeType
	switch {
	case openerByte == '~':
		t = ast.Strikethrough
	case openerByte == '^' && s.options.Extension.Superscript:
		t = ast.Superscript
	case useDelims == 1:
		t = ast.Emph
	default:
		t = ast.Strong
	}
	emph := s.makeNode(t, s.pos, s.pos)

	for it := opener.inl.Next(); it != nil && it != closer.inl; {
		next := it.Next()
		emph.AppendChild(it)
		it = next
	}
	opener.inl.InsertAfter(emph)

	if openerNumBytes == 0 {
		opener.inl.Unlink()
		s.removeDelimiter(opener)
	}
	if closerNumBytes == 0 {
		closer.inl.Unlink()
		next := closer.next
		s.removeDelimiter(closer)
		return next
	}
	return closer
}

//
// Brackets
//

func (s *inlineParser) pushBracket(image bool, inlText *ast.Node) {
	if len(s.brackets) > 0 {
		s.brackets[len(s.brackets)-1].bracketAfter = true
	}
	s.brackets = append(s.brackets, bracket{
		inlText:  inlText,
		position: s.pos,
		image:    image,
	})
	if !image {
		s.noLinkOpeners = false
	}
}

func (s *inlineParser) handleCloseBracket() *ast.Node {
	s.pos++
	initialPos := s.pos

	if len(s.brackets) == 0 {
		return s.makeText("]", s.pos-1, s.pos-1)
	}
	last := &s.brackets[len(s.brackets)-1]
	isImage := last.image

	if !isImage && s.noLinkOpeners {
		s.brackets = s.brackets[:len(s.brackets)-1]
		return s.makeText("]", s.pos-1, s.pos-1)
	}

	afterLinkTextPos := s.pos

	// Inline form: a destination and optional title in parentheses.
	if s.peek() == '(' {
		sps := scanSpacechars(s.input[s.pos+1:])
		offset := s.pos + 1 + sps
		if offset < len(s.input) {
			if url, n, ok := manualScanLinkURL(s.input[offset:]); ok {
				endURL := offset + n
				startTitle := endURL + scanSpacechars(s.input[endURL:])
				endTitle := startTitle
				if startTitle != endURL {
					endTitle = startTitle + scanLinkTitle(s.input[startTitle:])
				}
				endAll := endTitle + scanSpacechars(s.input[endTitle:])
				if endAll < len(s.input) && s.input[endAll] == ')' {
					s.pos = endAll + 1
					s.closeBracketMatch(isImage,
						cleanURL(url),
						cleanTitle(s.input[startTitle:endTitle]))
					return nil
				}
				s.pos = afterLinkTextPos
			}
		}
	}

	// Reference form: a label, or the link text itself as the label.
	lab, foundLabel := s.linkLabel()
	if !foundLabel {
		s.pos = initialPos
	}
	if (!foundLabel || lab == "") && !last.bracketAfter {
		lab = string(s.input[last.position : initialPos-1])
		foundLabel = true
	}

	if foundLabel {
		if ref, ok := s.refmap.Lookup(normalizeLabel(lab, true)); ok {
			s.closeBracketMatch(isImage, ref.URL, ref.Title)
			return nil
		}
	}

	if s.options.Extension.Footnotes {
		if inl, ok := s.closeBracketFootnote(last, initialPos); ok {
			return inl
		}
	}

	s.brackets = s.brackets[:len(s.brackets)-1]
	s.pos = initialPos
	return s.makeText("]", s.pos-1, s.pos-1)
}

// closeBracketFootnote turns "[^name]" bracket content into a footnote
// reference. The name may span several text nodes when it holds delimiter
// characters, so the siblings after the opening bracket are joined.
func (s *inlineParser) closeBracketFootnote(last *bracket, initialPos int) (*ast.Node, bool) {
	first := last.inlText.Next()
	if first == nil || first.Type != ast.Text || !strings.HasPrefix(first.Literal, "^") {
		return nil, false
	}

	s.pos = initialPos

	var text strings.Builder
	for sibling := first; sibling != nil; sibling = sibling.Next() {
		if sibling.Type != ast.Text && sibling.Type != ast.HTMLInline {
			return nil, false
		}
		text.WriteString(sibling.Literal)
	}
	if text.Len() <= 1 {
		return nil, false
	}

	inl := s.makeNode(ast.FootnoteReference, s.pos, s.pos)
	inl.FootnoteRef.Name = text.String()[1:]
	last.inlText.InsertBefore(inl)

	for sibling := last.inlText; sibling != nil; {
		next := sibling.Next()
		sibling.Unlink()
		sibling = next
	}

	s.removeDelimiters(last.position)
	s.brackets = s.brackets[:len(s.brackets)-1]
	return nil, true
}

func (s *inlineParser) closeBracketMatch(isImage bool, url, title string) {
	last := s.brackets[len(s.brackets)-1]
	s.brackets = s.brackets[:len(s.brackets)-1]

	t := ast.Link
	if isImage {
		t = ast.Image
	}
	inl := s.makeNode(t, last.position, s.pos-1)
	inl.Link.URL = url
	inl.Link.Title = title

	last.inlText.InsertBefore(inl)
	for it := last.inlText.Next(); it != nil; {
		next := it.Next()
		inl.AppendChild(it)
		it = next
	}
	last.inlText.Unlink()
	s.processEmphasis(last.position)

	if !isImage {
		s.noLinkOpeners = true
	}
}

// linkLabel consumes a bracketed link label, returning its trimmed text.
func (s *inlineParser) linkLabel() (string, bool) {
	startPos := s.pos

	if s.peek() != '[' {
		return "", false
	}
	s.pos++

	length := 0
	for !s.eof() {
		switch b := s.input[s.pos]; b {
		case ']':
			raw := trimBytes(s.input[startPos+1 : s.pos])
			s.pos++
			return string(raw), true
		case '[':
			s.pos = startPos
			return "", false
		case '\\':
			s.pos++
			length++
			if isPunct(s.peek()) {
				s.pos++
				length++
			}
		default:
			s.pos++
			length++
		}
		if length > maxLinkLabelLength {
			s.pos = startPos
			return "", false
		}
	}
	s.pos = startPos
	return "", false
}

//
// Link destinations and titles
//

// manualScanLinkURL matches a link destination, either angle-bracketed or
// bare with balanced parentheses, returning the destination and the number
// of bytes consumed.
func manualScanLinkURL(input []byte) ([]byte, int, bool) {
	if len(input) == 0 || input[0] != '<' {
		return manualScanLinkURLBare(input)
	}
	i := 1
	for i < len(input) {
		switch input[i] {
		case '>':
			return input[1:i], i + 1, true
		case '\\':
			i += 2
		case '\n', '\r', '<':
			return nil, 0, false
		default:
			i++
		}
	}
	return nil, 0, false
}

func manualScanLinkURLBare(input []byte) ([]byte, int, bool) {
	i := 0
	nbP := 0
	for i < len(input) {
		b := input[i]
		switch {
		case b == '\\' && i+1 < len(input) && isPunct(input[i+1]):
			i += 2
		case b == '(':
			nbP++
			i++
			if nbP > 32 {
				return nil, 0, false
			}
		case b == ')':
			if nbP == 0 {
				goto done
			}
			nbP--
			i++
		case isSpace(b) || (b < 0x20 && b != 0):
			if i == 0 {
				return nil, 0, false
			}
			goto done
		default:
			i++
		}
	}
done:
	if len(input) == 0 || nbP != 0 {
		return nil, 0, false
	}
	return input[:i], i, true
}

func cleanURL(url []byte) string {
	url = trimBytes(url)
	if len(url) == 0 {
		return ""
	}
	if url[0] == '<' && url[len(url)-1] == '>' {
		url = url[1 : len(url)-1]
	}
	return string(unescapeBackslashes(unescapeHTMLEntities(url)))
}

func cleanTitle(title []byte) string {
	if len(title) == 0 {
		return ""
	}
	first, last := title[0], title[len(title)-1]
	if (first == '\'' && last == '\'') ||
		(first == '(' && last == ')') ||
		(first == '"' && last == '"') {
		title = title[1 : len(title)-1]
	}
	return string(unescapeBackslashes(unescapeHTMLEntities(title)))
}

func cleanAutolink(url []byte, email bool) string {
	url = trimBytes(url)
	if len(url) == 0 {
		return ""
	}
	prefix := ""
	if email {
		prefix = "mailto:"
	}
	return prefix + string(unescapeHTMLEntities(url))
}

// normalizeCode converts line endings in code span content to spaces and
// strips one leading and trailing space when both are present.
func normalizeCode(s []byte) string {
	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			if i+1 >= len(s) || s[i+1] != '\n' {
				buf = append(buf, ' ')
			}
		case '\n':
			buf = append(buf, ' ')
		default:
			buf = append(buf, s[i])
		}
	}
	if len(buf) > 2 && buf[0] == ' ' && buf[len(buf)-1] == ' ' &&
		bytes.IndexFunc(buf, func(r rune) bool { return r != ' ' }) >= 0 {
		buf = buf[1 : len(buf)-1]
	}
	return string(buf)
}
