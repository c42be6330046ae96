package parser

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"git.home.luguber.info/inful/commonmark/ast"
)

// processEmailAutolinks scans a finished text node for bare email
// addresses and splits matches out into link nodes. Text inside square
// brackets is left alone so explicit link syntax keeps priority.
func processEmailAutolinks(node *ast.Node) {
	contents := []byte(node.Literal)
	i := 0

	for i < len(contents) {
		var post *ast.Node
		var rewind, skip int
		bracketNesting := 0

		for i < len(contents) {
			switch contents[i] {
			case '[':
				bracketNesting++
			case ']':
				bracketNesting--
			}
			if bracketNesting > 0 {
				i++
				continue
			}
			if contents[i] == '@' {
				if p, r, sk, ok := emailMatch(contents, i); ok {
					post, rewind, skip = p, r, sk
				}
			}
			if post != nil {
				break
			}
			i++
		}

		if post == nil {
			return
		}

		i -= rewind
		node.InsertAfter(post)

		if i+skip < len(contents) {
			after := ast.NewNode(ast.Text)
			after.Open = false
			after.Literal = string(contents[i+skip:])
			post.InsertAfter(after)
			processEmailAutolinks(after)
		}
		node.Literal = string(contents[:i])
		return
	}
}

// emailMatch recognizes an email address around the '@' at position i,
// returning the link node, how far the address extends before i, and the
// total matched length from that rewound start.
func emailMatch(contents []byte, i int) (*ast.Node, int, int, bool) {
	autoMailto := true
	isXMPP := false
	rewind := 0

	for rewind < i {
		c := contents[i-rewind-1]
		if isAlnum(c) || c == '.' || c == '+' || c == '-' || c == '_' {
			rewind++
			continue
		}
		if c == ':' {
			if validateProtocol("mailto", contents, i-rewind-1) {
				autoMailto = false
				rewind++
				continue
			}
			if validateProtocol("xmpp", contents, i-rewind-1) {
				isXMPP = true
				autoMailto = false
				rewind++
				continue
			}
		}
		break
	}
	if rewind == 0 {
		return nil, 0, 0, false
	}

	size := len(contents)
	linkEnd := 1
	np := 0
	for linkEnd < size-i {
		c := contents[i+linkEnd]
		switch {
		case isAlnum(c):
		case c == '@':
			return nil, 0, 0, false
		case c == '.' && linkEnd < size-i-1 && isAlnum(contents[i+linkEnd+1]):
			np++
		case c == '/' && isXMPP:
		case c != '-' && c != '_':
			goto scanned
		}
		linkEnd++
	}
scanned:

	if linkEnd < 2 || np == 0 ||
		(!isAlpha(contents[i+linkEnd-1]) && contents[i+linkEnd-1] != '.') {
		return nil, 0, 0, false
	}
	linkEnd = autolinkDelim(contents[i:], linkEnd)
	if linkEnd == 0 {
		return nil, 0, 0, false
	}

	text := string(contents[i-rewind : i+linkEnd])
	url := text
	if autoMailto {
		url = "mailto:" + url
	}

	inl := ast.NewNode(ast.Link)
	inl.Open = false
	inl.Link.URL = url
	textNode := ast.NewNode(ast.Text)
	textNode.Open = false
	textNode.Literal = text
	inl.AppendChild(textNode)
	return inl, rewind, rewind + linkEnd, true
}

func validateProtocol(protocol string, contents []byte, cursor int) bool {
	rewind := 0
	for rewind < cursor && isAlpha(contents[cursor-rewind-1]) {
		rewind++
	}
	return len(contents)-cursor+rewind >= len(protocol) &&
		string(contents[cursor-rewind:cursor]) == protocol
}

// wwwMatch recognizes a bare "www." autolink at position i. The preceding
// character must be whitespace or one of a few delimiters.
func wwwMatch(s *inlineParser, contents []byte, i int) (*ast.Node, int, int, bool) {
	if i > 0 && !isSpace(contents[i-1]) &&
		strings.IndexByte("*_~([", contents[i-1]) < 0 {
		return nil, 0, 0, false
	}
	if !bytes.HasPrefix(contents[i:], []byte("www.")) {
		return nil, 0, 0, false
	}

	linkEnd, ok := checkDomain(contents[i:], false)
	if !ok {
		return nil, 0, 0, false
	}
	for i+linkEnd < len(contents) && !isSpace(contents[i+linkEnd]) {
		linkEnd++
	}
	linkEnd = autolinkDelim(contents[i:], linkEnd)

	text := string(contents[i : i+linkEnd])
	inl := s.makeNode(ast.Link, i, i+linkEnd-1)
	inl.Link.URL = "http://" + text
	inl.AppendChild(s.makeText(text, i, i+linkEnd-1))
	return inl, 0, linkEnd, true
}

// urlMatch recognizes "scheme://domain" autolinks triggered by the ':' at
// position i, rewinding over the scheme letters already emitted as text.
func urlMatch(s *inlineParser, contents []byte, i int) (*ast.Node, int, int, bool) {
	size := len(contents)
	if size-i < 4 || contents[i+1] != '/' || contents[i+2] != '/' {
		return nil, 0, 0, false
	}

	rewind := 0
	for rewind < i && isAlpha(contents[i-rewind-1]) {
		rewind++
	}
	switch string(contents[i-rewind : i]) {
	case "http", "https", "ftp":
	default:
		return nil, 0, 0, false
	}

	linkEnd, ok := checkDomain(contents[i+3:], true)
	if !ok {
		return nil, 0, 0, false
	}
	linkEnd += 3
	for i+linkEnd < size && !isSpace(contents[i+linkEnd]) {
		linkEnd++
	}
	linkEnd = autolinkDelim(contents[i:], linkEnd)

	url := string(contents[i-rewind : i+linkEnd])
	inl := s.makeNode(ast.Link, i-rewind, i+linkEnd-1)
	inl.Link.URL = url
	inl.AppendChild(s.makeText(url, i-rewind, i+linkEnd-1))
	return inl, rewind, rewind + linkEnd, true
}

// checkDomain validates the hostname at the start of data, returning the
// number of bytes it covers. Underscores may not appear in the last two
// labels.
func checkDomain(data []byte, allowShort bool) (int, bool) {
	np := 0
	uscore1 := 0
	uscore2 := 0

	for i := 0; i < len(data); {
		r, width := utf8.DecodeRune(data[i:])
		switch {
		case r == '\\' && i < len(data)-1:
		case r == '_':
			uscore2++
		case r == '.':
			uscore1 = uscore2
			uscore2 = 0
			np++
		case !isValidHostchar(r) && r != '-':
			if uscore1 == 0 && uscore2 == 0 && (allowShort || np > 0) {
				return i, true
			}
			return 0, false
		}
		i += width
	}

	if (uscore1 > 0 || uscore2 > 0) && np <= 10 {
		return 0, false
	}
	if allowShort || np > 0 {
		return len(data), true
	}
	return 0, false
}

func isValidHostchar(r rune) bool {
	return !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r)
}

// autolinkDelim trims trailing punctuation, closing entities and
// unbalanced closing parentheses from a matched autolink.
func autolinkDelim(data []byte, linkEnd int) int {
	for i := 0; i < linkEnd; i++ {
		if data[i] == '<' {
			linkEnd = i
			break
		}
	}

	for linkEnd > 0 {
		cclose := data[linkEnd-1]
		switch {
		case strings.IndexByte("?!.,:*_~'\"", cclose) >= 0:
			linkEnd--
		case cclose == ';':
			// An entity like "&copy;" at the end is not part of the link.
			newEnd := linkEnd - 2
			for newEnd > 0 && isAlpha(data[newEnd]) {
				newEnd--
			}
			if newEnd < linkEnd-2 && data[newEnd] == '&' {
				linkEnd = newEnd
			} else {
				linkEnd--
			}
		case cclose == ')':
			opening := 0
			closing := 0
			for _, b := range data[:linkEnd] {
				switch b {
				case '(':
					opening++
				case ')':
					closing++
				}
			}
			if closing <= opening {
				return linkEnd
			}
			linkEnd--
		default:
			return linkEnd
		}
	}
	return linkEnd
}
