package parser

import "bytes"

// The scanners operate on a line suffix starting at the position of
// interest and return the number of bytes matched, or 0 for no match,
// unless noted otherwise.

type setextChar byte

const (
	setextNone   setextChar = 0
	setextEquals setextChar = '='
	setextHyphen setextChar = '-'
)

// scanSetextHeadingLine matches a full line of = or - followed only by
// spaces and tabs.
func scanSetextHeadingLine(s []byte) setextChar {
	if len(s) == 0 {
		return setextNone
	}
	c := s[0]
	if c != '=' && c != '-' {
		return setextNone
	}
	i := 0
	for i < len(s) && s[i] == c {
		i++
	}
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	if i < len(s) && !isLineEnd(s[i]) {
		return setextNone
	}
	if c == '=' {
		return setextEquals
	}
	return setextHyphen
}

// scanATXHeadingStart matches 1-6 hashes followed by whitespace or the end
// of the line, consuming the following space and tab run.
func scanATXHeadingStart(s []byte) int {
	i := 0
	for i < len(s) && s[i] == '#' {
		i++
	}
	if i == 0 || i > 6 {
		return 0
	}
	if i >= len(s) {
		return 0
	}
	if isLineEnd(s[i]) {
		return i + 1
	}
	if !isSpaceOrTab(s[i]) {
		return 0
	}
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	return i
}

// scanOpenCodeFence matches a backtick or tilde fence of length >= 3 and
// returns the fence length. Backtick fences must not have backticks in the
// rest of the line.
func scanOpenCodeFence(s []byte) int {
	if len(s) == 0 {
		return 0
	}
	c := s[0]
	if c != '`' && c != '~' {
		return 0
	}
	i := 0
	for i < len(s) && s[i] == c {
		i++
	}
	if i < 3 {
		return 0
	}
	if c == '`' {
		for j := i; j < len(s) && !isLineEnd(s[j]); j++ {
			if s[j] == '`' {
				return 0
			}
		}
	}
	return i
}

// scanCloseCodeFence matches a closing fence followed by only spaces and
// tabs, returning the fence length.
func scanCloseCodeFence(s []byte) int {
	if len(s) == 0 {
		return 0
	}
	c := s[0]
	if c != '`' && c != '~' {
		return 0
	}
	i := 0
	for i < len(s) && s[i] == c {
		i++
	}
	if i < 3 {
		return 0
	}
	for j := i; j < len(s); j++ {
		if isLineEnd(s[j]) {
			break
		}
		if !isSpaceOrTab(s[j]) {
			return 0
		}
	}
	return i
}

var htmlBlockTags = []string{
	"address", "article", "aside", "base", "basefont", "blockquote", "body",
	"caption", "center", "col", "colgroup", "dd", "details", "dialog", "dir",
	"div", "dl", "dt", "fieldset", "figcaption", "figure", "footer", "form",
	"frame", "frameset", "h1", "h2", "h3", "h4", "h5", "h6", "head", "header",
	"hr", "html", "iframe", "legend", "li", "link", "main", "menu", "menuitem",
	"nav", "noframes", "ol", "optgroup", "option", "p", "param", "search",
	"section", "summary", "table", "tbody", "td", "tfoot", "th", "thead",
	"title", "tr", "track", "ul",
}

var htmlBlockType1Tags = []string{"pre", "script", "style", "textarea"}

func hasPrefixFold(s []byte, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}

// scanHTMLBlockStart identifies block types 1 through 6 and returns the
// type, or 0 when none matches.
func scanHTMLBlockStart(s []byte) int {
	if len(s) < 2 || s[0] != '<' {
		return 0
	}
	rest := s[1:]
	for _, tag := range htmlBlockType1Tags {
		if hasPrefixFold(rest, tag) {
			after := rest[len(tag):]
			if len(after) == 0 || isSpace(after[0]) || after[0] == '>' {
				return 1
			}
		}
	}
	if bytes.HasPrefix(rest, []byte("!--")) {
		return 2
	}
	if rest[0] == '?' {
		return 3
	}
	if bytes.HasPrefix(rest, []byte("![CDATA[")) {
		return 5
	}
	if rest[0] == '!' && len(rest) > 1 && isAlpha(rest[1]) {
		return 4
	}
	if rest[0] == '/' {
		rest = rest[1:]
	}
	for _, tag := range htmlBlockTags {
		if hasPrefixFold(rest, tag) {
			after := rest[len(tag):]
			if len(after) == 0 || isSpace(after[0]) || after[0] == '>' ||
				bytes.HasPrefix(after, []byte("/>")) {
				return 6
			}
		}
	}
	return 0
}

// scanHTMLBlockStart7 matches a line consisting of a single complete open
// or close tag (any name except the type 1 tags) followed by whitespace.
func scanHTMLBlockStart7(s []byte) int {
	if len(s) == 0 || s[0] != '<' {
		return 0
	}
	n := scanOpenTag(s[1:])
	closing := false
	if n == 0 {
		n = scanCloseTag(s[1:])
		closing = true
	}
	if n == 0 {
		return 0
	}
	// Reject the type 1 tag names.
	name := s[2:]
	if !closing {
		name = s[1:]
	}
	for _, tag := range htmlBlockType1Tags {
		if hasPrefixFold(name, tag) {
			after := name[len(tag):]
			if len(after) == 0 || !isAlnum(after[0]) && after[0] != '-' {
				return 0
			}
		}
	}
	rest := s[1+n:]
	for len(rest) > 0 && isSpaceOrTab(rest[0]) {
		rest = rest[1:]
	}
	if len(rest) > 0 && !isLineEnd(rest[0]) {
		return 0
	}
	return 7
}

func htmlBlockEnd1(s []byte) bool {
	lower := bytes.ToLower(s)
	return bytes.Contains(lower, []byte("</script>")) ||
		bytes.Contains(lower, []byte("</pre>")) ||
		bytes.Contains(lower, []byte("</style>")) ||
		bytes.Contains(lower, []byte("</textarea>"))
}

func htmlBlockEnd2(s []byte) bool { return bytes.Contains(s, []byte("-->")) }

func htmlBlockEnd3(s []byte) bool { return bytes.Contains(s, []byte("?>")) }

func htmlBlockEnd4(s []byte) bool { return bytes.IndexByte(s, '>') >= 0 }

func htmlBlockEnd5(s []byte) bool { return bytes.Contains(s, []byte("]]>")) }

// scanFootnoteDefinition matches "[^label]:" plus trailing spaces and
// returns the full length.
func scanFootnoteDefinition(s []byte) int {
	if len(s) < 5 || s[0] != '[' || s[1] != '^' {
		return 0
	}
	i := 2
	for i < len(s) && s[i] != ']' {
		c := s[i]
		if c == '\r' || c == '\n' || c == 0 || c == '\t' {
			return 0
		}
		i++
	}
	if i == 2 || i+1 >= len(s) || s[i] != ']' || s[i+1] != ':' {
		return 0
	}
	i += 2
	for i < len(s) && isSpaceOrTab(s[i]) {
		i++
	}
	return i
}

// scanDescriptionItemStart matches ":" or "~" followed by a space or tab.
func scanDescriptionItemStart(s []byte) int {
	if len(s) >= 2 && (s[0] == ':' || s[0] == '~') && isSpaceOrTab(s[1]) {
		return 2
	}
	return 0
}

// scanTasklist matches "[c] " at the start of s and returns the length
// consumed and the marker byte.
func scanTasklist(s []byte) (int, byte) {
	if len(s) < 4 || s[0] != '[' || s[2] != ']' {
		return 0, 0
	}
	sym := s[1]
	if sym == ']' || sym == '\r' || sym == '\n' || sym == 0 {
		return 0, 0
	}
	if !isSpaceOrTab(s[3]) {
		return 0, 0
	}
	return 4, sym
}

// scanLinkTitle matches a link title in double quotes, single quotes or
// parentheses and returns its full length including delimiters.
func scanLinkTitle(s []byte) int {
	if len(s) < 2 {
		return 0
	}
	open := s[0]
	var close byte
	switch open {
	case '"', '\'':
		close = open
	case '(':
		close = ')'
	default:
		return 0
	}
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case open:
			if open == '(' {
				return 0
			}
			return i + 1
		case close:
			return i + 1
		}
	}
	return 0
}

// scanSpacechars counts leading whitespace including line ends.
func scanSpacechars(s []byte) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

// scanAutolinkURI matches "scheme:path>" and returns the length including
// the closing angle bracket.
func scanAutolinkURI(s []byte) int {
	i := 0
	if i >= len(s) || !isAlpha(s[i]) {
		return 0
	}
	i++
	n := 1
	for i < len(s) && n < 32 &&
		(isAlnum(s[i]) || s[i] == '.' || s[i] == '+' || s[i] == '-') {
		i++
		n++
	}
	if i >= len(s) || s[i] != ':' {
		return 0
	}
	i++
	for i < len(s) {
		c := s[i]
		if c == '>' {
			return i + 1
		}
		if c == '<' || c <= 0x20 {
			return 0
		}
		i++
	}
	return 0
}

// scanAutolinkEmail matches "addr@domain>" and returns the length including
// the closing angle bracket.
func scanAutolinkEmail(s []byte) int {
	i := 0
	for i < len(s) &&
		(isAlnum(s[i]) || bytes.IndexByte([]byte(".!#$%&'*+/=?^_`{|}~-"), s[i]) >= 0) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != '@' {
		return 0
	}
	i++
	for {
		n := scanEmailDomainLabel(s[i:])
		if n == 0 {
			return 0
		}
		i += n
		if i < len(s) && s[i] == '.' {
			i++
			continue
		}
		break
	}
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	return 0
}

// scanEmailDomainLabel matches one domain label, which must start and end
// with an alphanumeric and may hold up to 63 characters.
func scanEmailDomainLabel(s []byte) int {
	if len(s) == 0 || !isAlnum(s[0]) {
		return 0
	}
	last := 0
	for i := 1; i < len(s) && i < 63 && (isAlnum(s[i]) || s[i] == '-'); i++ {
		if isAlnum(s[i]) {
			last = i
		}
	}
	return last + 1
}

// scanOpenTag matches the remainder of an open tag after '<' and returns
// the length through the closing '>'.
func scanOpenTag(s []byte) int {
	i := scanTagName(s)
	if i == 0 {
		return 0
	}
	for {
		n := scanAttribute(s[i:])
		if n == 0 {
			break
		}
		i += n
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '/' {
		i++
	}
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	return 0
}

// scanCloseTag matches the remainder of a close tag after "</" and returns
// the length through the closing '>', counted from after the slash.
func scanCloseTag(s []byte) int {
	if len(s) == 0 || s[0] != '/' {
		return 0
	}
	i := 1 + scanTagName(s[1:])
	if i == 1 {
		return 0
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	return 0
}

func scanTagName(s []byte) int {
	if len(s) == 0 || !isAlpha(s[0]) {
		return 0
	}
	i := 1
	for i < len(s) && (isAlnum(s[i]) || s[i] == '-') {
		i++
	}
	return i
}

// scanAttribute matches one attribute including its leading whitespace.
func scanAttribute(s []byte) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i == 0 {
		return 0
	}
	n := scanAttributeName(s[i:])
	if n == 0 {
		return 0
	}
	i += n
	if v := scanAttributeValueSpec(s[i:]); v > 0 {
		i += v
	}
	return i
}

func scanAttributeName(s []byte) int {
	if len(s) == 0 || !(isAlpha(s[0]) || s[0] == '_' || s[0] == ':') {
		return 0
	}
	i := 1
	for i < len(s) && (isAlnum(s[i]) || s[i] == '_' || s[i] == ':' ||
		s[i] == '.' || s[i] == '-') {
		i++
	}
	return i
}

func scanAttributeValueSpec(s []byte) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != '=' {
		return 0
	}
	i++
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	n := scanAttributeValue(s[i:])
	if n == 0 {
		return 0
	}
	return i + n
}

func scanAttributeValue(s []byte) int {
	if len(s) == 0 {
		return 0
	}
	switch s[0] {
	case '\'', '"':
		q := s[0]
		for i := 1; i < len(s); i++ {
			if s[i] == q {
				return i + 1
			}
		}
		return 0
	}
	i := 0
	for i < len(s) {
		c := s[i]
		if isSpace(c) || c == '"' || c == '\'' || c == '=' || c == '<' ||
			c == '>' || c == '`' {
			break
		}
		i++
	}
	return i
}

// scanHTMLTag matches any inline raw HTML construct after '<' and returns
// the length counted from after the angle bracket through '>'.
func scanHTMLTag(s []byte) int {
	if len(s) == 0 {
		return 0
	}
	switch s[0] {
	case '/':
		return scanCloseTag(s)
	case '!':
		if len(s) >= 3 && s[1] == '-' && s[2] == '-' {
			return scanHTMLComment(s)
		}
		if bytes.HasPrefix(s, []byte("![CDATA[")) {
			if end := bytes.Index(s, []byte("]]>")); end >= 0 {
				return end + 3
			}
			return 0
		}
		if len(s) >= 2 && isAlpha(s[1]) {
			for i := 2; i < len(s); i++ {
				if s[i] == '>' {
					return i + 1
				}
			}
		}
		return 0
	case '?':
		for i := 1; i+1 < len(s); i++ {
			if s[i] == '?' && s[i+1] == '>' {
				return i + 2
			}
		}
		return 0
	}
	return scanOpenTag(s)
}

// scanHTMLComment matches "!--" comments, including the degenerate "!-->"
// and "!--->" forms, returning the length through the closing '>'.
func scanHTMLComment(s []byte) int {
	// s starts with "!--"
	i := 3
	if i < len(s) && s[i] == '>' {
		return i + 1
	}
	if i+1 < len(s) && s[i] == '-' && s[i+1] == '>' {
		return i + 2
	}
	for i < len(s) {
		if s[i] == 0 {
			return 0
		}
		if s[i] == '-' && i+1 < len(s) && s[i+1] == '-' {
			if i+2 < len(s) && s[i+2] == '>' {
				return i + 3
			}
			return 0
		}
		i++
	}
	return 0
}
