package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/commonmark/ast"
)

func firstInline(t *testing.T, src string, opts *Options) *ast.Node {
	t.Helper()
	doc := mustParse(t, src, opts)
	para := doc.FirstChild()
	require.NotNil(t, para)
	require.Equal(t, ast.Paragraph, para.Type)
	return para.FirstChild()
}

func smartOptions() *Options {
	opts := &Options{}
	opts.Parse.Smart = true
	return opts
}

func TestInline_SingleDelimiter_BecomesEmph(t *testing.T) {
	n := firstInline(t, "*word*\n", nil)
	require.Equal(t, ast.Emph, n.Type)
	require.Equal(t, "word", n.FirstChild().Literal)
}

func TestInline_DoubleDelimiter_BecomesStrong(t *testing.T) {
	n := firstInline(t, "**word**\n", nil)
	require.Equal(t, ast.Strong, n.Type)
}

func TestInline_TripleDelimiter_NestsStrongInEmph(t *testing.T) {
	n := firstInline(t, "***word***\n", nil)
	require.Equal(t, ast.Emph, n.Type)
	strong := n.FirstChild()
	require.Equal(t, ast.Strong, strong.Type)
	require.Equal(t, "word", strong.FirstChild().Literal)
}

func TestInline_IntrawordUnderscore_StaysLiteral(t *testing.T) {
	n := firstInline(t, "foo_bar_baz\n", nil)
	require.Equal(t, ast.Text, n.Type)
	require.Equal(t, "foo_bar_baz", n.Literal)
	require.Nil(t, n.Next())
}

func TestInline_UnmatchedDelimiter_StaysLiteral(t *testing.T) {
	para := mustParse(t, "a ** b\n", nil).FirstChild()
	for c := para.FirstChild(); c != nil; c = c.Next() {
		require.Equal(t, ast.Text, c.Type)
	}
}

func TestInline_CodeSpan_TrimsOneFramingSpace(t *testing.T) {
	n := firstInline(t, "`` `code` ``\n", nil)
	require.Equal(t, ast.Code, n.Type)
	require.Equal(t, "`code`", n.Literal)
}

func TestInline_BackslashEscape_ProducesLiteralPunct(t *testing.T) {
	n := firstInline(t, "\\*not emph\\*\n", nil)
	require.Equal(t, ast.Text, n.Type)
	require.Equal(t, "*not emph*", n.Literal)
	require.Nil(t, n.Next())
}

func TestInline_BackslashNewline_IsHardBreak(t *testing.T) {
	para := mustParse(t, "a\\\nb\n", nil).FirstChild()
	br := para.FirstChild().Next()
	require.Equal(t, ast.LineBreak, br.Type)
}

func TestInline_TwoTrailingSpaces_IsHardBreak(t *testing.T) {
	para := mustParse(t, "a  \nb\n", nil).FirstChild()
	br := para.FirstChild().Next()
	require.Equal(t, ast.LineBreak, br.Type)
}

func TestInline_SingleNewline_IsSoftBreak(t *testing.T) {
	para := mustParse(t, "a\nb\n", nil).FirstChild()
	br := para.FirstChild().Next()
	require.Equal(t, ast.SoftBreak, br.Type)
}

func TestInline_NamedEntity_Decoded(t *testing.T) {
	n := firstInline(t, "&copy;\n", nil)
	require.Equal(t, "©", n.Literal)
}

func TestInline_NumericEntity_Decoded(t *testing.T) {
	n := firstInline(t, "&#x41;\n", nil)
	require.Equal(t, "A", n.Literal)
}

func TestInline_UnknownEntity_StaysLiteral(t *testing.T) {
	n := firstInline(t, "&nosuch;\n", nil)
	require.Equal(t, "&", n.Literal)
}

func TestInline_MixedEntities_DecodeIndependently(t *testing.T) {
	n := firstInline(t, "&copy; &MadeUp;\n", nil)
	require.Equal(t, ast.Text, n.Type)
	require.Equal(t, "© &MadeUp;", n.Literal)
	require.Nil(t, n.Next())
}

func TestInline_AngleAutolink_MakesLink(t *testing.T) {
	n := firstInline(t, "<https://example.com/a>\n", nil)
	require.Equal(t, ast.Link, n.Type)
	require.Equal(t, "https://example.com/a", n.Link.URL)
	require.Equal(t, "https://example.com/a", n.FirstChild().Literal)
}

func TestInline_AngleEmailAutolink_GetsMailtoPrefix(t *testing.T) {
	n := firstInline(t, "<user@example.com>\n", nil)
	require.Equal(t, ast.Link, n.Type)
	require.Equal(t, "mailto:user@example.com", n.Link.URL)
	require.Equal(t, "user@example.com", n.FirstChild().Literal)
}

func TestInline_InlineLink_URLAndTitle(t *testing.T) {
	n := firstInline(t, "[text](/url \"the title\")\n", nil)
	require.Equal(t, ast.Link, n.Type)
	require.Equal(t, "/url", n.Link.URL)
	require.Equal(t, "the title", n.Link.Title)
	require.Equal(t, "text", n.FirstChild().Literal)
}

func TestInline_PointyDestination_AllowsSpaces(t *testing.T) {
	n := firstInline(t, "[t](</my url>)\n", nil)
	require.Equal(t, ast.Link, n.Type)
	require.Equal(t, "/my url", n.Link.URL)
}

func TestInline_Image_CapturesURL(t *testing.T) {
	n := firstInline(t, "![alt text](/img.png)\n", nil)
	require.Equal(t, ast.Image, n.Type)
	require.Equal(t, "/img.png", n.Link.URL)
}

func TestInline_UnresolvedBracket_StaysLiteral(t *testing.T) {
	para := mustParse(t, "[nope]\n", nil).FirstChild()
	for c := para.FirstChild(); c != nil; c = c.Next() {
		require.Equal(t, ast.Text, c.Type)
	}
}

func TestInline_LinksDoNotNest(t *testing.T) {
	para := mustParse(t, "[a [b](/inner)](/outer)\n", nil).FirstChild()

	var links int
	for _, n := range ast.Descendants(para) {
		if n.Type == ast.Link {
			links++
			require.Equal(t, "/inner", n.Link.URL)
		}
	}
	require.Equal(t, 1, links)
}

func TestInline_Strikethrough_RequiresExtension(t *testing.T) {
	n := firstInline(t, "~~gone~~\n", nil)
	require.Equal(t, ast.Text, n.Type)

	opts := &Options{}
	opts.Extension.Strikethrough = true
	n = firstInline(t, "~~gone~~\n", opts)
	require.Equal(t, ast.Strikethrough, n.Type)
	require.Equal(t, "gone", n.FirstChild().Literal)
}

func TestInline_TripleTilde_StaysLiteral(t *testing.T) {
	opts := &Options{}
	opts.Extension.Strikethrough = true
	n := firstInline(t, "a ~~~x~~~ b\n", opts)
	require.Equal(t, ast.Text, n.Type)
	require.Equal(t, "a ~~~x~~~ b", n.Literal)
	require.Nil(t, n.Next())
}

func TestInline_Superscript_WrapsRun(t *testing.T) {
	opts := &Options{}
	opts.Extension.Superscript = true
	para := mustParse(t, "e = mc^2^.\n", opts).FirstChild()

	sup := para.FirstChild().Next()
	require.Equal(t, ast.Superscript, sup.Type)
	require.Equal(t, "2", sup.FirstChild().Literal)
}

func TestInline_BareWWWAutolink_GetsHTTPURL(t *testing.T) {
	opts := &Options{}
	opts.Extension.Autolink = true
	para := mustParse(t, "visit www.example.com now\n", opts).FirstChild()

	link := para.FirstChild().Next()
	require.Equal(t, ast.Link, link.Type)
	require.Equal(t, "http://www.example.com", link.Link.URL)
	require.Equal(t, "www.example.com", link.FirstChild().Literal)
}

func TestInline_BareURLAutolink_TrimsTrailingPunct(t *testing.T) {
	opts := &Options{}
	opts.Extension.Autolink = true
	para := mustParse(t, "see https://example.com/a.\n", opts).FirstChild()

	link := para.FirstChild().Next()
	require.Equal(t, ast.Link, link.Type)
	require.Equal(t, "https://example.com/a", link.Link.URL)
}

func TestInline_BareEmailAutolink_GetsMailto(t *testing.T) {
	opts := &Options{}
	opts.Extension.Autolink = true
	para := mustParse(t, "mail me@example.com today\n", opts).FirstChild()

	link := para.FirstChild().Next()
	require.Equal(t, ast.Link, link.Type)
	require.Equal(t, "mailto:me@example.com", link.Link.URL)
}

func TestInline_SmartQuotes_Curly(t *testing.T) {
	para := mustParse(t, "Why 'hello' \"there\". It's good.\n", smartOptions()).FirstChild()

	var text string
	for _, n := range ast.Descendants(para) {
		if n.Type == ast.Text {
			text += n.Literal
		}
	}
	require.Equal(t, "Why ‘hello’ “there”. It’s good.", text)
}

func TestInline_SmartDashesAndEllipsis(t *testing.T) {
	para := mustParse(t, "Hm... yes- indeed-- quite---!\n", smartOptions()).FirstChild()

	var text string
	for _, n := range ast.Descendants(para) {
		if n.Type == ast.Text {
			text += n.Literal
		}
	}
	require.Equal(t, "Hm… yes- indeed– quite—!", text)
}

func TestInline_SmartDisabled_KeepsStraightQuotes(t *testing.T) {
	n := firstInline(t, "\"plain\"\n", nil)
	require.Equal(t, "\"plain\"", n.Literal)
}

func TestInline_RawHTMLSpan_Preserved(t *testing.T) {
	para := mustParse(t, "a <b>bold</b> c\n", nil).FirstChild()

	open := para.FirstChild().Next()
	require.Equal(t, ast.HTMLInline, open.Type)
	require.Equal(t, "<b>", open.Literal)
}

func TestInline_BareAngle_StaysLiteral(t *testing.T) {
	para := mustParse(t, "1 < 2\n", nil).FirstChild()
	for c := para.FirstChild(); c != nil; c = c.Next() {
		require.Equal(t, ast.Text, c.Type)
	}
}
