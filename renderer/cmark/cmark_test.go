package cmark_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/commonmark/parser"
	"git.home.luguber.info/inful/commonmark/renderer/cmark"
	"git.home.luguber.info/inful/commonmark/renderer/html"
)

func render(t *testing.T, src string, opts *parser.Options) string {
	t.Helper()
	doc, err := parser.Parse([]byte(src), opts)
	require.NoError(t, err)
	out, err := cmark.Render(doc, opts)
	require.NoError(t, err)
	return out
}

func gfmOptions() *parser.Options {
	opts := &parser.Options{}
	opts.Extension.Strikethrough = true
	opts.Extension.Table = true
	opts.Extension.Autolink = true
	opts.Extension.Tasklist = true
	opts.Extension.Footnotes = true
	return opts
}

func TestRender_NilDocument_ReturnsError(t *testing.T) {
	_, err := cmark.Render(nil, nil)
	require.Error(t, err)
}

func TestRender_Paragraph_EndsWithNewline(t *testing.T) {
	require.Equal(t, "hello\n", render(t, "hello\n", nil))
}

func TestRender_EmphasisNormalizedToAsterisk(t *testing.T) {
	require.Equal(t, "a *em* **strong**\n", render(t, "a _em_ __strong__\n", nil))
}

func TestRender_EscapedPunctuationStaysEscaped(t *testing.T) {
	require.Equal(t, "\\*lit\\*\n", render(t, "\\*lit\\*\n", nil))
	require.Equal(t, "\\# not a heading\n", render(t, "\\# not a heading\n", nil))
}

func TestRender_SetextHeadingBecomesATX(t *testing.T) {
	require.Equal(t, "# Title\n", render(t, "Title\n=====\n", nil))
}

func TestRender_ThematicBreak(t *testing.T) {
	require.Equal(t, "-----\n", render(t, "***\n", nil))
}

func TestRender_BlockQuotePrefix(t *testing.T) {
	require.Equal(t, "> hi\n", render(t, "> hi\n", nil))
}

func TestRender_NestedBlockQuote(t *testing.T) {
	require.Equal(t, "> > deep\n", render(t, ">> deep\n", nil))
}

func TestRender_TightBulletList(t *testing.T) {
	require.Equal(t, "- a\n- b\n", render(t, "- a\n- b\n", nil))
}

func TestRender_OrderedListMarkerPadding(t *testing.T) {
	require.Equal(t, "3)  x\n4)  y\n", render(t, "3) x\n4) y\n", nil))
}

func TestRender_AdjacentLists_SeparatedByComment(t *testing.T) {
	out := render(t, "- a\n\n1. b\n", nil)
	require.Contains(t, out, "<!-- end list -->")
}

func TestRender_PlainCodeBlock_Indented(t *testing.T) {
	require.Equal(t, "    foo\n", render(t, "```\nfoo\n```\n", nil))
}

func TestRender_FencedCodeBlock_KeepsInfo(t *testing.T) {
	require.Equal(t, "``` go\nx\n```\n", render(t, "```go\nx\n```\n", nil))
}

func TestRender_FenceGrowsPastInteriorRun(t *testing.T) {
	out := render(t, "````go\na ``` b\n````\n", nil)
	require.Equal(t, "```` go\na ``` b\n````\n", out)
}

func TestRender_CodeSpanDelimiters(t *testing.T) {
	require.Equal(t, "`x`\n", render(t, "`x`\n", nil))
	require.Equal(t, "``a`b``\n", render(t, "`` a`b ``\n", nil))
}

func TestRender_HardBreakBackslash(t *testing.T) {
	require.Equal(t, "a\\\nb\n", render(t, "a\\\nb\n", nil))
}

func TestRender_SoftBreakKeptAtWidthZero(t *testing.T) {
	require.Equal(t, "a\nb\n", render(t, "a\nb\n", nil))
}

func TestRender_WidthWrapsAtLastBreakableSpace(t *testing.T) {
	opts := &parser.Options{}
	opts.Render.Width = 20
	require.Equal(t, "hello hello hello\nhello hello hello\n",
		render(t, "hello hello hello hello hello hello\n", opts))
}

func TestRender_WidthZeroKeepsSingleLine(t *testing.T) {
	out := render(t, "hello hello hello hello hello hello\n", nil)
	require.Equal(t, "hello hello hello hello hello hello\n", out)
}

func TestRender_LinkForm(t *testing.T) {
	require.Equal(t, "[t](/u)\n", render(t, "[t](/u)\n", nil))
	require.Equal(t, "[t](/u \"title\")\n", render(t, "[t](/u \"title\")\n", nil))
}

func TestRender_AutolinkShortform(t *testing.T) {
	require.Equal(t, "<https://example.com/a>\n",
		render(t, "<https://example.com/a>\n", nil))
	require.Equal(t, "<user@example.com>\n",
		render(t, "<user@example.com>\n", nil))
}

func TestRender_Image(t *testing.T) {
	require.Equal(t, "![alt](/i.png)\n", render(t, "![alt](/i.png)\n", nil))
}

func TestRender_Strikethrough(t *testing.T) {
	require.Equal(t, "~~x~~\n", render(t, "~~x~~\n", gfmOptions()))
}

func TestRender_TaskItems(t *testing.T) {
	require.Equal(t, "- [x] a\n- [ ] b\n", render(t, "- [x] a\n- [ ] b\n", gfmOptions()))
}

func TestRender_Table_SeparatorReflectsAlignment(t *testing.T) {
	src := "| a | b | c |\n| :-- | :-: | --: |\n| 1 | 2 | 3 |\n"
	want := "| a | b | c |\n| :-- | :-: | --: |\n| 1 | 2 | 3 |\n"
	require.Equal(t, want, render(t, src, gfmOptions()))
}

func TestRender_Table_PipeInCellEscaped(t *testing.T) {
	src := "| a |\n| --- |\n| x\\|y |\n"
	out := render(t, src, gfmOptions())
	require.Contains(t, out, "x\\|y")
}

func TestRender_Footnotes_RenumberedByFirstReference(t *testing.T) {
	src := "x[^b] y[^a]\n\n[^a]: A\n\n[^b]: B\n"
	out := render(t, src, gfmOptions())
	require.Contains(t, out, "x[^1] y[^2]")
	require.Contains(t, out, "[^1]:\n    B")
	require.Contains(t, out, "[^2]:\n    A")
}

func TestRender_FrontMatterEmittedFirst(t *testing.T) {
	delim := "---"
	opts := &parser.Options{}
	opts.Extension.FrontMatterDelimiter = &delim
	out := render(t, "---\nt: x\n---\n\nbody\n", opts)
	require.True(t, strings.HasPrefix(out, "---\nt: x\n---\n"))
	require.Contains(t, out, "body\n")
}

func TestRender_RoundTrip_TreeEquivalent(t *testing.T) {
	samples := []string{
		"hello *world*\n",
		"# Title\n\npara with `code` and [link](/u \"t\")\n",
		"> quote\n>\n> more\n",
		"- one\n- two\n  - nested\n",
		"1. a\n2. b\n",
		"```go\nfmt.Println(1)\n```\n",
		"| a | b |\n| :-- | --: |\n| 1 | 2 |\n",
		"- [x] done\n- [ ] todo\n",
		"~~gone~~ and **kept**\n",
	}
	opts := gfmOptions()

	for _, src := range samples {
		first, err := parser.Parse([]byte(src), opts)
		require.NoError(t, err)
		normalized, err := cmark.Render(first, opts)
		require.NoError(t, err)

		second, err := parser.Parse([]byte(normalized), opts)
		require.NoError(t, err)

		wantHTML, err := html.Render(first, opts)
		require.NoError(t, err)
		gotHTML, err := html.Render(second, opts)
		require.NoError(t, err)
		require.Equal(t, wantHTML, gotHTML, "source: %q normalized: %q", src, normalized)
	}
}

// Footnote definitions are renumbered by first-reference order, so their
// output only stabilizes after one pass. Normalizing twice must be a
// fixed point for every sample.
func TestRender_Normalization_IsIdempotent(t *testing.T) {
	samples := []string{
		"hello *world*\n",
		"> quote\n>\n> more\n",
		"- one\n- two\n  - nested\n",
		"text[^n]\n\n[^n]: note\n",
		"| a | b |\n| :-- | --: |\n| 1 | 2 |\n",
	}
	opts := gfmOptions()

	for _, src := range samples {
		once := render(t, src, opts)
		twice := render(t, once, opts)
		require.Equal(t, once, twice, "source: %q", src)
	}
}
