package commonmark_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	commonmark "git.home.luguber.info/inful/commonmark"
	"git.home.luguber.info/inful/commonmark/ast"
)

func TestToHTML_NilOptions_UsesDefaults(t *testing.T) {
	out, err := commonmark.ToHTML([]byte("# Hi\n"), nil)
	require.NoError(t, err)
	require.Equal(t, "<h1>Hi</h1>\n", out)
}

func TestToHTML_EmptyInput_ReturnsEmptyOutput(t *testing.T) {
	out, err := commonmark.ToHTML(nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestToHTML_InvalidWidth_ReturnsError(t *testing.T) {
	opts := &commonmark.Options{}
	opts.Render.Width = -2
	_, err := commonmark.ToHTML([]byte("x"), opts)
	require.Error(t, err)
}

func TestToCommonMark_NormalizesMarkers(t *testing.T) {
	out, err := commonmark.ToCommonMark([]byte("Title\n=====\n\n* item\n"), nil)
	require.NoError(t, err)
	require.Equal(t, "# Title\n\n* item\n", out)
}

func TestParse_ThenRenderBoth_SharesOneTree(t *testing.T) {
	opts := &commonmark.Options{}
	opts.Extension.Strikethrough = true
	doc, err := commonmark.Parse([]byte("a ~~b~~ c\n"), opts)
	require.NoError(t, err)

	htmlOut, err := commonmark.RenderHTML(doc, opts)
	require.NoError(t, err)
	require.Equal(t, "<p>a <del>b</del> c</p>\n", htmlOut)

	mdOut, err := commonmark.RenderCommonMark(doc, opts)
	require.NoError(t, err)
	require.Equal(t, "a ~~b~~ c\n", mdOut)
}

func TestParse_TreeIsInspectable(t *testing.T) {
	doc, err := commonmark.Parse([]byte("# One\n\ntwo\n"), nil)
	require.NoError(t, err)

	require.Equal(t, ast.Heading, doc.FirstChild().Type)
	require.Equal(t, ast.Paragraph, doc.FirstChild().Next().Type)
}

func TestToHTML_ExtensionToggleChangesOutput(t *testing.T) {
	src := []byte("e = mc^2^.\n")

	off, err := commonmark.ToHTML(src, nil)
	require.NoError(t, err)
	require.Equal(t, "<p>e = mc^2^.</p>\n", off)

	opts := &commonmark.Options{}
	opts.Extension.Superscript = true
	on, err := commonmark.ToHTML(src, opts)
	require.NoError(t, err)
	require.Equal(t, "<p>e = mc<sup>2</sup>.</p>\n", on)
}

func TestToCommonMark_WidthWrapping(t *testing.T) {
	opts := &commonmark.Options{}
	opts.Render.Width = 20
	out, err := commonmark.ToCommonMark(
		[]byte("hello hello hello hello hello hello\n"), opts)
	require.NoError(t, err)
	require.Equal(t, "hello hello hello\nhello hello hello\n", out)
}
