package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertCmd_Options_GfmEnablesExtensionSet(t *testing.T) {
	cmd := &ConvertCmd{Gfm: true, HeaderIds: "-", FrontMatter: "-"}

	opts := cmd.options()
	require.True(t, opts.Extension.Strikethrough)
	require.True(t, opts.Extension.Tagfilter)
	require.True(t, opts.Extension.Table)
	require.True(t, opts.Extension.Autolink)
	require.True(t, opts.Extension.Tasklist)
	require.False(t, opts.Extension.Superscript)
	require.False(t, opts.Extension.Footnotes)
	require.Nil(t, opts.Extension.HeaderIDs)
	require.Nil(t, opts.Extension.FrontMatterDelimiter)
}

func TestConvertCmd_Options_HeaderIDsAllowEmptyPrefix(t *testing.T) {
	cmd := &ConvertCmd{HeaderIds: "", FrontMatter: "-"}

	opts := cmd.options()
	require.NotNil(t, opts.Extension.HeaderIDs)
	require.Equal(t, "", *opts.Extension.HeaderIDs)
}

func TestConvertCmd_Run_FileToHTMLFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.html")
	require.NoError(t, os.WriteFile(in, []byte("# Hi\n"), 0o644))

	cmd := &ConvertCmd{File: in, To: "html", Output: out, HeaderIds: "-", FrontMatter: "-"}
	require.NoError(t, cmd.Run())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "<h1>Hi</h1>\n", string(got))
}

func TestConvertCmd_Run_CommonMarkOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.md")
	out := filepath.Join(dir, "out.md")
	require.NoError(t, os.WriteFile(in, []byte("Hello _world_\n"), 0o644))

	cmd := &ConvertCmd{File: in, To: "commonmark", Output: out, HeaderIds: "-", FrontMatter: "-"}
	require.NoError(t, cmd.Run())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "Hello *world*\n", string(got))
}

func TestConvertCmd_Run_MissingInput_ReturnsError(t *testing.T) {
	cmd := &ConvertCmd{File: filepath.Join(t.TempDir(), "nope.md"), HeaderIds: "-", FrontMatter: "-"}
	require.Error(t, cmd.Run())
}
