package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontMatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	block, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, block)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontMatter_SplitsBlockAndBody(t *testing.T) {
	input := []byte("---\nkey: value\n---\n# Title\n")

	block, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), block)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_MissingClosingDelimiter_TreatsInputAsBody(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	_, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.False(t, had)
	require.Equal(t, input, body)
}

func TestSplit_CRLF_SplitsBlockAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	block, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), block)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestSplit_EmptyBlock_ReportsHadWithEmptyBlock(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	block, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, block)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_TrailingBlankLines_BelongToBlock(t *testing.T) {
	input := []byte("---\nkey: value\n---\n\n\n# Title\n")

	_, body, had, err := Split(input, DefaultDelimiter)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_CustomDelimiter_Splits(t *testing.T) {
	input := []byte("+++\ntitle = \"x\"\n+++\nBody\n")

	block, body, had, err := Split(input, "+++")
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title = \"x\"\n"), block)
	require.Equal(t, []byte("Body\n"), body)
}

func TestSplit_EmptyDelimiter_ReturnsError(t *testing.T) {
	_, _, _, err := Split([]byte("---\n---\n"), "")
	require.ErrorIs(t, err, ErrBadDelimiter)
}

func TestJoin_RoundTrip_ReconstructsOriginalBytes(t *testing.T) {
	cases := [][]byte{
		[]byte("# Title\n\nHello\n"),
		[]byte("---\nkey: value\n---\n# Title\n"),
		[]byte("---\n---\n# Title\n"),
	}

	for _, input := range cases {
		block, body, had, err := Split(input, DefaultDelimiter)
		require.NoError(t, err)

		out := Join(block, body, had, DefaultDelimiter)
		require.Equal(t, input, out)
	}
}

func TestDecode_ValidYAML_ExtractsTitleAndFields(t *testing.T) {
	block := []byte("title: Home\ntags:\n  - one\n")

	meta, err := Decode(block)
	require.NoError(t, err)
	require.Equal(t, "Home", meta.Title)
	require.Equal(t, []any{"one"}, meta.Fields["tags"])
}

func TestDecode_Empty_ReturnsEmptyMetadata(t *testing.T) {
	meta, err := Decode(nil)
	require.NoError(t, err)
	require.Empty(t, meta.Title)
	require.Empty(t, meta.Fields)
}

func TestDecode_NonStringTitle_LeavesTitleEmpty(t *testing.T) {
	meta, err := Decode([]byte("title: 42\n"))
	require.NoError(t, err)
	require.Empty(t, meta.Title)
	require.Equal(t, 42, meta.Fields["title"])
}

func TestDecode_InvalidYAML_ReturnsError(t *testing.T) {
	_, err := Decode([]byte(": not yaml"))
	require.Error(t, err)
}
