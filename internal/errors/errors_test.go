package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_Error_IncludesCategoryAndOp(t *testing.T) {
	err := NewValidation("options", "width must not be negative")
	assert.Equal(t, "validation: options: width must not be negative", err.Error())
}

func TestWrap_InheritsCategoryFromCause(t *testing.T) {
	cause := NewIO("read", "no such file")
	err := Wrap(cause, "convert", "cannot load input")
	assert.Equal(t, CategoryIO, err.Category)
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_DefaultsToInternalForPlainCause(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "serve", "listener failed")
	assert.Equal(t, CategoryInternal, err.Category)
}

func TestIsCategory_WalksWrappedChain(t *testing.T) {
	inner := NewValidation("options", "bad delimiter")
	outer := Wrap(inner, "parse", "invalid configuration")
	wrapped := WrapIO(outer, "cli", "run failed")

	require.True(t, IsCategory(wrapped, CategoryValidation))
	require.True(t, IsCategory(wrapped, CategoryIO))
	require.False(t, IsCategory(wrapped, CategoryServer))
}

func TestWithContext_AttachesFields(t *testing.T) {
	err := NewIO("read", "failed").WithContext("path", "doc.md")
	assert.Equal(t, "doc.md", err.Context["path"])
}
