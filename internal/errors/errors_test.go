package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryStore, SeverityError, "batch read failed")
	assert.Equal(t, "store (error): batch read failed", e.Error())

	wrapped := Wrap(errors.New("disk full"), CategoryStore, SeverityFatal, "write failed")
	assert.Equal(t, "store (fatal): write failed: disk full", wrapped.Error())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := Wrap(cause, CategoryRender, SeverityError, "render failed")
	require.ErrorIs(t, e, cause)
}

func TestCategoryHelpers(t *testing.T) {
	e := ValidationError("bad flag")
	assert.True(t, IsCategory(e, CategoryValidation))
	assert.False(t, IsCategory(e, CategoryConfig))
	assert.Equal(t, CategoryValidation, GetCategory(e))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestWithContext(t *testing.T) {
	e := ConfigError("missing store path").WithContext("path", "config.yaml")
	assert.Equal(t, "config.yaml", e.Context["path"])
}

func TestExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 2, a.ExitCodeFor(ValidationError("x")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigError("x")))
	assert.Equal(t, 8, a.ExitCodeFor(New(CategoryStore, SeverityError, "x")))
	assert.Equal(t, 11, a.ExitCodeFor(New(CategoryRender, SeverityError, "x")))
	assert.Equal(t, 1, a.ExitCodeFor(errors.New("plain")))
}
