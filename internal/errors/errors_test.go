package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := IO("/tmp/x", os.ErrNotExist)
	assert.Equal(t, "/tmp/x: file does not exist", err.Error())
	assert.True(t, stderrors.Is(err, os.ErrNotExist))

	err = FormatError("dirs/abc", "invalid kind %q", "link")
	assert.Equal(t, `dirs/abc: invalid kind "link"`, err.Error())
}

func TestIs(t *testing.T) {
	nf := NotFound("tree %s", "abc")
	wrapped := fmt.Errorf("reading commit: %w", nf)

	assert.True(t, Is(wrapped, ErrorTypeNotFound))
	assert.False(t, Is(wrapped, ErrorTypeFormat))
	assert.Equal(t, ErrorTypeNotFound, TypeOf(wrapped))

	nested := &Error{Type: ErrorTypeIO, Err: wrapped}
	assert.True(t, Is(nested, ErrorTypeIO))
	assert.True(t, Is(nested, ErrorTypeNotFound))

	assert.False(t, Is(stderrors.New("plain"), ErrorTypeIO))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
