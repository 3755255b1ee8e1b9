package types

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrPageNotFoundIsConfigurationError(t *testing.T) {
	assert.ErrorIs(t, ErrPageNotFound, ErrConfiguration)
	assert.ErrorIs(t, ErrWriterMissing, ErrConfiguration)
	assert.Contains(t, ErrPageNotFound.Error(), "page not found")
}

func TestWriteErrorUnwrap(t *testing.T) {
	err := error(&WriteError{Path: "/c/a/docs.json", Err: io.ErrShortWrite})

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "/c/a/docs.json", we.Path)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, "write /c/a/docs.json: short write", err.Error())
}

func TestPageInfo(t *testing.T) {
	p := &Page{
		Title:   "title1",
		Address: "/2.html",
		Types:   []string{"a", "b", "d"},
		Hide:    true,
		Source:  "2.md",
	}
	assert.Equal(t, PageInfo{Title: "title1", Address: "/2.html", Types: []string{"a", "b", "d"}}, p.Info())
}
