package lisp

import (
	"bytes"
	"context"
	_ "embed"
	"io"

	"github.com/klauspost/readahead"
)

//go:embed stdlib/stdlib.lisp
var embeddedStdLib []byte

// loadEmbeddedStdLib feeds the bundled standard-library source through the
// same CompileAndExecute pipeline any other input goes through. The reader
// is wrapped in a read-ahead buffer the way aenv's lang.Stream wraps its
// source reader; the whole source is read through it before parsing
// begins.
func (c *Context) loadEmbeddedStdLib() error {
	ra := readahead.NewReader(bytes.NewReader(embeddedStdLib))
	defer ra.Close()

	src, err := io.ReadAll(ra)
	if err != nil {
		return ErrReadInput.Wrap(err)
	}

	_, err = c.CompileAndExecute(context.Background(), string(src))

	return err
}
