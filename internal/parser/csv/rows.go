// Package csv reads the delimited-text files of the code-provenance dataset.
//
// Files are comma separated with RFC 4180 quoting; quotes are parsed lazily
// because free-text fields (code blocks, diffs) contain stray quote
// characters. A leading byte order mark is removed before parsing.
package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"sotorrent/internal/normalize"
)

// Options configures a RowReader. The zero value reads headerless,
// comma-separated input.
type Options struct {
	// Header marks sources whose first line is a header. The header is
	// discarded without inspection; columns are always positional.
	Header bool
	// Comma is the field delimiter; 0 => ','.
	Comma rune
	// BufSize is the bufio.Reader size; 0 => 1<<20.
	BufSize int
}

// RowReader pulls records from delimited text.
type RowReader struct {
	cr      *csv.Reader
	c       io.Closer
	header  bool
	started bool
	err     error
}

// NewRowReader wraps r. If r is an io.Closer, Close closes it.
//
// The BOM transform strips a UTF-8 BOM and decodes UTF-16 input that starts
// with one; input without a BOM passes through unchanged.
func NewRowReader(r io.Reader, opts Options) *RowReader {
	if opts.BufSize <= 0 {
		opts.BufSize = 1 << 20
	}
	rr := &RowReader{header: opts.Header}
	if c, ok := r.(io.Closer); ok {
		rr.c = c
	}

	dec := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	cr := csv.NewReader(bufio.NewReaderSize(dec, opts.BufSize))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // arity is checked by the normalizer
	cr.ReuseRecord = true
	rr.cr = cr
	return rr
}

// Next returns the next record or io.EOF at the end of input. The returned
// Fields slice is only valid until the following call.
func (r *RowReader) Next() (normalize.Raw, error) {
	if r.err != nil {
		return normalize.Raw{}, r.err
	}
	if !r.started {
		r.started = true
		if r.header {
			if _, err := r.cr.Read(); err != nil {
				r.err = r.wrap(err)
				return normalize.Raw{}, r.err
			}
		}
	}
	rec, err := r.cr.Read()
	if err != nil {
		r.err = r.wrap(err)
		return normalize.Raw{}, r.err
	}
	return normalize.Raw{Fields: rec}, nil
}

// Close releases the underlying reader.
func (r *RowReader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// wrap keeps source read failures (loaderr.IOError) as they are and adds the
// line number to parse errors.
func (r *RowReader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("csv: line %d: %w", pe.Line, err)
	}
	return err
}
