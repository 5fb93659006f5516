// Package xmlparser reads attribute-row XML documents, the format of the
// Stack Overflow archival dump:
//
//	<posts>
//	  <row Id="1" PostTypeId="1" Body="..." />
//	  ...
//	</posts>
//
// Each record element yields one normalize.Raw whose Named map holds the
// element's attributes. Everything else in the document is skipped. The
// reader is pull-based and holds one record at a time, so memory does not
// grow with the document size.
package xmlparser

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"sotorrent/internal/normalize"
)

// RowReader pulls record elements from an XML stream.
type RowReader struct {
	dec  *xml.Decoder
	c    io.Closer
	tag  string
	seen int64
	err  error
}

// NewRowReader wraps r. If r is an io.Closer, Close closes it.
func NewRowReader(r io.Reader, opts Options) *RowReader {
	opts = opts.withDefaults()
	rr := &RowReader{tag: opts.RecordTag}
	if c, ok := r.(io.Closer); ok {
		rr.c = c
	}
	dec := xml.NewDecoder(bufio.NewReaderSize(r, opts.BufSize))
	dec.Strict = true
	rr.dec = dec
	return rr
}

// Next returns the next record or io.EOF once the document is exhausted.
// After a non-EOF error every later call returns the same error.
func (r *RowReader) Next() (normalize.Raw, error) {
	if r.err != nil {
		return normalize.Raw{}, r.err
	}
	for {
		tok, err := r.dec.Token()
		if err != nil {
			r.err = r.wrap(err)
			return normalize.Raw{}, r.err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != r.tag {
			continue
		}
		attrs := make(map[string]string, len(se.Attr))
		for _, a := range se.Attr {
			attrs[a.Name.Local] = a.Value
		}
		r.seen++
		return normalize.Raw{Named: attrs}, nil
	}
}

// Records reports how many record elements have been returned.
func (r *RowReader) Records() int64 { return r.seen }

// Close releases the underlying reader.
func (r *RowReader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

func (r *RowReader) wrap(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		if isTruncErr(err) {
			return fmt.Errorf("xml: truncated document after %d records (line %d): %w", r.seen, se.Line, err)
		}
		return fmt.Errorf("xml: line %d: %w", se.Line, err)
	}
	// Read failures from the source keep their type (loaderr.IOError).
	return err
}
