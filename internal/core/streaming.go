package core

// streaming.go wraps the upload stream before it reaches the CSV reader:
//
//   - NewBOMSkippingReader drops a leading UTF-8 BOM written by Excel on Windows
//   - CountingReader tracks bytes consumed for logs and metrics
//
// Neither buffers more than a few bytes, so memory stays O(batch size).

import (
	"bufio"
	"bytes"
	"io"
	"sync/atomic"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// NewBOMSkippingReader returns a reader that omits a leading UTF-8 BOM.
func NewBOMSkippingReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// CountingReader counts the bytes read through it. BytesRead may be called
// from another goroutine.
type CountingReader struct {
	reader io.Reader
	n      atomic.Int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *CountingReader) BytesRead() int64 { return c.n.Load() }

// WrapForStreaming counts raw bytes and strips the BOM. The counter wraps
// the raw stream so the total matches the uploaded size.
func WrapForStreaming(r io.Reader) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r)
	return NewBOMSkippingReader(counter), counter
}
