package core

// streaming.go provides the io.Reader wrappers applied to uploads before
// CSV parsing:
//
//   - BOMSkippingReader: Removes UTF-8 BOM (0xEF 0xBB 0xBF) from Windows files
//   - SizeLimitReader: Fails with ErrFileTooLarge once a byte budget is spent
//
// Use WrapUpload to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	reader  *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: bufio.NewReader(r)}
}

// Read implements io.Reader. On the first read, it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.reader.Discard(len(utf8BOM))
		}
	}
	return r.reader.Read(p)
}

// SizeLimitReader returns ErrFileTooLarge when more than limit bytes are
// available from the underlying reader. Unlike io.LimitReader it does not
// silently truncate.
type SizeLimitReader struct {
	reader    io.Reader
	remaining int64
}

// NewSizeLimitReader creates a reader that allows at most limit bytes.
func NewSizeLimitReader(r io.Reader, limit int64) *SizeLimitReader {
	return &SizeLimitReader{reader: r, remaining: limit}
}

// Read implements io.Reader.
func (r *SizeLimitReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.remaining <= 0 {
		// Budget spent: probe for one more byte to tell EOF from overflow.
		var probe [1]byte
		n, err := r.reader.Read(probe[:])
		if n > 0 {
			return 0, ErrFileTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.reader.Read(p)
	r.remaining -= int64(n)
	return n, err
}

// WrapUpload applies BOM skipping and, when maxBytes > 0, the size limit.
// The limit counts raw bytes, BOM included.
func WrapUpload(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		r = NewSizeLimitReader(r, maxBytes)
	}
	return NewBOMSkippingReader(r)
}
