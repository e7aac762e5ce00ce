// Package binio provides the big-endian byte cursor and writer shared by the
// class-file and bytecode codecs.
package binio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const maxPrealloc = 64 << 10

// Reader is a forward-only big-endian cursor. It remembers how many bytes it
// has handed out so callers can compute alignment relative to an earlier
// position.
type Reader struct {
	r    io.ByteReader
	dist int
}

// NewReader wraps r. Sources that are not already an io.ByteReader are
// buffered.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(io.ByteReader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// Dist returns the number of bytes consumed so far.
func (r *Reader) Dist() int {
	return r.dist
}

// Next reads one byte.
func (r *Reader) Next() (uint8, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, err
	}
	r.dist++
	return b, nil
}

// next reads n bytes into a big-endian integer. An EOF after the first byte
// is reported as io.ErrUnexpectedEOF.
func (r *Reader) next(n int) (uint64, error) {
	var v uint64
	for i := 0; i < n; i++ {
		b, err := r.Next()
		if err != nil {
			if i > 0 && errors.Is(err, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Next16 reads a big-endian uint16.
func (r *Reader) Next16() (uint16, error) {
	v, err := r.next(2)
	return uint16(v), err
}

// Next32 reads a big-endian uint32.
func (r *Reader) Next32() (uint32, error) {
	v, err := r.next(4)
	return uint32(v), err
}

// Next64 reads a big-endian uint64.
func (r *Reader) Next64() (uint64, error) {
	return r.next(8)
}

// NextI8 reads a signed byte.
func (r *Reader) NextI8() (int8, error) {
	v, err := r.Next()
	return int8(v), err
}

// NextI16 reads a big-endian int16.
func (r *Reader) NextI16() (int16, error) {
	v, err := r.Next16()
	return int16(v), err
}

// NextI32 reads a big-endian int32.
func (r *Reader) NextI32() (int32, error) {
	v, err := r.Next32()
	return int32(v), err
}

// NextI64 reads a big-endian int64.
func (r *Reader) NextI64() (int64, error) {
	v, err := r.Next64()
	return int64(v), err
}

// NextBytes reads exactly n bytes.
func (r *Reader) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	// Lengths come from the input, so grow instead of trusting n up front.
	buf := make([]byte, 0, min(n, maxPrealloc))
	for len(buf) < n {
		b, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}
