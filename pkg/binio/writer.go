package binio

import (
	"bytes"
	"encoding/binary"
)

// Writer appends big-endian values to an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// U8 writes one byte.
func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

// U16 writes a big-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf.Write(binary.BigEndian.AppendUint16(nil, v))
}

// U32 writes a big-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf.Write(binary.BigEndian.AppendUint32(nil, v))
}

// U64 writes a big-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf.Write(binary.BigEndian.AppendUint64(nil, v))
}

// I8 writes a signed byte.
func (w *Writer) I8(v int8) { w.U8(uint8(v)) }

// I16 writes a big-endian int16.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

// I32 writes a big-endian int32.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// I64 writes a big-endian int64.
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

// Raw writes b unchanged.
func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reset discards everything written.
func (w *Writer) Reset() {
	w.buf.Reset()
}
