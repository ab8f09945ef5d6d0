package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewEncoderSize creates an encoder with capacity for n bytes.
func NewEncoderSize(n int) *Encoder {
	return &Encoder{buf: make([]byte, 0, n)}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// WriteTag writes (num << 3) | wireType as a varint.
func (e *Encoder) WriteTag(num FieldNumber, wireType WireType) {
	e.buf = protowire.AppendTag(e.buf, protowire.Number(num), protowire.Type(wireType))
}

// WriteRaw appends already encoded bytes.
func (e *Encoder) WriteRaw(b []byte) {
	e.buf = append(e.buf, b...)
}
