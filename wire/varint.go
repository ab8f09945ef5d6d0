package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// MaxVarintLen is the longest valid varint encoding of a 64-bit value.
const MaxVarintLen = 10

// AppendUnsignedVarint appends v to b as a base-128 varint: 7 bits per byte,
// low group first, continuation bit set on all but the last byte.
func AppendUnsignedVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// ReadUnsignedVarint decodes the varint starting at b[offset] and returns the
// value and the offset just past it. A chain that ends with the input, or that
// is still continuing after MaxVarintLen bytes, is a *TruncatedInputError.
func ReadUnsignedVarint(b []byte, offset int) (uint64, int, error) {
	if offset < 0 || offset > len(b) {
		return 0, offset, &TruncatedInputError{Offset: offset, What: "varint"}
	}
	v, n := protowire.ConsumeVarint(b[offset:])
	if n < 0 {
		return 0, offset, varintError(b, offset)
	}
	return v, offset + n, nil
}

func varintError(b []byte, offset int) error {
	have := len(b) - offset
	if have >= MaxVarintLen {
		return &TruncatedInputError{Offset: offset, What: "varint continuation chain longer than 10 bytes", Have: have}
	}
	return &TruncatedInputError{Offset: offset, What: "varint", Have: have}
}

// EncodeZigZag maps signed integers onto unsigned ones so that values of small
// magnitude stay short: (n << 1) ^ (n >> 63). Only sint32/sint64 use it.
func EncodeZigZag(v int64) uint64 {
	return protowire.EncodeZigZag(v)
}

// DecodeZigZag inverts EncodeZigZag.
func DecodeZigZag(v uint64) int64 {
	return protowire.DecodeZigZag(v)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	return protowire.SizeVarint(v)
}

// DECODER METHODS

// ReadVarint decodes a varint from the current position
func (d *Decoder) ReadVarint() (uint64, error) {
	v, next, err := ReadUnsignedVarint(d.buf, d.pos)
	if err != nil {
		return 0, d.offsetError(err)
	}
	d.pos = next
	return v, nil
}

// ReadBool decodes a varint as bool; any non-zero value is true.
func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadVarint()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// ReadZigZag decodes a zigzag-encoded signed varint.
func (d *Decoder) ReadZigZag() (int64, error) {
	v, err := d.ReadVarint()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag(v), nil
}

// ENCODER METHODS

// WriteVarint encodes a uint64 as varint
func (e *Encoder) WriteVarint(v uint64) {
	e.buf = protowire.AppendVarint(e.buf, v)
}

// WriteSignedVarint writes v in two's complement, so negative values always
// take 10 bytes. This is the int32/int64/enum encoding.
func (e *Encoder) WriteSignedVarint(v int64) {
	e.buf = protowire.AppendVarint(e.buf, uint64(v))
}

// WriteZigZag writes v zigzag encoded (sint32/sint64).
func (e *Encoder) WriteZigZag(v int64) {
	e.buf = protowire.AppendVarint(e.buf, EncodeZigZag(v))
}

// WriteBool writes 1 or 0.
func (e *Encoder) WriteBool(v bool) {
	e.buf = protowire.AppendVarint(e.buf, protowire.EncodeBool(v))
}
