package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Fixed-width values are little-endian.

// DECODER METHODS

// ReadFixed32 decodes a 32-bit fixed-width value
func (d *Decoder) ReadFixed32() (uint32, error) {
	v, n := protowire.ConsumeFixed32(d.buf[d.pos:])
	if n < 0 {
		return 0, &TruncatedInputError{Offset: d.Pos(), What: "fixed32", Need: 4, Have: d.Len()}
	}
	d.pos += n
	return v, nil
}

// ReadFixed64 decodes a 64-bit fixed-width value
func (d *Decoder) ReadFixed64() (uint64, error) {
	v, n := protowire.ConsumeFixed64(d.buf[d.pos:])
	if n < 0 {
		return 0, &TruncatedInputError{Offset: d.Pos(), What: "fixed64", Need: 8, Have: d.Len()}
	}
	d.pos += n
	return v, nil
}

// ReadFloat decodes a 32-bit float from fixed32 data
func (d *Decoder) ReadFloat() (float32, error) {
	v, err := d.ReadFixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadDouble decodes a 64-bit float from fixed64 data
func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.ReadFixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ENCODER METHODS

// WriteFixed32 encodes a 32-bit fixed-width value
func (e *Encoder) WriteFixed32(v uint32) {
	e.buf = protowire.AppendFixed32(e.buf, v)
}

// WriteFixed64 encodes a 64-bit fixed-width value
func (e *Encoder) WriteFixed64(v uint64) {
	e.buf = protowire.AppendFixed64(e.buf, v)
}

// WriteFloat encodes a 32-bit float as fixed32
func (e *Encoder) WriteFloat(v float32) {
	e.WriteFixed32(math.Float32bits(v))
}

// WriteDouble encodes a 64-bit float as fixed64
func (e *Encoder) WriteDouble(v float64) {
	e.WriteFixed64(math.Float64bits(v))
}
