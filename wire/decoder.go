package wire

import (
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// Decoder reads protobuf wire values from a byte buffer. The cursor only
// moves forward; a failed read leaves it where the read started.
type Decoder struct {
	buf  []byte
	pos  int
	base int // absolute offset of buf[0] within the outermost message
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Pos returns the cursor position relative to the outermost buffer.
func (d *Decoder) Pos() int {
	return d.base + d.pos
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int {
	return len(d.buf) - d.pos
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.pos < len(d.buf)
}

// ReadTag decodes one tag varint and splits it into field number (tag >> 3)
// and wire type (tag & 7).
func (d *Decoder) ReadTag() (FieldNumber, WireType, error) {
	start := d.pos
	tag, err := d.ReadVarint()
	if err != nil {
		return 0, 0, err
	}
	num, wt := tag>>3, WireType(tag&7)
	switch {
	case num == 0:
		d.pos = start
		return 0, 0, d.malformed(start, "field number 0")
	case num > uint64(MaxFieldNumber):
		d.pos = start
		return 0, 0, d.malformed(start, fmt.Sprintf("field number %d out of range", num))
	case wt > WireFixed32:
		d.pos = start
		return 0, 0, d.malformed(start, fmt.Sprintf("invalid wire type %d", wt))
	}
	return FieldNumber(num), wt, nil
}

// SkipField advances past the value of a field whose tag was just read. It is
// how fields unknown to the current schema are dropped.
func (d *Decoder) SkipField(num FieldNumber, wireType WireType) error {
	switch wireType {
	case WireVarint:
		_, err := d.ReadVarint()
		return err
	case WireFixed64:
		return d.skip(8, "fixed64")
	case WireFixed32:
		return d.skip(4, "fixed32")
	case WireBytes:
		_, err := d.ReadRawBytes()
		return err
	case WireStartGroup:
		n := protowire.ConsumeFieldValue(protowire.Number(num), protowire.StartGroupType, d.buf[d.pos:])
		if n < 0 {
			return d.consumeError(n, "group")
		}
		d.pos += n
		return nil
	case WireEndGroup:
		return d.malformed(d.pos, "unexpected end group marker")
	default:
		return d.malformed(d.pos, fmt.Sprintf("invalid wire type %d", wireType))
	}
}

func (d *Decoder) skip(n int, what string) error {
	if d.Len() < n {
		return &TruncatedInputError{Offset: d.Pos(), What: what, Need: n, Have: d.Len()}
	}
	d.pos += n
	return nil
}

func (d *Decoder) malformed(at int, reason string) error {
	return &MalformedInputError{Offset: d.base + at, Reason: reason}
}

// consumeError converts a negative protowire length into a typed error.
func (d *Decoder) consumeError(n int, what string) error {
	if errors.Is(protowire.ParseError(n), io.ErrUnexpectedEOF) {
		return &TruncatedInputError{Offset: d.Pos(), What: what, Have: d.Len()}
	}
	return d.malformed(d.pos, fmt.Sprintf("%s: %v", what, protowire.ParseError(n)))
}

// offsetError rebases errors produced against d.buf onto the outermost buffer.
func (d *Decoder) offsetError(err error) error {
	if d.base == 0 {
		return err
	}
	switch e := err.(type) {
	case *TruncatedInputError:
		e.Offset += d.base
	case *MalformedInputError:
		e.Offset += d.base
	}
	return err
}
