package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// DECODER METHODS

// ReadRawBytes reads a varint length prefix and returns exactly that many
// following bytes. The result shares the decoder's buffer.
func (d *Decoder) ReadRawBytes() ([]byte, error) {
	start := d.pos
	length, err := d.ReadVarint()
	if err != nil {
		return nil, err
	}
	if length > uint64(d.Len()) {
		have := d.Len()
		d.pos = start
		return nil, &TruncatedInputError{
			Offset: d.base + start,
			What:   "length-delimited",
			Need:   int(length) + VarintSize(length),
			Have:   have + VarintSize(length),
		}
	}
	data := d.buf[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return data, nil
}

// ReadLengthDelimited is ReadRawBytes; the name follows the protobuf
// encoding guide.
func (d *Decoder) ReadLengthDelimited() ([]byte, error) {
	return d.ReadRawBytes()
}

// ReadBytes decodes a length-delimited byte array into a fresh slice.
func (d *Decoder) ReadBytes() ([]byte, error) {
	raw, err := d.ReadRawBytes()
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(raw))
	copy(data, raw)
	return data, nil
}

// ReadString decodes a length-delimited string
func (d *Decoder) ReadString() (string, error) {
	raw, err := d.ReadRawBytes()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ReadMessage reads a length-delimited payload and returns a decoder bounded
// to it. Offsets reported by the sub-decoder stay absolute.
func (d *Decoder) ReadMessage() (*Decoder, error) {
	start := d.pos
	raw, err := d.ReadRawBytes()
	if err != nil {
		return nil, err
	}
	prefix := d.pos - start - len(raw)
	return &Decoder{buf: raw, base: d.base + start + prefix}, nil
}

// ENCODER METHODS

// WriteBytes encodes a byte array as length-delimited
func (e *Encoder) WriteBytes(data []byte) {
	e.buf = protowire.AppendBytes(e.buf, data)
}

// WriteString encodes a string as length-delimited bytes
func (e *Encoder) WriteString(s string) {
	e.buf = protowire.AppendString(e.buf, s)
}

// WriteMessage writes field num as an embedded message. fn builds the body in
// a separate encoder first, since the length prefix must be known before the
// body is written.
func (e *Encoder) WriteMessage(num FieldNumber, fn func(*Encoder) error) error {
	nested := NewEncoder()
	if err := fn(nested); err != nil {
		return err
	}
	e.WriteTag(num, WireBytes)
	e.WriteBytes(nested.buf)
	return nil
}

// WritePacked writes field num as one length-delimited record holding the
// values appended by fn back to back.
func (e *Encoder) WritePacked(num FieldNumber, fn func(*Encoder) error) error {
	return e.WriteMessage(num, fn)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(n int) int {
	return protowire.SizeBytes(n)
}
