package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageSize bounds a single delimited record.
const DefaultMaxMessageSize = 64 << 20

// DelimitedReader reads a stream of varint-length-prefixed messages.
// It is not safe for concurrent use.
type DelimitedReader struct {
	r       *bufio.Reader
	maxSize int
	offset  int
	buf     []byte
}

// NewDelimitedReader wraps r. maxSize <= 0 selects DefaultMaxMessageSize.
func NewDelimitedReader(r io.Reader, maxSize int) *DelimitedReader {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &DelimitedReader{r: bufio.NewReader(r), maxSize: maxSize}
}

// Next returns the payload of the next record. It returns io.EOF when the
// stream ends cleanly between records. The returned slice is reused by the
// following call.
func (dr *DelimitedReader) Next() ([]byte, error) {
	start := dr.offset
	counter := &countingByteReader{r: dr.r}
	size, err := binary.ReadUvarint(counter)
	dr.offset += counter.n
	if err != nil {
		if err == io.EOF && counter.n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedInputError{Offset: start, What: "record length", Have: counter.n}
		}
		return nil, &MalformedInputError{Offset: start, Reason: fmt.Sprintf("record length: %v", err)}
	}
	if size > uint64(dr.maxSize) {
		return nil, &MalformedInputError{Offset: start, Reason: fmt.Sprintf("record of %d bytes exceeds limit %d", size, dr.maxSize)}
	}
	if dr.buf == nil || cap(dr.buf) < int(size) {
		dr.buf = make([]byte, size)
	}
	dr.buf = dr.buf[:size]
	n, err := io.ReadFull(dr.r, dr.buf)
	dr.offset += n
	if err != nil {
		return nil, &TruncatedInputError{Offset: start, What: "record", Need: counter.n + int(size), Have: counter.n + n}
	}
	return dr.buf, nil
}

type countingByteReader struct {
	r io.ByteReader
	n int
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// DelimitedWriter writes varint-length-prefixed messages.
type DelimitedWriter struct {
	w   io.Writer
	hdr []byte
}

// NewDelimitedWriter wraps w.
func NewDelimitedWriter(w io.Writer) *DelimitedWriter {
	return &DelimitedWriter{w: w, hdr: make([]byte, 0, MaxVarintLen)}
}

// Write emits len(msg) as a varint followed by msg.
func (dw *DelimitedWriter) Write(msg []byte) error {
	dw.hdr = AppendUnsignedVarint(dw.hdr[:0], uint64(len(msg)))
	if _, err := dw.w.Write(dw.hdr); err != nil {
		return fmt.Errorf("write record length: %w", err)
	}
	if _, err := dw.w.Write(msg); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
