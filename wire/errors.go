package wire

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrTruncatedInput = errors.New("truncated input")
	ErrMalformedInput = errors.New("malformed input")
	ErrEncoding       = errors.New("encoding error")
)

// TruncatedInputError reports that the buffer ended before a varint chain,
// fixed-width value or length-delimited payload was complete. A varint chain
// running past 10 bytes is reported the same way.
type TruncatedInputError struct {
	Offset int    // cursor position where the read started
	What   string // "varint", "fixed32", "fixed64", "length-delimited", ...
	Need   int    // bytes required from Offset, 0 when unknown
	Have   int    // bytes available from Offset
}

func (e *TruncatedInputError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("truncated input at offset %d: %s needs %d bytes, have %d", e.Offset, e.What, e.Need, e.Have)
	}
	return fmt.Sprintf("truncated input at offset %d: incomplete %s", e.Offset, e.What)
}

// Is makes errors.Is(err, ErrTruncatedInput) hold.
func (e *TruncatedInputError) Is(target error) bool {
	return target == ErrTruncatedInput
}

// MalformedInputError reports bytes that cannot be a protobuf message no matter
// how many more bytes follow: field number 0, wire types 6 and 7, a stray end
// group marker.
type MalformedInputError struct {
	Offset int
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input at offset %d: %s", e.Offset, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedInput) hold.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// EncodingError reports a value that does not fit the declared type of its
// field, e.g. a negative number for an unsigned field.
type EncodingError struct {
	Type   string      // declared type, "uint64", "enum", ...
	Value  interface{} // offending value
	Reason string
}

// NewEncodingError builds an EncodingError with a formatted reason.
func NewEncodingError(typ string, value interface{}, format string, args ...interface{}) *EncodingError {
	return &EncodingError{Type: typ, Value: value, Reason: fmt.Sprintf(format, args...)}
}

func (e *EncodingError) Error() string {
	if e.Type == "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot encode %T as %s: %s", e.Value, e.Type, e.Reason)
}

// Is makes errors.Is(err, ErrEncoding) hold.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "order_id", "subaccount_id", "owner"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at proto path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Path returns the dotted field path.
func (e *FieldError) Path() string {
	return strings.Join(e.FieldPath, ".")
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// WrapField prefixes the path of err with fieldName. Nested calls build the
// path outermost first without repeating the message text.
func WrapField(err error, fieldName string) error {
	if err == nil {
		return nil
	}

	var fe *FieldError
	if errors.As(err, &fe) {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}
