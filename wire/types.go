package wire

import "google.golang.org/protobuf/encoding/protowire"

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated, only ever skipped
	WireEndGroup   WireType = 4 // deprecated, only ever skipped
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

// String returns the protobuf name of the wire type.
func (wt WireType) String() string {
	switch wt {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return "invalid"
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Field number limits.
const (
	MinFieldNumber           = FieldNumber(protowire.MinValidNumber)
	MaxFieldNumber           = FieldNumber(protowire.MaxValidNumber)
	FirstReservedFieldNumber = FieldNumber(protowire.FirstReservedNumber)
	LastReservedFieldNumber  = FieldNumber(protowire.LastReservedNumber)
)

// IsValid reports whether n may be declared in a message: 1..2^29-1 outside
// the 19000-19999 range reserved for the protobuf implementation.
func (n FieldNumber) IsValid() bool {
	return n >= MinFieldNumber && n <= MaxFieldNumber &&
		(n < FirstReservedFieldNumber || n > LastReservedFieldNumber)
}

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType&7))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}
