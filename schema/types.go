package schema

import (
	"github.com/anirudhraja/protocodec/wire"
)

// File represents a single .proto file
type File struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // top-level message definitions
	Enums    []*Enum    `json:"enums"`    // top-level enum definitions
	Services []*Service `json:"services"` // service definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "google/protobuf/timestamp.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message describes one protobuf message type. It is safe for concurrent use
// once Build has returned.
type Message struct {
	Name        string     `json:"name"`         // "IndexerOrder"
	FullName    string     `json:"full_name"`    // "dydxprotocol.indexer.protocol.v1.IndexerOrder"
	Fields      []*Field   `json:"fields"`       // fields in declaration order, oneof members included
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	Oneofs      []*Oneof   `json:"oneofs"`       // derived from Field.Oneof by Build
	MapEntry    bool       `json:"map_entry"`    // synthetic key/value entry of a map field

	byNumber map[int32]*Field
	byName   map[string]*Field
	built    bool
}

// Field describes a message field
type Field struct {
	Name     string     `json:"name"`      // "good_til_block"
	JSONName string     `json:"json_name"` // "goodTilBlock"; derived by Build when empty
	Number   int32      `json:"number"`    // 1
	Label    FieldLabel `json:"label"`     // optional, required, repeated
	Type     FieldType  `json:"type"`      // field type information
	// Presence marks fields that distinguish "unset" from the default value:
	// proto3 optional, proto2 singular scalars and oneof members. Singular
	// message fields always have presence; Build sets it for them.
	Presence bool   `json:"presence"`
	Packed   bool   `json:"packed"`        // repeated scalars written as one length-delimited record
	Oneof    string `json:"oneof"`         // name of the enclosing oneof, if any
	Default  string `json:"default_value"` // proto2 default, in .proto literal syntax
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "good_til_oneof"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "IndexerOrderId", "google.protobuf.Timestamp"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types

	// Resolved descriptors. Set by the registry, or directly when a schema is
	// built by hand.
	Message *Message `json:"-"`
	Enum    *Enum    `json:"-"`
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitiveEncodings = map[PrimitiveType]Encoding{
	TypeDouble:   EncodingFixed64,
	TypeFloat:    EncodingFixed32,
	TypeInt64:    EncodingVarint,
	TypeUint64:   EncodingVarint,
	TypeInt32:    EncodingVarint,
	TypeFixed64:  EncodingFixed64,
	TypeFixed32:  EncodingFixed32,
	TypeBool:     EncodingVarint,
	TypeString:   EncodingString,
	TypeBytes:    EncodingBytes,
	TypeUint32:   EncodingVarint,
	TypeSfixed32: EncodingFixed32,
	TypeSfixed64: EncodingFixed64,
	TypeSint32:   EncodingZigZag,
	TypeSint64:   EncodingZigZag,
}

// IsPrimitiveType reports whether name is a protobuf scalar type keyword.
func IsPrimitiveType(name string) bool {
	_, ok := primitiveEncodings[PrimitiveType(name)]
	return ok
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	enc, ok := primitiveEncodings[t]
	return ok && enc != EncodingString && enc != EncodingBytes
}

// Encoding is the semantic type of a field: how its value maps onto the wire.
type Encoding int

const (
	EncodingVarint  Encoding = iota // int32, int64, uint32, uint64, bool (two's complement)
	EncodingZigZag                  // sint32, sint64
	EncodingFixed32                 // fixed32, sfixed32, float
	EncodingFixed64                 // fixed64, sfixed64, double
	EncodingBytes
	EncodingString
	EncodingMessage
	EncodingEnum
)

var encodingNames = [...]string{"varint", "zigzag", "fixed32", "fixed64", "bytes", "string", "message", "enum"}

func (e Encoding) String() string {
	if e < 0 || int(e) >= len(encodingNames) {
		return "unknown"
	}
	return encodingNames[e]
}

// WireType returns the wire type values of this encoding are written with.
func (e Encoding) WireType() wire.WireType {
	switch e {
	case EncodingFixed32:
		return wire.WireFixed32
	case EncodingFixed64:
		return wire.WireFixed64
	case EncodingBytes, EncodingString, EncodingMessage:
		return wire.WireBytes
	default:
		return wire.WireVarint
	}
}

// Encoding returns the semantic type of the field's values.
func (t FieldType) Encoding() Encoding {
	switch t.Kind {
	case KindMessage:
		return EncodingMessage
	case KindEnum:
		return EncodingEnum
	default:
		return primitiveEncodings[t.PrimitiveType]
	}
}

// Packable reports whether repeated values of this type may use the packed
// encoding.
func (t FieldType) Packable() bool {
	switch t.Kind {
	case KindEnum:
		return true
	case KindPrimitive:
		return IsPackedType(t.PrimitiveType)
	default:
		return false
	}
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Side"
	FullName   string       `json:"full_name"`   // "dydxprotocol.indexer.protocol.v1.IndexerOrder.Side"
	Values     []*EnumValue `json:"values"`      // enum values in declaration order
	AllowAlias bool         `json:"allow_alias"` // allow_alias option

	byNumber map[int32]*EnumValue
	byName   map[string]*EnumValue
	built    bool
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "SIDE_BUY"
	Number int32  `json:"number"` // 1
}

// Service represents a service definition
type Service struct {
	Name     string    `json:"name"`      // "Query"
	FullName string    `json:"full_name"` // "dydxprotocol.clob.Query"
	Methods  []*Method `json:"methods"`   // service methods
}

// Method represents a service method
type Method struct {
	Name            string `json:"name"`             // "Orders"
	InputType       string `json:"input_type"`       // "QueryOrdersRequest"
	OutputType      string `json:"output_type"`      // "QueryOrdersResponse"
	ClientStreaming bool   `json:"client_streaming"` // stream input
	ServerStreaming bool   `json:"server_streaming"` // stream output
}
