package schema

import (
	"strings"
)

// Helpers for building descriptors in code. The registry produces the same
// shapes from .proto files.

// NewScalarField returns a singular field of a primitive type.
func NewScalarField(name string, number int32, t PrimitiveType) *Field {
	return &Field{Name: name, Number: number, Label: LabelOptional, Type: FieldType{Kind: KindPrimitive, PrimitiveType: t}}
}

// NewMessageField returns a singular embedded-message field.
func NewMessageField(name string, number int32, m *Message) *Field {
	return &Field{Name: name, Number: number, Label: LabelOptional, Type: FieldType{Kind: KindMessage, MessageType: m.FullName, Message: m}}
}

// NewEnumField returns a singular enum field.
func NewEnumField(name string, number int32, e *Enum) *Field {
	return &Field{Name: name, Number: number, Label: LabelOptional, Type: FieldType{Kind: KindEnum, EnumType: e.FullName, Enum: e}}
}

// NewMapField returns a map<key, value> field backed by a synthetic entry
// message named after the field, as protoc does.
func NewMapField(parent, name string, number int32, key PrimitiveType, value FieldType) *Field {
	entryName := mapEntryName(name)
	fullName := entryName
	if parent != "" {
		fullName = parent + "." + entryName
	}
	valueField := &Field{Name: "value", Number: 2, Label: LabelOptional, Type: value}
	entry := &Message{
		Name:     entryName,
		FullName: fullName,
		MapEntry: true,
		Fields: []*Field{
			NewScalarField("key", 1, key),
			valueField,
		},
	}
	return &Field{Name: name, Number: number, Label: LabelRepeated, Type: FieldType{Kind: KindMessage, MessageType: fullName, Message: entry}}
}

func mapEntryName(field string) string {
	var b strings.Builder
	upperNext := true
	for i := 0; i < len(field); i++ {
		c := field[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		b.WriteByte(c)
	}
	b.WriteString("Entry")
	return b.String()
}

// Repeated marks the field repeated; packable types are packed.
func (f *Field) Repeated() *Field {
	f.Label = LabelRepeated
	f.Packed = f.Type.Packable()
	return f
}

// Unpacked clears the packed flag of a repeated field.
func (f *Field) Unpacked() *Field {
	f.Packed = false
	return f
}

// Optional gives the field explicit presence (proto3 optional).
func (f *Field) Optional() *Field {
	f.Presence = true
	return f
}

// InOneof places the field in the named oneof group.
func (f *Field) InOneof(name string) *Field {
	f.Oneof = name
	f.Presence = true
	return f
}

// WithJSONName overrides the derived JSON name.
func (f *Field) WithJSONName(name string) *Field {
	f.JSONName = name
	return f
}

// NewMessage builds a message descriptor from fields in declaration order.
func NewMessage(fullName string, fields ...*Field) (*Message, error) {
	m := &Message{FullName: fullName, Fields: fields}
	for _, f := range fields {
		if f.IsMap() {
			m.NestedTypes = append(m.NestedTypes, f.Type.Message)
			if err := f.Type.Message.Build(); err != nil {
				return nil, err
			}
		}
	}
	if err := m.Build(); err != nil {
		return nil, err
	}
	return m, nil
}

// MustMessage is NewMessage that panics on error, for static schemas.
func MustMessage(fullName string, fields ...*Field) *Message {
	m, err := NewMessage(fullName, fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// NewEnum builds an enum descriptor from name/number pairs in declaration
// order.
func NewEnum(fullName string, values ...*EnumValue) (*Enum, error) {
	e := &Enum{FullName: fullName, Values: values}
	if err := e.Build(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustEnum is NewEnum that panics on error.
func MustEnum(fullName string, values ...*EnumValue) *Enum {
	e, err := NewEnum(fullName, values...)
	if err != nil {
		panic(err)
	}
	return e
}

// Value is shorthand for an EnumValue literal.
func Value(name string, number int32) *EnumValue {
	return &EnumValue{Name: name, Number: number}
}
