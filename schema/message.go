package schema

import (
	"fmt"
	"strings"

	"github.com/anirudhraja/protocodec/wire"
)

// Build validates the descriptor and freezes its lookup indexes. Field
// numbers must be unique, valid and outside the reserved range, and field
// names unique. Build is idempotent; nested types are not built.
func (m *Message) Build() error {
	if m.built {
		return nil
	}
	if m.FullName == "" {
		m.FullName = m.Name
	}
	if m.Name == "" {
		m.Name = m.FullName[strings.LastIndexByte(m.FullName, '.')+1:]
	}
	byNumber := make(map[int32]*Field, len(m.Fields))
	byName := make(map[string]*Field, 2*len(m.Fields))
	var oneofs []*Oneof
	oneofIndex := make(map[string]*Oneof)

	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("message %s: field %d has no name", m.FullName, f.Number)
		}
		if !wire.FieldNumber(f.Number).IsValid() {
			return fmt.Errorf("message %s: field %s has invalid number %d", m.FullName, f.Name, f.Number)
		}
		if prev, ok := byNumber[f.Number]; ok {
			return fmt.Errorf("message %s: fields %s and %s share number %d", m.FullName, prev.Name, f.Name, f.Number)
		}
		if _, ok := byName[f.Name]; ok {
			return fmt.Errorf("message %s: duplicate field name %s", m.FullName, f.Name)
		}
		if f.Label == "" {
			f.Label = LabelOptional
		}
		if f.JSONName == "" {
			f.JSONName = JSONName(f.Name)
		}
		if err := checkFieldType(f); err != nil {
			return fmt.Errorf("message %s: %w", m.FullName, err)
		}
		if f.Label == LabelRepeated {
			if f.Oneof != "" {
				return fmt.Errorf("message %s: repeated field %s cannot be in oneof %s", m.FullName, f.Name, f.Oneof)
			}
			f.Presence = false
			f.Packed = f.Packed && f.Type.Packable()
		} else {
			f.Packed = false
			if f.Type.Kind == KindMessage || f.Oneof != "" {
				f.Presence = true
			}
		}
		if f.Oneof != "" {
			o, ok := oneofIndex[f.Oneof]
			if !ok {
				o = &Oneof{Name: f.Oneof}
				oneofIndex[f.Oneof] = o
				oneofs = append(oneofs, o)
			}
			o.Fields = append(o.Fields, f)
		}
		byNumber[f.Number] = f
		byName[f.Name] = f
	}
	// JSON names resolve second so a proto name always wins a collision.
	for _, f := range m.Fields {
		if _, ok := byName[f.JSONName]; !ok {
			byName[f.JSONName] = f
		}
	}
	if m.MapEntry {
		if err := checkMapEntry(m, byNumber); err != nil {
			return err
		}
	}
	m.byNumber, m.byName, m.Oneofs, m.built = byNumber, byName, oneofs, true
	return nil
}

func checkFieldType(f *Field) error {
	switch f.Type.Kind {
	case KindPrimitive:
		if _, ok := primitiveEncodings[f.Type.PrimitiveType]; !ok {
			return fmt.Errorf("field %s: unknown primitive type %q", f.Name, f.Type.PrimitiveType)
		}
	case KindMessage:
		if f.Type.Message == nil {
			return fmt.Errorf("field %s: unresolved message type %s", f.Name, f.Type.MessageType)
		}
		if f.Type.MessageType == "" {
			f.Type.MessageType = f.Type.Message.FullName
		}
	case KindEnum:
		if f.Type.Enum == nil {
			return fmt.Errorf("field %s: unresolved enum type %s", f.Name, f.Type.EnumType)
		}
		if f.Type.EnumType == "" {
			f.Type.EnumType = f.Type.Enum.FullName
		}
	default:
		return fmt.Errorf("field %s: unknown type kind %q", f.Name, f.Type.Kind)
	}
	return nil
}

func checkMapEntry(m *Message, byNumber map[int32]*Field) error {
	key, value := byNumber[1], byNumber[2]
	if len(m.Fields) != 2 || key == nil || value == nil {
		return fmt.Errorf("map entry %s: must have exactly fields key = 1 and value = 2", m.FullName)
	}
	if key.Type.Kind != KindPrimitive {
		return fmt.Errorf("map entry %s: key must be a scalar type", m.FullName)
	}
	switch key.Type.PrimitiveType {
	case TypeFloat, TypeDouble, TypeBytes:
		return fmt.Errorf("map entry %s: %s is not a valid key type", m.FullName, key.Type.PrimitiveType)
	}
	return nil
}

// FieldByNumber returns the field with the given number, or nil.
func (m *Message) FieldByNumber(n int32) *Field {
	if m.built {
		return m.byNumber[n]
	}
	for _, f := range m.Fields {
		if f.Number == n {
			return f
		}
	}
	return nil
}

// FieldByName looks a field up by its proto name or its JSON name.
func (m *Message) FieldByName(name string) *Field {
	if m.built {
		return m.byName[name]
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.Fields {
		if f.JSONName == name || (f.JSONName == "" && JSONName(f.Name) == name) {
			return f
		}
	}
	return nil
}

// OneofByName returns the named oneof group, or nil.
func (m *Message) OneofByName(name string) *Oneof {
	for _, o := range m.Oneofs {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// MapKey returns the key field of a map entry message.
func (m *Message) MapKey() *Field { return m.FieldByNumber(1) }

// MapValue returns the value field of a map entry message.
func (m *Message) MapValue() *Field { return m.FieldByNumber(2) }

// TypeURL returns the type URL used in google.protobuf.Any envelopes.
func (m *Message) TypeURL() string {
	return "/" + m.FullName
}

// IsMap reports whether f is a map<K,V> field.
func (f *Field) IsMap() bool {
	return f.Label == LabelRepeated && f.Type.Kind == KindMessage && f.Type.Message != nil && f.Type.Message.MapEntry
}

// IsRepeated reports whether f holds a list of values.
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated
}

// Encoding returns the semantic type of the field's values.
func (f *Field) Encoding() Encoding {
	return f.Type.Encoding()
}

// WireType returns the wire type of a single unpacked value.
func (f *Field) WireType() wire.WireType {
	return f.Type.Encoding().WireType()
}

// JSONName converts a proto field name to its lowerCamelCase JSON name the
// way protoc does: underscores are dropped and the following letter is
// upper-cased.
func JSONName(s string) string {
	if strings.IndexByte(s, '_') < 0 {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
