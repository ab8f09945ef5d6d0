package codec

import (
	"fmt"
	"strconv"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// New returns the all-defaults value of md: zero scalars, empty strings and
// bytes, enum number 0, empty lists and maps, and nil for fields with
// presence. Embedded messages are nil, so recursive types terminate.
func New(md *schema.Message) Message {
	return newMessage(md)
}

func newMessage(md *schema.Message) Message {
	msg := make(Message, len(md.Fields))
	for _, f := range md.Fields {
		msg[f.Name] = zeroValue(f)
	}
	return msg
}

func zeroValue(f *schema.Field) interface{} {
	switch {
	case f.IsMap():
		return map[interface{}]interface{}{}
	case f.IsRepeated():
		return []interface{}{}
	case f.Presence || f.Type.Kind == schema.KindMessage:
		return nil
	case f.Type.Kind == schema.KindEnum:
		return knownEnum(f.Type.Enum, f.Type.Enum.Default())
	}
	switch f.Type.PrimitiveType {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeBool:
		return false
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	}
	return nil
}

// FieldDefault returns the value a singular scalar or enum field reads as
// when it is unset: the proto2 [default = ...] literal if declared, otherwise
// the zero value of its type.
func FieldDefault(f *schema.Field) (interface{}, error) {
	if f.IsRepeated() || f.Type.Kind == schema.KindMessage {
		return nil, fmt.Errorf("field %s: only singular scalar fields have defaults", f.Name)
	}
	if f.Default == "" {
		v := zeroValue(&schema.Field{Name: f.Name, Type: f.Type})
		return v, nil
	}
	lit := f.Default
	if f.Type.Kind == schema.KindEnum {
		return enumValue(f.Type.Enum, lit)
	}
	switch f.Type.PrimitiveType {
	case schema.TypeString:
		return unquote(lit), nil
	case schema.TypeBytes:
		return []byte(unquote(lit)), nil
	case schema.TypeFloat, schema.TypeDouble:
		switch lit {
		case "inf":
			lit = "Infinity"
		case "-inf":
			lit = "-Infinity"
		case "nan":
			lit = "NaN"
		}
	}
	v, err := scalarValue(f.Type.PrimitiveType, lit)
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid default %q: %w", f.Name, f.Default, err)
	}
	return v, nil
}

// unquote strips the quotes of a .proto string literal.
func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// FromPartial builds a complete value of md from a possibly incomplete map.
// Missing fields take their defaults; provided values are converted to their
// canonical types; embedded messages are completed recursively. Keys may be
// proto names or JSON names, and keys matching no field are dropped. Setting
// two members of one oneof is an EncodingError.
func (c *Codec) FromPartial(md *schema.Message, partial map[string]interface{}) (Message, error) {
	return c.fromPartial(md, partial, 0)
}

func (c *Codec) fromPartial(md *schema.Message, partial map[string]interface{}, depth int) (Message, error) {
	if depth > c.opts.MaxDepth {
		return nil, ErrMaxDepth
	}
	if err := checkOneofs(md, partial); err != nil {
		return nil, err
	}
	msg := newMessage(md)
	for _, f := range md.Fields {
		v, ok := fieldValue(partial, f)
		if !ok || v == nil {
			continue
		}
		cv, err := c.partialValue(f, v, depth)
		if err != nil {
			return nil, wire.WrapField(err, f.Name)
		}
		msg[f.Name] = cv
	}
	return msg, nil
}

func (c *Codec) partialValue(f *schema.Field, v interface{}, depth int) (interface{}, error) {
	switch {
	case f.IsMap():
		entry := f.Type.Message
		entries, err := mapEntries(entry.MapKey().Type.PrimitiveType, v)
		if err != nil {
			return nil, err
		}
		out := make(map[interface{}]interface{}, len(entries))
		for _, kv := range entries {
			val, err := c.partialElement(entry.MapValue().Type, kv.value, depth)
			if err != nil {
				return nil, wire.WrapField(err, mapKeyString(kv.key))
			}
			out[kv.key] = val
		}
		return out, nil
	case f.IsRepeated():
		list, err := listValue(v)
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, len(list))
		for i, elem := range list {
			cv, err := c.partialElement(f.Type, elem, depth)
			if err != nil {
				return nil, wire.WrapField(err, strconv.Itoa(i))
			}
			out[i] = cv
		}
		return out, nil
	default:
		return c.partialElement(f.Type, v, depth)
	}
}

func (c *Codec) partialElement(ft schema.FieldType, v interface{}, depth int) (interface{}, error) {
	if ft.Kind != schema.KindMessage {
		if v == nil {
			return nil, wire.NewEncodingError(ft.Encoding().String(), v, "nil element")
		}
		return canonicalScalar(ft, v)
	}
	if v == nil {
		return newMessage(ft.Message), nil
	}
	m, err := messageValue(v)
	if err != nil {
		return nil, err
	}
	return c.fromPartial(ft.Message, m, depth+1)
}
