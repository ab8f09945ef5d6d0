package codec

import (
	"math"
	"strconv"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Encode serializes msg according to md. Fields are written in declaration
// order. Fields without presence are omitted when they hold their default
// value; fields with presence are written whenever they are non-nil. Keys
// may be proto names or JSON names; keys that match no field are ignored.
func (c *Codec) Encode(md *schema.Message, msg Message) ([]byte, error) {
	e := wire.NewEncoder()
	if err := c.encodeMessage(e, md, msg, 0); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (c *Codec) encodeMessage(e *wire.Encoder, md *schema.Message, msg map[string]interface{}, depth int) error {
	if depth > c.opts.MaxDepth {
		return ErrMaxDepth
	}
	if err := checkOneofs(md, msg); err != nil {
		return err
	}
	for _, f := range md.Fields {
		v, ok := fieldValue(msg, f)
		if !ok || v == nil {
			continue
		}
		if err := c.encodeField(e, f, v, depth); err != nil {
			return err
		}
	}
	return nil
}

// fieldValue looks f up by proto name, then by JSON name.
func fieldValue(msg map[string]interface{}, f *schema.Field) (interface{}, bool) {
	if v, ok := msg[f.Name]; ok {
		return v, true
	}
	if f.JSONName != "" && f.JSONName != f.Name {
		v, ok := msg[f.JSONName]
		return v, ok
	}
	return nil, false
}

// checkOneofs rejects messages with more than one member of a oneof set.
func checkOneofs(md *schema.Message, msg map[string]interface{}) error {
	for _, o := range md.Oneofs {
		var set *schema.Field
		for _, f := range o.Fields {
			if v, ok := fieldValue(msg, f); !ok || v == nil {
				continue
			}
			if set != nil {
				return wire.WrapField(wire.NewEncodingError("", nil, "oneof %s has both %s and %s set", o.Name, set.Name, f.Name), o.Name)
			}
			set = f
		}
	}
	return nil
}

func (c *Codec) encodeField(e *wire.Encoder, f *schema.Field, v interface{}, depth int) error {
	num := wire.FieldNumber(f.Number)
	switch {
	case f.IsMap():
		return wire.WrapField(c.encodeMap(e, f, v, depth), f.Name)
	case f.IsRepeated():
		list, err := listValue(v)
		if err != nil {
			return wire.WrapField(err, f.Name)
		}
		if len(list) == 0 {
			return nil
		}
		if f.Packed {
			err := e.WritePacked(num, func(pe *wire.Encoder) error {
				for i, elem := range list {
					if err := writeScalar(pe, f.Type, elem); err != nil {
						return wire.WrapField(err, strconv.Itoa(i))
					}
				}
				return nil
			})
			return wire.WrapField(err, f.Name)
		}
		for i, elem := range list {
			if err := c.encodeSingle(e, num, f.Type, elem, depth); err != nil {
				return wire.WrapField(wire.WrapField(err, strconv.Itoa(i)), f.Name)
			}
		}
		return nil
	case f.Type.Kind == schema.KindMessage:
		return wire.WrapField(c.encodeSingle(e, num, f.Type, v, depth), f.Name)
	default:
		cv, err := canonicalScalar(f.Type, v)
		if err != nil {
			return wire.WrapField(err, f.Name)
		}
		if !f.Presence && isDefault(cv) {
			return nil
		}
		e.WriteTag(num, f.WireType())
		return wire.WrapField(writeScalar(e, f.Type, cv), f.Name)
	}
}

// encodeSingle writes one tagged value: a list element or a singular
// embedded message.
func (c *Codec) encodeSingle(e *wire.Encoder, num wire.FieldNumber, ft schema.FieldType, v interface{}, depth int) error {
	if ft.Kind != schema.KindMessage {
		e.WriteTag(num, ft.Encoding().WireType())
		return writeScalar(e, ft, v)
	}
	if v == nil {
		return wire.NewEncodingError("message", v, "nil element")
	}
	nested, err := messageValue(v)
	if err != nil {
		return err
	}
	return e.WriteMessage(num, func(ne *wire.Encoder) error {
		return c.encodeMessage(ne, ft.Message, nested, depth+1)
	})
}

func (c *Codec) encodeMap(e *wire.Encoder, f *schema.Field, v interface{}, depth int) error {
	entry := f.Type.Message
	keyField, valueField := entry.MapKey(), entry.MapValue()
	entries, err := mapEntries(keyField.Type.PrimitiveType, v)
	if err != nil {
		return err
	}
	for _, kv := range entries {
		err := e.WriteMessage(wire.FieldNumber(f.Number), func(ne *wire.Encoder) error {
			return c.encodeMessage(ne, entry, map[string]interface{}{keyField.Name: kv.key, valueField.Name: kv.value}, depth+1)
		})
		if err != nil {
			return wire.WrapField(err, mapKeyString(kv.key))
		}
	}
	return nil
}

// canonicalScalar converts a scalar or enum input to its canonical type.
func canonicalScalar(ft schema.FieldType, v interface{}) (interface{}, error) {
	if ft.Kind == schema.KindEnum {
		return enumValue(ft.Enum, v)
	}
	return scalarValue(ft.PrimitiveType, v)
}

// writeScalar writes the value of a scalar or enum without its tag.
func writeScalar(e *wire.Encoder, ft schema.FieldType, v interface{}) error {
	cv, err := canonicalScalar(ft, v)
	if err != nil {
		return err
	}
	if ft.Kind == schema.KindEnum {
		e.WriteSignedVarint(int64(cv.(EnumValue).Number))
		return nil
	}
	switch ft.PrimitiveType {
	case schema.TypeInt32:
		e.WriteSignedVarint(int64(cv.(int32)))
	case schema.TypeInt64:
		e.WriteSignedVarint(cv.(int64))
	case schema.TypeUint32:
		e.WriteVarint(uint64(cv.(uint32)))
	case schema.TypeUint64:
		e.WriteVarint(cv.(uint64))
	case schema.TypeSint32:
		e.WriteZigZag(int64(cv.(int32)))
	case schema.TypeSint64:
		e.WriteZigZag(cv.(int64))
	case schema.TypeBool:
		e.WriteBool(cv.(bool))
	case schema.TypeFixed32:
		e.WriteFixed32(cv.(uint32))
	case schema.TypeSfixed32:
		e.WriteFixed32(uint32(cv.(int32)))
	case schema.TypeFloat:
		e.WriteFloat(cv.(float32))
	case schema.TypeFixed64:
		e.WriteFixed64(cv.(uint64))
	case schema.TypeSfixed64:
		e.WriteFixed64(uint64(cv.(int64)))
	case schema.TypeDouble:
		e.WriteDouble(cv.(float64))
	case schema.TypeString:
		e.WriteString(cv.(string))
	case schema.TypeBytes:
		e.WriteBytes(cv.([]byte))
	default:
		return wire.NewEncodingError(string(ft.PrimitiveType), v, "unsupported primitive type")
	}
	return nil
}

// isDefault reports whether a canonical scalar equals its type's zero value.
// Floats compare by bit pattern, so -0.0 is not a default.
func isDefault(v interface{}) bool {
	switch t := v.(type) {
	case int32:
		return t == 0
	case int64:
		return t == 0
	case uint32:
		return t == 0
	case uint64:
		return t == 0
	case bool:
		return !t
	case float32:
		return math.Float32bits(t) == 0
	case float64:
		return math.Float64bits(t) == 0
	case string:
		return t == ""
	case []byte:
		return len(t) == 0
	case EnumValue:
		return t.Number == 0
	default:
		return false
	}
}
