package codec

import (
	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Decode parses data as a message of type md. The result starts from the
// all-defaults value of md. Fields unknown to md are skipped, as are known
// fields arriving with an incompatible wire type. Repeated scalars are
// accepted in packed and unpacked form alike. A later member of a oneof
// clears the earlier one. Enum numbers with no declared name decode to an
// unrecognized EnumValue.
func (c *Codec) Decode(md *schema.Message, data []byte) (Message, error) {
	return c.decodeMessage(wire.NewDecoder(data), md, 0)
}

func (c *Codec) decodeMessage(d *wire.Decoder, md *schema.Message, depth int) (Message, error) {
	if depth > c.opts.MaxDepth {
		return nil, ErrMaxDepth
	}
	msg := newMessage(md)
	for d.More() {
		num, wt, err := d.ReadTag()
		if err != nil {
			return nil, err
		}
		f := md.FieldByNumber(int32(num))
		if f == nil {
			c.opts.Logger.Debug().
				Str("message", md.FullName).
				Int32("field", int32(num)).
				Str("wire_type", wt.String()).
				Msg("skipping unknown field")
			if err := d.SkipField(num, wt); err != nil {
				return nil, err
			}
			continue
		}
		if err := c.decodeField(d, md, f, wt, msg, depth); err != nil {
			return nil, wire.WrapField(err, f.Name)
		}
	}
	return msg, nil
}

func (c *Codec) decodeField(d *wire.Decoder, md *schema.Message, f *schema.Field, wt wire.WireType, msg Message, depth int) error {
	switch {
	case f.IsMap():
		if wt != wire.WireBytes {
			return c.skipMismatch(d, md, f, wt)
		}
		return c.decodeMapEntry(d, f, msg, depth)

	case f.IsRepeated():
		list, _ := msg[f.Name].([]interface{})
		if wt == wire.WireBytes && f.Type.Packable() {
			sub, err := d.ReadMessage()
			if err != nil {
				return err
			}
			for sub.More() {
				v, err := c.readScalar(sub, f.Type)
				if err != nil {
					return err
				}
				list = append(list, v)
			}
			msg[f.Name] = list
			return nil
		}
		if wt != f.WireType() {
			return c.skipMismatch(d, md, f, wt)
		}
		v, err := c.readValue(d, f.Type, depth)
		if err != nil {
			return err
		}
		msg[f.Name] = append(list, v)
		return nil

	default:
		if wt != f.WireType() {
			return c.skipMismatch(d, md, f, wt)
		}
		v, err := c.readValue(d, f.Type, depth)
		if err != nil {
			return err
		}
		if f.Oneof != "" {
			clearOneof(md, f, msg)
		}
		msg[f.Name] = v
		return nil
	}
}

// skipMismatch drops a known field whose wire type does not match its
// declaration, the same way an unknown field is dropped.
func (c *Codec) skipMismatch(d *wire.Decoder, md *schema.Message, f *schema.Field, wt wire.WireType) error {
	c.opts.Logger.Debug().
		Str("message", md.FullName).
		Str("field", f.Name).
		Str("wire_type", wt.String()).
		Str("want", f.WireType().String()).
		Msg("skipping field with mismatched wire type")
	return d.SkipField(wire.FieldNumber(f.Number), wt)
}

func clearOneof(md *schema.Message, f *schema.Field, msg Message) {
	o := md.OneofByName(f.Oneof)
	if o == nil {
		return
	}
	for _, sibling := range o.Fields {
		if sibling != f {
			msg[sibling.Name] = nil
		}
	}
}

func (c *Codec) decodeMapEntry(d *wire.Decoder, f *schema.Field, msg Message, depth int) error {
	sub, err := d.ReadMessage()
	if err != nil {
		return err
	}
	entry, err := c.decodeMessage(sub, f.Type.Message, depth+1)
	if err != nil {
		return err
	}
	keyField, valueField := f.Type.Message.MapKey(), f.Type.Message.MapValue()
	value := entry[valueField.Name]
	if value == nil && valueField.Type.Kind == schema.KindMessage {
		value = newMessage(valueField.Type.Message)
	}
	m, ok := msg[f.Name].(map[interface{}]interface{})
	if !ok {
		m = make(map[interface{}]interface{})
		msg[f.Name] = m
	}
	m[entry[keyField.Name]] = value
	return nil
}

// readValue reads one untagged value of type ft.
func (c *Codec) readValue(d *wire.Decoder, ft schema.FieldType, depth int) (interface{}, error) {
	if ft.Kind != schema.KindMessage {
		return c.readScalar(d, ft)
	}
	sub, err := d.ReadMessage()
	if err != nil {
		return nil, err
	}
	return c.decodeMessage(sub, ft.Message, depth+1)
}

// readScalar reads one untagged scalar or enum value in its canonical type.
func (c *Codec) readScalar(d *wire.Decoder, ft schema.FieldType) (interface{}, error) {
	if ft.Kind == schema.KindEnum {
		v, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		ev := knownEnum(ft.Enum, int32(v))
		if !ev.Known() {
			c.opts.Logger.Debug().Str("enum", ft.Enum.FullName).Int32("number", ev.Number).Msg("unrecognized enum number")
		}
		return ev, nil
	}
	switch ft.PrimitiveType {
	case schema.TypeInt32:
		v, err := d.ReadVarint()
		return int32(v), err
	case schema.TypeInt64:
		v, err := d.ReadVarint()
		return int64(v), err
	case schema.TypeUint32:
		v, err := d.ReadVarint()
		return uint32(v), err
	case schema.TypeUint64:
		v, err := d.ReadVarint()
		return v, err
	case schema.TypeSint32:
		v, err := d.ReadVarint()
		return int32(wire.DecodeZigZag(v & 0xffffffff)), err
	case schema.TypeSint64:
		v, err := d.ReadZigZag()
		return v, err
	case schema.TypeBool:
		v, err := d.ReadBool()
		return v, err
	case schema.TypeFixed32:
		v, err := d.ReadFixed32()
		return v, err
	case schema.TypeSfixed32:
		v, err := d.ReadFixed32()
		return int32(v), err
	case schema.TypeFloat:
		v, err := d.ReadFloat()
		return v, err
	case schema.TypeFixed64:
		v, err := d.ReadFixed64()
		return v, err
	case schema.TypeSfixed64:
		v, err := d.ReadFixed64()
		return int64(v), err
	case schema.TypeDouble:
		v, err := d.ReadDouble()
		return v, err
	case schema.TypeString:
		v, err := d.ReadString()
		return v, err
	case schema.TypeBytes:
		v, err := d.ReadBytes()
		return v, err
	default:
		return nil, wire.NewEncodingError(string(ft.PrimitiveType), nil, "unsupported primitive type")
	}
}
