package codec

import (
	"encoding/json"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// DecodeJSON parses the JSON projection of a message of type md into a
// complete Message. Keys may be JSON names or proto names. 64-bit integers
// may be numbers or strings, enums names or numbers; enum input that matches
// no declared value becomes schema.Unrecognized. null leaves a field at its
// default.
func (c *Codec) DecodeJSON(md *schema.Message, data []byte, opts JSONOptions) (Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, &wire.MalformedInputError{Reason: "invalid JSON"}
	}
	return c.readMessageJSON(md, gjson.ParseBytes(data), opts, 0)
}

func (c *Codec) readMessageJSON(md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	if depth > c.opts.MaxDepth {
		return nil, ErrMaxDepth
	}
	if read := wellKnownReader(md.FullName); read != nil {
		return read(c, md, r, opts, depth)
	}
	return c.readFieldsJSON(md, r, opts, depth, nil)
}

// readFieldsJSON fills a message from the members of a JSON object. Keys for
// which skip returns true are ignored.
func (c *Codec) readFieldsJSON(md *schema.Message, r gjson.Result, opts JSONOptions, depth int, skip func(string) bool) (Message, error) {
	if !r.IsObject() {
		return nil, wire.NewEncodingError("message "+md.FullName, r.Raw, "expected a JSON object")
	}
	msg := newMessage(md)
	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if skip != nil && skip(name) {
			return true
		}
		f := md.FieldByName(name)
		if f == nil {
			if opts.RejectUnknown {
				err = wire.WrapField(wire.NewEncodingError("", nil, "unknown field %q in %s", name, md.FullName), name)
				return false
			}
			c.opts.Logger.Debug().Str("message", md.FullName).Str("key", name).Msg("ignoring unknown JSON key")
			return true
		}
		if value.Type == gjson.Null && !acceptsNull(f) {
			return true
		}
		v, ferr := c.readFieldJSON(f, value, opts, depth)
		if ferr != nil {
			err = wire.WrapField(ferr, f.Name)
			return false
		}
		if f.Oneof != "" {
			clearOneof(md, f, msg)
		}
		msg[f.Name] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// acceptsNull reports whether JSON null is a value of f rather than "unset":
// google.protobuf.Value and NullValue fields.
func acceptsNull(f *schema.Field) bool {
	if f.IsRepeated() {
		return false
	}
	switch f.Type.Kind {
	case schema.KindMessage:
		return f.Type.Message.FullName == valueMessage
	case schema.KindEnum:
		return f.Type.Enum.FullName == nullValueEnum
	}
	return false
}

func (c *Codec) readFieldJSON(f *schema.Field, r gjson.Result, opts JSONOptions, depth int) (interface{}, error) {
	switch {
	case f.IsMap():
		if !r.IsObject() {
			return nil, wire.NewEncodingError("map", r.Raw, "expected a JSON object")
		}
		entry := f.Type.Message
		keyType, valueType := entry.MapKey().Type.PrimitiveType, entry.MapValue().Type
		out := make(map[interface{}]interface{})
		var err error
		r.ForEach(func(key, value gjson.Result) bool {
			k, kerr := scalarValue(keyType, key.String())
			if kerr != nil {
				err = kerr
				return false
			}
			v, verr := c.readValueJSON(valueType, value, opts, depth)
			if verr != nil {
				err = wire.WrapField(verr, key.String())
				return false
			}
			out[k] = v
			return true
		})
		return out, err
	case f.IsRepeated():
		if !r.IsArray() {
			return nil, wire.NewEncodingError("repeated", r.Raw, "expected a JSON array")
		}
		elems := r.Array()
		out := make([]interface{}, 0, len(elems))
		for i, elem := range elems {
			v, err := c.readValueJSON(f.Type, elem, opts, depth)
			if err != nil {
				return nil, wire.WrapField(err, strconv.Itoa(i))
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return c.readValueJSON(f.Type, r, opts, depth)
	}
}

// readValueJSON reads a single value of type ft.
func (c *Codec) readValueJSON(ft schema.FieldType, r gjson.Result, opts JSONOptions, depth int) (interface{}, error) {
	switch ft.Kind {
	case schema.KindMessage:
		return c.readMessageJSON(ft.Message, r, opts, depth+1)
	case schema.KindEnum:
		var n int32
		switch r.Type {
		case gjson.Null:
			n = 0
		case gjson.String:
			n = ft.Enum.FromJSON(r.Str)
		case gjson.Number:
			n = ft.Enum.FromJSON(json.Number(r.Raw))
		default:
			n = schema.Unrecognized
		}
		return knownEnum(ft.Enum, n), nil
	}
	return jsonScalar(ft.PrimitiveType, r)
}

func jsonScalar(pt schema.PrimitiveType, r gjson.Result) (interface{}, error) {
	var in interface{}
	switch r.Type {
	case gjson.String:
		in = r.Str
	case gjson.Number:
		if pt == schema.TypeString || pt == schema.TypeBytes {
			return nil, wire.NewEncodingError(string(pt), r.Raw, "expected a JSON string")
		}
		in = json.Number(r.Raw)
	case gjson.True, gjson.False:
		if pt != schema.TypeBool {
			return nil, wire.NewEncodingError(string(pt), r.Raw, "unexpected JSON boolean")
		}
		in = r.Bool()
	default:
		return nil, wire.NewEncodingError(string(pt), r.Raw, "expected a JSON scalar")
	}
	return scalarValue(pt, in)
}
