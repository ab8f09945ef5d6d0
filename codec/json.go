package codec

import (
	"math"
	"strconv"

	"github.com/mailru/easyjson/jwriter"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// JSONOptions controls the JSON projection.
type JSONOptions struct {
	// UseProtoNames writes proto field names (snake_case) instead of
	// lowerCamelCase JSON names. Both are accepted on input.
	UseProtoNames bool
	// EmitDefaults writes fields that hold their default value. Unset
	// singular message fields are written as null.
	EmitDefaults bool
	// RejectUnknown fails DecodeJSON on keys that match no field.
	RejectUnknown bool
	// Resolver looks up the payload type of google.protobuf.Any values.
	// Without one, Any is rendered as a plain {typeUrl, value} message.
	Resolver MessageResolver
}

// MessageResolver finds message descriptors by Any type URL.
type MessageResolver interface {
	MessageByTypeURL(typeURL string) (*schema.Message, error)
}

// EncodeJSON renders msg as JSON. Enums are written by name, with
// "UNRECOGNIZED" for numbers that have none. 64-bit integers are quoted
// decimal strings and bytes are standard base64.
func (c *Codec) EncodeJSON(md *schema.Message, msg Message, opts JSONOptions) ([]byte, error) {
	w := &jwriter.Writer{}
	if err := c.writeMessageJSON(w, md, msg, opts, 0); err != nil {
		return nil, err
	}
	return w.BuildBytes()
}

func (c *Codec) writeMessageJSON(w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	if depth > c.opts.MaxDepth {
		return ErrMaxDepth
	}
	if write := wellKnownWriter(md.FullName); write != nil {
		return write(c, w, md, msg, opts, depth)
	}
	w.RawByte('{')
	if _, err := c.writeFieldsJSON(w, md, msg, opts, depth, true); err != nil {
		return err
	}
	w.RawByte('}')
	return nil
}

// writeFieldsJSON writes the members of a JSON object without the braces and
// reports whether the object is still empty.
func (c *Codec) writeFieldsJSON(w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int, first bool) (bool, error) {
	for _, f := range md.Fields {
		v, ok := fieldValue(msg, f)
		if !ok && opts.EmitDefaults {
			v = zeroValue(f)
		}
		if !c.emitJSON(f, v, opts) {
			continue
		}
		if !first {
			w.RawByte(',')
		}
		first = false
		if opts.UseProtoNames {
			w.String(f.Name)
		} else {
			w.String(f.JSONName)
		}
		w.RawByte(':')
		if v == nil {
			w.RawString("null")
			continue
		}
		if err := c.writeFieldJSON(w, f, v, opts, depth); err != nil {
			return first, wire.WrapField(err, f.Name)
		}
	}
	return first, nil
}

// emitJSON decides whether field f holding v is written. Values that fail
// conversion are written so the error surfaces.
func (c *Codec) emitJSON(f *schema.Field, v interface{}, opts JSONOptions) bool {
	if v == nil {
		return opts.EmitDefaults && !f.IsRepeated() && f.Type.Kind == schema.KindMessage && f.Oneof == ""
	}
	if opts.EmitDefaults || f.Presence {
		return true
	}
	switch {
	case f.IsMap():
		entries, err := mapEntries(f.Type.Message.MapKey().Type.PrimitiveType, v)
		return err != nil || len(entries) > 0
	case f.IsRepeated():
		list, err := listValue(v)
		return err != nil || len(list) > 0
	case f.Type.Kind == schema.KindMessage:
		return true
	}
	cv, err := canonicalScalar(f.Type, v)
	return err != nil || !isDefault(cv)
}

func (c *Codec) writeFieldJSON(w *jwriter.Writer, f *schema.Field, v interface{}, opts JSONOptions, depth int) error {
	switch {
	case f.IsMap():
		entry := f.Type.Message
		entries, err := mapEntries(entry.MapKey().Type.PrimitiveType, v)
		if err != nil {
			return err
		}
		w.RawByte('{')
		for i, kv := range entries {
			if i > 0 {
				w.RawByte(',')
			}
			key := mapKeyString(kv.key)
			w.String(key)
			w.RawByte(':')
			if err := c.writeValueJSON(w, entry.MapValue().Type, kv.value, opts, depth); err != nil {
				return wire.WrapField(err, key)
			}
		}
		w.RawByte('}')
		return nil
	case f.IsRepeated():
		list, err := listValue(v)
		if err != nil {
			return err
		}
		w.RawByte('[')
		for i, elem := range list {
			if i > 0 {
				w.RawByte(',')
			}
			if err := c.writeValueJSON(w, f.Type, elem, opts, depth); err != nil {
				return wire.WrapField(err, strconv.Itoa(i))
			}
		}
		w.RawByte(']')
		return nil
	default:
		return c.writeValueJSON(w, f.Type, v, opts, depth)
	}
}

// writeValueJSON writes a single value of type ft.
func (c *Codec) writeValueJSON(w *jwriter.Writer, ft schema.FieldType, v interface{}, opts JSONOptions, depth int) error {
	switch ft.Kind {
	case schema.KindMessage:
		if v == nil {
			w.RawString("null")
			return nil
		}
		m, err := messageValue(v)
		if err != nil {
			return err
		}
		return c.writeMessageJSON(w, ft.Message, m, opts, depth+1)
	case schema.KindEnum:
		ev, err := enumValue(ft.Enum, v)
		if err != nil {
			return err
		}
		if ft.Enum.FullName == nullValueEnum {
			w.RawString("null")
			return nil
		}
		w.String(ft.Enum.ToJSON(ev.Number))
		return nil
	}
	cv, err := scalarValue(ft.PrimitiveType, v)
	if err != nil {
		return err
	}
	switch t := cv.(type) {
	case int32:
		w.Int32(t)
	case uint32:
		w.Uint32(t)
	case int64:
		w.Int64Str(t)
	case uint64:
		w.Uint64Str(t)
	case bool:
		w.Bool(t)
	case float32:
		writeFloatJSON(w, float64(t), 32)
	case float64:
		writeFloatJSON(w, t, 64)
	case string:
		w.String(t)
	case []byte:
		w.Base64Bytes(t)
	}
	return nil
}

func writeFloatJSON(w *jwriter.Writer, f float64, bits int) {
	switch {
	case math.IsNaN(f):
		w.String("NaN")
	case math.IsInf(f, 1):
		w.String("Infinity")
	case math.IsInf(f, -1):
		w.String("-Infinity")
	case bits == 32:
		w.Float32(float32(f))
	default:
		w.Float64(f)
	}
}
