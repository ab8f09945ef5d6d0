package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Well-known types with a dedicated JSON form.
const (
	anyMessage       = "google.protobuf.Any"
	timestampMessage = "google.protobuf.Timestamp"
	durationMessage  = "google.protobuf.Duration"
	fieldMaskMessage = "google.protobuf.FieldMask"
	structMessage    = "google.protobuf.Struct"
	valueMessage     = "google.protobuf.Value"
	listValueMessage = "google.protobuf.ListValue"
	nullValueEnum    = "google.protobuf.NullValue"
)

const (
	minTimestampSeconds = -62135596800 // 0001-01-01T00:00:00Z
	maxTimestampSeconds = 253402300799 // 9999-12-31T23:59:59Z
	maxDurationSeconds  = 315576000000
)

type jsonWriteFunc func(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error

type jsonReadFunc func(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error)

func isWrapper(fullName string) bool {
	switch fullName {
	case "google.protobuf.DoubleValue", "google.protobuf.FloatValue",
		"google.protobuf.Int64Value", "google.protobuf.UInt64Value",
		"google.protobuf.Int32Value", "google.protobuf.UInt32Value",
		"google.protobuf.BoolValue", "google.protobuf.StringValue",
		"google.protobuf.BytesValue":
		return true
	}
	return false
}

func wellKnownWriter(fullName string) jsonWriteFunc {
	switch fullName {
	case anyMessage:
		return writeAnyJSON
	case timestampMessage:
		return writeTimestampJSON
	case durationMessage:
		return writeDurationJSON
	case fieldMaskMessage:
		return writeFieldMaskJSON
	case structMessage:
		return writeStructJSON
	case valueMessage:
		return writeValueMessageJSON
	case listValueMessage:
		return writeListValueJSON
	}
	if isWrapper(fullName) {
		return writeWrapperJSON
	}
	return nil
}

func wellKnownReader(fullName string) jsonReadFunc {
	switch fullName {
	case anyMessage:
		return readAnyJSON
	case timestampMessage:
		return readTimestampJSON
	case durationMessage:
		return readDurationJSON
	case fieldMaskMessage:
		return readFieldMaskJSON
	case structMessage:
		return readStructJSON
	case valueMessage:
		return readValueMessageJSON
	case listValueMessage:
		return readListValueJSON
	}
	if isWrapper(fullName) {
		return readWrapperJSON
	}
	return nil
}

func secondsNanos(typ string, msg map[string]interface{}) (int64, int32, error) {
	var sec int64
	var nanos int32
	if v := msg["seconds"]; v != nil {
		s, err := toInt64(v)
		if err != nil {
			return 0, 0, wire.NewEncodingError(typ, v, "seconds: %v", err)
		}
		sec = s
	}
	if v := msg["nanos"]; v != nil {
		n, err := toInt32(v)
		if err != nil {
			return 0, 0, wire.NewEncodingError(typ, v, "nanos: %v", err)
		}
		nanos = n
	}
	return sec, nanos, nil
}

func secondsNanosMessage(md *schema.Message, sec int64, nanos int32) Message {
	msg := newMessage(md)
	msg["seconds"] = sec
	msg["nanos"] = nanos
	return msg
}

func writeTimestampJSON(_ *Codec, w *jwriter.Writer, _ *schema.Message, msg map[string]interface{}, _ JSONOptions, _ int) error {
	sec, nanos, err := secondsNanos(timestampMessage, msg)
	if err != nil {
		return err
	}
	s, err := formatTimestamp(sec, nanos)
	if err != nil {
		return wire.NewEncodingError(timestampMessage, msg, "%v", err)
	}
	w.String(s)
	return nil
}

func readTimestampJSON(_ *Codec, md *schema.Message, r gjson.Result, _ JSONOptions, _ int) (Message, error) {
	if r.Type != gjson.String {
		return nil, wire.NewEncodingError(timestampMessage, r.Raw, "expected an RFC 3339 string")
	}
	sec, nanos, err := parseTimestamp(r.Str)
	if err != nil {
		return nil, wire.NewEncodingError(timestampMessage, r.Str, "%v", err)
	}
	return secondsNanosMessage(md, sec, nanos), nil
}

// formatTimestamp renders seconds and nanos as RFC 3339 in UTC with 0, 3, 6
// or 9 fractional digits.
func formatTimestamp(sec int64, nanos int32) (string, error) {
	if sec < minTimestampSeconds || sec > maxTimestampSeconds {
		return "", fmt.Errorf("seconds %d out of range", sec)
	}
	if nanos < 0 || nanos > 999999999 {
		return "", fmt.Errorf("nanos %d out of range", nanos)
	}
	t := time.Unix(sec, int64(nanos)).UTC()
	return t.Format("2006-01-02T15:04:05") + fraction(nanos) + "Z", nil
}

func parseTimestamp(s string) (int64, int32, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	sec := t.Unix()
	if sec < minTimestampSeconds || sec > maxTimestampSeconds {
		return 0, 0, fmt.Errorf("timestamp %q out of range", s)
	}
	return sec, int32(t.Nanosecond()), nil
}

// fraction formats nanos as ".ddd", ".dddddd" or ".ddddddddd", or "" for 0.
func fraction(nanos int32) string {
	if nanos == 0 {
		return ""
	}
	s := fmt.Sprintf("%09d", nanos)
	switch {
	case strings.HasSuffix(s, "000000"):
		s = s[:3]
	case strings.HasSuffix(s, "000"):
		s = s[:6]
	}
	return "." + s
}

func writeDurationJSON(_ *Codec, w *jwriter.Writer, _ *schema.Message, msg map[string]interface{}, _ JSONOptions, _ int) error {
	sec, nanos, err := secondsNanos(durationMessage, msg)
	if err != nil {
		return err
	}
	s, err := formatDuration(sec, nanos)
	if err != nil {
		return wire.NewEncodingError(durationMessage, msg, "%v", err)
	}
	w.String(s)
	return nil
}

func readDurationJSON(_ *Codec, md *schema.Message, r gjson.Result, _ JSONOptions, _ int) (Message, error) {
	if r.Type != gjson.String {
		return nil, wire.NewEncodingError(durationMessage, r.Raw, `expected a string such as "1.5s"`)
	}
	sec, nanos, err := parseDuration(r.Str)
	if err != nil {
		return nil, wire.NewEncodingError(durationMessage, r.Str, "%v", err)
	}
	return secondsNanosMessage(md, sec, nanos), nil
}

func formatDuration(sec int64, nanos int32) (string, error) {
	if sec < -maxDurationSeconds || sec > maxDurationSeconds {
		return "", fmt.Errorf("seconds %d out of range", sec)
	}
	if nanos <= -1e9 || nanos >= 1e9 || (sec > 0 && nanos < 0) || (sec < 0 && nanos > 0) {
		return "", fmt.Errorf("nanos %d invalid for seconds %d", nanos, sec)
	}
	sign := ""
	if sec < 0 || nanos < 0 {
		sign = "-"
		sec, nanos = -sec, -nanos
	}
	return sign + strconv.FormatInt(sec, 10) + fraction(nanos) + "s", nil
}

// parseDuration reads "[-]N[.fffffffff]s". Seconds and nanos share a sign.
func parseDuration(s string) (int64, int32, error) {
	core, ok := strings.CutSuffix(s, "s")
	if !ok {
		return 0, 0, fmt.Errorf("invalid duration %q: missing 's' suffix", s)
	}
	neg := false
	if rest, ok := strings.CutPrefix(core, "-"); ok {
		neg, core = true, rest
	}
	secPart, fracPart, _ := strings.Cut(core, ".")
	if secPart == "" || !allDigits(secPart) || !allDigits(fracPart) {
		return 0, 0, fmt.Errorf("invalid duration %q", s)
	}
	if len(fracPart) > 9 {
		return 0, 0, fmt.Errorf("invalid duration %q: more than 9 fractional digits", s)
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil || sec > maxDurationSeconds {
		return 0, 0, fmt.Errorf("duration %q out of range", s)
	}
	var nanos int64
	if fracPart != "" {
		nanos, _ = strconv.ParseInt(fracPart+strings.Repeat("0", 9-len(fracPart)), 10, 64)
	}
	if neg {
		sec, nanos = -sec, -nanos
	}
	return sec, int32(nanos), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func writeFieldMaskJSON(_ *Codec, w *jwriter.Writer, _ *schema.Message, msg map[string]interface{}, _ JSONOptions, _ int) error {
	var paths []interface{}
	if v := msg["paths"]; v != nil {
		list, err := listValue(v)
		if err != nil {
			return wire.WrapField(err, "paths")
		}
		paths = list
	}
	parts := make([]string, 0, len(paths))
	for i, p := range paths {
		s, ok := p.(string)
		if !ok {
			return wire.WrapField(wire.NewEncodingError("string", p, "field mask path"), "paths."+strconv.Itoa(i))
		}
		parts = append(parts, schema.JSONName(s))
	}
	w.String(strings.Join(parts, ","))
	return nil
}

func readFieldMaskJSON(_ *Codec, md *schema.Message, r gjson.Result, _ JSONOptions, _ int) (Message, error) {
	if r.Type != gjson.String {
		return nil, wire.NewEncodingError(fieldMaskMessage, r.Raw, "expected a comma separated string")
	}
	paths := []interface{}{}
	for _, p := range strings.Split(r.Str, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, camelToSnake(p))
		}
	}
	msg := newMessage(md)
	msg["paths"] = paths
	return msg, nil
}

// camelToSnake converts lowerCamelCase to snake_case.
func camelToSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i != 0 {
				out = append(out, '_')
			}
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func writeWrapperJSON(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	f := md.FieldByName("value")
	v := msg["value"]
	if v == nil {
		v = zeroValue(f)
	}
	return c.writeValueJSON(w, f.Type, v, opts, depth)
}

func readWrapperJSON(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	f := md.FieldByName("value")
	v, err := c.readValueJSON(f.Type, r, opts, depth)
	if err != nil {
		return nil, err
	}
	msg := newMessage(md)
	msg["value"] = v
	return msg, nil
}

// Struct is a bare JSON object of Values.
func writeStructJSON(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	fields := msg["fields"]
	if fields == nil {
		fields = map[interface{}]interface{}{}
	}
	return wire.WrapField(c.writeFieldJSON(w, md.FieldByName("fields"), fields, opts, depth), "fields")
}

func readStructJSON(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	fields, err := c.readFieldJSON(md.FieldByName("fields"), r, opts, depth)
	if err != nil {
		return nil, err
	}
	msg := newMessage(md)
	msg["fields"] = fields
	return msg, nil
}

// ListValue is a bare JSON array of Values.
func writeListValueJSON(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	values := msg["values"]
	if values == nil {
		values = []interface{}{}
	}
	return wire.WrapField(c.writeFieldJSON(w, md.FieldByName("values"), values, opts, depth), "values")
}

func readListValueJSON(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	values, err := c.readFieldJSON(md.FieldByName("values"), r, opts, depth)
	if err != nil {
		return nil, err
	}
	msg := newMessage(md)
	msg["values"] = values
	return msg, nil
}

// Value is whichever bare JSON value its kind holds.
func writeValueMessageJSON(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	for _, f := range md.Fields {
		v := msg[f.Name]
		if v == nil {
			continue
		}
		switch f.Name {
		case "null_value":
			w.RawString("null")
			return nil
		case "number_value":
			n, err := toFloat64(v)
			if err != nil {
				return wire.WrapField(wire.NewEncodingError("double", v, "%v", err), f.Name)
			}
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return wire.WrapField(wire.NewEncodingError("double", v, "Value cannot hold NaN or Infinity"), f.Name)
			}
			w.Float64(n)
			return nil
		default:
			return wire.WrapField(c.writeValueJSON(w, f.Type, v, opts, depth), f.Name)
		}
	}
	return wire.NewEncodingError(valueMessage, msg, "no kind set")
}

func readValueMessageJSON(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	msg := newMessage(md)
	switch {
	case r.Type == gjson.Null:
		msg["null_value"] = knownEnum(md.FieldByName("null_value").Type.Enum, 0)
	case r.Type == gjson.Number:
		msg["number_value"] = r.Float()
	case r.Type == gjson.String:
		msg["string_value"] = r.Str
	case r.Type == gjson.True || r.Type == gjson.False:
		msg["bool_value"] = r.Bool()
	case r.IsObject():
		f := md.FieldByName("struct_value")
		v, err := c.readMessageJSON(f.Type.Message, r, opts, depth+1)
		if err != nil {
			return nil, wire.WrapField(err, f.Name)
		}
		msg[f.Name] = v
	case r.IsArray():
		f := md.FieldByName("list_value")
		v, err := c.readMessageJSON(f.Type.Message, r, opts, depth+1)
		if err != nil {
			return nil, wire.WrapField(err, f.Name)
		}
		msg[f.Name] = v
	default:
		return nil, wire.NewEncodingError(valueMessage, r.Raw, "unsupported JSON value")
	}
	return msg, nil
}

// writeAnyJSON writes {"@type": url, ...payload fields}, or
// {"@type": url, "value": ...} when the payload has its own JSON form.
// Without a resolver the Any is written as a plain message.
func writeAnyJSON(c *Codec, w *jwriter.Writer, md *schema.Message, msg map[string]interface{}, opts JSONOptions, depth int) error {
	if opts.Resolver == nil {
		w.RawByte('{')
		_, err := c.writeFieldsJSON(w, md, msg, opts, depth, true)
		w.RawByte('}')
		return err
	}
	typeURL, _ := msg["type_url"].(string)
	if typeURL == "" {
		w.RawString("{}")
		return nil
	}
	payloadType, err := opts.Resolver.MessageByTypeURL(typeURL)
	if err != nil {
		return wire.WrapField(fmt.Errorf("resolving %s: %w", typeURL, err), "type_url")
	}
	raw, err := toBytes(msg["value"])
	if err != nil {
		return wire.WrapField(err, "value")
	}
	payload, err := c.decodeMessage(wire.NewDecoder(raw), payloadType, depth+1)
	if err != nil {
		return wire.WrapField(err, "value")
	}
	w.RawString(`{"@type":`)
	w.String(typeURL)
	if wellKnownWriter(payloadType.FullName) != nil {
		w.RawString(`,"value":`)
		if err := c.writeMessageJSON(w, payloadType, payload, opts, depth+1); err != nil {
			return wire.WrapField(err, "value")
		}
	} else if _, err := c.writeFieldsJSON(w, payloadType, payload, opts, depth+1, false); err != nil {
		return err
	}
	w.RawByte('}')
	return nil
}

func readAnyJSON(c *Codec, md *schema.Message, r gjson.Result, opts JSONOptions, depth int) (Message, error) {
	if !r.IsObject() {
		return nil, wire.NewEncodingError(anyMessage, r.Raw, "expected a JSON object")
	}
	typeURL, found := member(r, "@type")
	if !found {
		return c.readFieldsJSON(md, r, opts, depth, nil)
	}
	if opts.Resolver == nil {
		return nil, wire.NewEncodingError(anyMessage, typeURL.String(), "no resolver for @type")
	}
	payloadType, err := opts.Resolver.MessageByTypeURL(typeURL.String())
	if err != nil {
		return nil, wire.WrapField(fmt.Errorf("resolving %s: %w", typeURL.String(), err), "@type")
	}
	var payload Message
	if wellKnownReader(payloadType.FullName) != nil {
		inner, _ := member(r, "value")
		payload, err = c.readMessageJSON(payloadType, inner, opts, depth+1)
	} else {
		payload, err = c.readFieldsJSON(payloadType, r, opts, depth+1, func(key string) bool { return key == "@type" })
	}
	if err != nil {
		return nil, err
	}
	e := wire.NewEncoder()
	if err := c.encodeMessage(e, payloadType, payload, depth+1); err != nil {
		return nil, wire.WrapField(err, "value")
	}
	msg := newMessage(md)
	msg["type_url"] = typeURL.String()
	msg["value"] = append([]byte{}, e.Bytes()...)
	return msg, nil
}

// member returns the value of key in object r. gjson paths treat '@' as a
// modifier prefix, so keys are matched literally.
func member(r gjson.Result, key string) (gjson.Result, bool) {
	var out gjson.Result
	found := false
	r.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out, found = v, true
			return false
		}
		return true
	})
	return out, found
}
