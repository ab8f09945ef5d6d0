package codec

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// Input values are accepted leniently: any Go integer kind, integral floats
// and decimal strings for integer fields, enum names or numbers for enums,
// base64 strings for bytes. Everything is converted to the canonical types
// documented on Message.

var (
	errNegative    = errors.New("negative value for unsigned field")
	errNotIntegral = errors.New("non-integer numeric for integer field")
)

// scalarValue converts v to the canonical Go type of primitive type pt.
func scalarValue(pt schema.PrimitiveType, v interface{}) (interface{}, error) {
	var (
		out interface{}
		err error
	)
	switch pt {
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		out, err = toInt32(v)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		out, err = toInt64(v)
	case schema.TypeUint32, schema.TypeFixed32:
		out, err = toUint32(v)
	case schema.TypeUint64, schema.TypeFixed64:
		out, err = toUint64(v)
	case schema.TypeBool:
		out, err = toBool(v)
	case schema.TypeFloat:
		out, err = toFloat32(v)
	case schema.TypeDouble:
		out, err = toFloat64(v)
	case schema.TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, wire.NewEncodingError(string(pt), v, "expected string")
		}
		out = s
	case schema.TypeBytes:
		out, err = toBytes(v)
	default:
		return nil, wire.NewEncodingError(string(pt), v, "unsupported primitive type")
	}
	if err != nil {
		return nil, wire.NewEncodingError(string(pt), v, "%v", err)
	}
	return out, nil
}

func toInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return uintToInt64(uint64(t))
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return uintToInt64(t)
	case float32:
		return floatToInt64(float64(t))
	case float64:
		return floatToInt64(t)
	case json.Number:
		return parseInt64(t.String())
	case string:
		return parseInt64(t)
	default:
		return 0, fmt.Errorf("expected integer-like, got %T", v)
	}
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("value %d overflows int64", u)
	}
	return int64(u), nil
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errNotIntegral
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %g overflows int64", f)
	}
	return int64(f), nil
}

// parseInt64 accepts decimal integers and integral exponent forms ("1e3").
func parseInt64(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	}
	return strconv.ParseInt(s, 10, 64)
}

func toInt32(v interface{}) (int32, error) {
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("value %d overflows int32", n)
	}
	return int32(n), nil
}

func toUint64(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case float32:
		return floatToUint64(float64(t))
	case float64:
		return floatToUint64(t)
	case json.Number:
		return parseUint64(t.String())
	case string:
		return parseUint64(t)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errNegative
	}
	return uint64(n), nil
}

func floatToUint64(f float64) (uint64, error) {
	if f < 0 {
		return 0, errNegative
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errNotIntegral
	}
	if f >= math.MaxUint64 {
		return 0, fmt.Errorf("value %g overflows uint64", f)
	}
	return uint64(f), nil
}

func parseUint64(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return 0, errNegative
	}
	if strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return floatToUint64(f)
	}
	return strconv.ParseUint(s, 10, 64)
}

func toUint32(v interface{}) (uint32, error) {
	n, err := toUint64(v)
	if err != nil {
		return 0, err
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("value %d overflows uint32", n)
	}
	return uint32(n), nil
}

func toBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("expected bool, got %T", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		return parseFloat(t.String())
	case string:
		return parseFloat(t)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	return float64(n), nil
}

// parseFloat accepts the JSON spellings of the non-finite values.
func parseFloat(s string) (float64, error) {
	switch strings.TrimSpace(s) {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func toFloat32(v interface{}) (float32, error) {
	if f, ok := v.(float32); ok {
		return f, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, err
	}
	out := float32(f)
	if math.IsInf(float64(out), 0) && !math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %g overflows float", f)
	}
	return out, nil
}

func toBytes(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		if t == nil {
			return []byte{}, nil
		}
		return t, nil
	case string:
		return decodeBase64(t)
	default:
		return nil, fmt.Errorf("expected []byte or base64 string, got %T", v)
	}
}

// decodeBase64 accepts standard and URL-safe alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	enc := base64.StdEncoding
	if strings.ContainsAny(s, "-_") {
		enc = base64.URLEncoding
	}
	if len(s)%4 != 0 {
		enc = enc.WithPadding(base64.NoPadding)
	}
	b, err := enc.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return b, nil
}

// enumValue resolves v against e. Numbers with no declared value are kept
// as unrecognized values; unknown names are an error.
func enumValue(e *schema.Enum, v interface{}) (EnumValue, error) {
	switch t := v.(type) {
	case EnumValue:
		return knownEnum(e, t.Number), nil
	case *EnumValue:
		if t == nil {
			return knownEnum(e, e.Default()), nil
		}
		return knownEnum(e, t.Number), nil
	case string:
		if ev := e.ValueByName(t); ev != nil {
			return EnumValue{Number: ev.Number, Name: ev.Name}, nil
		}
		if t == schema.UnrecognizedName {
			return EnumValue{Number: schema.Unrecognized}, nil
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 32); err == nil {
			return knownEnum(e, int32(n)), nil
		}
		return EnumValue{}, wire.NewEncodingError("enum "+e.FullName, v, "unknown enum value name %q", t)
	}
	n, err := toInt32(v)
	if err != nil {
		return EnumValue{}, wire.NewEncodingError("enum "+e.FullName, v, "%v", err)
	}
	return knownEnum(e, n), nil
}

// knownEnum attaches the declared name of n, if there is one.
func knownEnum(e *schema.Enum, n int32) EnumValue {
	if ev := e.ValueByNumber(n); ev != nil {
		return EnumValue{Number: n, Name: ev.Name}
	}
	return EnumValue{Number: n}
}

// listValue accepts []interface{} or any other slice kind.
func listValue(v interface{}) ([]interface{}, error) {
	if l, ok := v.([]interface{}); ok {
		return l, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, wire.NewEncodingError("repeated", v, "expected a list")
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// messageValue accepts Message or map[string]interface{}.
func messageValue(v interface{}) (map[string]interface{}, error) {
	switch t := v.(type) {
	case Message:
		return t, nil
	case map[string]interface{}:
		return t, nil
	default:
		return nil, wire.NewEncodingError("message", v, "expected a message map")
	}
}

type mapEntry struct {
	key, value interface{}
}

// mapEntries returns the entries of a map field value with keys converted to
// the canonical type of keyType and sorted, so output is deterministic.
func mapEntries(keyType schema.PrimitiveType, v interface{}) ([]mapEntry, error) {
	var entries []mapEntry
	add := func(k, val interface{}) error {
		ck, err := scalarValue(keyType, k)
		if err != nil {
			return err
		}
		entries = append(entries, mapEntry{key: ck, value: val})
		return nil
	}
	switch t := v.(type) {
	case map[interface{}]interface{}:
		for k, val := range t {
			if err := add(k, val); err != nil {
				return nil, err
			}
		}
	case map[string]interface{}:
		for k, val := range t {
			if err := add(k, val); err != nil {
				return nil, err
			}
		}
	case Message:
		for k, val := range t {
			if err := add(k, val); err != nil {
				return nil, err
			}
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return nil, wire.NewEncodingError("map", v, "expected a map")
		}
		iter := rv.MapRange()
		for iter.Next() {
			if err := add(iter.Key().Interface(), iter.Value().Interface()); err != nil {
				return nil, err
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return lessKey(entries[i].key, entries[j].key) })
	return entries, nil
}

func lessKey(a, b interface{}) bool {
	switch x := a.(type) {
	case string:
		return x < b.(string)
	case int32:
		return x < b.(int32)
	case int64:
		return x < b.(int64)
	case uint32:
		return x < b.(uint32)
	case uint64:
		return x < b.(uint64)
	case bool:
		return !x && b.(bool)
	default:
		return false
	}
}

// mapKeyString renders a canonical map key as a JSON object key.
func mapKeyString(k interface{}) string {
	switch x := k.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
