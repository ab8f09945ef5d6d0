package protocodec

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/anirudhraja/protocodec/codec"
	"github.com/anirudhraja/protocodec/schema"
)

var (
	enumValueType  = reflect.TypeOf(codec.EnumValue{})
	messageMapType = reflect.TypeOf(codec.Message{})
)

// mapToStruct copies a decoded message into the struct v points to.
//
// A struct field is matched by its `protocodec:"name"` tag, then its `json`
// tag, then its Go name converted to snake_case. Names may be proto or JSON
// field names. Unmatched struct fields are left alone. Pointer fields stay
// nil when the message field is unset, which is how presence is observed.
// Enum fields may be codec.EnumValue, any integer kind (the number) or
// string (the name).
func mapToStruct(msg codec.Message, md *schema.Message, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a non-nil pointer to struct, got %T", v)
	}
	return setStruct(rv.Elem(), md, msg)
}

func setStruct(rv reflect.Value, md *schema.Message, msg map[string]interface{}) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		name, ok := structFieldName(sf)
		if !ok {
			continue
		}
		f := md.FieldByName(name)
		if f == nil {
			continue
		}
		if err := setField(rv.Field(i), f, msg[f.Name]); err != nil {
			return fmt.Errorf("failed to set field %s: %w", sf.Name, err)
		}
	}
	return nil
}

func structFieldName(sf reflect.StructField) (string, bool) {
	for _, key := range []string{"protocodec", "json"} {
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return snakeCase(sf.Name), true
}

// snakeCase turns a Go identifier such as ClobPairID into clob_pair_id.
func snakeCase(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			prevLower := i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z'
			nextLower := i > 0 && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' && s[i-1] >= 'A' && s[i-1] <= 'Z'
			if prevLower || nextLower {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

func setField(rv reflect.Value, f *schema.Field, v interface{}) error {
	if v == nil {
		return nil
	}
	switch {
	case f.IsMap():
		return setMap(rv, f.Type.Message, v)
	case f.IsRepeated():
		return setList(rv, f.Type, v)
	default:
		return setValue(rv, f.Type, v)
	}
}

func setMap(rv reflect.Value, entry *schema.Message, v interface{}) error {
	if rv.Kind() == reflect.Interface {
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("cannot store map in %s", rv.Type())
	}
	src, ok := v.(map[interface{}]interface{})
	if !ok {
		return fmt.Errorf("unexpected map value %T", v)
	}
	out := reflect.MakeMapWithSize(rv.Type(), len(src))
	keyType := schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: entry.MapKey().Type.PrimitiveType}
	for k, val := range src {
		kv := reflect.New(rv.Type().Key()).Elem()
		if err := setValue(kv, keyType, k); err != nil {
			return fmt.Errorf("key %v: %w", k, err)
		}
		vv := reflect.New(rv.Type().Elem()).Elem()
		if val != nil {
			if err := setValue(vv, entry.MapValue().Type, val); err != nil {
				return fmt.Errorf("value at %v: %w", k, err)
			}
		}
		out.SetMapIndex(kv, vv)
	}
	rv.Set(out)
	return nil
}

func setList(rv reflect.Value, ft schema.FieldType, v interface{}) error {
	if rv.Kind() == reflect.Interface {
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if rv.Kind() != reflect.Slice {
		return fmt.Errorf("cannot store repeated field in %s", rv.Type())
	}
	src, ok := v.([]interface{})
	if !ok {
		return fmt.Errorf("unexpected list value %T", v)
	}
	out := reflect.MakeSlice(rv.Type(), len(src), len(src))
	for i, elem := range src {
		if err := setValue(out.Index(i), ft, elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	rv.Set(out)
	return nil
}

// setValue stores a single canonical value of type ft in rv.
func setValue(rv reflect.Value, ft schema.FieldType, v interface{}) error {
	if v == nil {
		return nil
	}
	switch rv.Kind() {
	case reflect.Ptr:
		elem := reflect.New(rv.Type().Elem())
		if err := setValue(elem.Elem(), ft, v); err != nil {
			return err
		}
		rv.Set(elem)
		return nil
	case reflect.Interface:
		rv.Set(reflect.ValueOf(v))
		return nil
	}

	switch ft.Kind {
	case schema.KindMessage:
		msg, ok := v.(codec.Message)
		if !ok {
			return fmt.Errorf("unexpected message value %T", v)
		}
		switch {
		case rv.Kind() == reflect.Struct:
			return setStruct(rv, ft.Message, msg)
		case rv.Type() == messageMapType:
			rv.Set(reflect.ValueOf(msg))
			return nil
		case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
			rv.Set(reflect.ValueOf(map[string]interface{}(msg)).Convert(rv.Type()))
			return nil
		}
		return fmt.Errorf("cannot store message %s in %s", ft.Message.FullName, rv.Type())
	case schema.KindEnum:
		ev, ok := v.(codec.EnumValue)
		if !ok {
			return fmt.Errorf("unexpected enum value %T", v)
		}
		switch {
		case rv.Type() == enumValueType:
			rv.Set(reflect.ValueOf(ev))
		case rv.Kind() == reflect.String:
			rv.SetString(ft.Enum.ToJSON(ev.Number))
		case isInt(rv.Kind()):
			rv.SetInt(int64(ev.Number))
		default:
			return fmt.Errorf("cannot store enum %s in %s", ft.Enum.FullName, rv.Type())
		}
		return nil
	}
	return setScalar(rv, v)
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func setScalar(rv reflect.Value, v interface{}) error {
	src := reflect.ValueOf(v)
	switch {
	case src.Type().AssignableTo(rv.Type()):
		rv.Set(src)
	case isInt(rv.Kind()) && isInt(src.Kind()):
		n := src.Int()
		if rv.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, rv.Type())
		}
		rv.SetInt(n)
	case isInt(rv.Kind()) && isUint(src.Kind()):
		n := src.Uint()
		if n > math.MaxInt64 || rv.OverflowInt(int64(n)) {
			return fmt.Errorf("value %d overflows %s", n, rv.Type())
		}
		rv.SetInt(int64(n))
	case isUint(rv.Kind()) && isUint(src.Kind()):
		n := src.Uint()
		if rv.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, rv.Type())
		}
		rv.SetUint(n)
	case isUint(rv.Kind()) && isInt(src.Kind()):
		n := src.Int()
		if n < 0 || rv.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d overflows %s", n, rv.Type())
		}
		rv.SetUint(uint64(n))
	case (rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64) && (src.Kind() == reflect.Float32 || src.Kind() == reflect.Float64):
		rv.SetFloat(src.Float())
	case rv.Kind() == reflect.String && src.Kind() == reflect.String:
		rv.SetString(src.String())
	case rv.Kind() == reflect.String && src.Type() == reflect.TypeOf([]byte(nil)):
		rv.SetString(string(src.Bytes()))
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 && src.Kind() == reflect.String:
		rv.SetBytes([]byte(src.String()))
	case rv.Kind() == reflect.Bool && src.Kind() == reflect.Bool:
		rv.SetBool(src.Bool())
	default:
		return fmt.Errorf("cannot convert %T to %s", v, rv.Type())
	}
	return nil
}
