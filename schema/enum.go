package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unrecognized is the catch-all number for enum input that matches no
// declared value.
const Unrecognized int32 = -1

// UnrecognizedName is the JSON rendering of numbers with no declared name.
const UnrecognizedName = "UNRECOGNIZED"

// Build validates the enum and freezes its lookup indexes. Numbers must be
// unique unless AllowAlias is set. The first name declared for a number is
// the one ToJSON returns.
func (e *Enum) Build() error {
	if e.built {
		return nil
	}
	if e.FullName == "" {
		e.FullName = e.Name
	}
	if e.Name == "" {
		e.Name = e.FullName[strings.LastIndexByte(e.FullName, '.')+1:]
	}
	byNumber := make(map[int32]*EnumValue, len(e.Values))
	byName := make(map[string]*EnumValue, len(e.Values))
	for _, v := range e.Values {
		if v.Name == "" {
			return fmt.Errorf("enum %s: value %d has no name", e.FullName, v.Number)
		}
		if v.Name == UnrecognizedName || v.Number == Unrecognized {
			return fmt.Errorf("enum %s: %s = %d collides with the reserved unrecognized value", e.FullName, v.Name, v.Number)
		}
		if _, ok := byName[v.Name]; ok {
			return fmt.Errorf("enum %s: duplicate value name %s", e.FullName, v.Name)
		}
		if prev, ok := byNumber[v.Number]; ok {
			if !e.AllowAlias {
				return fmt.Errorf("enum %s: %s and %s share number %d without allow_alias", e.FullName, prev.Name, v.Name, v.Number)
			}
		} else {
			byNumber[v.Number] = v
		}
		byName[v.Name] = v
	}
	e.byNumber, e.byName, e.built = byNumber, byName, true
	return nil
}

// ValueByNumber returns the primary value declared for n, or nil.
func (e *Enum) ValueByNumber(n int32) *EnumValue {
	if e.built {
		return e.byNumber[n]
	}
	for _, v := range e.Values {
		if v.Number == n {
			return v
		}
	}
	return nil
}

// ValueByName returns the value with the given symbolic name, or nil.
func (e *Enum) ValueByName(name string) *EnumValue {
	if e.built {
		return e.byName[name]
	}
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Default is the value an unset enum field holds.
func (e *Enum) Default() int32 {
	return 0
}

// FromJSON resolves a symbolic name or a numeric literal to a declared enum
// number. Anything else, including numbers with no declared value, resolves
// to Unrecognized.
func (e *Enum) FromJSON(nameOrNumber interface{}) int32 {
	n, ok := e.lookup(nameOrNumber)
	if !ok {
		return Unrecognized
	}
	return n
}

func (e *Enum) lookup(in interface{}) (int32, bool) {
	if s, ok := in.(string); ok {
		if v := e.ValueByName(s); v != nil {
			return v.Number, true
		}
		if s == UnrecognizedName {
			return 0, false
		}
	}
	n, ok := enumNumber(in)
	if !ok || e.ValueByNumber(n) == nil {
		return 0, false
	}
	return n, true
}

// ToJSON returns the symbolic name of n, or "UNRECOGNIZED".
func (e *Enum) ToJSON(n int32) string {
	if v := e.ValueByNumber(n); v != nil {
		return v.Name
	}
	return UnrecognizedName
}

// enumNumber converts numeric input that fits in int32.
func enumNumber(in interface{}) (int32, bool) {
	var f float64
	switch t := in.(type) {
	case int:
		f = float64(t)
	case int8:
		return int32(t), true
	case int16:
		return int32(t), true
	case int32:
		return t, true
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		return int32(t), true
	case uint16:
		return int32(t), true
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case float32:
		f = float64(t)
	case float64:
		f = t
	case json.Number:
		v, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		f = v
	case string:
		v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = v
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int32(f), true
}
