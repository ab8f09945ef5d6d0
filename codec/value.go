package codec

// Message is a decoded protobuf message keyed by proto field name.
//
// Values use one canonical Go type per protobuf type: int32 (int32, sint32,
// sfixed32), int64 (int64, sint64, sfixed64), uint32 (uint32, fixed32),
// uint64 (uint64, fixed64), bool, float32, float64, string, []byte,
// EnumValue, Message for embedded messages, []interface{} for repeated fields
// and map[interface{}]interface{} for map fields. A field with presence that
// is unset holds nil.
type Message map[string]interface{}

// Has reports whether the field holds a non-nil value.
func (m Message) Has(name string) bool {
	return m[name] != nil
}

// EnumValue is an open enum value. Name is empty when Number has no declared
// value in the enum, which is how values added by newer schemas survive a
// round trip.
type EnumValue struct {
	Number int32
	Name   string
}

// Known reports whether the number matched a declared value.
func (v EnumValue) Known() bool {
	return v.Name != ""
}

func (v EnumValue) String() string {
	if v.Name == "" {
		return "UNRECOGNIZED"
	}
	return v.Name
}
