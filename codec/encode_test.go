package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/anirudhraja/protocodec/wire"
)

func TestEncodeWireBytes(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want []byte
	}{
		{"uint64 varint", Message{"quantums": uint64(150)}, []byte{0x18, 0x96, 0x01}},
		{"int32 negative is ten bytes", Message{"f_int32": int32(-1)}, []byte{0x08, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}},
		{"sint32 zigzag", Message{"f_sint32": int32(-1)}, []byte{0x28, 0x01}},
		{"sint64 zigzag", Message{"f_sint64": int64(-2)}, []byte{0x30, 0x03}},
		{"fixed32 little endian", Message{"f_fixed32": uint32(1)}, []byte{0x3d, 0x01, 0x00, 0x00, 0x00}},
		{"string", Message{"f_string": "hi"}, []byte{0x72, 0x02, 'h', 'i'}},
		{"negative zero double is written", Message{"f_double": math.Copysign(0, -1)}, []byte{0x61, 0, 0, 0, 0, 0, 0, 0, 0x80}},
		{"optional zero is written", Message{"opt_int32": int32(0)}, []byte{0x88, 0x01, 0x00}},
		{"enum by name", Message{"f_enum": "SIDE_SELL"}, []byte{0x80, 0x01, 0x02}},
		{"packed", Message{"packed_int32": []interface{}{1, 2, 300}}, []byte{0xa2, 0x01, 0x04, 0x01, 0x02, 0xac, 0x02}},
		{"unpacked", Message{"unpacked_uint32": []uint32{1, 2}}, []byte{0xb8, 0x01, 0x01, 0xb8, 0x01, 0x02}},
		{"map entry", Message{"labels": map[string]interface{}{"a": "b"}}, []byte{0xf2, 0x01, 0x06, 0x0a, 0x01, 'a', 0x12, 0x01, 'b'}},
		{"empty repeated and map are omitted", Message{"strings": []string{}, "labels": map[string]string{}}, nil},
		{"json name key", Message{"fInt32": 1}, []byte{0x08, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := scalarsType
			if _, ok := tt.msg["quantums"]; ok {
				md = orderType
			}
			got, err := Encode(md, tt.msg)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpOpts...); diff != "" {
				t.Errorf("Encode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeDefaultsAreElided(t *testing.T) {
	got, err := Encode(scalarsType, New(scalarsType))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Encode(New) = %x, want empty", got)
	}

	got, err = Encode(orderType, New(orderType))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Encode(New) = %x, want empty", got)
	}
}

func TestEncodeEmbeddedEmptyMessageIsWritten(t *testing.T) {
	got, err := Encode(orderType, Message{"order_id": Message{}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if diff := cmp.Diff([]byte{0x0a, 0x00}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeFieldOrderIsDeclarationOrder(t *testing.T) {
	got, err := Encode(subaccountIDType, Message{"number": uint32(7), "owner": "x"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x0a, 0x01, 'x', 0x10, 0x07}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name     string
		msg      Message
		wantPath string
	}{
		{"negative into uint64", Message{"quantums": -5}, "quantums"},
		{"negative into nested uint32", Message{"order_id": Message{"subaccount_id": Message{"number": -1}}}, "order_id.subaccount_id.number"},
		{"fraction into integer", Message{"subticks": 1.5}, "subticks"},
		{"unknown enum name", Message{"side": "SIDE_SIDEWAYS"}, "side"},
		{"two members of a oneof", Message{"good_til_block": uint32(10), "good_til_block_time": uint32(20)}, "good_til_oneof"},
		{"string for bool", Message{"reduce_only": "maybe"}, "reduce_only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(orderType, tt.msg)
			if !errors.Is(err, wire.ErrEncoding) {
				t.Fatalf("Encode error = %v, want ErrEncoding", err)
			}
			var fe *wire.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Encode error %v carries no field path", err)
			}
			if fe.Path() != tt.wantPath {
				t.Errorf("path = %q, want %q", fe.Path(), tt.wantPath)
			}
		})
	}
}

func TestEncodeRepeatedElementPath(t *testing.T) {
	_, err := Encode(scalarsType, Message{"unpacked_uint32": []interface{}{1, -2}})
	var fe *wire.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("Encode error = %v, want a FieldError", err)
	}
	if fe.Path() != "unpacked_uint32.1" {
		t.Errorf("path = %q, want unpacked_uint32.1", fe.Path())
	}

	_, err = Encode(scalarsType, Message{"packed_int32": []interface{}{1, "x"}})
	if !errors.As(err, &fe) || fe.Path() != "packed_int32.1" {
		t.Errorf("packed error = %v, want path packed_int32.1", err)
	}
}

func TestEncodeMaxDepth(t *testing.T) {
	c := NewCodec(WithMaxDepth(5))
	if _, err := c.Encode(nodeType, chain(6)); err != nil {
		t.Fatalf("Encode at the limit: %v", err)
	}
	_, err := c.Encode(nodeType, chain(7))
	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("Encode past the limit = %v, want ErrMaxDepth", err)
	}
}
