package protocodec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protocodec/codec"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/wire"
)

const (
	snapshotType = "dydxprotocol.indexer.protocol.v1.OrderBookSnapshot"
	orderType    = "dydxprotocol.indexer.protocol.v1.IndexerOrder"
	orderIDType  = "dydxprotocol.indexer.protocol.v1.IndexerOrderId"
)

func newTestCodec(t *testing.T, opts ...Option) *Protocodec {
	t.Helper()
	p := New(opts...)
	require.NoError(t, p.LoadSchema("registry/testdata"))
	return p
}

func sampleSnapshot() map[string]interface{} {
	return map[string]interface{}{
		"clob_pair_id": 7,
		"orders": []interface{}{
			map[string]interface{}{
				"order_id": map[string]interface{}{
					"subaccount_id": map[string]interface{}{"owner": "dydx1abc", "number": 2},
					"client_id":     11,
					"clob_pair_id":  7,
				},
				"side":            "SIDE_SELL",
				"quantums":        uint64(1000),
				"subticks":        uint64(25),
				"good_til_block":  40,
				"time_in_force":   1,
				"condition_type":  "CONDITION_TYPE_STOP_LOSS",
				"client_metadata": 3,
			},
		},
		"open_interest": map[string]interface{}{"BTC-USD": 10, "ETH-USD": 0},
		"by_client_id": map[uint32]interface{}{
			11: map[string]interface{}{"client_id": 11, "clob_pair_id": 7},
		},
		"price_levels":    []uint64{100, 101},
		"unpacked_levels": []int{5},
		"note":            "",
		"taken_at":        map[string]interface{}{"seconds": 1700000000, "nanos": 5},
		"status":          "CLOB_PAIR_STATUS_ACTIVE",
		"crc":             []byte{1, 2},
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	p := newTestCodec(t)

	want, err := p.FromPartial(sampleSnapshot(), snapshotType)
	require.NoError(t, err)

	data, err := p.Marshal(sampleSnapshot(), snapshotType)
	require.NoError(t, err)

	got, err := p.Parse(data, snapshotType)
	require.NoError(t, err)
	require.Equal(t, want, got)

	require.Equal(t, uint32(7), got["clob_pair_id"])
	require.Equal(t, "", got["note"])
	require.Equal(t, []byte{1, 2}, got["checksum"])
	require.Equal(t, codec.EnumValue{Number: 1, Name: "CLOB_PAIR_STATUS_ACTIVE"}, got["status"])
	require.Equal(t, map[interface{}]interface{}{"BTC-USD": uint64(10), "ETH-USD": uint64(0)}, got["open_interest"])

	order := got["orders"].([]interface{})[0].(codec.Message)
	require.Equal(t, uint32(40), order["good_til_block"])
	require.Nil(t, order["good_til_block_time"])
	require.Equal(t, codec.EnumValue{Number: 2, Name: "SIDE_SELL"}, order["side"])
}

func TestParseShortNames(t *testing.T) {
	p := newTestCodec(t)

	data, err := p.Marshal(map[string]interface{}{"client_id": 9}, "IndexerOrderId")
	require.NoError(t, err)
	require.Equal(t, []byte{0x15, 9, 0, 0, 0}, data)

	got, err := p.Parse(data, "protocol.v1.IndexerOrderId")
	require.NoError(t, err)
	require.Equal(t, uint32(9), got["client_id"])
}

func TestMessageNotFound(t *testing.T) {
	p := newTestCodec(t)

	_, err := p.Parse(nil, "does.not.Exist")
	require.ErrorIs(t, err, registry.ErrNotFound)
	require.Contains(t, err.Error(), "message type not found")

	_, err = p.Marshal(map[string]interface{}{}, "Missing")
	require.ErrorIs(t, err, registry.ErrNotFound)

	_, err = p.EncodeJSON(map[string]interface{}{}, "Missing")
	require.ErrorIs(t, err, registry.ErrNotFound)

	var v struct{}
	require.ErrorIs(t, p.Unmarshal(nil, "Missing", &v), registry.ErrNotFound)
}

func TestParseMalformed(t *testing.T) {
	p := newTestCodec(t)

	// Field 1 declares a 5 byte payload but only 2 bytes follow.
	_, err := p.Parse([]byte{0x0a, 0x05, 'a', 'b'}, orderIDType)
	require.Error(t, err)
	require.True(t, errors.Is(err, wire.ErrTruncatedInput), "got %v", err)
}

func TestDefault(t *testing.T) {
	p := newTestCodec(t)

	got, err := p.Default(orderType)
	require.NoError(t, err)
	require.Equal(t, codec.Message{
		"order_id":                         nil,
		"side":                             codec.EnumValue{Number: 0, Name: "SIDE_UNSPECIFIED"},
		"quantums":                         uint64(0),
		"subticks":                         uint64(0),
		"good_til_block":                   nil,
		"good_til_block_time":              nil,
		"time_in_force":                    codec.EnumValue{Number: 0, Name: "TIME_IN_FORCE_UNSPECIFIED"},
		"reduce_only":                      false,
		"client_metadata":                  uint32(0),
		"condition_type":                   codec.EnumValue{Number: 0, Name: "CONDITION_TYPE_UNSPECIFIED"},
		"condition_order_trigger_subticks": uint64(0),
	}, got)

	data, err := p.Marshal(got, orderType)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestFromPartialErrors(t *testing.T) {
	p := newTestCodec(t)

	_, err := p.FromPartial(map[string]interface{}{"quantums": -1}, orderType)
	require.ErrorIs(t, err, wire.ErrEncoding)

	_, err = p.FromPartial(map[string]interface{}{"side": "SIDE_SIDEWAYS"}, orderType)
	require.ErrorIs(t, err, wire.ErrEncoding)
}

func TestMarshalRejectsTwoOneofMembers(t *testing.T) {
	p := newTestCodec(t)

	_, err := p.Marshal(map[string]interface{}{
		"good_til_block":      1,
		"good_til_block_time": 2,
	}, orderType)
	require.ErrorIs(t, err, wire.ErrEncoding)

	_, err = p.FromPartial(map[string]interface{}{
		"good_til_block":      1,
		"good_til_block_time": 2,
	}, orderType)
	require.ErrorIs(t, err, wire.ErrEncoding)
}

func TestJSON(t *testing.T) {
	partial := map[string]interface{}{
		"clob_pair_id": 1,
		"note":         "",
		"crc":          []byte{1, 2},
		"status":       2,
	}

	t.Run("json names", func(t *testing.T) {
		p := newTestCodec(t)
		data, err := p.EncodeJSON(partial, snapshotType)
		require.NoError(t, err)
		require.JSONEq(t, `{"clobPairId":1,"note":"","status":"CLOB_PAIR_STATUS_PAUSED","crc":"AQI="}`, string(data))

		got, err := p.DecodeJSON(data, snapshotType)
		require.NoError(t, err)
		want, err := p.FromPartial(partial, snapshotType)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("proto names", func(t *testing.T) {
		p := newTestCodec(t, WithProtoNames())
		data, err := p.EncodeJSON(partial, snapshotType)
		require.NoError(t, err)
		require.JSONEq(t, `{"clob_pair_id":1,"note":"","status":"CLOB_PAIR_STATUS_PAUSED","checksum":"AQI="}`, string(data))
	})

	t.Run("emit defaults", func(t *testing.T) {
		p := newTestCodec(t, WithEmitDefaults())
		data, err := p.EncodeJSON(map[string]interface{}{}, orderIDType)
		require.NoError(t, err)
		require.JSONEq(t, `{"subaccountId":null,"clientId":0,"orderFlags":0,"clobPairId":0}`, string(data))
	})

	t.Run("reject unknown", func(t *testing.T) {
		lenient := newTestCodec(t)
		_, err := lenient.DecodeJSON([]byte(`{"clientId":1,"extra":true}`), orderIDType)
		require.NoError(t, err)

		strict := newTestCodec(t, WithRejectUnknown())
		_, err = strict.DecodeJSON([]byte(`{"clientId":1,"extra":true}`), orderIDType)
		require.Error(t, err)
	})
}

type subaccountID struct {
	Owner  string
	Number int
}

type orderID struct {
	SubaccountID *subaccountID `protocodec:"subaccount_id"`
	ClientID     uint32        `json:"clientId,omitempty"`
	OrderFlags   uint32
	ClobPairID   uint32
}

type order struct {
	OrderID          orderID
	Side             codec.EnumValue
	Quantums         uint64
	GoodTilBlock     *uint32
	GoodTilBlockTime *uint32
	TimeInForce      string
	ConditionType    int32
	ReduceOnly       bool
}

type snapshot struct {
	ClobPairID     uint32
	Orders         []order
	OpenInterest   map[string]uint64
	ByClientID     map[uint32]orderID
	PriceLevels    []uint64
	UnpackedLevels interface{}
	Note           *string
	TakenAt        map[string]interface{}
	Status         string
	Checksum       []byte `json:"crc"`
	Ignored        string `protocodec:"-"`
	unexported     int
}

func TestUnmarshalStruct(t *testing.T) {
	p := newTestCodec(t)

	data, err := p.Marshal(sampleSnapshot(), snapshotType)
	require.NoError(t, err)

	got := snapshot{Ignored: "keep", unexported: 1}
	require.NoError(t, p.Unmarshal(data, snapshotType, &got))

	goodTil := uint32(40)
	note := ""
	require.Equal(t, snapshot{
		ClobPairID: 7,
		Orders: []order{{
			OrderID: orderID{
				SubaccountID: &subaccountID{Owner: "dydx1abc", Number: 2},
				ClientID:     11,
				ClobPairID:   7,
			},
			Side:          codec.EnumValue{Number: 2, Name: "SIDE_SELL"},
			Quantums:      1000,
			GoodTilBlock:  &goodTil,
			TimeInForce:   "TIME_IN_FORCE_IOC",
			ConditionType: 1,
		}},
		OpenInterest:   map[string]uint64{"BTC-USD": 10, "ETH-USD": 0},
		ByClientID:     map[uint32]orderID{11: {ClientID: 11, ClobPairID: 7}},
		PriceLevels:    []uint64{100, 101},
		UnpackedLevels: []interface{}{uint64(5)},
		Note:           &note,
		TakenAt:        map[string]interface{}{"seconds": int64(1700000000), "nanos": int32(5)},
		Status:         "CLOB_PAIR_STATUS_ACTIVE",
		Checksum:       []byte{1, 2},
		Ignored:        "keep",
		unexported:     1,
	}, got)
}

func TestUnmarshalStructErrors(t *testing.T) {
	p := newTestCodec(t)

	data, err := p.Marshal(map[string]interface{}{"client_id": 300}, orderIDType)
	require.NoError(t, err)

	t.Run("not a pointer", func(t *testing.T) {
		require.Error(t, p.Unmarshal(data, orderIDType, orderID{}))
	})

	t.Run("nil pointer", func(t *testing.T) {
		var v *orderID
		require.Error(t, p.Unmarshal(data, orderIDType, v))
	})

	t.Run("overflow", func(t *testing.T) {
		var v struct{ ClientID uint8 }
		err := p.Unmarshal(data, orderIDType, &v)
		require.Error(t, err)
		require.Contains(t, err.Error(), "overflows")
	})

	t.Run("wrong kind", func(t *testing.T) {
		var v struct{ ClientID string }
		require.Error(t, p.Unmarshal(data, orderIDType, &v))
	})
}

func TestSnakeCase(t *testing.T) {
	for in, want := range map[string]string{
		"Owner":          "owner",
		"ClobPairID":     "clob_pair_id",
		"HTTPServer":     "http_server",
		"ByClientID":     "by_client_id",
		"UnpackedLevels": "unpacked_levels",
	} {
		require.Equal(t, want, snakeCase(in), in)
	}
}

func TestPackUnpackAny(t *testing.T) {
	p := newTestCodec(t)

	anyMsg, err := p.PackAny(orderIDType, map[string]interface{}{"client_id": 5, "clob_pair_id": 2})
	require.NoError(t, err)
	require.Equal(t, "/"+orderIDType, anyMsg["type_url"])
	require.Equal(t, []byte{0x15, 5, 0, 0, 0, 0x20, 2}, anyMsg["value"])

	name, msg, err := p.UnpackAny(anyMsg)
	require.NoError(t, err)
	require.Equal(t, orderIDType, name)
	require.Equal(t, uint32(5), msg["client_id"])
	require.Equal(t, uint32(2), msg["clob_pair_id"])

	// The Any value can itself be encoded as google.protobuf.Any.
	data, err := p.Marshal(anyMsg, "google.protobuf.Any")
	require.NoError(t, err)
	decoded, err := p.Parse(data, "google.protobuf.Any")
	require.NoError(t, err)
	name, _, err = p.UnpackAny(decoded)
	require.NoError(t, err)
	require.Equal(t, orderIDType, name)

	t.Run("json name key", func(t *testing.T) {
		_, msg, err := p.UnpackAny(map[string]interface{}{"typeUrl": "type.googleapis.com/" + orderIDType})
		require.NoError(t, err)
		require.Equal(t, uint32(0), msg["client_id"])
	})

	t.Run("missing type url", func(t *testing.T) {
		_, _, err := p.UnpackAny(map[string]interface{}{"value": []byte{}})
		require.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, err := p.UnpackAny(map[string]interface{}{"type_url": "/nope.Missing"})
		require.ErrorIs(t, err, registry.ErrNotFound)
	})

	t.Run("bad value", func(t *testing.T) {
		_, _, err := p.UnpackAny(map[string]interface{}{"type_url": "/" + orderIDType, "value": "CFo="})
		require.Error(t, err)
	})
}

func TestAnyJSONUsesRegistry(t *testing.T) {
	p := newTestCodec(t)

	src := []byte(`syntax = "proto3";
package test.envelope;

import "google/protobuf/any.proto";

message Envelope {
  google.protobuf.Any payload = 1;
}
`)
	require.NoError(t, p.LoadSource("test/envelope.proto", src))

	anyMsg, err := p.PackAny(orderIDType, map[string]interface{}{"client_id": 5})
	require.NoError(t, err)
	data, err := p.EncodeJSON(map[string]interface{}{"payload": anyMsg}, "test.envelope.Envelope")
	require.NoError(t, err)
	require.JSONEq(t, `{"payload":{"@type":"/`+orderIDType+`","clientId":5}}`, string(data))

	got, err := p.DecodeJSON(data, "test.envelope.Envelope")
	require.NoError(t, err)
	require.Equal(t, anyMsg["value"], got["payload"].(codec.Message)["value"])
}

func TestListings(t *testing.T) {
	p := newTestCodec(t)

	require.Contains(t, p.ListMessages(), snapshotType)
	require.Contains(t, p.ListMessages(), "google.protobuf.Timestamp")
	require.NotContains(t, p.ListMessages(), snapshotType+".OpenInterestEntry")
	require.Contains(t, p.ListEnums(), "dydxprotocol.indexer.protocol.v1.IndexerOrder.Side")
	require.Equal(t, []string{"dydxprotocol.indexer.events.IndexerEvents"}, p.ListServices())
	require.NotNil(t, p.Registry())
}

func TestWithMaxDepth(t *testing.T) {
	p := newTestCodec(t, WithMaxDepth(1))

	_, err := p.Marshal(map[string]interface{}{
		"orders": []interface{}{map[string]interface{}{
			"order_id": map[string]interface{}{"client_id": 1},
		}},
	}, snapshotType)
	require.ErrorIs(t, err, codec.ErrMaxDepth)
}
