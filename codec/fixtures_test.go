package codec

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/anirudhraja/protocodec/schema"
)

// Descriptors modelled on the dYdX indexer protocol.
var (
	sideEnum = schema.MustEnum("dydxprotocol.indexer.protocol.v1.IndexerOrder.Side",
		schema.Value("SIDE_UNSPECIFIED", 0),
		schema.Value("SIDE_BUY", 1),
		schema.Value("SIDE_SELL", 2),
	)

	timeInForceEnum = schema.MustEnum("dydxprotocol.indexer.protocol.v1.IndexerOrder.TimeInForce",
		schema.Value("TIME_IN_FORCE_UNSPECIFIED", 0),
		schema.Value("TIME_IN_FORCE_IOC", 1),
		schema.Value("TIME_IN_FORCE_POST_ONLY", 2),
		schema.Value("TIME_IN_FORCE_FILL_OR_KILL", 3),
	)

	subaccountIDType = schema.MustMessage("dydxprotocol.indexer.protocol.v1.IndexerSubaccountId",
		schema.NewScalarField("owner", 1, schema.TypeString),
		schema.NewScalarField("number", 2, schema.TypeUint32),
	)

	orderIDType = schema.MustMessage("dydxprotocol.indexer.protocol.v1.IndexerOrderId",
		schema.NewMessageField("subaccount_id", 1, subaccountIDType),
		schema.NewScalarField("client_id", 2, schema.TypeFixed32),
		schema.NewScalarField("order_flags", 3, schema.TypeUint32),
		schema.NewScalarField("clob_pair_id", 4, schema.TypeUint32),
	)

	orderType = schema.MustMessage("dydxprotocol.indexer.protocol.v1.IndexerOrder",
		schema.NewMessageField("order_id", 1, orderIDType),
		schema.NewEnumField("side", 2, sideEnum),
		schema.NewScalarField("quantums", 3, schema.TypeUint64),
		schema.NewScalarField("subticks", 4, schema.TypeUint64),
		schema.NewScalarField("good_til_block", 5, schema.TypeUint32).InOneof("good_til_oneof"),
		schema.NewScalarField("good_til_block_time", 6, schema.TypeFixed32).InOneof("good_til_oneof"),
		schema.NewEnumField("time_in_force", 7, timeInForceEnum),
		schema.NewScalarField("reduce_only", 8, schema.TypeBool),
		schema.NewScalarField("client_metadata", 9, schema.TypeUint32),
		schema.NewScalarField("condition_trigger_subticks", 11, schema.TypeUint64),
	)

	// scalarsType has one field of every primitive type in every shape.
	scalarsType = schema.MustMessage("test.Scalars",
		schema.NewScalarField("f_int32", 1, schema.TypeInt32),
		schema.NewScalarField("f_int64", 2, schema.TypeInt64),
		schema.NewScalarField("f_uint32", 3, schema.TypeUint32),
		schema.NewScalarField("f_uint64", 4, schema.TypeUint64),
		schema.NewScalarField("f_sint32", 5, schema.TypeSint32),
		schema.NewScalarField("f_sint64", 6, schema.TypeSint64),
		schema.NewScalarField("f_fixed32", 7, schema.TypeFixed32),
		schema.NewScalarField("f_fixed64", 8, schema.TypeFixed64),
		schema.NewScalarField("f_sfixed32", 9, schema.TypeSfixed32),
		schema.NewScalarField("f_sfixed64", 10, schema.TypeSfixed64),
		schema.NewScalarField("f_float", 11, schema.TypeFloat),
		schema.NewScalarField("f_double", 12, schema.TypeDouble),
		schema.NewScalarField("f_bool", 13, schema.TypeBool),
		schema.NewScalarField("f_string", 14, schema.TypeString),
		schema.NewScalarField("f_bytes", 15, schema.TypeBytes),
		schema.NewEnumField("f_enum", 16, sideEnum),
		schema.NewScalarField("opt_int32", 17, schema.TypeInt32).Optional(),
		schema.NewScalarField("opt_string", 18, schema.TypeString).Optional(),
		schema.NewScalarField("packed_int32", 20, schema.TypeInt32).Repeated(),
		schema.NewScalarField("packed_sint64", 21, schema.TypeSint64).Repeated(),
		schema.NewScalarField("packed_double", 22, schema.TypeDouble).Repeated(),
		schema.NewScalarField("unpacked_uint32", 23, schema.TypeUint32).Repeated().Unpacked(),
		schema.NewEnumField("packed_enum", 24, sideEnum).Repeated(),
		schema.NewScalarField("strings", 25, schema.TypeString).Repeated(),
		schema.NewMessageField("ids", 26, subaccountIDType).Repeated(),
		schema.NewMapField("test.Scalars", "labels", 30, schema.TypeString, schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}),
		schema.NewMapField("test.Scalars", "by_number", 31, schema.TypeInt32, schema.FieldType{Kind: schema.KindMessage, Message: subaccountIDType}),
	)
)

// nodeType is self-referential.
var nodeType = func() *schema.Message {
	m := &schema.Message{FullName: "test.Node"}
	m.Fields = []*schema.Field{
		schema.NewScalarField("value", 1, schema.TypeInt32),
		schema.NewMessageField("child", 2, m),
	}
	if err := m.Build(); err != nil {
		panic(err)
	}
	return m
}()

func chain(n int) Message {
	var m Message
	for i := 0; i < n; i++ {
		next := Message{"value": int32(i)}
		if m != nil {
			next["child"] = m
		}
		m = next
	}
	return m
}

var cmpOpts = []cmp.Option{cmpopts.EquateEmpty(), cmpopts.EquateNaNs()}

func sampleOrder() Message {
	return Message{
		"order_id": Message{
			"subaccount_id": Message{"owner": "dydx1qyfk", "number": uint32(0)},
			"client_id":     uint32(1234567),
			"order_flags":   uint32(64),
			"clob_pair_id":  uint32(1),
		},
		"side":                       EnumValue{Number: 1, Name: "SIDE_BUY"},
		"quantums":                   uint64(1000000),
		"subticks":                   uint64(200000000),
		"good_til_block":             nil,
		"good_til_block_time":        uint32(1700000000),
		"time_in_force":              EnumValue{Number: 2, Name: "TIME_IN_FORCE_POST_ONLY"},
		"reduce_only":                false,
		"client_metadata":            uint32(0),
		"condition_trigger_subticks": uint64(0),
	}
}
