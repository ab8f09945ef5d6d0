package registry

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/schema"
)

func loadTestdata(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.LoadSchema("testdata"); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	return r
}

func TestNewRegistryHasWellKnownTypes(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"google.protobuf.Any",
		"google.protobuf.Timestamp",
		"google.protobuf.Duration",
		"google.protobuf.Empty",
		"google.protobuf.FieldMask",
		"google.protobuf.Struct",
		"google.protobuf.Value",
		"google.protobuf.ListValue",
		"google.protobuf.Int64Value",
		"google.protobuf.BytesValue",
	} {
		if _, err := r.GetMessage(name); err != nil {
			t.Errorf("GetMessage(%s): %v", name, err)
		}
	}
	if _, err := r.GetEnum("google.protobuf.NullValue"); err != nil {
		t.Errorf("GetEnum(NullValue): %v", err)
	}

	value, _ := r.GetMessage("google.protobuf.Value")
	if o := value.OneofByName("kind"); o == nil || len(o.Fields) != 6 {
		t.Errorf("Value.kind oneof = %+v, want 6 members", o)
	}
	st, _ := r.GetMessage("google.protobuf.Struct")
	if f := st.FieldByName("fields"); f == nil || !f.IsMap() || f.Type.Message.MapValue().Type.Message != value {
		t.Errorf("Struct.fields is not map<string, Value>: %+v", f)
	}

	if !IsWellKnown("google/protobuf/struct.proto") || IsWellKnown("google/protobuf/descriptor.proto") {
		t.Error("IsWellKnown mismatch")
	}
}

func TestLoadSchema_NonExistentPath(t *testing.T) {
	err := NewRegistry().LoadSchema("/nonexistent/path")
	if err == nil || !strings.Contains(err.Error(), "path does not exist") {
		t.Errorf("Expected 'path does not exist' error, got: %v", err)
	}
}

func TestLoadSchema_NonProtoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := NewRegistry().LoadSchema(path)
	if err == nil || !strings.Contains(err.Error(), "is not a .proto file") {
		t.Errorf("Expected 'is not a .proto file' error, got: %v", err)
	}
}

func TestLoadSchema_SingleFileFollowsImports(t *testing.T) {
	r := NewRegistry(WithImportPaths("testdata"))
	if err := r.LoadSchema("testdata/dydxprotocol/indexer/events/events.proto"); err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	for _, name := range []string{
		"dydxprotocol.indexer.events.OrderPlaceV1",
		"dydxprotocol.indexer.protocol.v1.IndexerOrder",
		"dydxprotocol.indexer.protocol.v1.IndexerSubaccountId",
	} {
		if _, err := r.GetMessage(name); err != nil {
			t.Errorf("GetMessage(%s): %v", name, err)
		}
	}
	if _, err := r.GetMessage("legacy.Quote"); !errors.Is(err, ErrNotFound) {
		t.Errorf("legacy.Quote should not be loaded, got %v", err)
	}
}

func TestLoadSchema_Directory(t *testing.T) {
	r := loadTestdata(t)

	order, err := r.GetMessage("dydxprotocol.indexer.protocol.v1.IndexerOrder")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	orderID, _ := r.GetMessage("dydxprotocol.indexer.protocol.v1.IndexerOrderId")
	side, _ := r.GetEnum("dydxprotocol.indexer.protocol.v1.IndexerOrder.Side")

	if f := order.FieldByName("order_id"); f.Type.Message != orderID || !f.Presence {
		t.Errorf("order_id = %+v, want a reference to IndexerOrderId with presence", f.Type)
	}
	if f := order.FieldByName("side"); f.Type.Kind != schema.KindEnum || f.Type.Enum != side || f.Presence {
		t.Errorf("side = %+v, want the nested Side enum without presence", f.Type)
	}
	o := order.OneofByName("good_til_oneof")
	if o == nil || len(o.Fields) != 2 || o.Fields[0].Name != "good_til_block" {
		t.Fatalf("good_til_oneof = %+v", o)
	}
	if f := order.FieldByNumber(6); f.Oneof != "good_til_oneof" || !f.Presence || f.Type.PrimitiveType != schema.TypeFixed32 {
		t.Errorf("good_til_block_time = %+v", f)
	}

	tif, _ := r.GetEnum("IndexerOrder.TimeInForce")
	if !tif.AllowAlias || tif.ToJSON(3) != "TIME_IN_FORCE_FILL_OR_KILL" || tif.FromJSON("TIME_IN_FORCE_FOK") != 3 {
		t.Errorf("TimeInForce aliases not honoured: %+v", tif)
	}
}

func TestLoadSchema_FieldShapes(t *testing.T) {
	r := loadTestdata(t)
	snap, err := r.GetMessage("OrderBookSnapshot")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}

	tests := []struct {
		field                     string
		repeated, packed, hasPres bool
		isMap                     bool
	}{
		{field: "clob_pair_id"},
		{field: "orders", repeated: true},
		{field: "open_interest", repeated: true, isMap: true},
		{field: "by_client_id", repeated: true, isMap: true},
		{field: "price_levels", repeated: true, packed: true},
		{field: "unpacked_levels", repeated: true},
		{field: "note", hasPres: true},
		{field: "taken_at", hasPres: true},
		{field: "status"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := snap.FieldByName(tt.field)
			if f == nil {
				t.Fatalf("field %s missing", tt.field)
			}
			got := [4]bool{f.IsRepeated(), f.Packed, f.Presence, f.IsMap()}
			want := [4]bool{tt.repeated, tt.packed, tt.hasPres, tt.isMap}
			if got != want {
				t.Errorf("repeated/packed/presence/map = %v, want %v", got, want)
			}
		})
	}

	entry := snap.FieldByName("by_client_id").Type.Message
	if entry.FullName != "dydxprotocol.indexer.protocol.v1.OrderBookSnapshot.ByClientIdEntry" || !entry.MapEntry {
		t.Errorf("map entry = %s (MapEntry %v)", entry.FullName, entry.MapEntry)
	}
	if entry.MapKey().Type.PrimitiveType != schema.TypeUint32 || entry.MapValue().Type.Message.Name != "IndexerOrderId" {
		t.Errorf("map entry key/value = %+v / %+v", entry.MapKey().Type, entry.MapValue().Type)
	}

	if f := snap.FieldByName("crc"); f == nil || f.Name != "checksum" {
		t.Errorf("json_name lookup = %+v", f)
	}
	ts, _ := r.GetMessage("google.protobuf.Timestamp")
	if snap.FieldByName("taken_at").Type.Message != ts {
		t.Error("taken_at does not reference the registered Timestamp")
	}

	for _, name := range r.ListMessages() {
		if strings.HasSuffix(name, "Entry") {
			t.Errorf("ListMessages includes map entry %s", name)
		}
	}
}

func TestLoadSchema_Proto2(t *testing.T) {
	r := loadTestdata(t)
	quote, err := r.GetMessage("legacy.Quote")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	symbol, price, venue := quote.FieldByName("symbol"), quote.FieldByName("price"), quote.FieldByName("venue")
	if symbol.Label != schema.LabelRequired || !symbol.Presence {
		t.Errorf("symbol = %+v, want required with presence", symbol)
	}
	if !price.Presence || price.Default != "-1" {
		t.Errorf("price = %+v, want presence and default -1", price)
	}
	if strings.Trim(venue.Default, `"`) != "dex" {
		t.Errorf("venue default = %q", venue.Default)
	}
	if quote.FieldByName("sizes").Packed || !quote.FieldByName("packed_sizes").Packed {
		t.Error("proto2 repeated fields should only pack with [packed = true]")
	}
}

func TestServices(t *testing.T) {
	r := loadTestdata(t)
	svc, err := r.GetService("IndexerEvents")
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	want := []*schema.Method{
		{Name: "Place", InputType: "dydxprotocol.indexer.events.OrderPlaceV1", OutputType: "dydxprotocol.indexer.events.OrderPlaceV1"},
		{Name: "Watch", InputType: "dydxprotocol.indexer.protocol.v1.IndexerSubaccountId", OutputType: "dydxprotocol.indexer.events.SubaccountUpdateEventV1", ServerStreaming: true},
	}
	if diff := cmp.Diff(want, svc.Methods); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dydxprotocol.indexer.events.IndexerEvents"}, r.ListServices()); diff != "" {
		t.Errorf("ListServices mismatch (-want +got):\n%s", diff)
	}
}

func TestLookups(t *testing.T) {
	r := loadTestdata(t)

	if _, err := r.GetMessage("NoSuchMessage"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMessage(NoSuchMessage) error = %v, want ErrNotFound", err)
	}
	if _, err := r.GetEnum("NoSuchEnum"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEnum error = %v, want ErrNotFound", err)
	}
	if _, err := r.GetService("NoSuchService"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetService error = %v, want ErrNotFound", err)
	}

	m, err := r.GetMessage(".dydxprotocol.indexer.protocol.v1.IndexerOrderId")
	if err != nil || m.Name != "IndexerOrderId" {
		t.Errorf("leading dot lookup = %v, %v", m, err)
	}

	m, err = r.MessageByTypeURL("type.googleapis.com/dydxprotocol.indexer.protocol.v1.IndexerOrder")
	if err != nil || m.Name != "IndexerOrder" {
		t.Errorf("MessageByTypeURL = %v, %v", m, err)
	}
	if _, err := r.MessageByTypeURL("type.googleapis.com/IndexerOrder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("type URLs must carry the full name, got %v", err)
	}

	files := r.ListFiles()
	if !contains(files, "dydxprotocol/indexer/protocol/v1/clob.proto") || !contains(files, "google/protobuf/any.proto") {
		t.Errorf("ListFiles = %v", files)
	}
	if enums := r.ListEnums(); !contains(enums, "dydxprotocol.indexer.protocol.v1.ClobPairStatus") {
		t.Errorf("ListEnums = %v", enums)
	}
}

func TestLoadSource(t *testing.T) {
	r := loadTestdata(t)
	src := `syntax = "proto3";
package market.v1;
import "dydxprotocol/indexer/protocol/v1/clob.proto";
message Fill {
  dydxprotocol.indexer.protocol.v1.IndexerOrderId maker = 1;
  dydxprotocol.indexer.protocol.v1.IndexerOrderId taker = 2;
  uint64 fill_amount = 3;
}
`
	if err := r.LoadSource("market/v1/fill.proto", []byte(src)); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	fill, err := r.GetMessage("market.v1.Fill")
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if fill.FieldByName("maker").Type.Message.FullName != "dydxprotocol.indexer.protocol.v1.IndexerOrderId" {
		t.Errorf("maker type = %+v", fill.FieldByName("maker").Type)
	}

	if err := r.LoadSource("market/v1/fill.proto", []byte(src)); err == nil {
		t.Error("loading the same file twice should fail")
	}
}

func TestLoadIsAtomic(t *testing.T) {
	r := NewRegistry()
	src := `syntax = "proto3";
package broken;
message Good { int32 a = 1; }
message Bad { Missing m = 1; }
`
	err := r.LoadSource("broken.proto", []byte(src))
	if err == nil || !strings.Contains(err.Error(), "unable to resolve type name Missing") {
		t.Fatalf("LoadSource error = %v", err)
	}
	if _, err := r.GetMessage("broken.Good"); !errors.Is(err, ErrNotFound) {
		t.Errorf("broken.Good was registered by a failed load")
	}
}

func TestLoadRejectsInvalidSchemas(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"duplicate number", `syntax = "proto3"; message A { int32 a = 1; int32 b = 1; }`, "share number 1"},
		{"reserved number", `syntax = "proto3"; message A { int32 a = 19000; }`, "invalid number"},
		{"unrecognized enum number", `syntax = "proto3"; enum E { E_ZERO = 0; E_BAD = -1; }`, "reserved unrecognized"},
		{"alias without allow_alias", `syntax = "proto3"; enum E { E_ZERO = 0; E_ALSO = 0; }`, "allow_alias"},
		{"duplicate symbol", `syntax = "proto3"; package google.protobuf; message Any { int32 a = 1; }`, "duplicate symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().LoadSource("x.proto", []byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestRegisterBuiltDescriptors(t *testing.T) {
	r := NewRegistry()
	side := schema.MustEnum("demo.Side", schema.Value("SIDE_UNSPECIFIED", 0), schema.Value("SIDE_BUY", 1))
	order := schema.MustMessage("demo.Order",
		schema.NewEnumField("side", 1, side),
		schema.NewMapField("demo.Order", "tags", 2, schema.TypeString, schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.TypeString}),
	)
	if err := r.Register(&schema.File{Name: "demo.proto", Package: "demo", Messages: []*schema.Message{order}, Enums: []*schema.Enum{side}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got, err := r.GetMessage("demo.Order"); err != nil || got != order {
		t.Errorf("GetMessage = %v, %v", got, err)
	}
	if _, err := r.GetMessage("demo.Order.TagsEntry"); err != nil {
		t.Errorf("map entry not registered: %v", err)
	}
}

func TestConcurrentReadsDuringLoad(t *testing.T) {
	r := NewRegistry(WithImportPaths("testdata"))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = r.GetMessage("google.protobuf.Timestamp")
				_ = r.ListMessages()
			}
		}()
	}
	if err := r.LoadSchema("testdata/dydxprotocol/indexer/protocol/v1/clob.proto"); err != nil {
		t.Errorf("LoadSchema: %v", err)
	}
	wg.Wait()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestMissingImportLogLevels(t *testing.T) {
	var buf bytes.Buffer
	r := NewRegistry(WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	src := `syntax = "proto3";
package test.imports;

import "gogoproto/gogo.proto";
import "vendor/missing.proto";

message Plain {
  string name = 1;
}
`
	if err := r.LoadSource("imports.proto", []byte(src)); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}

	levels := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, "import not found") {
			continue
		}
		for _, imp := range []string{"gogoproto/gogo.proto", "vendor/missing.proto"} {
			if strings.Contains(line, `"import":"`+imp+`"`) {
				got := "none"
				for _, l := range []zerolog.Level{zerolog.DebugLevel, zerolog.WarnLevel} {
					if strings.Contains(line, `"level":"`+l.String()+`"`) {
						got = l.String()
					}
				}
				levels[imp] = got
			}
		}
	}
	want := map[string]string{"gogoproto/gogo.proto": "debug", "vendor/missing.proto": "warn"}
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Errorf("import log levels mismatch (-want +got):\n%s", diff)
	}
}
