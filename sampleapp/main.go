package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/codec"
	"github.com/anirudhraja/protocodec/wire"
)

const orderBookProto = `syntax = "proto3";
package sample.orderbook.v1;

import "google/protobuf/timestamp.proto";

message SubaccountId {
  string owner = 1;
  uint32 number = 2;
}

message Order {
  enum Side {
    SIDE_UNSPECIFIED = 0;
    SIDE_BUY = 1;
    SIDE_SELL = 2;
  }
  SubaccountId subaccount_id = 1;
  fixed32 client_id = 2;
  Side side = 3;
  uint64 quantums = 4;
  uint64 subticks = 5;
  oneof good_til_oneof {
    uint32 good_til_block = 6;
    fixed32 good_til_block_time = 7;
  }
  bool reduce_only = 8;
}

message OrderBook {
  uint32 clob_pair_id = 1;
  repeated Order bids = 2;
  repeated Order asks = 3;
  map<string, uint64> open_interest = 4;
  optional string note = 5;
  google.protobuf.Timestamp updated_at = 6;
}
`

// Order mirrors sample.orderbook.v1.Order for Unmarshal.
type Order struct {
	ClientID     uint32
	Side         string
	Quantums     uint64
	Subticks     uint64
	GoodTilBlock *uint32
	ReduceOnly   bool
}

func main() {
	logger := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = "15:04:05.000"
	})).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	proto := protocodec.New(protocodec.WithLogger(logger))
	if err := proto.LoadSource("sample/orderbook/v1/orderbook.proto", []byte(orderBookProto)); err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	fmt.Println("Protocodec Sample App - order book snapshots")
	fmt.Println(strings.Repeat("=", 70))

	book := map[string]interface{}{
		"clob_pair_id": 1,
		"bids": []interface{}{
			map[string]interface{}{
				"subaccount_id":  map[string]interface{}{"owner": "dydx1maker", "number": 0},
				"client_id":      101,
				"side":           "SIDE_BUY",
				"quantums":       uint64(5_000_000),
				"subticks":       uint64(2_650_000_000),
				"good_til_block": 1200,
			},
		},
		"asks": []interface{}{
			map[string]interface{}{
				"subaccount_id":       map[string]interface{}{"owner": "dydx1taker", "number": 1},
				"client_id":           202,
				"side":                2,
				"quantums":            "2500000",
				"subticks":            uint64(2_651_000_000),
				"good_til_block_time": 1700000300,
				"reduce_only":         true,
			},
		},
		"open_interest": map[string]uint64{"BTC-USD": 42},
		"updated_at":    map[string]interface{}{"seconds": 1700000000, "nanos": 250000000},
	}

	demonstrateBinary(proto, book)
	demonstrateJSON(proto, book)
	demonstrateStructs(proto)
	demonstrateAny(proto)
	demonstrateStream(proto)
}

func demonstrateBinary(proto *protocodec.Protocodec, book map[string]interface{}) {
	fmt.Println("\nBinary round trip")
	fmt.Println(strings.Repeat("-", 70))

	data, err := proto.Marshal(book, "OrderBook")
	if err != nil {
		log.Fatalf("Marshal failed: %v", err)
	}
	fmt.Printf("Encoded %d bytes: %x\n", len(data), data)

	decoded, err := proto.Parse(data, "OrderBook")
	if err != nil {
		log.Fatalf("Parse failed: %v", err)
	}
	asks := decoded["asks"].([]interface{})
	ask := asks[0].(codec.Message)
	fmt.Printf("clob_pair_id=%v asks=%d first ask side=%v good_til_block_time=%v\n",
		decoded["clob_pair_id"], len(asks), ask["side"], ask["good_til_block_time"])
	fmt.Printf("note set: %v\n", decoded["note"] != nil)

	// Defaults are filled in for everything not on the wire.
	empty, err := proto.Default("OrderBook")
	if err != nil {
		log.Fatalf("Default failed: %v", err)
	}
	fmt.Printf("default book: clob_pair_id=%v bids=%v note=%v\n", empty["clob_pair_id"], empty["bids"], empty["note"])
}

func demonstrateJSON(proto *protocodec.Protocodec, book map[string]interface{}) {
	fmt.Println("\nProtobuf JSON")
	fmt.Println(strings.Repeat("-", 70))

	out, err := proto.EncodeJSON(book, "OrderBook")
	if err != nil {
		log.Fatalf("EncodeJSON failed: %v", err)
	}
	fmt.Println(string(out))

	back, err := proto.DecodeJSON(out, "OrderBook")
	if err != nil {
		log.Fatalf("DecodeJSON failed: %v", err)
	}
	fmt.Printf("updated_at after JSON: %v\n", back["updated_at"])
}

func demonstrateStructs(proto *protocodec.Protocodec) {
	fmt.Println("\nDecoding into Go structs")
	fmt.Println(strings.Repeat("-", 70))

	data, err := proto.Marshal(map[string]interface{}{
		"client_id":      7,
		"side":           "SIDE_SELL",
		"quantums":       1000,
		"good_til_block": 99,
	}, "Order")
	if err != nil {
		log.Fatalf("Marshal failed: %v", err)
	}

	var order Order
	if err := proto.Unmarshal(data, "Order", &order); err != nil {
		log.Fatalf("Unmarshal failed: %v", err)
	}
	fmt.Printf("%+v good_til_block=%d\n", order, *order.GoodTilBlock)
}

func demonstrateAny(proto *protocodec.Protocodec) {
	fmt.Println("\nAny envelopes")
	fmt.Println(strings.Repeat("-", 70))

	anyMsg, err := proto.PackAny("sample.orderbook.v1.SubaccountId", map[string]interface{}{"owner": "dydx1maker", "number": 3})
	if err != nil {
		log.Fatalf("PackAny failed: %v", err)
	}
	fmt.Printf("type_url=%s value=%x\n", anyMsg["type_url"], anyMsg["value"])

	name, msg, err := proto.UnpackAny(anyMsg)
	if err != nil {
		log.Fatalf("UnpackAny failed: %v", err)
	}
	fmt.Printf("unpacked %s: owner=%v number=%v\n", name, msg["owner"], msg["number"])
}

func demonstrateStream(proto *protocodec.Protocodec) {
	fmt.Println("\nLength delimited stream")
	fmt.Println(strings.Repeat("-", 70))

	var buf bytes.Buffer
	w := wire.NewDelimitedWriter(&buf)
	for i := 1; i <= 3; i++ {
		data, err := proto.Marshal(map[string]interface{}{"client_id": i, "quantums": i * 100}, "Order")
		if err != nil {
			log.Fatalf("Marshal failed: %v", err)
		}
		if err := w.Write(data); err != nil {
			log.Fatalf("Write failed: %v", err)
		}
	}
	fmt.Printf("stream: %x\n", buf.Bytes())

	r := wire.NewDelimitedReader(&buf, 0)
	for {
		data, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Next failed: %v", err)
		}
		msg, err := proto.Parse(data, "Order")
		if err != nil {
			log.Fatalf("Parse failed: %v", err)
		}
		fmt.Printf("order client_id=%v quantums=%v\n", msg["client_id"], msg["quantums"])
	}
}
