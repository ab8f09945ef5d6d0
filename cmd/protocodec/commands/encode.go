package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/anirudhraja/protocodec/wire"
)

// encodeOptions holds options for the encode command.
type encodeOptions struct {
	output    string
	delimited bool
}

func newEncodeCommand(env *environment) *cobra.Command {
	opts := &encodeOptions{}

	cmd := &cobra.Command{
		Use:   "encode <type> [file]",
		Short: "Encode protobuf JSON to protobuf bytes",
		Long: `Encode a protobuf JSON document read from a file or stdin.

With --delimited the input may hold any number of JSON documents; each is
written with a varint length prefix, so the output can be read back with
"decode --delimited".

Examples:
  protocodec encode --schema ./proto IndexerOrderId <<< '{"clientId": 7}'
  protocodec encode --schema ./proto --output raw --delimited OrderPlaceV1 events.ndjson > events.bin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, env, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.output, "output", formatHex, "output format: hex, base64 or raw")
	cmd.Flags().BoolVar(&opts.delimited, "delimited", false, "write length prefixed messages")

	return cmd
}

func runEncode(cmd *cobra.Command, env *environment, opts *encodeOptions, args []string) error {
	messageType := args[0]
	input, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	p, err := env.codec()
	if err != nil {
		return err
	}

	encode := func(doc []byte) ([]byte, error) {
		tree, err := p.DecodeJSON(doc, messageType)
		if err != nil {
			return nil, err
		}
		return p.Marshal(tree, messageType)
	}

	if !opts.delimited {
		out, err := encode(input)
		if err != nil {
			return err
		}
		return encodeBytes(opts.output, cmd.OutOrStdout(), out)
	}

	var (
		buf bytes.Buffer
		n   int
	)
	w := wire.NewDelimitedWriter(&buf)
	gjson.ForEachLine(string(input), func(line gjson.Result) bool {
		var out []byte
		out, err = encode([]byte(line.Raw))
		if err == nil {
			err = w.Write(out)
		}
		if err != nil {
			err = fmt.Errorf("message %d: %w", n, err)
			return false
		}
		n++
		return true
	})
	if err != nil {
		return err
	}
	env.logger.Debug().Int("messages", n).Msg("encoded stream")
	return encodeBytes(opts.output, cmd.OutOrStdout(), buf.Bytes())
}
