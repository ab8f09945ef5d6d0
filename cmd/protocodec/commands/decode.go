package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/wire"
)

// decodeOptions holds options for the decode command.
type decodeOptions struct {
	input        string
	delimited    bool
	protoNames   bool
	emitDefaults bool
}

func newDecodeCommand(env *environment) *cobra.Command {
	opts := &decodeOptions{}

	cmd := &cobra.Command{
		Use:   "decode <type> [file]",
		Short: "Decode protobuf bytes to JSON",
		Long: `Decode protobuf bytes read from a file or stdin and print them as protobuf JSON.

With --delimited the input is a stream of varint length prefixed messages and
one JSON document is printed per message.

Examples:
  # Decode a hex dump
  protocodec decode --schema ./proto IndexerOrder order.hex

  # Decode a raw stream of delimited events
  protocodec decode --schema ./proto --input raw --delimited OrderPlaceV1 < events.bin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, env, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", formatHex, "input format: hex, base64 or raw")
	cmd.Flags().BoolVar(&opts.delimited, "delimited", false, "input is a stream of length prefixed messages")
	cmd.Flags().BoolVar(&opts.protoNames, "proto-names", false, "use proto field names in JSON output")
	cmd.Flags().BoolVar(&opts.emitDefaults, "emit-defaults", false, "include fields holding default values")

	return cmd
}

func runDecode(cmd *cobra.Command, env *environment, opts *decodeOptions, args []string) error {
	messageType := args[0]
	raw, err := readInput(cmd, args[1:])
	if err != nil {
		return err
	}
	data, err := decodeBytes(opts.input, raw)
	if err != nil {
		return err
	}

	var codecOpts []protocodec.Option
	if opts.protoNames {
		codecOpts = append(codecOpts, protocodec.WithProtoNames())
	}
	if opts.emitDefaults {
		codecOpts = append(codecOpts, protocodec.WithEmitDefaults())
	}
	p, err := env.codec(codecOpts...)
	if err != nil {
		return err
	}

	emit := func(msg []byte) error {
		tree, err := p.Parse(msg, messageType)
		if err != nil {
			return err
		}
		out, err := p.EncodeJSON(tree, messageType)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}

	if !opts.delimited {
		return emit(data)
	}
	r := wire.NewDelimitedReader(bytes.NewReader(data), 0)
	for n := 0; ; n++ {
		msg, err := r.Next()
		if errors.Is(err, io.EOF) {
			env.logger.Debug().Int("messages", n).Msg("decoded stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("message %d: %w", n, err)
		}
		if err := emit(msg); err != nil {
			return fmt.Errorf("message %d: %w", n, err)
		}
	}
}
