package commands

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Byte formats accepted by --input and --output.
const (
	formatHex    = "hex"
	formatBase64 = "base64"
	formatRaw    = "raw"
)

// readInput reads the file named by args, or stdin when args is empty or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func decodeBytes(format string, data []byte) ([]byte, error) {
	switch format {
	case formatRaw:
		return data, nil
	case formatHex:
		out, err := hex.DecodeString(string(bytes.Join(bytes.Fields(data), nil)))
		if err != nil {
			return nil, fmt.Errorf("invalid hex input: %w", err)
		}
		return out, nil
	case formatBase64:
		out, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data)))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 input: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown input format %q: want hex, base64 or raw", format)
}

func encodeBytes(format string, w io.Writer, data []byte) error {
	var err error
	switch format {
	case formatRaw:
		_, err = w.Write(data)
	case formatHex:
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	case formatBase64:
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(data))
	default:
		return fmt.Errorf("unknown output format %q: want hex, base64 or raw", format)
	}
	return err
}
