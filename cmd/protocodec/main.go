// Package main provides the protocodec CLI for decoding and encoding protobuf
// messages against .proto schemas loaded at runtime.
package main

import (
	"fmt"
	"os"

	"github.com/anirudhraja/protocodec/cmd/protocodec/commands"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd := commands.NewRootCommand(version, commit, buildDate)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
