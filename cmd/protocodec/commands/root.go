// Package commands implements the protocodec CLI commands.
package commands

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anirudhraja/protocodec"
)

const envPrefix = "PROTOCODEC"

// Persistent flag names. They double as config file keys and, upper-cased
// with '-' replaced by '_', as PROTOCODEC_* environment variables.
const (
	flagSchema    = "schema"
	flagProtoPath = "proto-path"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagConfig    = "config"
)

// environment is the state shared by all subcommands of one root command.
type environment struct {
	v      *viper.Viper
	logger zerolog.Logger
}

// NewRootCommand creates the protocodec root command with all subcommands.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	env := &environment{v: viper.New(), logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "protocodec",
		Short: "Decode and encode protobuf messages using .proto schemas",
		Long: `protocodec reads .proto files at runtime and converts between the protobuf
binary encoding and protobuf JSON without generated code.

Settings are read from flags, then PROTOCODEC_* environment variables, then
the file given with --config.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringSlice(flagSchema, nil, ".proto file or directory to load (repeatable)")
	flags.StringSliceP(flagProtoPath, "I", nil, "directory searched for imports (repeatable)")
	flags.String(flagLogLevel, "warn", "log level: trace, debug, info, warn, error")
	flags.String(flagLogFormat, "console", "log format: console or json")
	flags.String(flagConfig, "", "config file (yaml, json or toml)")

	cmd.AddCommand(
		newDecodeCommand(env),
		newEncodeCommand(env),
		newListCommand(env),
		NewVersionCommand(version, commit, buildDate),
	)
	return cmd
}

// setup binds the flags of the running command, reads the config file and
// builds the logger.
func (e *environment) setup(cmd *cobra.Command) error {
	// cmd.Flags() includes the persistent flags of the parents.
	if err := e.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	e.v.SetEnvPrefix(envPrefix)
	e.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	e.v.AutomaticEnv()

	if path := e.v.GetString(flagConfig); path != "" {
		e.v.SetConfigFile(path)
		if err := e.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	logger, err := newLogger(cmd.ErrOrStderr(), e.v.GetString(flagLogFormat), e.v.GetString(flagLogLevel))
	if err != nil {
		return err
	}
	e.logger = logger
	if path := e.v.ConfigFileUsed(); path != "" {
		e.logger.Debug().Str("file", path).Msg("loaded config")
	}
	return nil
}

// codec builds a Protocodec and loads every configured schema.
func (e *environment) codec(opts ...protocodec.Option) (*protocodec.Protocodec, error) {
	opts = append([]protocodec.Option{
		protocodec.WithLogger(e.logger),
		protocodec.WithImportPaths(e.v.GetStringSlice(flagProtoPath)...),
	}, opts...)
	p := protocodec.New(opts...)

	schemas := e.v.GetStringSlice(flagSchema)
	if len(schemas) == 0 {
		e.logger.Warn().Msg("no --schema given, only google.protobuf types are available")
	}
	for _, path := range schemas {
		if err := p.LoadSchema(path); err != nil {
			return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
		}
		e.logger.Debug().Str("schema", path).Msg("loaded schema")
	}
	return p, nil
}
