package protocodec

import (
	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/codec"
)

type config struct {
	importPaths []string
	logger      zerolog.Logger
	maxDepth    int
	json        codec.JSONOptions
}

// Option configures a Protocodec.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{logger: zerolog.Nop(), maxDepth: codec.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithImportPaths adds directories searched for imported .proto files.
func WithImportPaths(dirs ...string) Option {
	return func(c *config) { c.importPaths = append(c.importPaths, dirs...) }
}

// WithLogger sets the logger shared by the registry and the codec.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxDepth bounds message nesting.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// WithProtoNames makes EncodeJSON write proto field names.
func WithProtoNames() Option {
	return func(c *config) { c.json.UseProtoNames = true }
}

// WithEmitDefaults makes EncodeJSON write fields holding default values.
func WithEmitDefaults() Option {
	return func(c *config) { c.json.EmitDefaults = true }
}

// WithRejectUnknown makes DecodeJSON fail on unknown keys.
func WithRejectUnknown() Option {
	return func(c *config) { c.json.RejectUnknown = true }
}
