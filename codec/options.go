package codec

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/anirudhraja/protocodec/schema"
)

// DefaultMaxDepth bounds message nesting during decode and encode.
const DefaultMaxDepth = 100

// ErrMaxDepth is returned when messages nest deeper than Options.MaxDepth.
var ErrMaxDepth = errors.New("message nesting exceeds maximum depth")

// Options controls a Codec.
type Options struct {
	Logger   zerolog.Logger
	MaxDepth int
}

// Option configures Options.
type Option func(*Options)

// WithLogger sets the logger used for debug events such as skipped unknown
// fields.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithMaxDepth sets the nesting limit. Values <= 0 keep the default.
func WithMaxDepth(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxDepth = n
		}
	}
}

// Codec encodes and decodes messages described by schema descriptors. It
// holds no per-call state and is safe for concurrent use.
type Codec struct {
	opts Options
}

// NewCodec returns a Codec with the given options.
func NewCodec(opts ...Option) *Codec {
	o := Options{Logger: zerolog.Nop(), MaxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	return &Codec{opts: o}
}

var defaultCodec = NewCodec()

// Encode encodes msg with a default Codec.
func Encode(md *schema.Message, msg Message) ([]byte, error) {
	return defaultCodec.Encode(md, msg)
}

// Decode decodes data with a default Codec.
func Decode(md *schema.Message, data []byte) (Message, error) {
	return defaultCodec.Decode(md, data)
}

// FromPartial completes partial with a default Codec.
func FromPartial(md *schema.Message, partial map[string]interface{}) (Message, error) {
	return defaultCodec.FromPartial(md, partial)
}

// EncodeJSON renders msg as JSON with a default Codec.
func EncodeJSON(md *schema.Message, msg Message, opts JSONOptions) ([]byte, error) {
	return defaultCodec.EncodeJSON(md, msg, opts)
}

// DecodeJSON parses JSON with a default Codec.
func DecodeJSON(md *schema.Message, data []byte, opts JSONOptions) (Message, error) {
	return defaultCodec.DecodeJSON(md, data, opts)
}
