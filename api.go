package protocodec

import (
	"fmt"

	"github.com/anirudhraja/protocodec/codec"
	"github.com/anirudhraja/protocodec/registry"
	"github.com/anirudhraja/protocodec/schema"
)

// ===== SCHEMA-AWARE API =====

// Protocodec encodes and decodes protobuf messages by type name, using
// schemas loaded at runtime instead of generated code.
type Protocodec struct {
	registry *registry.Registry
	codec    *codec.Codec
	json     codec.JSONOptions
}

// New creates a Protocodec. The registry starts with the google.protobuf
// well-known types.
func New(opts ...Option) *Protocodec {
	cfg := newConfig(opts)
	p := &Protocodec{
		registry: registry.NewRegistry(registry.WithImportPaths(cfg.importPaths...), registry.WithLogger(cfg.logger)),
		codec:    codec.NewCodec(codec.WithLogger(cfg.logger), codec.WithMaxDepth(cfg.maxDepth)),
		json:     cfg.json,
	}
	p.json.Resolver = p.registry
	return p
}

// LoadSchema loads a .proto file or a directory of them.
func (p *Protocodec) LoadSchema(path string) error {
	return p.registry.LoadSchema(path)
}

// LoadSource registers an in-memory .proto source under an import path.
func (p *Protocodec) LoadSource(name string, src []byte) error {
	return p.registry.LoadSource(name, src)
}

func (p *Protocodec) message(messageType string) (*schema.Message, error) {
	md, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %w", err)
	}
	return md, nil
}

// Parse decodes protobuf bytes into a complete message tree.
func (p *Protocodec) Parse(data []byte, messageType string) (codec.Message, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return p.codec.Decode(md, data)
}

// Marshal encodes a (possibly partial) message tree to protobuf bytes.
func (p *Protocodec) Marshal(data map[string]interface{}, messageType string) ([]byte, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return p.codec.Encode(md, data)
}

// Default returns the all-defaults value of a message type.
func (p *Protocodec) Default(messageType string) (codec.Message, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return codec.New(md), nil
}

// FromPartial completes a partial message tree with defaults.
func (p *Protocodec) FromPartial(partial map[string]interface{}, messageType string) (codec.Message, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return p.codec.FromPartial(md, partial)
}

// EncodeJSON renders a message tree as protobuf JSON.
func (p *Protocodec) EncodeJSON(data map[string]interface{}, messageType string) ([]byte, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return p.codec.EncodeJSON(md, data, p.json)
}

// DecodeJSON parses protobuf JSON into a complete message tree.
func (p *Protocodec) DecodeJSON(data []byte, messageType string) (codec.Message, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	return p.codec.DecodeJSON(md, data, p.json)
}

// Unmarshal decodes protobuf bytes into the struct v points to. See
// mapToStruct for how fields are matched.
func (p *Protocodec) Unmarshal(data []byte, messageType string, v interface{}) error {
	md, err := p.message(messageType)
	if err != nil {
		return err
	}
	msg, err := p.codec.Decode(md, data)
	if err != nil {
		return err
	}
	return mapToStruct(msg, md, v)
}

// ===== ANY ENVELOPES =====

// PackAny encodes data and wraps it in a google.protobuf.Any shaped message:
// {"type_url": "/" + full name, "value": bytes}.
func (p *Protocodec) PackAny(messageType string, data map[string]interface{}) (codec.Message, error) {
	md, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	value, err := p.codec.Encode(md, data)
	if err != nil {
		return nil, err
	}
	return codec.Message{"type_url": md.TypeURL(), "value": value}, nil
}

// UnpackAny decodes the payload of an Any shaped message and returns it with
// the payload's full type name.
func (p *Protocodec) UnpackAny(anyMsg map[string]interface{}) (string, codec.Message, error) {
	typeURL, ok := anyMsg["type_url"].(string)
	if !ok {
		typeURL, ok = anyMsg["typeUrl"].(string)
	}
	if !ok || typeURL == "" {
		return "", nil, fmt.Errorf("any: missing type_url")
	}
	md, err := p.registry.MessageByTypeURL(typeURL)
	if err != nil {
		return "", nil, err
	}
	var value []byte
	switch v := anyMsg["value"].(type) {
	case []byte:
		value = v
	case nil:
	default:
		return "", nil, fmt.Errorf("any %s: value must be bytes, got %T", typeURL, v)
	}
	msg, err := p.codec.Decode(md, value)
	if err != nil {
		return "", nil, fmt.Errorf("any %s: %w", typeURL, err)
	}
	return md.FullName, msg, nil
}

// ===== REGISTRY ACCESS =====

func (p *Protocodec) Registry() *registry.Registry { return p.registry }
func (p *Protocodec) ListMessages() []string       { return p.registry.ListMessages() }
func (p *Protocodec) ListEnums() []string          { return p.registry.ListEnums() }
func (p *Protocodec) ListServices() []string       { return p.registry.ListServices() }
