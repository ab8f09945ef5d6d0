package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anirudhraja/protocodec/schema"
)

// symbols indexes every message and enum visible while linking a batch of
// files: the ones already registered plus the batch itself.
type symbols struct {
	messages map[string]*schema.Message
	enums    map[string]*schema.Enum
}

func (s *symbols) has(name string) bool {
	return s.messages[name] != nil || s.enums[name] != nil
}

func (s *symbols) addFile(f *schema.File) error {
	for _, m := range f.Messages {
		if err := s.addMessage(m); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	for _, e := range f.Enums {
		if err := s.addEnum(e); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

func (s *symbols) addMessage(m *schema.Message) error {
	if s.has(m.FullName) {
		return fmt.Errorf("duplicate symbol %s", m.FullName)
	}
	s.messages[m.FullName] = m
	for _, nested := range m.NestedTypes {
		if err := s.addMessage(nested); err != nil {
			return err
		}
	}
	for _, e := range m.NestedEnums {
		if err := s.addEnum(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *symbols) addEnum(e *schema.Enum) error {
	if s.has(e.FullName) {
		return fmt.Errorf("duplicate symbol %s", e.FullName)
	}
	s.enums[e.FullName] = e
	return nil
}

// resolve returns the full name typeName refers to from inside scope.
// A leading dot means the name is already fully qualified. Otherwise the
// innermost scope is tried first, then each enclosing one up to the root.
// Ref - https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
func (s *symbols) resolve(typeName, scope string) (string, error) {
	if strings.HasPrefix(typeName, ".") {
		name := strings.TrimPrefix(typeName, ".")
		if s.has(name) {
			return name, nil
		}
		return "", fmt.Errorf("unable to resolve fully qualified type name %s", typeName)
	}
	for prefix := scope; prefix != ""; prefix = parentScope(prefix) {
		if candidate := prefix + "." + typeName; s.has(candidate) {
			return candidate, nil
		}
	}
	if s.has(typeName) {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name %s from %s", typeName, scope)
}

func parentScope(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// linkFile resolves every type reference in f.
func (s *symbols) linkFile(f *schema.File) error {
	for _, m := range f.Messages {
		if err := s.linkMessage(m); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	for _, svc := range f.Services {
		scope := parentScope(svc.FullName)
		for _, method := range svc.Methods {
			in, err := s.resolve(method.InputType, scope)
			if err != nil {
				return fmt.Errorf("%s: rpc %s.%s: %w", f.Name, svc.FullName, method.Name, err)
			}
			out, err := s.resolve(method.OutputType, scope)
			if err != nil {
				return fmt.Errorf("%s: rpc %s.%s: %w", f.Name, svc.FullName, method.Name, err)
			}
			method.InputType, method.OutputType = in, out
		}
	}
	return nil
}

func (s *symbols) linkMessage(m *schema.Message) error {
	for _, f := range m.Fields {
		if f.Type.Kind != "" {
			continue
		}
		name, err := s.resolve(f.Type.MessageType, m.FullName)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", m.FullName, f.Name, err)
		}
		if msg := s.messages[name]; msg != nil {
			f.Type = schema.FieldType{Kind: schema.KindMessage, MessageType: name, Message: msg}
		} else {
			f.Type = schema.FieldType{Kind: schema.KindEnum, EnumType: name, Enum: s.enums[name]}
		}
	}
	for _, nested := range m.NestedTypes {
		if err := s.linkMessage(nested); err != nil {
			return err
		}
	}
	return nil
}

// buildFile validates and indexes every descriptor in f. Enums go first so
// messages see frozen enum indexes.
func buildFile(f *schema.File) error {
	var enums []*schema.Enum
	var messages []*schema.Message
	var walk func(m *schema.Message)
	walk = func(m *schema.Message) {
		messages = append(messages, m)
		enums = append(enums, m.NestedEnums...)
		for _, nested := range m.NestedTypes {
			walk(nested)
		}
	}
	enums = append(enums, f.Enums...)
	for _, m := range f.Messages {
		walk(m)
	}
	for _, e := range enums {
		if err := e.Build(); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	for _, m := range messages {
		if err := m.Build(); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

// findImport locates an import path under the configured import roots.
func (r *Registry) findImport(importPath string, roots []string) (string, bool) {
	for _, dir := range roots {
		full := filepath.Join(dir, importPath)
		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			return full, true
		}
	}
	return "", false
}

// optionImports only declare custom options, which carry no types the codec
// needs, so their absence is expected.
var optionImports = map[string]bool{
	"gogoproto/gogo.proto":         true,
	"cosmos_proto/cosmos.proto":    true,
	"amino/amino.proto":            true,
	"cosmos/msg/v1/msg.proto":      true,
	"google/api/annotations.proto": true,
	"google/api/http.proto":        true,
}
