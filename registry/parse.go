package registry

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protocodec/schema"
)

// parseFile turns one .proto source into a schema.File. Type references are
// left unresolved: message and enum fields carry the name as written in
// FieldType.MessageType with an empty Kind until the registry links them.
func (r *Registry) parseFile(name string, src io.Reader) (*schema.File, error) {
	body, err := protoparser.Parse(src, protoparser.WithFilename(name))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	file := &schema.File{Name: name, Syntax: "proto2"}
	if body.Syntax != nil && body.Syntax.ProtobufVersion != "" {
		file.Syntax = body.Syntax.ProtobufVersion
	}
	for _, v := range body.ProtoBody {
		if pkg, ok := v.(*protoparserparser.Package); ok {
			file.Package = pkg.Name
		}
	}
	p := &fileParser{r: r, file: file, proto3: file.Syntax == "proto3"}
	for _, v := range body.ProtoBody {
		switch b := v.(type) {
		case *protoparserparser.Import:
			file.Imports = append(file.Imports, &schema.Import{
				Path:   strings.Trim(b.Location, `"'`),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			m, err := p.message(file.Package, b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			file.Messages = append(file.Messages, m)
		case *protoparserparser.Enum:
			e, err := p.enum(file.Package, b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			file.Enums = append(file.Enums, e)
		case *protoparserparser.Service:
			file.Services = append(file.Services, p.service(file.Package, b))
		}
	}
	return file, nil
}

type fileParser struct {
	r      *Registry
	file   *schema.File
	proto3 bool
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func (p *fileParser) message(scope string, pm *protoparserparser.Message) (*schema.Message, error) {
	m := &schema.Message{Name: pm.MessageName, FullName: qualify(scope, pm.MessageName)}
	for _, v := range pm.MessageBody {
		switch b := v.(type) {
		case *protoparserparser.Field:
			f, err := p.field(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.FullName, err)
			}
			switch {
			case b.IsRepeated:
				f.Label = schema.LabelRepeated
				f.Packed = p.packed(b.FieldOptions)
			case b.IsRequired:
				f.Label = schema.LabelRequired
				f.Presence = true
			case b.IsOptional:
				f.Presence = true
			default:
				f.Presence = !p.proto3
			}
			m.Fields = append(m.Fields, f)
		case *protoparserparser.MapField:
			f, err := p.mapField(m.FullName, b)
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", m.FullName, err)
			}
			m.Fields = append(m.Fields, f)
			m.NestedTypes = append(m.NestedTypes, f.Type.Message)
		case *protoparserparser.Oneof:
			for _, of := range b.OneofFields {
				f, err := p.field(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", m.FullName, err)
				}
				m.Fields = append(m.Fields, f.InOneof(b.OneofName))
			}
		case *protoparserparser.Message:
			nested, err := p.message(m.FullName, b)
			if err != nil {
				return nil, err
			}
			m.NestedTypes = append(m.NestedTypes, nested)
		case *protoparserparser.Enum:
			e, err := p.enum(m.FullName, b)
			if err != nil {
				return nil, err
			}
			m.NestedEnums = append(m.NestedEnums, e)
		case *protoparserparser.GroupField:
			p.r.logger.Warn().Str("message", m.FullName).Str("group", b.GroupName).Msg("group fields are not supported; they will be skipped on decode")
		}
	}
	return m, nil
}

// field builds a singular field. The caller applies the label.
func (p *fileParser) field(name, number, typ string, opts []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := strconv.ParseInt(number, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("field %s: bad number %q", name, number)
	}
	f := &schema.Field{Name: name, Number: int32(n), Label: schema.LabelOptional, Type: fieldType(typ)}
	for _, o := range opts {
		switch o.OptionName {
		case "json_name":
			f.JSONName = strings.Trim(o.Constant, `"'`)
		case "default":
			f.Default = o.Constant
		}
	}
	return f, nil
}

// fieldType returns the type of a primitive, or an unresolved reference.
func fieldType(typ string) schema.FieldType {
	if schema.IsPrimitiveType(typ) {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: schema.PrimitiveType(typ)}
	}
	return schema.FieldType{MessageType: typ}
}

// packed applies the syntax default: proto3 packs repeated scalars unless
// [packed = false], proto2 only with [packed = true].
func (p *fileParser) packed(opts []*protoparserparser.FieldOption) bool {
	for _, o := range opts {
		if o.OptionName == "packed" {
			return o.Constant == "true"
		}
	}
	return p.proto3
}

func (p *fileParser) mapField(parent string, mf *protoparserparser.MapField) (*schema.Field, error) {
	if !schema.IsPrimitiveType(mf.KeyType) {
		return nil, fmt.Errorf("map field %s: invalid key type %s", mf.MapName, mf.KeyType)
	}
	n, err := strconv.ParseInt(mf.FieldNumber, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("map field %s: bad number %q", mf.MapName, mf.FieldNumber)
	}
	f := schema.NewMapField(parent, mf.MapName, int32(n), schema.PrimitiveType(mf.KeyType), fieldType(mf.Type))
	for _, o := range mf.FieldOptions {
		if o.OptionName == "json_name" {
			f.JSONName = strings.Trim(o.Constant, `"'`)
		}
	}
	return f, nil
}

func (p *fileParser) enum(scope string, pe *protoparserparser.Enum) (*schema.Enum, error) {
	e := &schema.Enum{Name: pe.EnumName, FullName: qualify(scope, pe.EnumName)}
	for _, v := range pe.EnumBody {
		switch b := v.(type) {
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" && b.Constant == "true" {
				e.AllowAlias = true
			}
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(b.Number, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("enum %s: value %s has bad number %q", e.FullName, b.Ident, b.Number)
			}
			e.Values = append(e.Values, &schema.EnumValue{Name: b.Ident, Number: int32(n)})
		}
	}
	return e, nil
}

func (p *fileParser) service(scope string, ps *protoparserparser.Service) *schema.Service {
	s := &schema.Service{Name: ps.ServiceName, FullName: qualify(scope, ps.ServiceName)}
	for _, v := range ps.ServiceBody {
		rpc, ok := v.(*protoparserparser.RPC)
		if !ok {
			continue
		}
		m := &schema.Method{Name: rpc.RPCName}
		if rpc.RPCRequest != nil {
			m.InputType = rpc.RPCRequest.MessageType
			m.ClientStreaming = rpc.RPCRequest.IsStream
		}
		if rpc.RPCResponse != nil {
			m.OutputType = rpc.RPCResponse.MessageType
			m.ServerStreaming = rpc.RPCResponse.IsStream
		}
		s.Methods = append(s.Methods, m)
	}
	return s
}
