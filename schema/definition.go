package schema

import (
	"fmt"
	"strings"
	"time"
)

// NowDefault is the definition default that produces the current time.
const NowDefault = "$now"

// FieldDef is the declarative form of a field, decodable from YAML or TOML.
type FieldDef struct {
	Type     string   `json:"type,omitempty" yaml:"type" toml:"type"`
	Types    []string `json:"types,omitempty" yaml:"types,omitempty" toml:"types,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`
	Default  any      `json:"default,omitempty" yaml:"default,omitempty" toml:"default,omitempty"`
	Values   []any    `json:"values,omitempty" yaml:"values,omitempty" toml:"values,omitempty"`
	Unique   bool     `json:"unique,omitempty" yaml:"unique,omitempty" toml:"unique,omitempty"`
}

// Definition is a schema declared outside Go code, keyed by field name.
type Definition map[string]FieldDef

// Resolve implements Source by building every field through b.
func (d Definition) Resolve(b Builder) (Fields, error) {
	fields := make(Fields, len(d))
	for name, def := range d {
		desc, err := def.build(b)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		fields[name] = desc
	}
	return fields, nil
}

func (f FieldDef) options() []Option {
	var opts []Option
	if f.Required {
		opts = append(opts, Required())
	}
	if f.Unique {
		opts = append(opts, Unique())
	}
	if f.Default != nil {
		if s, ok := f.Default.(string); ok && s == NowDefault {
			opts = append(opts, Default(Producer(func() any { return time.Now().UTC() })))
		} else {
			opts = append(opts, Default(f.Default))
		}
	}
	return opts
}

func (f FieldDef) build(b Builder) (*Descriptor, error) {
	if len(f.Types) > 0 {
		parts := make([]*Descriptor, 0, len(f.Types))
		for i, kind := range f.Types {
			// Only the first constituent carries the default.
			def := f
			def.Type, def.Types = kind, nil
			if i > 0 {
				def.Default = nil
			}
			desc, err := def.build(b)
			if err != nil {
				return nil, err
			}
			parts = append(parts, desc)
		}
		return b.Types(parts...), nil
	}

	opts := f.options()
	switch strings.ToLower(f.Type) {
	case "string":
		return b.String(opts...), nil
	case "number":
		return b.Number(opts...), nil
	case "boolean", "bool":
		return b.Boolean(opts...), nil
	case "date":
		return b.Date(opts...), nil
	case "object":
		return b.Object(opts...), nil
	case "array":
		return b.Array(opts...), nil
	case "identifier", "id":
		return b.Identifier(opts...), nil
	case "enum":
		if len(f.Values) == 0 {
			return nil, fmt.Errorf("enum requires values")
		}
		return b.Enum(f.Values, opts...), nil
	case "any", "":
		return b.Any(opts...), nil
	}
	return nil, fmt.Errorf("unknown field type %q", f.Type)
}
