package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultIDKey is the reserved field holding a document's native identifier.
const DefaultIDKey = "_id"

// StrictMode controls what happens to payload keys outside the schema.
type StrictMode int

const (
	// StrictOff preserves non-schema keys verbatim.
	StrictOff StrictMode = iota
	// StrictReject fails validation on the first non-schema key.
	StrictReject
	// StrictRemove silently drops non-schema keys from the payload and the
	// document's working data.
	StrictRemove
)

func (m StrictMode) String() string {
	switch m {
	case StrictOff:
		return "off"
	case StrictReject:
		return "reject"
	case StrictRemove:
		return "remove"
	}
	return fmt.Sprintf("StrictMode(%d)", int(m))
}

// StrictPolicy is the object form of a strict setting.
type StrictPolicy struct {
	RemoveNonSchemaFields bool `yaml:"removeNonSchemaFields" toml:"removeNonSchemaFields"`
}

// Mode converts the object form into a StrictMode. A policy that does not
// remove fields rejects them: {removeNonSchemaFields: false} is equivalent to
// strict: true.
func (p StrictPolicy) Mode() StrictMode {
	if p.RemoveNonSchemaFields {
		return StrictRemove
	}
	return StrictReject
}

// ParseStrict converts a decoded strict setting (bool, policy object, mode
// name or nil) into a StrictMode.
func ParseStrict(v any) (StrictMode, error) {
	switch t := v.(type) {
	case nil:
		return StrictOff, nil
	case bool:
		if t {
			return StrictReject, nil
		}
		return StrictOff, nil
	case StrictMode:
		return t, nil
	case StrictPolicy:
		return t.Mode(), nil
	case string:
		switch strings.ToLower(t) {
		case "", "off", "false":
			return StrictOff, nil
		case "reject", "true":
			return StrictReject, nil
		case "remove":
			return StrictRemove, nil
		}
		return StrictOff, fmt.Errorf("unknown strict mode %q", t)
	case map[string]any:
		remove, _ := t["removeNonSchemaFields"].(bool)
		return StrictPolicy{RemoveNonSchemaFields: remove}.Mode(), nil
	}
	return StrictOff, fmt.Errorf("unsupported strict setting %T", v)
}

// UnmarshalYAML accepts `strict: true`, `strict: remove` or
// `strict: {removeNonSchemaFields: bool}`.
func (m *StrictMode) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	switch node.Kind {
	case yaml.MappingNode:
		var p StrictPolicy
		if err := node.Decode(&p); err != nil {
			return err
		}
		raw = p
	default:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	}
	mode, err := ParseStrict(raw)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// UnmarshalTOML accepts the same forms as UnmarshalYAML from a TOML
// document.
func (m *StrictMode) UnmarshalTOML(v any) error {
	mode, err := ParseStrict(v)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalYAML writes the mode in its object or boolean form.
func (m StrictMode) MarshalYAML() (any, error) {
	switch m {
	case StrictRemove:
		return StrictPolicy{RemoveNonSchemaFields: true}, nil
	case StrictReject:
		return true, nil
	}
	return false, nil
}

// ValidateOptions tunes a single Validate call.
type ValidateOptions struct {
	// Owner is passed to conditional requirements.
	Owner Owner

	// Partial validates only the schema fields present in the payload.
	// Otherwise every schema field is checked and absent required fields fail.
	Partial bool

	Strict StrictMode

	// IDKey is exempt from strict checks. Defaults to DefaultIDKey.
	IDKey string

	// Exempt lists additional keys never subject to strict checks.
	Exempt []string

	// OnRemove is called for every key dropped under StrictRemove.
	OnRemove func(key string)
}

// Validate runs the validation and casting pipeline over data and returns the
// validated payload. It stops at the first violation.
//
// Schema fields are visited in name order. An absent or nil value is
// undefined: required undefined fields fail, optional ones are left out of
// the result. Defined values must pass their validator and are then cast.
// Keys outside the schema are copied through unless strict mode says
// otherwise; dotted keys and the identifier key are never strict-checked.
func Validate(fields Fields, data map[string]any, opts ValidateOptions) (map[string]any, error) {
	idKey := opts.IDKey
	if idKey == "" {
		idKey = DefaultIDKey
	}
	out := make(map[string]any, len(data))

	for _, name := range fields.Names() {
		desc := fields[name]
		value, present := data[name]
		if opts.Partial && !present {
			continue
		}

		if value == nil {
			if desc.IsRequired(opts.Owner) {
				if !present && !opts.Partial {
					return nil, NewMissingRequiredError(name)
				}
				return nil, NewRequiredError(name)
			}
			continue
		}

		if !desc.Accepts(value) {
			return nil, NewValidationError(name, desc.ErrorMessage(name))
		}

		if desc.Cast != nil {
			cast, err := desc.Cast(value, name)
			if err != nil {
				if _, ok := AsFieldError(err); ok {
					return nil, err
				}
				return nil, NewCastError(name, err)
			}
			value = cast
		}
		out[name] = value
	}

	exempt := make(map[string]bool, len(opts.Exempt)+1)
	exempt[idKey] = true
	for _, key := range opts.Exempt {
		exempt[key] = true
	}

	extra := make([]string, 0, len(data))
	for key := range data {
		if _, ok := fields[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)

	for _, key := range extra {
		policed := opts.Strict != StrictOff && !exempt[key] && !strings.Contains(key, ".")
		if !policed {
			out[key] = data[key]
			continue
		}
		if opts.Strict == StrictRemove {
			delete(data, key)
			if opts.OnRemove != nil {
				opts.OnRemove(key)
			}
			continue
		}
		return nil, NewStrictError(key)
	}

	return out, nil
}
