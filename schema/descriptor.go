// Package schema declares the typed field contracts of a document class and
// runs the validation and casting pipeline over document data.
//
// A Descriptor describes one field: its kind, default value, requiredness,
// validator tree, error message, caster and uniqueness. Descriptors are built
// through a Builder and are never mutated once built; composition (Types)
// always produces a new Descriptor.
package schema

import (
	"sort"

	"github.com/arthur-debert/nanomodel/internal/diff"
)

// Owner is the read-only view of a document handed to conditional
// requirements.
type Owner interface {
	// Get returns the working value at a dotted field path.
	Get(path string) (any, bool)
}

// Defaulter is a field's default value: either a Literal or a Producer.
type Defaulter interface {
	resolve() any
}

// Literal is a fixed default value. Maps and slices are deep copied on each
// resolution so documents never share default containers.
type Literal struct {
	Value any
}

func (l Literal) resolve() any { return diff.Copy(l.Value) }

// Producer computes a default lazily, once per schema application, so that
// values such as timestamps are fresh for every document.
type Producer func() any

func (p Producer) resolve() any { return p() }

// Requirement decides whether a field must be present: either Always or
// RequiredWhen.
type Requirement interface {
	required(owner Owner) bool
}

// Always is a static requirement.
type Always bool

func (a Always) required(Owner) bool { return bool(a) }

// RequiredWhen is a conditional requirement evaluated against the owning
// document.
type RequiredWhen func(owner Owner) bool

func (r RequiredWhen) required(owner Owner) bool { return r(owner) }

// anyRequired is the requirement of a composed descriptor.
type anyRequired []Requirement

func (a anyRequired) required(owner Owner) bool {
	for _, r := range a {
		if r != nil && r.required(owner) {
			return true
		}
	}
	return false
}

// Validator is a node of a validator tree: a Predicate, an Or or an And.
type Validator interface {
	accepts(value any) bool
}

// Predicate accepts a value when it returns true.
type Predicate func(value any) bool

func (p Predicate) accepts(value any) bool { return p(value) }

// Or accepts a value when any nested validator accepts it.
type Or []Validator

func (o Or) accepts(value any) bool {
	for _, v := range o {
		if v == nil || v.accepts(value) {
			return true
		}
	}
	return false
}

// And accepts a value only when every nested validator accepts it.
type And []Validator

func (a And) accepts(value any) bool {
	for _, v := range a {
		if v != nil && !v.accepts(value) {
			return false
		}
	}
	return true
}

// Accepts evaluates a validator tree against value. A nil validator, at any
// level of the tree, accepts everything.
func Accepts(v Validator, value any) bool {
	if v == nil {
		return true
	}
	return v.accepts(value)
}

// Caster converts a validated value, failing when conversion is impossible.
type Caster func(value any, field string) (any, error)

// UniqueQueryFunc builds the lookup used to detect duplicates of value.
type UniqueQueryFunc func(field string, value any) map[string]any

// Descriptor is the validation contract of one field.
type Descriptor struct {
	// Name is the kind tag, for example "String" or "MultipleTypes".
	Name string

	Default     Defaulter
	Required    Requirement
	Validator   Validator
	Message     func(field string) string
	Cast        Caster
	Unique      bool
	UniqueQuery UniqueQueryFunc
}

// DefaultValue resolves the field's default. Producers are invoked here.
func (d *Descriptor) DefaultValue() (any, bool) {
	if d.Default == nil {
		return nil, false
	}
	v := d.Default.resolve()
	return v, v != nil
}

// IsRequired resolves the requirement against owner.
func (d *Descriptor) IsRequired(owner Owner) bool {
	if d.Required == nil {
		return false
	}
	return d.Required.required(owner)
}

// Accepts reports whether value passes the descriptor's validator tree.
func (d *Descriptor) Accepts(value any) bool {
	return Accepts(d.Validator, value)
}

// ErrorMessage formats the validation failure message for field.
func (d *Descriptor) ErrorMessage(field string) string {
	if d.Message != nil {
		return d.Message(field)
	}
	return field + " is invalid"
}

// Fields maps field names to their descriptors.
type Fields map[string]*Descriptor

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unique returns the sorted names of unique fields.
func (f Fields) Unique() []string {
	var names []string
	for _, name := range f.Names() {
		if f[name].Unique {
			names = append(names, name)
		}
	}
	return names
}

// Source is anything that can produce Fields given a Builder.
type Source interface {
	Resolve(b Builder) (Fields, error)
}

// Resolve implements Source.
func (f Fields) Resolve(Builder) (Fields, error) { return f, nil }

// Func is a lazily defined schema, invoked with the Builder on application.
type Func func(b Builder) Fields

// Resolve implements Source.
func (fn Func) Resolve(b Builder) (Fields, error) { return fn(b), nil }
