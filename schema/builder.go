package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/arthur-debert/nanomodel/identifier"
	"github.com/arthur-debert/nanomodel/internal/diff"
)

// Builder produces Descriptors for the common field kinds. Its zero value
// uses UUID identifiers.
type Builder struct {
	ids identifier.Identifier
}

// NewBuilder creates a Builder whose Identifier fields parse with ids.
func NewBuilder(ids identifier.Identifier) Builder {
	return Builder{ids: ids}
}

// IDs returns the identifier used by Identifier fields.
func (b Builder) IDs() identifier.Identifier {
	if b.ids == nil {
		return identifier.NewUUID()
	}
	return b.ids
}

// Option configures a descriptor under construction.
type Option func(*fieldConfig)

type fieldConfig struct {
	def         any
	hasDefault  bool
	required    Requirement
	unique      bool
	uniqueQuery UniqueQueryFunc
	cast        Caster
	message     func(field string) string
	validator   Validator
}

// Default sets the field default. v may be a literal, a func() any producer,
// a Producer, or a Defaulter. For String and Number a slice turns the field into
// an Enum over the slice's values.
func Default(v any) Option {
	return func(c *fieldConfig) {
		c.def = v
		c.hasDefault = true
	}
}

// Required marks the field as always required.
func Required() Option {
	return func(c *fieldConfig) { c.required = Always(true) }
}

// RequiredIf makes the field required when fn returns true for the owning
// document.
func RequiredIf(fn func(owner Owner) bool) Option {
	return func(c *fieldConfig) { c.required = RequiredWhen(fn) }
}

// Unique flags the field for the uniqueness check.
func Unique() Option {
	return func(c *fieldConfig) { c.unique = true }
}

// UniqueBy flags the field as unique using a custom duplicate lookup.
func UniqueBy(fn UniqueQueryFunc) Option {
	return func(c *fieldConfig) {
		c.unique = true
		c.uniqueQuery = fn
	}
}

// WithCast replaces the kind's caster.
func WithCast(fn Caster) Option {
	return func(c *fieldConfig) { c.cast = fn }
}

// WithMessage replaces the kind's validation message.
func WithMessage(fn func(field string) string) Option {
	return func(c *fieldConfig) { c.message = fn }
}

// WithValidator adds a validator that must accept alongside the kind check.
func WithValidator(v Validator) Option {
	return func(c *fieldConfig) { c.validator = v }
}

func collect(opts []Option) *fieldConfig {
	c := &fieldConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *fieldConfig) build(name string, kind Validator, message func(string) string, cast Caster) *Descriptor {
	d := &Descriptor{
		Name:        name,
		Required:    c.required,
		Validator:   kind,
		Message:     message,
		Cast:        cast,
		Unique:      c.unique,
		UniqueQuery: c.uniqueQuery,
	}
	if d.Required == nil {
		d.Required = Always(false)
	}
	if c.hasDefault {
		d.Default = toDefault(c.def)
	}
	if c.validator != nil {
		d.Validator = And{kind, c.validator}
	}
	if c.message != nil {
		d.Message = c.message
	}
	if c.cast != nil {
		d.Cast = c.cast
	}
	return d
}

func toDefault(v any) Defaulter {
	switch t := v.(type) {
	case nil:
		return nil
	case Defaulter:
		return t
	case func() any:
		return Producer(t)
	}
	return Literal{Value: v}
}

// enumValues reports the values of a slice default.
func (c *fieldConfig) enumValues() ([]any, bool) {
	if !c.hasDefault || c.def == nil {
		return nil, false
	}
	rv := reflect.ValueOf(c.def)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, true
}

func mustBe(what string) func(string) string {
	return func(field string) string {
		return fmt.Sprintf("%s must be %s", field, what)
	}
}

// String builds a string field.
func (b Builder) String(opts ...Option) *Descriptor {
	c := collect(opts)
	if values, ok := c.enumValues(); ok {
		return b.enum(values, c)
	}
	return c.build("String", Predicate(IsString), mustBe("a string"), nil)
}

// Number builds a numeric field accepting any Go integer or float kind and
// json.Number.
func (b Builder) Number(opts ...Option) *Descriptor {
	c := collect(opts)
	if values, ok := c.enumValues(); ok {
		return b.enum(values, c)
	}
	return c.build("Number", Predicate(IsNumber), mustBe("a number"), nil)
}

// Boolean builds a bool field.
func (b Builder) Boolean(opts ...Option) *Descriptor {
	return collect(opts).build("Boolean", Predicate(IsBoolean), mustBe("a boolean"), nil)
}

// Date builds a time field. RFC 3339 strings are accepted and cast to
// time.Time.
func (b Builder) Date(opts ...Option) *Descriptor {
	return collect(opts).build("Date", Predicate(IsDate), mustBe("a date"), castDate)
}

// Object builds a field holding a nested document.
func (b Builder) Object(opts ...Option) *Descriptor {
	return collect(opts).build("Object", Predicate(IsObject), mustBe("an object"), nil)
}

// Array builds a field holding a list.
func (b Builder) Array(opts ...Option) *Descriptor {
	return collect(opts).build("Array", Predicate(IsArray), mustBe("an array"), nil)
}

// Any builds a field accepting every value.
func (b Builder) Any(opts ...Option) *Descriptor {
	return collect(opts).build("Any", Predicate(func(any) bool { return true }), mustBe("set"), nil)
}

// Identifier builds a field referencing a native document identifier.
// Strings are accepted and cast through the builder's Identifier.
func (b Builder) Identifier(opts ...Option) *Descriptor {
	ids := b.IDs()
	valid := Or{Predicate(IsString), Predicate(ids.IsValid)}
	cast := func(value any, field string) (any, error) {
		if ids.IsValid(value) {
			return value, nil
		}
		id, err := ids.Parse(value)
		if err != nil {
			return nil, NewCastError(field, err)
		}
		return id, nil
	}
	return collect(opts).build("Identifier", valid, mustBe("a valid "+ids.Name()+" identifier"), cast)
}

// Enum builds a field restricted to values.
func (b Builder) Enum(values []any, opts ...Option) *Descriptor {
	return b.enum(values, collect(opts))
}

func (b Builder) enum(values []any, c *fieldConfig) *Descriptor {
	allowed := append([]any(nil), values...)
	// A slice default names the allowed values, not a default value.
	if _, ok := c.enumValues(); ok {
		c.hasDefault = false
		c.def = nil
	}
	valid := Predicate(func(value any) bool {
		for _, candidate := range allowed {
			if enumEqual(candidate, value) {
				return true
			}
		}
		return false
	})
	return c.build("Enum", valid, mustBe(fmt.Sprintf("one of %v", allowed)), nil)
}

// Types composes descriptors into a union: a value is accepted when any
// constituent accepts it. The default and caster come from the first
// constituent; the field is required when any constituent requires it.
func (b Builder) Types(descs ...*Descriptor) *Descriptor {
	return Types(descs...)
}

// Types is the package-level form of Builder.Types.
func Types(descs ...*Descriptor) *Descriptor {
	d := &Descriptor{Name: "MultipleTypes"}
	var (
		validators   Or
		names        []string
		requirements anyRequired
	)
	for _, c := range descs {
		if c == nil {
			continue
		}
		validators = append(validators, c.Validator)
		names = append(names, c.Name)
		if c.Required != nil {
			requirements = append(requirements, c.Required)
		}
		d.Unique = d.Unique || c.Unique
		if d.UniqueQuery == nil {
			d.UniqueQuery = c.UniqueQuery
		}
	}
	d.Validator = validators
	d.Required = requirements
	if len(descs) > 0 && descs[0] != nil {
		d.Default = descs[0].Default
		d.Cast = descs[0].Cast
	}
	list := strings.Join(names, ", ")
	d.Message = func(field string) string {
		return fmt.Sprintf("%s must be one of types: %s", field, list)
	}
	return d
}

// IsString reports whether v is a string.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// IsNumber reports whether v is a Go number or json.Number. NaN is rejected.
func IsNumber(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(n))
	case float64:
		return !math.IsNaN(n)
	case json.Number:
		_, err := n.Float64()
		return err == nil
	}
	return false
}

// IsBoolean reports whether v is a bool.
func IsBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

// IsDate reports whether v is a time.Time or an RFC 3339 string.
func IsDate(v any) bool {
	switch t := v.(type) {
	case time.Time:
		return !t.IsZero()
	case *time.Time:
		return t != nil && !t.IsZero()
	case string:
		_, err := time.Parse(time.RFC3339Nano, t)
		return err == nil
	}
	return false
}

// IsObject reports whether v is a map with string keys.
func IsObject(v any) bool {
	if _, ok := v.(map[string]any); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// IsArray reports whether v is a slice or array.
func IsArray(v any) bool {
	if v == nil {
		return false
	}
	kind := reflect.ValueOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func castDate(value any, field string) (any, error) {
	switch t := value.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		return *t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, NewCastError(field, err)
		}
		return parsed, nil
	}
	return nil, NewCastError(field, fmt.Errorf("unsupported date type %T", value))
}

// enumEqual compares enum members, treating numbers of different Go types as
// equal when their values are.
func enumEqual(a, b any) bool {
	if diff.Equal(a, b) {
		return true
	}
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	return okA && okB && fa == fb
}

func toFloat(v any) (float64, bool) {
	if !IsNumber(v) {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
