// Package config loads model definitions from YAML or TOML files and builds
// the corresponding model classes.
//
// A definitions file looks like:
//
//	identifier: uuid
//	models:
//	  Author:
//	    collection: authors
//	    strict: {removeNonSchemaFields: true}
//	    schema:
//	      name: {type: string, required: true}
//	      username: {type: string, unique: true}
//	  Book:
//	    collection: books
//	    schema:
//	      title: {type: string, required: true}
//	      authorId: {type: identifier}
//	    relationships:
//	      author: {type: hasOne, model: Author, where: {_id: authorId}, cast: true}
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanomodel/identifier"
	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
)

// Format is a definitions file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// File is a decoded definitions file.
type File struct {
	// Database is the default JSON store path for tools reading this file.
	Database string `yaml:"database,omitempty" toml:"database,omitempty"`

	// Identifier names the identifier scheme: "uuid" (default) or "nanoid".
	Identifier string `yaml:"identifier,omitempty" toml:"identifier,omitempty"`

	Models map[string]ModelDef `yaml:"models" toml:"models"`
}

// ModelDef declares one model class.
type ModelDef struct {
	// Collection defaults to the model name.
	Collection    string                       `yaml:"collection,omitempty" toml:"collection,omitempty"`
	Strict        schema.StrictMode            `yaml:"strict,omitempty" toml:"strict,omitempty"`
	Schema        schema.Definition            `yaml:"schema" toml:"schema"`
	Schemas       map[string]schema.Definition `yaml:"schemas,omitempty" toml:"schemas,omitempty"`
	Relationships map[string]RelationshipDef   `yaml:"relationships,omitempty" toml:"relationships,omitempty"`
}

// RelationshipDef declares a relationship to another model of the file.
type RelationshipDef struct {
	Type  string            `yaml:"type" toml:"type"`
	Model string            `yaml:"model" toml:"model"`
	Where map[string]string `yaml:"where" toml:"where"`
	Alias string            `yaml:"alias,omitempty" toml:"alias,omitempty"`
	Cast  bool              `yaml:"cast,omitempty" toml:"cast,omitempty"`
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("unsupported definitions file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
}

// Load reads and validates a definitions file.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates definitions.
func Parse(data []byte, format Format) (*File, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ModelNames returns the declared model names, sorted.
func (f *File) ModelNames() []string {
	names := make([]string, 0, len(f.Models))
	for name := range f.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IDs returns the identifier scheme of the file.
func (f *File) IDs() (identifier.Identifier, error) {
	return identifier.ByName(f.Identifier)
}

// Validate checks the identifier scheme, every schema definition and every
// relationship reference.
func (f *File) Validate() error {
	ids, err := f.IDs()
	if err != nil {
		return err
	}
	if len(f.Models) == 0 {
		return fmt.Errorf("no models defined")
	}
	b := schema.NewBuilder(ids)
	for _, name := range f.ModelNames() {
		def := f.Models[name]
		if _, err := def.Schema.Resolve(b); err != nil {
			return fmt.Errorf("model %s: %w", name, err)
		}
		for alt, altDef := range def.Schemas {
			if _, err := altDef.Resolve(b); err != nil {
				return fmt.Errorf("model %s schema %s: %w", name, alt, err)
			}
		}
		for relName, rel := range def.Relationships {
			if model.RelationType(rel.Type) != model.HasOne {
				return fmt.Errorf("model %s relationship %s: unsupported type %q", name, relName, rel.Type)
			}
			if _, ok := f.Models[rel.Model]; !ok {
				return fmt.Errorf("model %s relationship %s: unknown model %q", name, relName, rel.Model)
			}
			if len(rel.Where) == 0 {
				return fmt.Errorf("model %s relationship %s: where is required", name, relName)
			}
		}
	}
	return nil
}
