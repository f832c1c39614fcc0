package config

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/store"
)

// Registry holds the classes built from a definitions file.
type Registry struct {
	classes map[string]*model.Class
}

// Build creates one class per model, bound to collections of db, and wires
// their relationships.
func (f *File) Build(db store.Database, logger *slog.Logger) (*Registry, error) {
	ids, err := f.IDs()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{classes: make(map[string]*model.Class, len(f.Models))}
	for _, name := range f.ModelNames() {
		def := f.Models[name]
		collection := def.Collection
		if collection == "" {
			collection = name
		}
		opts := []model.ClassOption{
			model.WithSchema(def.Schema),
			model.WithStrict(def.Strict),
			model.WithIdentifier(ids),
			model.WithLogger(logger.With("model", name)),
		}
		for alt, altDef := range def.Schemas {
			opts = append(opts, model.WithNamedSchema(alt, altDef))
		}
		r.classes[name] = model.NewClass(name, db.Collection(collection), opts...)
	}

	for _, name := range f.ModelNames() {
		for relName, rel := range f.Models[name].Relationships {
			related, ok := r.classes[rel.Model]
			if !ok {
				return nil, fmt.Errorf("model %s relationship %s: unknown model %q", name, relName, rel.Model)
			}
			r.classes[name].AddRelationship(relName, model.Relationship{
				Type:    model.RelationType(rel.Type),
				Model:   related,
				Where:   rel.Where,
				Options: model.RelationshipOptions{Alias: rel.Alias, Cast: rel.Cast},
			})
		}
	}

	logger.Debug("model registry built", "models", len(r.classes))
	return r, nil
}

// Class returns the named class.
func (r *Registry) Class(name string) (*model.Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Names returns the model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
