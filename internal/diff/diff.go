// Package diff computes structural differences between document maps and
// provides dotted-path helpers over nested map[string]any values.
package diff

import (
	"reflect"
	"sort"
	"strings"
)

// Kind classifies a single change.
type Kind int

const (
	// Added means the path exists only in the after state.
	Added Kind = iota
	// Modified means the path exists in both states with different values.
	Modified
	// Removed means the path exists only in the before state.
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Change is one changed leaf path between two documents.
type Change struct {
	Path   string
	Kind   Kind
	Before any
	After  any
}

// Changes returns the changed leaf paths between before and after, sorted by
// path. Nested maps present on both sides are compared key by key; any other
// value (including slices) is compared as a whole and reported at its own path.
func Changes(before, after map[string]any) []Change {
	var out []Change
	walk("", before, after, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func walk(prefix string, before, after map[string]any, out *[]Change) {
	for key, b := range before {
		path := join(prefix, key)
		a, ok := after[key]
		if !ok {
			*out = append(*out, Change{Path: path, Kind: Removed, Before: b})
			continue
		}
		bm, bIsMap := b.(map[string]any)
		am, aIsMap := a.(map[string]any)
		if bIsMap && aIsMap {
			walk(path, bm, am, out)
			continue
		}
		if !Equal(b, a) {
			*out = append(*out, Change{Path: path, Kind: Modified, Before: b, After: a})
		}
	}
	for key, a := range after {
		if _, ok := before[key]; !ok {
			*out = append(*out, Change{Path: join(prefix, key), Kind: Added, After: a})
		}
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Equal reports whether two document values are structurally equal.
func Equal(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Root returns the top-level segment of a dotted path.
func Root(path string) string {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i]
	}
	return path
}

// Get returns the value at a dotted path.
func Get(m map[string]any, path string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur any = m
	for _, part := range parts {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at a dotted path, creating intermediate maps as needed.
// Intermediate non-map values are replaced.
func Set(m map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	node := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = v
}

// Delete removes the value at a dotted path. Missing paths are ignored.
func Delete(m map[string]any, path string) {
	if _, ok := m[path]; ok {
		delete(m, path)
		return
	}
	parts := strings.Split(path, ".")
	node := m
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	delete(node, parts[len(parts)-1])
}

// Copy returns a deep copy of v. Maps and slices are copied recursively;
// every other value is returned as-is.
func Copy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Copy(item)
		}
		return out
	case nil:
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			item := Copy(rv.Index(i).Interface())
			if item == nil {
				continue
			}
			out.Index(i).Set(reflect.ValueOf(item))
		}
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			item := Copy(iter.Value().Interface())
			if item == nil {
				out.SetMapIndex(iter.Key(), reflect.Zero(rv.Type().Elem()))
				continue
			}
			out.SetMapIndex(iter.Key(), reflect.ValueOf(item))
		}
		return out.Interface()
	}
	return v
}

// CopyMap returns a deep copy of m. A nil map copies to an empty map.
func CopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Copy(v)
	}
	return out
}
