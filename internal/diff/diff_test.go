package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestChanges(t *testing.T) {
	tests := []struct {
		name   string
		before map[string]any
		after  map[string]any
		want   []Change
	}{
		{
			name:   "identical documents",
			before: map[string]any{"name": "alice", "tags": []any{"a"}},
			after:  map[string]any{"name": "alice", "tags": []any{"a"}},
			want:   nil,
		},
		{
			name:   "modified top-level value",
			before: map[string]any{"name": "alice"},
			after:  map[string]any{"name": "bob"},
			want:   []Change{{Path: "name", Kind: Modified, Before: "alice", After: "bob"}},
		},
		{
			name:   "nested leaf paths",
			before: map[string]any{"address": map[string]any{"city": "Paris", "zip": "75001"}},
			after:  map[string]any{"address": map[string]any{"city": "Lyon", "zip": "75001", "street": "Rue"}},
			want: []Change{
				{Path: "address.city", Kind: Modified, Before: "Paris", After: "Lyon"},
				{Path: "address.street", Kind: Added, After: "Rue"},
			},
		},
		{
			name:   "added and removed keys",
			before: map[string]any{"old": 1},
			after:  map[string]any{"new": 2},
			want: []Change{
				{Path: "new", Kind: Added, After: 2},
				{Path: "old", Kind: Removed, Before: 1},
			},
		},
		{
			name:   "slices compare whole",
			before: map[string]any{"tags": []any{"a", "b"}},
			after:  map[string]any{"tags": []any{"a", "c"}},
			want:   []Change{{Path: "tags", Kind: Modified, Before: []any{"a", "b"}, After: []any{"a", "c"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Changes(tt.before, tt.after)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Changes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	m := map[string]any{"a": map[string]any{"b": 1}}

	if v, ok := Get(m, "a.b"); !ok || v != 1 {
		t.Errorf("Get(a.b) = %v, %v", v, ok)
	}
	if _, ok := Get(m, "a.c"); ok {
		t.Error("Get(a.c) should be missing")
	}

	Set(m, "a.c.d", "x")
	if v, _ := Get(m, "a.c.d"); v != "x" {
		t.Errorf("after Set, Get(a.c.d) = %v", v)
	}

	Delete(m, "a.b")
	if _, ok := Get(m, "a.b"); ok {
		t.Error("a.b should be deleted")
	}
	Delete(m, "missing.path")

	if Root("a.b.c") != "a" || Root("name") != "name" {
		t.Error("Root returned wrong segment")
	}
}

func TestCopyIsDeep(t *testing.T) {
	orig := map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{map[string]any{"x": 1}},
		"names":  []string{"a"},
	}
	cp := CopyMap(orig)
	cp["nested"].(map[string]any)["k"] = "changed"
	cp["list"].([]any)[0].(map[string]any)["x"] = 2
	cp["names"].([]string)[0] = "b"

	want := map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{map[string]any{"x": 1}},
		"names":  []string{"a"},
	}
	if diff := cmp.Diff(want, orig); diff != "" {
		t.Errorf("original mutated through copy (-want +got):\n%s", diff)
	}
}
