package testutil

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arthur-debert/nanomodel/schema"
)

// AssertFieldError checks that err is a *schema.FieldError of the given kind
// for field.
func AssertFieldError(t *testing.T, err error, kind error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error for %s, got nil", kind, field)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v error, got %v", kind, err)
	}
	fe, ok := schema.AsFieldError(err)
	if !ok {
		t.Fatalf("expected *schema.FieldError, got %T", err)
	}
	if fe.Field != field {
		t.Errorf("error field = %q, want %q", fe.Field, field)
	}
}

// AssertErrorIs checks that err matches target.
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error %v, got %v", target, err)
	}
}

// AssertData compares document data with go-cmp.
func AssertData(t *testing.T, got, want map[string]any, context ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("data mismatch%s (-want +got):\n%s", ctx, diff)
	}
}

// AssertNoKey checks that key is absent from data.
func AssertNoKey(t *testing.T, data map[string]any, key string) {
	t.Helper()
	if v, ok := data[key]; ok {
		t.Errorf("expected no %q key, found %v", key, v)
	}
}

// AssertKey checks that data holds want under key.
func AssertKey(t *testing.T, data map[string]any, key string, want any) {
	t.Helper()
	got, ok := data[key]
	if !ok {
		t.Errorf("expected key %q", key)
		return
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", key, diff)
	}
}
