package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func userFields() Fields {
	b := Builder{}
	return Fields{
		"age":     b.Number(Required()),
		"name":    b.String(Default("anon")),
		"joined":  b.Date(),
		"country": b.String(),
	}
}

func TestValidateRequired(t *testing.T) {
	_, err := Validate(userFields(), map[string]any{"name": "anon"}, ValidateOptions{})
	if !errors.Is(err, ErrRequired) {
		t.Fatalf("error = %v, want ErrRequired", err)
	}
	fe, _ := AsFieldError(err)
	if fe.Field != "age" {
		t.Errorf("Field = %q, want age", fe.Field)
	}
	if fe.Message != "age is missing but required" {
		t.Errorf("Message = %q", fe.Message)
	}

	_, err = Validate(userFields(), map[string]any{"age": nil}, ValidateOptions{})
	if fe, ok := AsFieldError(err); !ok || fe.Message != "age is required" {
		t.Errorf("nil value error = %v", err)
	}
}

func TestValidateOptionalAbsentFieldsAreOmitted(t *testing.T) {
	got, err := Validate(userFields(), map[string]any{"age": 30, "country": nil}, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"age": 30}, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFailsOnValidator(t *testing.T) {
	_, err := Validate(userFields(), map[string]any{"age": "thirty"}, ValidateOptions{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if err.Error() != "age must be a number" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestValidateCasts(t *testing.T) {
	got, err := Validate(userFields(), map[string]any{"age": 1, "joined": "2024-03-01T10:00:00Z"}, ValidateOptions{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	joined, ok := got["joined"].(time.Time)
	if !ok || !joined.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("joined = %#v", got["joined"])
	}

	// Cast output is stable under re-validation.
	again, err := Validate(userFields(), got, ValidateOptions{})
	if err != nil {
		t.Fatalf("re-validate failed: %v", err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("re-validation changed values (-first +second):\n%s", diff)
	}
}

func TestValidateCasterErrorsBecomeCastErrors(t *testing.T) {
	fields := Fields{
		"n": Builder{}.Number(WithCast(func(v any, f string) (any, error) {
			return nil, errors.New("boom")
		})),
	}
	_, err := Validate(fields, map[string]any{"n": 1}, ValidateOptions{})
	if !errors.Is(err, ErrCast) {
		t.Fatalf("error = %v, want ErrCast", err)
	}
}

func TestValidatePartial(t *testing.T) {
	got, err := Validate(userFields(), map[string]any{"country": "FR"}, ValidateOptions{Partial: true})
	if err != nil {
		t.Fatalf("partial validation should skip absent required fields: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"country": "FR"}, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	_, err = Validate(userFields(), map[string]any{"age": nil}, ValidateOptions{Partial: true})
	if !errors.Is(err, ErrRequired) {
		t.Errorf("clearing a required field should fail, got %v", err)
	}
}

func TestValidateNonSchemaFields(t *testing.T) {
	payload := func() map[string]any {
		return map[string]any{"age": 3, "dummy": "x", "_id": "abc", "meta.source": "import"}
	}

	t.Run("preserved when not strict", func(t *testing.T) {
		got, err := Validate(userFields(), payload(), ValidateOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if got["dummy"] != "x" || got["_id"] != "abc" || got["meta.source"] != "import" {
			t.Errorf("non-schema keys lost: %v", got)
		}
	})

	t.Run("strict reject", func(t *testing.T) {
		_, err := Validate(userFields(), payload(), ValidateOptions{Strict: StrictReject})
		if !errors.Is(err, ErrStrict) {
			t.Fatalf("error = %v, want ErrStrict", err)
		}
		if fe, _ := AsFieldError(err); fe.Field != "dummy" {
			t.Errorf("Field = %q, want dummy", fe.Field)
		}
	})

	t.Run("strict remove", func(t *testing.T) {
		in := payload()
		var removed []string
		got, err := Validate(userFields(), in, ValidateOptions{
			Strict:   StrictRemove,
			OnRemove: func(key string) { removed = append(removed, key) },
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := got["dummy"]; ok {
			t.Error("dummy should be removed from output")
		}
		if _, ok := in["dummy"]; ok {
			t.Error("dummy should be removed from payload")
		}
		if diff := cmp.Diff([]string{"dummy"}, removed); diff != "" {
			t.Errorf("OnRemove calls mismatch:\n%s", diff)
		}
		if got["_id"] != "abc" || got["meta.source"] != "import" {
			t.Errorf("identifier and dotted keys must survive: %v", got)
		}
	})

	t.Run("exempt keys", func(t *testing.T) {
		_, err := Validate(userFields(), map[string]any{"age": 1, "fullName": "x"}, ValidateOptions{
			Strict: StrictReject,
			Exempt: []string{"fullName"},
		})
		if err != nil {
			t.Errorf("exempt key rejected: %v", err)
		}
	})
}

func TestStrictSettings(t *testing.T) {
	tests := []struct {
		yaml string
		want StrictMode
	}{
		{"strict: true", StrictReject},
		{"strict: false", StrictOff},
		{"strict: remove", StrictRemove},
		{"strict: {removeNonSchemaFields: true}", StrictRemove},
		{"strict: {removeNonSchemaFields: false}", StrictReject},
	}
	for _, tt := range tests {
		t.Run(tt.yaml, func(t *testing.T) {
			var cfg struct {
				Strict StrictMode `yaml:"strict"`
			}
			if err := yaml.Unmarshal([]byte(tt.yaml), &cfg); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if cfg.Strict != tt.want {
				t.Errorf("Strict = %v, want %v", cfg.Strict, tt.want)
			}
		})
	}

	if _, err := ParseStrict("sometimes"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
