package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/arthur-debert/nanomodel/model"
	"github.com/arthur-debert/nanomodel/schema"
	"github.com/arthur-debert/nanomodel/store"
)

const testDefinitions = `database: data.json
models:
  Author:
    collection: authors
    strict: remove
    schema:
      name: {type: string, required: true}
      username: {type: string, unique: true}
      born: {type: number}
  Book:
    collection: books
    schema:
      title: {type: string, required: true}
      authorId: {type: identifier}
    relationships:
      author: {type: hasOne, model: Author, where: {_id: authorId}, cast: true}
`

// setupCLITest writes a definitions file into a temp dir and isolates the
// CLI from the user's environment.
func setupCLITest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("NANOMODEL_CONFIG", "")
	t.Setenv("NANOMODEL_MODELS", "")
	t.Setenv("NANOMODEL_DB", "")

	path := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(path, []byte(testDefinitions), 0644); err != nil {
		t.Fatalf("Failed to write definitions: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cli := NewCLI()
	var out bytes.Buffer
	cli.rootCmd.SetOut(&out)
	cli.rootCmd.SetErr(&out)
	cli.rootCmd.SetArgs(args)
	err := cli.Execute()
	return out.String(), err
}

func runJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("Failed to parse output %q: %v", out, err)
	}
	return doc
}

func TestCLIDocumentLifecycle(t *testing.T) {
	models := setupCLITest(t)

	created := runJSON(t, "--models", models, "create", "Author",
		`{"name": "Ursula", "username": "ursula", "born": 1929, "nickname": "ukl"}`)
	id, ok := created["_id"].(string)
	if !ok || id == "" {
		t.Fatalf("Expected generated _id, got %v", created["_id"])
	}
	if _, ok := created["nickname"]; ok {
		t.Error("Expected non-schema field to be removed")
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(models), "data.json")); err != nil {
		t.Fatalf("Expected database next to definitions file: %v", err)
	}

	got := runJSON(t, "--models", models, "get", "Author", id)
	if got["name"] != "Ursula" {
		t.Errorf("Expected name Ursula, got %v", got["name"])
	}

	updated := runJSON(t, "--models", models, "update", "Author", id, `{"born": 1930, "username": null}`)
	if updated["born"] != float64(1930) {
		t.Errorf("Expected born 1930, got %v", updated["born"])
	}
	if _, ok := updated["username"]; ok {
		t.Error("Expected username to be removed")
	}

	got = runJSON(t, "--models", models, "get", "Author", id)
	if got["born"] != float64(1930) {
		t.Errorf("Expected stored born 1930, got %v", got["born"])
	}

	out, err := runCLI(t, "--models", models, "delete", "Author", id)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(out, "deleted Author "+id) {
		t.Errorf("Unexpected delete output %q", out)
	}

	_, err = runCLI(t, "--models", models, "get", "Author", id)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestCLIFind(t *testing.T) {
	models := setupCLITest(t)
	for _, doc := range []string{
		`{"name": "Ursula", "born": 1929}`,
		`{"name": "Octavia", "born": 1947}`,
		`{"name": "Ted", "born": 1967}`,
	} {
		if _, err := runCLI(t, "--models", models, "create", "Author", doc); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	out, err := runCLI(t, "--models", models, "find", "Author", `{"born": {"$gt": 1930}}`,
		"--sort", "-born", "--fields", "name")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	var docs []map[string]any
	if err := json.Unmarshal([]byte(out), &docs); err != nil {
		t.Fatalf("Failed to parse output %q: %v", out, err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0]["name"] != "Ted" || docs[1]["name"] != "Octavia" {
		t.Errorf("Unexpected order: %v", docs)
	}
	if _, ok := docs[0]["born"]; ok {
		t.Error("Expected projection to drop born")
	}

	count := runJSON(t, "--models", models, "find", "Author", "--count")
	if count["count"] != float64(3) {
		t.Errorf("Expected count 3, got %v", count["count"])
	}

	out, err = runCLI(t, "--models", models, "--format", "yaml", "find", "Author", "--limit", "1", "--sort", "name")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if !strings.Contains(out, "name: Octavia") {
		t.Errorf("Expected YAML output with Octavia, got %q", out)
	}
}

func TestCLILoadRelationship(t *testing.T) {
	models := setupCLITest(t)
	author := runJSON(t, "--models", models, "create", "Author", `{"name": "Octavia", "username": "octavia"}`)
	book := runJSON(t, "--models", models, "create", "Book",
		`{"title": "Kindred", "authorId": "`+author["_id"].(string)+`"}`)

	loaded := runJSON(t, "--models", models, "load", "Book", book["_id"].(string), "author")
	related, ok := loaded["author"].(map[string]any)
	if !ok {
		t.Fatalf("Expected loaded author, got %v", loaded["author"])
	}
	if related["name"] != "Octavia" {
		t.Errorf("Expected author Octavia, got %v", related["name"])
	}

	_, err := runCLI(t, "--models", models, "load", "Book", book["_id"].(string), "publisher")
	if !errors.Is(err, model.ErrRelationshipConfig) {
		t.Errorf("Expected relationship error, got %v", err)
	}
}

func TestCLIUnset(t *testing.T) {
	models := setupCLITest(t)
	created := runJSON(t, "--models", models, "create", "Author", `{"name": "Ted", "username": "ted", "born": 1967}`)
	id := created["_id"].(string)

	doc := runJSON(t, "--models", models, "unset", "Author", id, "born", "username")
	if _, ok := doc["born"]; ok {
		t.Error("Expected born to be unset")
	}
	got := runJSON(t, "--models", models, "get", "Author", id)
	if _, ok := got["username"]; ok {
		t.Error("Expected username to be unset in the store")
	}
}

func TestCLIValidationErrors(t *testing.T) {
	models := setupCLITest(t)

	t.Run("missing required field", func(t *testing.T) {
		_, err := runCLI(t, "--models", models, "validate", "Author", `{"born": 1929}`)
		fe, ok := schema.AsFieldError(err)
		if !ok {
			t.Fatalf("Expected field error, got %v", err)
		}
		if fe.Field != "name" || !errors.Is(err, schema.ErrRequired) {
			t.Errorf("Expected required error on name, got %v", fe)
		}
	})

	t.Run("validate reports the cleaned document", func(t *testing.T) {
		doc := runJSON(t, "--models", models, "validate", "Author", `{"name": "Ted", "extra": true}`)
		if _, ok := doc["extra"]; ok {
			t.Error("Expected extra field to be removed")
		}
	})

	t.Run("duplicate unique value", func(t *testing.T) {
		if _, err := runCLI(t, "--models", models, "create", "Author", `{"name": "A", "username": "dup"}`); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		_, err := runCLI(t, "--models", models, "create", "Author", `{"name": "B", "username": "dup"}`)
		if !errors.Is(err, model.ErrUniqueness) {
			t.Errorf("Expected uniqueness error, got %v", err)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := runCLI(t, "--models", models, "create", "Author", `{name}`)
		var cliErr *CLIError
		if !errors.As(err, &cliErr) || cliErr.Cause != "invalid document" {
			t.Errorf("Expected invalid document error, got %v", err)
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := runCLI(t, "--models", models, "get", "Magazine", "x")
		if err == nil || !strings.Contains(err.Error(), "Available models: Author, Book") {
			t.Errorf("Expected unknown model error listing models, got %v", err)
		}
	})
}

func TestCLIConfiguration(t *testing.T) {
	models := setupCLITest(t)

	t.Run("definitions file required", func(t *testing.T) {
		_, err := runCLI(t, "get", "Author", "x")
		if err == nil || !strings.Contains(err.Error(), "no definitions file") {
			t.Errorf("Expected missing definitions error, got %v", err)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("NANOMODEL_MODELS", models)
		t.Setenv("NANOMODEL_DB", filepath.Join(filepath.Dir(models), "other.json"))
		if _, err := runCLI(t, "create", "Author", `{"name": "Env"}`); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(models), "other.json")); err != nil {
			t.Errorf("Expected database from NANOMODEL_DB: %v", err)
		}
	})

	t.Run("models listing", func(t *testing.T) {
		out, err := runCLI(t, "--models", models, "models")
		if err != nil {
			t.Fatalf("models failed: %v", err)
		}
		var names []string
		if err := json.Unmarshal([]byte(out), &names); err != nil {
			t.Fatalf("Failed to parse output %q: %v", out, err)
		}
		if strings.Join(names, ",") != "Author,Book" {
			t.Errorf("Unexpected models %v", names)
		}

		summary := runJSON(t, "--models", models, "models", "Author")
		if summary["strict"] != "remove" || summary["collection"] != "authors" {
			t.Errorf("Unexpected summary %v", summary)
		}
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := runCLI(t, "--models", models, "--format", "xml", "models")
		if err == nil || !strings.Contains(err.Error(), "unknown format") {
			t.Errorf("Expected unknown format error, got %v", err)
		}
	})
}
