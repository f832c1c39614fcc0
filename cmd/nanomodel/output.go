package main

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/nanomodel/model"
)

// render converts documents into plain data for encoding.
func render(v any) any {
	switch t := v.(type) {
	case *model.Document:
		if t == nil {
			return nil
		}
		data := t.Data()
		for key, value := range data {
			if t.IsLoaded(key) {
				data[key] = render(value)
			}
		}
		return data
	case []*model.Document:
		out := make([]any, len(t))
		for i, d := range t {
			out[i] = render(d)
		}
		return out
	}
	return v
}

// writeOutput encodes v to w in the requested format
func writeOutput(w io.Writer, format string, v any) error {
	v = render(v)
	switch format {
	case "", "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	}
	return NewConfigError("write output", fmt.Sprintf("unknown format %q", format), "Use --format json or --format yaml")
}

// parseObject decodes a JSON object argument
func parseObject(operation, what, arg string) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal([]byte(arg), &out); err != nil {
		return nil, NewInputError(operation, what, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
