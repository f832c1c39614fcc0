// Package matcher evaluates document queries in memory for the bundled
// stores.
//
// A query is a map from dotted field paths to either a literal (equality) or
// an operator map such as {"$gt": 3}. The top-level keys "$and" and "$or"
// combine nested queries.
package matcher

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/arthur-debert/nanomodel/internal/diff"
)

// Match reports whether doc satisfies query. An empty query matches every
// document.
func Match(doc map[string]any, query map[string]any) (bool, error) {
	for key, cond := range query {
		var (
			ok  bool
			err error
		)
		switch key {
		case "$and":
			ok, err = matchAll(doc, cond, true)
		case "$or":
			ok, err = matchAll(doc, cond, false)
		default:
			if strings.HasPrefix(key, "$") {
				return false, fmt.Errorf("unsupported top-level operator %q", key)
			}
			actual, exists := diff.Get(doc, key)
			ok, err = matchField(actual, exists, cond)
		}
		if err != nil {
			return false, fmt.Errorf("field %s: %w", key, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchAll(doc map[string]any, cond any, all bool) (bool, error) {
	items, ok := asSlice(cond)
	if !ok {
		return false, fmt.Errorf("expected a list of queries, got %T", cond)
	}
	for _, item := range items {
		sub, ok := AsMap(item)
		if !ok {
			return false, fmt.Errorf("expected a query, got %T", item)
		}
		matched, err := Match(doc, sub)
		if err != nil {
			return false, err
		}
		if all && !matched {
			return false, nil
		}
		if !all && matched {
			return true, nil
		}
	}
	return all, nil
}

func matchField(actual any, exists bool, cond any) (bool, error) {
	ops, isOps := operators(cond)
	if !isOps {
		return equalOrContains(actual, exists, cond), nil
	}
	for op, expected := range ops {
		ok, err := evalOperator(op, actual, exists, expected)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// operators returns cond as an operator map when every key starts with "$".
func operators(cond any) (map[string]any, bool) {
	m, ok := AsMap(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return m, true
}

func evalOperator(op string, actual any, exists bool, expected any) (bool, error) {
	switch op {
	case "$eq":
		return equalOrContains(actual, exists, expected), nil
	case "$ne":
		return !equalOrContains(actual, exists, expected), nil
	case "$in", "$nin":
		candidates, ok := asSlice(expected)
		if !ok {
			return false, fmt.Errorf("%s expects a list, got %T", op, expected)
		}
		found := false
		for _, c := range candidates {
			if equalOrContains(actual, exists, c) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !exists {
			return false, nil
		}
		c, ok := Compare(actual, expected)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return c > 0, nil
		case "$gte":
			return c >= 0, nil
		case "$lt":
			return c < 0, nil
		}
		return c <= 0, nil
	case "$exists":
		want, ok := expected.(bool)
		if !ok {
			return false, fmt.Errorf("$exists expects a boolean, got %T", expected)
		}
		return exists == want, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}

// equalOrContains implements equality with array membership: a field holding
// a list matches when any element equals expected. A missing field equals nil.
func equalOrContains(actual any, exists bool, expected any) bool {
	if !exists {
		return expected == nil
	}
	if Equal(actual, expected) {
		return true
	}
	if reflect.ValueOf(actual).Kind() != reflect.Slice {
		return false
	}
	if items, ok := asSlice(actual); ok {
		for _, item := range items {
			if Equal(item, expected) {
				return true
			}
		}
	}
	return false
}

// Equal compares two stored values. Numbers compare by value across Go
// types, and identifiers or times compare equal to their string forms so
// that records reloaded from JSON still match typed queries.
func Equal(a, b any) bool {
	if diff.Equal(a, b) {
		return true
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		return ok && ta.Equal(tb)
	}
	sa, okA := toText(a)
	sb, okB := toText(b)
	return okA && okB && sa == sb
}

// Compare orders two values of compatible kinds: numbers, strings or times.
// The boolean result is false when the values are not comparable.
func Compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	sa, okA := toText(a)
	sb, okB := toText(b)
	if !okA || !okB {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func toFloat(v any) (float64, bool) {
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

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	}
	return "", false
}

// AsMap converts any string-keyed map into map[string]any.
func AsMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
