package store

import (
	"sort"

	"github.com/arthur-debert/nanomodel/internal/diff"
	"github.com/arthur-debert/nanomodel/store/internal/matcher"
)

// filter returns the records matching q, without copying them.
func filter(records []map[string]any, q Query) ([]map[string]any, error) {
	var out []map[string]any
	for _, r := range records {
		ok, err := matcher.Match(r, q)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// mergeFindOptions folds variadic options into one; later options win for
// each field they set.
func mergeFindOptions(opts []FindOptions) FindOptions {
	var merged FindOptions
	for _, o := range opts {
		if len(o.Sort) > 0 {
			merged.Sort = o.Sort
		}
		if o.Skip > 0 {
			merged.Skip = o.Skip
		}
		if o.Limit > 0 {
			merged.Limit = o.Limit
		}
		if len(o.Projection) > 0 {
			merged.Projection = o.Projection
		}
	}
	return merged
}

// applyFindOptions sorts, pages and projects records, returning deep copies.
func applyFindOptions(records []map[string]any, o FindOptions) []map[string]any {
	records = sortRecords(records, o.Sort)
	records = page(records, o.Skip, o.Limit)
	out := make([]map[string]any, len(records))
	for i, r := range records {
		out[i] = project(diff.CopyMap(r), o.Projection)
	}
	return out
}

// sortRecords returns a stably sorted copy of the slice. Missing and
// incomparable values sort first.
func sortRecords(records []map[string]any, fields []SortField) []map[string]any {
	if len(fields) == 0 {
		return records
	}
	sorted := make([]map[string]any, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, f := range fields {
			a, okA := diff.Get(sorted[i], f.Field)
			b, okB := diff.Get(sorted[j], f.Field)
			c := 0
			switch {
			case !okA && !okB:
				c = 0
			case !okA:
				c = -1
			case !okB:
				c = 1
			default:
				c, _ = matcher.Compare(a, b)
			}
			if c == 0 {
				continue
			}
			if f.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sorted
}

func page(records []map[string]any, skip, limit int) []map[string]any {
	if skip > 0 {
		if skip >= len(records) {
			return nil
		}
		records = records[skip:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}

// project applies a projection to a record copy in place.
func project(record map[string]any, projection map[string]bool) map[string]any {
	if len(projection) == 0 {
		return record
	}
	inclusive := false
	for field, keep := range projection {
		if keep && field != IDKey {
			inclusive = true
			break
		}
	}
	if !inclusive {
		for field, keep := range projection {
			if !keep {
				diff.Delete(record, field)
			}
		}
		return record
	}

	out := make(map[string]any)
	for field, keep := range projection {
		if !keep {
			continue
		}
		if v, ok := diff.Get(record, field); ok {
			diff.Set(out, field, v)
		}
	}
	if keepID, listed := projection[IDKey]; !listed || keepID {
		if id, ok := record[IDKey]; ok {
			out[IDKey] = id
		}
	}
	return out
}

// aggregate runs a pipeline over records and returns deep copies.
func aggregate(records []map[string]any, p Pipeline) ([]map[string]any, error) {
	stream := records
	for _, stage := range p {
		if stage.Match != nil {
			matched, err := filter(stream, stage.Match)
			if err != nil {
				return nil, err
			}
			stream = matched
		}
		if len(stage.Sort) > 0 {
			stream = sortRecords(stream, stage.Sort)
		}
		stream = page(stream, stage.Skip, stage.Limit)
		if len(stage.Project) > 0 {
			projected := make([]map[string]any, len(stream))
			for i, r := range stream {
				projected[i] = project(diff.CopyMap(r), stage.Project)
			}
			stream = projected
		}
		if stage.Count != "" {
			stream = []map[string]any{{stage.Count: int64(len(stream))}}
		}
	}

	out := make([]map[string]any, len(stream))
	for i, r := range stream {
		out[i] = diff.CopyMap(r)
	}
	return out, nil
}
