// Package listing holds the filter, sort and paginate helpers behind the
// admin tables.
package listing

import "strings"

// All is the filter value that disables a status or type filter.
const All = "all"

// Filter keeps the items whose search fields contain the query
// case-insensitively and that satisfy keep. An empty query matches every
// item and a nil keep accepts every item.
func Filter[T any](items []T, query string, fields func(T) []string, keep func(T) bool) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep != nil && !keep(item) {
			continue
		}
		if q != "" && !matches(fields(item), q) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Equals builds a keep predicate for a status or type filter. An empty
// wanted value or "all" accepts everything.
func Equals[T any](wanted string, field func(T) string) func(T) bool {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" || strings.EqualFold(wanted, All) {
		return nil
	}
	return func(item T) bool {
		return strings.EqualFold(field(item), wanted)
	}
}

func matches(fields []string, q string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
