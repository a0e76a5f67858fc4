// Package listing derives the filtered views and summary figures shown by the console lists.
// Everything here is pure: no I/O, no shared state besides Memo.
package listing

import "strings"

// Searchable is a record with designated free-text searchable fields.
// Absent optional fields are left out, so they never match.
type Searchable interface {
	SearchFields() []string
}

// Filter returns the items having query as a case-insensitive substring of at least one
// searchable field, in their input order. Whitespace in query is matched as is.
// An empty query returns items unchanged.
func Filter[T Searchable](items []T, query string) []T {
	if query == "" {
		return items
	}

	q := strings.ToLower(query)
	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if Matches(item, q) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Matches reports whether lowerQuery is a substring of one of item's searchable fields.
// lowerQuery must already be lower case.
func Matches(item Searchable, lowerQuery string) bool {
	for _, fld := range item.SearchFields() {
		if strings.Contains(strings.ToLower(fld), lowerQuery) {
			return true
		}
	}
	return false
}
