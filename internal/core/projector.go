package core

import (
	"cmp"
	"slices"
	"strings"
)

// Project derives the displayed sequence from a fetched page.
//
// Items whose title contains the trimmed search term (case-insensitive) are
// kept; a blank term keeps everything. The result is then ordered by field.
// Ties keep their input order in both directions because desc negates the
// comparator rather than reversing the output. items is never modified.
func Project(items []Product, search string, field SortField, dir SortDir) []Product {
	q := strings.ToLower(strings.TrimSpace(search))

	out := make([]Product, 0, len(items))
	for _, p := range items {
		if q == "" || strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
		}
	}

	compare := comparator(field)
	if compare == nil {
		return out
	}

	sign := 1
	if dir == SortDesc {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b Product) int {
		return sign * compare(a, b)
	})
	return out
}

func comparator(field SortField) func(a, b Product) int {
	switch field {
	case SortTitle:
		return func(a, b Product) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortPrice:
		return func(a, b Product) int {
			return cmp.Compare(a.Price.Float(), b.Price.Float())
		}
	default:
		return nil
	}
}

// NextSort returns the sort selection after the user picks field: picking
// the active field flips the direction, picking another field starts it
// ascending.
func NextSort(curField SortField, curDir SortDir, picked SortField) (SortField, SortDir) {
	if picked == SortNone {
		return SortNone, SortAsc
	}
	if picked == curField {
		return curField, curDir.Flip()
	}
	return picked, SortAsc
}
