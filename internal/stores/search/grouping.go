package search

import (
	"sort"

	"whiterabbit/internal/domain"
)

// Group is one category section of the dropdown
type Group struct {
	Category domain.Category
	Items    []domain.ResultItem
	// Offset is the flat index of Items[0]
	Offset int
}

// OrderResults returns items stably sorted by category precedence.
// Within a category the backend's relevance order is preserved. Items with
// an unknown category are dropped.
func OrderResults(items []domain.ResultItem) []domain.ResultItem {
	ordered := make([]domain.ResultItem, 0, len(items))
	for _, item := range items {
		if item.Category.Valid() {
			ordered = append(ordered, item)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Category.Rank() < ordered[j].Category.Rank()
	})
	return ordered
}

// GroupResults splits flat, already-ordered results into category groups.
// Empty categories are omitted.
func GroupResults(flat []domain.ResultItem) []Group {
	var groups []Group
	for i, item := range flat {
		if n := len(groups); n > 0 && groups[n-1].Category == item.Category {
			groups[n-1].Items = append(groups[n-1].Items, item)
			continue
		}
		groups = append(groups, Group{
			Category: item.Category,
			Items:    []domain.ResultItem{item},
			Offset:   i,
		})
	}
	return groups
}

// FlatIndex maps (group, position within group) to the linear index used
// for keyboard navigation. It returns -1 when out of range.
func FlatIndex(groups []Group, group, pos int) int {
	if group < 0 || group >= len(groups) {
		return -1
	}
	if pos < 0 || pos >= len(groups[group].Items) {
		return -1
	}
	return groups[group].Offset + pos
}
