// Package view derives what a drug list screen shows from the cached
// collection: text and category filtering, locale-aware sorting and
// fixed-size pagination, always applied in that order.
package view

import (
	"sort"
	"strings"
	"sync"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/viewmodel"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const DefaultPageSize = 12

type SortKey string

const (
	SortByName     SortKey = "name"
	SortByCategory SortKey = "category"
)

// Valid reports whether k is a known sort key
func (k SortKey) Valid() bool {
	return k == SortByName || k == SortByCategory
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Filter keeps the drugs whose name or class contains search, ignoring
// case, and whose class is one of categories when categories is non-empty.
// The input order is preserved.
func Filter(drugs []entities.DrugSummary, search string, categories []string) []entities.DrugSummary {
	query := fold(search)

	var allowed map[string]struct{}
	if len(categories) > 0 {
		allowed = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			allowed[fold(c)] = struct{}{}
		}
	}

	out := make([]entities.DrugSummary, 0, len(drugs))
	for _, d := range drugs {
		class := fold(d.Class)

		if query != "" && !strings.Contains(fold(d.Name), query) && !strings.Contains(class, query) {
			continue
		}
		if allowed != nil {
			if _, ok := allowed[class]; !ok || d.Class == "" {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// Sorter orders drugs with a locale-aware collation
type Sorter struct {
	mu       sync.Mutex
	collator *collate.Collator
}

func NewSorter(tag language.Tag) *Sorter {
	return &Sorter{collator: collate.New(tag)}
}

// Sort returns a new slice ordered ascending by key. Equal keys keep their
// input order. Drugs without a class sort as "Unclassified".
func (s *Sorter) Sort(drugs []entities.DrugSummary, key SortKey) []entities.DrugSummary {
	sorted := make([]entities.DrugSummary, len(drugs))
	copy(sorted, drugs)

	sortKey := func(d entities.DrugSummary) string {
		if key == SortByCategory {
			if d.Class == "" {
				return viewmodel.DefaultCategory
			}
			return d.Class
		}
		return d.Name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sort.SliceStable(sorted, func(i, j int) bool {
		return s.collator.CompareString(sortKey(sorted[i]), sortKey(sorted[j])) < 0
	})
	return sorted
}

// Page is one slice of a list
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	MaxPage    int `json:"maxPage"`
}

// MaxPage is the number of pages needed for total items, at least 1
func MaxPage(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Paginate returns the 1-based page of items. Pages out of range are
// returned empty rather than corrected.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   size,
		TotalItems: len(items),
		MaxPage:    MaxPage(len(items), size),
	}
	if page < 1 {
		return p
	}

	start := (page - 1) * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.Items = items[start:end]
	return p
}
