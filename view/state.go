package view

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/giygas/drugdb/entities"
)

// State holds the inputs of a list screen
type State struct {
	Search     string
	Categories []string
	Sort       SortKey
	Page       int
	PageSize   int
}

// NewState returns the initial state: everything shown, sorted by name,
// first page
func NewState(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Sort: SortByName, Page: 1, PageSize: pageSize}
}

// SetSearch changes the search text and goes back to page 1 when it differs
func (s *State) SetSearch(search string) {
	if search == s.Search {
		return
	}
	s.Search = search
	s.Page = 1
}

func (s *State) SetCategories(categories []string) {
	s.Categories = normalizeCategories(categories)
}

func (s *State) SetSort(key SortKey) {
	if key.Valid() {
		s.Sort = key
	}
}

func (s *State) SetPage(page int) {
	s.Page = page
}

// Clamp brings the page back into 1..maxPage for total filtered items.
// Callers use it after the filtered set shrinks.
func (s *State) Clamp(total int) {
	maxPage := MaxPage(total, s.PageSize)
	if s.Page > maxPage {
		s.Page = maxPage
	}
	if s.Page < 1 {
		s.Page = 1
	}
}

// Apply runs filter, sort and paginate over drugs
func Apply(drugs []entities.DrugSummary, s State, sorter *Sorter) Page[entities.DrugSummary] {
	filtered := Filter(drugs, s.Search, s.Categories)
	sorted := sorter.Sort(filtered, s.Sort)
	return Paginate(sorted, s.Page, s.PageSize)
}

// ParseQuery reads a state from URL parameters: q, filters (comma
// separated), sort and page. Unknown or malformed values fall back to the
// initial state's.
func ParseQuery(values url.Values, pageSize int) State {
	s := NewState(pageSize)
	s.Search = values.Get("q")

	if filters := values.Get("filters"); filters != "" {
		s.SetCategories(strings.Split(filters, ","))
	}
	s.SetSort(SortKey(values.Get("sort")))

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		s.Page = page
	}
	return s
}

// Encode writes s as URL parameters, omitting values equal to the initial
// state's
func (s State) Encode() url.Values {
	values := url.Values{}
	if s.Search != "" {
		values.Set("q", s.Search)
	}
	if len(s.Categories) > 0 {
		values.Set("filters", strings.Join(s.Categories, ","))
	}
	if s.Sort != "" && s.Sort != SortByName {
		values.Set("sort", string(s.Sort))
	}
	if s.Page > 1 {
		values.Set("page", strconv.Itoa(s.Page))
	}
	return values
}

func normalizeCategories(categories []string) []string {
	out := make([]string, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := fold(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
