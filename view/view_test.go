package view

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"testing"

	"github.com/giygas/drugdb/entities"
	"golang.org/x/text/language"
)

var sampleDrugs = []entities.DrugSummary{
	{DrugID: 1, Name: "Aspirin", Class: "NSAID"},
	{DrugID: 2, Name: "ibuprofen", Class: "NSAID"},
	{DrugID: 3, Name: "Paracetamol", Class: "Analgesic"},
	{DrugID: 4, Name: "Morphine", Class: "Opioid"},
	{DrugID: 5, Name: "Éther", Class: ""},
	{DrugID: 6, Name: "Lipitor", Class: "Statin"},
}

func ids(drugs []entities.DrugSummary) []int {
	out := make([]int, len(drugs))
	for i, d := range drugs {
		out[i] = d.DrugID
	}
	return out
}

func equalIDs(a, b []int) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		search     string
		categories []string
		expected   []int
	}{
		{"empty matches all", "", nil, []int{1, 2, 3, 4, 5, 6}},
		{"name substring ignores case", "PROF", nil, []int{2}},
		{"class substring", "nsa", nil, []int{1, 2}},
		{"name or class", "o", nil, []int{2, 3, 4, 6}},
		{"category set", "", []string{"nsaid", "Opioid"}, []int{1, 2, 4}},
		{"search and category compose", "asp", []string{"nsaid"}, []int{1}},
		{"no match", "zzz", nil, []int{}},
		{"unclassified never matches a category", "", []string{""}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sampleDrugs, tt.search, tt.categories))
			if !equalIDs(got, tt.expected) {
				t.Errorf("Filter(%q, %v) = %v, want %v", tt.search, tt.categories, got, tt.expected)
			}
		})
	}
}

func TestSort(t *testing.T) {
	sorter := NewSorter(language.English)

	byName := ids(sorter.Sort(sampleDrugs, SortByName))
	if !equalIDs(byName, []int{1, 5, 2, 6, 4, 3}) {
		t.Errorf("Unexpected name order %v", byName)
	}

	byCategory := ids(sorter.Sort(sampleDrugs, SortByCategory))
	// Analgesic, NSAID x2 (stable), Opioid, Statin, Unclassified
	if !equalIDs(byCategory, []int{3, 1, 2, 4, 6, 5}) {
		t.Errorf("Unexpected category order %v", byCategory)
	}

	if !equalIDs(ids(sampleDrugs), []int{1, 2, 3, 4, 5, 6}) {
		t.Error("Sort must not modify its input")
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 30)
	for i := range items {
		items[i] = i
	}

	tests := []struct {
		page      int
		wantLen   int
		wantFirst int
	}{
		{1, 12, 0},
		{2, 12, 12},
		{3, 6, 24},
		{4, 0, -1},
		{0, 0, -1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			p := Paginate(items, tt.page, 12)
			if len(p.Items) != tt.wantLen {
				t.Fatalf("Expected %d items, got %d", tt.wantLen, len(p.Items))
			}
			if tt.wantLen > 0 && p.Items[0] != tt.wantFirst {
				t.Errorf("Expected first item %d, got %d", tt.wantFirst, p.Items[0])
			}
			if p.Page != tt.page {
				t.Errorf("Page must not be corrected: got %d", p.Page)
			}
			if p.MaxPage != 3 || p.TotalItems != 30 {
				t.Errorf("Unexpected totals %d/%d", p.MaxPage, p.TotalItems)
			}
		})
	}
}

func randomDrugs(r *rand.Rand, n int) []entities.DrugSummary {
	names := []string{"Aspirin", "aspirin", "Codeine", "Diazepam", "Zolpidem", "Ébastine", "Ibuprofen", "Morphine"}
	classes := []string{"", "NSAID", "Opioid", "Benzodiazepine", "Antihistamine", "nsaid"}
	drugs := make([]entities.DrugSummary, n)
	for i := range drugs {
		drugs[i] = entities.DrugSummary{
			DrugID: i + 1,
			Name:   names[r.IntN(len(names))],
			Class:  classes[r.IntN(len(classes))],
		}
	}
	return drugs
}

func TestFilterProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	searches := []string{"", "a", "PIN", "nsaid", "op", "é", "x"}

	for round := 0; round < 50; round++ {
		drugs := randomDrugs(r, r.IntN(40))
		search := searches[r.IntN(len(searches))]

		got := Filter(drugs, search, nil)
		want := 0
		for _, d := range drugs {
			q := strings.ToLower(search)
			if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Class), q) {
				want++
			}
		}
		if len(got) != want {
			t.Fatalf("round %d: Filter(%q) kept %d, want %d", round, search, len(got), want)
		}

		categories := []string{"nsaid", "opioid"}
		narrowed := Filter(drugs, search, categories)
		if len(narrowed) > len(got) {
			t.Fatalf("round %d: category filter widened the result", round)
		}
		for _, d := range narrowed {
			c := strings.ToLower(d.Class)
			if c != "nsaid" && c != "opioid" {
				t.Fatalf("round %d: %q passed the category filter", round, d.Class)
			}
		}
	}
}

func TestPaginationReconstructsSortedList(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	sorter := NewSorter(language.English)

	for round := 0; round < 30; round++ {
		sorted := sorter.Sort(Filter(randomDrugs(r, r.IntN(60)), "", nil), SortByCategory)
		maxPage := MaxPage(len(sorted), DefaultPageSize)

		var rebuilt []entities.DrugSummary
		for page := 1; page <= maxPage; page++ {
			p := Paginate(sorted, page, DefaultPageSize)
			if len(p.Items) > DefaultPageSize {
				t.Fatalf("round %d: page %d has %d items", round, page, len(p.Items))
			}
			rebuilt = append(rebuilt, p.Items...)
		}
		if !equalIDs(ids(rebuilt), ids(sorted)) {
			t.Fatalf("round %d: pages do not rebuild the list", round)
		}
	}
}

func TestSortIsStableAcrossKeys(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	sorter := NewSorter(language.French)
	drugs := randomDrugs(r, 50)

	first := sorter.Sort(drugs, SortByName)
	again := sorter.Sort(sorter.Sort(first, SortByCategory), SortByName)
	direct := sorter.Sort(sorter.Sort(drugs, SortByCategory), SortByName)

	if !equalIDs(ids(sorter.Sort(first, SortByName)), ids(first)) {
		t.Error("Sorting twice by name must be idempotent")
	}
	if !equalIDs(ids(again), ids(direct)) {
		t.Error("Name order after a category sort must depend only on the input")
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Name == first[i].Name && first[i-1].DrugID > first[i].DrugID {
			t.Fatalf("Ties are not stable at %d", i)
		}
	}
}

func TestStateTransitions(t *testing.T) {
	s := NewState(12)
	s.SetPage(3)

	s.SetSearch("")
	if s.Page != 3 {
		t.Error("Unchanged search must keep the page")
	}

	s.SetSearch("asp")
	if s.Page != 1 {
		t.Errorf("Changing search must reset to page 1, got %d", s.Page)
	}

	s.SetPage(5)
	s.SetSort(SortByCategory)
	if s.Page != 5 || s.Sort != SortByCategory {
		t.Errorf("Sort change must not touch the page: %+v", s)
	}
	s.SetSort("price")
	if s.Sort != SortByCategory {
		t.Error("Unknown sort key must be ignored")
	}

	s.Clamp(13)
	if s.Page != 2 {
		t.Errorf("Expected clamp to page 2, got %d", s.Page)
	}
	s.Clamp(0)
	if s.Page != 1 {
		t.Errorf("Expected clamp to page 1, got %d", s.Page)
	}
}

func TestApply(t *testing.T) {
	s := NewState(2)
	s.SetCategories([]string{"NSAID", "opioid"})
	s.SetSort(SortByName)

	p := Apply(sampleDrugs, s, NewSorter(language.English))

	if p.TotalItems != 3 || p.MaxPage != 2 {
		t.Errorf("Unexpected totals %d/%d", p.TotalItems, p.MaxPage)
	}
	if !equalIDs(ids(p.Items), []int{1, 2}) {
		t.Errorf("Unexpected first page %v", ids(p.Items))
	}
}

func TestQueryRoundTrip(t *testing.T) {
	values, _ := url.ParseQuery("q=asp&filters=NSAID,,opioid,nsaid&sort=category&page=2")
	s := ParseQuery(values, 12)

	if s.Search != "asp" || s.Sort != SortByCategory || s.Page != 2 {
		t.Errorf("Unexpected state %+v", s)
	}
	if strings.Join(s.Categories, ",") != "nsaid,opioid" {
		t.Errorf("Unexpected categories %v", s.Categories)
	}
	if got := s.Encode().Encode(); got != "filters=nsaid%2Copioid&page=2&q=asp&sort=category" {
		t.Errorf("Unexpected encoding %s", got)
	}

	if enc := NewState(12).Encode(); len(enc) != 0 {
		t.Errorf("Initial state must encode to nothing, got %v", enc)
	}

	bad := ParseQuery(url.Values{"page": {"-3"}, "sort": {"price"}}, 12)
	if bad.Page != 1 || bad.Sort != SortByName {
		t.Errorf("Malformed values must fall back, got %+v", bad)
	}
}
