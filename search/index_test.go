package search

import (
	"context"
	"testing"

	"github.com/giygas/rxpad/catalogparser/entities"
)

func testCatalog() *entities.Catalog {
	return entities.NewCatalog("medications", []entities.Item{
		{ID: "m1", Label: "Paracetamol 500mg", Aliases: []string{"Acetaminophen"}, Category: []string{"analgesic"}, Popularity: 90},
		{ID: "m2", Label: "Ibuprofen 200mg", Aliases: []string{"Advil"}, Category: []string{"analgesic", "nsaid"}, Popularity: 80},
		{ID: "m3", Label: "Ibuprofen 400mg", Category: []string{"analgesic", "nsaid"}, Popularity: 80},
		{ID: "m4", Label: "Amoxicilline 1g", Category: []string{"antibiotic"}, Popularity: 70},
		{ID: "m5", Label: "Children's ibuprofen syrup", Category: []string{"analgesic"}, Popularity: 80},
	})
}

func testTests() *entities.Catalog {
	return entities.NewCatalog("tests", []entities.Item{
		{ID: "t1", Label: "Fasting blood sugar", Type: "blood", Popularity: 50, Metadata: map[string]any{"fasting": true}},
		{ID: "t2", Label: "Random blood sugar", Type: "blood", Popularity: 50},
		{ID: "t3", Label: "Urine routine", Type: "urine", Popularity: 40},
		{ID: "t4", Label: "Hémoglobine glyquée", Aliases: []string{"HbA1c"}, Type: "blood", Popularity: 60},
	})
}

func ids(results []entities.Suggestion) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hémoglobine", "hemoglobine"},
		{"  IBUPROFEN   200mg ", "ibuprofen 200mg"},
		{"Çà et là", "ca et la"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	ix := NewIndex(testCatalog())

	results := ix.Search("ibuprofen", entities.Filters{})
	if len(results) == 0 {
		t.Fatal("Expected results for ibuprofen")
	}
	if results[0].ID != "m2" || results[0].Label != "Ibuprofen 200mg" {
		t.Errorf("Expected Ibuprofen 200mg first, got %s", results[0].Label)
	}

	upper := ix.Search("IBUPROFEN", entities.Filters{})
	if len(upper) != len(results) {
		t.Errorf("Expected same result count regardless of case, got %d and %d", len(results), len(upper))
	}
}

func TestSearchOrdering(t *testing.T) {
	ix := NewIndex(testCatalog())

	// m2, m3 are prefix matches, m5 is a word prefix match; all share popularity 80
	got := ids(ix.Search("ibu", entities.Filters{}))
	want := []string{"m2", "m3", "m5"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestSearchPopularityBeatsQuality(t *testing.T) {
	ix := NewIndex(testCatalog())

	// "mg" is a substring of every strength; paracetamol is the most popular
	results := ix.Search("mg", entities.Filters{})
	if len(results) == 0 || results[0].ID != "m1" {
		t.Errorf("Expected most popular item first, got %v", ids(results))
	}
}

func TestSearchAliases(t *testing.T) {
	ix := NewIndex(testCatalog())

	results := ix.Search("advil", entities.Filters{})
	if len(results) != 1 || results[0].ID != "m2" {
		t.Fatalf("Expected alias match on m2, got %v", ids(results))
	}
	if results[0].Confidence != qualityAliasExact {
		t.Errorf("Expected alias exact confidence, got %f", results[0].Confidence)
	}
}

func TestSearchAccentInsensitive(t *testing.T) {
	ix := NewIndex(testTests())

	results := ix.Search("hemoglobine", entities.Filters{})
	if len(results) != 1 || results[0].ID != "t4" {
		t.Errorf("Expected accent-insensitive match, got %v", ids(results))
	}
}

func TestSearchFilters(t *testing.T) {
	ix := NewIndex(testTests())
	yes := true
	no := false

	tests := []struct {
		name    string
		query   string
		filters entities.Filters
		want    []string
	}{
		{"fasting only", "blood", entities.Filters{Fasting: &yes}, []string{"t1"}},
		{"non fasting", "blood", entities.Filters{Fasting: &no}, []string{"t2"}},
		{"type filter", "r", entities.Filters{Type: "urine"}, []string{"t3"}},
		{"limit", "blood", entities.Filters{Limit: 1}, []string{"t1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(ix.Search(tt.query, tt.filters))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}

	ixMeds := NewIndex(testCatalog())
	got := ids(ixMeds.Search("i", entities.Filters{Categories: []string{"ANTIBIOTIC"}}))
	if len(got) != 1 || got[0] != "m4" {
		t.Errorf("Expected category filter to keep only m4, got %v", got)
	}
}

func TestSearchNoMatchAndEmpty(t *testing.T) {
	ix := NewIndex(testCatalog())

	if results := ix.Search("zzz", entities.Filters{}); results == nil || len(results) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", results)
	}
	if results := ix.Search("   ", entities.Filters{}); len(results) != 0 {
		t.Errorf("Expected no results for blank query, got %v", results)
	}

	var nilIndex *Index
	if results := nilIndex.Search("ibu", entities.Filters{}); len(results) != 0 {
		t.Errorf("Expected nil index to return nothing, got %v", results)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	items := make([]entities.Item, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, entities.Item{ID: string(rune('a'+i%26)) + string(rune('0'+i/26)), Label: "Vitamin"})
	}
	ix := NewIndex(entities.NewCatalog("v", items))

	if got := len(ix.Search("vit", entities.Filters{})); got != DefaultLimit {
		t.Errorf("Expected %d results, got %d", DefaultLimit, got)
	}
	if got := len(ix.Search("vit", entities.Filters{Limit: 1000})); got != 50 {
		t.Errorf("Expected all 50 results under the cap, got %d", got)
	}
}

func TestSearchOrCustom(t *testing.T) {
	ix := NewIndex(testCatalog())

	results := ix.SearchOrCustom("Vitamin D3 60k", entities.Filters{})
	if len(results) != 1 {
		t.Fatalf("Expected one custom result, got %d", len(results))
	}
	custom := results[0]
	if !custom.IsCustom() || custom.Source != entities.SourceUserDefined {
		t.Errorf("Expected user-defined item, got source %q", custom.Source)
	}
	if custom.Label != "Vitamin D3 60k" {
		t.Errorf("Expected label from raw text, got %q", custom.Label)
	}

	if results := ix.SearchOrCustom("ibuprofen", entities.Filters{}); results[0].IsCustom() {
		t.Error("Catalog matches should not produce a custom entry")
	}
	if results := ix.SearchOrCustom("  ", entities.Filters{}); len(results) != 0 {
		t.Error("Blank query should not produce a custom entry")
	}
}

func TestSource(t *testing.T) {
	ix := NewIndex(testCatalog())
	src := NewSource(func() *Index { return ix }, entities.Filters{}, true)

	results, err := src.Search(context.Background(), "amox")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "m4" {
		t.Errorf("Expected m4, got %v", ids(results))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Search(ctx, "amox"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
