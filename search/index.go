package search

import (
	"context"
	"sort"
	"strings"

	"github.com/giygas/rxpad/catalogparser/entities"
)

const (
	// DefaultLimit is the number of suggestions returned when Filters.Limit is zero
	DefaultLimit = 20
	// MaxLimit caps any requested limit
	MaxLimit = 100
)

// Match quality per kind of hit, best first
const (
	qualityExact       = 1.0
	qualityPrefix      = 0.9
	qualityAliasExact  = 0.85
	qualityWordPrefix  = 0.8
	qualityAliasPrefix = 0.75
	qualitySubstring   = 0.7
	qualityAliasSubstr = 0.6
	qualityCustomEntry = 0.0
	qualityNoMatch     = -1.0
)

type indexedItem struct {
	item    entities.Item
	label   string   // normalized label
	aliases []string // normalized aliases
}

// Index is a read-only search structure over one catalog.
// It is safe for concurrent use.
type Index struct {
	catalog *entities.Catalog
	items   []indexedItem
}

// NewIndex pre-computes normalized labels and aliases for every catalog item
func NewIndex(catalog *entities.Catalog) *Index {
	ix := &Index{catalog: catalog}
	if catalog == nil {
		return ix
	}

	ix.items = make([]indexedItem, 0, len(catalog.Items))
	for _, item := range catalog.Items {
		aliases := make([]string, 0, len(item.Aliases))
		for _, a := range item.Aliases {
			if n := Normalize(a); n != "" {
				aliases = append(aliases, n)
			}
		}
		ix.items = append(ix.items, indexedItem{
			item:    item,
			label:   Normalize(item.Label),
			aliases: aliases,
		})
	}

	return ix
}

// Catalog returns the indexed catalog
func (ix *Index) Catalog() *entities.Catalog {
	if ix == nil {
		return nil
	}
	return ix.catalog
}

// Len returns the number of indexed items
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.items)
}

// Search returns the catalog items whose label or aliases contain query,
// ordered by popularity, then match quality, then catalog order.
func (ix *Index) Search(query string, f entities.Filters) []entities.Suggestion {
	q := Normalize(query)
	if q == "" || ix == nil {
		return []entities.Suggestion{}
	}

	results := make([]entities.Suggestion, 0)
	for i := range ix.items {
		it := &ix.items[i]
		if !f.Match(it.item) {
			continue
		}
		quality := matchQuality(q, it.label, it.aliases)
		if quality == qualityNoMatch {
			continue
		}
		results = append(results, entities.Suggestion{Item: it.item, Confidence: quality})
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Popularity != results[b].Popularity {
			return results[a].Popularity > results[b].Popularity
		}
		return results[a].Confidence > results[b].Confidence
	})

	limit := effectiveLimit(f.Limit)
	if len(results) > limit {
		results = results[:limit]
	}

	return results
}

// SearchOrCustom behaves like Search but, when nothing matches a non-blank
// query, returns a single user-defined item built from the raw text.
func (ix *Index) SearchOrCustom(query string, f entities.Filters) []entities.Suggestion {
	results := ix.Search(query, f)
	if len(results) > 0 || strings.TrimSpace(query) == "" {
		return results
	}
	return []entities.Suggestion{{Item: entities.NewCustomItem(query), Confidence: qualityCustomEntry}}
}

func effectiveLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// matchQuality scores a normalized query against a normalized label and aliases.
// It returns qualityNoMatch when neither contains the query.
func matchQuality(q, label string, aliases []string) float64 {
	best := qualityNoMatch

	switch {
	case label == q:
		return qualityExact
	case strings.HasPrefix(label, q):
		best = qualityPrefix
	case strings.Contains(" "+label, " "+q):
		best = qualityWordPrefix
	case strings.Contains(label, q):
		best = qualitySubstring
	}

	for _, alias := range aliases {
		var quality float64
		switch {
		case alias == q:
			quality = qualityAliasExact
		case strings.HasPrefix(alias, q):
			quality = qualityAliasPrefix
		case strings.Contains(alias, q):
			quality = qualityAliasSubstr
		default:
			continue
		}
		if quality > best {
			best = quality
		}
	}

	return best
}

// Source adapts an index to the asynchronous suggestion source used by the
// query controller. The index is fetched on every call so that catalog
// reloads are picked up.
type Source struct {
	index       func() *Index
	filters     entities.Filters
	allowCustom bool
}

// NewSource creates a Source reading the current index from get
func NewSource(get func() *Index, f entities.Filters, allowCustom bool) *Source {
	return &Source{index: get, filters: f, allowCustom: allowCustom}
}

// Search implements suggest.Source
func (s *Source) Search(ctx context.Context, query string) ([]entities.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ix := s.index()
	if s.allowCustom {
		return ix.SearchOrCustom(query, s.filters), nil
	}
	return ix.Search(query, s.filters), nil
}
