package entities

import (
	"strings"
)

// Source tells where an item came from
type Source string

const (
	SourceCatalog     Source = "catalog"
	SourceUserDefined Source = "user-defined"
)

// Item is one entry of a static catalog (a lab test, a medication, a complaint...).
// Catalog items are never mutated once loaded: a reload builds a whole new Catalog.
type Item struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Aliases    []string       `json:"aliases,omitempty"`
	Category   []string       `json:"category,omitempty"`
	Type       string         `json:"type,omitempty"`
	Popularity int            `json:"popularity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Source     Source         `json:"source"`
}

// NewCustomItem builds the synthetic item used when the user types something
// the catalog does not know. It is always tagged as user-defined.
func NewCustomItem(text string) Item {
	label := strings.TrimSpace(text)
	return Item{
		ID:     "custom:" + strings.ToLower(strings.Join(strings.Fields(label), " ")),
		Label:  label,
		Source: SourceUserDefined,
		Metadata: map[string]any{
			"custom": true,
		},
	}
}

// IsCustom reports whether the item was created from free text
func (i Item) IsCustom() bool {
	return i.Source == SourceUserDefined
}

// Fasting returns the "fasting" metadata flag, false when absent
func (i Item) Fasting() bool {
	if i.Metadata == nil {
		return false
	}
	v, ok := i.Metadata["fasting"].(bool)
	return ok && v
}

// HasCategory reports whether the item belongs to category (case-insensitive)
func (i Item) HasCategory(category string) bool {
	for _, c := range i.Category {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Suggestion is a ranked search hit
type Suggestion struct {
	Item
	Confidence float64 `json:"confidence"`
}

// Filters narrows a search
type Filters struct {
	Categories []string
	Type       string
	Fasting    *bool
	Limit      int
}

// Match reports whether item passes the filters (the limit is not checked here)
func (f Filters) Match(item Item) bool {
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if item.HasCategory(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Type != "" && !strings.EqualFold(item.Type, f.Type) {
		return false
	}

	if f.Fasting != nil && item.Fasting() != *f.Fasting {
		return false
	}

	return true
}
