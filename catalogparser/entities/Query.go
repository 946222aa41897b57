package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// SuggestionQuery is the query string of the suggestions endpoint
type SuggestionQuery struct {
	Query      string   `schema:"q,required"`
	Categories []string `schema:"category,omitempty"`
	Type       string   `schema:"type,omitempty"`
	Fasting    string   `schema:"fasting,omitempty"` // "", "true" or "false"
	Limit      int      `schema:"limit,omitempty"`
	Custom     bool     `schema:"custom,omitempty"` // fall back to a user-defined entry
}

// Filters converts the query parameters to search filters
func (q SuggestionQuery) Filters() (Filters, error) {
	f := Filters{
		Categories: q.Categories,
		Type:       strings.TrimSpace(q.Type),
		Limit:      q.Limit,
	}

	if q.Fasting != "" {
		b, err := strconv.ParseBool(q.Fasting)
		if err != nil {
			return Filters{}, fmt.Errorf("fasting must be true or false, got %q", q.Fasting)
		}
		f.Fasting = &b
	}

	if q.Limit < 0 {
		return Filters{}, fmt.Errorf("limit must be positive, got %d", q.Limit)
	}

	return f, nil
}

// SuggestionResponse is the body returned by the suggestions endpoint
type SuggestionResponse struct {
	Catalog     string       `json:"catalog"`
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
}
