// Package formsync keeps a list of structured records in step with the single
// serialized string field a parent form stores it in. The parent field is the
// source of truth: the synchronizer re-derives its list from every new parent
// value and emits a new canonical string only when its own list changed.
package formsync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/giygas/rxpad/search"
)

// TimeLayout is the serialized form of CreatedAt (UTC, millisecond precision)
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ComplaintRecord is one entry of a complaints-like list
type ComplaintRecord struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	DerivedTags []string  `json:"derivedTags"`
	CreatedAt   time.Time `json:"createdAt"`
}

// wireRecord is the canonical JSON shape. CreatedAt stays a string so that
// Parse accepts records with a missing or malformed timestamp.
type wireRecord struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	DerivedTags []string `json:"derivedTags"`
	CreatedAt   string   `json:"createdAt"`
}

var errNotAList = errors.New("value is not a JSON list of records")

// Marshal serializes records in list order with UTC timestamps and sorted tags.
// Equal lists always produce the same string.
func Marshal(records []ComplaintRecord) (string, error) {
	wire := make([]wireRecord, len(records))
	for i, r := range records {
		tags := append([]string{}, r.DerivedTags...)
		sort.Strings(tags)
		var created string
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.UTC().Format(TimeLayout)
		}
		wire[i] = wireRecord{ID: r.ID, Text: r.Text, DerivedTags: tags, CreatedAt: created}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire); err != nil {
		return "", fmt.Errorf("failed to serialize records: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Parse decodes a serialized list. Elements may be record objects or plain
// strings. Records are returned as found, see Normalize.
func Parse(value string) ([]ComplaintRecord, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "null" {
		return []ComplaintRecord{}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotAList, err)
	}

	records := make([]ComplaintRecord, 0, len(raw))
	for i, elem := range raw {
		var text string
		if err := json.Unmarshal(elem, &text); err == nil {
			records = append(records, ComplaintRecord{Text: text})
			continue
		}

		var w wireRecord
		if err := json.Unmarshal(elem, &w); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", errNotAList, i, err)
		}
		r := ComplaintRecord{ID: w.ID, Text: w.Text, DerivedTags: w.DerivedTags}
		if w.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, w.CreatedAt); err == nil {
				r.CreatedAt = t.UTC()
			}
		}
		records = append(records, r)
	}
	return records, nil
}

// Normalize drops blank records, fills missing or duplicate ids
// with newID and missing timestamps with now, and recomputes the derived tags.
func Normalize(records []ComplaintRecord, now func() time.Time, newID func() string) []ComplaintRecord {
	out := make([]ComplaintRecord, 0, len(records))
	seen := make(map[string]bool, len(records))

	for _, r := range records {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" || seen[r.ID] {
			r.ID = newID()
		}
		seen[r.ID] = true
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now()
		}
		r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Millisecond)
		r.DerivedTags = DeriveTags(r.Text)
		out = append(out, r)
	}
	return out
}

// tagKeywords maps keyword prefixes to tags. Matching is a best-effort
// classification used for display and filtering, never for clinical decisions.
var tagKeywords = []struct {
	keyword string
	tags    []string
}{
	{"fever", []string{"fever"}},
	{"pyrexia", []string{"fever"}},
	{"chills", []string{"fever"}},
	{"temperature", []string{"fever"}},
	{"cough", []string{"respiratory"}},
	{"breath", []string{"respiratory"}},
	{"wheez", []string{"respiratory"}},
	{"sputum", []string{"respiratory"}},
	{"sore throat", []string{"respiratory", "pain"}},
	{"runny nose", []string{"respiratory"}},
	{"chest pain", []string{"cardiac", "pain"}},
	{"palpitation", []string{"cardiac"}},
	{"headache", []string{"neurological", "pain"}},
	{"migraine", []string{"neurological", "pain"}},
	{"dizz", []string{"neurological"}},
	{"seizure", []string{"neurological", "urgent"}},
	{"numb", []string{"neurological"}},
	{"nausea", []string{"gastrointestinal"}},
	{"vomit", []string{"gastrointestinal"}},
	{"diarrh", []string{"gastrointestinal"}},
	{"constipation", []string{"gastrointestinal"}},
	{"abdominal", []string{"gastrointestinal"}},
	{"stomach", []string{"gastrointestinal"}},
	{"rash", []string{"dermatological"}},
	{"itch", []string{"dermatological"}},
	{"burning urin", []string{"urinary"}},
	{"urin", []string{"urinary"}},
	{"joint", []string{"musculoskeletal"}},
	{"back pain", []string{"musculoskeletal", "pain"}},
	{"pain", []string{"pain"}},
	{"ache", []string{"pain"}},
	{"fatigue", []string{"general"}},
	{"weakness", []string{"general"}},
	{"weight loss", []string{"general"}},
	{"bleeding", []string{"urgent"}},
	{"severe", []string{"severe"}},
	{"acute", []string{"severe"}},
}

// DeriveTags returns the sorted tag set of text. Keywords match at word starts.
func DeriveTags(text string) []string {
	normalized := " " + search.Normalize(text)
	set := make(map[string]bool)
	for _, kw := range tagKeywords {
		if strings.Contains(normalized, " "+kw.keyword) {
			for _, tag := range kw.tags {
				set[tag] = true
			}
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
