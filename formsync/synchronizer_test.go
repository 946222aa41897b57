package formsync

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)

func newTestSynchronizer(emit func(string)) *Synchronizer {
	s := New(emit)
	n := 0
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

type emitRecorder struct {
	mu     sync.Mutex
	values []string
}

func (e *emitRecorder) emit(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values = append(e.values, v)
}

func (e *emitRecorder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.values)
}

func (e *emitRecorder) last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values[len(e.values)-1]
}

func TestRoundTrip(t *testing.T) {
	records := []ComplaintRecord{
		{ID: "a", Text: "Fever for 3 days", DerivedTags: []string{"fever"}, CreatedAt: fixedNow.Truncate(time.Millisecond)},
		{ID: "b", Text: "Dry cough, worse at night", DerivedTags: []string{"respiratory"}, CreatedAt: fixedNow.Add(time.Hour).Truncate(time.Millisecond)},
	}

	value, err := Marshal(records)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	parsed, err := Parse(value)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed) != len(records) {
		t.Fatalf("got %d records, want %d", len(parsed), len(records))
	}
	for i := range records {
		if parsed[i].ID != records[i].ID || parsed[i].Text != records[i].Text {
			t.Errorf("record %d = %+v, want %+v", i, parsed[i], records[i])
		}
		if !parsed[i].CreatedAt.Equal(records[i].CreatedAt) {
			t.Errorf("record %d createdAt = %v, want %v", i, parsed[i].CreatedAt, records[i].CreatedAt)
		}
		if !reflect.DeepEqual(parsed[i].DerivedTags, records[i].DerivedTags) {
			t.Errorf("record %d tags = %v, want %v", i, parsed[i].DerivedTags, records[i].DerivedTags)
		}
	}

	again, _ := Marshal(parsed)
	if again != value {
		t.Errorf("serialization is not canonical:\n%s\n%s", value, again)
	}
}

func TestMarshalIsCanonical(t *testing.T) {
	local := time.FixedZone("IST", 5*3600+1800)
	a := []ComplaintRecord{{ID: "x", Text: "rash", DerivedTags: []string{"b", "a"}, CreatedAt: fixedNow.In(local)}}
	b := []ComplaintRecord{{ID: "x", Text: "rash", DerivedTags: []string{"a", "b"}, CreatedAt: fixedNow}}

	va, _ := Marshal(a)
	vb, _ := Marshal(b)
	if va != vb {
		t.Errorf("equal records serialized differently:\n%s\n%s", va, vb)
	}
	if !strings.Contains(va, `"createdAt":"2026-03-14T09:30:00.123Z"`) {
		t.Errorf("unexpected timestamp format: %s", va)
	}
}

func TestParseAcceptsStringsAndPartialRecords(t *testing.T) {
	records, err := Parse(`["headache", {"text": "vomiting since morning"}, {"id": "k", "text": "x", "createdAt": "bogus"}]`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 3 || records[0].Text != "headache" || records[1].Text != "vomiting since morning" {
		t.Errorf("records = %+v", records)
	}
	if !records[2].CreatedAt.IsZero() {
		t.Error("expected a malformed timestamp to be dropped")
	}
}

func TestFromParentInvalidJSON(t *testing.T) {
	tests := []string{
		"fever and body ache",
		`{"text": "not a list"}`,
		`[{"text": "unterminated"`,
		`[1, 2]`,
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			rec := &emitRecorder{}
			s := newTestSynchronizer(rec.emit)
			s.FromParent(raw)

			got := s.Records()
			if len(got) != 1 {
				t.Fatalf("got %d records, want exactly 1", len(got))
			}
			if got[0].Text != raw {
				t.Errorf("text = %q, want the raw value %q", got[0].Text, raw)
			}
			if got[0].ID == "" || got[0].CreatedAt.IsZero() {
				t.Errorf("record not normalized: %+v", got[0])
			}
			if rec.count() != 0 {
				t.Error("inbound updates must not emit")
			}
		})
	}
}

func TestFromParentEmptyValues(t *testing.T) {
	for _, raw := range []string{"", "   ", "null", "[]"} {
		s := newTestSynchronizer(nil)
		if _, err := s.Add("cough"); err != nil {
			t.Fatal(err)
		}
		s.FromParent(raw)
		if got := s.Records(); len(got) != 0 {
			t.Errorf("FromParent(%q) left %d records", raw, len(got))
		}
	}
}

func TestFromParentNormalizes(t *testing.T) {
	s := newTestSynchronizer(nil)
	s.FromParent(`[{"id": "dup", "text": "Fever"}, {"id": "dup", "text": "Severe headache"}, {"text": "   "}, {"text": "rash", "derivedTags": ["stale"]}]`)

	got := s.Records()
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3 (blank dropped)", len(got))
	}
	if got[0].ID != "dup" || got[1].ID == "dup" || got[2].ID == "" {
		t.Errorf("ids not made unique: %q %q %q", got[0].ID, got[1].ID, got[2].ID)
	}
	if !reflect.DeepEqual(got[1].DerivedTags, []string{"neurological", "pain", "severe"}) {
		t.Errorf("tags = %v", got[1].DerivedTags)
	}
	if !reflect.DeepEqual(got[2].DerivedTags, []string{"dermatological"}) {
		t.Errorf("stale tags kept: %v", got[2].DerivedTags)
	}
	for _, r := range got {
		if !r.CreatedAt.Equal(fixedNow.Truncate(time.Millisecond)) {
			t.Errorf("createdAt = %v, want the default timestamp", r.CreatedAt)
		}
	}
}

func TestMutationsEmitOncePerChange(t *testing.T) {
	rec := &emitRecorder{}
	s := newTestSynchronizer(rec.emit)

	first, err := s.Add("Fever")
	if err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Fatalf("Add emitted %d times, want 1", rec.count())
	}

	if err := s.Edit(first.ID, "Fever"); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 1 {
		t.Errorf("a no-op edit emitted")
	}

	if err := s.Edit(first.ID, "High fever with chills"); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 2 {
		t.Errorf("edit emitted %d times in total, want 2", rec.count())
	}

	if err := s.Remove(first.ID); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 3 || rec.last() != "[]" {
		t.Errorf("remove emitted %q (count %d)", rec.last(), rec.count())
	}
}

func TestMutationErrors(t *testing.T) {
	rec := &emitRecorder{}
	s := newTestSynchronizer(rec.emit)

	if _, err := s.Add("   "); err != ErrEmptyText {
		t.Errorf("Add(blank) = %v, want ErrEmptyText", err)
	}
	if err := s.Remove("missing"); err != ErrRecordNotFound {
		t.Errorf("Remove(missing) = %v, want ErrRecordNotFound", err)
	}
	if err := s.Edit("missing", "x"); err != ErrRecordNotFound {
		t.Errorf("Edit(missing) = %v, want ErrRecordNotFound", err)
	}
	if rec.count() != 0 {
		t.Error("failed mutations must not emit")
	}
}

// parentForm mimics a form that stores the field and feeds every change back
type parentForm struct {
	mu    sync.Mutex
	value string
	sync  *Synchronizer
	sets  int
}

func (p *parentForm) set(v string) {
	p.mu.Lock()
	p.value = v
	p.sets++
	p.mu.Unlock()
	p.sync.FromParent(v)
}

func TestNoFeedbackLoop(t *testing.T) {
	parent := &parentForm{}
	parent.sync = newTestSynchronizer(parent.set)

	if _, err := parent.sync.Add("cough"); err != nil {
		t.Fatal(err)
	}
	if _, err := parent.sync.Add("fever"); err != nil {
		t.Fatal(err)
	}

	if parent.sets != 2 {
		t.Errorf("parent updated %d times, want 2", parent.sets)
	}
	if got := parent.sync.Records(); len(got) != 2 {
		t.Errorf("echo of own value replaced the list: %+v", got)
	}
	if parent.value != parent.sync.Value() {
		t.Errorf("parent and child disagree:\n%s\n%s", parent.value, parent.sync.Value())
	}
}

func TestExternalResetAfterOwnWrites(t *testing.T) {
	parent := &parentForm{}
	parent.sync = newTestSynchronizer(parent.set)

	preset := `[{"id":"p1","text":"Joint pain"}]`
	parent.set(preset)
	if _, err := parent.sync.Add("swelling"); err != nil {
		t.Fatal(err)
	}

	// Loading the same preset again must replace the edited list
	parent.set(preset)
	got := parent.sync.Records()
	if len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("records after reset = %+v", got)
	}
}

func TestDeriveTags(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Fever since 2 days", []string{"fever"}},
		{"Chest pain on exertion", []string{"cardiac", "pain"}},
		{"Diarrhoea and vomiting", []string{"gastrointestinal"}},
		{"Burning urination", []string{"urinary"}},
		{"nothing specific", []string{}},
		{"Écoulement nasal", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := DeriveTags(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DeriveTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
