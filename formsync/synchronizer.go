package formsync

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/giygas/rxpad/logging"
	"github.com/google/uuid"
)

var (
	ErrEmptyText      = errors.New("record text is empty")
	ErrRecordNotFound = errors.New("record not found")
)

// Synchronizer owns the child-side list of one parent field.
//
// Inbound, FromParent replaces the list from the parent value and never emits.
// Outbound, each mutation serializes the list and calls emit once when the
// canonical string differs from the last one produced or applied.
// emit may call FromParent synchronously: the value it receives is recognised
// and skipped.
type Synchronizer struct {
	emit func(string)

	// serializes mutations so emits reach the parent in order
	mutate sync.Mutex

	mu          sync.Mutex
	records     []ComplaintRecord
	parentValue string // value the parent is known to hold
	serialized  string // canonical form of records
	now         func() time.Time
	newID       func() string
}

// New creates an empty synchronizer. emit receives every new canonical value.
func New(emit func(string)) *Synchronizer {
	s := &Synchronizer{
		emit:  emit,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	s.serialized, _ = Marshal(nil)
	return s
}

// FromParent re-derives the list from a parent value. Values that are not a
// JSON list degrade to a single record holding the raw text. Blank values
// give an empty list.
func (s *Synchronizer) FromParent(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == s.parentValue {
		return
	}

	var records []ComplaintRecord
	switch parsed, err := Parse(value); {
	case err == nil:
		records = parsed
	case strings.TrimSpace(value) == "":
		records = nil
	default:
		logging.Debug("Parent field is not a record list, keeping it as free text", "error", err)
		records = []ComplaintRecord{{Text: value}}
	}

	s.records = Normalize(records, s.now, s.newID)
	s.parentValue = value
	if serialized, err := Marshal(s.records); err == nil {
		s.serialized = serialized
	}
}

// Records returns a copy of the list
func (s *Synchronizer) Records() []ComplaintRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.records)
}

// Value returns the canonical serialized form of the list
func (s *Synchronizer) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serialized
}

// Add appends a record built from text
func (s *Synchronizer) Add(text string) (ComplaintRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ComplaintRecord{}, ErrEmptyText
	}

	var added ComplaintRecord
	err := s.update(func(records []ComplaintRecord) ([]ComplaintRecord, error) {
		added = ComplaintRecord{
			ID:          s.newID(),
			Text:        text,
			DerivedTags: DeriveTags(text),
			CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
		}
		return append(records, added), nil
	})
	return added, err
}

// Remove deletes the record with id
func (s *Synchronizer) Remove(id string) error {
	return s.update(func(records []ComplaintRecord) ([]ComplaintRecord, error) {
		for i, r := range records {
			if r.ID == id {
				return append(records[:i:i], records[i+1:]...), nil
			}
		}
		return nil, ErrRecordNotFound
	})
}

// Edit replaces the text of the record with id and recomputes its tags
func (s *Synchronizer) Edit(id, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	return s.update(func(records []ComplaintRecord) ([]ComplaintRecord, error) {
		for i := range records {
			if records[i].ID == id {
				records[i].Text = text
				records[i].DerivedTags = DeriveTags(text)
				return records, nil
			}
		}
		return nil, ErrRecordNotFound
	})
}

// update applies fn to a copy of the list and emits the result when it changed
func (s *Synchronizer) update(fn func([]ComplaintRecord) ([]ComplaintRecord, error)) error {
	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.mu.Lock()
	next, err := fn(cloneRecords(s.records))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	serialized, err := Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.records = next
	if serialized == s.serialized {
		s.mu.Unlock()
		return nil
	}
	s.serialized = serialized
	s.parentValue = serialized
	s.mu.Unlock()

	if s.emit != nil {
		s.emit(serialized)
	}
	return nil
}

func cloneRecords(records []ComplaintRecord) []ComplaintRecord {
	out := make([]ComplaintRecord, len(records))
	for i, r := range records {
		r.DerivedTags = append([]string{}, r.DerivedTags...)
		out[i] = r
	}
	return out
}
