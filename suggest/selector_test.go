package suggest

import (
	"errors"
	"sync"
	"testing"

	"github.com/giygas/rxpad/catalogparser/entities"
)

type selectorEvents struct {
	mu        sync.Mutex
	changes   []string
	items     []*entities.Item
	picked    []entities.Item
	multiples [][]entities.Item
}

func newTestSelector(t *testing.T, mode Mode, history *History) (*Selector, *selectorEvents) {
	t.Helper()
	ev := &selectorEvents{}
	s := NewSelector(newRecordingSource(), SelectorOptions{
		Mode:       mode,
		ContextKey: "medications",
		History:    history,
		Controller: ControllerOptions{Delay: testDelay},
		OnChange: func(value string, item *entities.Item) {
			ev.mu.Lock()
			defer ev.mu.Unlock()
			ev.changes = append(ev.changes, value)
			ev.items = append(ev.items, item)
		},
		OnSuggestionSelect: func(item entities.Item) {
			ev.mu.Lock()
			defer ev.mu.Unlock()
			ev.picked = append(ev.picked, item)
		},
		OnMultipleSelect: func(items []entities.Item) {
			ev.mu.Lock()
			defer ev.mu.Unlock()
			ev.multiples = append(ev.multiples, items)
		},
	})
	t.Cleanup(s.Close)
	return s, ev
}

func typeAndWait(t *testing.T, s *Selector, text string) []entities.Suggestion {
	t.Helper()
	s.Type(text)
	waitFor(t, "suggestions for "+text, func() bool {
		return s.State() == StateShowing && len(s.Suggestions()) > 0
	})
	return s.Suggestions()
}

func TestSelectorSingleModePick(t *testing.T) {
	history := NewHistory(NewMemoryHistoryStore())
	s, ev := newTestSelector(t, ModeSingle, history)

	if s.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", s.State())
	}

	s.Focus()
	if got := s.State(); got != StateSearching && got != StateShowing {
		t.Fatalf("state after focus = %v", got)
	}

	results := typeAndWait(t, s, "ibuprofen")
	if results[0].Label != "Ibuprofen 200mg" {
		t.Fatalf("top suggestion = %q", results[0].Label)
	}

	if err := s.Pick(results[0].Item); err != nil {
		t.Fatalf("Pick() error = %v", err)
	}

	if s.State() != StateSelected {
		t.Errorf("state = %v, want selected", s.State())
	}
	if s.InputText() != "Ibuprofen 200mg" {
		t.Errorf("input = %q, want the item label", s.InputText())
	}
	if sel := s.Selection(); len(sel.Selected) != 1 || sel.Selected[0].ID != "ibu-200" {
		t.Errorf("selection = %+v", sel)
	}

	ev.mu.Lock()
	last := len(ev.changes) - 1
	if ev.changes[last] != "Ibuprofen 200mg" || ev.items[last] == nil || ev.items[last].ID != "ibu-200" {
		t.Errorf("last onChange = %q %+v", ev.changes[last], ev.items[last])
	}
	if len(ev.picked) != 1 {
		t.Errorf("onSuggestionSelect called %d times, want 1", len(ev.picked))
	}
	ev.mu.Unlock()

	if recent := s.RecentSearches(); len(recent) != 1 || recent[0] != "Ibuprofen 200mg" {
		t.Errorf("recent searches = %v", recent)
	}
}

func TestSelectorTypingEmitsFreeText(t *testing.T) {
	s, ev := newTestSelector(t, ModeSingle, nil)

	s.Type("x")

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.changes) != 1 || ev.changes[0] != "x" || ev.items[0] != nil {
		t.Errorf("expected onChange(x, nil), got %v %v", ev.changes, ev.items)
	}
	if s.State() != StateShowing {
		t.Errorf("short text should show the empty list, state = %v", s.State())
	}
}

func TestSelectorMultipleModeIsIdempotent(t *testing.T) {
	s, ev := newTestSelector(t, ModeMultiple, nil)

	s.Focus()
	results := typeAndWait(t, s, "ibu")
	item := results[0].Item

	if err := s.Pick(item); err != nil {
		t.Fatalf("Pick() error = %v", err)
	}
	if err := s.Pick(item); err != nil {
		t.Fatalf("second Pick() error = %v", err)
	}

	if sel := s.Selection(); len(sel.Selected) != 1 {
		t.Errorf("selected %d items, want 1", len(sel.Selected))
	}
	if s.InputText() != "" {
		t.Errorf("input = %q, want cleared", s.InputText())
	}
	if s.State() != StateShowing {
		t.Errorf("state = %v, want the popover kept open", s.State())
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.multiples) != 1 {
		t.Errorf("onMultipleSelect called %d times, want 1", len(ev.multiples))
	}
}

func TestSelectorMultipleModeAccumulates(t *testing.T) {
	s, ev := newTestSelector(t, ModeMultiple, nil)

	s.Focus()
	first := typeAndWait(t, s, "para")[0].Item
	if err := s.Pick(first); err != nil {
		t.Fatal(err)
	}
	second := typeAndWait(t, s, "amox")[0].Item
	if err := s.Pick(second); err != nil {
		t.Fatal(err)
	}

	sel := s.Selection()
	if len(sel.Selected) != 2 || sel.Selected[0].ID != "para-500" || sel.Selected[1].ID != "amox-500" {
		t.Fatalf("selection = %+v", sel.Selected)
	}

	if err := s.Remove("para-500"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if sel := s.Selection(); len(sel.Selected) != 1 || sel.Selected[0].ID != "amox-500" {
		t.Errorf("selection after remove = %+v", sel.Selected)
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	last := ev.multiples[len(ev.multiples)-1]
	if len(last) != 1 || last[0].ID != "amox-500" {
		t.Errorf("last onMultipleSelect = %+v", last)
	}
}

func TestSelectorRemoveWithPopoverClosedGoesIdle(t *testing.T) {
	s, _ := newTestSelector(t, ModeMultiple, nil)

	s.Focus()
	for _, q := range []string{"para", "amox"} {
		if err := s.Pick(typeAndWait(t, s, q)[0].Item); err != nil {
			t.Fatal(err)
		}
	}
	s.Dismiss()

	if err := s.Remove("para-500"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if sel := s.Selection(); len(sel.Selected) != 1 || sel.Selected[0].ID != "amox-500" {
		t.Errorf("selection after remove = %+v", sel.Selected)
	}
}

func TestSelectorRemoveLastSingleClearsInput(t *testing.T) {
	s, ev := newTestSelector(t, ModeSingle, nil)

	s.Focus()
	item := typeAndWait(t, s, "amox")[0].Item
	if err := s.Pick(item); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(item.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if s.InputText() != "" {
		t.Errorf("input = %q, want cleared", s.InputText())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if len(s.Selection().Selected) != 0 {
		t.Error("expected an empty selection")
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	last := len(ev.changes) - 1
	if ev.changes[last] != "" || ev.items[last] != nil {
		t.Errorf("expected onChange(\"\", nil), got %q %+v", ev.changes[last], ev.items[last])
	}
}

func TestSelectorDismissKeepsSelection(t *testing.T) {
	s, _ := newTestSelector(t, ModeSingle, nil)

	s.Focus()
	item := typeAndWait(t, s, "para")[0].Item
	if err := s.Pick(item); err != nil {
		t.Fatal(err)
	}

	s.Focus()
	s.Dismiss()

	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle after dismiss", s.State())
	}
	if len(s.Suggestions()) != 0 {
		t.Error("expected suggestions to be discarded")
	}
	if sel := s.Selection(); len(sel.Selected) != 1 || sel.Selected[0].ID != "para-500" {
		t.Errorf("selection = %+v, want it kept", sel.Selected)
	}
	if s.InputText() != "Paracetamol 500mg" {
		t.Errorf("input = %q, want the selected label", s.InputText())
	}
}

func TestSelectorDismissMultipleKeepsItems(t *testing.T) {
	s, _ := newTestSelector(t, ModeMultiple, nil)

	s.Focus()
	item := typeAndWait(t, s, "para")[0].Item
	if err := s.Pick(item); err != nil {
		t.Fatal(err)
	}
	s.Type("amo")
	s.Dismiss()

	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
	if len(s.Selection().Selected) != 1 {
		t.Error("dismiss dropped a committed item")
	}
	if s.InputText() != "" {
		t.Errorf("input = %q, want cleared", s.InputText())
	}
}

func TestSelectorInvalidTransitions(t *testing.T) {
	s, _ := newTestSelector(t, ModeSingle, nil)

	if err := s.Pick(entities.Item{ID: "x"}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Pick() on idle = %v, want ErrNotOpen", err)
	}
	if err := s.Remove("x"); !errors.Is(err, ErrNotSelected) {
		t.Errorf("Remove() unknown = %v, want ErrNotSelected", err)
	}

	s.Dismiss()
	if s.State() != StateIdle {
		t.Errorf("dismiss on idle changed state to %v", s.State())
	}
}

func TestSelectorCustomEntry(t *testing.T) {
	s, ev := newTestSelector(t, ModeSingle, nil)

	s.Focus()
	s.Type("Vitamin D3 drops")
	custom := entities.NewCustomItem("Vitamin D3 drops")
	if err := s.Pick(custom); err != nil {
		t.Fatal(err)
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	last := ev.items[len(ev.items)-1]
	if last == nil || !last.IsCustom() || last.Source != entities.SourceUserDefined {
		t.Errorf("expected a user-defined item, got %+v", last)
	}
}

type failingHistoryStore struct{}

func (failingHistoryStore) Read(string) ([]string, error) { return nil, errors.New("quota exceeded") }
func (failingHistoryStore) Write(string, []string) error  { return errors.New("quota exceeded") }

func TestSelectorIgnoresHistoryFailures(t *testing.T) {
	s, ev := newTestSelector(t, ModeSingle, NewHistory(failingHistoryStore{}))

	s.Focus()
	item := typeAndWait(t, s, "para")[0].Item
	if err := s.Pick(item); err != nil {
		t.Fatalf("Pick() error = %v, history failures must be ignored", err)
	}

	if s.State() != StateSelected {
		t.Errorf("state = %v, want selected", s.State())
	}
	if recent := s.RecentSearches(); len(recent) != 0 {
		t.Errorf("recent searches = %v, want empty", recent)
	}
	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.picked) != 1 {
		t.Error("selection callback not called")
	}
}

func TestStateAndModeStrings(t *testing.T) {
	tests := map[string]string{
		StateIdle.String():      "idle",
		StateSearching.String(): "searching",
		StateShowing.String():   "showing",
		StateSelected.String():  "selected",
		ModeSingle.String():     "single",
		ModeMultiple.String():   "multiple",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}
