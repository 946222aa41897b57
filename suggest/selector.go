package suggest

import (
	"sync"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/metrics"
)

// Mode is the selection cardinality of a widget
type Mode int

const (
	ModeSingle Mode = iota
	ModeMultiple
)

func (m Mode) String() string {
	if m == ModeMultiple {
		return "multiple"
	}
	return "single"
}

// State of the selection state machine
type State int

const (
	StateIdle      State = iota // closed, no query
	StateSearching              // open, query scheduled or loading
	StateShowing                // open, results rendered
	StateSelected               // item committed, closed
)

func (s State) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateShowing:
		return "showing"
	case StateSelected:
		return "selected"
	default:
		return "idle"
	}
}

// SelectionSet is the committed selection of a widget, unique by item ID
type SelectionSet struct {
	Mode     Mode
	Selected []entities.Item
}

// Contains reports whether an item with id is selected
func (s SelectionSet) Contains(id string) bool {
	for _, it := range s.Selected {
		if it.ID == id {
			return true
		}
	}
	return false
}

// SelectorOptions configures a Selector.
// Callbacks run on the caller's goroutine, never while the selector is locked.
type SelectorOptions struct {
	Mode       Mode
	ContextKey string   // history list used by this widget
	History    *History // optional
	Controller ControllerOptions

	OnChange           func(value string, item *entities.Item)
	OnSuggestionSelect func(item entities.Item)
	OnMultipleSelect   func(items []entities.Item)
	OnStateChange      func(State)
}

// Selector drives one search widget: input text, suggestion list, popover
// state and the committed selection.
type Selector struct {
	opts SelectorOptions
	ctrl *Controller

	mu          sync.Mutex
	state       State
	input       string
	selected    []entities.Item
	suggestions []entities.Suggestion
	lastVersion uint64
}

// NewSelector creates a selector querying src
func NewSelector(src Source, opts SelectorOptions) *Selector {
	s := &Selector{opts: opts}
	ctrlOpts := opts.Controller
	ctrlOpts.OnState = s.onQueryState
	s.ctrl = NewController(src, ctrlOpts)
	return s
}

// Focus opens the popover and queries the current text
func (s *Selector) Focus() {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateSelected {
		s.mu.Unlock()
		return
	}
	text := s.input
	if s.opts.Mode == ModeSingle && len(s.selected) > 0 {
		// Reopening a committed single selection lists suggestions afresh
		text = ""
	}
	changed := s.setStateLocked(StateSearching)
	s.mu.Unlock()

	s.stateChanged(changed)
	s.ctrl.OnTextChange(text)
}

// Type replaces the input text and schedules a query
func (s *Selector) Type(text string) {
	s.mu.Lock()
	s.input = text
	var dropped bool
	if s.opts.Mode == ModeSingle && len(s.selected) > 0 && s.selected[0].Label != text {
		s.selected = nil
		dropped = true
	}
	changed := s.setStateLocked(StateSearching)
	single := s.opts.Mode == ModeSingle
	s.mu.Unlock()

	s.stateChanged(changed)
	if single && s.opts.OnChange != nil {
		s.opts.OnChange(text, nil)
	}
	if dropped {
		logging.Debug("Single selection replaced by typed text", "context", s.opts.ContextKey)
	}
	s.ctrl.OnTextChange(text)
}

// Pick commits item. In single mode the popover closes and the input shows the
// item label; in multiple mode the item is appended (once) and the input is cleared.
func (s *Selector) Pick(item entities.Item) error {
	s.mu.Lock()
	if s.state != StateSearching && s.state != StateShowing {
		s.mu.Unlock()
		return ErrNotOpen
	}

	if s.opts.Mode == ModeMultiple {
		if (SelectionSet{Selected: s.selected}).Contains(item.ID) {
			s.mu.Unlock()
			return nil
		}
		s.selected = append(s.selected, item)
		s.input = ""
		selected := append([]entities.Item(nil), s.selected...)
		changed := s.setStateLocked(StateShowing)
		s.mu.Unlock()

		s.stateChanged(changed)
		s.ctrl.Cancel()
		s.remember(item.Label)
		if s.opts.OnSuggestionSelect != nil {
			s.opts.OnSuggestionSelect(item)
		}
		if s.opts.OnMultipleSelect != nil {
			s.opts.OnMultipleSelect(selected)
		}
		return nil
	}

	s.selected = []entities.Item{item}
	s.input = item.Label
	s.suggestions = nil
	changed := s.setStateLocked(StateSelected)
	s.mu.Unlock()

	s.stateChanged(changed)
	s.ctrl.Cancel()
	s.remember(item.Label)
	if s.opts.OnChange != nil {
		picked := item
		s.opts.OnChange(item.Label, &picked)
	}
	if s.opts.OnSuggestionSelect != nil {
		s.opts.OnSuggestionSelect(item)
	}
	return nil
}

// Dismiss closes the popover (outside click, escape). The pending query is
// discarded and committed selections are kept.
func (s *Selector) Dismiss() {
	s.mu.Lock()
	if s.state != StateSearching && s.state != StateShowing {
		s.mu.Unlock()
		return
	}
	s.suggestions = nil
	switch {
	case s.opts.Mode == ModeMultiple:
		s.input = ""
	case len(s.selected) > 0:
		s.input = s.selected[0].Label
	}
	changed := s.setStateLocked(StateIdle)
	s.mu.Unlock()

	s.stateChanged(changed)
	s.ctrl.Cancel()
}

// Remove drops one committed item and leaves the Selected state.
// Emptying a single-mode selection clears the input.
func (s *Selector) Remove(id string) error {
	s.mu.Lock()
	idx := -1
	for i, it := range s.selected {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrNotSelected
	}

	s.selected = append(s.selected[:idx:idx], s.selected[idx+1:]...)
	clearInput := s.opts.Mode == ModeSingle && len(s.selected) == 0
	if clearInput {
		s.input = ""
	}

	// An open popover stays open, otherwise the widget rests in Idle
	next := StateIdle
	if s.state == StateSearching || s.state == StateShowing {
		next = StateShowing
	}
	changed := s.setStateLocked(next)
	selected := append([]entities.Item(nil), s.selected...)
	mode := s.opts.Mode
	s.mu.Unlock()

	s.stateChanged(changed)
	if clearInput {
		s.ctrl.Cancel()
	}
	if mode == ModeMultiple {
		if s.opts.OnMultipleSelect != nil {
			s.opts.OnMultipleSelect(selected)
		}
	} else if s.opts.OnChange != nil {
		s.opts.OnChange("", nil)
	}
	return nil
}

// Close releases the controller, pending results are dropped
func (s *Selector) Close() {
	s.ctrl.Close()
}

// State returns the current state
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InputText returns the text shown in the input
func (s *Selector) InputText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// Selection returns a copy of the committed selection
func (s *Selector) Selection() SelectionSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SelectionSet{Mode: s.opts.Mode, Selected: append([]entities.Item(nil), s.selected...)}
}

// Suggestions returns the list currently rendered
func (s *Selector) Suggestions() []entities.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Suggestion(nil), s.suggestions...)
}

// RecentSearches returns the history of the widget context, most recent first
func (s *Selector) RecentSearches() []string {
	if s.opts.History == nil {
		return []string{}
	}
	return s.opts.History.List(s.opts.ContextKey)
}

// QueryState returns the controller snapshot
func (s *Selector) QueryState() QueryState {
	return s.ctrl.State()
}

func (s *Selector) onQueryState(qs QueryState) {
	s.mu.Lock()
	if qs.Version <= s.lastVersion {
		s.mu.Unlock()
		return
	}
	s.lastVersion = qs.Version

	// Results are only rendered while the popover is open
	if s.state != StateSearching && s.state != StateShowing {
		s.mu.Unlock()
		return
	}
	s.suggestions = qs.Results
	changed := false
	if s.state == StateSearching && !qs.Pending && !qs.IsLoading {
		changed = s.setStateLocked(StateShowing)
	}
	s.mu.Unlock()

	s.stateChanged(changed)
}

// setStateLocked returns true when the state changed
func (s *Selector) setStateLocked(next State) bool {
	if s.state == next {
		return false
	}
	s.state = next
	return true
}

func (s *Selector) stateChanged(changed bool) {
	if changed && s.opts.OnStateChange != nil {
		s.opts.OnStateChange(s.State())
	}
}

// remember records a committed selection, failures only degrade the history
func (s *Selector) remember(text string) {
	if s.opts.History == nil {
		return
	}
	if _, err := s.opts.History.Add(s.opts.ContextKey, text); err != nil {
		metrics.HistoryWriteFailuresTotal.Inc()
		logging.Warn("Ignoring search history failure", "context", s.opts.ContextKey, "error", err)
	}
}
