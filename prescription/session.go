package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/giygas/rxpad/formsync"
	"github.com/giygas/rxpad/logging"
)

// ErrStaleDraft is returned when a newer draft request superseded this one
var ErrStaleDraft = errors.New("draft superseded by a newer request")

const genericFailure = "Something went wrong. Please try again."

// Session owns the form of one editing session. The form is only changed
// through the session methods; watchers observe field changes.
type Session struct {
	backend Backend
	onError func(message string)

	mu       sync.Mutex
	form     *Form
	watchers map[string][]*watcher
	draftSeq uint64
}

type watcher struct {
	fn func(value string)
}

// NewSession starts from the empty template. onError receives every
// user-facing failure message once.
func NewSession(backend Backend, onError func(message string)) *Session {
	return &Session{
		backend:  backend,
		onError:  onError,
		form:     NewForm(),
		watchers: make(map[string][]*watcher),
	}
}

// Form returns a copy of the current form
func (s *Session) Form() *Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone()
}

// UpdateField sets one field and notifies its watchers when the value changed
func (s *Session) UpdateField(name, value string) error {
	s.mu.Lock()
	watchers, err := s.setFieldLocked(name, value)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	notifyWatchers(watchers, value)
	return nil
}

// setFieldLocked updates one field and returns the watchers to notify,
// none when the value did not change. Callers hold s.mu.
func (s *Session) setFieldLocked(name, value string) ([]*watcher, error) {
	old, err := s.form.Field(name)
	if err != nil {
		return nil, err
	}
	if old == value {
		return nil, nil
	}
	if err := s.form.UpdateField(name, value); err != nil {
		return nil, err
	}
	return append([]*watcher(nil), s.watchers[name]...), nil
}

func notifyWatchers(watchers []*watcher, value string) {
	for _, w := range watchers {
		w.fn(value)
	}
}

// UpdateMedicine sets one field of one medicine
func (s *Session) UpdateMedicine(index int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.UpdateMedicine(index, field, value)
}

// AddMedicine appends a blank medicine and returns its index
func (s *Session) AddMedicine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.AddMedicine()
}

// RemoveMedicine deletes one medicine, the form always keeps at least one
func (s *Session) RemoveMedicine(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.RemoveMedicine(index)
}

// Watch calls fn with the new value of field after every change.
// The returned function stops watching.
func (s *Session) Watch(field string, fn func(value string)) (func(), error) {
	if _, ok := formFields[field]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	w := &watcher{fn: fn}
	s.mu.Lock()
	s.watchers[field] = append(s.watchers[field], w)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[field]
		for i := range list {
			if list[i] == w {
				s.watchers[field] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}, nil
}

// BindComplaints attaches a record list editor to a serialized field.
// The synchronizer starts from the current value and follows later changes.
func (s *Session) BindComplaints(field string) (*formsync.Synchronizer, func(), error) {
	syncer := formsync.New(func(value string) {
		if err := s.UpdateField(field, value); err != nil {
			logging.Error("Failed to store records", "field", field, "error", err)
		}
	})

	stop, err := s.Watch(field, syncer.FromParent)
	if err != nil {
		return nil, nil, err
	}

	current, _ := s.Form().Field(field)
	syncer.FromParent(current)
	return syncer, stop, nil
}

// LoadPreset replaces the form with a copy of the preset
func (s *Session) LoadPreset(p Preset) {
	s.replace(FromPreset(p))
}

// LoadPrescription replaces the form with a copy of a saved prescription
func (s *Session) LoadPrescription(p Prescription) {
	s.replace(FromPrescription(p))
}

// Reset goes back to the empty template
func (s *Session) Reset() {
	s.replace(NewForm())
}

// replace swaps the form and pushes every watched field to its watchers
func (s *Session) replace(f *Form) {
	type update struct {
		value    string
		watchers []*watcher
	}

	s.mu.Lock()
	s.form = f
	// Pending drafts were requested for the previous form
	s.draftSeq++
	updates := make([]update, 0, len(s.watchers))
	for field, list := range s.watchers {
		value, _ := f.Field(field)
		updates = append(updates, update{value: value, watchers: append([]*watcher(nil), list...)})
	}
	s.mu.Unlock()

	for _, u := range updates {
		notifyWatchers(u.watchers, u.value)
	}
}

// Submit validates the form and saves it. Nothing is sent when validation fails.
func (s *Session) Submit(ctx context.Context) (*Prescription, error) {
	form := s.Form()
	if err := form.Validate(); err != nil {
		s.report(err)
		return nil, err
	}

	saved, err := s.backend.CreatePrescription(ctx, *form)
	if err != nil {
		s.report(err)
		return nil, fmt.Errorf("failed to save prescription: %w", err)
	}
	return saved, nil
}

// SaveAsPreset stores the current form as a named preset
func (s *Session) SaveAsPreset(ctx context.Context, name string, category Category) (*Preset, error) {
	if !notBlank(name) {
		err := &ValidationError{Message: "Preset name is required.", Missing: []string{"name"}}
		s.report(err)
		return nil, err
	}
	if category == "" {
		category = ClassifyDiagnosis(s.Form().FinalDiagnosis + " " + s.Form().ProvisionalDiagnosis)
	}

	saved, err := s.backend.CreatePreset(ctx, NewPreset(strings.TrimSpace(name), category, s.Form()))
	if err != nil {
		s.report(err)
		return nil, fmt.Errorf("failed to save preset: %w", err)
	}
	return saved, nil
}

// GenerateDraft requests an AI draft for symptoms and applies it to the form.
// Only the most recent request is applied: an older draft that returns
// later yields ErrStaleDraft and leaves the form untouched.
func (s *Session) GenerateDraft(ctx context.Context, symptoms string) (*GeneratedPrescription, error) {
	if !notBlank(symptoms) {
		err := &ValidationError{Message: "Describe the symptoms first.", Missing: []string{"symptoms"}}
		s.report(err)
		return nil, err
	}

	s.mu.Lock()
	s.draftSeq++
	seq := s.draftSeq
	history := s.form.PastMedicalHistory
	s.mu.Unlock()

	draft, err := s.backend.GeneratePrescription(ctx, GenerateRequest{Symptoms: symptoms, PatientHistory: history})

	s.mu.Lock()
	if seq != s.draftSeq {
		s.mu.Unlock()
		logging.Debug("Discarding superseded prescription draft", "seq", seq)
		return nil, ErrStaleDraft
	}
	if err != nil {
		s.mu.Unlock()
		s.report(err)
		return nil, fmt.Errorf("failed to generate prescription: %w", err)
	}

	if medicines := draft.MedicineRecords(); len(medicines) > 0 {
		s.form.ReplaceMedicines(medicines)
	}
	var advice string
	var watchers []*watcher
	if len(draft.Recommendations) > 0 {
		advice = strings.Join(draft.Recommendations, "\n")
		if notBlank(s.form.Advice) {
			advice = s.form.Advice + "\n" + advice
		}
		watchers, _ = s.setFieldLocked("advice", advice)
	}
	s.mu.Unlock()

	notifyWatchers(watchers, advice)
	return draft, nil
}

// AnalyzeSymptoms returns the backend analysis. Failures are logged and give nil.
func (s *Session) AnalyzeSymptoms(ctx context.Context, symptoms string) map[string]any {
	analysis, err := s.backend.AnalyzeSymptoms(ctx, symptoms)
	if err != nil {
		logging.Warn("Symptom analysis failed", "error", err)
		return nil
	}
	return analysis
}

// report converts err to the single user-facing message
func (s *Session) report(err error) {
	if s.onError == nil || err == nil {
		return
	}
	s.onError(UserMessage(err))
}

// UserMessage returns the text to show for err
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var friendly interface{ UserMessage() string }
	if errors.As(err, &friendly) {
		return friendly.UserMessage()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The request took too long. Please try again."
	}
	return genericFailure
}
