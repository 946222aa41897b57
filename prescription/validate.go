package prescription

import "strings"

// ValidationError blocks a submit. Message is shown to the user as is.
type ValidationError struct {
	Message string
	Missing []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgPatientName = "Patient name is required."
	msgMedicine    = "Add at least one medicine with name, dosage, frequency and duration."
)

// Validate runs the submit-time checks. All failures are reported in one message.
func (f *Form) Validate() error {
	var missing, messages []string

	if !notBlank(f.PatientName) {
		missing = append(missing, "patientName")
		messages = append(messages, msgPatientName)
	}

	complete := false
	for _, m := range f.Medicines {
		if m.IsComplete() {
			complete = true
			break
		}
	}
	if !complete {
		missing = append(missing, "medicines")
		messages = append(messages, msgMedicine)
	}

	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{Message: strings.Join(messages, " "), Missing: missing}
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
