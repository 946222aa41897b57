// Package prescription holds the prescription being edited: the flat form
// record, its medicines, presets, submit-time validation and the editing session.
package prescription

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrIndexOutOfRange = errors.New("medicine index out of range")
)

// MedicineRecord is one line of the medicines table
type MedicineRecord struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Route        string `json:"route,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// IsComplete reports whether the record can be prescribed
func (m MedicineRecord) IsComplete() bool {
	return notBlank(m.Name) && notBlank(m.Dosage) && notBlank(m.Frequency) && notBlank(m.Duration)
}

// IsBlank reports whether no field was filled in
func (m MedicineRecord) IsBlank() bool {
	return m == MedicineRecord{}
}

// Form is the complete set of values of one prescription in progress.
// JSON names match the backend payload.
type Form struct {
	// Patient
	PatientName    string `json:"patientName"`
	PatientAge     string `json:"patientAge,omitempty"`
	PatientGender  string `json:"patientGender,omitempty"`
	PatientPhone   string `json:"patientPhone,omitempty"`
	PatientAddress string `json:"patientAddress,omitempty"`
	PatientID      string `json:"patientId,omitempty"`
	VisitDate      string `json:"date,omitempty"`

	// Vitals
	BloodPressure    string `json:"bloodPressure,omitempty"`
	Pulse            string `json:"pulse,omitempty"`
	Temperature      string `json:"temperature,omitempty"`
	RespiratoryRate  string `json:"respiratoryRate,omitempty"`
	OxygenSaturation string `json:"oxygenSaturation,omitempty"`
	Weight           string `json:"weight,omitempty"`
	Height           string `json:"height,omitempty"`
	BloodSugar       string `json:"bloodSugar,omitempty"`

	// History
	ChiefComplaints         string `json:"chiefComplaints,omitempty"` // serialized complaint records
	HistoryOfPresentIllness string `json:"historyOfPresentIllness,omitempty"`
	PastMedicalHistory      string `json:"pastMedicalHistory,omitempty"`
	FamilyHistory           string `json:"familyHistory,omitempty"`
	Allergies               string `json:"allergies,omitempty"`
	CurrentMedications      string `json:"currentMedications,omitempty"`

	// Examination and diagnosis
	GeneralExamination    string `json:"generalExamination,omitempty"`
	SystemicExamination   string `json:"systemicExamination,omitempty"`
	ProvisionalDiagnosis  string `json:"provisionalDiagnosis,omitempty"`
	FinalDiagnosis        string `json:"diagnosis,omitempty"`
	DifferentialDiagnosis string `json:"differentialDiagnosis,omitempty"`
	Investigations        string `json:"investigations,omitempty"` // serialized selected tests
	LabResults            string `json:"labResults,omitempty"`

	// Plan
	Advice        string `json:"advice,omitempty"`
	DietaryAdvice string `json:"dietaryAdvice,omitempty"`
	FollowUp      string `json:"followUp,omitempty"`
	FollowUpDate  string `json:"followUpDate,omitempty"`
	Referral      string `json:"referral,omitempty"`
	Notes         string `json:"notes,omitempty"`

	// Prescriber
	DoctorName          string `json:"doctorName,omitempty"`
	DoctorQualification string `json:"doctorQualification,omitempty"`
	DoctorRegistration  string `json:"doctorRegistration,omitempty"`
	ClinicName          string `json:"clinicName,omitempty"`
	ClinicAddress       string `json:"clinicAddress,omitempty"`

	Medicines []MedicineRecord `json:"medicines"`
}

// formFields maps the JSON name of every string field to its storage
var formFields = map[string]func(*Form) *string{
	"patientName":             func(f *Form) *string { return &f.PatientName },
	"patientAge":              func(f *Form) *string { return &f.PatientAge },
	"patientGender":           func(f *Form) *string { return &f.PatientGender },
	"patientPhone":            func(f *Form) *string { return &f.PatientPhone },
	"patientAddress":          func(f *Form) *string { return &f.PatientAddress },
	"patientId":               func(f *Form) *string { return &f.PatientID },
	"date":                    func(f *Form) *string { return &f.VisitDate },
	"bloodPressure":           func(f *Form) *string { return &f.BloodPressure },
	"pulse":                   func(f *Form) *string { return &f.Pulse },
	"temperature":             func(f *Form) *string { return &f.Temperature },
	"respiratoryRate":         func(f *Form) *string { return &f.RespiratoryRate },
	"oxygenSaturation":        func(f *Form) *string { return &f.OxygenSaturation },
	"weight":                  func(f *Form) *string { return &f.Weight },
	"height":                  func(f *Form) *string { return &f.Height },
	"bloodSugar":              func(f *Form) *string { return &f.BloodSugar },
	"chiefComplaints":         func(f *Form) *string { return &f.ChiefComplaints },
	"historyOfPresentIllness": func(f *Form) *string { return &f.HistoryOfPresentIllness },
	"pastMedicalHistory":      func(f *Form) *string { return &f.PastMedicalHistory },
	"familyHistory":           func(f *Form) *string { return &f.FamilyHistory },
	"allergies":               func(f *Form) *string { return &f.Allergies },
	"currentMedications":      func(f *Form) *string { return &f.CurrentMedications },
	"generalExamination":      func(f *Form) *string { return &f.GeneralExamination },
	"systemicExamination":     func(f *Form) *string { return &f.SystemicExamination },
	"provisionalDiagnosis":    func(f *Form) *string { return &f.ProvisionalDiagnosis },
	"diagnosis":               func(f *Form) *string { return &f.FinalDiagnosis },
	"differentialDiagnosis":   func(f *Form) *string { return &f.DifferentialDiagnosis },
	"investigations":          func(f *Form) *string { return &f.Investigations },
	"labResults":              func(f *Form) *string { return &f.LabResults },
	"advice":                  func(f *Form) *string { return &f.Advice },
	"dietaryAdvice":           func(f *Form) *string { return &f.DietaryAdvice },
	"followUp":                func(f *Form) *string { return &f.FollowUp },
	"followUpDate":            func(f *Form) *string { return &f.FollowUpDate },
	"referral":                func(f *Form) *string { return &f.Referral },
	"notes":                   func(f *Form) *string { return &f.Notes },
	"doctorName":              func(f *Form) *string { return &f.DoctorName },
	"doctorQualification":     func(f *Form) *string { return &f.DoctorQualification },
	"doctorRegistration":      func(f *Form) *string { return &f.DoctorRegistration },
	"clinicName":              func(f *Form) *string { return &f.ClinicName },
	"clinicAddress":           func(f *Form) *string { return &f.ClinicAddress },
}

var medicineFields = map[string]func(*MedicineRecord) *string{
	"name":         func(m *MedicineRecord) *string { return &m.Name },
	"dosage":       func(m *MedicineRecord) *string { return &m.Dosage },
	"frequency":    func(m *MedicineRecord) *string { return &m.Frequency },
	"duration":     func(m *MedicineRecord) *string { return &m.Duration },
	"route":        func(m *MedicineRecord) *string { return &m.Route },
	"timing":       func(m *MedicineRecord) *string { return &m.Timing },
	"instructions": func(m *MedicineRecord) *string { return &m.Instructions },
}

// FieldNames returns the names accepted by UpdateField, sorted
func FieldNames() []string {
	names := make([]string, 0, len(formFields))
	for name := range formFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewForm returns the empty template: no values and one blank medicine
func NewForm() *Form {
	return &Form{Medicines: []MedicineRecord{{}}}
}

// Field returns the value of a string field
func (f *Form) Field(name string) (string, error) {
	get, ok := formFields[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return *get(f), nil
}

// UpdateField sets one string field
func (f *Form) UpdateField(name, value string) error {
	get, ok := formFields[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	*get(f) = value
	return nil
}

// UpdateMedicine sets one field of the medicine at index
func (f *Form) UpdateMedicine(index int, field, value string) error {
	if index < 0 || index >= len(f.Medicines) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(f.Medicines))
	}
	get, ok := medicineFields[field]
	if !ok {
		return fmt.Errorf("%w: medicine %q", ErrUnknownField, field)
	}
	*get(&f.Medicines[index]) = value
	return nil
}

// AddMedicine appends a blank medicine and returns its index
func (f *Form) AddMedicine() int {
	f.Medicines = append(f.Medicines, MedicineRecord{})
	return len(f.Medicines) - 1
}

// RemoveMedicine deletes the medicine at index. Removing the last one leaves a blank template.
func (f *Form) RemoveMedicine(index int) error {
	if index < 0 || index >= len(f.Medicines) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(f.Medicines))
	}
	f.Medicines = append(f.Medicines[:index:index], f.Medicines[index+1:]...)
	f.ensureMedicine()
	return nil
}

// ReplaceMedicines swaps the whole medicine list for a copy of medicines.
// An empty list leaves a blank template.
func (f *Form) ReplaceMedicines(medicines []MedicineRecord) {
	f.Medicines = append([]MedicineRecord(nil), medicines...)
	f.ensureMedicine()
}

// Clone returns a deep copy
func (f *Form) Clone() *Form {
	c := *f
	c.Medicines = append([]MedicineRecord(nil), f.Medicines...)
	return &c
}

func (f *Form) ensureMedicine() {
	if len(f.Medicines) == 0 {
		f.Medicines = []MedicineRecord{{}}
	}
}

// Preset is a named reusable template
type Preset struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Urgency  Urgency  `json:"urgency"`
	Form
}

// NewPreset builds a preset from a form, the urgency comes from the category
func NewPreset(name string, category Category, form *Form) Preset {
	return Preset{
		Name:     name,
		Category: category,
		Urgency:  UrgencyFor(category),
		Form:     *form.Clone(),
	}
}

// Prescription is a form saved by the backend
type Prescription struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Form
}

// FromPreset creates an editable form from a preset. A preset without
// medicines gives one blank medicine.
func FromPreset(p Preset) *Form {
	f := p.Form.Clone()
	f.ensureMedicine()
	return f
}

// FromPrescription creates an editable form from a saved prescription
func FromPrescription(p Prescription) *Form {
	f := p.Form.Clone()
	f.ensureMedicine()
	return f
}
