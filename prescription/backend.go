package prescription

import "context"

// Backend is the part of the prescription REST API a session needs
type Backend interface {
	CreatePrescription(ctx context.Context, form Form) (*Prescription, error)
	CreatePreset(ctx context.Context, preset Preset) (*Preset, error)
	GeneratePrescription(ctx context.Context, req GenerateRequest) (*GeneratedPrescription, error)
	AnalyzeSymptoms(ctx context.Context, symptoms string) (map[string]any, error)
}

// GenerateRequest asks the backend for an AI drafted prescription
type GenerateRequest struct {
	Symptoms       string `json:"symptoms"`
	PatientHistory string `json:"patientHistory"`
}

// DraftMedication is one medication proposed by the draft generator
type DraftMedication struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// GeneratedPrescription is the draft returned by the backend
type GeneratedPrescription struct {
	Medications     []DraftMedication `json:"medications"`
	Recommendations []string          `json:"recommendations"`
	Warnings        []string          `json:"warnings"`
	Confidence      float64           `json:"confidence"`
	AIModelUsed     string            `json:"aiModelUsed"`
}

// MedicineRecords converts the draft medications to form records
func (g *GeneratedPrescription) MedicineRecords() []MedicineRecord {
	out := make([]MedicineRecord, 0, len(g.Medications))
	for _, m := range g.Medications {
		if !notBlank(m.Name) {
			continue
		}
		out = append(out, MedicineRecord{
			Name:         m.Name,
			Dosage:       m.Dosage,
			Frequency:    m.Frequency,
			Duration:     m.Duration,
			Instructions: m.Instructions,
		})
	}
	return out
}
