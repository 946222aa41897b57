package prescription

import "testing"

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		category Category
		want     Urgency
	}{
		{CategoryEmergency, UrgencyEmergency},
		{CategoryTrauma, UrgencyEmergency},
		{CategoryCardiac, UrgencyUrgent},
		{"Respiratory", UrgencyUrgent},
		{CategoryChronic, UrgencyRoutine},
		{"", DefaultUrgency},
		{"ophthalmology", DefaultUrgency},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if got := UrgencyFor(tt.category); got != tt.want {
				t.Errorf("UrgencyFor(%q) = %s, want %s", tt.category, got, tt.want)
			}
		})
	}
}

func TestClassifyDiagnosis(t *testing.T) {
	tests := []struct {
		text string
		want Category
	}{
		{"Community acquired pneumonia", CategoryRespiratory},
		{"Type 2 Diabetes Mellitus", CategoryChronic},
		{"Essential hypertension", CategoryCardiac},
		{"Septic shock", CategoryEmergency},
		{"Fracture of distal radius", CategoryTrauma},
		{"Atopic dermatitis", CategoryDermatology},
		{"Dengue fever", CategoryInfectious},
		{"Gastro-oesophageal reflux", CategoryGastro},
		{"", CategoryGeneral},
		{"Routine check-up", CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := ClassifyDiagnosis(tt.text); got != tt.want {
				t.Errorf("ClassifyDiagnosis(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}
