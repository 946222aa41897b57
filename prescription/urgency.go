package prescription

import (
	"strings"

	"github.com/giygas/rxpad/search"
)

// Category classifies presets
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryEmergency   Category = "emergency"
	CategoryTrauma      Category = "trauma"
	CategoryCardiac     Category = "cardiac"
	CategoryRespiratory Category = "respiratory"
	CategoryInfectious  Category = "infectious"
	CategoryNeurology   Category = "neurology"
	CategoryPediatric   Category = "pediatric"
	CategoryChronic     Category = "chronic"
	CategoryGastro      Category = "gastro"
	CategoryDermatology Category = "dermatology"
	CategoryPreventive  Category = "preventive"
)

// Urgency of a preset
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// DefaultUrgency applies to categories missing from the table
const DefaultUrgency = UrgencyRoutine

var urgencyByCategory = map[Category]Urgency{
	CategoryEmergency:   UrgencyEmergency,
	CategoryTrauma:      UrgencyEmergency,
	CategoryCardiac:     UrgencyUrgent,
	CategoryRespiratory: UrgencyUrgent,
	CategoryInfectious:  UrgencyUrgent,
	CategoryNeurology:   UrgencyUrgent,
	CategoryPediatric:   UrgencyUrgent,
	CategoryGeneral:     UrgencyRoutine,
	CategoryChronic:     UrgencyRoutine,
	CategoryGastro:      UrgencyRoutine,
	CategoryDermatology: UrgencyRoutine,
	CategoryPreventive:  UrgencyRoutine,
}

// UrgencyFor looks the category up, DefaultUrgency when unknown
func UrgencyFor(c Category) Urgency {
	if u, ok := urgencyByCategory[Category(strings.ToLower(string(c)))]; ok {
		return u
	}
	return DefaultUrgency
}

// diagnosisKeywords is checked in order, the first match wins
var diagnosisKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryEmergency, []string{"shock", "anaphyla", "sepsis", "septic", "cardiac arrest", "status epilepticus"}},
	{CategoryTrauma, []string{"fracture", "injury", "trauma", "laceration", "burn", "dislocation"}},
	{CategoryCardiac, []string{"myocard", "angina", "hypertens", "arrhythm", "heart failure", "atrial"}},
	{CategoryRespiratory, []string{"pneumon", "asthma", "bronch", "copd", "respiratory", "pharyngitis", "sinusitis"}},
	{CategoryInfectious, []string{"fever", "infection", "typhoid", "malaria", "dengue", "tubercul", "viral", "cellulitis"}},
	{CategoryNeurology, []string{"migraine", "epilep", "seizure", "stroke", "neuropath", "vertigo"}},
	{CategoryChronic, []string{"diabet", "thyroid", "arthritis", "chronic", "dyslipid", "ckd"}},
	{CategoryGastro, []string{"gastr", "ulcer", "dyspeps", "reflux", "hepat", "colitis", "ibs"}},
	{CategoryDermatology, []string{"dermat", "eczema", "psoria", "acne", "urticaria", "scabies", "fungal"}},
}

// ClassifyDiagnosis guesses a category from free diagnosis text by keyword.
// It is a best-effort hint for presets, unknown text gives CategoryGeneral.
func ClassifyDiagnosis(text string) Category {
	normalized := " " + search.Normalize(text)
	for _, entry := range diagnosisKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(normalized, " "+kw) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}
