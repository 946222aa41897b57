// Package validation checks catalog items and user input for rxpad.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
)

// Limits on user input
const (
	MaxQueryLength = 100
	MaxQueryWords  = 8
	MaxKeyLength   = 128
	MaxLabelLength = 200
)

// Pre-compiled patterns, reused for all validations
var (
	// Any letter or digit plus the punctuation found in drug and test names ("HbA1c", "500mg/5ml", "CBC (full)")
	queryRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s\-\.\+'/(),%]+$`)

	// Catalog names, item ids and history context keys
	keyRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-:.]*$`)

	// Dangerous patterns, plain substring matching is enough for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "eval(", "expression(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:",
	}
)

// Compile-time check to ensure DataValidatorImpl implements DataValidator
var _ interfaces.DataValidator = (*DataValidatorImpl)(nil)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateItem checks if a catalog item is valid
func (v *DataValidatorImpl) ValidateItem(item *entities.Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}

	if strings.TrimSpace(item.ID) == "" {
		return fmt.Errorf("empty id for item %q", item.Label)
	}

	if strings.TrimSpace(item.Label) == "" {
		return fmt.Errorf("empty label for item %s", item.ID)
	}

	if utf8.RuneCountInString(item.Label) > MaxLabelLength {
		return fmt.Errorf("label too long for item %s: %d characters", item.ID, utf8.RuneCountInString(item.Label))
	}

	for _, alias := range item.Aliases {
		if utf8.RuneCountInString(alias) > MaxLabelLength {
			return fmt.Errorf("alias too long for item %s: %d characters", item.ID, utf8.RuneCountInString(alias))
		}
	}

	if item.Popularity < 0 {
		return fmt.Errorf("negative popularity for item %s: %d", item.ID, item.Popularity)
	}

	switch item.Source {
	case "", entities.SourceCatalog, entities.SourceUserDefined:
	default:
		return fmt.Errorf("unknown source for item %s: %q", item.ID, item.Source)
	}

	return nil
}

// ReportDataQuality generates a data quality report, one entry per catalog in name order
func (v *DataValidatorImpl) ReportDataQuality(catalogs map[string][]entities.Item) *interfaces.DataQualityReport {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &interfaces.DataQualityReport{Catalogs: make([]interfaces.CatalogQuality, 0, len(names))}

	for _, name := range names {
		items := catalogs[name]
		quality := interfaces.CatalogQuality{
			Catalog:      name,
			Items:        len(items),
			DuplicateIDs: []string{},
		}

		seen := make(map[string]bool, len(items))
		for _, item := range items {
			if seen[item.ID] {
				quality.DuplicateIDs = append(quality.DuplicateIDs, item.ID)
			}
			seen[item.ID] = true

			if strings.TrimSpace(item.Label) == "" {
				quality.EmptyLabels++
			}
			if len(item.Category) == 0 {
				quality.WithoutCategory++
			}
			if item.Popularity < 0 {
				quality.NegativePopularity++
			}
		}

		if len(quality.DuplicateIDs) > 0 {
			logging.Error("Duplicate item ids detected",
				"catalog", name,
				"count", len(quality.DuplicateIDs),
				"duplicates", quality.DuplicateIDs,
			)
		}

		report.Catalogs = append(report.Catalogs, quality)
	}

	return report
}

// ValidateQuery validates user search input
func (v *DataValidatorImpl) ValidateQuery(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("query is not valid UTF-8")
	}

	if utf8.RuneCountInString(input) > MaxQueryLength {
		return fmt.Errorf("query too long: maximum %d characters", MaxQueryLength)
	}

	// Many short words make ranking expensive
	if len(strings.Fields(input)) > MaxQueryWords {
		return fmt.Errorf("query too complex: maximum %d words allowed", MaxQueryWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("query contains potentially dangerous content")
		}
	}

	if !queryRegex.MatchString(input) {
		return fmt.Errorf("query contains invalid characters. Only letters, numbers, spaces and - . + ' / ( ) , %% are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("query contains excessive character repetition")
	}

	return nil
}

// ValidateKey validates catalog names, item ids and history context keys
func (v *DataValidatorImpl) ValidateKey(input string) error {
	if input == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if len(input) > MaxKeyLength {
		return fmt.Errorf("key too long: maximum %d characters", MaxKeyLength)
	}

	if strings.Contains(input, "..") {
		return fmt.Errorf("key contains invalid sequence")
	}

	if !keyRegex.MatchString(input) {
		return fmt.Errorf("key contains invalid characters. Only letters, numbers, '_', '-', ':' and '.' are allowed")
	}

	return nil
}

// hasExcessiveRepetition reports the same rune repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}
