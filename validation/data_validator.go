// Package validation checks user input before it reaches the drug API
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
)

const (
	maxSearchLength     = 100
	maxSearchWords      = 8
	maxCategories       = 20
	maxCategoryLength   = 50
	maxNameLength       = 200
	maxFieldLength      = 5000
	maxPage             = 10000
	maxRepeatedCharRuns = 10
)

// Pre-compiled regex patterns, compiled once at package initialization
var (
	// Search input: alphanumeric + French accents + safe punctuation
	inputRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\+'(),/%àâäéèêëïîôöùûüÿçÀÂÄÉÈÊËÏÎÔÖÙÛÜŸÇ]+$`)

	// Dangerous patterns checked with strings.Contains on lowercased input
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"onclick=", "onmouseover=", "onfocus=", "onblur=", "onchange=", "onsubmit=",
		"eval(", "expression(", "url(", "import ", "@import", "binding(", "behavior(",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"update set", "--", "/*", "*/", "xp_", "sp_", "exec(", "execute(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
		// NoSQL injection patterns
		"{$ne:", "{$gt:", "{$where:", "{$or:", "{$regex:", "{$expr:",
	}

	// Markup patterns rejected in free-text record fields, which legitimately
	// contain punctuation such as ';' and '--'
	markupPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"<iframe", "<object", "<embed",
	}
)

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct{}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{}
}

// ValidateInput validates search text. Empty input is valid and matches
// every drug.
func (v *DataValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	if utf8.RuneCountInString(input) > maxSearchLength {
		return fmt.Errorf("input too long: maximum %d characters", maxSearchLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	if len(strings.Fields(input)) > maxSearchWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", maxSearchWords)
	}

	lowerInput := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerInput, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and common punctuation are allowed")
	}

	if !strings.ContainsFunc(input, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return fmt.Errorf("input must contain at least one letter or digit")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateID parses a positive integer identifier
func (v *DataValidatorImpl) ValidateID(input string) (int, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return -1, fmt.Errorf("id cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return -1, fmt.Errorf("id contains invalid characters. Only numeric characters are allowed")
	}

	if len(trimmedInput) > 9 {
		return -1, fmt.Errorf("id too long: maximum 9 digits")
	}

	id, err := strconv.Atoi(trimmedInput)
	if err != nil {
		return -1, fmt.Errorf("id contains invalid characters. Only numeric characters are allowed")
	}
	if id <= 0 {
		return -1, fmt.Errorf("id must be positive")
	}

	return id, nil
}

// ValidateCategories validates the category filter list
func (v *DataValidatorImpl) ValidateCategories(categories []string) error {
	if len(categories) > maxCategories {
		return fmt.Errorf("too many categories: maximum %d allowed", maxCategories)
	}

	for _, c := range categories {
		if utf8.RuneCountInString(c) > maxCategoryLength {
			return fmt.Errorf("category too long: maximum %d characters", maxCategoryLength)
		}
		if strings.TrimSpace(c) == "" {
			continue
		}
		if err := v.ValidateInput(c); err != nil {
			return fmt.Errorf("invalid category %q: %w", c, err)
		}
	}
	return nil
}

// ValidatePage parses a 1-based page number. An empty value is page 1.
func (v *DataValidatorImpl) ValidatePage(input string) (int, error) {
	if input == "" {
		return 1, nil
	}

	page, err := strconv.Atoi(input)
	if err != nil {
		return -1, fmt.Errorf("page must be a number")
	}
	if page < 1 {
		return -1, fmt.Errorf("page must be at least 1")
	}
	if page > maxPage {
		return -1, fmt.Errorf("page too large: maximum %d", maxPage)
	}
	return page, nil
}

// ValidateDrugCreate checks a create payload
func (v *DataValidatorImpl) ValidateDrugCreate(drug *entities.DrugCreate) error {
	if drug == nil {
		return fmt.Errorf("drug is nil")
	}

	if err := validateName(drug.Name); err != nil {
		return err
	}

	if err := validateOptionalFields(drug.Origin, drug.Class, drug.History, drug.SideEffects); err != nil {
		return err
	}

	for _, id := range drug.ManufacturerIDs {
		if id <= 0 {
			return fmt.Errorf("invalid manufacturer id: %d", id)
		}
	}
	for _, id := range drug.MoleculeIDs {
		if id <= 0 {
			return fmt.Errorf("invalid molecule id: %d", id)
		}
	}

	return nil
}

// ValidateDrugUpdate checks a partial update payload
func (v *DataValidatorImpl) ValidateDrugUpdate(update *entities.DrugUpdate) error {
	if update == nil || update.IsEmpty() {
		return fmt.Errorf("update must change at least one field")
	}

	if update.Name != nil {
		if err := validateName(*update.Name); err != nil {
			return err
		}
	}

	return validateOptionalFields(update.Origin, update.Class, update.History, update.SideEffects)
}

// ValidateManufacturerCreate checks a manufacturer create payload
func (v *DataValidatorImpl) ValidateManufacturerCreate(manufacturer *entities.ManufacturerCreate) error {
	if manufacturer == nil {
		return fmt.Errorf("manufacturer is nil")
	}

	if err := validateName(manufacturer.Name); err != nil {
		return err
	}

	return validateOptionalFields(manufacturer.FamousFor)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("name too long: maximum %d characters", maxNameLength)
	}
	return validateText(name)
}

func validateOptionalFields(fields ...*string) error {
	for _, f := range fields {
		if f == nil {
			continue
		}
		if utf8.RuneCountInString(*f) > maxFieldLength {
			return fmt.Errorf("field too long: maximum %d characters", maxFieldLength)
		}
		if err := validateText(*f); err != nil {
			return err
		}
	}
	return nil
}

// validateText rejects control characters and markup in free text
func validateText(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("text is not valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return fmt.Errorf("text contains control characters")
		}
	}

	lower := strings.ToLower(s)
	for _, pattern := range markupPatterns {
		if strings.Contains(lower, pattern) {
			return fmt.Errorf("text contains potentially dangerous content")
		}
	}
	return nil
}

// hasExcessiveRepetition checks for the same character repeated more than
// ten times in a row
func hasExcessiveRepetition(input string) bool {
	run := 1
	for i := 1; i < len(input); i++ {
		if input[i] == input[i-1] {
			run++
			if run > maxRepeatedCharRuns {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}
