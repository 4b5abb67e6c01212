// Package viewmodel maps drug API records into display-oriented projections.
// All functions are pure: the same record always yields the same view.
package viewmodel

import (
	"strings"
	"unicode/utf8"

	"github.com/giygas/drugdb/entities"
)

type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

const (
	DefaultCategory     = "Unclassified"
	DefaultOrigin       = "Not specified"
	DefaultDescription  = "No description available"
	DefaultFrequency    = "Not specified"
	DefaultMolecule     = "Unknown"
	UnavailableEffect   = "Information not available"
	descriptionMaxRunes = 100
)

// SideEffect is one fragment of the free-text side effects field
type SideEffect struct {
	Name      string   `json:"name"`
	Severity  Severity `json:"severity"`
	Frequency string   `json:"frequency"`
}

type UsageArea struct {
	ID     int    `json:"id"`
	Region string `json:"region"`
}

// DrugViewModel is the detail view of a drug
type DrugViewModel struct {
	ID           int          `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	Origin       string       `json:"origin"`
	Description  string       `json:"description"`
	SideEffects  []SideEffect `json:"sideEffects"`
	Manufacturer string       `json:"manufacturer,omitempty"`
	Molecules    string       `json:"molecules"`
	UsageAreas   []UsageArea  `json:"usageAreas"`
}

// ToViewModel projects a full drug record for display
func ToViewModel(record entities.DrugRecord) DrugViewModel {
	vm := DrugViewModel{
		ID:          record.DrugID,
		Name:        record.Name,
		Category:    orDefault(record.Class, DefaultCategory),
		Origin:      orDefault(record.Origin, DefaultOrigin),
		Description: Describe(record.History),
		SideEffects: ParseSideEffects(record.SideEffects),
		Molecules:   joinFormulas(record.Molecules),
		UsageAreas:  make([]UsageArea, 0, len(record.UsageAreas)),
	}

	if len(record.Manufacturers) > 0 {
		vm.Manufacturer = record.Manufacturers[0].Name
	}
	for _, ua := range record.UsageAreas {
		vm.UsageAreas = append(vm.UsageAreas, UsageArea{ID: ua.UsageID, Region: ua.Region})
	}

	return vm
}

// ParseSideEffects splits raw on '.', ',' and ';' and classifies each
// fragment. The result is never empty.
func ParseSideEffects(raw string) []SideEffect {
	fragments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '.' || r == ',' || r == ';'
	})

	effects := make([]SideEffect, 0, len(fragments))
	for _, fragment := range fragments {
		name := strings.TrimSpace(fragment)
		if name == "" {
			continue
		}
		effects = append(effects, SideEffect{
			Name:      name,
			Severity:  ClassifySeverity(name),
			Frequency: DefaultFrequency,
		})
	}

	if len(effects) == 0 {
		return []SideEffect{{
			Name:      UnavailableEffect,
			Severity:  SeverityModerate,
			Frequency: DefaultFrequency,
		}}
	}
	return effects
}

// ClassifySeverity matches "severe" before "mild", defaulting to moderate
func ClassifySeverity(text string) Severity {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "severe"):
		return SeveritySevere
	case strings.Contains(lower, "mild"):
		return SeverityMild
	default:
		return SeverityModerate
	}
}

// Describe turns the history field into a display description, cutting it
// at 100 runes
func Describe(history string) string {
	history = strings.TrimSpace(history)
	if history == "" {
		return DefaultDescription
	}
	if utf8.RuneCountInString(history) <= descriptionMaxRunes {
		return history
	}
	runes := []rune(history)
	return string(runes[:descriptionMaxRunes]) + "..."
}

func joinFormulas(molecules []entities.Molecule) string {
	formulas := make([]string, 0, len(molecules))
	for _, m := range molecules {
		if m.ChemicalFormula != "" {
			formulas = append(formulas, m.ChemicalFormula)
		}
	}
	return strings.Join(formulas, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
