package viewmodel

import (
	"fmt"
	"strings"

	"github.com/giygas/drugdb/entities"
)

// warningClasses flag drug classes shown with a caution marker
var warningClasses = []string{"nsaid", "opioid"}

// Card is the list projection of a drug
type Card struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	PrimaryMolecule string `json:"primaryMolecule"`
	MoleculeCount   int    `json:"moleculeCount"`
	Description     string `json:"description"`
	Warning         bool   `json:"warning"`
}

// ToCard projects a list item for display
func ToCard(drug entities.DrugSummary) Card {
	card := Card{
		ID:              drug.DrugID,
		Name:            drug.Name,
		Category:        orDefault(drug.Class, DefaultCategory),
		PrimaryMolecule: orDefault(drug.PrimaryMolecule, DefaultMolecule),
		MoleculeCount:   drug.MoleculeCount,
		Warning:         HasWarning(drug.Class),
	}
	card.Description = cardDescription(drug)
	return card
}

// ToCards projects a list in order
func ToCards(drugs []entities.DrugSummary) []Card {
	cards := make([]Card, len(drugs))
	for i, d := range drugs {
		cards[i] = ToCard(d)
	}
	return cards
}

// HasWarning reports whether class mentions a flagged drug class
func HasWarning(class string) bool {
	lower := strings.ToLower(class)
	for _, w := range warningClasses {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func cardDescription(drug entities.DrugSummary) string {
	if strings.TrimSpace(drug.PrimaryMolecule) == "" {
		return DefaultDescription
	}
	desc := "Primary molecule: " + drug.PrimaryMolecule
	if drug.MoleculeCount > 0 {
		desc += fmt.Sprintf(". This drug contains %d active molecules.", drug.MoleculeCount)
	}
	return desc
}
