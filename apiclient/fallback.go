package apiclient

import "github.com/giygas/drugdb/entities"

// Demo data served when the drug API cannot be reached. Functions return
// fresh copies so callers may modify what they get.

func FallbackDrugs() []entities.DrugSummary {
	return []entities.DrugSummary{
		{
			DrugID:          1,
			Name:            "Aspirin",
			Class:           "NSAID",
			Origin:          "Synthetic",
			History:         "Acetylsalicylic acid was first synthesized in a pure form by Bayer in 1897.",
			SideEffects:     "Stomach upset, heartburn; severe bleeding in rare cases.",
			MoleculeCount:   1,
			PrimaryMolecule: "C9H8O4",
		},
		{
			DrugID:          2,
			Name:            "Ibuprofen",
			Class:           "NSAID",
			Origin:          "Synthetic",
			History:         "Developed by the Boots company in the 1960s as an alternative to aspirin.",
			SideEffects:     "Nausea, mild dizziness; severe stomach bleeding.",
			MoleculeCount:   1,
			PrimaryMolecule: "C13H18O2",
		},
		{
			DrugID:          3,
			Name:            "Paracetamol",
			Class:           "Analgesic",
			Origin:          "Synthetic",
			History:         "First used clinically in 1887 and widely marketed from the 1950s.",
			SideEffects:     "Mild rash. Severe liver damage on overdose.",
			MoleculeCount:   1,
			PrimaryMolecule: "C8H9NO2",
		},
	}
}

var fallbackDetails = map[int]struct {
	molecule     entities.Molecule
	manufacturer entities.ManufacturerRef
}{
	1: {entities.Molecule{MoleculeID: 1, ChemicalFormula: "C9H8O4"}, entities.ManufacturerRef{ManufacturerID: 1, Name: "Bayer"}},
	2: {entities.Molecule{MoleculeID: 2, ChemicalFormula: "C13H18O2"}, entities.ManufacturerRef{ManufacturerID: 3, Name: "Johnson & Johnson"}},
	3: {entities.Molecule{MoleculeID: 3, ChemicalFormula: "C8H9NO2"}, entities.ManufacturerRef{ManufacturerID: 3, Name: "Johnson & Johnson"}},
}

// FallbackDrug returns the demo record for id. Ids outside the demo set get
// a placeholder record carrying the requested id.
func FallbackDrug(id int) entities.DrugRecord {
	for _, summary := range FallbackDrugs() {
		if summary.DrugID != id {
			continue
		}
		detail := fallbackDetails[id]
		return entities.DrugRecord{
			DrugSummary:   summary,
			Molecules:     []entities.Molecule{detail.molecule},
			Manufacturers: []entities.ManufacturerRef{detail.manufacturer},
			UsageAreas:    []entities.UsageAreaRef{{UsageID: 1, Region: "Worldwide"}},
		}
	}

	return entities.DrugRecord{
		DrugSummary: entities.DrugSummary{
			DrugID: id,
			Name:   "Drug information unavailable",
		},
		Molecules:     []entities.Molecule{},
		Manufacturers: []entities.ManufacturerRef{},
		UsageAreas:    []entities.UsageAreaRef{},
	}
}

func FallbackManufacturers() []entities.Manufacturer {
	return []entities.Manufacturer{
		{ManufacturerID: 1, Name: "Bayer", FamousFor: "Aspirin"},
		{ManufacturerID: 2, Name: "Pfizer", FamousFor: "Lipitor"},
		{ManufacturerID: 3, Name: "Johnson & Johnson", FamousFor: "Tylenol"},
	}
}
