package entities

type Manufacturer struct {
	ManufacturerID int    `json:"ManufacturerID"`
	Name           string `json:"Name"`
	FamousFor      string `json:"FamousFor,omitempty"`
}

// ManufacturerRef is the short form embedded in a DrugRecord
type ManufacturerRef struct {
	ManufacturerID int    `json:"ManufacturerID"`
	Name           string `json:"Name"`
}

type ManufacturerCreate struct {
	Name      string  `json:"Name"`
	FamousFor *string `json:"FamousFor,omitempty"`
}

// AttachManufacturer is the POST /drugs/{id}/manufacturers body
type AttachManufacturer struct {
	ManufacturerID int `json:"manufacturer_id"`
}

// AttachMolecule is the POST /drugs/{id}/molecules body
type AttachMolecule struct {
	MoleculeID int `json:"molecule_id"`
}
