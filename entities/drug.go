// Package entities holds the wire representation of the drug REST API.
// Field names follow the API's PascalCase JSON keys.
package entities

// DrugSummary is one row of the GET /drugs list
type DrugSummary struct {
	DrugID          int    `json:"DrugID"`
	Name            string `json:"Name"`
	Class           string `json:"Class,omitempty"`
	Origin          string `json:"Origin,omitempty"`
	History         string `json:"History,omitempty"`
	SideEffects     string `json:"SideEffects,omitempty"`
	MoleculeCount   int    `json:"MoleculeCount,omitempty"`
	PrimaryMolecule string `json:"PrimaryMolecule,omitempty"`
}

// DrugRecord is the full GET /drugs/{id} payload
type DrugRecord struct {
	DrugSummary
	Molecules     []Molecule        `json:"Molecules"`
	Manufacturers []ManufacturerRef `json:"Manufacturers"`
	UsageAreas    []UsageAreaRef    `json:"UsageAreas"`
	Sources       []SourceRef       `json:"Sources,omitempty"`
}

type Molecule struct {
	MoleculeID      int    `json:"MoleculeID"`
	ChemicalFormula string `json:"ChemicalFormula"`
	Rendering       string `json:"3DRendering,omitempty"`
}

type UsageAreaRef struct {
	UsageID int    `json:"UsageID"`
	Region  string `json:"Region"`
}

type SourceRef struct {
	SourceID int    `json:"SourceID"`
	Name     string `json:"Name"`
	Type     string `json:"Type"`
}

// DrugCreate is the POST /drugs body. ManufacturerIDs and MoleculeIDs are not
// sent with the body; they are attached one by one after creation.
type DrugCreate struct {
	Name        string  `json:"Name"`
	Origin      *string `json:"Origin,omitempty"`
	Class       *string `json:"Class,omitempty"`
	History     *string `json:"History,omitempty"`
	SideEffects *string `json:"SideEffects,omitempty"`

	ManufacturerIDs []int `json:"-"`
	MoleculeIDs     []int `json:"-"`
}

// DrugUpdate is the PUT /drugs/{id} body; nil fields are left untouched
type DrugUpdate struct {
	Name        *string `json:"Name,omitempty"`
	Origin      *string `json:"Origin,omitempty"`
	Class       *string `json:"Class,omitempty"`
	History     *string `json:"History,omitempty"`
	SideEffects *string `json:"SideEffects,omitempty"`
}

// IsEmpty reports whether the update carries no field at all
func (u DrugUpdate) IsEmpty() bool {
	return u.Name == nil && u.Origin == nil && u.Class == nil && u.History == nil && u.SideEffects == nil
}

// CreateResponse is returned by both create endpoints
type CreateResponse struct {
	Message        string `json:"message"`
	DrugID         int    `json:"DrugID,omitempty"`
	ManufacturerID int    `json:"ManufacturerID,omitempty"`
}

// ID returns whichever identifier the server assigned
func (r CreateResponse) ID() int {
	if r.DrugID != 0 {
		return r.DrugID
	}
	return r.ManufacturerID
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// String returns a pointer to s, for optional payload fields
func String(s string) *string {
	return &s
}
