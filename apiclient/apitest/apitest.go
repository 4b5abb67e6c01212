// Package apitest runs an in-memory drug REST API for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/giygas/drugdb/entities"
)

// Server is a drug REST API backed by maps
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	drugs         map[int]entities.DrugRecord
	manufacturers map[int]entities.Manufacturer
	nextDrug      int
	nextMfr       int
	requests      map[string]int
}

// NewServer starts a server seeded with three drugs and two manufacturers.
// It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		drugs: map[int]entities.DrugRecord{
			1: {
				DrugSummary: entities.DrugSummary{DrugID: 1, Name: "Paracetamol", Class: "Analgesic", Origin: "Synthetic",
					SideEffects: "Mild rash", MoleculeCount: 1, PrimaryMolecule: "C8H9NO2"},
				Molecules:     []entities.Molecule{{MoleculeID: 3, ChemicalFormula: "C8H9NO2"}},
				Manufacturers: []entities.ManufacturerRef{{ManufacturerID: 2, Name: "Johnson & Johnson"}},
			},
			2: {
				DrugSummary: entities.DrugSummary{DrugID: 2, Name: "Aspirin", Class: "NSAID", Origin: "Synthetic",
					History: "Synthesized by Bayer in 1897.", SideEffects: "Heartburn; severe bleeding",
					MoleculeCount: 1, PrimaryMolecule: "C9H8O4"},
				Molecules:     []entities.Molecule{{MoleculeID: 1, ChemicalFormula: "C9H8O4"}},
				Manufacturers: []entities.ManufacturerRef{{ManufacturerID: 1, Name: "Bayer"}},
				UsageAreas:    []entities.UsageAreaRef{{UsageID: 1, Region: "Europe"}},
			},
			3: {
				DrugSummary: entities.DrugSummary{DrugID: 3, Name: "Ibuprofen", Class: "NSAID"},
			},
		},
		manufacturers: map[int]entities.Manufacturer{
			1: {ManufacturerID: 1, Name: "Bayer", FamousFor: "Aspirin"},
			2: {ManufacturerID: 2, Name: "Johnson & Johnson"},
		},
		nextDrug: 4,
		nextMfr:  3,
		requests: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drugs", s.listDrugs)
	mux.HandleFunc("POST /drugs", s.createDrug)
	mux.HandleFunc("GET /drugs/{id}", s.getDrug)
	mux.HandleFunc("PUT /drugs/{id}", s.updateDrug)
	mux.HandleFunc("DELETE /drugs/{id}", s.deleteDrug)
	mux.HandleFunc("POST /drugs/{id}/manufacturers", s.attachManufacturer)
	mux.HandleFunc("POST /drugs/{id}/molecules", s.attachMolecule)
	mux.HandleFunc("GET /manufacturers", s.listManufacturers)
	mux.HandleFunc("POST /manufacturers", s.createManufacturer)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Requests returns how many times "METHOD /path" was called
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

// Drug returns the stored record for id
func (s *Server) Drug(id int) (entities.DrugRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drugs[id]
	return d, ok
}

func (s *Server) listDrugs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]entities.DrugSummary, 0, len(s.drugs))
	for _, d := range s.drugs {
		list = append(list, d.DrugSummary)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].DrugID < list[j].DrugID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getDrug(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) createDrug(w http.ResponseWriter, r *http.Request) {
	var in entities.DrugCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextDrug
	s.nextDrug++
	s.drugs[id] = entities.DrugRecord{DrugSummary: entities.DrugSummary{
		DrugID:      id,
		Name:        in.Name,
		Class:       deref(in.Class),
		Origin:      deref(in.Origin),
		History:     deref(in.History),
		SideEffects: deref(in.SideEffects),
	}}
	writeJSON(w, http.StatusCreated, entities.CreateResponse{Message: "Drug created", DrugID: id})
}

func (s *Server) updateDrug(w http.ResponseWriter, r *http.Request) {
	var in entities.DrugUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	apply := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&d.Name, in.Name)
	apply(&d.Class, in.Class)
	apply(&d.Origin, in.Origin)
	apply(&d.History, in.History)
	apply(&d.SideEffects, in.SideEffects)
	s.drugs[d.DrugID] = d
	writeJSON(w, http.StatusOK, map[string]string{"message": "Drug updated"})
}

func (s *Server) deleteDrug(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	delete(s.drugs, d.DrugID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Drug deleted"})
}

func (s *Server) attachManufacturer(w http.ResponseWriter, r *http.Request) {
	var in entities.AttachManufacturer
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	m, exists := s.manufacturers[in.ManufacturerID]
	if !exists {
		writeError(w, http.StatusNotFound, "Manufacturer not found")
		return
	}
	d.Manufacturers = append(d.Manufacturers, entities.ManufacturerRef{ManufacturerID: m.ManufacturerID, Name: m.Name})
	s.drugs[d.DrugID] = d
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Manufacturer added"})
}

func (s *Server) attachMolecule(w http.ResponseWriter, r *http.Request) {
	var in entities.AttachMolecule
	_ = json.NewDecoder(r.Body).Decode(&in)

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if in.MoleculeID <= 0 {
		writeError(w, http.StatusBadRequest, "molecule_id is required")
		return
	}
	d.Molecules = append(d.Molecules, entities.Molecule{MoleculeID: in.MoleculeID, ChemicalFormula: "M" + strconv.Itoa(in.MoleculeID)})
	d.MoleculeCount = len(d.Molecules)
	d.PrimaryMolecule = d.Molecules[0].ChemicalFormula
	s.drugs[d.DrugID] = d
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Molecule added"})
}

func (s *Server) listManufacturers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]entities.Manufacturer, 0, len(s.manufacturers))
	for _, m := range s.manufacturers {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ManufacturerID < list[j].ManufacturerID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createManufacturer(w http.ResponseWriter, r *http.Request) {
	var in entities.ManufacturerCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextMfr
	s.nextMfr++
	s.manufacturers[id] = entities.Manufacturer{ManufacturerID: id, Name: in.Name, FamousFor: deref(in.FamousFor)}
	writeJSON(w, http.StatusCreated, entities.CreateResponse{Message: "Manufacturer created", ManufacturerID: id})
}

// lookup resolves {id}; callers hold s.mu
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (entities.DrugRecord, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid drug id")
		return entities.DrugRecord{}, false
	}
	d, ok := s.drugs[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Drug not found")
		return entities.DrugRecord{}, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, entities.ErrorResponse{Error: message})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
