package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/notify"
	"github.com/giygas/drugdb/query"
	"github.com/giygas/drugdb/result"
	"github.com/giygas/drugdb/validation"
	"github.com/giygas/drugdb/view"
	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"
)

var _ interfaces.DrugAPI = (*mockDrugAPI)(nil)

// mockDrugAPI serves fixed data and records the mutations it receives
type mockDrugAPI struct {
	mu sync.Mutex

	drugs         result.Result[[]entities.DrugSummary]
	drug          func(id int) result.Result[entities.DrugRecord]
	manufacturers result.Result[[]entities.Manufacturer]
	mutationErr   error

	created       []entities.DrugCreate
	updated       map[int]entities.DrugUpdate
	deleted       []int
	attachedMfrs  [][2]int
	attachedMols  [][2]int
	createdMfrs   []entities.ManufacturerCreate
	listDrugCalls int
}

func newMockDrugAPI() *mockDrugAPI {
	return &mockDrugAPI{
		drugs: result.Ok([]entities.DrugSummary{
			{DrugID: 1, Name: "Paracetamol", Class: "Analgesic", MoleculeCount: 1, PrimaryMolecule: "C8H9NO2"},
			{DrugID: 2, Name: "Aspirin", Class: "NSAID", MoleculeCount: 1, PrimaryMolecule: "C9H8O4"},
			{DrugID: 3, Name: "Ibuprofen", Class: "NSAID"},
		}),
		drug: func(id int) result.Result[entities.DrugRecord] {
			return result.Ok(entities.DrugRecord{
				DrugSummary: entities.DrugSummary{DrugID: id, Name: "Aspirin", Class: "NSAID", SideEffects: "Nausea; severe bleeding"},
				Molecules:   []entities.Molecule{{MoleculeID: 1, ChemicalFormula: "C9H8O4"}},
				Manufacturers: []entities.ManufacturerRef{
					{ManufacturerID: 1, Name: "Bayer"},
				},
			})
		},
		manufacturers: result.Ok([]entities.Manufacturer{{ManufacturerID: 1, Name: "Bayer"}}),
		updated:       make(map[int]entities.DrugUpdate),
	}
}

func (m *mockDrugAPI) ListDrugs(ctx context.Context) result.Result[[]entities.DrugSummary] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDrugCalls++
	return m.drugs
}

func (m *mockDrugAPI) GetDrug(ctx context.Context, id int) result.Result[entities.DrugRecord] {
	return m.drug(id)
}

func (m *mockDrugAPI) ListManufacturers(ctx context.Context) result.Result[[]entities.Manufacturer] {
	return m.manufacturers
}

func (m *mockDrugAPI) CreateDrug(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return entities.CreateResponse{}, m.mutationErr
	}
	m.created = append(m.created, drug)
	return entities.CreateResponse{Message: "Drug created", DrugID: 42}, nil
}

func (m *mockDrugAPI) UpdateDrug(ctx context.Context, id int, update entities.DrugUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return m.mutationErr
	}
	m.updated[id] = update
	return nil
}

func (m *mockDrugAPI) DeleteDrug(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return m.mutationErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDrugAPI) AttachManufacturer(ctx context.Context, drugID, manufacturerID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return m.mutationErr
	}
	m.attachedMfrs = append(m.attachedMfrs, [2]int{drugID, manufacturerID})
	return nil
}

func (m *mockDrugAPI) AttachMolecule(ctx context.Context, drugID, moleculeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return m.mutationErr
	}
	m.attachedMols = append(m.attachedMols, [2]int{drugID, moleculeID})
	return nil
}

func (m *mockDrugAPI) CreateManufacturer(ctx context.Context, manufacturer entities.ManufacturerCreate) (entities.CreateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationErr != nil {
		return entities.CreateResponse{}, m.mutationErr
	}
	m.createdMfrs = append(m.createdMfrs, manufacturer)
	return entities.CreateResponse{Message: "Manufacturer created", ManufacturerID: 7}, nil
}

// mockHealthChecker returns a fixed health report
type mockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

func (m *mockHealthChecker) HealthCheck() (string, map[string]any, int) {
	details := make(map[string]any, len(m.details))
	for k, v := range m.details {
		details[k] = v
	}
	return m.status, details, m.httpStatus
}

// testEnv wires a handler over a mock API the way the server does
type testEnv struct {
	api    *mockDrugAPI
	feed   *notify.Feed
	router chi.Router
}

func newTestEnv(t *testing.T, api *mockDrugAPI) *testEnv {
	t.Helper()

	feed := notify.NewFeed(10)
	client := query.New(query.Options{
		StaleTime: time.Minute,
		GCTime:    time.Minute,
		Retries:   0,
		Notifier:  feed,
	})
	t.Cleanup(client.Close)

	health := &mockHealthChecker{
		status:     "healthy",
		details:    map[string]any{"drugs": 3, "uptime_seconds": float64(3725)},
		httpStatus: http.StatusOK,
	}

	h := NewHTTPHandler(
		query.NewDrugQueries(client, api),
		validation.NewDataValidator(),
		health,
		feed,
		view.NewSorter(language.English),
		2,
	)

	r := chi.NewRouter()
	r.Get("/drugs", h.ListDrugs)
	r.Post("/drugs", h.CreateDrug)
	r.Get("/drugs/{id}", h.GetDrug)
	r.Put("/drugs/{id}", h.UpdateDrug)
	r.Delete("/drugs/{id}", h.DeleteDrug)
	r.Post("/drugs/{id}/manufacturers", h.AttachManufacturer)
	r.Post("/drugs/{id}/molecules", h.AttachMolecule)
	r.Get("/manufacturers", h.ListManufacturers)
	r.Post("/manufacturers", h.CreateManufacturer)
	r.Get("/notifications", h.Notifications)
	r.Get("/health", h.HealthCheck)

	return &testEnv{api: api, feed: feed, router: r}
}
