package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/result"
)

var _ interfaces.DrugAPI = (*mockAPI)(nil)

var errMock = errors.New("boom")

// mockAPI counts calls per operation and lets tests replace behaviour
type mockAPI struct {
	listCalls   atomic.Int32
	getCalls    atomic.Int32
	mfrCalls    atomic.Int32
	createCalls atomic.Int32

	listFn   func(ctx context.Context, call int32) result.Result[[]entities.DrugSummary]
	getFn    func(ctx context.Context, id int) result.Result[entities.DrugRecord]
	createFn func(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error)
	updateFn func(ctx context.Context, id int, update entities.DrugUpdate) error
	deleteFn func(ctx context.Context, id int) error
}

func newMockAPI() *mockAPI {
	return &mockAPI{}
}

func (m *mockAPI) ListDrugs(ctx context.Context) result.Result[[]entities.DrugSummary] {
	call := m.listCalls.Add(1)
	if m.listFn != nil {
		return m.listFn(ctx, call)
	}
	return result.Ok([]entities.DrugSummary{{DrugID: 1, Name: "Aspirin", Class: "NSAID"}})
}

func (m *mockAPI) GetDrug(ctx context.Context, id int) result.Result[entities.DrugRecord] {
	m.getCalls.Add(1)
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return result.Ok(entities.DrugRecord{
		DrugSummary: entities.DrugSummary{DrugID: id, Name: "Aspirin", SideEffects: "Nausea, severe bleeding; mild rash."},
	})
}

func (m *mockAPI) ListManufacturers(ctx context.Context) result.Result[[]entities.Manufacturer] {
	m.mfrCalls.Add(1)
	return result.Ok([]entities.Manufacturer{{ManufacturerID: 1, Name: "Bayer"}})
}

func (m *mockAPI) CreateDrug(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error) {
	m.createCalls.Add(1)
	if m.createFn != nil {
		return m.createFn(ctx, drug)
	}
	return entities.CreateResponse{Message: "Drug created", DrugID: 10}, nil
}

func (m *mockAPI) UpdateDrug(ctx context.Context, id int, update entities.DrugUpdate) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, update)
	}
	return nil
}

func (m *mockAPI) DeleteDrug(ctx context.Context, id int) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockAPI) AttachManufacturer(ctx context.Context, drugID, manufacturerID int) error {
	return nil
}

func (m *mockAPI) AttachMolecule(ctx context.Context, drugID, moleculeID int) error {
	return nil
}

func (m *mockAPI) CreateManufacturer(ctx context.Context, manufacturer entities.ManufacturerCreate) (entities.CreateResponse, error) {
	return entities.CreateResponse{Message: "Manufacturer created", ManufacturerID: 4}, nil
}

// recordingNotifier keeps every notification it receives
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *recordingNotifier) Failure(message string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
}

func (n *recordingNotifier) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...), append([]string(nil), n.failures...)
}
