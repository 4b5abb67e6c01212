// Package interfaces defines core abstractions for the drug database browser
// to improve testability and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/result"
)

// DrugAPI is the remote access layer over the drug REST API.
// Reads return a tagged result and degrade to fallback data when the API is
// unreachable; mutations always propagate their failures.
type DrugAPI interface {
	ListDrugs(ctx context.Context) result.Result[[]entities.DrugSummary]
	GetDrug(ctx context.Context, id int) result.Result[entities.DrugRecord]
	ListManufacturers(ctx context.Context) result.Result[[]entities.Manufacturer]

	CreateDrug(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error)
	UpdateDrug(ctx context.Context, id int, update entities.DrugUpdate) error
	DeleteDrug(ctx context.Context, id int) error
	AttachManufacturer(ctx context.Context, drugID, manufacturerID int) error
	AttachMolecule(ctx context.Context, drugID, moleculeID int) error
	CreateManufacturer(ctx context.Context, manufacturer entities.ManufacturerCreate) (entities.CreateResponse, error)
}

// Notifier receives user-facing success and failure messages
type Notifier interface {
	Success(message string)
	Failure(message string, err error)
}

// RefreshStats is what one background refresh observed
type RefreshStats struct {
	DrugCount         int
	ManufacturerCount int
	Degraded          bool
	Cause             error
}

// RefreshStore keeps track of background cache refreshes
type RefreshStore interface {
	BeginRefresh() bool
	EndRefresh()
	IsRefreshing() bool
	RecordRefresh(stats RefreshStats)
	LastRefresh() (time.Time, RefreshStats)
	GetServerStartTime() time.Time
}

// CacheWarmer re-reads the cached collections and drops unused entries
type CacheWarmer interface {
	Warm(ctx context.Context) (RefreshStats, error)
	Prune() int
}

// Scheduler manages periodic cache refresh and cleanup jobs
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports the health of the browser and its upstream
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator validates user input before it reaches the drug API
type DataValidator interface {
	ValidateInput(input string) error
	ValidateID(input string) (int, error)
	ValidateCategories(categories []string) error
	ValidatePage(input string) (int, error)
	ValidateDrugCreate(drug *entities.DrugCreate) error
	ValidateDrugUpdate(update *entities.DrugUpdate) error
	ValidateManufacturerCreate(manufacturer *entities.ManufacturerCreate) error
}

// HTTPHandler is the JSON surface of the browser
type HTTPHandler interface {
	ListDrugs(w http.ResponseWriter, r *http.Request)
	GetDrug(w http.ResponseWriter, r *http.Request)
	CreateDrug(w http.ResponseWriter, r *http.Request)
	UpdateDrug(w http.ResponseWriter, r *http.Request)
	DeleteDrug(w http.ResponseWriter, r *http.Request)
	AttachManufacturer(w http.ResponseWriter, r *http.Request)
	AttachMolecule(w http.ResponseWriter, r *http.Request)
	ListManufacturers(w http.ResponseWriter, r *http.Request)
	CreateManufacturer(w http.ResponseWriter, r *http.Request)
	Notifications(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
