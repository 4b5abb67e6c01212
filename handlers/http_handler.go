package handlers

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/notify"
	"github.com/giygas/drugdb/query"
	"github.com/giygas/drugdb/view"
	"github.com/giygas/drugdb/viewmodel"
	"github.com/go-chi/chi/v5"
)

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

const defaultNotificationLimit = 20

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	queries       *query.DrugQueries
	validator     interfaces.DataValidator
	healthChecker interfaces.HealthChecker
	feed          *notify.Feed
	sorter        *view.Sorter
	pageSize      int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(queries *query.DrugQueries, validator interfaces.DataValidator, healthChecker interfaces.HealthChecker, feed *notify.Feed, sorter *view.Sorter, pageSize int) interfaces.HTTPHandler {
	if pageSize <= 0 {
		pageSize = view.DefaultPageSize
	}
	return &HTTPHandlerImpl{
		queries:       queries,
		validator:     validator,
		healthChecker: healthChecker,
		feed:          feed,
		sorter:        sorter,
		pageSize:      pageSize,
	}
}

// DrugListResponse is one page of drug cards
type DrugListResponse struct {
	Data       []viewmodel.Card `json:"data"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	MaxPage    int              `json:"maxPage"`
	Degraded   bool             `json:"degraded"`
	Stale      bool             `json:"stale"`
}

// DataResponse wraps a single cached value
type DataResponse[T any] struct {
	Data     T    `json:"data"`
	Degraded bool `json:"degraded"`
	Stale    bool `json:"stale"`
}

// NotificationsResponse lists recent notifications and running mutations
type NotificationsResponse struct {
	Data    []notify.Notification `json:"data"`
	Pending []string              `json:"pending"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// ListDrugs serves the filtered, sorted and paginated drug list.
// Query parameters: q, filters (comma separated), sort (name|category), page.
func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	search := values.Get("q")
	if err := h.validator.ValidateInput(search); err != nil {
		logging.Warn("Unusual user input", "q", search, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.validator.ValidatePage(values.Get("page"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if filters := values.Get("filters"); filters != "" {
		if err := h.validator.ValidateCategories(strings.Split(filters, ",")); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if sort := values.Get("sort"); sort != "" && !view.SortKey(sort).Valid() {
		h.RespondWithError(w, http.StatusBadRequest, "sort must be one of: name, category")
		return
	}

	state := view.ParseQuery(values, h.pageSize)
	state.SetPage(page)

	drugs := h.queries.Drugs(r.Context())
	if drugs.IsError() && !drugs.HasData() {
		respondWithUpstreamError(w, r, drugs.Err)
		return
	}

	result := view.Apply(drugs.Data, state, h.sorter)

	h.RespondWithJSON(w, http.StatusOK, DrugListResponse{
		Data:       viewmodel.ToCards(result.Items),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		MaxPage:    result.MaxPage,
		Degraded:   drugs.Degraded,
		Stale:      drugs.IsError(),
	})
}

// GetDrug serves one drug mapped for display
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	drug := h.queries.Drug(r.Context(), id)
	if drug.IsError() && !drug.HasData() {
		respondWithUpstreamError(w, r, drug.Err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, DataResponse[viewmodel.DrugViewModel]{
		Data:     drug.Data,
		Degraded: drug.Degraded,
		Stale:    drug.IsError(),
	})
}

// createDrugRequest is the body of POST /drugs. Association ids are only
// accepted here, they are never sent with the drug itself.
type createDrugRequest struct {
	entities.DrugCreate
	ManufacturerIDs []int `json:"manufacturer_ids"`
	MoleculeIDs     []int `json:"molecule_ids"`
}

// CreateDrug creates a drug and its associations
func (h *HTTPHandlerImpl) CreateDrug(w http.ResponseWriter, r *http.Request) {
	var req createDrugRequest
	if err := decodeJSON(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug := req.DrugCreate
	drug.ManufacturerIDs = req.ManufacturerIDs
	drug.MoleculeIDs = req.MoleculeIDs

	if err := h.validator.ValidateDrugCreate(&drug); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.queries.CreateDrug(r.Context(), drug)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusCreated, resp)
}

// UpdateDrug applies a partial update
func (h *HTTPHandlerImpl) UpdateDrug(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var update entities.DrugUpdate
	if err := decodeJSON(r, &update); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.ValidateDrugUpdate(&update); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.queries.UpdateDrug(r.Context(), id, update); err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "Drug updated successfully", "DrugID": id})
}

// DeleteDrug deletes a drug
func (h *HTTPHandlerImpl) DeleteDrug(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteDrug(r.Context(), id); err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "Drug deleted successfully", "DrugID": id})
}

// AttachManufacturer links an existing manufacturer to a drug
func (h *HTTPHandlerImpl) AttachManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var body entities.AttachManufacturer
	if err := decodeJSON(r, &body); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.ManufacturerID <= 0 {
		h.RespondWithError(w, http.StatusBadRequest, "manufacturer_id must be a positive integer")
		return
	}

	if err := h.queries.AttachManufacturer(r.Context(), id, body.ManufacturerID); err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "Manufacturer added to drug"})
}

// AttachMolecule links an existing molecule to a drug
func (h *HTTPHandlerImpl) AttachMolecule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.drugID(w, r)
	if !ok {
		return
	}

	var body entities.AttachMolecule
	if err := decodeJSON(r, &body); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.MoleculeID <= 0 {
		h.RespondWithError(w, http.StatusBadRequest, "molecule_id must be a positive integer")
		return
	}

	if err := h.queries.AttachMolecule(r.Context(), id, body.MoleculeID); err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{"message": "Molecule added to drug"})
}

// ListManufacturers serves the manufacturer list
func (h *HTTPHandlerImpl) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	manufacturers := h.queries.Manufacturers(r.Context())
	if manufacturers.IsError() && !manufacturers.HasData() {
		respondWithUpstreamError(w, r, manufacturers.Err)
		return
	}

	h.RespondWithJSON(w, http.StatusOK, DataResponse[[]entities.Manufacturer]{
		Data:     manufacturers.Data,
		Degraded: manufacturers.Degraded,
		Stale:    manufacturers.IsError(),
	})
}

// CreateManufacturer creates a manufacturer
func (h *HTTPHandlerImpl) CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var manufacturer entities.ManufacturerCreate
	if err := decodeJSON(r, &manufacturer); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validator.ValidateManufacturerCreate(&manufacturer); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.queries.CreateManufacturer(r.Context(), manufacturer)
	if err != nil {
		respondWithUpstreamError(w, r, err)
		return
	}

	h.RespondWithJSON(w, http.StatusCreated, resp)
}

// Notifications serves the most recent notifications, newest first.
// limit defaults to 20.
func (h *HTTPHandlerImpl) Notifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			h.RespondWithError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	pending := h.queries.Pending()
	if pending == nil {
		pending = []string{}
	}

	h.RespondWithJSON(w, http.StatusOK, NotificationsResponse{
		Data:    h.feed.Recent(limit),
		Pending: pending,
	})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, details, httpStatus := h.healthChecker.HealthCheck()

	if seconds, ok := details["uptime_seconds"].(float64); ok {
		details["uptime"] = formatUptimeHuman(time.Duration(seconds) * time.Second)
	}
	if next, ok := h.healthChecker.(interface{ NextRefresh() time.Time }); ok {
		details["next_refresh"] = next.NextRefresh().Format(time.RFC3339)
	}
	details["cache_entries"] = h.queries.Client().Len()

	h.RespondWithJSON(w, httpStatus, HealthResponse{
		Status: status,
		Data:   details,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	})
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	RespondWithJSON(w, code, payload)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithError(w, code, message)
}

func (h *HTTPHandlerImpl) drugID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := h.validator.ValidateID(raw)
	if err != nil {
		logging.Warn("Unusual user input", "id", raw)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}
