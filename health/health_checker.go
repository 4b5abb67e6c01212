// Package health reports whether the browser can serve fresh drug data
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/drugdb/interfaces"
)

// staleIntervals is how many missed refreshes make the data degraded
const staleIntervals = 3

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	refreshStore    interfaces.RefreshStore
	refreshInterval time.Duration
	apiURL          string
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(refreshStore interfaces.RefreshStore, refreshInterval time.Duration, apiURL string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		refreshStore:    refreshStore,
		refreshInterval: refreshInterval,
		apiURL:          apiURL,
	}
}

// HealthCheck returns the health status, its details and the HTTP code for
// the /health endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	lastRefresh, stats := h.refreshStore.LastRefresh()
	isRefreshing := h.refreshStore.IsRefreshing()

	data = map[string]any{
		"api_url":       h.apiURL,
		"is_refreshing": isRefreshing,
		"drugs":         stats.DrugCount,
		"manufacturers": stats.ManufacturerCount,
		"fallback_data": stats.Degraded,
	}
	if start := h.refreshStore.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	if lastRefresh.IsZero() {
		data["last_refresh"] = nil
		return "unhealthy", data, http.StatusServiceUnavailable
	}

	age := time.Since(lastRefresh)
	data["last_refresh"] = lastRefresh.Format(time.RFC3339)
	data["data_age_minutes"] = math.Round(age.Minutes()*10) / 10
	if stats.Cause != nil {
		data["last_error"] = stats.Cause.Error()
	}

	switch {
	case stats.Degraded:
		status = "degraded"
	case h.refreshInterval > 0 && age > staleIntervals*h.refreshInterval:
		status = "degraded"
	default:
		status = "healthy"
	}

	return status, data, http.StatusOK
}

// NextRefresh returns when the next scheduled refresh is due
func (h *HealthCheckerImpl) NextRefresh() time.Time {
	lastRefresh, _ := h.refreshStore.LastRefresh()
	if lastRefresh.IsZero() {
		return time.Now()
	}
	return lastRefresh.Add(h.refreshInterval)
}
