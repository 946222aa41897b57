// Package health provides health checking functionality for rxpad.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/rxpad/interfaces"
)

// Catalogs are reloaded at these hours, local time
var updateHours = []int{6, 18}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore interfaces.DataStore
	now       func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(dataStore interfaces.DataStore) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore: dataStore,
		now:       time.Now,
	}
}

// HealthCheck returns HTTP-specific health data
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	names := h.dataStore.GetCatalogNames()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	dataAge := h.now().Sub(lastUpdate)

	catalogs := make(map[string]int, len(names))
	emptyCatalogs := 0
	for _, name := range names {
		count := 0
		if ix, ok := h.dataStore.GetIndex(name); ok {
			count = ix.Len()
		}
		catalogs[name] = count
		if count == 0 {
			emptyCatalogs++
		}
	}

	switch {
	case len(names) == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case emptyCatalogs > 0:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"catalogs":       catalogs,
		"is_updating":    isUpdating,
		"next_update":    h.CalculateNextUpdate().Format(time.RFC3339),
	}

	if startTime := h.dataStore.GetServerStartTime(); !startTime.IsZero() {
		data["uptime_seconds"] = math.Round(h.now().Sub(startTime).Seconds())
	}

	if report := h.dataStore.GetDataQualityReport(); report != nil {
		duplicates := 0
		for _, c := range report.Catalogs {
			duplicates += len(c.DuplicateIDs)
		}
		data["duplicate_ids"] = duplicates
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled catalog reload
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextUpdate(h.now())
}

func nextUpdate(now time.Time) time.Time {
	for _, hour := range updateHours {
		at := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if now.Before(at) {
			return at
		}
	}

	first := time.Date(now.Year(), now.Month(), now.Day(), updateHours[0], 0, 0, 0, now.Location())
	return first.AddDate(0, 0, 1)
}
