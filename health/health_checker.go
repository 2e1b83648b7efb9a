// Package health derives the service health from the cache status.
package health

import (
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/giygas/drugregistry/interfaces"
)

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// Data age thresholds.
const (
	DegradedAge  = 24 * time.Hour
	UnhealthyAge = 48 * time.Hour
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	cache     interfaces.CacheService
	now       func() time.Time
	startedAt time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(cache interfaces.CacheService, now func() time.Time) *HealthCheckerImpl {
	if now == nil {
		now = time.Now
	}
	return &HealthCheckerImpl{
		cache:     cache,
		now:       now,
		startedAt: now(),
	}
}

// HealthCheck classifies every dataset and reports the worst result:
// unhealthy when nothing is loaded or the data is older than UnhealthyAge,
// degraded when a dataset is missing, failed or older than DegradedAge.
// Both non-healthy states answer 503.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	now := h.now()
	statuses := h.cache.GetCacheStatus()

	keys := make([]string, 0, len(statuses))
	for k := range statuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	datasets := make(map[string]any, len(statuses))
	loaded, degraded, unhealthy := 0, false, false

	for _, key := range keys {
		st := statuses[key]
		entry := map[string]any{
			"loaded":      st.Loaded,
			"loading":     st.Loading,
			"count":       st.Count,
			"memory_only": st.MemoryOnly,
		}
		if st.Error != "" {
			entry["error"] = st.Error
			degraded = true
		}
		if !st.Loaded {
			degraded = true
		} else {
			loaded++
		}
		if !st.WrittenAt.IsZero() {
			age := now.Sub(st.WrittenAt)
			entry["written_at"] = st.WrittenAt.UTC().Format(time.RFC3339)
			entry["data_age_hours"] = math.Round(age.Hours()*10) / 10
			switch {
			case age > UnhealthyAge:
				unhealthy = true
			case age > DegradedAge:
				degraded = true
			}
		}
		datasets[key] = entry
	}

	switch {
	case loaded == 0 || unhealthy:
		status, httpStatus = "unhealthy", http.StatusServiceUnavailable
	case degraded:
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	default:
		status, httpStatus = "healthy", http.StatusOK
	}

	data = map[string]any{
		"datasets":       datasets,
		"uptime_seconds": int64(now.Sub(h.startedAt).Seconds()),
	}
	if report := h.cache.GetLastReport(); report != nil {
		data["data_quality"] = report
	}

	return status, data, httpStatus
}
