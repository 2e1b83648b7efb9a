// Package interfaces defines the core abstractions of the drug registry
// service to keep the cache, the loaders and the HTTP layer decoupled and
// testable.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/drugregistry/registryparser/entities"
)

// Dataset keys.
const (
	DatasetDrugs           = "drugs"
	DatasetClassifications = "classifications"
)

// DataQualityReport summarizes data quality issues of a drug load.
type DataQualityReport struct {
	TotalDrugs            int      `json:"totalDrugs"`
	DuplicateIDs          []string `json:"duplicateIds"`
	DrugsWithoutPackages  int      `json:"drugsWithoutPackages"`
	DrugsWithoutATC       int      `json:"drugsWithoutAtc"`
	DrugsWithUnknownRoute int      `json:"drugsWithUnknownRoute"`
	PackagesWithoutEAN    int      `json:"packagesWithoutEan"`
}

// DrugsData is the consumer view of the drug dataset.
type DrugsData struct {
	Entities    []entities.Drug
	SearchIndex SearchIndex
	IsLoaded    bool
	IsLoading   bool
	Error       string
}

// ClassificationData is the consumer view of the classification dataset.
type ClassificationData struct {
	Entities  []entities.Classification
	IsLoaded  bool
	IsLoading bool
	Error     string
}

// DatasetStatus is the diagnostic summary of one dataset.
type DatasetStatus struct {
	Loaded     bool      `json:"loaded"`
	Loading    bool      `json:"loading"`
	Count      int       `json:"count"`
	Error      string    `json:"error,omitempty"`
	WrittenAt  time.Time `json:"writtenAt,omitzero"`
	MemoryOnly bool      `json:"memoryOnly"`
}

// Unsubscriber cancels a subscription.
type Unsubscriber interface {
	Unsubscribe()
}

// SearchIndex answers term lookups over a drug payload.
type SearchIndex interface {
	// Search returns drugs matching query, exact term hits first.
	Search(query string, limit int) []entities.Drug
	// Lookup finds a drug by id.
	Lookup(id string) (entities.Drug, bool)
	// Len returns the number of indexed drugs.
	Len() int
}

// CacheService is the read/refresh/subscribe interface consumers call.
type CacheService interface {
	GetDrugsData() DrugsData
	GetClassificationData() ClassificationData
	// ForceReload reloads one dataset in the background. It returns false
	// when a load was already in flight.
	ForceReload(dataset string) (bool, error)
	Subscribe(callback func()) Unsubscriber
	GetCacheStatus() map[string]DatasetStatus
	GetLastReport() *DataQualityReport
}

// Fetcher retrieves a raw feed blob.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Scheduler defines the lifecycle of background jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HealthChecker reports system health.
type HealthChecker interface {
	// HealthCheck returns the status label, response details and HTTP status.
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator ensures data integrity and validates user input.
type DataValidator interface {
	// ReportDataQuality generates a data quality report for a drug payload.
	ReportDataQuality(drugs []entities.Drug) *DataQualityReport

	// ValidateInput validates a free-text search query.
	ValidateInput(input string) error

	// ValidateDatasetKey validates a dataset key from a URL.
	ValidateDatasetKey(key string) error

	// ValidatePage validates a page number from a URL.
	ValidatePage(input string) (int, error)
}
