// Package interfaces defines core abstractions for rxpad
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/search"
)

// CatalogQuality summarises the data quality issues of one catalog
type CatalogQuality struct {
	Catalog            string   `json:"catalog"`
	Items              int      `json:"items"`
	DuplicateIDs       []string `json:"duplicate_ids"`
	EmptyLabels        int      `json:"empty_labels"`
	WithoutCategory    int      `json:"without_category"`
	NegativePopularity int      `json:"negative_popularity"`
}

// DataQualityReport provides a summary of data quality issues for every catalog
type DataQualityReport struct {
	Catalogs []CatalogQuality `json:"catalogs"`
}

// DataStore defines the contract for catalog storage.
// It provides thread-safe access to the search indexes
// with atomic operations for zero-downtime updates.
type DataStore interface {
	// Data retrieval methods
	GetIndex(catalog string) (*search.Index, bool)
	GetCatalogNames() []string
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time
	GetDataQualityReport() *DataQualityReport

	// Data update methods
	UpdateData(indexes map[string]*search.Index, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Parser defines the contract for loading catalogs from files or remote exports
type Parser interface {
	// ParseAllCatalogs returns the raw items of every catalog, keyed by catalog name
	ParseAllCatalogs(ctx context.Context) (map[string][]entities.Item, error)
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HistoryStore persists the recency lists of the search widgets, one list per context key.
// Implementations are last-write-wins.
type HistoryStore interface {
	Read(key string) ([]string, error)
	Write(key string, entries []string) error
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	// ServeHTTP implements the http.Handler interface
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	ListCatalogs(w http.ResponseWriter, r *http.Request)
	Suggest(w http.ResponseWriter, r *http.Request)
	GetItem(w http.ResponseWriter, r *http.Request)
	GetHistory(w http.ResponseWriter, r *http.Request)
	AddHistory(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled catalog reload
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for data validation operations.
type DataValidator interface {
	// ValidateItem checks if a catalog item is valid
	ValidateItem(item *entities.Item) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(catalogs map[string][]entities.Item) *DataQualityReport

	// ValidateQuery validates user search input
	ValidateQuery(input string) error

	// ValidateKey validates catalog names, item ids and history context keys
	ValidateKey(input string) error
}
