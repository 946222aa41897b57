// Package data provides thread-safe catalog storage for rxpad.
// It includes the DataContainer struct with atomic operations for zero-downtime
// catalog reloads and thread-safe access to the search indexes.
package data

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/search"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds all the catalogs with atomic pointers for zero-downtime updates
type DataContainer struct {
	indexes         atomic.Value // map[string]*search.Index
	names           atomic.Value // []string, sorted
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.indexes.Store(make(map[string]*search.Index))
	dc.names.Store([]string{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// Thread-safe getters with type check

func (dc *DataContainer) loadIndexes() map[string]*search.Index {
	if v := dc.indexes.Load(); v != nil {
		if indexes, ok := v.(map[string]*search.Index); ok {
			return indexes
		}
	}

	logging.Warn("Catalog indexes are empty or invalid")
	return map[string]*search.Index{}
}

// GetIndex returns the search index of a catalog
func (dc *DataContainer) GetIndex(catalog string) (*search.Index, bool) {
	ix, ok := dc.loadIndexes()[catalog]
	return ix, ok
}

// Index returns the current index of a catalog, nil when unknown.
// Its signature fits search.NewSource so sources follow reloads.
func (dc *DataContainer) Index(catalog string) func() *search.Index {
	return func() *search.Index {
		ix, _ := dc.GetIndex(catalog)
		return ix
	}
}

// GetCatalogNames returns the loaded catalog names in alphabetical order
func (dc *DataContainer) GetCatalogNames() []string {
	if v := dc.names.Load(); v != nil {
		if names, ok := v.([]string); ok {
			return names
		}
	}

	logging.Warn("Catalog names are empty or invalid")
	return []string{}
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// GetDataQualityReport returns the report computed during the last update, nil before the first one
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	return dc.report.Load()
}

// UpdateData atomically replaces every catalog
func (dc *DataContainer) UpdateData(indexes map[string]*search.Index, report *interfaces.DataQualityReport) {
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	// Atomic swap (zero downtime replacement)
	dc.indexes.Store(indexes)
	dc.names.Store(names)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}

// ItemCount returns the total number of items across all catalogs
func (dc *DataContainer) ItemCount() int {
	total := 0
	for _, ix := range dc.loadIndexes() {
		total += ix.Len()
	}
	return total
}
