// Package scheduler reloads the suggestion catalogs twice a day and watches
// their freshness. A reload parses every catalog, drops invalid items, builds
// fresh search indexes and swaps them into the data container in one step.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/metrics"
	"github.com/giygas/rxpad/search"
	"github.com/go-co-op/gocron"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Reload settings
const (
	UpdateTimes    = "06:00;18:00"
	ReloadTimeout  = 5 * time.Minute
	StaleThreshold = 25 * time.Hour
	monitorPeriod  = time.Hour
)

// Scheduler handles catalog reloads and freshness monitoring
type Scheduler struct {
	dataStore interfaces.DataStore
	parser    interfaces.Parser
	validator interfaces.DataValidator
	scheduler *gocron.Scheduler

	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, parser interfaces.Parser, validator interfaces.DataValidator) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		validator: validator,
		scheduler: gocron.NewScheduler(time.Local),
		done:      make(chan struct{}),
	}
}

// Start performs the initial load, then schedules reloads and the freshness monitor
func (s *Scheduler) Start() error {
	if err := s.Reload(context.Background()); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(UpdateTimes).Do(func() {
		if err := s.Reload(context.Background()); err != nil {
			logging.Error("Failed to reload catalogs", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule reloads", "error", err)
		return fmt.Errorf("failed to schedule reloads: %w", err)
	}

	s.scheduler.StartAsync()
	go s.monitorFreshness(monitorPeriod)

	return nil
}

// Stop stops the scheduler and the freshness monitor
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.scheduler.Stop()
		close(s.done)
	})
}

// Reload rebuilds every catalog. A reload already in progress makes it a no-op;
// a failed reload keeps the catalogs currently served.
func (s *Scheduler) Reload(ctx context.Context) error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog reload already in progress, skipping")
		metrics.CatalogReloadsTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	defer s.dataStore.EndUpdate()

	ctx, cancel := context.WithTimeout(ctx, ReloadTimeout)
	defer cancel()

	start := time.Now()
	logging.Info("Starting catalog reload", "at", start.Format(time.RFC3339))

	catalogs, err := s.parser.ParseAllCatalogs(ctx)
	if err != nil {
		metrics.CatalogReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to parse catalogs: %w", err)
	}

	report := s.validator.ReportDataQuality(catalogs)
	for _, quality := range report.Catalogs {
		if quality.EmptyLabels > 0 || quality.NegativePopularity > 0 {
			logging.Warn("Catalog data quality issues",
				"catalog", quality.Catalog,
				"empty_labels", quality.EmptyLabels,
				"negative_popularity", quality.NegativePopularity,
			)
		}
	}

	indexes := make(map[string]*search.Index, len(catalogs))
	total := 0
	for name, items := range catalogs {
		valid := s.validItems(name, items)
		ix := search.NewIndex(entities.NewCatalog(name, valid))
		indexes[name] = ix
		total += ix.Len()
		metrics.CatalogItems.WithLabelValues(name).Set(float64(ix.Len()))
	}

	s.dataStore.UpdateData(indexes, report)
	metrics.CatalogReloadsTotal.WithLabelValues("success").Inc()

	logging.Info("Catalog reload completed",
		"duration", time.Since(start).String(),
		"catalogs", len(indexes),
		"item_count", total,
	)

	return nil
}

// validItems drops the items the validator rejects
func (s *Scheduler) validItems(catalog string, items []entities.Item) []entities.Item {
	valid := make([]entities.Item, 0, len(items))
	rejected := 0
	for i := range items {
		if err := s.validator.ValidateItem(&items[i]); err != nil {
			rejected++
			logging.Debug("Dropping invalid catalog item", "catalog", catalog, "error", err)
			continue
		}
		valid = append(valid, items[i])
	}

	if rejected > 0 {
		logging.Warn("Invalid catalog items dropped", "catalog", catalog, "count", rejected)
	}
	return valid
}

// monitorFreshness warns when the catalogs have not been reloaded for too long
func (s *Scheduler) monitorFreshness(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if s.isStale(time.Now()) {
				logging.Warn("Catalogs haven't been reloaded in over 25 hours",
					"last_update", s.dataStore.GetLastUpdated().Format(time.RFC3339))
			}
		}
	}
}

func (s *Scheduler) isStale(now time.Time) bool {
	return now.Sub(s.dataStore.GetLastUpdated()) > StaleThreshold
}
