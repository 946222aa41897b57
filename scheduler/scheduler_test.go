package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/data"
	"github.com/giygas/rxpad/validation"
)

// mockParser returns canned catalogs
type mockParser struct {
	catalogs map[string][]entities.Item
	err      error
	calls    int
}

func (m *mockParser) ParseAllCatalogs(ctx context.Context) (map[string][]entities.Item, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.catalogs, nil
}

func testCatalogs() map[string][]entities.Item {
	return map[string][]entities.Item{
		"tests": {
			{ID: "glu", Label: "Glucose", Category: []string{"Biochemistry"}},
			{ID: "cbc", Label: "Complete blood count", Category: []string{"Hematology"}},
		},
		"medications": {
			{ID: "amox", Label: "Amoxicillin"},
		},
	}
}

func TestReload(t *testing.T) {
	dc := data.NewDataContainer()
	parser := &mockParser{catalogs: testCatalogs()}
	s := NewScheduler(dc, parser, validation.NewDataValidator())

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	names := dc.GetCatalogNames()
	if len(names) != 2 || names[0] != "medications" || names[1] != "tests" {
		t.Errorf("Expected [medications tests], got %v", names)
	}

	ix, ok := dc.GetIndex("tests")
	if !ok || ix.Len() != 2 {
		t.Fatalf("Expected tests index with 2 items")
	}
	if results := ix.Search("gluc", entities.Filters{}); len(results) != 1 || results[0].ID != "glu" {
		t.Errorf("Expected glucose suggestion, got %v", results)
	}

	if dc.GetDataQualityReport() == nil {
		t.Error("Expected data quality report to be stored")
	}
	if dc.IsUpdating() {
		t.Error("Expected update flag to be cleared")
	}
}

func TestReloadDropsInvalidItems(t *testing.T) {
	dc := data.NewDataContainer()
	parser := &mockParser{catalogs: map[string][]entities.Item{
		"tests": {
			{ID: "glu", Label: "Glucose"},
			{ID: "bad", Label: ""},
			{ID: "neg", Label: "Negative", Popularity: -1},
		},
	}}
	s := NewScheduler(dc, parser, validation.NewDataValidator())

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	ix, _ := dc.GetIndex("tests")
	if ix.Len() != 1 {
		t.Errorf("Expected 1 valid item, got %d", ix.Len())
	}

	report := dc.GetDataQualityReport()
	if report == nil || report.Catalogs[0].Items != 3 || report.Catalogs[0].EmptyLabels != 1 {
		t.Errorf("Expected report computed on raw items, got %+v", report)
	}
}

func TestReloadFailureKeepsPreviousData(t *testing.T) {
	dc := data.NewDataContainer()
	parser := &mockParser{catalogs: testCatalogs()}
	s := NewScheduler(dc, parser, validation.NewDataValidator())

	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	lastUpdated := dc.GetLastUpdated()

	parser.err = errors.New("disk on fire")
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("Expected reload error")
	}

	if len(dc.GetCatalogNames()) != 2 {
		t.Error("Expected previous catalogs to be kept")
	}
	if !dc.GetLastUpdated().Equal(lastUpdated) {
		t.Error("Expected last update time to be unchanged")
	}
	if dc.IsUpdating() {
		t.Error("Expected update flag to be cleared after failure")
	}
}

func TestReloadSkipsWhileUpdating(t *testing.T) {
	dc := data.NewDataContainer()
	parser := &mockParser{catalogs: testCatalogs()}
	s := NewScheduler(dc, parser, validation.NewDataValidator())

	dc.BeginUpdate()
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Expected skipped reload to succeed, got %v", err)
	}
	if parser.calls != 0 {
		t.Errorf("Expected parser not to be called, got %d calls", parser.calls)
	}
	dc.EndUpdate()
}

func TestStartAndStop(t *testing.T) {
	dc := data.NewDataContainer()
	parser := &mockParser{catalogs: testCatalogs()}
	s := NewScheduler(dc, parser, validation.NewDataValidator())

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if parser.calls != 1 {
		t.Errorf("Expected initial load, got %d parser calls", parser.calls)
	}

	s.Stop()
	s.Stop()
}

func TestStartFailsOnInitialLoadError(t *testing.T) {
	parser := &mockParser{err: errors.New("no catalogs")}
	s := NewScheduler(data.NewDataContainer(), parser, validation.NewDataValidator())

	if err := s.Start(); err == nil {
		t.Fatal("Expected Start to fail")
	}
}

func TestIsStale(t *testing.T) {
	dc := data.NewDataContainer()
	s := NewScheduler(dc, &mockParser{catalogs: testCatalogs()}, validation.NewDataValidator())
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	last := dc.GetLastUpdated()
	if s.isStale(last.Add(time.Hour)) {
		t.Error("Expected fresh data one hour after reload")
	}
	if !s.isStale(last.Add(26 * time.Hour)) {
		t.Error("Expected stale data 26 hours after reload")
	}
}

func TestMonitorFreshnessStops(t *testing.T) {
	s := NewScheduler(data.NewDataContainer(), &mockParser{}, validation.NewDataValidator())

	finished := make(chan struct{})
	go func() {
		s.monitorFreshness(time.Millisecond)
		close(finished)
	}()

	time.Sleep(5 * time.Millisecond)
	s.Stop()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
