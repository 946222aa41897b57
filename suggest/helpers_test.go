package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/search"
)

// recordingSource records every query and answers from a small medication index
type recordingSource struct {
	mu      sync.Mutex
	queries []string
	index   *search.Index
	block   map[string]chan struct{}
	err     error
}

func newRecordingSource() *recordingSource {
	catalog := entities.NewCatalog("medications", []entities.Item{
		{ID: "para-500", Label: "Paracetamol 500mg", Popularity: 90},
		{ID: "ibu-200", Label: "Ibuprofen 200mg", Aliases: []string{"Advil"}, Popularity: 80},
		{ID: "ibu-400", Label: "Ibuprofen 400mg", Popularity: 60},
		{ID: "amox-500", Label: "Amoxicillin 500mg", Popularity: 70},
	})
	return &recordingSource{index: search.NewIndex(catalog), block: map[string]chan struct{}{}}
}

func (r *recordingSource) Search(ctx context.Context, query string) ([]entities.Suggestion, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	gate := r.block[query]
	err := r.err
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return r.index.Search(query, entities.Filters{}), nil
}

func (r *recordingSource) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func (r *recordingSource) blockOn(query string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.block[query] = ch
	return ch
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func labels(results []entities.Suggestion) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Label
	}
	return out
}
