// Package catalogparser loads the static suggestion catalogs (lab tests,
// medications, complaints) from JSON or TSV files, optionally refreshing them
// from a remote export first, and falls back to the catalogs embedded in the binary.
package catalogparser

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
)

// Catalog names served by the application
const (
	CatalogTests       = "tests"
	CatalogMedications = "medications"
	CatalogComplaints  = "complaints"
)

// DefaultCatalogs lists every catalog loaded at startup
var DefaultCatalogs = []string{CatalogTests, CatalogMedications, CatalogComplaints}

//go:embed defaults/*.json
var defaultFiles embed.FS

// Compile-time check to ensure CatalogParser implements Parser interface
var _ interfaces.Parser = (*CatalogParser)(nil)

// CatalogParser implements the Parser interface
type CatalogParser struct {
	dir     string
	baseURL string
	names   []string
}

// NewCatalogParser creates a parser reading from dir. When baseURL is not
// empty, catalogs are downloaded into dir before being parsed.
func NewCatalogParser(dir, baseURL string, names ...string) *CatalogParser {
	if len(names) == 0 {
		names = DefaultCatalogs
	}
	return &CatalogParser{dir: dir, baseURL: baseURL, names: names}
}

// ParseAllCatalogs implements the Parser interface
func (p *CatalogParser) ParseAllCatalogs(ctx context.Context) (map[string][]entities.Item, error) {
	var downloaded map[string]bool
	if p.baseURL != "" {
		// A failed download keeps the previous local files
		var err error
		downloaded, err = downloadAll(ctx, p.dir, p.baseURL, p.names)
		if err != nil {
			logging.Warn("Using local catalogs after download failure", "error", err)
		}
	}

	type result struct {
		name  string
		items []entities.Item
		err   error
	}

	var wg sync.WaitGroup
	results := make(chan result, len(p.names))

	for _, name := range p.names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			items, err := p.loadCatalog(name, downloaded[name])
			results <- result{name: name, items: items, err: err}
		}(name)
	}

	wg.Wait()
	close(results)

	catalogs := make(map[string][]entities.Item, len(p.names))
	var errs []error
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		catalogs[r.name] = r.items
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to parse catalogs: %w", errors.Join(errs...))
	}

	return catalogs, nil
}

// loadCatalog reads <dir>/<name>.json, then <dir>/<name>.tsv, then the embedded default.
// A freshly downloaded TSV is read before any JSON file.
func (p *CatalogParser) loadCatalog(name string, fresh bool) ([]entities.Item, error) {
	if p.dir != "" {
		tsvPath := filepath.Join(p.dir, name+".tsv")
		if fresh {
			return readTSVFile(tsvPath)
		}

		jsonPath := filepath.Join(p.dir, name+".json")
		if data, err := os.ReadFile(jsonPath); err == nil {
			if _, err := os.Stat(tsvPath); err == nil {
				logging.Warn("JSON catalog shadows the TSV export", "catalog", name, "json", jsonPath)
			}
			return decodeJSONCatalog(data, jsonPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", jsonPath, err)
		}

		if _, err := os.Stat(tsvPath); err == nil {
			return readTSVFile(tsvPath)
		}
	}

	data, err := defaultFiles.ReadFile("defaults/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("no catalog file found for %q: %w", name, err)
	}
	logging.Debug("Using embedded catalog", "catalog", name)
	return decodeJSONCatalog(data, name)
}

func decodeJSONCatalog(data []byte, name string) ([]entities.Item, error) {
	var items []entities.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid JSON catalog %s: %w", name, err)
	}

	for i := range items {
		if items[i].Source == "" {
			items[i].Source = entities.SourceCatalog
		}
	}

	return items, nil
}
