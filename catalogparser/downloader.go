package catalogparser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/giygas/rxpad/logging"
	"golang.org/x/text/encoding/charmap"
)

// downloadCatalog fetches baseURL/<name>.tsv into dir/<name>.tsv.
// Catalog exports from older lab systems are ISO-8859-1, those are re-encoded to UTF-8.
func downloadCatalog(ctx context.Context, client *http.Client, dir, baseURL, name string) error {
	target := filepath.Join(dir, name+".tsv")
	cleanPath := filepath.Clean(target)
	if !strings.HasPrefix(cleanPath, filepath.Clean(dir)) {
		return fmt.Errorf("invalid filepath: %s", target)
	}

	url := strings.TrimRight(baseURL, "/") + "/" + name + ".tsv"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: unexpected status %d", url, response.StatusCode)
	}

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var reader io.Reader
	if utf8.Valid(bodyBytes) {
		reader = bytes.NewReader(bodyBytes)
	} else {
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	}

	// Write to a temp file and rename, readers never see a half written catalog
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	writer := bufio.NewWriter(tmp)

	for scanner.Scan() {
		// #nosec G705 -- writing to file, not HTML output
		if _, err := writer.WriteString(scanner.Text() + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write %s: %w", tmpName, err)
		}
	}

	if err := scanner.Err(); err != nil {
		tmp.Close()
		return fmt.Errorf("scanner error in %s: %w", url, err)
	}

	if err := writer.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, cleanPath); err != nil {
		return fmt.Errorf("failed to move catalog into place: %w", err)
	}

	logging.Debug(fmt.Sprintf("%s downloaded without errors", cleanPath))
	return nil
}

// downloadAll fetches every catalog concurrently and returns the names
// that were refreshed, even when some downloads failed
func downloadAll(ctx context.Context, dir, baseURL string, names []string) (map[string]bool, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errors []error
	downloaded := make(map[string]bool, len(names))

	for _, name := range names {
		wg.Add(1)

		go func(name string) {
			defer wg.Done()
			err := downloadCatalog(ctx, client, dir, baseURL, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errors = append(errors, err)
				return
			}
			downloaded[name] = true
		}(name)
	}
	wg.Wait()

	if len(errors) > 0 {
		logging.Error("Catalog download errors occurred", "errors", errors)
		return downloaded, fmt.Errorf("download errors: %v", errors)
	}

	return downloaded, nil
}
