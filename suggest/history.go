package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
)

// HistoryCapacity is the number of recent searches kept per context
const HistoryCapacity = 10

// HistoryFileName is the single file holding the history of every context
const HistoryFileName = "recent-searches.json"

// HistoryStore persists the recency lists, see interfaces.HistoryStore
type HistoryStore = interfaces.HistoryStore

// History maintains bounded most-recent-first lists on top of a HistoryStore.
// Entries are deduplicated by exact text.
type History struct {
	store    HistoryStore
	capacity int
	mu       sync.Mutex
}

// NewHistory creates a History backed by store
func NewHistory(store HistoryStore) *History {
	return &History{store: store, capacity: HistoryCapacity}
}

// Add moves text to the front of the list of key
func (h *History) Add(key, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return h.List(key), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := h.store.Read(key)
	if err != nil {
		// A broken list is replaced rather than blocking new entries
		logging.Warn("Failed to read search history", "key", key, "error", err)
		current = nil
	}

	entries := make([]string, 0, h.capacity)
	entries = append(entries, text)
	for _, e := range current {
		if len(entries) == h.capacity {
			break
		}
		if e != text {
			entries = append(entries, e)
		}
	}

	if err := h.store.Write(key, entries); err != nil {
		return entries, fmt.Errorf("failed to write search history %q: %w", key, err)
	}
	return entries, nil
}

// List returns the recent searches of key, empty when the store fails
func (h *History) List(key string) []string {
	entries, err := h.store.Read(key)
	if err != nil {
		logging.Warn("Failed to read search history", "key", key, "error", err)
		return []string{}
	}
	if len(entries) > h.capacity {
		entries = entries[:h.capacity]
	}
	if entries == nil {
		return []string{}
	}
	return entries
}

// Compile-time checks
var (
	_ HistoryStore = (*MemoryHistoryStore)(nil)
	_ HistoryStore = (*FileHistoryStore)(nil)
)

// MemoryHistoryStore keeps the lists in process memory
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]string
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{entries: make(map[string][]string)}
}

func (m *MemoryHistoryStore) Read(key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.entries[key]...), nil
}

func (m *MemoryHistoryStore) Write(key string, entries []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]string(nil), entries...)
	return nil
}

// FileHistoryStore keeps every context in one JSON object stored in
// dir/recent-searches.json. Writes replace the file atomically.
// Concurrent processes are last-write-wins.
type FileHistoryStore struct {
	path string
	mu   sync.Mutex
}

// NewFileHistoryStore creates a store writing to path, or to
// path/recent-searches.json when path is a directory
func NewFileHistoryStore(path string) (*FileHistoryStore, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, HistoryFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &FileHistoryStore{path: path}, nil
}

// Path returns the backing file
func (f *FileHistoryStore) Path() string {
	return f.path
}

func (f *FileHistoryStore) Read(key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return nil, err
	}
	return all[key], nil
}

func (f *FileHistoryStore) Write(key string, entries []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		logging.Warn("Replacing unreadable history file", "path", f.path, "error", err)
		all = make(map[string][]string)
	}
	all[key] = entries

	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), HistoryFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// load reads the whole file, caller must hold mu
func (f *FileHistoryStore) load() (map[string][]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string][]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	all := make(map[string][]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid history file %s: %w", f.path, err)
	}
	return all, nil
}
