// Package handlers provides the HTTP handlers of the rxpad API: catalog
// listing, suggestions, item lookup, recent-search history and health.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/interfaces"
	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/suggest"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
)

// DefaultSuggestionLimit applies when no limit is configured
const DefaultSuggestionLimit = 20

// maxHistoryBody bounds the body of a history update
const maxHistoryBody = 4 * 1024

// ErrCatalogNotFound is returned for unknown catalog names
var ErrCatalogNotFound = errors.New("catalog not found")

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore       interfaces.DataStore
	validator       interfaces.DataValidator
	healthChecker   interfaces.HealthChecker
	history         *suggest.History
	decoder         *schema.Decoder
	suggestionLimit int
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(
	dataStore interfaces.DataStore,
	validator interfaces.DataValidator,
	healthChecker interfaces.HealthChecker,
	history *suggest.History,
	suggestionLimit int,
) *HTTPHandlerImpl {
	if suggestionLimit <= 0 {
		suggestionLimit = DefaultSuggestionLimit
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &HTTPHandlerImpl{
		dataStore:       dataStore,
		validator:       validator,
		healthChecker:   healthChecker,
		history:         history,
		decoder:         decoder,
		suggestionLimit: suggestionLimit,
	}
}

// ServeHTTP implements the http.Handler interface
func (h *HTTPHandlerImpl) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Routing is handled by chi in the server package
	h.RespondWithError(w, http.StatusNotImplemented, "Not implemented")
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
	System map[string]any `json:"system"`
}

// CatalogInfo describes one catalog in the listing
type CatalogInfo struct {
	Name  string `json:"name"`
	Items int    `json:"items"`
}

// HistoryResponse is the body of the history endpoints
type HistoryResponse struct {
	Key     string   `json:"key"`
	Entries []string `json:"entries"`
}

// historyRequest is the body of a history update
type historyRequest struct {
	Text string `json:"text"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Warn("Failed to write response", "error", err)
	}
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// ListCatalogs returns the loaded catalogs with their sizes
func (h *HTTPHandlerImpl) ListCatalogs(w http.ResponseWriter, r *http.Request) {
	names := h.dataStore.GetCatalogNames()
	catalogs := make([]CatalogInfo, 0, len(names))
	for _, name := range names {
		info := CatalogInfo{Name: name}
		if ix, ok := h.dataStore.GetIndex(name); ok {
			info.Items = ix.Len()
		}
		catalogs = append(catalogs, info)
	}

	h.RespondWithJSON(w, http.StatusOK, map[string]any{
		"catalogs":    catalogs,
		"last_update": h.dataStore.GetLastUpdated().Format(time.RFC3339),
	})
}

// Suggest returns the ranked suggestions of a catalog for ?q=
func (h *HTTPHandlerImpl) Suggest(w http.ResponseWriter, r *http.Request) {
	catalog := chi.URLParam(r, "catalog")

	var query entities.SuggestionQuery
	if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, queryError(err))
		return
	}

	if err := h.validator.ValidateQuery(query.Query); err != nil {
		logging.Warn("Unusual user input", "q", query.Query)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters, err := query.Filters()
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.Limit == 0 || filters.Limit > h.suggestionLimit {
		filters.Limit = h.suggestionLimit
	}

	index, err := h.index(catalog)
	if err != nil {
		h.respondCatalogError(w, catalog, err)
		return
	}

	var results []entities.Suggestion
	if query.Custom {
		results = index.SearchOrCustom(query.Query, filters)
	} else {
		results = index.Search(query.Query, filters)
	}
	if results == nil {
		results = []entities.Suggestion{}
	}

	h.RespondWithJSON(w, http.StatusOK, entities.SuggestionResponse{
		Catalog:     catalog,
		Query:       query.Query,
		Suggestions: results,
	})
}

// GetItem returns one catalog item by id
func (h *HTTPHandlerImpl) GetItem(w http.ResponseWriter, r *http.Request) {
	catalog := chi.URLParam(r, "catalog")
	id := chi.URLParam(r, "id")

	if err := h.validator.ValidateKey(id); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid item id")
		return
	}

	index, err := h.index(catalog)
	if err != nil {
		h.respondCatalogError(w, catalog, err)
		return
	}

	item, ok := index.Catalog().Get(id)
	if !ok {
		h.RespondWithError(w, http.StatusNotFound, "Item not found")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, item)
}

// GetHistory returns the recent searches of a context
func (h *HTTPHandlerImpl) GetHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.validator.ValidateKey(key); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid history key")
		return
	}

	h.RespondWithJSON(w, http.StatusOK, HistoryResponse{Key: key, Entries: h.history.List(key)})
}

// AddHistory records a search in a context. A storage failure is logged and the
// updated list is still returned: history is best effort.
func (h *HTTPHandlerImpl) AddHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.validator.ValidateKey(key); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid history key")
		return
	}

	var req historyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxHistoryBody)).Decode(&req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.RespondWithError(w, http.StatusBadRequest, "Missing text")
		return
	}
	if err := h.validator.ValidateQuery(req.Text); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.history.Add(key, req.Text)
	if err != nil {
		logging.Warn("Failed to persist search history", "key", key, "error", err)
	}

	h.RespondWithJSON(w, http.StatusOK, HistoryResponse{Key: key, Entries: entries})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status, data, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status: status,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	h.RespondWithJSON(w, httpStatus, response)
}

// index resolves a catalog name
func (h *HTTPHandlerImpl) index(catalog string) (indexView, error) {
	if err := h.validator.ValidateKey(catalog); err != nil {
		return nil, fmt.Errorf("invalid catalog name: %w", err)
	}
	ix, ok := h.dataStore.GetIndex(catalog)
	if !ok || ix == nil {
		return nil, ErrCatalogNotFound
	}
	return ix, nil
}

func (h *HTTPHandlerImpl) respondCatalogError(w http.ResponseWriter, catalog string, err error) {
	if errors.Is(err, ErrCatalogNotFound) {
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Catalog %q not found", catalog))
		return
	}
	h.RespondWithError(w, http.StatusBadRequest, "Invalid catalog name")
}

// indexView is the part of a search index the handlers use
type indexView interface {
	Search(query string, f entities.Filters) []entities.Suggestion
	SearchOrCustom(query string, f entities.Filters) []entities.Suggestion
	Catalog() *entities.Catalog
}

// queryError turns a schema decoding error into a client message
func queryError(err error) string {
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for field, fieldErr := range multi {
			var empty schema.EmptyFieldError
			if errors.As(fieldErr, &empty) {
				return fmt.Sprintf("Missing parameter %q", empty.Key)
			}
			var conv schema.ConversionError
			if errors.As(fieldErr, &conv) {
				return fmt.Sprintf("Invalid value for parameter %q", field)
			}
		}
	}
	return "Invalid query parameters"
}
