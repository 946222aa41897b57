package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/giygas/rxpad/catalogparser/entities"
	"github.com/giygas/rxpad/suggest"
	"github.com/gorilla/schema"
)

// Compile-time check to ensure SuggestionClient is a suggestion source
var _ suggest.Source = (*SuggestionClient)(nil)

var queryEncoder = schema.NewEncoder()

// SuggestionClient queries one catalog of a remote rxpad server
type SuggestionClient struct {
	client  *Client
	catalog string
	params  entities.SuggestionQuery // filters sent with every query
}

// NewSuggestionClient creates a remote source for catalog. The Query field of
// params is ignored, the other fields are sent with every request.
func NewSuggestionClient(client *Client, catalog string, params entities.SuggestionQuery) *SuggestionClient {
	return &SuggestionClient{client: client, catalog: catalog, params: params}
}

// Search implements suggest.Source
func (s *SuggestionClient) Search(ctx context.Context, query string) ([]entities.Suggestion, error) {
	params := s.params
	params.Query = query

	values := url.Values{}
	if err := queryEncoder.Encode(params, values); err != nil {
		return nil, &APIError{Operation: "suggest", Message: "failed to encode query", Kind: KindGeneric, Err: err}
	}

	path := "/v1/catalogs/" + url.PathEscape(s.catalog) + "/suggestions?" + values.Encode()
	var out entities.SuggestionResponse
	if err := s.client.do(ctx, "suggest", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}
