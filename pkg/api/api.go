// Package api wraps the Explorium REST endpoints. Each method issues one
// call through a Doer; batching and pagination live in pkg/batch and
// pkg/pagination.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
)

// SearchMode is sent with every search request.
const SearchMode = "full"

// ErrUnknownEnrichment is returned for an enrichment name that has no endpoint.
var ErrUnknownEnrichment = errors.New("unknown enrichment")

// Doer executes one API request. *client.Client implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (client.Response, error)
}

func post(ctx context.Context, d Doer, path string, body any, cacheable bool) (client.Response, error) {
	return d.Do(ctx, client.Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		Cacheable: cacheable,
	})
}

func get(ctx context.Context, d Doer, path string, query url.Values, cacheable bool) (client.Response, error) {
	return d.Do(ctx, client.Request{
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
		Cacheable: cacheable,
	})
}

// searchBody builds the body shared by business and prospect search.
func searchBody(filters map[string]any, page pagination.PageRequest) map[string]any {
	if filters == nil {
		filters = map[string]any{}
	}
	return map[string]any{
		"mode":      SearchMode,
		"size":      page.Size,
		"page_size": page.PageSize,
		"page":      page.Page,
		"filters":   filters,
	}
}

// Enrichment maps a CLI enrichment name to its endpoint category.
type Enrichment struct {
	// Name is the user-facing name, e.g. "tech".
	Name string

	// Category is the path segment, e.g. "technographics".
	Category string

	Description string
}

// EnrichPath returns the single-entity endpoint.
func (e Enrichment) EnrichPath(entity string) string {
	return fmt.Sprintf("/%s/%s/enrich", entity, e.Category)
}

// BulkEnrichPath returns the bulk endpoint.
func (e Enrichment) BulkEnrichPath(entity string) string {
	return fmt.Sprintf("/%s/%s/bulk_enrich", entity, e.Category)
}

func lookupEnrichment(table []Enrichment, name string) (Enrichment, error) {
	for _, e := range table {
		if e.Name == name {
			return e, nil
		}
	}
	names := make([]string, 0, len(table))
	for _, e := range table {
		names = append(names, e.Name)
	}
	return Enrichment{}, fmt.Errorf("%w %q (valid: %v)", ErrUnknownEnrichment, name, names)
}
