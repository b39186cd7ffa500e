package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
)

const prospectEntity = "prospects"

// ProspectEnrichments lists the single-prospect enrichments by CLI name.
var ProspectEnrichments = []Enrichment{
	{Name: "contacts", Category: "contacts_information", Description: "Emails and phone numbers"},
	{Name: "social", Category: "linkedin_posts", Description: "LinkedIn posts and activity"},
	{Name: "profile", Category: "profiles", Description: "Professional profile"},
}

// ProspectBulkEnrichments lists the prospect enrichments with a bulk endpoint.
var ProspectBulkEnrichments = []Enrichment{
	{Name: "contacts", Category: "contacts_information", Description: "Emails and phone numbers"},
	{Name: "profile", Category: "profiles", Description: "Professional profile, skills and experience"},
}

// prospectAutocompleteFields maps CLI field names to API field names.
var prospectAutocompleteFields = map[string]string{
	"name":       "prospect_name",
	"job-title":  "job_title",
	"department": "job_department",
}

// ProspectAutocompleteField returns the API field for a CLI field name.
// Unknown names fall back to "prospect_name".
func ProspectAutocompleteField(name string) string {
	if field, ok := prospectAutocompleteFields[name]; ok {
		return field
	}
	return "prospect_name"
}

// Prospects wraps the /prospects endpoints.
type Prospects struct {
	doer Doer
}

// NewProspects creates the prospects catalog.
func NewProspects(d Doer) *Prospects {
	return &Prospects{doer: d}
}

// Match resolves full_name/email/linkedin/company_name payloads to prospect
// IDs. Results are under "matched_prospects".
func (p *Prospects) Match(ctx context.Context, prospects []map[string]any) (client.Response, error) {
	return post(ctx, p.doer, "/prospects/match", map[string]any{"prospects_to_match": prospects}, true)
}

// Search returns one page of prospects matching filters.
func (p *Prospects) Search(ctx context.Context, filters map[string]any, page pagination.PageRequest) (client.Response, error) {
	return post(ctx, p.doer, "/prospects", searchBody(filters, page), true)
}

// Enrich runs the named enrichment for one prospect.
func (p *Prospects) Enrich(ctx context.Context, name, prospectID string) (client.Response, error) {
	e, err := lookupEnrichment(ProspectEnrichments, name)
	if err != nil {
		return nil, err
	}
	return post(ctx, p.doer, e.EnrichPath(prospectEntity), map[string]any{"prospect_id": prospectID}, true)
}

// BulkEnrich runs the named bulk enrichment for up to 50 prospects.
// enrichTypes narrows the contacts enrichment and is ignored otherwise.
func (p *Prospects) BulkEnrich(ctx context.Context, name string, prospectIDs []string, enrichTypes []string) (client.Response, error) {
	e, err := lookupEnrichment(ProspectBulkEnrichments, name)
	if err != nil {
		return nil, err
	}

	body := map[string]any{"prospect_ids": prospectIDs}
	if name == "contacts" && len(enrichTypes) > 0 {
		body["enrich_types"] = enrichTypes
	}
	return post(ctx, p.doer, e.BulkEnrichPath(prospectEntity), body, true)
}

// BulkEnrichAll enriches up to 50 prospects with contacts, social and
// profile data in one call.
func (p *Prospects) BulkEnrichAll(ctx context.Context, prospectIDs []string) (client.Response, error) {
	return post(ctx, p.doer, "/prospects/enrich/bulk", map[string]any{"prospect_ids": prospectIDs}, true)
}

// Autocomplete suggests values for a CLI field name (name, job-title,
// department).
func (p *Prospects) Autocomplete(ctx context.Context, query, field string) (client.Response, error) {
	return get(ctx, p.doer, "/prospects/autocomplete", url.Values{
		"query": {query},
		"field": {ProspectAutocompleteField(field)},
	}, true)
}

// Statistics aggregates prospects matching filters, optionally grouped.
func (p *Prospects) Statistics(ctx context.Context, filters map[string]any, groupBy []string) (client.Response, error) {
	if filters == nil {
		return nil, fmt.Errorf("statistics filters are required")
	}
	body := map[string]any{"filters": filters}
	if len(groupBy) > 0 {
		body["group_by"] = groupBy
	}
	return post(ctx, p.doer, "/prospects/statistics", body, true)
}

// Events returns the prospect event endpoints.
func (p *Prospects) Events() *Events {
	return &Events{doer: p.doer, entity: prospectEntity, idsField: "prospect_ids"}
}
