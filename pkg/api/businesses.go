package api

import (
	"context"
	"net/url"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
)

const businessEntity = "businesses"

// BusinessEnrichments lists the business enrichment categories by CLI name.
var BusinessEnrichments = []Enrichment{
	{Name: "enrich", Category: "firmographics", Description: "Firmographics"},
	{Name: "tech", Category: "technographics", Description: "Technology stack"},
	{Name: "financial", Category: "financial_indicators", Description: "Financial indicators"},
	{Name: "funding", Category: "funding_and_acquisition", Description: "Funding and acquisitions"},
	{Name: "workforce", Category: "workforce_trends", Description: "Workforce trends"},
	{Name: "traffic", Category: "website_traffic", Description: "Website traffic"},
	{Name: "social", Category: "linkedin_posts", Description: "LinkedIn posts"},
	{Name: "ratings", Category: "company_ratings_by_employees", Description: "Employee ratings"},
	{Name: "challenges", Category: "pc_business_challenges_10k", Description: "Business challenges from 10-K filings"},
	{Name: "competitive", Category: "pc_competitive_landscape_10k", Description: "Competitive landscape from 10-K filings"},
	{Name: "strategic", Category: "pc_strategy_10k", Description: "Strategic insights from 10-K filings"},
	{Name: "website-changes", Category: "website_changes", Description: "Website changes"},
	{Name: "webstack", Category: "webstack", Description: "Web stack"},
	{Name: "hierarchy", Category: "company_hierarchies", Description: "Company hierarchy"},
	{Name: "intent", Category: "bombora_intent", Description: "Bombora intent signals"},
}

// LookupBusinessEnrichment returns the business enrichment with the given CLI name.
func LookupBusinessEnrichment(name string) (Enrichment, error) {
	return lookupEnrichment(BusinessEnrichments, name)
}

// Businesses wraps the /businesses endpoints.
type Businesses struct {
	doer Doer
}

// NewBusinesses creates the businesses catalog.
func NewBusinesses(d Doer) *Businesses {
	return &Businesses{doer: d}
}

// Match resolves name/domain/linkedin_url payloads to business IDs.
// Results are under "matched_businesses".
func (b *Businesses) Match(ctx context.Context, businesses []map[string]any) (client.Response, error) {
	return post(ctx, b.doer, "/businesses/match", map[string]any{"businesses_to_match": businesses}, true)
}

// Search returns one page of businesses matching filters.
func (b *Businesses) Search(ctx context.Context, filters map[string]any, page pagination.PageRequest) (client.Response, error) {
	return post(ctx, b.doer, "/businesses", searchBody(filters, page), true)
}

// Enrich runs the named enrichment for one business.
func (b *Businesses) Enrich(ctx context.Context, name, businessID string) (client.Response, error) {
	e, err := LookupBusinessEnrichment(name)
	if err != nil {
		return nil, err
	}
	return post(ctx, b.doer, e.EnrichPath(businessEntity), map[string]any{"business_id": businessID}, true)
}

// BulkEnrich runs the named enrichment for up to 50 businesses.
func (b *Businesses) BulkEnrich(ctx context.Context, name string, businessIDs []string) (client.Response, error) {
	e, err := LookupBusinessEnrichment(name)
	if err != nil {
		return nil, err
	}
	return post(ctx, b.doer, e.BulkEnrichPath(businessEntity), map[string]any{"business_ids": businessIDs}, true)
}

// EnrichKeywords searches a business website for keywords.
func (b *Businesses) EnrichKeywords(ctx context.Context, businessID string, keywords []string) (client.Response, error) {
	return post(ctx, b.doer, "/businesses/company_website_keywords/enrich", map[string]any{
		"business_id": businessID,
		"parameters":  map[string]any{"keywords": keywords},
	}, true)
}

// Lookalike finds companies similar to businessID.
func (b *Businesses) Lookalike(ctx context.Context, businessID string) (client.Response, error) {
	return post(ctx, b.doer, "/businesses/lookalikes/enrich", map[string]any{"business_id": businessID}, true)
}

// Autocomplete suggests values for field, "company_name" when empty.
func (b *Businesses) Autocomplete(ctx context.Context, query, field string) (client.Response, error) {
	if field == "" {
		field = "company_name"
	}
	return get(ctx, b.doer, "/businesses/autocomplete", url.Values{
		"query": {query},
		"field": {field},
	}, true)
}

// Events returns the business event endpoints.
func (b *Businesses) Events() *Events {
	return &Events{doer: b.doer, entity: businessEntity, idsField: "business_ids"}
}
