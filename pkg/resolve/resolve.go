// Package resolve turns human identifiers (company name, domain, person
// name, LinkedIn URL) into Explorium business and prospect IDs through
// the match endpoints.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/rs/zerolog/log"
)

// DefaultMinConfidence is the lowest match_confidence accepted by default.
const DefaultMinConfidence = 0.8

// ErrMissingParams is returned by Validate when a query carries neither
// an ID nor any match parameter.
var ErrMissingParams = errors.New("missing match parameters")

// Matcher submits match payloads. *api.Businesses and *api.Prospects
// implement it.
type Matcher interface {
	Match(ctx context.Context, payloads []map[string]any) (client.Response, error)
}

// MatchError reports that the match endpoint found nothing.
type MatchError struct {
	Entity string
	Params map[string]any

	// keys keeps Params in insertion order for the message.
	keys []string
}

func (e *MatchError) Error() string {
	parts := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e.Params[k]))
	}
	return fmt.Sprintf("No %s matches found for: %s", e.Entity, strings.Join(parts, ", "))
}

// LowConfidenceError reports that the best candidate scored below the
// threshold. Suggestions holds every candidate returned.
type LowConfidenceError struct {
	Confidence  float64
	Threshold   float64
	Suggestions []map[string]any
}

func (e *LowConfidenceError) Error() string {
	return fmt.Sprintf("Best match confidence (%.2f) is below threshold (%.2f). Found %d potential match(es).",
		e.Confidence, e.Threshold, len(e.Suggestions))
}

// BusinessQuery identifies one business.
type BusinessQuery struct {
	ID       string
	Name     string
	Domain   string
	LinkedIn string
}

// Validate requires an ID or at least one match parameter.
func (q BusinessQuery) Validate() error {
	if q.ID == "" && q.Name == "" && q.Domain == "" && q.LinkedIn == "" {
		return fmt.Errorf("%w: provide --id or match parameters (--name, --domain, --linkedin)", ErrMissingParams)
	}
	return nil
}

// Params returns the match payload.
func (q BusinessQuery) Params() map[string]any {
	params, _ := q.orderedParams()
	return params
}

func (q BusinessQuery) orderedParams() (map[string]any, []string) {
	var p orderedParams
	p.add("name", q.Name)
	p.add("domain", q.Domain)
	p.add("linkedin_url", q.LinkedIn)
	return p.values, p.keys
}

// ProspectQuery identifies one prospect.
type ProspectQuery struct {
	ID          string
	FirstName   string
	LastName    string
	FullName    string
	Email       string
	LinkedIn    string
	CompanyName string
}

// Validate requires an ID or at least one of name, email or LinkedIn.
func (q ProspectQuery) Validate() error {
	if q.ID == "" && q.name() == "" && q.Email == "" && q.LinkedIn == "" {
		return fmt.Errorf("%w: provide --id or match parameters (--first-name, --last-name, --linkedin)", ErrMissingParams)
	}
	return nil
}

// name returns FullName, or the first and last name joined.
func (q ProspectQuery) name() string {
	if q.FullName != "" {
		return q.FullName
	}
	return strings.TrimSpace(q.FirstName + " " + q.LastName)
}

// Params returns the match payload. The name is sent only with a company
// name or when no email or LinkedIn URL identifies the person.
func (q ProspectQuery) Params() map[string]any {
	params, _ := q.orderedParams()
	return params
}

func (q ProspectQuery) orderedParams() (map[string]any, []string) {
	var p orderedParams
	strongID := q.Email != "" || q.LinkedIn != ""
	if q.CompanyName != "" || !strongID {
		p.add("full_name", q.name())
	}
	p.add("email", q.Email)
	p.add("linkedin", q.LinkedIn)
	p.add("company_name", q.CompanyName)
	return p.values, p.keys
}

type orderedParams struct {
	values map[string]any
	keys   []string
}

func (p *orderedParams) add(key, value string) {
	if value == "" {
		return
	}
	if p.values == nil {
		p.values = map[string]any{}
	}
	p.values[key] = value
	p.keys = append(p.keys, key)
}

// BusinessID returns q.ID when set and otherwise the ID of the best match.
func BusinessID(ctx context.Context, m Matcher, q BusinessQuery, minConfidence float64) (string, error) {
	if q.ID != "" {
		return q.ID, nil
	}
	if err := q.Validate(); err != nil {
		return "", err
	}
	params, keys := q.orderedParams()
	return resolve(ctx, m, "business", "matched_businesses", "business_id", params, keys, minConfidence)
}

// ProspectID returns q.ID when set and otherwise the ID of the best match.
func ProspectID(ctx context.Context, m Matcher, q ProspectQuery, minConfidence float64) (string, error) {
	if q.ID != "" {
		return q.ID, nil
	}
	if err := q.Validate(); err != nil {
		return "", err
	}
	params, keys := q.orderedParams()
	return resolve(ctx, m, "prospect", "matched_prospects", "prospect_id", params, keys, minConfidence)
}

func resolve(ctx context.Context, m Matcher, entity, resultKey, idKey string, params map[string]any, keys []string, minConfidence float64) (string, error) {
	resp, err := m.Match(ctx, []map[string]any{params})
	if err != nil {
		return "", fmt.Errorf("match %s: %w", entity, err)
	}

	matches := resp.Records(resultKey)
	if len(matches) == 0 {
		return "", &MatchError{Entity: entity, Params: params, keys: keys}
	}

	best := matches[0]
	if confidence, ok := toFloat(best["match_confidence"]); ok && confidence < minConfidence {
		return "", &LowConfidenceError{
			Confidence:  confidence,
			Threshold:   minConfidence,
			Suggestions: matches,
		}
	}

	id, _ := best[idKey].(string)
	if id == "" {
		return "", &MatchError{Entity: entity, Params: params, keys: keys}
	}

	log.Debug().
		Str("component", "resolve").
		Str("entity", entity).
		Str("id", id).
		Msg("Resolved match")
	return id, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
