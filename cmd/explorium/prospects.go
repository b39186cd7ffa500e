package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Sternrassler/explorium-cli/pkg/api"
	"github.com/Sternrassler/explorium-cli/pkg/batch"
	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/input"
	"github.com/Sternrassler/explorium-cli/pkg/logging"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
	"github.com/Sternrassler/explorium-cli/pkg/resolve"
)

// progressEvery is the row interval of match progress lines.
const progressEvery = 10

func (a *app) runProspects(ctx context.Context, args []string) error {
	return a.dispatch(ctx, "prospects", args, map[string]command{
		"match":        {summary: "Match prospects to IDs", run: a.prospectsMatch},
		"search":       {summary: "Search prospects, optionally per company in parallel", run: a.prospectsSearch},
		"enrich":       {summary: "Enrich one prospect (contacts, social, profile)", run: a.prospectsEnrich},
		"bulk-enrich":  {summary: "Enrich many prospects in batches of 50", run: a.prospectsBulkEnrich},
		"enrich-file":  {summary: "Match prospects from a file and enrich them", run: a.prospectsEnrichFile},
		"autocomplete": {summary: "Suggest names, job titles or departments", run: a.prospectsAutocomplete},
		"statistics":   {summary: "Aggregate prospect statistics", run: a.prospectsStatistics},
		"events":       {summary: "Prospect events: list, enroll, enrollments", run: a.prospectsEvents},
	})
}

// prospectFlags binds the flags identifying a single prospect.
type prospectFlags struct {
	id            string
	firstName     string
	lastName      string
	email         string
	linkedin      string
	companyName   string
	minConfidence float64
}

func (p *prospectFlags) register(fs *flag.FlagSet, withID bool) {
	if withID {
		fs.StringVar(&p.id, "id", "", "prospect ID (skips matching)")
		fs.Float64Var(&p.minConfidence, "min-confidence", resolve.DefaultMinConfidence, "minimum match confidence (0-1)")
	}
	fs.StringVar(&p.firstName, "first-name", "", "first name")
	fs.StringVar(&p.lastName, "last-name", "", "last name")
	fs.StringVar(&p.email, "email", "", "email address")
	fs.StringVar(&p.email, "e", "", "shorthand for --email")
	fs.StringVar(&p.linkedin, "linkedin", "", "LinkedIn profile URL")
	fs.StringVar(&p.linkedin, "l", "", "shorthand for --linkedin")
	fs.StringVar(&p.companyName, "company-name", "", "company name (required with a name only)")
}

func (p *prospectFlags) query() resolve.ProspectQuery {
	return resolve.ProspectQuery{
		ID:          p.id,
		FirstName:   p.firstName,
		LastName:    p.lastName,
		Email:       p.email,
		LinkedIn:    input.NormalizeLinkedInURL(p.linkedin),
		CompanyName: p.companyName,
	}
}

func (a *app) prospectsMatch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects match")
	var q prospectFlags
	q.register(fs, false)
	file := fs.String("file", "", "JSON or CSV file with prospects to match ('-' for stdin)")
	fs.StringVar(file, "f", "", "shorthand for --file")
	summary := fs.Bool("summary", false, "print match statistics to stderr")
	idsOnly := fs.Bool("ids-only", false, "print matched prospect IDs, one per line")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	var items []map[string]any
	switch {
	case *file != "":
		src, err := input.Read(*file, a.stdin)
		if err != nil {
			return err
		}
		if items, err = input.ParseItems(src, input.EntityProspect); err != nil {
			return err
		}
	case q.firstName != "" || q.lastName != "" || q.email != "" || q.linkedin != "":
		params := q.query().Params()
		if _, named := params["full_name"]; named && len(params) == 1 {
			return usagef("Cannot match by name alone. Also provide --company-name, --email, or --linkedin.")
		}
		items = []map[string]any{params}
	default:
		return usagef("provide --first-name/--last-name/--email/--linkedin or --file")
	}

	out := a.executor.Match(ctx, a.prospects.Match, items, batch.MatchOptions{
		ResultKey:     "matched_prospects",
		IDKey:         "prospect_id",
		EntityName:    "prospects",
		PreserveInput: true,
	})
	return a.emitMatch(out, "prospect_id", *summary, *idsOnly)
}

// optionalInt is an int flag that records whether it was given.
type optionalInt struct {
	value int
	set   bool
}

func (o *optionalInt) String() string {
	if !o.set {
		return ""
	}
	return strconv.Itoa(o.value)
}

func (o *optionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

// rangeFilter builds a range filter, nil when neither bound is set.
func rangeFilter(lo, hi optionalInt) map[string]any {
	if !lo.set && !hi.set {
		return nil
	}
	f := map[string]any{"type": "range"}
	if lo.set {
		f["gte"] = lo.value
	}
	if hi.set {
		f["lte"] = hi.value
	}
	return f
}

func includes(values []string) map[string]any {
	return map[string]any{"type": "includes", "values": values}
}

func (a *app) prospectsSearch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects search")
	var businessIDs, companyNames, levels, departments, countries listFlag
	fs.Var(&businessIDs, "business-id", "business IDs, comma separated")
	fs.Var(&businessIDs, "b", "shorthand for --business-id")
	file := fs.String("file", "", "file with a business_id column or one ID per line")
	fs.StringVar(file, "f", "", "shorthand for --file")
	fs.Var(&companyNames, "company-name", "company names, resolved to business IDs")
	fs.Var(&levels, "job-level", "job levels: cxo, vp, director, manager, senior, entry")
	fs.Var(&departments, "department", "job departments")
	jobTitle := fs.String("job-title", "", "job title keywords")
	fs.Var(&countries, "country", "country codes")
	hasEmail := fs.Bool("has-email", false, "only prospects with an email")
	hasPhone := fs.Bool("has-phone", false, "only prospects with a phone number")
	var expMin, expMax, tenureMin, tenureMax, maxPerCompany optionalInt
	fs.Var(&expMin, "experience-min", "minimum total experience in months")
	fs.Var(&expMax, "experience-max", "maximum total experience in months")
	fs.Var(&tenureMin, "role-tenure-min", "minimum months in the current role")
	fs.Var(&tenureMax, "role-tenure-max", "maximum months in the current role")
	fs.Var(&maxPerCompany, "max-per-company", "prospects per company, searching companies in parallel")
	concurrency := fs.Int("concurrency", a.cfg.Search.Concurrency, "parallel company searches")
	page := fs.Int("page", 1, "page number (ignored with --total)")
	pageSize := fs.Int("page-size", a.cfg.DefaultPageSize, "results per page")
	total := fs.Int("total", 0, "collect this many records across pages")
	minConfidence := fs.Float64("min-confidence", 0, "minimum confidence for --company-name matches")
	summary := fs.Bool("summary", false, "print aggregate statistics to stderr")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *pageSize < 1 {
		return usagef("--page-size must be positive")
	}

	ids := []string(businessIDs)
	switch {
	case len(ids) > 0:
	case *file != "":
		fileIDs, _, err := a.readIDs(nil, *file, "business_id")
		if err != nil {
			return err
		}
		ids = fileIDs
	case len(companyNames) > 0:
		ids = a.resolveCompanies(ctx, companyNames, *minConfidence)
		if len(ids) == 0 {
			return usagef("No businesses found matching the given name(s). Try 'explorium businesses autocomplete --query \"...\"' to find similar names.")
		}
	}

	filters := map[string]any{}
	if len(ids) > 0 {
		filters["business_id"] = includes(ids)
	}
	if len(levels) > 0 {
		filters["job_level"] = includes(levels)
	}
	if len(departments) > 0 {
		filters["job_department"] = includes(departments)
	}
	if *jobTitle != "" {
		filters["job_title"] = map[string]any{
			"type":                       "any_match_phrase",
			"values":                     []string{*jobTitle},
			"include_related_job_titles": true,
		}
	}
	if len(countries) > 0 {
		filters["country_code"] = includes(countries)
	}
	if *hasEmail {
		filters["has_email"] = map[string]any{"type": "exists", "value": true}
	}
	if *hasPhone {
		filters["has_phone_number"] = map[string]any{"type": "exists", "value": true}
	}
	if f := rangeFilter(expMin, expMax); f != nil {
		filters["total_experience_months"] = f
	}
	if f := rangeFilter(tenureMin, tenureMax); f != nil {
		filters["current_role_months"] = f
	}

	if !maxPerCompany.set {
		if *summary {
			return a.searchWithSummary(ctx, filters, *page, *pageSize, *total)
		}
		return a.search(ctx, a.prospects.Search, filters, *page, *pageSize, *total)
	}

	if len(ids) == 0 {
		return usagef("--max-per-company requires --business-id, --file or --company-name")
	}
	if maxPerCompany.value <= 0 {
		return usagef("--max-per-company must be positive")
	}
	if *concurrency < 1 {
		return usagef("--concurrency must be positive")
	}

	shared := pagination.Filters(filters).Clone()
	delete(shared, "business_id")

	fanOut := pagination.NewFanOut(pagination.FanOutConfig{
		Concurrency:     *concurrency,
		PageSize:        *pageSize,
		Total:           maxPerCompany.value,
		EntityFilterKey: "business_id",
		CorrelationKey:  "prospect_id",
	}, logging.NewLogger("fanout"))

	res := fanOut.Search(ctx, func(ctx context.Context, f pagination.Filters, p pagination.PageRequest) (client.Response, error) {
		return a.prospects.Search(ctx, f, p)
	}, ids, shared)
	res.Meta.SortPerCompany()

	if err := a.emit(res); err != nil {
		return err
	}
	if *summary {
		printSearchSummary(a.stderr, res.Data)
	}
	if res.Meta.CompaniesSearched > 0 && res.Meta.Errors == res.Meta.CompaniesSearched {
		return fmt.Errorf("all %d company searches failed", res.Meta.Errors)
	}
	return nil
}

// searchWithSummary is search followed by the aggregate summary.
func (a *app) searchWithSummary(ctx context.Context, filters map[string]any, page, pageSize, total int) error {
	var records []map[string]any
	fn := func(ctx context.Context, f map[string]any, p pagination.PageRequest) (client.Response, error) {
		resp, err := a.prospects.Search(ctx, f, p)
		if err == nil {
			records = append(records, resp.Records("data")...)
		}
		return resp, err
	}
	err := a.search(ctx, fn, filters, page, pageSize, total)
	if total > 0 && len(records) > total {
		records = records[:total]
	}
	if err == nil {
		printSearchSummary(a.stderr, records)
	}
	return err
}

// resolveCompanies matches company names to business IDs, reporting each
// name on stderr. Unresolved names are skipped.
func (a *app) resolveCompanies(ctx context.Context, names []string, minConfidence float64) []string {
	fmt.Fprintf(a.stderr, "Resolving %d company name(s) to business IDs...\n", len(names))
	var ids []string
	for _, name := range names {
		id, err := resolve.BusinessID(ctx, a.businesses, resolve.BusinessQuery{Name: name}, minConfidence)
		if err != nil {
			fmt.Fprintf(a.stderr, "  ✗ No match for '%s': %v. Try: explorium businesses autocomplete --query \"%s\"\n", name, err, name)
			continue
		}
		fmt.Fprintf(a.stderr, "  ✓ '%s' → %s\n", name, id)
		ids = append(ids, id)
	}
	return ids
}

// tally counts values in first-seen order.
type tally struct {
	keys   []string
	counts map[string]int
}

func (t *tally) add(key string) {
	if t.counts == nil {
		t.counts = map[string]int{}
	}
	if _, ok := t.counts[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.counts[key]++
}

// top renders the limit most frequent values as "value (n)", most
// frequent first. limit <= 0 renders all.
func (t *tally) top(limit int) string {
	keys := append([]string(nil), t.keys...)
	sort.SliceStable(keys, func(i, j int) bool { return t.counts[keys[i]] > t.counts[keys[j]] })

	rest := 0
	if limit > 0 && len(keys) > limit {
		rest = len(keys) - limit
		keys = keys[:limit]
	}
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s (%d)", k, t.counts[k]))
	}
	if rest > 0 {
		parts = append(parts, fmt.Sprintf("...+%d more", rest))
	}
	return strings.Join(parts, ", ")
}

// firstString returns the first non-empty string among keys.
func firstString(record map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := record[k]; ok && v != nil && v != "" && v != false {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	default:
		return true
	}
}

func printSearchSummary(w io.Writer, records []map[string]any) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Total prospects found: %d\n", len(records))
	if len(records) == 0 {
		return
	}

	var countries, levels tally
	companies := map[string]struct{}{}
	withEmail, withPhone := 0, 0
	for _, r := range records {
		country := firstString(r, "country_name", "country_code", "country")
		if country == "" {
			country = "Unknown"
		}
		countries.add(country)

		level := firstString(r, "job_level_main", "job_level")
		if level == "" {
			level = "Unknown"
		}
		levels.add(level)

		if id := firstString(r, "business_id"); id != "" {
			companies[id] = struct{}{}
		}
		if truthy(r["has_email"]) || truthy(r["email"]) {
			withEmail++
		}
		if truthy(r["has_phone_number"]) || truthy(r["phone"]) {
			withPhone++
		}
	}

	total := float64(len(records))
	fmt.Fprintf(w, "  Countries: %s\n", countries.top(10))
	fmt.Fprintf(w, "  Job levels: %s\n", levels.top(0))
	if len(companies) > 0 {
		fmt.Fprintf(w, "  Companies represented: %d\n", len(companies))
	}
	fmt.Fprintf(w, "  With email: %d (%.0f%%)\n", withEmail, math.Round(float64(withEmail)/total*100))
	fmt.Fprintf(w, "  With phone: %d (%.0f%%)\n", withPhone, math.Round(float64(withPhone)/total*100))
}

// prospectEnrichment validates a single-prospect enrichment name.
func prospectEnrichment(name string) error {
	for _, e := range api.ProspectEnrichments {
		if e.Name == name {
			return nil
		}
	}
	return usagef("Unknown enrichment type '%s'. Valid: contacts, social, profile", name)
}

func (a *app) prospectsEnrich(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects enrich")
	var q prospectFlags
	q.register(fs, true)
	typ := fs.String("type", "contacts", "enrichment type: contacts, social, profile")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := prospectEnrichment(*typ); err != nil {
		return err
	}

	id, err := resolve.ProspectID(ctx, a.prospects, q.query(), q.minConfidence)
	if err != nil {
		return err
	}
	resp, err := a.prospects.Enrich(ctx, *typ, id)
	if err != nil {
		return err
	}
	return a.emit(resp)
}

// parseEnrichTypes validates --types. "all" expands to contacts and profile.
func parseEnrichTypes(types []string) ([]string, error) {
	if len(types) == 0 {
		return []string{"contacts"}, nil
	}

	var kinds []string
	seen := map[string]bool{}
	for _, t := range types {
		t = strings.ToLower(t)
		if t == "all" {
			return []string{"contacts", "profile"}, nil
		}
		if t != "contacts" && t != "profile" {
			return nil, usagef("Unknown enrichment type '%s'. Valid: contacts, profile, all", t)
		}
		if !seen[t] {
			seen[t] = true
			kinds = append(kinds, t)
		}
	}
	return kinds, nil
}

// enrichProspects runs one batched enrichment per kind and merges the
// results by prospect ID.
func (a *app) enrichProspects(ctx context.Context, ids, kinds, contactTypes []string) batch.Outcome[batch.EnrichResult] {
	run := func(kind string) batch.Outcome[batch.EnrichResult] {
		return a.executor.Enrich(ctx, func(ctx context.Context, chunk []string) (client.Response, error) {
			return a.prospects.BulkEnrich(ctx, kind, chunk, contactTypes)
		}, ids, batch.EnrichOptions{IDKey: "prospect_id", EntityName: "prospects"})
	}
	if len(kinds) == 1 {
		return run(kinds[0])
	}

	partials := make([][]map[string]any, 0, len(kinds))
	for _, kind := range kinds {
		fmt.Fprintf(a.stderr, "Enriching %s...\n", kind)
		out := run(kind)
		partials = append(partials, out.Data.Data)
		if out.Err != nil {
			return batch.Outcome[batch.EnrichResult]{
				Data: batch.EnrichResult{Status: "failed", Data: batch.MergeEnrichmentResults(partials, "prospect_id")},
				Err:  out.Err,
			}
		}
	}
	return batch.Outcome[batch.EnrichResult]{
		Data: batch.EnrichResult{Status: "success", Data: batch.MergeEnrichmentResults(partials, "prospect_id")},
	}
}

// matchFailure is a row that could not be resolved to a prospect ID.
type matchFailure struct {
	row    int
	params map[string]any
	err    error
}

// resolveProspectRows turns match rows into prospect IDs. Rows carrying a
// prospect_id are used as is. rows maps every resolved ID to its input row.
func (a *app) resolveProspectRows(ctx context.Context, params []map[string]any, minConfidence float64) ([]string, map[string]map[string]any) {
	var ids []string
	rows := map[string]map[string]any{}
	var pending []int

	for i, p := range params {
		if id, _ := p["prospect_id"].(string); strings.TrimSpace(id) != "" {
			id = strings.TrimSpace(id)
			ids = append(ids, id)
			rows[id] = p
			continue
		}
		pending = append(pending, i)
	}
	if len(ids) > 0 {
		fmt.Fprintf(a.stderr, "Using existing prospect_id for %d rows\n", len(ids))
	}
	if len(pending) == 0 {
		return ids, rows
	}

	fmt.Fprintf(a.stderr, "Matching %d prospects...\n", len(pending))
	var failures []matchFailure
	for seq, i := range pending {
		p := params[i]
		str := func(k string) string {
			v, _ := p[k].(string)
			return strings.TrimSpace(v)
		}
		q := resolve.ProspectQuery{
			FullName:    str("full_name"),
			FirstName:   str("first_name"),
			LastName:    str("last_name"),
			Email:       str("email"),
			LinkedIn:    input.NormalizeLinkedInURL(str("linkedin")),
			CompanyName: str("company_name"),
		}

		id, err := resolve.ProspectID(ctx, a.prospects, q, minConfidence)
		if err != nil {
			failures = append(failures, matchFailure{row: i, params: p, err: err})
		} else {
			ids = append(ids, id)
			rows[id] = p
		}

		if done := seq + 1; done%progressEvery == 0 || done == len(pending) {
			fmt.Fprintf(a.stderr, "  %d/%d processed\n", done, len(pending))
		}
	}

	if len(failures) > 0 {
		fmt.Fprintf(a.stderr, "Warning: %d match failures:\n", len(failures))
		for i, f := range failures {
			if i == 5 {
				fmt.Fprintf(a.stderr, "  ... and %d more\n", len(failures)-5)
				break
			}
			fmt.Fprintf(a.stderr, "  %d: %v - %v\n", f.row, f.params, f.err)
		}
	}
	fmt.Fprintf(a.stderr, "Matched: %d/%d, Failed: %d\n", len(ids), len(params), len(failures))
	return ids, rows
}

func (a *app) prospectsBulkEnrich(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects bulk-enrich")
	var ids, types, contactTypes listFlag
	fs.Var(&ids, "ids", "prospect IDs, comma separated")
	file := fs.String("file", "", "CSV file with a prospect_id column, JSON, or one ID per line")
	fs.StringVar(file, "f", "", "shorthand for --file")
	matchFile := fs.String("match-file", "", "JSON or CSV file with match parameters to resolve IDs")
	fs.Var(&types, "types", "enrichment types: contacts, profile, all")
	fs.Var(&contactTypes, "contact-types", "contact fields to request, e.g. email,phone")
	minConfidence := fs.Float64("min-confidence", resolve.DefaultMinConfidence, "minimum match confidence (0-1)")
	summary := fs.Bool("summary", false, "print enrichment statistics to stderr")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	kinds, err := parseEnrichTypes(types)
	if err != nil {
		return err
	}

	var (
		prospectIDs []string
		rows        map[string]map[string]any
	)
	switch {
	case *file != "" || len(ids) > 0:
		if prospectIDs, rows, err = a.readIDs(ids, *file, "prospect_id"); err != nil {
			return err
		}
	case *matchFile != "":
		src, err := input.Read(*matchFile, a.stdin)
		if err != nil {
			return err
		}
		params, err := input.ParseItems(src, input.EntityProspect)
		if err != nil {
			return err
		}
		prospectIDs, _ = a.resolveProspectRows(ctx, params, *minConfidence)
		if len(prospectIDs) == 0 {
			return usagef("No prospects could be matched")
		}
	default:
		return usagef("Provide --ids, --file, or --match-file")
	}
	if len(prospectIDs) == 0 {
		return usagef("no prospect IDs found")
	}

	out := a.enrichProspects(ctx, prospectIDs, kinds, contactTypes)
	mergeInputColumns(out.Data.Data, rows, "prospect_id")
	if err := a.emitEnrich(out); err != nil {
		return err
	}
	if *summary && *matchFile == "" {
		fmt.Fprintf(a.stderr, "Enriched: %d prospects\n", len(prospectIDs))
	}
	return nil
}

func (a *app) prospectsEnrichFile(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects enrich-file")
	file := fs.String("file", "", "CSV or JSON file with prospects to match and enrich (required)")
	fs.StringVar(file, "f", "", "shorthand for --file")
	var types, contactTypes listFlag
	fs.Var(&types, "types", "enrichment types: contacts, profile, all")
	fs.Var(&contactTypes, "contact-types", "contact fields to request, e.g. email,phone")
	minConfidence := fs.Float64("min-confidence", resolve.DefaultMinConfidence, "minimum match confidence (0-1)")
	summary := fs.Bool("summary", false, "print enrichment statistics to stderr")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return usagef("--file is required")
	}
	kinds, err := parseEnrichTypes(types)
	if err != nil {
		return err
	}

	src, err := input.Read(*file, a.stdin)
	if err != nil {
		return err
	}
	params, err := input.ParseItems(src, input.EntityProspect)
	if err != nil {
		return err
	}

	prospectIDs, rows := a.resolveProspectRows(ctx, params, *minConfidence)
	if len(prospectIDs) == 0 {
		return usagef("No prospects could be matched from file")
	}

	out := a.enrichProspects(ctx, prospectIDs, kinds, contactTypes)
	mergeInputColumns(out.Data.Data, rows, "prospect_id")
	if err := a.emitEnrich(out); err != nil {
		return err
	}
	if *summary {
		fmt.Fprintf(a.stderr, "Enriched: %d/%d prospects\n", len(out.Data.Data), len(params))
	}
	return nil
}

func (a *app) prospectsAutocomplete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects autocomplete")
	query := fs.String("query", "", "search query (required)")
	fs.StringVar(query, "q", "", "shorthand for --query")
	field := fs.String("field", "name", "field: name, job-title, department")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *query == "" {
		return usagef("--query is required")
	}

	resp, err := a.prospects.Autocomplete(ctx, *query, *field)
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) prospectsStatistics(ctx context.Context, args []string) error {
	fs := a.newFlagSet("prospects statistics")
	var businessIDs, groupBy listFlag
	fs.Var(&businessIDs, "business-id", "business IDs, comma separated (required)")
	fs.Var(&businessIDs, "b", "shorthand for --business-id")
	fs.Var(&groupBy, "group-by", "fields to group by")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if len(businessIDs) == 0 {
		return usagef("--business-id is required")
	}

	resp, err := a.prospects.Statistics(ctx, map[string]any{"business_ids": []string(businessIDs)}, groupBy)
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) prospectsEvents(ctx context.Context, args []string) error {
	return a.runEvents(ctx, "prospects", args, a.prospects.Events())
}
