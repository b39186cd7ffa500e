package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/Sternrassler/explorium-cli/pkg/api"
	"github.com/Sternrassler/explorium-cli/pkg/batch"
	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/Sternrassler/explorium-cli/pkg/input"
	"github.com/Sternrassler/explorium-cli/pkg/output"
	"github.com/Sternrassler/explorium-cli/pkg/pagination"
	"github.com/Sternrassler/explorium-cli/pkg/resolve"
)

// defaultEventsDays is the look-back window of the events search filter.
const defaultEventsDays = 45

func (a *app) runBusinesses(ctx context.Context, args []string) error {
	return a.dispatch(ctx, "businesses", args, map[string]command{
		"match":        {summary: "Match businesses to IDs", run: a.businessesMatch},
		"search":       {summary: "Search businesses by filters", run: a.businessesSearch},
		"enrich":       {summary: "Enrich one business", run: a.businessesEnrich},
		"bulk-enrich":  {summary: "Enrich many businesses in batches of 50", run: a.businessesBulkEnrich},
		"lookalike":    {summary: "Find similar companies", run: a.businessesLookalike},
		"autocomplete": {summary: "Suggest company names or field values", run: a.businessesAutocomplete},
		"events":       {summary: "Business events: list, enroll, enrollments", run: a.businessesEvents},
	})
}

// businessFlags binds the flags identifying a single business.
type businessFlags struct {
	id            string
	name          string
	domain        string
	linkedin      string
	minConfidence float64
}

func (b *businessFlags) register(fs *flag.FlagSet, withID bool) {
	if withID {
		fs.StringVar(&b.id, "id", "", "business ID (skips matching)")
		fs.Float64Var(&b.minConfidence, "min-confidence", resolve.DefaultMinConfidence, "minimum match confidence (0-1)")
	}
	fs.StringVar(&b.name, "name", "", "company name")
	fs.StringVar(&b.domain, "domain", "", "company domain")
	fs.StringVar(&b.linkedin, "linkedin", "", "company LinkedIn URL")
}

func (b *businessFlags) query() resolve.BusinessQuery {
	return resolve.BusinessQuery{
		ID:       b.id,
		Name:     b.name,
		Domain:   b.domain,
		LinkedIn: input.NormalizeLinkedInURL(b.linkedin),
	}
}

func (a *app) businessesMatch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses match")
	var q businessFlags
	q.register(fs, false)
	file := fs.String("file", "", "JSON or CSV file with businesses to match ('-' for stdin)")
	fs.StringVar(file, "f", "", "shorthand for --file")
	summary := fs.Bool("summary", false, "print match statistics to stderr")
	idsOnly := fs.Bool("ids-only", false, "print matched business IDs, one per line")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	var items []map[string]any
	if *file != "" {
		src, err := input.Read(*file, a.stdin)
		if err != nil {
			return err
		}
		if items, err = input.ParseItems(src, input.EntityBusiness); err != nil {
			return err
		}
	} else {
		params := q.query().Params()
		if len(params) == 0 {
			return usagef("provide --name, --domain, --linkedin or --file")
		}
		items = []map[string]any{params}
	}

	out := a.executor.Match(ctx, a.businesses.Match, items, batch.MatchOptions{
		ResultKey:     "matched_businesses",
		IDKey:         "business_id",
		EntityName:    "businesses",
		PreserveInput: *file != "",
	})
	return a.emitMatch(out, "business_id", *summary, *idsOnly)
}

// emitMatch prints a match outcome. Partial results of an aborted run are
// printed before the error is returned.
func (a *app) emitMatch(out batch.Outcome[batch.MatchResult], idKey string, summary, idsOnly bool) error {
	res := out.Data
	if summary {
		m := res.Meta
		line := fmt.Sprintf("Matched: %d/%d", m.Matched, m.TotalInput)
		if m.NotFound > 0 {
			line += fmt.Sprintf(" | Not found: %d", m.NotFound)
		}
		if m.Errors > 0 {
			line += fmt.Sprintf(" | Errors: %d", m.Errors)
		}
		fmt.Fprintln(a.stderr, line)
	}

	switch {
	case idsOnly:
		for _, record := range res.Records {
			if id, _ := record[idKey].(string); id != "" {
				fmt.Fprintln(a.stdout, id)
			}
		}
	case out.Failed() && len(res.Records) == 0:
		// nothing secured
	default:
		format, err := a.format()
		if err != nil {
			return err
		}
		var data any = res.Body()
		if format != output.FormatJSON {
			data = res.Records
		}
		if err := a.emit(data); err != nil {
			return err
		}
	}
	return out.Err
}

func (a *app) businessesSearch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses search")
	var countries, sizes, revenues, industries, techs, events listFlag
	fs.Var(&countries, "country", "country codes, comma separated")
	fs.Var(&sizes, "size", "company size ranges, e.g. 11-50,51-200")
	fs.Var(&revenues, "revenue", "revenue ranges, e.g. 1M-5M")
	fs.Var(&industries, "industry", "LinkedIn industry categories")
	fs.Var(&techs, "tech", "technologies in the company stack")
	fs.Var(&events, "events", "event types, e.g. new_funding_round")
	eventsDays := fs.Int("events-days", defaultEventsDays, "event look-back window in days")
	page := fs.Int("page", 1, "page number (ignored with --total)")
	pageSize := fs.Int("page-size", a.cfg.DefaultPageSize, "results per page")
	total := fs.Int("total", 0, "collect this many records across pages")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *pageSize < 1 {
		return usagef("--page-size must be positive")
	}

	filters := map[string]any{}
	for key, values := range map[string]listFlag{
		"country_code":            countries,
		"company_size":            sizes,
		"company_revenue":         revenues,
		"linkedin_category":       industries,
		"company_tech_stack_tech": techs,
	} {
		if len(values) > 0 {
			filters[key] = valuesFilter(values)
		}
	}
	if len(events) > 0 {
		filters["events"] = map[string]any{"values": []string(events), "last_occurrence": *eventsDays}
	}

	return a.search(ctx, a.businesses.Search, filters, *page, *pageSize, *total)
}

// search runs a single page, or a paginated fetch when total is set.
func (a *app) search(ctx context.Context, fn func(context.Context, map[string]any, pagination.PageRequest) (client.Response, error), filters map[string]any, page, pageSize, total int) error {
	if total < 0 {
		return usagef("--total must be positive")
	}
	if total > 0 {
		res, err := a.fetcher.Fetch(ctx, func(ctx context.Context, p pagination.PageRequest) (client.Response, error) {
			return fn(ctx, filters, p)
		}, total, pageSize)
		if err != nil {
			if res != nil {
				fmt.Fprintf(a.stderr, "Collected %d/%d records before the failure\n", len(res.Data), total)
			}
			return err
		}
		return a.emit(res)
	}

	resp, err := fn(ctx, filters, pagination.PageRequest{Size: pageSize, PageSize: pageSize, Page: page})
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) businessesEnrich(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses enrich")
	var q businessFlags
	q.register(fs, true)
	typ := fs.String("type", "enrich", "enrichment type")
	var keywords listFlag
	fs.Var(&keywords, "keywords", "search the company website for keywords instead")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if len(keywords) == 0 {
		if _, err := api.LookupBusinessEnrichment(*typ); err != nil {
			return &usageError{msg: err.Error()}
		}
	}

	id, err := resolve.BusinessID(ctx, a.businesses, q.query(), q.minConfidence)
	if err != nil {
		return err
	}

	var resp client.Response
	if len(keywords) > 0 {
		resp, err = a.businesses.EnrichKeywords(ctx, id, keywords)
	} else {
		resp, err = a.businesses.Enrich(ctx, *typ, id)
	}
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) businessesBulkEnrich(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses bulk-enrich")
	var ids listFlag
	fs.Var(&ids, "ids", "business IDs, comma separated")
	file := fs.String("file", "", "ID file: CSV with a business_id column, JSON, or one ID per line")
	fs.StringVar(file, "f", "", "shorthand for --file")
	column := fs.String("id-column", "business_id", "ID column of a CSV or JSON file")
	typ := fs.String("type", "enrich", "enrichment type")
	summary := fs.Bool("summary", false, "print enrichment statistics to stderr")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if _, err := api.LookupBusinessEnrichment(*typ); err != nil {
		return &usageError{msg: err.Error()}
	}

	businessIDs, rows, err := a.readIDs(ids, *file, *column)
	if err != nil {
		return err
	}
	if len(businessIDs) == 0 {
		return usagef("provide --ids or --file")
	}

	out := a.executor.Enrich(ctx, func(ctx context.Context, chunk []string) (client.Response, error) {
		return a.businesses.BulkEnrich(ctx, *typ, chunk)
	}, businessIDs, batch.EnrichOptions{IDKey: "business_id", EntityName: "businesses"})
	mergeInputColumns(out.Data.Data, rows, "business_id")

	if *summary {
		fmt.Fprintf(a.stderr, "Enriched: %d/%d businesses\n", len(out.Data.Data), len(businessIDs))
	}
	return a.emitEnrich(out)
}

// emitEnrich prints a completed enrichment. An aborted run prints nothing;
// report shows how many records were secured.
func (a *app) emitEnrich(out batch.Outcome[batch.EnrichResult]) error {
	if out.Failed() {
		return out.Err
	}
	return a.emit(out.Data)
}

func (a *app) businessesLookalike(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses lookalike")
	var q businessFlags
	q.register(fs, true)
	if err := a.parse(fs, args); err != nil {
		return err
	}

	id, err := resolve.BusinessID(ctx, a.businesses, q.query(), q.minConfidence)
	if err != nil {
		return err
	}
	resp, err := a.businesses.Lookalike(ctx, id)
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) businessesAutocomplete(ctx context.Context, args []string) error {
	fs := a.newFlagSet("businesses autocomplete")
	query := fs.String("query", "", "search query (required)")
	fs.StringVar(query, "q", "", "shorthand for --query")
	field := fs.String("field", "company_name", "field to autocomplete")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *query == "" {
		return usagef("--query is required")
	}

	resp, err := a.businesses.Autocomplete(ctx, *query, *field)
	if err != nil {
		return err
	}
	return a.emit(resp)
}

func (a *app) businessesEvents(ctx context.Context, args []string) error {
	return a.runEvents(ctx, "businesses", args, a.businesses.Events())
}

// runEvents implements the events subcommands of both entity groups.
func (a *app) runEvents(ctx context.Context, group string, args []string, events *api.Events) error {
	if len(args) == 0 || isHelp(args[0]) {
		fmt.Fprintf(a.stderr, "Usage: explorium %s events <list|enroll|enrollments> [flags]\n", group)
		if len(args) == 0 {
			return errParseFlags
		}
		return nil
	}

	sub, rest := args[0], args[1:]
	fs := a.newFlagSet(group + " events " + sub)
	var ids, types listFlag
	var key *string
	switch sub {
	case "list", "enroll":
		fs.Var(&ids, "ids", "entity IDs, comma separated (required)")
		fs.Var(&types, "events", "event types, comma separated (required)")
		if sub == "enroll" {
			key = fs.String("key", "", "enrollment key (required)")
		}
	case "enrollments":
	default:
		return usagef("unknown events command: %s", sub)
	}
	if err := a.parse(fs, rest); err != nil {
		return err
	}

	var (
		resp client.Response
		err  error
	)
	switch sub {
	case "list", "enroll":
		if len(ids) == 0 || len(types) == 0 {
			return usagef("--ids and --events are required")
		}
		if sub == "list" {
			resp, err = events.List(ctx, ids, types)
			break
		}
		if *key == "" {
			return usagef("--key is required")
		}
		resp, err = events.Enroll(ctx, ids, types, *key)
	default:
		resp, err = events.ListEnrollments(ctx)
	}
	if err != nil {
		return err
	}
	return a.emit(resp)
}
