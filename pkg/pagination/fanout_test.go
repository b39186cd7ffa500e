package pagination

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/client"
	"github.com/rs/zerolog"
)

// entityOf extracts the injected entity ID from filters.
func entityOf(t *testing.T, filters Filters) string {
	t.Helper()
	f, ok := filters["business_id"].(map[string]any)
	if !ok {
		t.Fatalf("business_id filter missing: %v", filters)
	}
	values, ok := f["values"].([]string)
	if !ok || len(values) != 1 {
		t.Fatalf("business_id values = %v, want one id", f["values"])
	}
	if f["type"] != "includes" {
		t.Errorf("business_id type = %v, want includes", f["type"])
	}
	return values[0]
}

// rowsBySearch answers each entity with the configured prospect IDs.
func rowsBySearch(t *testing.T, rows map[string][]string, calls *sync.Map) EntitySearchFunc {
	return func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		id := entityOf(t, filters)
		counter, _ := calls.LoadOrStore(id, new(atomic.Int32))
		counter.(*atomic.Int32).Add(1)

		data := make([]any, 0, len(rows[id]))
		for _, pid := range rows[id] {
			data = append(data, map[string]any{"prospect_id": pid, "business_id": id})
		}
		return client.Response{"data": data}, nil
	}
}

func countCalls(calls *sync.Map) map[string]int32 {
	out := map[string]int32{}
	calls.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int32).Load()
		return true
	})
	return out
}

func TestUniqueIDs(t *testing.T) {
	got := UniqueIDs([]string{" b2", "b1", "", "b2", "b1 ", "  ", "b3"})
	want := []string{"b2", "b1", "b3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueIDs() = %v, want %v", got, want)
	}
}

func TestFanOut_DeduplicatesIDs(t *testing.T) {
	var calls sync.Map
	fn := rowsBySearch(t, map[string][]string{
		"b1": {"p1"},
		"b2": {"p2"},
	}, &calls)

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	res := fan.Search(context.Background(), fn, []string{"b1", "b1", "b2"}, Filters{})

	if got := countCalls(&calls); !reflect.DeepEqual(got, map[string]int32{"b1": 1, "b2": 1}) {
		t.Errorf("calls per entity = %v, want one each", got)
	}
	if len(res.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(res.Data))
	}
	if res.Data[0]["prospect_id"] == res.Data[1]["prospect_id"] {
		t.Errorf("duplicate prospect ids in %v", res.Data)
	}
	if res.Meta.CompaniesSearched != 2 {
		t.Errorf("CompaniesSearched = %d, want 2", res.Meta.CompaniesSearched)
	}
}

func TestFanOut_CrossEntityDeduplication(t *testing.T) {
	var calls sync.Map
	fn := rowsBySearch(t, map[string][]string{
		"b1": {"p1", "shared"},
		"b2": {"shared", "p2", "p3"},
	}, &calls)

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	res := fan.Search(context.Background(), fn, []string{"b1", "b2"}, Filters{})

	var ids []string
	for _, row := range res.Data {
		ids = append(ids, row["prospect_id"].(string))
	}
	sort.Strings(ids)
	if want := []string{"p1", "p2", "p3", "shared"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("merged ids = %v, want %v", ids, want)
	}
	if res.Meta.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Meta.Duplicates)
	}

	total := 0
	for _, stat := range res.Meta.PerCompany {
		total += stat.Count
	}
	if total != res.Meta.TotalResults {
		t.Errorf("sum of per-company counts = %d, want TotalResults %d", total, res.Meta.TotalResults)
	}
}

func TestFanOut_RowsWithoutCorrelationIDAreKept(t *testing.T) {
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		return client.Response{"data": []any{
			map[string]any{"name": "anonymous"},
			map[string]any{"name": "anonymous"},
		}}, nil
	}

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	res := fan.Search(context.Background(), fn, []string{"b1", "b2"}, Filters{})

	if len(res.Data) != 4 {
		t.Errorf("len(Data) = %d, want 4", len(res.Data))
	}
}

func TestFanOut_FaultIsolation(t *testing.T) {
	cause := &client.APIError{StatusCode: 404, ErrorClass: client.ErrorClassClient, Message: "Not Found"}
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		id := entityOf(t, filters)
		if id == "b2" {
			return nil, cause
		}
		return client.Response{"data": []any{map[string]any{"prospect_id": "p-" + id}}}, nil
	}

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	res := fan.Search(context.Background(), fn, []string{"b1", "b2", "b3"}, Filters{})

	if res.Meta.Errors != 1 {
		t.Errorf("Errors = %d, want 1", res.Meta.Errors)
	}
	if len(res.Data) != 2 {
		t.Errorf("len(Data) = %d, want 2", len(res.Data))
	}

	res.Meta.SortPerCompany()
	want := []EntityStat{
		{EntityID: "b1", Count: 1, Found: 1},
		{EntityID: "b2", Error: cause.Error()},
		{EntityID: "b3", Count: 1, Found: 1},
	}
	if !reflect.DeepEqual(res.Meta.PerCompany, want) {
		t.Errorf("PerCompany = %+v, want %+v", res.Meta.PerCompany, want)
	}
	if res.Meta.Min != 1 || res.Meta.Max != 1 || res.Meta.Avg != 1 {
		t.Errorf("Min/Max/Avg = %d/%d/%v, want 1/1/1", res.Meta.Min, res.Meta.Max, res.Meta.Avg)
	}
}

func TestFanOut_PanicIsCaptured(t *testing.T) {
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		if entityOf(t, filters) == "bad" {
			panic("nil map")
		}
		return client.Response{"data": []any{map[string]any{"prospect_id": "p1"}}}, nil
	}

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	res := fan.Search(context.Background(), fn, []string{"good", "bad"}, Filters{})

	if res.Meta.Errors != 1 || len(res.Data) != 1 {
		t.Errorf("Errors = %d, Data = %d, want 1 and 1", res.Meta.Errors, len(res.Data))
	}
}

func TestFanOut_SharedFiltersNotMutated(t *testing.T) {
	shared := Filters{
		"job_level": map[string]any{"type": "includes", "values": []string{"cxo"}},
	}
	var mu sync.Mutex
	var seen []Filters
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		mu.Lock()
		seen = append(seen, filters)
		mu.Unlock()
		return client.Response{"data": []any{}}, nil
	}

	fan := NewFanOut(DefaultFanOutConfig(), zerolog.Nop())
	fan.Search(context.Background(), fn, []string{"b1", "b2"}, shared)

	if _, ok := shared["business_id"]; ok {
		t.Error("shared filters were mutated")
	}
	if len(shared) != 1 {
		t.Errorf("shared filters = %v, want unchanged", shared)
	}
	for _, f := range seen {
		if _, ok := f["job_level"]; !ok {
			t.Errorf("task filters lost shared key: %v", f)
		}
	}
}

func TestFanOut_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return client.Response{"data": []any{}}, nil
	}

	cfg := DefaultFanOutConfig()
	cfg.Concurrency = 3
	fan := NewFanOut(cfg, zerolog.Nop())

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	res := fan.Search(context.Background(), fn, ids, Filters{})

	if got := peak.Load(); got > 3 {
		t.Errorf("peak in-flight = %d, want <= 3", got)
	}
	if res.Meta.Concurrency != 3 || res.Meta.CompaniesSearched != len(ids) {
		t.Errorf("Meta = %+v", res.Meta)
	}
	if len(res.Meta.PerCompany) != len(ids) {
		t.Errorf("len(PerCompany) = %d, want %d", len(res.Meta.PerCompany), len(ids))
	}
}

func TestFanOut_SinglePageRequest(t *testing.T) {
	var mu sync.Mutex
	var pages []PageRequest
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		return client.Response{"data": []any{}}, nil
	}

	cfg := DefaultFanOutConfig()
	cfg.PageSize = 25
	NewFanOut(cfg, zerolog.Nop()).Search(context.Background(), fn, []string{"b1"}, nil)

	want := []PageRequest{{Size: 25, PageSize: 25, Page: 1}}
	if !reflect.DeepEqual(pages, want) {
		t.Errorf("page requests = %+v, want %+v", pages, want)
	}
}

func TestFanOut_PaginatedPerEntity(t *testing.T) {
	var mu sync.Mutex
	callsPerEntity := map[string]int{}
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		id := entityOf(t, filters)
		mu.Lock()
		callsPerEntity[id]++
		mu.Unlock()

		data := make([]any, page.PageSize)
		for i := range data {
			data[i] = map[string]any{"prospect_id": id + "-" + string(rune('a'+page.Page)) + string(rune('a'+i))}
		}
		return client.Response{"data": data}, nil
	}

	cfg := DefaultFanOutConfig()
	cfg.Total = 25
	cfg.PageSize = 10
	res := NewFanOut(cfg, zerolog.Nop()).Search(context.Background(), fn, []string{"b1", "b2"}, Filters{})

	if !reflect.DeepEqual(callsPerEntity, map[string]int{"b1": 3, "b2": 3}) {
		t.Errorf("calls per entity = %v, want 3 each", callsPerEntity)
	}
	if res.Meta.TotalResults != 50 {
		t.Errorf("TotalResults = %d, want 50", res.Meta.TotalResults)
	}
	if res.Meta.Avg != 25 {
		t.Errorf("Avg = %v, want 25", res.Meta.Avg)
	}
}

func TestFanOut_EmptyInput(t *testing.T) {
	fn := func(ctx context.Context, filters Filters, page PageRequest) (client.Response, error) {
		return nil, errors.New("should not be called")
	}

	res := NewFanOut(DefaultFanOutConfig(), zerolog.Nop()).Search(context.Background(), fn, []string{" ", ""}, Filters{})

	if res.Meta.CompaniesSearched != 0 || len(res.Data) != 0 || res.Meta.Errors != 0 {
		t.Errorf("Search(empty) = %+v", res)
	}
}

func TestCountStats(t *testing.T) {
	tests := []struct {
		name    string
		stats   []EntityStat
		wantMin int
		wantMax int
		wantAvg float64
	}{
		{name: "none", stats: nil},
		{name: "errors ignored", stats: []EntityStat{{Count: 0, Error: "x"}, {Count: 4}}, wantMin: 4, wantMax: 4, wantAvg: 4},
		{name: "rounded to one decimal", stats: []EntityStat{{Count: 1}, {Count: 2}, {Count: 2}}, wantMin: 1, wantMax: 2, wantAvg: 1.7},
		{name: "zero count is a valid minimum", stats: []EntityStat{{Count: 0}, {Count: 10}}, wantMin: 0, wantMax: 10, wantAvg: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, avg := countStats(tt.stats)
			if lo != tt.wantMin || hi != tt.wantMax || avg != tt.wantAvg {
				t.Errorf("countStats() = %d, %d, %v, want %d, %d, %v", lo, hi, avg, tt.wantMin, tt.wantMax, tt.wantAvg)
			}
		})
	}
}
