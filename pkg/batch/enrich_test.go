package batch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/Sternrassler/explorium-cli/pkg/client"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%03d", i)
	}
	return ids
}

// enrichWithoutIDs answers with one record per id, omitting the id field.
func enrichWithoutIDs(calls *[][]string) EnrichFunc {
	return func(ctx context.Context, ids []string) (client.Response, error) {
		*calls = append(*calls, ids)
		data := make([]any, 0, len(ids))
		for i := range ids {
			data = append(data, map[string]any{"position": float64(i)})
		}
		return client.Response{"data": data}, nil
	}
}

func TestEnrich_EmptyInput(t *testing.T) {
	exec, _ := newTestExecutor(t, 50)
	var calls [][]string

	out := exec.Enrich(context.Background(), enrichWithoutIDs(&calls), nil, EnrichOptions{IDKey: "business_id"})

	if out.Err != nil {
		t.Fatalf("Enrich() error = %v", out.Err)
	}
	if len(calls) != 0 {
		t.Errorf("Expected no calls, got %d", len(calls))
	}
	if out.Data.Status != "success" || len(out.Data.Data) != 0 {
		t.Errorf("Enrich() = %+v, want empty success", out.Data)
	}
}

func TestEnrich_PositionalBackfill(t *testing.T) {
	exec, _ := newTestExecutor(t, 3)
	var calls [][]string
	ids := makeIDs(7)

	out := exec.Enrich(context.Background(), enrichWithoutIDs(&calls), ids, EnrichOptions{IDKey: "prospect_id", EntityName: "prospects"})

	if out.Err != nil {
		t.Fatalf("Enrich() error = %v", out.Err)
	}
	if len(calls) != 3 {
		t.Errorf("calls = %d, want 3", len(calls))
	}
	if len(out.Data.Data) != len(ids) {
		t.Fatalf("len(Data) = %d, want %d", len(out.Data.Data), len(ids))
	}
	for i, record := range out.Data.Data {
		if record["prospect_id"] != ids[i] {
			t.Errorf("record %d prospect_id = %v, want %q", i, record["prospect_id"], ids[i])
		}
	}
}

func TestEnrich_BackfillKeepsExistingAndSkipsOnLengthMismatch(t *testing.T) {
	tests := []struct {
		name string
		data []any
		want []any
	}{
		{
			name: "existing id kept, empty id filled",
			data: []any{
				map[string]any{"business_id": "server-a"},
				map[string]any{"business_id": ""},
			},
			want: []any{"server-a", "b"},
		},
		{
			name: "length mismatch disables back-fill",
			data: []any{map[string]any{"name": "only one"}},
			want: []any{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newTestExecutor(t, 50)
			fn := func(ctx context.Context, ids []string) (client.Response, error) {
				return client.Response{"data": tt.data}, nil
			}

			out := exec.Enrich(context.Background(), fn, []string{"a", "b"}, EnrichOptions{IDKey: "business_id"})
			if out.Err != nil {
				t.Fatalf("Enrich() error = %v", out.Err)
			}

			var got []any
			for _, record := range out.Data.Data {
				got = append(got, record["business_id"])
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("business_id values = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnrich_ResponseUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		response client.Response
		want     []map[string]any
	}{
		{
			name:     "data object",
			response: client.Response{"data": map[string]any{"name": "Acme"}},
			want:     []map[string]any{{"name": "Acme"}},
		},
		{
			name:     "data scalar",
			response: client.Response{"data": "opaque"},
			want:     []map[string]any{{"data": "opaque"}},
		},
		{
			name:     "no data field",
			response: client.Response{"name": "Acme", "status": "ok"},
			want:     []map[string]any{{"name": "Acme", "status": "ok"}},
		},
		{
			name:     "typed data list",
			response: client.Response{"data": []map[string]any{{"name": "Acme"}}},
			want:     []map[string]any{{"name": "Acme"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, _ := newTestExecutor(t, 50)
			fn := func(ctx context.Context, ids []string) (client.Response, error) {
				return tt.response, nil
			}

			out := exec.Enrich(context.Background(), fn, []string{"a", "b"}, EnrichOptions{})
			if out.Err != nil {
				t.Fatalf("Enrich() error = %v", out.Err)
			}
			if !reflect.DeepEqual(out.Data.Data, tt.want) {
				t.Errorf("Data = %v, want %v", out.Data.Data, tt.want)
			}
		})
	}
}

func TestEnrich_AbortAfterRetriesExhausted(t *testing.T) {
	exec, sleeps := newTestExecutor(t, 50)
	ids := makeIDs(150)

	callsPerBatch := map[string]int{}
	fn := func(ctx context.Context, chunk []string) (client.Response, error) {
		callsPerBatch[chunk[0]]++
		if chunk[0] == ids[50] {
			return nil, apiError(503)
		}
		data := make([]any, 0, len(chunk))
		for _, id := range chunk {
			data = append(data, map[string]any{"business_id": id})
		}
		return client.Response{"data": data}, nil
	}

	out := exec.Enrich(context.Background(), fn, ids, EnrichOptions{IDKey: "business_id", EntityName: "businesses"})

	var abort *AbortError
	if !errors.As(out.Err, &abort) {
		t.Fatalf("Err = %v, want *AbortError", out.Err)
	}
	if !errors.Is(out.Err, client.ErrRetryExhausted) {
		t.Errorf("Err should wrap ErrRetryExhausted, got %v", out.Err)
	}
	if abort.Batch != 2 || abort.Batches != 3 {
		t.Errorf("AbortError batch = %d/%d, want 2/3", abort.Batch, abort.Batches)
	}
	if abort.Completed != 50 {
		t.Errorf("Completed = %d, want 50", abort.Completed)
	}
	if got := callsPerBatch[ids[0]]; got != 1 {
		t.Errorf("batch 1 calls = %d, want 1", got)
	}
	if got := callsPerBatch[ids[50]]; got != 4 {
		t.Errorf("batch 2 calls = %d, want 4 (1 + 3 retries)", got)
	}
	if got := callsPerBatch[ids[100]]; got != 0 {
		t.Errorf("batch 3 calls = %d, want 0", got)
	}
	if want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}; !reflect.DeepEqual(*sleeps, want) {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
	if out.Data.Status != "failed" || len(out.Data.Data) != 50 {
		t.Errorf("partial Data = %s with %d records, want failed with 50", out.Data.Status, len(out.Data.Data))
	}
}

func TestEnrich_ContextCancelledDuringBackoff(t *testing.T) {
	exec, _ := newTestExecutor(t, 50)
	ctx, cancel := context.WithCancel(context.Background())

	fn := func(ctx context.Context, ids []string) (client.Response, error) {
		cancel()
		return nil, apiError(503)
	}

	out := exec.Enrich(ctx, fn, []string{"a"}, EnrichOptions{})

	if !errors.Is(out.Err, client.ErrContextCancelled) {
		t.Errorf("Err = %v, want ErrContextCancelled", out.Err)
	}
}
