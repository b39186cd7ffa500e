package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type namedMap map[string]any

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "TABLE", "csv"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) error = nil, want error")
	}
}

func TestFlatten(t *testing.T) {
	row := map[string]any{
		"name": "Acme",
		"hq":   map[string]any{"city": "Berlin", "geo": map[string]any{"lat": 52.5}},
		"tags": []any{"saas", "b2b"},
		"emails": []any{
			map[string]any{"address": "a@acme.com"},
			map[string]any{"address": "b@acme.com"},
		},
		"empty": []any{},
		"mixed": []any{"x", map[string]any{"y": 1.0}},
	}

	want := map[string]any{
		"name":             "Acme",
		"hq.city":          "Berlin",
		"hq.geo.lat":       52.5,
		"tags":             "saas, b2b",
		"emails.0.address": "a@acme.com",
		"emails.1.address": "b@acme.com",
		"empty":            "",
		"mixed":            `["x",{"y":1}]`,
	}

	if got := Flatten(row); !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestRecords(t *testing.T) {
	tests := []struct {
		name   string
		data   any
		want   int
		wantOK bool
	}{
		{name: "nil", data: nil, wantOK: false},
		{name: "response with data", data: map[string]any{"data": []any{map[string]any{"a": 1.0}, map[string]any{"a": 2.0}}}, want: 2, wantOK: true},
		{name: "single object", data: map[string]any{"a": 1.0}, want: 1, wantOK: true},
		{name: "list of maps", data: []map[string]any{{"a": 1}}, want: 1, wantOK: true},
		{name: "list skips scalars", data: []any{map[string]any{"a": 1.0}, "x"}, want: 1, wantOK: true},
		{name: "named map type", data: namedMap{"data": []any{map[string]any{"a": 1.0}}}, want: 1, wantOK: true},
		{name: "scalar", data: "text", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, ok := Records(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("Records() ok = %v, want %v", ok, tt.wantOK)
			}
			if len(rows) != tt.want {
				t.Errorf("len(Records()) = %d, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"url": "https://a.com/?x=1&y=2"}, FormatJSON); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	want := "{\n  \"url\": \"https://a.com/?x=1&y=2\"\n}\n"
	if buf.String() != want {
		t.Errorf("Write() = %q, want %q", buf.String(), want)
	}
}

func TestWrite_CSV(t *testing.T) {
	data := map[string]any{"data": []any{
		map[string]any{"name": "Acme", "hq": map[string]any{"city": "Berlin"}, "size": 120.0},
		map[string]any{"name": "Globex, Inc", "extra": nil},
	}}

	var buf bytes.Buffer
	if err := Write(&buf, data, FormatCSV); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "extra,hq.city,name,size\n" +
		",Berlin,Acme,120\n" +
		",,\"Globex, Inc\",\n"
	if buf.String() != want {
		t.Errorf("Write() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWrite_CSVNonTabularFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "plain", FormatCSV); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != "\"plain\"\n" {
		t.Errorf("Write() = %q, want JSON string", buf.String())
	}
}

func TestWrite_Table(t *testing.T) {
	long := strings.Repeat("é", 60)
	data := []any{
		map[string]any{"id": "b1", "description": long},
		map[string]any{"id": "b2", "description": "multi\nline"},
	}

	var buf bytes.Buffer
	if err := Write(&buf, data, FormatTable); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("table lines = %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "description") || !strings.Contains(lines[0], "id") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], strings.Repeat("é", 47)+"...") {
		t.Errorf("long cell not truncated: %q", lines[1])
	}
	if strings.Contains(lines[1], strings.Repeat("é", 48)) {
		t.Errorf("cell longer than 50 runes: %q", lines[1])
	}
	if !strings.Contains(lines[2], "multi line") {
		t.Errorf("newline not flattened: %q", lines[2])
	}
}

func TestWrite_TableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"data": []any{}}, FormatTable); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if buf.String() != "No results\n" {
		t.Errorf("Write() = %q, want No results", buf.String())
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	data := map[string]any{"data": []any{map[string]any{"id": "b1"}}}

	tablePath := filepath.Join(dir, "out.json")
	if err := WriteFile(tablePath, data, FormatTable); err != nil {
		t.Fatalf("WriteFile(table) error = %v", err)
	}
	content, err := os.ReadFile(tablePath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Errorf("table output file is not JSON: %v", err)
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := WriteFile(csvPath, data, FormatCSV); err != nil {
		t.Fatalf("WriteFile(csv) error = %v", err)
	}
	content, err = os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "id\nb1\n" {
		t.Errorf("csv file = %q, want %q", content, "id\nb1\n")
	}
}
