// Package output renders API results as JSON, CSV or an aligned text table.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Format selects the rendering.
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
)

// maxCellRunes caps table cells; longer values end in "...".
const maxCellRunes = 50

// flattenProbeRows is how many leading rows decide whether CSV output is flattened.
const flattenProbeRows = 5

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatTable, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: json, table, csv)", s)
	}
}

// Write renders data to w. Unknown formats render as JSON.
func Write(w io.Writer, data any, format Format) error {
	switch format {
	case FormatTable:
		return writeTable(w, data)
	case FormatCSV:
		rows, ok := Records(data)
		if !ok {
			return writeJSON(w, data)
		}
		return writeCSV(w, rows)
	default:
		return writeJSON(w, data)
	}
}

// WriteFile renders data to path. Table output is written as JSON, as is
// CSV output of data that has no record list.
func WriteFile(path string, data any, format Format) error {
	if format == FormatTable {
		format = FormatJSON
	}
	if format == FormatCSV {
		if _, ok := Records(data); !ok {
			format = FormatJSON
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, data, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// Records returns the row list of data: the "data" list of a response
// object, the object itself, or a list of objects. ok is false when data
// has no tabular shape.
func Records(data any) ([]map[string]any, bool) {
	switch v := data.(type) {
	case nil:
		return nil, false
	case map[string]any:
		if inner, ok := v["data"]; ok {
			return Records(inner)
		}
		return []map[string]any{v}, true
	case []map[string]any:
		return v, true
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if row, ok := item.(map[string]any); ok {
				rows = append(rows, row)
			}
		}
		return rows, true
	default:
		if m, ok := asMap(data); ok {
			return Records(m)
		}
		return nil, false
	}
}

// asMap converts named map types such as client.Response.
func asMap(data any) (map[string]any, bool) {
	encoded, err := json.Marshal(data)
	if err != nil || len(encoded) == 0 || encoded[0] != '{' {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil, false
	}
	return m, true
}

func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	if shouldFlatten(rows) {
		flat := make([]map[string]any, len(rows))
		for i, row := range rows {
			flat[i] = Flatten(row)
		}
		rows = flat
	}

	headerSet := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			headerSet[k] = struct{}{}
		}
	}
	if len(headerSet) == 0 {
		return nil
	}
	header := sortedKeys(headerSet)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, h := range header {
			record[i] = cell(row[h])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, data any) error {
	if data == nil {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}
	rows, ok := Records(data)
	if !ok {
		return writeJSON(w, data)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}

	columns := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	values := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			values[i] = truncate(sanitize(cell(row[col])), maxCellRunes)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}

// Flatten turns nested objects into dotted keys. Lists of objects are
// indexed (k.0.x), lists of scalars are joined with ", ", mixed lists are
// kept as JSON and empty lists become "".
func Flatten(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	flattenInto(out, "", row)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch t := v.(type) {
		case map[string]any:
			flattenInto(out, key, t)
		case []any:
			flattenList(out, key, t)
		default:
			out[key] = v
		}
	}
}

func flattenList(out map[string]any, key string, list []any) {
	if len(list) == 0 {
		out[key] = ""
		return
	}

	allObjects, anyNested := true, false
	for _, item := range list {
		switch item.(type) {
		case map[string]any:
			anyNested = true
		case []any:
			anyNested = true
			allObjects = false
		default:
			allObjects = false
		}
	}

	switch {
	case allObjects:
		for i, item := range list {
			flattenInto(out, key+"."+strconv.Itoa(i), item.(map[string]any))
		}
	case anyNested:
		out[key] = cell(list)
	default:
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = cell(item)
		}
		out[key] = strings.Join(parts, ", ")
	}
}

func shouldFlatten(rows []map[string]any) bool {
	for i, row := range rows {
		if i >= flattenProbeRows {
			break
		}
		for _, v := range row {
			switch v.(type) {
			case map[string]any, []any:
				return true
			}
		}
	}
	return false
}

// cell renders one value as text. Objects and lists are JSON.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any, []map[string]any:
		encoded, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(encoded)
	default:
		return fmt.Sprint(t)
	}
}

func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
