package input

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseIDFile reads IDs from any of the accepted ID file shapes: a JSON
// array of strings or of objects carrying column, a CSV with a column
// header (rows are returned for merging), or one ID per line.
func ParseIDFile(src Source, column string) ([]string, map[string]map[string]any, error) {
	if !IsCSV(src.Name, src.Content) {
		return parseJSONIDs(src, column)
	}

	if hasHeader(src.Content, column) {
		return ParseIDsWithRows(bytes.NewReader(src.Content), column)
	}

	ids, err := ParseIDLines(bytes.NewReader(src.Content))
	return ids, nil, err
}

// hasHeader reports whether the first line of content names column.
func hasHeader(content []byte, column string) bool {
	line, _, _ := bytes.Cut(content, []byte("\n"))
	line = bytes.TrimPrefix(line, []byte("\ufeff"))
	for _, field := range strings.Split(strings.TrimSpace(string(line)), ",") {
		if strings.EqualFold(strings.Trim(strings.TrimSpace(field), `"`), column) {
			return true
		}
	}
	return false
}

func parseJSONIDs(src Source, column string) ([]string, map[string]map[string]any, error) {
	var decoded []any
	if err := json.Unmarshal(src.Content, &decoded); err != nil {
		return nil, nil, fmt.Errorf("%w: %s must contain a JSON array of IDs: %v", ErrInvalidInput, src.Name, err)
	}

	var ids []string
	rows := make(map[string]map[string]any)
	for i, elem := range decoded {
		switch v := elem.(type) {
		case string:
			if id := strings.TrimSpace(v); id != "" {
				ids = append(ids, id)
			}
		case map[string]any:
			id, _ := v[column].(string)
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			ids = append(ids, id)
			row := make(map[string]any, len(v)-1)
			for k, val := range v {
				if k != column {
					row[k] = val
				}
			}
			rows[id] = row
		default:
			return nil, nil, fmt.Errorf("%w: element %d of %s is neither an ID nor an object", ErrInvalidInput, i, src.Name)
		}
	}

	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%w: no IDs found in file", ErrInvalidInput)
	}
	if len(rows) == 0 {
		rows = nil
	}
	return ids, rows, nil
}
