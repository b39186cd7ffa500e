// Package input reads the ID lists and match parameter files accepted by
// the bulk commands. CSV headers are matched case-insensitively and the
// common column aliases are recognized.
package input

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidInput marks input files the user has to fix.
var ErrInvalidInput = errors.New("invalid input")

// Source is a fully read input file.
type Source struct {
	// Name is the file path, "-" for stdin.
	Name    string
	Content []byte
}

// Read loads path, or stdin when path is "-".
func Read(path string, stdin io.Reader) (Source, error) {
	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = io.ReadAll(stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Source{Name: path, Content: content}, nil
}

// IsCSV reports whether the content is CSV. A .csv or .json extension
// decides; otherwise content starting with '[' or '{' is JSON.
func IsCSV(name string, content []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return true
	case ".json":
		return false
	}
	trimmed := bytes.TrimLeft(content, " \t\r\n")
	return len(trimmed) == 0 || (trimmed[0] != '[' && trimmed[0] != '{')
}

// NormalizeLinkedInURL prepends https:// when the URL has no scheme.
func NormalizeLinkedInURL(url string) string {
	if url == "" {
		return url
	}
	lower := strings.ToLower(url)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return url
	}
	return "https://" + url
}

// ParseIDLines reads one ID per line, skipping blank lines.
func ParseIDLines(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no IDs found in file", ErrInvalidInput)
	}
	return ids, nil
}

// ParseIDs reads the values of column from CSV content.
func ParseIDs(r io.Reader, column string) ([]string, error) {
	ids, _, err := ParseIDsWithRows(r, column)
	return ids, err
}

// ParseIDsWithRows reads the values of column and also returns each row
// keyed by its ID, without the ID column, so input columns can be merged
// back into results.
func ParseIDsWithRows(r io.Reader, column string) ([]string, map[string]map[string]any, error) {
	table, err := readTable(r)
	if err != nil {
		return nil, nil, err
	}

	idx := table.column(column)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: CSV file must contain a '%s' column. Found columns: %s",
			ErrInvalidInput, column, strings.Join(table.header, ", "))
	}

	var ids []string
	rows := make(map[string]map[string]any)
	for _, record := range table.rows {
		id := strings.TrimSpace(table.value(record, idx))
		if id == "" {
			continue
		}
		ids = append(ids, id)

		row := make(map[string]any, len(table.header)-1)
		for i, name := range table.header {
			if i != idx {
				row[name] = table.value(record, i)
			}
		}
		rows[id] = row
	}

	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("%w: no IDs found in file", ErrInvalidInput)
	}
	return ids, rows, nil
}

// ParseBusinessMatchParams reads business match rows (name, domain,
// linkedin_url and aliases). A non-empty business_id column is carried
// through so callers can skip matching for that row.
func ParseBusinessMatchParams(r io.Reader) ([]map[string]any, error) {
	table, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idIdx := table.column("business_id")
	mapping, err := table.mapColumns(businessAliases, "business")
	if err != nil {
		return nil, err
	}

	var businesses []map[string]any
	for _, record := range table.rows {
		entry := map[string]any{}
		if id := strings.TrimSpace(table.value(record, idIdx)); id != "" {
			entry["business_id"] = id
		}
		if v := mapping.value(table, record, "name"); v != "" {
			entry["name"] = v
		}
		if v := mapping.value(table, record, "domain"); v != "" {
			entry["domain"] = v
		}
		if v := NormalizeLinkedInURL(mapping.value(table, record, "linkedin_url")); v != "" {
			entry["linkedin_url"] = v
		}
		if len(entry) > 0 {
			businesses = append(businesses, entry)
		}
	}

	if len(businesses) == 0 {
		return nil, fmt.Errorf("%w: no valid business match rows found in CSV", ErrInvalidInput)
	}
	return businesses, nil
}

// ParseProspectMatchParams reads prospect match rows. The name is dropped
// when email or LinkedIn is present without a company, and rows left with
// only a name are skipped with a warning.
func ParseProspectMatchParams(r io.Reader) ([]map[string]any, error) {
	table, err := readTable(r)
	if err != nil {
		return nil, err
	}
	idIdx := table.column("prospect_id")
	mapping, err := table.mapColumns(prospectAliases, "prospect")
	if err != nil {
		return nil, err
	}

	var prospects []map[string]any
	for _, record := range table.rows {
		entry := map[string]any{}
		if id := strings.TrimSpace(table.value(record, idIdx)); id != "" {
			entry["prospect_id"] = id
		}

		first := mapping.value(table, record, "first_name")
		last := mapping.value(table, record, "last_name")
		full := mapping.value(table, record, "full_name")
		email := mapping.value(table, record, "email")
		linkedin := NormalizeLinkedInURL(mapping.value(table, record, "linkedin"))
		company := mapping.value(table, record, "company_name")

		if company != "" || (email == "" && linkedin == "") {
			if full == "" {
				full = strings.TrimSpace(first + " " + last)
			}
			if full != "" {
				entry["full_name"] = full
			}
		}
		if email != "" {
			entry["email"] = email
		}
		if linkedin != "" {
			entry["linkedin"] = linkedin
		}
		if company != "" {
			entry["company_name"] = company
		}

		if len(entry) == 0 {
			continue
		}
		if _, named := entry["full_name"]; named && email == "" && linkedin == "" && company == "" {
			log.Warn().
				Str("component", "input").
				Str("full_name", full).
				Msg("Skipping row: name requires company_name, email, or linkedin for matching")
			continue
		}
		prospects = append(prospects, entry)
	}

	if len(prospects) == 0 {
		return nil, fmt.Errorf("%w: no valid prospect match rows found in CSV", ErrInvalidInput)
	}
	return prospects, nil
}

// Entity selects the CSV column aliases used by ParseItems.
type Entity string

const (
	EntityBusiness Entity = "business"
	EntityProspect Entity = "prospect"
)

// ParseItems reads match rows from a JSON array (or single object) or from
// CSV, detected with IsCSV.
func ParseItems(src Source, entity Entity) ([]map[string]any, error) {
	if IsCSV(src.Name, src.Content) {
		r := bytes.NewReader(src.Content)
		switch entity {
		case EntityBusiness:
			return ParseBusinessMatchParams(r)
		case EntityProspect:
			return ParseProspectMatchParams(r)
		default:
			return nil, fmt.Errorf("unknown entity %q", entity)
		}
	}

	var decoded any
	if err := json.Unmarshal(src.Content, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid JSON: %v", ErrInvalidInput, src.Name, err)
	}

	switch v := decoded.(type) {
	case map[string]any:
		return []map[string]any{v}, nil
	case []any:
		items := make([]map[string]any, 0, len(v))
		for i, elem := range v {
			item, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d of %s is not an object", ErrInvalidInput, i, src.Name)
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %s contains no items", ErrInvalidInput, src.Name)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: %s must contain a JSON array of objects", ErrInvalidInput, src.Name)
	}
}
