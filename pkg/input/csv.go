package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Column aliases by canonical name, in declaration order.
type alias struct {
	canonical string
	names     []string
}

var businessAliases = []alias{
	{canonical: "name", names: []string{"company_name", "company", "business_name"}},
	{canonical: "domain", names: []string{"website", "url", "company_domain", "company_website", "site"}},
	{canonical: "linkedin_url", names: []string{"linkedin", "linkedin_company_url", "company_linkedin"}},
}

var prospectAliases = []alias{
	{canonical: "first_name", names: []string{"firstname", "first"}},
	{canonical: "last_name", names: []string{"lastname", "last", "surname"}},
	{canonical: "full_name", names: []string{"name", "fullname", "prospect_name"}},
	{canonical: "email", names: []string{"email_address", "e-mail", "e_mail"}},
	{canonical: "linkedin", names: []string{"linkedin_url", "linkedin_profile"}},
	{canonical: "company_name", names: []string{"company", "employer", "organization"}},
}

type table struct {
	header []string
	rows   [][]string
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty or has no header row", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse CSV header: %v", ErrInvalidInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse CSV: %v", ErrInvalidInput, err)
	}
	return &table{header: header, rows: rows}, nil
}

// column returns the index of the header matching name case-insensitively,
// or -1.
func (t *table) column(name string) int {
	for i, h := range t.header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// value returns the cell at idx, "" for missing cells and idx < 0.
func (t *table) value(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// columnMapping maps canonical names to header indexes.
type columnMapping map[string]int

func (m columnMapping) value(t *table, record []string, canonical string) string {
	idx, ok := m[canonical]
	if !ok {
		return ""
	}
	return strings.TrimSpace(t.value(record, idx))
}

// mapColumns resolves header columns to canonical names. The first column
// matching a canonical name wins.
func (t *table) mapColumns(aliases []alias, entity string) (columnMapping, error) {
	lookup := make(map[string]string)
	for _, a := range aliases {
		lookup[a.canonical] = a.canonical
		for _, n := range a.names {
			lookup[n] = a.canonical
		}
	}

	mapping := columnMapping{}
	for i, h := range t.header {
		canonical, ok := lookup[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, taken := mapping[canonical]; !taken {
			mapping[canonical] = i
		}
	}

	if len(mapping) == 0 {
		expected := make([]string, 0, len(aliases))
		for _, a := range aliases {
			expected = append(expected, fmt.Sprintf("  %s (also: %s)", a.canonical, strings.Join(a.names, ", ")))
		}
		return nil, fmt.Errorf("%w: no recognized %s columns found in CSV.\nFound columns: %s\nExpected columns (or aliases):\n%s",
			ErrInvalidInput, entity, strings.Join(t.header, ", "), strings.Join(expected, "\n"))
	}
	return mapping, nil
}
