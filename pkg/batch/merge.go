package batch

// MergeEnrichmentResults combines several enrichment passes over the same
// entities into one row per entity. Rows are keyed by "entity_id", falling
// back to idKey; entities keep first-seen order and later non-empty values
// override earlier ones. Rows carrying neither key are appended unmerged.
func MergeEnrichmentResults(partials [][]map[string]any, idKey string) []map[string]any {
	merged := make(map[string]map[string]any)
	var order []map[string]any

	for _, partial := range partials {
		for _, record := range partial {
			id := idString(record["entity_id"])
			if id == "" && idKey != "" {
				id = idString(record[idKey])
			}

			var row map[string]any
			if id == "" {
				row = make(map[string]any, len(record))
				order = append(order, row)
			} else if existing, ok := merged[id]; ok {
				row = existing
			} else {
				row = make(map[string]any, len(record))
				merged[id] = row
				order = append(order, row)
			}

			for k, v := range record {
				if hasValue(v) {
					row[k] = v
				}
			}
		}
	}

	if order == nil {
		return []map[string]any{}
	}
	return order
}
