package table

import "sort"

// CompanyCodeColumn matches "Company Code" case-insensitively, then any header
// containing it.
var CompanyCodeColumn = Column{Field: "companyCode", Labels: []string{"Company Code"}, Fuzzy: true}

// DistinctValues returns the sorted distinct non-blank values of one column.
// Used to offer the company-code filter choices before a run.
func DistinctValues(src Source, headerRow int, col Column) ([]string, error) {
	cur, err := src.Open(Layout{HeaderRow: headerRow, DataRow: headerRow + 1})
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	binding, err := cur.Header().Bind([]Column{col}, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for cur.Next() {
		v := Text(binding.Value(cur.Record(), col.Field))
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}
