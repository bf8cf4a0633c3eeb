package index

import "database/sql"

const defaultSearchLimit = 20

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	return limit
}

// collectSearchResults drains rows into SearchResult values. Both search
// implementations produce (path, title, snippet) columns.
func collectSearchResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
