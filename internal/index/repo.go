package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pellmark/folio/internal/nav"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path        string
	Title       string
	Description string
	Position    *int
	Checksum    string
	UpdatedAt   time.Time
}

// LinkRow is one outgoing link, already resolved to a corpus-relative target.
type LinkRow struct {
	Target string
	Kind   string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is a document node in the link graph.
type GraphNode struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// GraphLink is a document-to-document edge.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// UpsertDocument inserts or replaces a document, its FTS entry, and links
// within a transaction.
func (db *DB) UpsertDocument(row DocumentRow, body string, links []LinkRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Upsert documents table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, description, position, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			position    = excluded.position,
			checksum    = excluded.checksum,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, row.Path, row.Title, row.Description, row.Position, row.Checksum, body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Path, row.Title, row.Description, body); err != nil {
		return err
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, row.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, kind) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(row.Path, l.Target, l.Kind); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and outgoing links.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetDocument returns the indexed metadata for one document, or nil when the
// path is not indexed.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var (
		row DocumentRow
		pos sql.NullInt64
	)
	err := db.conn.QueryRow(`
		SELECT path, title, description, position, checksum, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&row.Path, &row.Title, &row.Description, &pos, &row.Checksum, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	if pos.Valid {
		p := int(pos.Int64)
		row.Position = &p
	}
	return &row, nil
}

// listSortSQL whitelists ORDER BY clauses for ListDocuments.
var listSortSQL = map[string]string{
	"":        "path",
	"path":    "path",
	"title":   "title COLLATE NOCASE, path",
	"updated": "updated_at DESC, path",
}

// ListDocuments returns a page of documents, optionally restricted to one
// directory subtree, plus the total count for the filter.
func (db *DB) ListDocuments(limit, offset int, dir, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	orderBy, ok := listSortSQL[sort]
	if !ok {
		orderBy = listSortSQL[""]
	}

	where := ""
	args := []any{}
	if dir != "" {
		where = ` WHERE path LIKE ? || '/%'`
		args = append(args, dir)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	query := `SELECT path, title, description, position, checksum, updated_at FROM documents` +
		where + ` ORDER BY ` + orderBy + ` LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var (
			row DocumentRow
			pos sql.NullInt64
		)
		if err := rows.Scan(&row.Path, &row.Title, &row.Description, &pos, &row.Checksum, &row.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if pos.Valid {
			p := int(pos.Int64)
			row.Position = &p
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// Graph returns every document node and the document-to-document edges.
// Edges pointing outside the indexed set (attachments, dangling targets) are
// left out.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	nodeRows, err := db.conn.Query(`SELECT path, title FROM documents ORDER BY path`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer nodeRows.Close()

	var nodes []GraphNode
	for nodeRows.Next() {
		var n GraphNode
		if err := nodeRows.Scan(&n.Path, &n.Title); err != nil {
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	linkRows, err := db.conn.Query(`
		SELECT l.source, l.target, l.kind
		FROM links l
		JOIN documents d ON d.path = l.target
		ORDER BY l.source, l.target
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer linkRows.Close()

	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Kind); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// Backlinks returns all document paths that link to the given target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NavEntries returns the metadata the sidebar assembler needs for every
// indexed document.
func (db *DB) NavEntries() ([]nav.Entry, error) {
	rows, err := db.conn.Query(`SELECT path, title, position FROM documents ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: nav entries: %w", err)
	}
	defer rows.Close()

	var out []nav.Entry
	for rows.Next() {
		var (
			e   nav.Entry
			pos sql.NullInt64
		)
		if err := rows.Scan(&e.Path, &e.Title, &pos); err != nil {
			return nil, err
		}
		if pos.Valid {
			p := int(pos.Int64)
			e.Position = &p
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllChecksums returns the checksum of every indexed document keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
