package index

import "github.com/pellmark/folio/internal/nav"

// DocumentIndex is the query and mutation surface of the corpus index.
// The service layer depends on this interface, not on *DB.
type DocumentIndex interface {
	UpsertDocument(row DocumentRow, body string, links []LinkRow) error
	DeleteDocument(path string) error
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int, dir, sort string) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(target string) ([]string, error)
	NavEntries() ([]nav.Entry, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
