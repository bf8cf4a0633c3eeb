// Package docservice coordinates the corpus storage, index, renderer, and
// linter behind one API used by the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"errors"
	"os"
	"path"
	"sort"
	"time"

	"github.com/pellmark/folio/internal/apperr"
	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/index"
	"github.com/pellmark/folio/internal/lint"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/nav"
	"github.com/pellmark/folio/internal/render"
	"github.com/pellmark/folio/internal/storage"
)

// DocDetail is the full representation of a document.
type DocDetail struct {
	Path        string             `json:"path"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Position    *int               `json:"sidebar_position,omitempty"`
	Content     string             `json:"content"`
	HTML        string             `json:"html,omitempty"`
	Checksum    string             `json:"checksum"`
	Headings    []document.Heading `json:"headings"`
	FrontMatter map[string]any     `json:"frontmatter,omitempty"`
	Backlinks   []string           `json:"backlinks"`
	Issues      []lint.Issue       `json:"issues,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// DocListItem is a lightweight item in a list response.
type DocListItem struct {
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Position    *int      `json:"sidebar_position,omitempty"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store    storage.Provider
	db       index.DocumentIndex
	renderer *render.Renderer
	linter   *lint.Linter
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.DocumentIndex) *Service {
	return &Service{
		store:    store,
		db:       db,
		renderer: render.New(),
		linter:   lint.New(store),
	}
}

// Get reads a document from storage, parses it, and enriches it with
// backlinks and per-document lint findings. When withHTML is set the body is
// also rendered.
func (s *Service) Get(_ context.Context, p string, withHTML bool) (*DocDetail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(p, data, withHTML)
}

// Create writes a new document and indexes it.
func (s *Service) Create(_ context.Context, p string, content []byte) (*DocDetail, error) {
	if err := validDocPath(p); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(p); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(p, content); err != nil {
		return nil, err
	}
	return s.buildDetail(p, content, false)
}

// Update writes updated content with optimistic concurrency. A non-empty
// ifMatch must equal the stored content's checksum.
func (s *Service) Update(_ context.Context, p string, content []byte, ifMatch string) (*DocDetail, error) {
	if err := validDocPath(p); err != nil {
		return nil, err
	}
	existing, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != document.Parse(p, existing).Checksum {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if err := s.indexFile(p, content); err != nil {
		return nil, err
	}
	return s.buildDetail(p, content, false)
}

// Delete removes a document from storage and index.
func (s *Service) Delete(_ context.Context, p string) error {
	if err := s.store.Delete(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteDocument(p)
}

// List returns paginated documents with an optional directory filter.
func (s *Service) List(_ context.Context, limit, offset int, dir, sortBy string) ([]DocListItem, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, dir, sortBy)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocListItem, len(rows))
	for i, r := range rows {
		items[i] = DocListItem{
			Path:        r.Path,
			Title:       r.Title,
			Description: r.Description,
			Position:    r.Position,
			Checksum:    r.Checksum,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	metrics.SearchQueries.Inc()
	return s.db.Search(query, limit)
}

// Nav assembles the sidebar tree from the indexed corpus.
func (s *Service) Nav(_ context.Context) (*nav.Tree, error) {
	entries, err := s.db.NavEntries()
	if err != nil {
		return nil, err
	}
	return nav.Assemble(entries), nil
}

// Graph returns all nodes and links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// Backlinks returns all document paths that link to the given target.
// For an index.md target it also includes documents linking to the bare
// directory, since directory links land on the index document.
func (s *Service) Backlinks(_ context.Context, target string) ([]string, error) {
	return s.backlinksFor(target)
}

// Lint runs the corpus linter.
func (s *Service) Lint(ctx context.Context) (*lint.Report, error) {
	return s.linter.Run(ctx)
}

// indexFile parses data and upserts it into the index. Only links resolving
// inside the corpus are recorded.
func (s *Service) indexFile(p string, data []byte) error {
	d := document.Parse(p, data)
	row := index.DocumentRow{
		Path:        d.Path,
		Title:       d.Title,
		Description: d.FrontMatter.Description,
		Position:    d.FrontMatter.SidebarPosition,
		Checksum:    d.Checksum,
		UpdatedAt:   time.Now().UTC(),
	}
	var links []index.LinkRow
	for _, l := range d.Links {
		if target, ok := document.ResolveInternal(d.Path, l.Destination); ok {
			links = append(links, index.LinkRow{Target: target, Kind: string(l.Kind)})
		}
	}
	if err := s.db.UpsertDocument(row, d.Body, links); err != nil {
		return err
	}
	metrics.DocsIndexed.Inc()
	return nil
}

// buildDetail constructs a DocDetail from raw data without re-reading the file.
func (s *Service) buildDetail(p string, data []byte, withHTML bool) (*DocDetail, error) {
	d := document.Parse(p, data)
	bl, err := s.backlinksFor(p)
	if err != nil {
		return nil, err
	}

	det := &DocDetail{
		Path:        p,
		Title:       d.Title,
		Description: d.FrontMatter.Description,
		Position:    d.FrontMatter.SidebarPosition,
		Content:     string(data),
		Checksum:    d.Checksum,
		Headings:    nonNilSlice(d.Headings),
		FrontMatter: d.Raw,
		Backlinks:   nonNilSlice(bl),
		Issues:      lint.DocumentIssues(d),
		UpdatedAt:   time.Now().UTC(),
	}
	if row, err := s.db.GetDocument(p); err == nil && row != nil {
		det.UpdatedAt = row.UpdatedAt
	}
	if withHTML {
		html, err := s.renderer.HTML(d.Body)
		if err != nil {
			return nil, err
		}
		det.HTML = html
	}
	return det, nil
}

func (s *Service) backlinksFor(p string) ([]string, error) {
	bl, err := s.db.Backlinks(p)
	if err != nil {
		return nil, err
	}
	if path.Base(p) == document.IndexFile {
		if dir := path.Dir(p); dir != "." {
			more, err := s.db.Backlinks(dir)
			if err != nil {
				return nil, err
			}
			bl = mergePaths(bl, more)
		}
	}
	return bl, nil
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, p := range append(a, b...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func validDocPath(p string) error {
	if p == "" || !document.IsMarkdown(p) {
		return apperr.ErrInvalidPath
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
