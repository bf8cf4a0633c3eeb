package index

import (
	"log/slog"
	"time"

	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/storage"
)

// Sync walks the corpus and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if !document.IsMarkdown(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			metrics.IndexErrors.Inc()
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexDocument(db, m.Path, data, m.UpdatedAt); err != nil {
			metrics.IndexErrors.Inc()
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexDocument parses data and upserts it into the DB. Only links that
// resolve inside the corpus are recorded; external URLs never enter the
// link graph.
func indexDocument(db *DB, p string, data []byte, modTime time.Time) error {
	d := document.Parse(p, data)

	row := DocumentRow{
		Path:        d.Path,
		Title:       d.Title,
		Description: d.FrontMatter.Description,
		Position:    d.FrontMatter.SidebarPosition,
		Checksum:    d.Checksum,
		UpdatedAt:   modTime,
	}

	var links []LinkRow
	for _, l := range d.Links {
		if target, ok := document.ResolveInternal(d.Path, l.Destination); ok {
			links = append(links, LinkRow{Target: target, Kind: string(l.Kind)})
		}
	}
	if err := db.UpsertDocument(row, d.Body, links); err != nil {
		return err
	}
	metrics.DocsIndexed.Inc()
	return nil
}
