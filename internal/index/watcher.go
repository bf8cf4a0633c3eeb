package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/storage"
)

// EventCallback is invoked after a watcher-driven index change.
// kind is "created", "updated" or "deleted".
type EventCallback func(kind, path string)

// renameSettle is how long the watcher waits after a rename before it
// reconciles the index against the corpus listing.
const renameSettle = 200 * time.Millisecond

// watcher bundles the dependencies of the fsnotify event loop.
type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fsw    *fsnotify.Watcher
}

// Watch mirrors corpus changes into the index until ctx is cancelled.
// cb, when non-nil, fires after each successful index mutation.
// Directories created at runtime are picked up automatically. Rename
// bursts settle through a reconcile pass because fsnotify reports only
// the old path of a rename.
func Watch(ctx context.Context, db *DB, store storage.Provider, corpusRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{db: db, store: store, root: corpusRoot, logger: logger, cb: cb, fsw: fsw}
	if err := w.watchTree(corpusRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", corpusRoot))
	return w.loop(ctx)
}

func (w *watcher) loop(ctx context.Context) error {
	reconcile := time.NewTimer(renameSettle)
	if !reconcile.Stop() {
		<-reconcile.C
	}

	for {
		select {
		case <-ctx.Done():
			reconcile.Stop()
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcile.C:
			w.reconcile()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				if !reconcile.Stop() {
					select {
					case <-reconcile.C:
					default:
					}
				}
				reconcile.Reset(renameSettle)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handle processes one fsnotify event and reports whether a rename was
// seen, meaning a reconcile pass should be scheduled.
func (w *watcher) handle(ev fsnotify.Event) bool {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			return false
		}
	}

	if ev.Op&fsnotify.Rename != 0 {
		// Rename reports only the old path, and for a renamed directory
		// that path is the only event its children ever get. Drop what
		// can be dropped now; the reconcile pass catches the rest.
		if document.IsMarkdown(ev.Name) {
			if rel, err := filepath.Rel(w.root, ev.Name); err == nil {
				w.dropPath(filepath.ToSlash(rel), "watcher: rename delete failed")
			}
		}
		return true
	}

	if !document.IsMarkdown(ev.Name) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.indexPath(rel, kind)

	case ev.Op&fsnotify.Remove != 0:
		w.dropPath(rel, "watcher: delete failed")
	}
	return false
}

// addTree starts watching a directory created at runtime and indexes any
// documents it already contains (the directory may have been moved in
// with content).
func (w *watcher) addTree(dir string) {
	if err := w.watchTree(dir); err != nil {
		w.logger.Warn("watcher: add new dir failed",
			slog.String("path", dir),
			slog.String("error", err.Error()))
	} else {
		w.logger.Debug("watcher: watching new dir", slog.String("path", dir))
	}

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !document.IsMarkdown(path) {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		w.indexPath(filepath.ToSlash(rel), "created")
		return nil
	})
}

// indexPath reads rel from storage and upserts it into the index.
func (w *watcher) indexPath(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		metrics.IndexErrors.Inc()
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := indexDocument(w.db, rel, data, time.Now().UTC()); err != nil {
		metrics.IndexErrors.Inc()
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

// dropPath removes rel from the index.
func (w *watcher) dropPath(rel, failMsg string) {
	if err := w.db.DeleteDocument(rel); err != nil {
		w.logger.Warn(failMsg, slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit("deleted", rel)
}

func (w *watcher) emit(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// reconcile diffs the index against the corpus listing: entries whose file
// is gone are removed, files that are new or changed are indexed.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		if document.IsMarkdown(m.Path) {
			disk[m.Path] = m.Checksum
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := w.db.DeleteDocument(p); err == nil {
				w.logger.Debug("reconcile: removed stale", slog.String("path", p))
				w.emit("deleted", p)
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, err := w.store.Read(p)
		if err != nil {
			continue
		}
		if err := indexDocument(w.db, p, data, time.Now().UTC()); err == nil {
			w.logger.Debug("reconcile: indexed new", slog.String("path", p))
			w.emit("created", p)
		}
	}
}

// watchTree registers dir and every subdirectory with fsnotify.
func (w *watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}
