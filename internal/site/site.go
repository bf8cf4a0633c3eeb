// Package site renders the corpus into a static HTML site.
//
// A build is one full pass: every Markdown document becomes an HTML page laid
// out with the embedded template, non-Markdown files are copied through, and
// the output root gains a search manifest, sitemap, robots file, and build
// manifest. Broken pages surface as diagnostics; the build keeps going past
// them.
package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/nav"
	"github.com/pellmark/folio/internal/render"
	"github.com/pellmark/folio/internal/storage"
)

// Config controls one build.
type Config struct {
	Title     string // site name shown on every page
	BaseURL   string // absolute site root for sitemap and search URLs
	OutputDir string
	Workers   int  // page render concurrency; <=0 means NumCPU
	Clean     bool // remove OutputDir before building
}

// Diagnostic records the outcome of building one page.
type Diagnostic struct {
	Path     string
	Output   string
	Duration time.Duration
	Warning  string // non-fatal authoring problem noted during the build
	Err      error
}

// Result aggregates a finished build.
type Result struct {
	BuildID     string
	Pages       int
	Assets      int
	Duration    time.Duration
	Diagnostics []Diagnostic
	Errors      []error
}

// Manifest is the build record written to manifest.json in the output root.
type Manifest struct {
	BuildID     string    `json:"build_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Documents   int       `json:"documents"`
	Assets      int       `json:"assets"`
	DurationMS  int64     `json:"duration_ms"`
}

// searchEntry is one document in search-index.json.
type searchEntry struct {
	Path        string `json:"path"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`

	lastMod time.Time // feeds the sitemap, not the search manifest
}

// Builder renders a corpus into Config.OutputDir.
type Builder struct {
	cfg      Config
	store    storage.Provider
	renderer *render.Renderer
	logger   *slog.Logger
}

// New creates a Builder over the corpus provider.
func New(cfg Config, store storage.Provider, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		store:    store,
		renderer: render.New(render.WithHTMLLinks()),
		logger:   logger,
	}
}

// Build renders every document, copies assets, and writes the site metadata
// files. Per-page failures do not stop the build; they land in
// Result.Diagnostics and are joined into the returned error.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	files, err := b.store.List("")
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}

	var (
		docs     []*document.Document
		assets   []string
		modTimes = make(map[string]time.Time)
	)
	for _, fi := range files {
		if !document.IsMarkdown(fi.Path) {
			assets = append(assets, fi.Path)
			continue
		}
		data, err := b.store.Read(fi.Path)
		if err != nil {
			return nil, fmt.Errorf("site: read %s: %w", fi.Path, err)
		}
		docs = append(docs, document.Parse(fi.Path, data))
		modTimes[fi.Path] = fi.UpdatedAt
	}

	entries := make([]nav.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, nav.Entry{Path: d.Path, Title: d.Title, Position: d.FrontMatter.SidebarPosition})
	}
	tree := nav.Assemble(entries)

	// Reading order drives the pager links and the search manifest.
	flat := tree.Flatten()
	order := make(map[string]int, len(flat))
	prevNodes := make(map[string]*nav.Node, len(flat))
	nextNodes := make(map[string]*nav.Node, len(flat))
	for i, n := range flat {
		order[n.Path] = i
		if i > 0 {
			prevNodes[n.Path] = flat[i-1]
		}
		if i < len(flat)-1 {
			nextNodes[n.Path] = flat[i+1]
		}
	}

	if b.cfg.Clean {
		if err := os.RemoveAll(b.cfg.OutputDir); err != nil {
			return nil, fmt.Errorf("site: clean output: %w", err)
		}
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}

	res := &Result{BuildID: uuid.NewString()}
	basePath := basePathOf(b.cfg.BaseURL)
	navMarkup := navHTML(tree, basePath)

	var (
		mu        sync.Mutex
		searchIdx = make([]searchEntry, 0, len(docs))
	)
	record := func(diag Diagnostic, entry *searchEntry) {
		mu.Lock()
		defer mu.Unlock()
		res.Diagnostics = append(res.Diagnostics, diag)
		if diag.Err != nil {
			res.Errors = append(res.Errors, diag.Err)
			return
		}
		res.Pages++
		if entry != nil {
			searchIdx = append(searchIdx, *entry)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workerCount())
	for _, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diag, entry := b.buildPage(d, navMarkup, basePath, prevNodes[d.Path], nextNodes[d.Path], modTimes[d.Path])
			record(diag, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, fmt.Errorf("site: %w", err)
	}

	sort.Slice(res.Diagnostics, func(i, j int) bool {
		return res.Diagnostics[i].Path < res.Diagnostics[j].Path
	})
	// The manifest lists documents in sidebar reading order.
	sort.Slice(searchIdx, func(i, j int) bool {
		return order[searchIdx[i].Path] < order[searchIdx[j].Path]
	})
	for _, diag := range res.Diagnostics {
		if diag.Warning != "" {
			b.logger.Warn("site: page degraded",
				slog.String("path", diag.Path), slog.String("warning", diag.Warning))
		}
	}

	if err := b.writeText("assets/site.css", string(siteCSS)); err != nil {
		res.Errors = append(res.Errors, err)
	}
	copied, copyErrs := b.copyAssets(ctx, assets)
	res.Assets = copied
	res.Errors = append(res.Errors, copyErrs...)

	if err := b.writeJSON("search-index.json", searchIdx); err != nil {
		res.Errors = append(res.Errors, err)
	}
	if err := b.writeText("sitemap.xml", buildSitemap(b.cfg.BaseURL, searchIdx, start.UTC())); err != nil {
		res.Errors = append(res.Errors, err)
	}
	if err := b.writeText("robots.txt", buildRobots(b.cfg.BaseURL)); err != nil {
		res.Errors = append(res.Errors, err)
	}

	res.Duration = time.Since(start)
	man := Manifest{
		BuildID:     res.BuildID,
		GeneratedAt: start.UTC(),
		Documents:   res.Pages,
		Assets:      res.Assets,
		DurationMS:  res.Duration.Milliseconds(),
	}
	if err := b.writeJSON("manifest.json", man); err != nil {
		res.Errors = append(res.Errors, err)
	}

	metrics.SiteBuilds.Inc()
	metrics.SiteBuildDuration.Observe(res.Duration.Seconds())

	b.logger.Info("site: build complete",
		slog.String("build_id", res.BuildID),
		slog.Int("pages", res.Pages),
		slog.Int("assets", res.Assets),
		slog.Int("failed", len(res.Errors)),
		slog.Duration("took", res.Duration))

	if len(res.Errors) > 0 {
		return res, errors.Join(res.Errors...)
	}
	return res, nil
}

// copyAssets mirrors every non-Markdown corpus file into the output tree so
// relative image and attachment references keep working.
func (b *Builder) copyAssets(ctx context.Context, assets []string) (int, []error) {
	var errs []error
	copied := 0
	for _, p := range assets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return copied, errs
		}
		data, err := b.store.Read(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("site: asset %s: %w", p, err))
			continue
		}
		dest := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			errs = append(errs, fmt.Errorf("site: asset %s: %w", p, err))
			continue
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			errs = append(errs, fmt.Errorf("site: asset %s: %w", p, err))
			continue
		}
		copied++
	}
	return copied, errs
}

func (b *Builder) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("site: encode %s: %w", rel, err)
	}
	return b.writeText(rel, string(data)+"\n")
}

func (b *Builder) writeText(rel, content string) error {
	dest := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("site: write %s: %w", rel, err)
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("site: write %s: %w", rel, err)
	}
	return nil
}

func (b *Builder) workerCount() int {
	if b.cfg.Workers > 0 {
		return b.cfg.Workers
	}
	return runtime.NumCPU()
}
