package site

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pellmark/folio/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testBuilder(t *testing.T, cfg Config) (*Builder, string, string) {
	t.Helper()
	corpusDir := t.TempDir()
	outDir := t.TempDir()
	cfg.OutputDir = outDir

	store, err := storage.NewFS(corpusDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return New(cfg, store, quietLogger()), corpusDir, outDir
}

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readOutput(t *testing.T, outDir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func TestBuild_PagesAndArtifacts(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{
		Title:   "Folio Docs",
		BaseURL: "https://docs.example.com",
	})
	writeCorpusFile(t, corpusDir, "index.md", "# Welcome\n\nStart here.")
	writeCorpusFile(t, corpusDir, "guides/build.md", "---\ntitle: Build Guide\ndescription: Building things\n---\n\n# Build Guide\n\nSteps.")
	writeCorpusFile(t, corpusDir, "assets/logo.png", "png-bytes")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if res.Assets != 1 {
		t.Errorf("assets = %d, want 1", res.Assets)
	}
	if res.BuildID == "" {
		t.Error("expected a build ID")
	}

	// One HTML page per document.
	for _, rel := range []string{"index.html", "guides/build.html"} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing page %s: %v", rel, err)
		}
	}

	// Corpus assets copied through.
	if got := readOutput(t, outDir, "assets/logo.png"); got != "png-bytes" {
		t.Errorf("asset content = %q", got)
	}

	// Search manifest covers every document, in sidebar reading order. The
	// Guides category sorts before the positionless Welcome leaf.
	var idx []map[string]any
	if err := json.Unmarshal([]byte(readOutput(t, outDir, "search-index.json")), &idx); err != nil {
		t.Fatalf("search index: %v", err)
	}
	if len(idx) != 2 {
		t.Fatalf("search entries = %d, want 2", len(idx))
	}
	if idx[0]["path"] != "guides/build.md" {
		t.Errorf("manifest not in reading order: %v", idx[0]["path"])
	}
	if idx[0]["description"] != "Building things" {
		t.Errorf("description = %v", idx[0]["description"])
	}

	// Sitemap has one URL per page.
	sitemap := readOutput(t, outDir, "sitemap.xml")
	for _, loc := range []string{
		"<loc>https://docs.example.com/index.html</loc>",
		"<loc>https://docs.example.com/guides/build.html</loc>",
	} {
		if !strings.Contains(sitemap, loc) {
			t.Errorf("sitemap missing %s", loc)
		}
	}

	robots := readOutput(t, outDir, "robots.txt")
	if !strings.Contains(robots, "Sitemap: https://docs.example.com/sitemap.xml") {
		t.Errorf("robots = %q", robots)
	}

	var man Manifest
	if err := json.Unmarshal([]byte(readOutput(t, outDir, "manifest.json")), &man); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if man.BuildID != res.BuildID {
		t.Errorf("manifest build ID = %q, want %q", man.BuildID, res.BuildID)
	}
	if man.Documents != 2 || man.Assets != 1 {
		t.Errorf("manifest counts = %d docs %d assets", man.Documents, man.Assets)
	}
	if man.GeneratedAt.IsZero() || time.Since(man.GeneratedAt) > time.Minute {
		t.Errorf("manifest generated_at = %v", man.GeneratedAt)
	}
}

func TestBuild_NavOnEveryPage(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "intro.md", "# Intro")
	writeCorpusFile(t, corpusDir, "guides/build.md", "# Build")

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, rel := range []string{"intro.html", "guides/build.html"} {
		page := readOutput(t, outDir, rel)
		if !strings.Contains(page, `<nav class="sidebar">`) {
			t.Errorf("%s: no sidebar", rel)
		}
		if !strings.Contains(page, ">Intro</a>") || !strings.Contains(page, ">Build</a>") {
			t.Errorf("%s: sidebar missing entries", rel)
		}
	}
}

func TestBuild_RewritesDocLinks(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "a.md", "# A\n\nSee [b](b.md#setup) and [guides](guides/).")
	writeCorpusFile(t, corpusDir, "b.md", "# B\n\n## Setup")
	writeCorpusFile(t, corpusDir, "guides/index.md", "# Guides")

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	page := readOutput(t, outDir, "a.html")
	if !strings.Contains(page, `href="b.html#setup"`) {
		t.Errorf("md link not rewritten: %s", page)
	}
	if !strings.Contains(page, `href="guides/index.html"`) {
		t.Errorf("directory link not rewritten: %s", page)
	}
}

func TestBuild_BrokenFrontMatterStillBuilds(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "bad.md", "---\ntitle: Broken\n\n# Body Anyway")

	res, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Pages != 1 {
		t.Fatalf("pages = %d, want 1", res.Pages)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Warning == "" {
		t.Errorf("expected a front-matter warning, got %+v", res.Diagnostics)
	}
	if !strings.Contains(readOutput(t, outDir, "bad.html"), "Body Anyway") {
		t.Error("degraded page should carry the raw body")
	}
}

func TestBuild_CleanRemovesStaleOutput(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs", Clean: true})
	writeCorpusFile(t, corpusDir, "keep.md", "# Keep")
	if err := os.WriteFile(filepath.Join(outDir, "stale.html"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "stale.html")); !os.IsNotExist(err) {
		t.Error("stale output should be removed by a clean build")
	}
	if _, err := os.Stat(filepath.Join(outDir, "keep.html")); err != nil {
		t.Errorf("built page missing: %v", err)
	}
}

func TestBuild_MermaidPageLoadsScript(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "flow.md", "# Flow\n\n```mermaid\ngraph TD; A-->B;\n```")
	writeCorpusFile(t, corpusDir, "plain.md", "# Plain")

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	flow := readOutput(t, outDir, "flow.html")
	if !strings.Contains(flow, `<pre class="mermaid">`) {
		t.Error("diagram container missing")
	}
	if !strings.Contains(flow, "mermaid.esm.min.mjs") {
		t.Error("mermaid script missing on diagram page")
	}
	if strings.Contains(readOutput(t, outDir, "plain.html"), "mermaid.esm.min.mjs") {
		t.Error("mermaid script should not load on plain pages")
	}
}

func TestBuild_PrevNextLinks(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "one.md", "---\ntitle: One\nsidebar_position: 1\n---\n\n# One")
	writeCorpusFile(t, corpusDir, "two.md", "---\ntitle: Two\nsidebar_position: 2\n---\n\n# Two")
	writeCorpusFile(t, corpusDir, "three.md", "---\ntitle: Three\nsidebar_position: 3\n---\n\n# Three")

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	middle := readOutput(t, outDir, "two.html")
	if !strings.Contains(middle, `rel="prev" href="/one.html"`) {
		t.Error("middle page missing previous link")
	}
	if !strings.Contains(middle, `rel="next" href="/three.html"`) {
		t.Error("middle page missing next link")
	}

	first := readOutput(t, outDir, "one.html")
	if strings.Contains(first, `rel="prev"`) {
		t.Error("first page should have no previous link")
	}
	if !strings.Contains(first, `rel="next" href="/two.html"`) {
		t.Error("first page missing next link")
	}

	if strings.Contains(readOutput(t, outDir, "three.html"), `rel="next"`) {
		t.Error("last page should have no next link")
	}
}

func TestBuild_SuppliesHeadingWhenBodyHasNone(t *testing.T) {
	b, corpusDir, outDir := testBuilder(t, Config{Title: "Docs"})
	writeCorpusFile(t, corpusDir, "meta.md", "---\ntitle: Meta Only\n---\n\nNo heading here.")
	writeCorpusFile(t, corpusDir, "headed.md", "# Already Headed\n\nBody.")

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.Contains(readOutput(t, outDir, "meta.html"), "<h1>Meta Only</h1>") {
		t.Error("layout should supply the missing heading")
	}
	headed := readOutput(t, outDir, "headed.html")
	if strings.Count(headed, "<h1") != 1 {
		t.Errorf("page with body H1 should have exactly one, got %d", strings.Count(headed, "<h1"))
	}
}

func TestBuildRobots_EmptyBaseFallsBack(t *testing.T) {
	robots := buildRobots("")
	if !strings.Contains(robots, "Sitemap: http://localhost/sitemap.xml") {
		t.Errorf("robots = %q", robots)
	}
}

func TestOutputPath(t *testing.T) {
	cases := map[string]string{
		"index.md":        "index.html",
		"guides/build.md": "guides/build.html",
	}
	for in, want := range cases {
		if got := outputPath(in); got != want {
			t.Errorf("outputPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBasePathOf(t *testing.T) {
	cases := map[string]string{
		"":                              "",
		"https://docs.example.com":      "",
		"https://docs.example.com/":     "",
		"https://example.com/docs":      "/docs",
		"https://example.com/docs/sub/": "/docs/sub",
	}
	for in, want := range cases {
		if got := basePathOf(in); got != want {
			t.Errorf("basePathOf(%q) = %q, want %q", in, got, want)
		}
	}
}
