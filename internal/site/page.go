package site

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/nav"
	"github.com/pellmark/folio/internal/render"
)

//go:embed layout.html.tmpl
var layoutSrc string

//go:embed assets/site.css
var siteCSS []byte

var layoutTmpl = template.Must(template.New("layout").Parse(layoutSrc))

type pageContext struct {
	Site siteContext
	Page pageData
	Nav  template.HTML
}

type siteContext struct {
	Title    string
	BasePath string
}

type pageData struct {
	Title       string
	Description string
	Path        string
	Content     template.HTML
	ShowTitle   bool // body lacks an H1, the layout supplies the heading
	HasMermaid  bool
	Prev        *pageRef
	Next        *pageRef
}

// pageRef is a pager link to a neighboring page in reading order.
type pageRef struct {
	Label string
	Href  string
}

// buildPage renders one document through the layout and writes the page file.
// Failures are reported as the Diagnostic's Err; the caller decides what to
// do with them.
func (b *Builder) buildPage(d *document.Document, navMarkup template.HTML, basePath string, prev, next *nav.Node, lastMod time.Time) (Diagnostic, *searchEntry) {
	start := time.Now()
	diag := Diagnostic{Path: d.Path}
	if d.FrontMatterErr != nil {
		diag.Warning = "front matter ignored: " + d.FrontMatterErr.Error()
	}

	body, err := b.renderer.HTML(d.Body)
	if err != nil {
		diag.Err = fmt.Errorf("site: render %s: %w", d.Path, err)
		diag.Duration = time.Since(start)
		return diag, nil
	}

	page := pageContext{
		Site: siteContext{Title: b.cfg.Title, BasePath: basePath},
		Page: pageData{
			Title:       d.Title,
			Description: d.FrontMatter.Description,
			Path:        d.Path,
			Content:     template.HTML(body),
			ShowTitle:   !hasH1(d),
			HasMermaid:  strings.Contains(body, `<pre class="mermaid">`),
			Prev:        pagerRef(prev, basePath),
			Next:        pagerRef(next, basePath),
		},
		Nav: navMarkup,
	}

	var buf bytes.Buffer
	if err := layoutTmpl.Execute(&buf, page); err != nil {
		diag.Err = fmt.Errorf("site: layout %s: %w", d.Path, err)
		diag.Duration = time.Since(start)
		return diag, nil
	}

	rel := outputPath(d.Path)
	dest := filepath.Join(b.cfg.OutputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		diag.Err = fmt.Errorf("site: write %s: %w", rel, err)
		diag.Duration = time.Since(start)
		return diag, nil
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		diag.Err = fmt.Errorf("site: write %s: %w", rel, err)
		diag.Duration = time.Since(start)
		return diag, nil
	}

	diag.Output = rel
	diag.Duration = time.Since(start)
	entry := &searchEntry{
		Path:        d.Path,
		URL:         pageURL(b.cfg.BaseURL, rel),
		Title:       d.Title,
		Description: d.FrontMatter.Description,
		Excerpt:     render.Excerpt(body, 240),
		lastMod:     lastMod,
	}
	return diag, entry
}

func pagerRef(n *nav.Node, basePath string) *pageRef {
	if n == nil {
		return nil
	}
	return &pageRef{Label: n.Label, Href: basePath + "/" + outputPath(n.Path)}
}

func hasH1(d *document.Document) bool {
	for _, h := range d.Headings {
		if h.Level == 1 {
			return true
		}
	}
	return false
}

// outputPath maps a corpus path to its page path in the output tree.
func outputPath(p string) string {
	return strings.TrimSuffix(p, ".md") + ".html"
}

// basePathOf extracts the path component of the site base URL, so pages
// hosted under a subpath link correctly.
func basePathOf(baseURL string) string {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return ""
	}
	return strings.TrimRight(u.Path, "/")
}

func pageURL(baseURL, rel string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return "/" + rel
	}
	return base + "/" + rel
}

// navHTML renders the sidebar once per build; every page shares the markup.
func navHTML(tree *nav.Tree, basePath string) template.HTML {
	var b strings.Builder
	writeNavList(&b, tree.Roots, basePath)
	return template.HTML(b.String())
}

func writeNavList(b *strings.Builder, nodes []*nav.Node, basePath string) {
	if len(nodes) == 0 {
		return
	}
	b.WriteString("<ul>\n")
	for _, n := range nodes {
		b.WriteString("<li>")
		label := html.EscapeString(n.Label)
		if n.Path != "" {
			fmt.Fprintf(b, `<a href="%s/%s">%s</a>`, basePath, outputPath(n.Path), label)
		} else {
			fmt.Fprintf(b, `<span class="category">%s</span>`, label)
		}
		writeNavList(b, n.Children, basePath)
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n")
}
