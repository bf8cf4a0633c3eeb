// Package render converts corpus Markdown into HTML and terminal output.
package render

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts Markdown bodies into HTML fragments. Heading anchors are
// assigned with the same auto-ID scheme the document scanner records, so a
// rendered fragment and its scanned anchors always agree. Safe for concurrent
// use.
type Renderer struct {
	md goldmark.Markdown
}

// Option adjusts renderer construction.
type Option func(*options)

type options struct {
	htmlLinks bool
}

// WithHTMLLinks rewrites relative .md link destinations to their .html
// renditions. The static site wants this; the API serves fragments with the
// corpus paths untouched.
func WithHTMLLinks() Option {
	return func(o *options) { o.htmlLinks = true }
}

// New builds the corpus renderer: GFM, auto heading IDs, raw HTML passed
// through, and mermaid fences swapped for client-rendered diagram containers.
func New(opts ...Option) *Renderer {
	var o options
	for _, apply := range opts {
		apply(&o)
	}
	exts := []goldmark.Extender{extension.GFM, Mermaid}
	if o.htmlLinks {
		exts = append(exts, HTMLLinks)
	}
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// HTML renders a Markdown body into an HTML fragment.
func (r *Renderer) HTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Term renders a Markdown body for terminal display, word-wrapped to width.
func Term(body string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("term renderer: %w", err)
	}
	out, err := tr.Render(body)
	if err != nil {
		return "", fmt.Errorf("render terminal markdown: %w", err)
	}
	return out, nil
}
