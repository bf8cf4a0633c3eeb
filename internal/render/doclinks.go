package render

import (
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// HTMLLinks rewrites relative document links for static output: ".md"
// destinations become ".html" and directory destinations point at the
// directory's index page. External links and bare fragments pass through.
var HTMLLinks goldmark.Extender = htmlLinksExtension{}

type htmlLinksExtension struct{}

func (htmlLinksExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(htmlLinksTransformer{}, 600),
	))
}

type htmlLinksTransformer struct{}

func (htmlLinksTransformer) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if link, ok := n.(*ast.Link); ok {
			link.Destination = rewriteDocHref(link.Destination)
		}
		return ast.WalkContinue, nil
	})
}

func rewriteDocHref(dest []byte) []byte {
	s := string(dest)
	if s == "" || strings.HasPrefix(s, "#") {
		return dest
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return dest
	}

	p, suffix := s, ""
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		p, suffix = s[:i], s[i:]
	}
	switch {
	case strings.HasSuffix(p, ".md"):
		return []byte(strings.TrimSuffix(p, ".md") + ".html" + suffix)
	case strings.HasSuffix(p, "/"):
		return []byte(p + "index.html" + suffix)
	}
	return dest
}
