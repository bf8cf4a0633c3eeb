package render

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// blockTags are elements that terminate a run of prose. A word never spans
// one of these boundaries, unlike inline elements such as <em> or <code>.
var blockTags = map[string]struct{}{
	"p": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"li": {}, "ul": {}, "ol": {}, "table": {}, "tr": {}, "td": {}, "th": {},
	"blockquote": {}, "br": {}, "hr": {}, "div": {}, "pre": {},
}

// skipTags hold no prose at all.
var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "pre": {},
}

// PlainText strips an HTML fragment down to its visible prose, with
// whitespace collapsed. Code blocks and diagrams are dropped.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode {
			if _, skip := skipTags[n.Data]; skip {
				return
			}
			if _, block := blockTags[n.Data]; block {
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(b.String()), " ")
}

// Excerpt returns the first max runes of the fragment's prose, cut at a word
// boundary with a trailing ellipsis when truncated.
func Excerpt(fragment string, max int) string {
	text := PlainText(fragment)
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := max
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = max
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "…"
}
