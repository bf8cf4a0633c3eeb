package site

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
)

// buildSitemap renders the sitemap XML for every built page. Locations are
// deduplicated and sorted for stable output.
func buildSitemap(baseURL string, entries []searchEntry, fallback time.Time) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "http://localhost"
	}

	type urlEntry struct {
		loc     string
		lastMod time.Time
	}
	seen := map[string]struct{}{}
	urls := make([]urlEntry, 0, len(entries))
	for _, e := range entries {
		loc := base + "/" + outputPath(e.Path)
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		lm := e.lastMod
		if lm.IsZero() {
			lm = fallback
		}
		urls = append(urls, urlEntry{loc: loc, lastMod: lm})
	}
	sort.Slice(urls, func(i, j int) bool { return urls[i].loc < urls[j].loc })

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, u := range urls {
		b.WriteString("  <url>\n")
		fmt.Fprintf(&b, "    <loc>%s</loc>\n", html.EscapeString(u.loc))
		if !u.lastMod.IsZero() {
			fmt.Fprintf(&b, "    <lastmod>%s</lastmod>\n", u.lastMod.UTC().Format(time.RFC3339))
		}
		b.WriteString("  </url>\n")
	}
	b.WriteString("</urlset>\n")
	return b.String()
}

func buildRobots(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "http://localhost"
	}
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/sitemap.xml\n", base)
	return b.String()
}
