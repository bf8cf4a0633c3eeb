package lint

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/pellmark/folio/internal/document"
)

// checkLinks verifies that every internal destination lands on a corpus file
// and that anchors name a heading in the target document.
func checkLinks(d *document.Document, docs map[string]*document.Document, exists map[string]struct{}) []Issue {
	var out []Issue
	for _, link := range d.Links {
		if link.Kind == document.LinkKindAutolink {
			continue // bare URLs and emails are always external
		}
		if issue := checkLink(d, link, docs, exists); issue != nil {
			out = append(out, *issue)
		}
	}
	return out
}

func checkLink(d *document.Document, link document.Link, docs map[string]*document.Document, exists map[string]struct{}) *Issue {
	dest := strings.TrimSpace(link.Destination)
	if dest == "" {
		return &Issue{
			Path:     d.Path,
			Line:     link.Line,
			Rule:     RuleLink,
			Severity: SeverityError,
			Message:  "empty link destination",
		}
	}

	u, err := url.Parse(dest)
	if err != nil {
		return &Issue{
			Path:     d.Path,
			Line:     link.Line,
			Rule:     RuleLink,
			Severity: SeverityError,
			Message:  fmt.Sprintf("malformed destination %q", dest),
		}
	}
	if u.Scheme != "" || u.Host != "" {
		return nil // external
	}

	if u.Path == "" {
		// Fragment-only link: anchor within this document.
		if u.Fragment == "" {
			return nil
		}
		if _, ok := d.Anchors()[u.Fragment]; !ok {
			return &Issue{
				Path:     d.Path,
				Line:     link.Line,
				Rule:     RuleAnchor,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("anchor #%s not found in this document", u.Fragment),
			}
		}
		return nil
	}

	target, ok := resolveTarget(d.Path, u.Path)
	if !ok {
		return &Issue{
			Path:     d.Path,
			Line:     link.Line,
			Rule:     RuleLink,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s escapes the corpus root", dest),
		}
	}

	resolved := target
	if _, found := exists[resolved]; !found {
		// A directory link lands on its index document.
		alt := path.Join(target, document.IndexFile)
		if _, found := exists[alt]; !found {
			return &Issue{
				Path:     d.Path,
				Line:     link.Line,
				Rule:     RuleLink,
				Severity: SeverityError,
				Message:  fmt.Sprintf("links to %s, which is not in the corpus", target),
			}
		}
		resolved = alt
	}

	if u.Fragment != "" && document.IsMarkdown(resolved) {
		if td := docs[resolved]; td != nil {
			if _, ok := td.Anchors()[u.Fragment]; !ok {
				return &Issue{
					Path:     d.Path,
					Line:     link.Line,
					Rule:     RuleAnchor,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("anchor #%s not found in %s", u.Fragment, resolved),
				}
			}
		}
	}
	return nil
}

// resolveTarget maps a link path onto a corpus-relative path. Destinations
// starting with "/" are rooted at the corpus root, everything else at the
// linking document's directory.
func resolveTarget(from, linkPath string) (string, bool) {
	var target string
	if strings.HasPrefix(linkPath, "/") {
		target = path.Clean(strings.TrimPrefix(linkPath, "/"))
	} else {
		target = path.Clean(path.Join(path.Dir(from), linkPath))
	}
	if target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}
	return target, true
}
