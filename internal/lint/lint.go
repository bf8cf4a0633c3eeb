// Package lint checks corpus authoring rules: front-matter must be valid
// YAML with the right field types, code fences must close, and internal
// links must resolve to files that exist.
package lint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pellmark/folio/internal/document"
	"github.com/pellmark/folio/internal/metrics"
	"github.com/pellmark/folio/internal/storage"
)

// Linter walks the corpus and produces a Report.
type Linter struct {
	store storage.Provider
}

// New creates a Linter over the given corpus provider.
func New(store storage.Provider) *Linter {
	return &Linter{store: store}
}

// Run lints every Markdown document in the corpus. Non-Markdown files
// participate only as link targets.
func (l *Linter) Run(ctx context.Context) (*Report, error) {
	files, err := l.store.List("")
	if err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}

	exists := make(map[string]struct{}, len(files))
	docs := make(map[string]*document.Document)
	for _, fi := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exists[fi.Path] = struct{}{}
		if !document.IsMarkdown(fi.Path) {
			continue
		}
		data, err := l.store.Read(fi.Path)
		if err != nil {
			return nil, fmt.Errorf("lint: %w", err)
		}
		docs[fi.Path] = document.Parse(fi.Path, data)
	}

	rep := &Report{
		GeneratedAt: time.Now().UTC(),
		Documents:   len(docs),
	}
	for _, d := range docs {
		rep.Issues = append(rep.Issues, DocumentIssues(d)...)
		rep.Issues = append(rep.Issues, checkLinks(d, docs, exists)...)
	}

	sort.Slice(rep.Issues, func(i, j int) bool {
		a, b := rep.Issues[i], rep.Issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})

	metrics.LintRuns.Inc()
	for _, is := range rep.Issues {
		metrics.LintIssues.WithLabelValues(string(is.Severity)).Inc()
	}
	return rep, nil
}

// DocumentIssues runs the self-contained checks for one document: front
// matter and code fences. Link resolution needs the whole corpus and is done
// by Run.
func DocumentIssues(d *document.Document) []Issue {
	var out []Issue
	out = append(out, checkFrontMatter(d)...)
	out = append(out, checkFences(d)...)
	return out
}

func checkFrontMatter(d *document.Document) []Issue {
	if d.FrontMatterErr != nil {
		msg := "invalid front matter: " + d.FrontMatterErr.Error()
		if errors.Is(d.FrontMatterErr, document.ErrUnterminatedFrontMatter) {
			msg = "front-matter block opened on line 1 is never closed"
		}
		return []Issue{{
			Path:     d.Path,
			Line:     1,
			Rule:     RuleFrontMatter,
			Severity: SeverityError,
			Message:  msg,
		}}
	}

	var out []Issue
	out = append(out, checkFieldTypes(d)...)

	if d.FrontMatter.Title == "" && !hasLeadingH1(d) {
		out = append(out, Issue{
			Path:     d.Path,
			Line:     1,
			Rule:     RuleTitle,
			Severity: SeverityWarning,
			Message:  "no front-matter title or H1 heading; sidebar label falls back to the file name",
		})
	}
	return out
}

// Sentinel rule errors carry the severity distinction: a coercible value is
// advice, a wrong type is a contract break.
var (
	errNotInteger = errors.New("must be a non-negative integer")
	errNegative   = errors.New("must not be negative")
	errCoercible  = errors.New("should be a plain integer")
	errNotString  = errors.New("must be a string")
)

// checkFieldTypes validates the declared front-matter fields against the raw
// YAML values. Unknown keys are always allowed.
func checkFieldTypes(d *document.Document) []Issue {
	if len(d.Raw) == 0 {
		return nil
	}

	err := validation.Validate(d.Raw, validation.Map(
		validation.Key("sidebar_position", validation.By(positionRule)).Optional(),
		validation.Key("title", validation.By(stringRule)).Optional(),
		validation.Key("description", validation.By(stringRule)).Optional(),
	).AllowExtraKeys())
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []Issue{{
			Path:     d.Path,
			Line:     1,
			Rule:     RuleFrontMatter,
			Severity: SeverityError,
			Message:  err.Error(),
		}}
	}

	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Issue, 0, len(keys))
	for _, k := range keys {
		sev := SeverityError
		if errors.Is(verrs[k], errCoercible) {
			sev = SeverityWarning
		}
		out = append(out, Issue{
			Path:     d.Path,
			Line:     1,
			Rule:     RuleFrontMatter,
			Severity: sev,
			Message:  fmt.Sprintf("%s: %v", k, verrs[k]),
		})
	}
	return out
}

// positionRule accepts non-negative integers. Integral floats and numeric
// strings pass with errCoercible so they surface as warnings.
func positionRule(v any) error {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return errNegative
		}
		return nil
	case int64:
		if n < 0 {
			return errNegative
		}
		return nil
	case uint64:
		return nil
	case float64:
		if n != float64(int64(n)) {
			return errNotInteger
		}
		if n < 0 {
			return errNegative
		}
		return errCoercible
	case string:
		for _, r := range n {
			if r < '0' || r > '9' {
				return errNotInteger
			}
		}
		if n == "" {
			return errNotInteger
		}
		return errCoercible
	default:
		return errNotInteger
	}
}

func stringRule(v any) error {
	if _, ok := v.(string); !ok {
		return errNotString
	}
	return nil
}

func hasLeadingH1(d *document.Document) bool {
	for _, h := range d.Headings {
		if h.Level == 1 {
			return true
		}
	}
	return false
}

func checkFences(d *document.Document) []Issue {
	var out []Issue
	for _, cb := range d.CodeBlocks {
		if cb.Closed {
			continue
		}
		lang := cb.Lang
		if lang == "" {
			lang = "code"
		}
		out = append(out, Issue{
			Path:     d.Path,
			Line:     cb.Line,
			Rule:     RuleFence,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s fence opened here is never closed", lang),
		})
	}
	return out
}
