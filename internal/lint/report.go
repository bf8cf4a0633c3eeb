package lint

import "time"

// Severity ranks a finding. Errors break the corpus contract; warnings are
// authoring advice.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule names reported in issues.
const (
	RuleFrontMatter = "front-matter"
	RuleFence       = "code-fence"
	RuleLink        = "internal-link"
	RuleAnchor      = "link-anchor"
	RuleTitle       = "title"
)

// Issue is a single finding against one document.
type Issue struct {
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report is the outcome of linting the whole corpus.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Documents   int       `json:"documents"`
	Issues      []Issue   `json:"issues"`
}

// Errors counts error-severity issues.
func (r *Report) Errors() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Warnings counts warning-severity issues.
func (r *Report) Warnings() int {
	return len(r.Issues) - r.Errors()
}

// Clean reports whether the corpus passes: warnings allowed, errors not.
func (r *Report) Clean() bool {
	return r.Errors() == 0
}
