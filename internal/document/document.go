// Package document parses Markdown corpus files: YAML front-matter, body
// structure (headings, links, fenced code blocks), and derived metadata.
package document

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pellmark/folio/internal/checksum"
)

// LinkKind classifies how a link appears in the Markdown source.
type LinkKind string

// Link kinds emitted by the body scanner.
const (
	LinkKindInline   LinkKind = "inline"
	LinkKindImage    LinkKind = "image"
	LinkKindAutolink LinkKind = "autolink"
)

// Link is a single outgoing link found in a document body.
type Link struct {
	Kind        LinkKind `json:"kind"`
	Destination string   `json:"destination"`
	Line        int      `json:"line"` // 1-based line in the source file
}

// Heading is a section heading with its rendered anchor.
type Heading struct {
	Level  int    `json:"level"`
	Text   string `json:"text"`
	Anchor string `json:"anchor"`
	Line   int    `json:"line"`
}

// CodeBlock is a fenced code block found by the fence scanner.
type CodeBlock struct {
	Info   string `json:"info,omitempty"` // full info string after the fence
	Lang   string `json:"lang,omitempty"` // first word of the info string
	Line   int    `json:"line"`           // 1-based line of the opening fence
	Closed bool   `json:"closed"`
}

// FrontMatter is the typed view of the metadata keys the corpus format
// defines. Unknown keys are preserved in Document.Raw.
type FrontMatter struct {
	SidebarPosition *int   `json:"sidebar_position,omitempty"`
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Document is a parsed Markdown file from the corpus.
type Document struct {
	Path        string         `json:"path"`
	FrontMatter FrontMatter    `json:"frontmatter"`
	Raw         map[string]any `json:"raw,omitempty"`
	Body        string         `json:"body"`
	BodyLine    int            `json:"-"` // 1-based line where the body starts
	Title       string         `json:"title"`
	Headings    []Heading      `json:"headings,omitempty"`
	Links       []Link         `json:"links,omitempty"`
	CodeBlocks  []CodeBlock    `json:"code_blocks,omitempty"`
	Checksum    string         `json:"checksum"`

	// FrontMatterErr records a malformed or unterminated front-matter block.
	// Parsing never fails outright: a document with broken front-matter is
	// treated as body-only and the error surfaces through lint.
	FrontMatterErr error `json:"-"`
}

// Parse extracts front-matter and body structure from raw Markdown bytes.
// It always returns a usable Document; authoring mistakes are recorded on
// the Document rather than returned as errors.
func Parse(p string, data []byte) *Document {
	d := &Document{
		Path:     p,
		BodyLine: 1,
		Checksum: checksum.Sum(data),
	}

	fm, raw, body, bodyLine, err := extractFrontMatter(data)
	if err != nil {
		// Broken front-matter: the whole file is body (delimiters included),
		// matching how renderers degrade. Lint reports the error.
		d.FrontMatterErr = err
		d.Body = string(data)
	} else {
		d.FrontMatter = fm
		d.Raw = raw
		d.Body = string(body)
		d.BodyLine = bodyLine
	}

	scanBody(d)
	d.CodeBlocks = scanFences(d.Body, d.BodyLine)
	d.Title = deriveTitle(d)

	return d
}

// deriveTitle returns the front-matter title, else the first H1 heading,
// else a humanized form of the filename stem.
func deriveTitle(d *Document) string {
	if t := strings.TrimSpace(d.FrontMatter.Title); t != "" {
		return t
	}
	for _, h := range d.Headings {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	return Humanize(d.Path)
}

// Humanize turns a path like "patterns/circuit-breaker.md" into a readable
// label such as "Circuit breaker". It also labels bare directory names.
func Humanize(p string) string {
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	stem = strings.Join(strings.Fields(stem), " ")
	if stem == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(stem)
	return string(unicode.ToUpper(r)) + stem[size:]
}

// IndexFile is the document name that speaks for its directory: it titles
// and positions the category, and directory links land on it.
const IndexFile = "index.md"

// IsMarkdown reports whether the given corpus path is a Markdown document.
func IsMarkdown(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".md")
}

// Anchors returns the set of heading anchors defined by the document.
func (d *Document) Anchors() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Headings))
	for _, h := range d.Headings {
		if h.Anchor != "" {
			out[h.Anchor] = struct{}{}
		}
	}
	return out
}
