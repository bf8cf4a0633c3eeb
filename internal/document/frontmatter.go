package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/adrg/frontmatter"
)

// ErrUnterminatedFrontMatter marks a front-matter block whose opening "---"
// line never finds a closing delimiter.
var ErrUnterminatedFrontMatter = errors.New("front matter: missing closing delimiter")

var fmDelim = []byte("---")

// frontMatterEnvelope mirrors the corpus metadata keys plus a catch-all for
// everything an author adds beyond them. The known keys stay untyped here so
// lint can report a wrong type instead of the decoder rejecting the file.
type frontMatterEnvelope struct {
	SidebarPosition any            `yaml:"sidebar_position"`
	Title           any            `yaml:"title"`
	Description     any            `yaml:"description"`
	Rest            map[string]any `yaml:",inline"`
}

// extractFrontMatter splits and decodes a leading YAML block. It returns the
// typed front-matter, the raw key map, the body bytes, and the 1-based line
// the body starts on. A file without front-matter returns the zero
// FrontMatter and the whole input as body.
func extractFrontMatter(data []byte) (FrontMatter, map[string]any, []byte, int, error) {
	if !hasFrontMatterDelim(data) {
		return FrontMatter{}, nil, data, 1, nil
	}

	if _, ok := closingDelimOffset(data); !ok {
		return FrontMatter{}, nil, nil, 0, ErrUnterminatedFrontMatter
	}

	var env frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(data), &env)
	if err != nil {
		return FrontMatter{}, nil, nil, 0, fmt.Errorf("front matter: %w", err)
	}

	var fm FrontMatter
	if s, ok := env.Title.(string); ok {
		fm.Title = s
	}
	if s, ok := env.Description.(string); ok {
		fm.Description = s
	}
	if pos, ok := coercePosition(env.SidebarPosition); ok {
		fm.SidebarPosition = &pos
	}

	raw := make(map[string]any, len(env.Rest)+3)
	for k, v := range env.Rest {
		raw[k] = v
	}
	if env.SidebarPosition != nil {
		raw["sidebar_position"] = env.SidebarPosition
	}
	if env.Title != nil {
		raw["title"] = env.Title
	}
	if env.Description != nil {
		raw["description"] = env.Description
	}

	bodyLine := bodyStartLine(data, body)
	return fm, raw, body, bodyLine, nil
}

// hasFrontMatterDelim reports whether data opens with a "---" delimiter line.
func hasFrontMatterDelim(data []byte) bool {
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, fmDelim) {
		return false
	}
	rest := bytes.TrimRight(trimmed[len(fmDelim):], " ")
	return len(rest) == 0 || rest[0] == '\n' || rest[0] == '\r'
}

// closingDelimOffset finds the byte offset of the line following the closing
// "---" delimiter.
func closingDelimOffset(data []byte) (int, bool) {
	trimmed := bytes.TrimLeft(data, "\r\n")
	lead := len(data) - len(trimmed)

	// Skip the opening delimiter line.
	nl := bytes.IndexByte(trimmed, '\n')
	if nl < 0 {
		return 0, false
	}
	offset := lead + nl + 1

	for offset < len(data) {
		end := bytes.IndexByte(data[offset:], '\n')
		line := data[offset:]
		next := len(data)
		if end >= 0 {
			line = data[offset : offset+end]
			next = offset + end + 1
		}
		if isDelimLine(line) {
			return next, true
		}
		offset = next
	}
	return 0, false
}

func isDelimLine(line []byte) bool {
	return bytes.Equal(bytes.TrimRight(line, " \r"), fmDelim)
}

// bodyStartLine computes the 1-based line number where body begins inside
// the original data.
func bodyStartLine(data, body []byte) int {
	prefix := len(data) - len(body)
	if prefix < 0 || prefix > len(data) {
		return 1
	}
	return 1 + bytes.Count(data[:prefix], []byte("\n"))
}

// coercePosition accepts the integer-ish YAML representations of
// sidebar_position. Strings and fractional floats are rejected; lint flags
// them from the raw map.
func coercePosition(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int(n), true
		}
	case uint64:
		if n <= math.MaxInt32 {
			return int(n), true
		}
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int(n), true
		}
	}
	return 0, false
}
