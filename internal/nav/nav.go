// Package nav assembles the sidebar navigation tree for the corpus.
//
// Directories become categories, documents become leaves, and an index.md
// inside a directory supplies that category's label and position. Siblings
// are ordered by sidebar position first, positionless entries after, ties
// broken by label.
package nav

import (
	"path"
	"sort"
	"strings"

	"github.com/pellmark/folio/internal/document"
)

// Entry is one indexed document feeding the tree.
type Entry struct {
	Path     string `json:"path"`
	Title    string `json:"title"`
	Position *int   `json:"position,omitempty"`
}

// Node is a single sidebar item.
type Node struct {
	Label    string  `json:"label"`
	Path     string  `json:"path,omitempty"` // document path; empty for a category without index.md
	Position *int    `json:"position,omitempty"`
	Category bool    `json:"category,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Tree is the assembled navigation.
type Tree struct {
	Roots []*Node `json:"roots"`
}

// Assemble builds the navigation tree from indexed documents. Entries may
// arrive in any order; the result is fully sorted.
func Assemble(entries []Entry) *Tree {
	root := &Node{}
	byDir := map[string]*Node{".": root}

	for _, e := range entries {
		p := path.Clean(e.Path)
		if p == "." || p == ".." || strings.HasPrefix(p, "../") {
			continue
		}
		dir, base := path.Dir(p), path.Base(p)
		parent := categoryNode(byDir, dir)

		if base == document.IndexFile && parent != root {
			// index.md speaks for its directory.
			parent.Path = p
			parent.Position = e.Position
			if t := strings.TrimSpace(e.Title); t != "" {
				parent.Label = t
			}
			continue
		}

		parent.Children = append(parent.Children, &Node{
			Label:    labelFor(e),
			Path:     p,
			Position: e.Position,
		})
	}

	sortChildren(root)
	return &Tree{Roots: root.Children}
}

// categoryNode walks byDir down to dir, creating category nodes as needed.
func categoryNode(byDir map[string]*Node, dir string) *Node {
	if n, ok := byDir[dir]; ok {
		return n
	}
	parent := categoryNode(byDir, path.Dir(dir))
	n := &Node{
		Label:    document.Humanize(path.Base(dir)),
		Category: true,
	}
	parent.Children = append(parent.Children, n)
	byDir[dir] = n
	return n
}

func labelFor(e Entry) string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return document.Humanize(e.Path)
}

// sortChildren orders every level: positioned nodes ascending, positionless
// nodes after them, both tie-broken by case-folded label.
func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return nodeLess(n.Children[i], n.Children[j])
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

func nodeLess(a, b *Node) bool {
	switch {
	case a.Position != nil && b.Position != nil:
		if *a.Position != *b.Position {
			return *a.Position < *b.Position
		}
	case a.Position != nil:
		return true
	case b.Position != nil:
		return false
	}
	al, bl := strings.ToLower(a.Label), strings.ToLower(b.Label)
	if al != bl {
		return al < bl
	}
	return a.Label < b.Label
}

// Flatten returns every document-bearing node in reading order: categories
// with an index.md come before their children.
func (t *Tree) Flatten() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Path != "" {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return out
}
